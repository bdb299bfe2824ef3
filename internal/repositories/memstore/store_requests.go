package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/vieclance/wls/internal/domain"
)

// Deposit and withdrawal accessors. The repository interfaces use the same
// method names (Create, GetByID, Update) for different records, so they are
// exposed through the view adapters in views.go rather than on Store itself.

func (s *Store) CreateDeposit(ctx context.Context, req *domain.BankDepositRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.append(kindDeposit, req); err != nil {
		return err
	}
	s.deposits[req.ID] = cloneDeposit(req)
	return nil
}

func (s *Store) GetDepositByID(ctx context.Context, id string) (*domain.BankDepositRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.deposits[id]
	if !ok {
		return nil, domain.ErrDepositNotFound
	}
	return cloneDeposit(req), nil
}

func (s *Store) GetByTransferContent(ctx context.Context, token string) (*domain.BankDepositRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, req := range s.deposits {
		if req.TransferContent == token {
			return cloneDeposit(req), nil
		}
	}
	return nil, domain.ErrDepositNotFound
}

func (s *Store) UpdateDeposit(ctx context.Context, req *domain.BankDepositRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deposits[req.ID]; !ok {
		return domain.ErrDepositNotFound
	}
	updated := cloneDeposit(req)
	updated.UpdatedAt = time.Now().UTC()
	if err := s.append(kindDeposit, updated); err != nil {
		return err
	}
	s.deposits[req.ID] = updated
	return nil
}

func (s *Store) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.BankDepositRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []*domain.BankDepositRequest
	for _, req := range s.deposits {
		if req.Status == domain.BankDepositStatusPending && req.Expired(now) {
			expired = append(expired, cloneDeposit(req))
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (s *Store) CreateWithdrawal(ctx context.Context, req *domain.WithdrawalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.append(kindWithdrawal, req); err != nil {
		return err
	}
	s.withdrawals[req.ID] = cloneWithdrawal(req)
	return nil
}

func (s *Store) GetWithdrawalByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.withdrawals[id]
	if !ok {
		return nil, domain.ErrWithdrawalNotFound
	}
	return cloneWithdrawal(req), nil
}

func (s *Store) GetByProviderRef(ctx context.Context, ref string) (*domain.WithdrawalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, req := range s.withdrawals {
		if req.ProviderRef == ref && ref != "" {
			return cloneWithdrawal(req), nil
		}
	}
	return nil, domain.ErrWithdrawalNotFound
}

func (s *Store) ListStaleProcessingWithdrawals(ctx context.Context, cutoff time.Time, limit int) ([]*domain.WithdrawalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []*domain.WithdrawalRequest
	for _, req := range s.withdrawals {
		if req.Status == domain.WithdrawalStatusProcessing && req.UpdatedAt.Before(cutoff) {
			stale = append(stale, cloneWithdrawal(req))
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (s *Store) UpdateWithdrawal(ctx context.Context, req *domain.WithdrawalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.withdrawals[req.ID]; !ok {
		return domain.ErrWithdrawalNotFound
	}
	updated := cloneWithdrawal(req)
	updated.UpdatedAt = time.Now().UTC()
	if err := s.append(kindWithdrawal, updated); err != nil {
		return err
	}
	s.withdrawals[req.ID] = updated
	return nil
}
