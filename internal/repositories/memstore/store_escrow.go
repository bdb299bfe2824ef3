package memstore

import (
	"context"
	"time"

	"github.com/vieclance/wls/internal/domain"
)

// --- escrowrepo.IEscrowRepository ---

func (s *Store) CreateHold(ctx context.Context, hold *domain.EscrowHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.append(kindHold, hold); err != nil {
		return err
	}
	s.holds[hold.ID] = cloneHold(hold)
	return nil
}

func (s *Store) GetHold(ctx context.Context, id string) (*domain.EscrowHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hold, ok := s.holds[id]
	if !ok {
		return nil, domain.ErrEscrowNotFound
	}
	return cloneHold(hold), nil
}

func (s *Store) UpdateHold(ctx context.Context, hold *domain.EscrowHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holds[hold.ID]; !ok {
		return domain.ErrEscrowNotFound
	}
	updated := cloneHold(hold)
	updated.UpdatedAt = time.Now().UTC()
	if err := s.append(kindHold, updated); err != nil {
		return err
	}
	s.holds[hold.ID] = updated
	return nil
}

func (s *Store) ActiveTotals(ctx context.Context, walletID string) (int64, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	var count int
	for _, hold := range s.holds {
		if hold.WalletID == walletID && hold.Open() {
			sum += hold.AmountCents
			count++
		}
	}
	return sum, count, nil
}
