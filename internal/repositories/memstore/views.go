package memstore

import (
	"context"
	"time"

	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/repositories/depositrepo"
	"github.com/vieclance/wls/internal/repositories/withdrawalrepo"
)

// Deposits exposes the store as a bank deposit request repository.
func (s *Store) Deposits() depositrepo.IDepositRepository {
	return depositView{s}
}

// Withdrawals exposes the store as a withdrawal request repository.
func (s *Store) Withdrawals() withdrawalrepo.IWithdrawalRepository {
	return withdrawalView{s}
}

type depositView struct {
	s *Store
}

func (v depositView) Create(ctx context.Context, req *domain.BankDepositRequest) error {
	return v.s.CreateDeposit(ctx, req)
}

func (v depositView) GetByID(ctx context.Context, id string) (*domain.BankDepositRequest, error) {
	return v.s.GetDepositByID(ctx, id)
}

func (v depositView) GetByTransferContent(ctx context.Context, token string) (*domain.BankDepositRequest, error) {
	return v.s.GetByTransferContent(ctx, token)
}

func (v depositView) Update(ctx context.Context, req *domain.BankDepositRequest) error {
	return v.s.UpdateDeposit(ctx, req)
}

func (v depositView) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.BankDepositRequest, error) {
	return v.s.ListExpired(ctx, now, limit)
}

type withdrawalView struct {
	s *Store
}

func (v withdrawalView) Create(ctx context.Context, req *domain.WithdrawalRequest) error {
	return v.s.CreateWithdrawal(ctx, req)
}

func (v withdrawalView) GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	return v.s.GetWithdrawalByID(ctx, id)
}

func (v withdrawalView) GetByProviderRef(ctx context.Context, ref string) (*domain.WithdrawalRequest, error) {
	return v.s.GetByProviderRef(ctx, ref)
}

func (v withdrawalView) Update(ctx context.Context, req *domain.WithdrawalRequest) error {
	return v.s.UpdateWithdrawal(ctx, req)
}

func (v withdrawalView) ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]*domain.WithdrawalRequest, error) {
	return v.s.ListStaleProcessingWithdrawals(ctx, cutoff, limit)
}
