package escrowservice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vieclance/wls/internal/application/ledgerservice"
	"github.com/vieclance/wls/internal/application/lockmgr"
	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/repositories/escrowrepo"
	"github.com/vieclance/wls/internal/repositories/memstore"
)

type fixture struct {
	escrow IEscrowService
	ledger ledgerservice.ILedgerService
	store  *memstore.Store
	locks  *lockmgr.Manager

	employer *domain.Wallet
	worker   *domain.Wallet
}

func newFixture(t *testing.T, employerCents int64) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memstore.New()
	locks := lockmgr.New(50, 5*time.Millisecond)
	ledger := ledgerservice.New(store, store, store, locks, zerolog.Nop())
	escrow := New(store, store, ledger, locks, nil, zerolog.Nop())

	employer, err := ledger.GetOrCreateWallet(ctx, uuid.New())
	require.NoError(t, err)
	worker, err := ledger.GetOrCreateWallet(ctx, uuid.New())
	require.NoError(t, err)

	if employerCents > 0 {
		_, err = ledger.AppendSettled(ctx, ledgerservice.AppendInput{
			WalletID:    employer.ID,
			Type:        domain.TypeDeposit,
			AmountCents: employerCents,
			Method:      domain.MethodInternal,
			Description: "test funding",
		})
		require.NoError(t, err)
	}

	return &fixture{
		escrow:   escrow,
		ledger:   ledger,
		store:    store,
		locks:    locks,
		employer: employer,
		worker:   worker,
	}
}

func (f *fixture) balance(t *testing.T, walletID string) int64 {
	t.Helper()
	wallet, err := f.ledger.GetWallet(context.Background(), walletID)
	require.NoError(t, err)
	return wallet.BalanceCents
}

func TestHoldReservesFundsImmediately(t *testing.T) {
	f := newFixture(t, 20000)
	ctx := context.Background()

	hold, err := f.escrow.Hold(ctx, HoldInput{
		WalletID:    f.employer.ID,
		JobID:       "job-1",
		AmountCents: 20000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusHeld, hold.Status)
	assert.NotEmpty(t, hold.HoldTxID)

	assert.Equal(t, int64(0), f.balance(t, f.employer.ID))

	summary, err := f.ledger.GetSummary(ctx, f.employer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.AvailableBalanceCents)
	assert.Equal(t, int64(20000), summary.ActiveEscrowCents)
	assert.Equal(t, 1, summary.ActiveEscrowCount)
	assert.Equal(t, int64(20000), summary.TotalSpentCents)
}

func TestHoldFailsOnInsufficientFunds(t *testing.T) {
	f := newFixture(t, 5000)

	_, err := f.escrow.Hold(context.Background(), HoldInput{
		WalletID:    f.employer.ID,
		JobID:       "job-1",
		AmountCents: 20000,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(5000), f.balance(t, f.employer.ID))
}

func TestReleaseToWorkerPaysFullAmount(t *testing.T) {
	f := newFixture(t, 20000)
	ctx := context.Background()

	hold, err := f.escrow.Hold(ctx, HoldInput{
		WalletID:    f.employer.ID,
		JobID:       "job-1",
		AmountCents: 20000,
	})
	require.NoError(t, err)

	resolved, err := f.escrow.Release(ctx, ResolveInput{
		HoldID:         hold.ID,
		Resolution:     domain.ResolutionReleaseToWorker,
		WorkerWalletID: f.worker.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusReleased, resolved.Status)
	assert.Len(t, resolved.ResolutionTxIDs, 1)
	assert.NotNil(t, resolved.ResolvedAt)

	assert.Equal(t, int64(20000), f.balance(t, f.worker.ID))
	assert.Equal(t, int64(0), f.balance(t, f.employer.ID))

	workerSummary, err := f.ledger.GetSummary(ctx, f.worker.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), workerSummary.TotalEarnedCents)

	employerSummary, err := f.ledger.GetSummary(ctx, f.employer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), employerSummary.ActiveEscrowCents)
	assert.Equal(t, 0, employerSummary.ActiveEscrowCount)
}

func TestRefundToEmployerReturnsFullAmount(t *testing.T) {
	f := newFixture(t, 20000)
	ctx := context.Background()

	hold, err := f.escrow.Hold(ctx, HoldInput{
		WalletID:    f.employer.ID,
		JobID:       "job-1",
		AmountCents: 20000,
	})
	require.NoError(t, err)

	resolved, err := f.escrow.Release(ctx, ResolveInput{
		HoldID:     hold.ID,
		Resolution: domain.ResolutionRefundToEmployer,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusRefunded, resolved.Status)

	assert.Equal(t, int64(20000), f.balance(t, f.employer.ID))
	assert.Equal(t, int64(0), f.balance(t, f.worker.ID))
}

func TestPartialRefundSplitsExactly(t *testing.T) {
	f := newFixture(t, 20000)
	ctx := context.Background()

	hold, err := f.escrow.Hold(ctx, HoldInput{
		WalletID:    f.employer.ID,
		JobID:       "job-1",
		AmountCents: 20000,
	})
	require.NoError(t, err)

	resolved, err := f.escrow.Release(ctx, ResolveInput{
		HoldID:         hold.ID,
		Resolution:     domain.ResolutionPartialRefund,
		WorkerWalletID: f.worker.ID,
		RefundCents:    6000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusReleased, resolved.Status)
	assert.Len(t, resolved.ResolutionTxIDs, 2)

	workerBal := f.balance(t, f.worker.ID)
	employerBal := f.balance(t, f.employer.ID)
	assert.Equal(t, int64(14000), workerBal)
	assert.Equal(t, int64(6000), employerBal)
	assert.Equal(t, hold.AmountCents, workerBal+employerBal)
}

func TestPartialRefundRejectsOutOfRangeSplit(t *testing.T) {
	f := newFixture(t, 20000)
	ctx := context.Background()

	hold, err := f.escrow.Hold(ctx, HoldInput{
		WalletID:    f.employer.ID,
		JobID:       "job-1",
		AmountCents: 20000,
	})
	require.NoError(t, err)

	for _, refund := range []int64{0, -100, 20000, 25000} {
		_, err := f.escrow.Release(ctx, ResolveInput{
			HoldID:         hold.ID,
			Resolution:     domain.ResolutionPartialRefund,
			WorkerWalletID: f.worker.ID,
			RefundCents:    refund,
		})
		assert.Error(t, err, "refund %d should be rejected", refund)
	}
}

func TestDisputeBlocksReleaseUntilResolved(t *testing.T) {
	f := newFixture(t, 20000)
	ctx := context.Background()

	hold, err := f.escrow.Hold(ctx, HoldInput{
		WalletID:    f.employer.ID,
		JobID:       "job-1",
		AmountCents: 20000,
	})
	require.NoError(t, err)

	disputed, err := f.escrow.Dispute(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusDisputed, disputed.Status)

	// Disputed holds still count as active escrow.
	summary, err := f.ledger.GetSummary(ctx, f.employer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), summary.ActiveEscrowCents)

	_, err = f.escrow.Release(ctx, ResolveInput{
		HoldID:         hold.ID,
		Resolution:     domain.ResolutionReleaseToWorker,
		WorkerWalletID: f.worker.ID,
	})
	assert.ErrorIs(t, err, domain.ErrEscrowDisputed)

	resolved, err := f.escrow.Resolve(ctx, ResolveInput{
		HoldID:         hold.ID,
		Resolution:     domain.ResolutionReleaseToWorker,
		WorkerWalletID: f.worker.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusReleased, resolved.Status)
	assert.Equal(t, int64(20000), f.balance(t, f.worker.ID))
}

func TestResolvedHoldCannotBeReleasedAgain(t *testing.T) {
	f := newFixture(t, 20000)
	ctx := context.Background()

	hold, err := f.escrow.Hold(ctx, HoldInput{
		WalletID:    f.employer.ID,
		JobID:       "job-1",
		AmountCents: 20000,
	})
	require.NoError(t, err)

	_, err = f.escrow.Release(ctx, ResolveInput{
		HoldID:         hold.ID,
		Resolution:     domain.ResolutionReleaseToWorker,
		WorkerWalletID: f.worker.ID,
	})
	require.NoError(t, err)

	_, err = f.escrow.Release(ctx, ResolveInput{
		HoldID:         hold.ID,
		Resolution:     domain.ResolutionReleaseToWorker,
		WorkerWalletID: f.worker.ID,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)

	// No double payout.
	assert.Equal(t, int64(20000), f.balance(t, f.worker.ID))
}

func TestPartialResolveResumesWithoutDoublePay(t *testing.T) {
	f := newFixture(t, 20000)
	ctx := context.Background()

	hold, err := f.escrow.Hold(ctx, HoldInput{
		WalletID:    f.employer.ID,
		JobID:       "job-1",
		AmountCents: 20000,
	})
	require.NoError(t, err)

	// Hold the employer wallet lock so the refund credit cannot settle
	// after the worker credit already has.
	unlock, ok := f.locks.Acquire(ctx, f.employer.ID)
	require.True(t, ok)

	in := ResolveInput{
		HoldID:         hold.ID,
		Resolution:     domain.ResolutionPartialRefund,
		WorkerWalletID: f.worker.ID,
		RefundCents:    6000,
	}
	_, err = f.escrow.Release(ctx, in)
	require.Error(t, err)

	// The worker's share settled before the failure.
	assert.Equal(t, int64(14000), f.balance(t, f.worker.ID))
	mid, err := f.escrow.GetHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusResolving, mid.Status)

	// A different resolution cannot hijack one in progress.
	_, err = f.escrow.Release(ctx, ResolveInput{
		HoldID:         hold.ID,
		Resolution:     domain.ResolutionReleaseToWorker,
		WorkerWalletID: f.worker.ID,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	unlock()

	resolved, err := f.escrow.Release(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusReleased, resolved.Status)
	assert.Len(t, resolved.ResolutionTxIDs, 2)

	// The retry completed the refund without re-crediting the worker.
	workerBal := f.balance(t, f.worker.ID)
	employerBal := f.balance(t, f.employer.ID)
	assert.Equal(t, int64(14000), workerBal)
	assert.Equal(t, int64(6000), employerBal)
	assert.Equal(t, hold.AmountCents, workerBal+employerBal)
}

func TestReleaseResumesAfterWorkerCreditFailure(t *testing.T) {
	f := newFixture(t, 20000)
	ctx := context.Background()

	hold, err := f.escrow.Hold(ctx, HoldInput{
		WalletID:    f.employer.ID,
		JobID:       "job-1",
		AmountCents: 20000,
	})
	require.NoError(t, err)

	unlock, ok := f.locks.Acquire(ctx, f.worker.ID)
	require.True(t, ok)

	in := ResolveInput{
		HoldID:         hold.ID,
		Resolution:     domain.ResolutionReleaseToWorker,
		WorkerWalletID: f.worker.ID,
	}
	_, err = f.escrow.Release(ctx, in)
	require.Error(t, err)
	assert.Equal(t, int64(0), f.balance(t, f.worker.ID))

	unlock()

	resolved, err := f.escrow.Release(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusReleased, resolved.Status)
	assert.Equal(t, int64(20000), f.balance(t, f.worker.ID))

	_, err = f.escrow.Release(ctx, in)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	assert.Equal(t, int64(20000), f.balance(t, f.worker.ID))
}

type failingEscrowRepo struct {
	escrowrepo.IEscrowRepository
	failCreate bool
}

func (r *failingEscrowRepo) CreateHold(ctx context.Context, hold *domain.EscrowHold) error {
	if r.failCreate {
		return fmt.Errorf("storage offline")
	}
	return r.IEscrowRepository.CreateHold(ctx, hold)
}

func TestHoldReversesDebitWhenRecordFails(t *testing.T) {
	ctx := context.Background()

	store := memstore.New()
	locks := lockmgr.New(50, 5*time.Millisecond)
	ledger := ledgerservice.New(store, store, store, locks, zerolog.Nop())
	repo := &failingEscrowRepo{IEscrowRepository: store, failCreate: true}
	escrow := New(repo, store, ledger, locks, nil, zerolog.Nop())

	employer, err := ledger.GetOrCreateWallet(ctx, uuid.New())
	require.NoError(t, err)
	_, err = ledger.AppendSettled(ctx, ledgerservice.AppendInput{
		WalletID:    employer.ID,
		Type:        domain.TypeDeposit,
		AmountCents: 20000,
		Method:      domain.MethodInternal,
		Description: "test funding",
	})
	require.NoError(t, err)

	_, err = escrow.Hold(ctx, HoldInput{
		WalletID:    employer.ID,
		JobID:       "job-1",
		AmountCents: 20000,
	})
	require.Error(t, err)

	// The hold debit was reversed, not stranded.
	wallet, err := ledger.GetWallet(ctx, employer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), wallet.BalanceCents)

	summary, err := ledger.GetSummary(ctx, employer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.ActiveEscrowCents)
	assert.Equal(t, 0, summary.ActiveEscrowCount)
}
