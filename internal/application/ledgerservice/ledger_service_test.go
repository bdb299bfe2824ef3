package ledgerservice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vieclance/wls/internal/application/lockmgr"
	"github.com/vieclance/wls/internal/domain"
	"github.com/vieclance/wls/internal/repositories/memstore"
)

func newTestService(t *testing.T) (ILedgerService, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	locks := lockmgr.New(50, 5*time.Millisecond)
	svc := New(store, store, store, locks, zerolog.Nop())
	return svc, store
}

func fundWallet(t *testing.T, svc ILedgerService, walletID string, cents int64) {
	t.Helper()
	_, err := svc.AppendSettled(context.Background(), AppendInput{
		WalletID:    walletID,
		Type:        domain.TypeDeposit,
		AmountCents: cents,
		Method:      domain.MethodInternal,
		Description: "test funding",
	})
	require.NoError(t, err)
}

func TestSettleRecordsBalanceAfterAndSequence(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wallet, err := svc.GetOrCreateWallet(ctx, uuid.New())
	require.NoError(t, err)

	dep, err := svc.Append(ctx, AppendInput{
		WalletID:    wallet.ID,
		Type:        domain.TypeDeposit,
		AmountCents: 1000,
		Method:      domain.MethodBankTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, dep.Status)

	settled, err := svc.Settle(ctx, dep.ID, domain.StatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, settled.BalanceAfterCents)
	assert.Equal(t, int64(1000), *settled.BalanceAfterCents)
	assert.Equal(t, int64(1), settled.Sequence)

	wd, err := svc.AppendSettled(ctx, AppendInput{
		WalletID:    wallet.ID,
		Type:        domain.TypeWithdrawal,
		AmountCents: 1000,
		Method:      domain.MethodBankTransfer,
	})
	require.NoError(t, err)
	require.NotNil(t, wd.BalanceAfterCents)
	assert.Equal(t, int64(0), *wd.BalanceAfterCents)
	assert.Equal(t, int64(2), wd.Sequence)

	updated, err := svc.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.BalanceCents)
	assert.Equal(t, int64(2), updated.Sequence)
}

func TestSettleIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wallet, err := svc.GetOrCreateWallet(ctx, uuid.New())
	require.NoError(t, err)

	tx, err := svc.Append(ctx, AppendInput{
		WalletID:    wallet.ID,
		Type:        domain.TypeDeposit,
		AmountCents: 2500,
		Method:      domain.MethodPayPal,
	})
	require.NoError(t, err)

	_, err = svc.Settle(ctx, tx.ID, domain.StatusCompleted)
	require.NoError(t, err)

	_, err = svc.Settle(ctx, tx.ID, domain.StatusCompleted)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	wallet, err = svc.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), wallet.BalanceCents)
}

func TestSettleInsufficientFundsLeavesTransactionPending(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wallet, err := svc.GetOrCreateWallet(ctx, uuid.New())
	require.NoError(t, err)
	fundWallet(t, svc, wallet.ID, 1000)

	wd, err := svc.Append(ctx, AppendInput{
		WalletID:    wallet.ID,
		Type:        domain.TypeWithdrawal,
		AmountCents: 5000,
		Method:      domain.MethodBankTransfer,
	})
	require.NoError(t, err)

	_, err = svc.Settle(ctx, wd.ID, domain.StatusCompleted)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	tx, err := svc.GetTransaction(ctx, wd.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, tx.Status)

	wallet, err = svc.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), wallet.BalanceCents)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wallet, err := svc.GetOrCreateWallet(ctx, uuid.New())
	require.NoError(t, err)
	fundWallet(t, svc, wallet.ID, 10000)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AppendSettled(ctx, AppendInput{
				WalletID:    wallet.ID,
				Type:        domain.TypeWithdrawal,
				AmountCents: 8000,
				Method:      domain.MethodBankTransfer,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	wallet, err = svc.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), wallet.BalanceCents)
}

func TestSummaryMatchesReplay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wallet, err := svc.GetOrCreateWallet(ctx, uuid.New())
	require.NoError(t, err)

	fundWallet(t, svc, wallet.ID, 10000)
	fundWallet(t, svc, wallet.ID, 2500)

	_, err = svc.AppendSettled(ctx, AppendInput{
		WalletID:    wallet.ID,
		Type:        domain.TypeWithdrawal,
		AmountCents: 3000,
		Method:      domain.MethodPayPal,
	})
	require.NoError(t, err)

	// Pending transactions do not move the available balance.
	_, err = svc.Append(ctx, AppendInput{
		WalletID:    wallet.ID,
		Type:        domain.TypeDeposit,
		AmountCents: 700,
		Method:      domain.MethodBankTransfer,
	})
	require.NoError(t, err)

	summary, err := svc.GetSummary(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9500), summary.AvailableBalanceCents)
	assert.Equal(t, int64(700), summary.PendingBalanceCents)

	replayed, err := svc.ReplayBalance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.AvailableBalanceCents, replayed)

	wallet, err = svc.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, replayed, wallet.BalanceCents)
}

func TestFrozenWalletRejectsDebitsAcceptsCredits(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	wallet, err := svc.GetOrCreateWallet(ctx, uuid.New())
	require.NoError(t, err)
	fundWallet(t, svc, wallet.ID, 5000)

	require.NoError(t, store.UpdateStatus(ctx, wallet.ID, domain.WalletStatusFrozen))

	_, err = svc.AppendSettled(ctx, AppendInput{
		WalletID:    wallet.ID,
		Type:        domain.TypeWithdrawal,
		AmountCents: 1000,
		Method:      domain.MethodBankTransfer,
	})
	assert.ErrorIs(t, err, domain.ErrWalletFrozen)

	_, err = svc.AppendSettled(ctx, AppendInput{
		WalletID:    wallet.ID,
		Type:        domain.TypeEarning,
		AmountCents: 1000,
		Method:      domain.MethodInternal,
	})
	assert.NoError(t, err)

	wallet, err = svc.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), wallet.BalanceCents)
}

func TestListTransactionsFiltersAndPaginates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	wallet, err := svc.GetOrCreateWallet(ctx, uuid.New())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		fundWallet(t, svc, wallet.ID, 1000)
	}
	_, err = svc.AppendSettled(ctx, AppendInput{
		WalletID:    wallet.ID,
		Type:        domain.TypeWithdrawal,
		AmountCents: 500,
		Method:      domain.MethodBankTransfer,
	})
	require.NoError(t, err)

	txs, total, err := svc.ListTransactions(ctx, wallet.ID, &domain.TransactionFilter{
		Types: []domain.TransactionType{domain.TypeDeposit},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, txs, 3)

	txs, total, err = svc.ListTransactions(ctx, wallet.ID, &domain.TransactionFilter{
		Page:  2,
		Limit: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, txs, 1)
}
