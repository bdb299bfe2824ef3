package memstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vieclance/wls/internal/domain"
)

func TestJournalReplayRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.journal")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)

	wallet, err := store.GetOrCreateByUser(ctx, uuid.New().String())
	require.NoError(t, err)

	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:          uuid.New().String(),
		WalletID:    wallet.ID,
		Type:        domain.TypeDeposit,
		Status:      domain.StatusPending,
		Method:      domain.MethodBankTransfer,
		AmountCents: 4200,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.CreateTransaction(ctx, tx))

	settled := *tx
	settled.Status = domain.StatusCompleted
	settled.Sequence = 1
	balanceAfter := int64(4200)
	settled.BalanceAfterCents = &balanceAfter
	settled.SettledAt = &now
	wallet.BalanceCents = 4200
	wallet.Sequence = 1
	require.NoError(t, store.SettleTransaction(ctx, &settled, wallet))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	restoredWallet, err := reopened.GetByID(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4200), restoredWallet.BalanceCents)
	assert.Equal(t, int64(1), restoredWallet.Sequence)

	restoredTx, err := reopened.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, restoredTx.Status)
	require.NotNil(t, restoredTx.BalanceAfterCents)
	assert.Equal(t, int64(4200), *restoredTx.BalanceAfterCents)
}

func TestSettleRejectsTerminalTransaction(t *testing.T) {
	store := New()
	ctx := context.Background()

	wallet, err := store.GetOrCreateByUser(ctx, uuid.New().String())
	require.NoError(t, err)

	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:          uuid.New().String(),
		WalletID:    wallet.ID,
		Type:        domain.TypeDeposit,
		Status:      domain.StatusPending,
		Method:      domain.MethodPayPal,
		AmountCents: 100,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.CreateTransaction(ctx, tx))

	tx.Status = domain.StatusCompleted
	tx.SettledAt = &now
	wallet.BalanceCents = 100
	wallet.Sequence = 1
	require.NoError(t, store.SettleTransaction(ctx, tx, wallet))

	err = store.SettleTransaction(ctx, tx, wallet)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestClonesPreventExternalMutation(t *testing.T) {
	store := New()
	ctx := context.Background()

	wallet, err := store.GetOrCreateByUser(ctx, uuid.New().String())
	require.NoError(t, err)

	wallet.BalanceCents = 999999 // mutating the returned copy

	fresh, err := store.GetByID(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fresh.BalanceCents)
}
