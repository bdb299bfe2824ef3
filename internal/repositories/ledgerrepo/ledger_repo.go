package ledgerrepo

import (
	"context"

	"github.com/vieclance/wls/internal/domain"
)

// LedgerTotals are the sums the balance projector is built from. All values
// are USD cents over completed transactions except PendingCents, which sums
// pending and processing transactions.
type LedgerTotals struct {
	CompletedCreditCents int64
	CompletedDebitCents  int64
	PendingCents         int64
	TotalEarnedCents     int64
	TotalSpentCents      int64
}

type ILedgerRepository interface {
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error

	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)

	// GetTransactionByProviderRef looks a transaction up by the external
	// reference (transfer content token, PayPal order or payout id) so
	// provider callbacks can be made idempotent.
	GetTransactionByProviderRef(ctx context.Context, ref string) (*domain.Transaction, error)

	// MarkProcessing moves a pending transaction to processing while a
	// provider round trip is in flight.
	MarkProcessing(ctx context.Context, id string) error

	// SettleTransaction persists the transaction's terminal state and the
	// wallet's cached balance and settlement sequence as one atomic unit.
	// The caller holds the per-wallet lock and has already computed both.
	SettleTransaction(ctx context.Context, tx *domain.Transaction, wallet *domain.Wallet) error

	ListTransactions(ctx context.Context, walletID string, filter *domain.TransactionFilter) ([]*domain.Transaction, int, error)

	// ReplayTransactions returns every transaction of a wallet in
	// settlement order (settled first by sequence, then unsettled by
	// creation time) for projection rebuild and audit.
	ReplayTransactions(ctx context.Context, walletID string) ([]*domain.Transaction, error)

	Aggregate(ctx context.Context, walletID string) (*LedgerTotals, error)
}
