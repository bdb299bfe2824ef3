package ledgerservice

import (
	"context"

	"github.com/google/uuid"
	"github.com/vieclance/wls/internal/domain"
)

type ILedgerService interface {
	// GetOrCreateWallet returns the user's wallet, creating it on first use.
	GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetWallet(ctx context.Context, walletID string) (*domain.Wallet, error)

	// Append records a pending transaction. No balance is touched until the
	// transaction settles.
	Append(ctx context.Context, in AppendInput) (*domain.Transaction, error)

	// Settle moves a pending or processing transaction to a terminal status
	// under the wallet lock. Completed debits that would drive the balance
	// negative fail with domain.ErrInsufficientFunds and leave the
	// transaction untouched.
	Settle(ctx context.Context, txID string, status domain.TransactionStatus) (*domain.Transaction, error)

	// AppendSettled appends a transaction and settles it completed in a
	// single critical section. Used for escrow holds and resolution credits
	// where no external leg exists between creation and settlement.
	AppendSettled(ctx context.Context, in AppendInput) (*domain.Transaction, error)

	MarkProcessing(ctx context.Context, txID string) error

	GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error)
	GetTransactionByProviderRef(ctx context.Context, ref string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, walletID string, filter *domain.TransactionFilter) ([]*domain.Transaction, int, error)

	// GetSummary projects the wallet view from ledger aggregates and open
	// escrow totals.
	GetSummary(ctx context.Context, walletID string) (*domain.WalletSummary, error)

	// ReplayBalance recomputes the available balance from the full ordered
	// transaction history. The result must match the materialized balance.
	ReplayBalance(ctx context.Context, walletID string) (int64, error)
}

type AppendInput struct {
	WalletID    string
	Type        domain.TransactionType
	AmountCents int64
	Method      domain.PaymentMethod
	Description string
	ProviderRef string
	Metadata    []byte
}
