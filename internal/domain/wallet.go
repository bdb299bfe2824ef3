package domain

import (
	"time"
)

type WalletStatus string

const (
	WalletStatusActive    WalletStatus = "active"
	WalletStatusFrozen    WalletStatus = "frozen"
	WalletStatusSuspended WalletStatus = "suspended"
)

// Wallet is the per-user balance record. BalanceCents is a materialized
// projection of the transaction ledger, never a second source of truth.
type Wallet struct {
	ID           string       `json:"id" db:"id"`
	UserID       string       `json:"user_id" db:"user_id" binding:"required"`
	Status       WalletStatus `json:"status" db:"status"`
	CurrencyCode string       `json:"currency_code" db:"currency_code"`
	BalanceCents int64        `json:"balance_cents" db:"balance_cents"`
	Sequence     int64        `json:"sequence" db:"sequence"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// CanDebit reports whether debit-type transactions may settle against the
// wallet. Credits are still accepted into frozen wallets.
func (w *Wallet) CanDebit() bool {
	return w.Status == WalletStatusActive
}

// WalletSummary is the balance projection served to clients.
type WalletSummary struct {
	AvailableBalanceCents int64 `json:"available_balance_cents"`
	PendingBalanceCents   int64 `json:"pending_balance_cents"`
	TotalEarnedCents      int64 `json:"total_earned_cents"`
	TotalSpentCents       int64 `json:"total_spent_cents"`
	ActiveEscrowCents     int64 `json:"active_escrow_cents"`
	ActiveEscrowCount     int   `json:"active_escrows"`
}
