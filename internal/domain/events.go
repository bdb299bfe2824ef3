package domain

import "time"

type WalletEventKind string

const (
	EventDepositConfirmed  WalletEventKind = "deposit_confirmed"
	EventDepositExpired    WalletEventKind = "deposit_expired"
	EventWithdrawalSettled WalletEventKind = "withdrawal_settled"
	EventWithdrawalFailed  WalletEventKind = "withdrawal_failed"
	EventEscrowHeld        WalletEventKind = "escrow_held"
	EventEscrowResolved    WalletEventKind = "escrow_resolved"
)

// WalletEvent is pushed to connected websocket clients so the UI can refresh
// balances without polling.
type WalletEvent struct {
	Kind          WalletEventKind `json:"kind"`
	WalletID      string          `json:"wallet_id"`
	UserID        string          `json:"user_id"`
	TransactionID string          `json:"transaction_id,omitempty"`
	AmountCents   int64           `json:"amount_cents,omitempty"`
	Message       string          `json:"message,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}
