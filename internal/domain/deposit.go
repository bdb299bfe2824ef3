package domain

import (
	"time"
)

type BankDepositStatus string

const (
	BankDepositStatusPending   BankDepositStatus = "pending"
	BankDepositStatusVerifying BankDepositStatus = "verifying"
	BankDepositStatusCompleted BankDepositStatus = "completed"
	BankDepositStatusExpired   BankDepositStatus = "expired"
	BankDepositStatusFailed    BankDepositStatus = "failed"
)

// BankDepositRequest bridges a pending deposit transaction to an external
// QR-based bank transfer. TransferContent is the unique token the payer must
// include so the incoming bank webhook can be reconciled.
type BankDepositRequest struct {
	ID              string            `json:"id" db:"id"`
	WalletID        string            `json:"wallet_id" db:"wallet_id"`
	TransactionID   string            `json:"transaction_id" db:"transaction_id"`
	AmountUSDCents  int64             `json:"amount_usd_cents" db:"amount_usd_cents"`
	AmountVND       int64             `json:"amount_vnd" db:"amount_vnd"`
	BankName        string            `json:"bank_name" db:"bank_name"`
	BankAccount     string            `json:"bank_account" db:"bank_account"`
	TransferContent string            `json:"transfer_content" db:"transfer_content"`
	QRCodeURL       string            `json:"qr_code_url" db:"qr_code_url"`
	Status          BankDepositStatus `json:"status" db:"status"`
	ExpiresAt       time.Time         `json:"expires_at" db:"expires_at"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

func (r *BankDepositRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

func (r *BankDepositRequest) Terminal() bool {
	switch r.Status {
	case BankDepositStatusCompleted, BankDepositStatusExpired, BankDepositStatusFailed:
		return true
	}
	return false
}
