package domain

import (
	"time"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
	WithdrawalStatusCancelled  WithdrawalStatus = "cancelled"
)

// WithdrawalRequest records a payout to a bank account or PayPal. The linked
// withdrawal transaction stays pending until the provider payout callback
// settles it.
type WithdrawalRequest struct {
	ID             string           `json:"id" db:"id"`
	WalletID       string           `json:"wallet_id" db:"wallet_id"`
	TransactionID  string           `json:"transaction_id" db:"transaction_id"`
	Method         PaymentMethod    `json:"method" db:"method"`
	AmountUSDCents int64            `json:"amount_usd_cents" db:"amount_usd_cents"`
	BankName       string           `json:"bank_name,omitempty" db:"bank_name"`
	BankAccount    string           `json:"bank_account,omitempty" db:"bank_account"`
	AccountHolder  string           `json:"account_holder,omitempty" db:"account_holder"`
	PayPalEmail    string           `json:"paypal_email,omitempty" db:"paypal_email"`
	ProviderRef    string           `json:"provider_ref,omitempty" db:"provider_ref"`
	Status         WithdrawalStatus `json:"status" db:"status"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}
