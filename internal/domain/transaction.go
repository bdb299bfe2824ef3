package domain

import (
	"encoding/json"
	"time"
)

type TransactionType string
type TransactionStatus string
type PaymentMethod string

const (
	TypeDeposit       TransactionType = "deposit"
	TypeWithdrawal    TransactionType = "withdrawal"
	TypePayment       TransactionType = "payment"
	TypeEarning       TransactionType = "earning"
	TypePlatformFee   TransactionType = "platform_fee"
	TypeInsuranceFee  TransactionType = "insurance_fee"
	TypeRefund        TransactionType = "refund"
	TypeEscrowHold    TransactionType = "escrow_hold"
	TypeEscrowRelease TransactionType = "escrow_release"
)

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusCancelled  TransactionStatus = "cancelled"
)

const (
	MethodPayPal       PaymentMethod = "paypal"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodEscrow       PaymentMethod = "escrow"
	MethodInternal     PaymentMethod = "internal"
)

type Transaction struct {
	ID                string            `json:"id" db:"id"`
	WalletID          string            `json:"wallet_id" db:"wallet_id" binding:"required"`
	Type              TransactionType   `json:"type" db:"type" binding:"required"`
	Status            TransactionStatus `json:"status" db:"status" binding:"required"`
	Method            PaymentMethod     `json:"payment_method" db:"payment_method" binding:"required"`
	AmountCents       int64             `json:"amount_cents" db:"amount_cents" binding:"required"`
	BalanceAfterCents *int64            `json:"balance_after_cents,omitempty" db:"balance_after_cents"`
	Sequence          int64             `json:"sequence" db:"sequence"`
	Description       string            `json:"description" db:"description"`
	ProviderRef       string            `json:"provider_ref,omitempty" db:"provider_ref"`
	Metadata          json.RawMessage   `json:"metadata,omitempty" db:"metadata"`
	SettledAt         *time.Time        `json:"settled_at,omitempty" db:"settled_at"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the transaction can no longer change status.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed || t.Status == StatusCancelled
}

// IsDebit reports whether the transaction type reduces the wallet balance.
func (t *Transaction) IsDebit() bool {
	return t.Type.IsDebit()
}

func (tt TransactionType) IsDebit() bool {
	switch tt {
	case TypeWithdrawal, TypePayment, TypePlatformFee, TypeInsuranceFee, TypeEscrowHold:
		return true
	}
	return false
}

func (tt TransactionType) Valid() bool {
	switch tt {
	case TypeDeposit, TypeWithdrawal, TypePayment, TypeEarning,
		TypePlatformFee, TypeInsuranceFee, TypeRefund, TypeEscrowHold, TypeEscrowRelease:
		return true
	}
	return false
}

func (ts TransactionStatus) Valid() bool {
	switch ts {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// TransactionFilter narrows transaction history queries. Zero values match
// everything; pagination is 1-based.
type TransactionFilter struct {
	Types    []TransactionType
	Statuses []TransactionStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	Limit    int
}

func (f *TransactionFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

func (f *TransactionFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Matches applies the filter in memory, mirroring the SQL predicates.
func (f *TransactionFilter) Matches(tx *Transaction) bool {
	if len(f.Types) > 0 {
		ok := false
		for _, t := range f.Types {
			if tx.Type == t {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if tx.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.DateFrom != nil && tx.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && tx.CreatedAt.After(*f.DateTo) {
		return false
	}
	return true
}
