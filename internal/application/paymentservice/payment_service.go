package paymentservice

import (
	"context"

	"github.com/google/uuid"
	"github.com/vieclance/wls/internal/domain"
)

type IPaymentService interface {
	// InitiateBankDeposit opens a QR bank-transfer deposit: a pending
	// deposit transaction plus a request carrying the QR code, the
	// collection account and the unique transfer content token.
	InitiateBankDeposit(ctx context.Context, userID uuid.UUID, amountUSDCents int64) (*domain.BankDepositRequest, error)

	// ConfirmBankDeposit is called by the bank gateway webhook. Repeated
	// deliveries for the same transfer content are no-ops.
	ConfirmBankDeposit(ctx context.Context, in BankWebhookInput) error

	// InitiatePayPalDeposit opens a PayPal order and the matching pending
	// deposit transaction.
	InitiatePayPalDeposit(ctx context.Context, userID uuid.UUID, amountUSDCents int64) (*PayPalDepositIntent, error)

	// CapturePayPalDeposit settles the deposit after the PayPal capture
	// callback. Idempotent by order id.
	CapturePayPalDeposit(ctx context.Context, orderID string, succeeded bool) error

	// RequestWithdrawal validates funds, records the payout request and
	// hands it to the provider. The withdrawal transaction settles when the
	// provider callback arrives.
	RequestWithdrawal(ctx context.Context, in WithdrawalInput) (*domain.WithdrawalRequest, error)

	// HandlePayoutCallback settles a withdrawal from the provider's payout
	// status callback. Idempotent by payout reference.
	HandlePayoutCallback(ctx context.Context, providerRef string, succeeded bool, reason string) error

	GetDeposit(ctx context.Context, id string) (*domain.BankDepositRequest, error)
	GetWithdrawal(ctx context.Context, id string) (*domain.WithdrawalRequest, error)

	// SweepExpired expires overdue deposit requests and fails withdrawals
	// stuck in processing past the timeout. Returns how many records were
	// touched.
	SweepExpired(ctx context.Context) (int, error)

	// Run drives SweepExpired on the configured interval until the context
	// is cancelled.
	Run(ctx context.Context) error
}

type BankWebhookInput struct {
	TransferContent string
	AmountVND       int64
	ProviderTxID    string
}

type PayPalDepositIntent struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	ApprovalURL   string `json:"approval_url"`
}

type WithdrawalInput struct {
	UserID         uuid.UUID
	Method         domain.PaymentMethod
	AmountUSDCents int64

	BankName      string
	BankAccount   string
	AccountHolder string

	PayPalEmail string
}
