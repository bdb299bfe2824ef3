package interfaces

import (
	"context"

	"github.com/vieclance/wls/internal/domain"
)

// BankGatewayClient talks to the QR bank-transfer gateway (Sepay-style).
// Confirmation arrives asynchronously through the webhook, keyed by the
// transfer content token.
type BankGatewayClient interface {
	// QRCodeURL builds the scannable payment image for a deposit request.
	QRCodeURL(amountVND int64, transferContent string) string

	// CollectionAccount returns the bank name and account number deposits
	// are paid into.
	CollectionAccount() (bankName, accountNumber string)

	// CreatePayout initiates a bank payout for a withdrawal and returns the
	// provider's payout reference.
	CreatePayout(ctx context.Context, req *domain.WithdrawalRequest) (string, error)
}

// PayPalClient wraps the PayPal orders and payouts APIs.
type PayPalClient interface {
	// CreateOrder opens a PayPal order for a deposit and returns the order
	// id and the approval URL the user is redirected to.
	CreateOrder(ctx context.Context, amountUSDCents int64, description string) (orderID, approvalURL string, err error)

	// CreatePayout sends a payout to a PayPal account and returns the
	// provider's payout reference.
	CreatePayout(ctx context.Context, email string, amountUSDCents int64) (string, error)
}

// EventBroadcaster pushes wallet events to connected clients. Implemented by
// the websocket hub; a no-op implementation is used in tests.
type EventBroadcaster interface {
	Broadcast(event *domain.WalletEvent)
}
