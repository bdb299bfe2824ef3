package walletrepo

import (
	"context"

	"github.com/vieclance/wls/internal/domain"
)

type IWalletRepository interface {
	// GetOrCreateByUser returns the user's wallet, creating an empty active
	// USD wallet on first access. Exactly one wallet exists per user.
	GetOrCreateByUser(ctx context.Context, userID string) (*domain.Wallet, error)

	GetByID(ctx context.Context, walletID string) (*domain.Wallet, error)

	UpdateStatus(ctx context.Context, walletID string, status domain.WalletStatus) error
}
