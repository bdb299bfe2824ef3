package escrowrepo

import (
	"context"

	"github.com/vieclance/wls/internal/domain"
)

type IEscrowRepository interface {
	CreateHold(ctx context.Context, hold *domain.EscrowHold) error

	GetHold(ctx context.Context, id string) (*domain.EscrowHold, error)

	UpdateHold(ctx context.Context, hold *domain.EscrowHold) error

	// ActiveTotals sums the held amounts of open holds for a wallet,
	// feeding the active_escrows summary fields.
	ActiveTotals(ctx context.Context, walletID string) (sumCents int64, count int, err error)
}
