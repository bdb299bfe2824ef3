package withdrawalrepo

import (
	"context"
	"time"

	"github.com/vieclance/wls/internal/domain"
)

type IWithdrawalRepository interface {
	Create(ctx context.Context, req *domain.WithdrawalRequest) error

	GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error)

	GetByProviderRef(ctx context.Context, ref string) (*domain.WithdrawalRequest, error)

	Update(ctx context.Context, req *domain.WithdrawalRequest) error

	// ListStaleProcessing returns processing requests last updated before
	// cutoff so the background sweep can fail them instead of leaving them
	// stuck.
	ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]*domain.WithdrawalRequest, error)
}
