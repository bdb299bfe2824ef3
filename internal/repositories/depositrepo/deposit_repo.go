package depositrepo

import (
	"context"
	"time"

	"github.com/vieclance/wls/internal/domain"
)

type IDepositRepository interface {
	Create(ctx context.Context, req *domain.BankDepositRequest) error

	GetByID(ctx context.Context, id string) (*domain.BankDepositRequest, error)

	GetByTransferContent(ctx context.Context, token string) (*domain.BankDepositRequest, error)

	Update(ctx context.Context, req *domain.BankDepositRequest) error

	// ListExpired returns pending requests whose expiry has passed, for the
	// background sweep.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.BankDepositRequest, error)
}
