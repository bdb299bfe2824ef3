package authservice

import (
	"context"

	"github.com/google/uuid"
	"github.com/vieclance/wls/internal/domain"
)

type IAuthService interface {
	VerifyToken(ctx context.Context, tokenString string) (*domain.Claim, error)
	GenerateJWT(ctx context.Context, userID uuid.UUID, role string, emailVerified bool) (string, error)
	VerifyAPIKey(ctx context.Context, apiKey string) error
}
