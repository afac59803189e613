package repository

import (
	"context"
	"time"

	"contextguard/internal/models"

	"github.com/google/uuid"
)

// RefreshTokenRepository defines the interface for refresh token operations
type RefreshTokenRepository interface {
	Repository
	Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context) error
}
