package repository

import (
	"context"

	"contextguard/internal/models"

	"github.com/google/uuid"
)

const (
	TokenExpirationHours    = 24
	VerificationTokenLength = 32
)

// EmailVerificationRepository manages account email verification tokens
type EmailVerificationRepository interface {
	Create(ctx context.Context, userID uuid.UUID) (*models.EmailVerification, error)
	// Verify consumes the token and returns the owning user's id. Returns
	// ErrTokenInvalid for unknown or already-used tokens and ErrTokenExpired
	// for expired ones.
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}
