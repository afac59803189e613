package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	MaxLoginAttempts = 5
	LockoutDuration  = 15 * time.Minute
)

// LoginAttemptRepository records per-user login attempts for lockout checks
type LoginAttemptRepository interface {
	Create(ctx context.Context, userID uuid.UUID, successful bool, ipAddress string, createdAt time.Time) error
	GetRecentFailures(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	ClearAttempts(ctx context.Context, userID uuid.UUID) error
}
