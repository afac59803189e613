package models

import (
	"time"

	"contextguard/internal/fingerprint"

	"github.com/google/uuid"
)

// TrustBaseline is the single fingerprint currently considered home for a
// user. It is created when the user first verifies their email or approves a
// suspicious-login challenge, and overwritten on every later promotion.
type TrustBaseline struct {
	ID          uuid.UUID               `json:"id"`
	UserID      uuid.UUID               `json:"user_id"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// SuspiciousLogin is a ledger entry tracking a non-baseline fingerprint and
// its verification state. Uniqueness is enforced on (user_id, all eight
// fingerprint fields). IsTrusted and IsBlocked are never both true.
type SuspiciousLogin struct {
	ID                 uuid.UUID               `json:"id"`
	UserID             uuid.UUID               `json:"user_id"`
	Email              string                  `json:"email"`
	Fingerprint        fingerprint.Fingerprint `json:"fingerprint"`
	UnverifiedAttempts int                     `json:"unverified_attempts"`
	IsTrusted          bool                    `json:"is_trusted"`
	IsBlocked          bool                    `json:"is_blocked"`
	CreatedAt          time.Time               `json:"created_at"`
}

// Preference holds per-user settings consulted before the decision engine
// runs. Context-based auth is opt-in.
type Preference struct {
	UserID                 uuid.UUID `json:"user_id"`
	EnableContextBasedAuth bool      `json:"enable_context_based_auth"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// UpdatePreferenceRequest represents the request to change a user's
// context-based auth setting
type UpdatePreferenceRequest struct {
	EnableContextBasedAuth *bool `json:"enable_context_based_auth" binding:"required"`
}
