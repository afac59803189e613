package repository

import (
	"context"
	"time"

	"contextguard/internal/fingerprint"
	"contextguard/internal/models"

	"github.com/google/uuid"
)

// TrustBaselineRepository stores the single trusted fingerprint per user.
type TrustBaselineRepository interface {
	Repository
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.TrustBaseline, error)
	// Upsert establishes fp as the user's baseline, overwriting any previous
	// one. Baselines are not versioned.
	Upsert(ctx context.Context, userID uuid.UUID, fp fingerprint.Fingerprint) error
}

// SuspiciousLoginRepository is the ledger of per-user, per-fingerprint
// suspicious-login records. All lookups are exact matches on the user plus
// every fingerprint field; there is no partial matching.
type SuspiciousLoginRepository interface {
	Repository
	GetByID(ctx context.Context, id uuid.UUID) (*models.SuspiciousLogin, error)
	GetByFingerprint(ctx context.Context, userID uuid.UUID, fp fingerprint.Fingerprint) (*models.SuspiciousLogin, error)
	Create(ctx context.Context, rec *models.SuspiciousLogin) error
	// IncrementAttempts bumps unverified_attempts by one and, in the same
	// statement, flips the record to blocked when the new count reaches
	// threshold. The increment and the flip are a single atomic update so
	// concurrent sign-ins cannot both observe a below-threshold count.
	// Returns ErrNotFound when the record is absent or no longer pending
	// (already trusted or blocked).
	IncrementAttempts(ctx context.Context, id uuid.UUID, threshold int) (attempts int, blocked bool, err error)
	// SetTrusted marks the record approved, clearing any block.
	SetTrusted(ctx context.Context, id uuid.UUID) error
	// SetBlocked marks the record blocked, clearing any trust.
	SetBlocked(ctx context.Context, id uuid.UUID) error
	// PurgeStale removes unresolved records older than the given age. Blocked
	// records are never purged; a block is permanent.
	PurgeStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// PreferenceRepository stores per-user settings gating context-based auth.
type PreferenceRepository interface {
	Repository
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Preference, error)
	Upsert(ctx context.Context, userID uuid.UUID, enableContextBasedAuth bool) error
}
