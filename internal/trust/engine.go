package trust

import (
	"context"
	"errors"

	"contextguard/internal/fingerprint"
	"contextguard/internal/metrics"
	"contextguard/internal/models"
	"contextguard/internal/repository"
)

// DefaultBlockThreshold is the number of unverified attempts after which a
// suspicious context is permanently blocked.
const DefaultBlockThreshold = 3

// Engine decides whether a sign-in context is trusted. It owns all ledger
// record creation and counter mutation; promotion to trusted is the
// Verifier's job.
type Engine struct {
	baselines repository.TrustBaselineRepository
	ledger    repository.SuspiciousLoginRepository
	threshold int
}

// NewEngine creates a decision engine. A threshold of 0 falls back to
// DefaultBlockThreshold.
func NewEngine(baselines repository.TrustBaselineRepository, ledger repository.SuspiciousLoginRepository, threshold int) *Engine {
	if threshold <= 0 {
		threshold = DefaultBlockThreshold
	}
	return &Engine{
		baselines: baselines,
		ledger:    ledger,
		threshold: threshold,
	}
}

// Decide classifies the current fingerprint for the given user. Callers must
// have checked that context-based auth is enabled for the user. Every storage
// fault is collapsed into a KindError outcome; the caller's only obligation
// on error is to deny the sign-in and log.
func (e *Engine) Decide(ctx context.Context, user *models.User, current fingerprint.Fingerprint) Outcome {
	outcome := e.decide(ctx, user, current)
	metrics.DecisionOutcomes.WithLabelValues(string(outcome.Kind)).Inc()
	return outcome
}

func (e *Engine) decide(ctx context.Context, user *models.User, current fingerprint.Fingerprint) Outcome {
	baseline, err := e.baselines.GetByUserID(ctx, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return Outcome{Kind: KindNoBaseline}
	}
	if err != nil {
		return Outcome{Kind: KindError, Err: err}
	}

	if fingerprint.Equal(current, baseline.Fingerprint) {
		return Outcome{Kind: KindMatch}
	}

	rec, err := e.ledger.GetByFingerprint(ctx, user.ID, current)
	switch {
	case err == nil:
		return e.resolveKnown(ctx, rec)
	case errors.Is(err, repository.ErrNotFound):
		return e.recordMismatch(ctx, user, baseline, current)
	default:
		return Outcome{Kind: KindError, Err: err}
	}
}

// resolveKnown handles a ledger record that exactly matches the current
// fingerprint.
func (e *Engine) resolveKnown(ctx context.Context, rec *models.SuspiciousLogin) Outcome {
	if rec.IsBlocked {
		return Outcome{Kind: KindBlocked, Record: rec}
	}
	if rec.IsTrusted {
		// Already approved but not (or no longer) the baseline. Stable match,
		// no further mutation.
		return Outcome{Kind: KindMatch, Record: rec}
	}

	attempts, blocked, err := e.ledger.IncrementAttempts(ctx, rec.ID, e.threshold)
	if errors.Is(err, repository.ErrNotFound) {
		// The record stopped being pending between the lookup and the
		// increment: a concurrent request blocked it, or the user resolved it.
		return e.reclassify(ctx, rec)
	}
	if err != nil {
		return Outcome{Kind: KindError, Err: err}
	}

	rec.UnverifiedAttempts = attempts
	if blocked {
		rec.IsBlocked = true
		return Outcome{Kind: KindBlocked, Record: rec}
	}
	return Outcome{Kind: KindSuspicious, Record: rec}
}

// reclassify re-reads a record whose pending state was lost to a concurrent
// update and maps its final state to an outcome.
func (e *Engine) reclassify(ctx context.Context, rec *models.SuspiciousLogin) Outcome {
	fresh, err := e.ledger.GetByID(ctx, rec.ID)
	if err != nil {
		return Outcome{Kind: KindError, Err: err}
	}
	if fresh.IsBlocked {
		return Outcome{Kind: KindBlocked, Record: fresh}
	}
	if fresh.IsTrusted {
		return Outcome{Kind: KindMatch, Record: fresh}
	}
	return Outcome{Kind: KindError, Err: errors.New("suspicious login record in unexpected state")}
}

// recordMismatch creates a ledger entry for a never-before-seen fingerprint.
// The reported diff is against the baseline, not against any prior ledger
// record.
func (e *Engine) recordMismatch(ctx context.Context, user *models.User, baseline *models.TrustBaseline, current fingerprint.Fingerprint) Outcome {
	rec := &models.SuspiciousLogin{
		UserID:      user.ID,
		Email:       user.Email,
		Fingerprint: current,
	}
	if err := e.ledger.Create(ctx, rec); err != nil {
		return Outcome{Kind: KindError, Err: err}
	}

	return Outcome{
		Kind:             KindMismatch,
		MismatchedFields: fingerprint.Diff(baseline.Fingerprint, current),
		Record:           rec,
	}
}
