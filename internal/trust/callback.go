package trust

import (
	"context"
	"errors"

	"contextguard/internal/models"
	"contextguard/internal/repository"

	"github.com/google/uuid"
)

var (
	// ErrRecordNotFound indicates the referenced ledger record does not exist.
	ErrRecordNotFound = errors.New("suspicious login record not found")
	// ErrTampered indicates the email in the callback does not match the
	// record, i.e. a guessed or altered link.
	ErrTampered = errors.New("verification link does not match record")
)

// Verifier processes the user's response to a login-verification email. It
// exclusively owns ledger promotion and baseline overwrite.
type Verifier struct {
	ledger    repository.SuspiciousLoginRepository
	baselines repository.TrustBaselineRepository
}

func NewVerifier(ledger repository.SuspiciousLoginRepository, baselines repository.TrustBaselineRepository) *Verifier {
	return &Verifier{
		ledger:    ledger,
		baselines: baselines,
	}
}

// authorize loads the record and checks the email against it. The check is an
// explicit predicate rather than part of the lookup query so that a missing
// record and a tampered link stay distinguishable.
func (v *Verifier) authorize(ctx context.Context, recordID uuid.UUID, email string) (*models.SuspiciousLogin, error) {
	rec, err := v.ledger.GetByID(ctx, recordID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if rec.Email != email {
		return nil, ErrTampered
	}
	return rec, nil
}

// Approve marks the record trusted and promotes its fingerprint to the user's
// new baseline. Calling it again for the same record is a no-op state-wise.
func (v *Verifier) Approve(ctx context.Context, recordID uuid.UUID, email string) (*models.SuspiciousLogin, error) {
	rec, err := v.authorize(ctx, recordID, email)
	if err != nil {
		return nil, err
	}

	if err := v.ledger.SetTrusted(ctx, rec.ID); err != nil {
		return nil, err
	}
	rec.IsTrusted = true
	rec.IsBlocked = false

	if err := v.baselines.Upsert(ctx, rec.UserID, rec.Fingerprint); err != nil {
		return nil, err
	}

	return rec, nil
}

// Block marks the record permanently blocked. Idempotent.
func (v *Verifier) Block(ctx context.Context, recordID uuid.UUID, email string) (*models.SuspiciousLogin, error) {
	rec, err := v.authorize(ctx, recordID, email)
	if err != nil {
		return nil, err
	}

	if err := v.ledger.SetBlocked(ctx, rec.ID); err != nil {
		return nil, err
	}
	rec.IsBlocked = true
	rec.IsTrusted = false

	return rec, nil
}
