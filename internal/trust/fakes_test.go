package trust

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"contextguard/internal/fingerprint"
	"contextguard/internal/models"
	"contextguard/internal/repository"

	"github.com/google/uuid"
)

// fakeBase satisfies the base repository interface for in-memory fakes.
type fakeBase struct{}

func (fakeBase) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (fakeBase) DB() *sql.DB { return nil }

type fakeBaselineRepo struct {
	fakeBase
	mu        sync.Mutex
	baselines map[uuid.UUID]*models.TrustBaseline
	getErr    error
	upsertErr error
}

func newFakeBaselineRepo() *fakeBaselineRepo {
	return &fakeBaselineRepo{baselines: make(map[uuid.UUID]*models.TrustBaseline)}
}

func (r *fakeBaselineRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*models.TrustBaseline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	baseline, ok := r.baselines[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *baseline
	return &copied, nil
}

func (r *fakeBaselineRepo) Upsert(_ context.Context, userID uuid.UUID, fp fingerprint.Fingerprint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	existing, ok := r.baselines[userID]
	if ok {
		existing.Fingerprint = fp
		existing.UpdatedAt = time.Now()
		return nil
	}
	r.baselines[userID] = &models.TrustBaseline{
		ID:          uuid.New(),
		UserID:      userID,
		Fingerprint: fp,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	return nil
}

type fakeLedgerRepo struct {
	fakeBase
	mu           sync.Mutex
	records      map[uuid.UUID]*models.SuspiciousLogin
	getErr       error
	createErr    error
	incrementErr error
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{records: make(map[uuid.UUID]*models.SuspiciousLogin)}
}

func (r *fakeLedgerRepo) add(rec *models.SuspiciousLogin) *models.SuspiciousLogin {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()
	r.records[rec.ID] = rec
	return rec
}

func (r *fakeLedgerRepo) GetByID(_ context.Context, id uuid.UUID) (*models.SuspiciousLogin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (r *fakeLedgerRepo) GetByFingerprint(_ context.Context, userID uuid.UUID, fp fingerprint.Fingerprint) (*models.SuspiciousLogin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, rec := range r.records {
		if rec.UserID == userID && fingerprint.Equal(rec.Fingerprint, fp) {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeLedgerRepo) Create(_ context.Context, rec *models.SuspiciousLogin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()
	stored := *rec
	r.records[rec.ID] = &stored
	return nil
}

func (r *fakeLedgerRepo) IncrementAttempts(_ context.Context, id uuid.UUID, threshold int) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incrementErr != nil {
		return 0, false, r.incrementErr
	}
	rec, ok := r.records[id]
	if !ok || rec.IsTrusted || rec.IsBlocked {
		return 0, false, repository.ErrNotFound
	}
	rec.UnverifiedAttempts++
	if rec.UnverifiedAttempts >= threshold {
		rec.IsBlocked = true
	}
	return rec.UnverifiedAttempts, rec.IsBlocked, nil
}

func (r *fakeLedgerRepo) SetTrusted(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.IsTrusted = true
	rec.IsBlocked = false
	return nil
}

func (r *fakeLedgerRepo) SetBlocked(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.IsBlocked = true
	rec.IsTrusted = false
	return nil
}

func (r *fakeLedgerRepo) PurgeStale(_ context.Context, olderThan time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var purged int64
	for id, rec := range r.records {
		if !rec.IsBlocked && !rec.IsTrusted && rec.CreatedAt.Before(cutoff) {
			delete(r.records, id)
			purged++
		}
	}
	return purged, nil
}
