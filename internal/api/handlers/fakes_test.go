package handlers

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"contextguard/internal/fingerprint"
	"contextguard/internal/models"
	"contextguard/internal/repository"

	"github.com/google/uuid"
)

type fakeBase struct{}

func (fakeBase) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (fakeBase) DB() *sql.DB { return nil }

type fakeUserRepo struct {
	fakeBase
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) VerifyEmail(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.EmailVerified = true
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, lastLoginAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.LastLoginAt = &lastLoginAt
	return nil
}

func (r *fakeUserRepo) IncrementFailedAttempts(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.FailedLoginAttempts++
	now := time.Now()
	user.LastFailedLogin = &now
	return nil
}

func (r *fakeUserRepo) ResetFailedAttempts(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.FailedLoginAttempts = 0
	user.LastFailedLogin = nil
	return nil
}

type fakePreferenceRepo struct {
	fakeBase
	mu    sync.Mutex
	prefs map[uuid.UUID]*models.Preference
}

func newFakePreferenceRepo() *fakePreferenceRepo {
	return &fakePreferenceRepo{prefs: make(map[uuid.UUID]*models.Preference)}
}

func (r *fakePreferenceRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Preference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pref, ok := r.prefs[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *pref
	return &copied, nil
}

func (r *fakePreferenceRepo) Upsert(_ context.Context, userID uuid.UUID, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[userID] = &models.Preference{
		UserID:                 userID,
		EnableContextBasedAuth: enabled,
		UpdatedAt:              time.Now(),
	}
	return nil
}

type fakeLoginAttemptRepo struct {
	mu       sync.Mutex
	attempts []models.LoginAttempt
}

func newFakeLoginAttemptRepo() *fakeLoginAttemptRepo {
	return &fakeLoginAttemptRepo{}
}

func (r *fakeLoginAttemptRepo) Create(_ context.Context, userID uuid.UUID, successful bool, ipAddress string, createdAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, models.LoginAttempt{
		ID:        uuid.New(),
		UserID:    userID,
		Success:   successful,
		IP:        ipAddress,
		CreatedAt: createdAt,
	})
	return nil
}

func (r *fakeLoginAttemptRepo) GetRecentFailures(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, attempt := range r.attempts {
		if attempt.UserID == userID && !attempt.Success && !attempt.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeLoginAttemptRepo) ClearAttempts(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.attempts[:0]
	for _, attempt := range r.attempts {
		if attempt.UserID != userID {
			kept = append(kept, attempt)
		}
	}
	r.attempts = kept
	return nil
}

type fakeEmailVerifyRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.EmailVerification
}

func newFakeEmailVerifyRepo() *fakeEmailVerifyRepo {
	return &fakeEmailVerifyRepo{tokens: make(map[string]*models.EmailVerification)}
}

func (r *fakeEmailVerifyRepo) Create(_ context.Context, userID uuid.UUID) (*models.EmailVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	verification := &models.EmailVerification{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(repository.TokenExpirationHours * time.Hour),
		CreatedAt: time.Now(),
	}
	r.tokens[verification.Token] = verification
	return verification, nil
}

func (r *fakeEmailVerifyRepo) Verify(_ context.Context, token string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	verification, ok := r.tokens[token]
	if !ok || verification.VerifiedAt != nil {
		return uuid.Nil, repository.ErrTokenInvalid
	}
	if time.Now().After(verification.ExpiresAt) {
		return uuid.Nil, repository.ErrTokenExpired
	}
	now := time.Now()
	verification.VerifiedAt = &now
	return verification.UserID, nil
}

type fakeBaselineRepo struct {
	fakeBase
	mu        sync.Mutex
	baselines map[uuid.UUID]*models.TrustBaseline
}

func newFakeBaselineRepo() *fakeBaselineRepo {
	return &fakeBaselineRepo{baselines: make(map[uuid.UUID]*models.TrustBaseline)}
}

func (r *fakeBaselineRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*models.TrustBaseline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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
	if existing, ok := r.baselines[userID]; ok {
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
	mu      sync.Mutex
	records map[uuid.UUID]*models.SuspiciousLogin
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

type fakeAuditRepo struct {
	fakeBase
	mu      sync.Mutex
	entries []models.CreateAuditLogRequest
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *models.CreateAuditLogRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) GetByUserID(_ context.Context, _ uuid.UUID, _ repository.AuditLogFilter) ([]models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) CleanupOld(_ context.Context, _ time.Duration) error { return nil }

func (r *fakeAuditRepo) actions() []models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]models.AuditAction, 0, len(r.entries))
	for _, entry := range r.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type fakeRefreshTokenRepo struct {
	fakeBase
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[string]*models.RefreshToken)}
}

func (r *fakeRefreshTokenRepo) Create(_ context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (r *fakeRefreshTokenRepo) GetByToken(_ context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.tokens[token]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	if time.Now().After(rt.ExpiresAt) {
		return nil, repository.ErrTokenExpired
	}
	copied := *rt
	return &copied, nil
}

func (r *fakeRefreshTokenRepo) DeleteByToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *fakeRefreshTokenRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, rt := range r.tokens {
		if rt.UserID == userID {
			delete(r.tokens, token)
		}
	}
	return nil
}

func (r *fakeRefreshTokenRepo) DeleteExpired(_ context.Context) error { return nil }

type sentEmail struct {
	to          string
	approveLink string
	blockLink   string
}

type fakeEmailSender struct {
	mu            sync.Mutex
	verifications []sentEmail
	loginEmails   []sentEmail
	sendErr       error
}

func (s *fakeEmailSender) SendVerificationEmail(to, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.verifications = append(s.verifications, sentEmail{to: to})
	return nil
}

func (s *fakeEmailSender) SendLoginVerificationEmail(to, _, approveLink, blockLink string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.loginEmails = append(s.loginEmails, sentEmail{to: to, approveLink: approveLink, blockLink: blockLink})
	return nil
}
