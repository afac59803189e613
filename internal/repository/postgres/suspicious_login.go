package postgres

import (
	"context"
	"database/sql"
	"time"

	"contextguard/internal/fingerprint"
	"contextguard/internal/models"
	"contextguard/internal/repository"

	"github.com/google/uuid"
)

type suspiciousLoginRepository struct {
	repository.BaseRepository
}

func NewSuspiciousLoginRepository(db *sql.DB) repository.SuspiciousLoginRepository {
	return &suspiciousLoginRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

const suspiciousLoginColumns = `
	id, user_id, email, ip, country, city, browser, platform, os, device, device_type,
	unverified_attempts, is_trusted, is_blocked, created_at`

func scanSuspiciousLogin(row *sql.Row) (*models.SuspiciousLogin, error) {
	rec := &models.SuspiciousLogin{}
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Email,
		&rec.Fingerprint.IP,
		&rec.Fingerprint.Country,
		&rec.Fingerprint.City,
		&rec.Fingerprint.Browser,
		&rec.Fingerprint.Platform,
		&rec.Fingerprint.OS,
		&rec.Fingerprint.Device,
		&rec.Fingerprint.DeviceType,
		&rec.UnverifiedAttempts,
		&rec.IsTrusted,
		&rec.IsBlocked,
		&rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *suspiciousLoginRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SuspiciousLogin, error) {
	query := `SELECT ` + suspiciousLoginColumns + ` FROM suspicious_logins WHERE id = $1`
	return scanSuspiciousLogin(r.DB().QueryRowContext(ctx, query, id))
}

func (r *suspiciousLoginRepository) GetByFingerprint(ctx context.Context, userID uuid.UUID, fp fingerprint.Fingerprint) (*models.SuspiciousLogin, error) {
	query := `
		SELECT ` + suspiciousLoginColumns + `
		FROM suspicious_logins
		WHERE user_id = $1
		AND ip = $2 AND country = $3 AND city = $4 AND browser = $5
		AND platform = $6 AND os = $7 AND device = $8 AND device_type = $9`

	return scanSuspiciousLogin(r.DB().QueryRowContext(ctx, query,
		userID, fp.IP, fp.Country, fp.City, fp.Browser, fp.Platform, fp.OS, fp.Device, fp.DeviceType))
}

func (r *suspiciousLoginRepository) Create(ctx context.Context, rec *models.SuspiciousLogin) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	query := `
		INSERT INTO suspicious_logins (
			id, user_id, email, ip, country, city, browser, platform, os, device, device_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING unverified_attempts, is_trusted, is_blocked, created_at`

	fp := rec.Fingerprint
	return r.DB().QueryRowContext(ctx, query,
		rec.ID, rec.UserID, rec.Email,
		fp.IP, fp.Country, fp.City, fp.Browser, fp.Platform, fp.OS, fp.Device, fp.DeviceType,
	).Scan(&rec.UnverifiedAttempts, &rec.IsTrusted, &rec.IsBlocked, &rec.CreatedAt)
}

// IncrementAttempts performs the increment and the threshold flip in one
// statement. Two concurrent sign-ins can never both read a stale count: the
// row update is serialized by the database and the blocked flag is computed
// from the post-increment value.
func (r *suspiciousLoginRepository) IncrementAttempts(ctx context.Context, id uuid.UUID, threshold int) (int, bool, error) {
	query := `
		UPDATE suspicious_logins
		SET unverified_attempts = unverified_attempts + 1,
		    is_blocked = unverified_attempts + 1 >= $2
		WHERE id = $1 AND is_trusted = false AND is_blocked = false
		RETURNING unverified_attempts, is_blocked`

	var attempts int
	var blocked bool
	err := r.DB().QueryRowContext(ctx, query, id, threshold).Scan(&attempts, &blocked)
	if err == sql.ErrNoRows {
		return 0, false, repository.ErrNotFound
	}
	if err != nil {
		return 0, false, err
	}
	return attempts, blocked, nil
}

func (r *suspiciousLoginRepository) SetTrusted(ctx context.Context, id uuid.UUID) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE suspicious_logins
		SET is_trusted = true, is_blocked = false
		WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

func (r *suspiciousLoginRepository) SetBlocked(ctx context.Context, id uuid.UUID) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE suspicious_logins
		SET is_blocked = true, is_trusted = false
		WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

func (r *suspiciousLoginRepository) PurgeStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := r.DB().ExecContext(ctx, `
		DELETE FROM suspicious_logins
		WHERE is_blocked = false AND is_trusted = false AND created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func requireRowAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
