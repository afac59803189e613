package postgres

import (
	"context"
	"database/sql"

	"contextguard/internal/fingerprint"
	"contextguard/internal/models"
	"contextguard/internal/repository"

	"github.com/google/uuid"
)

type trustBaselineRepository struct {
	repository.BaseRepository
}

func NewTrustBaselineRepository(db *sql.DB) repository.TrustBaselineRepository {
	return &trustBaselineRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *trustBaselineRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.TrustBaseline, error) {
	baseline := &models.TrustBaseline{}
	query := `
		SELECT id, user_id, ip, country, city, browser, platform, os, device, device_type,
		       created_at, updated_at
		FROM trust_baselines
		WHERE user_id = $1`

	err := r.DB().QueryRowContext(ctx, query, userID).Scan(
		&baseline.ID,
		&baseline.UserID,
		&baseline.Fingerprint.IP,
		&baseline.Fingerprint.Country,
		&baseline.Fingerprint.City,
		&baseline.Fingerprint.Browser,
		&baseline.Fingerprint.Platform,
		&baseline.Fingerprint.OS,
		&baseline.Fingerprint.Device,
		&baseline.Fingerprint.DeviceType,
		&baseline.CreatedAt,
		&baseline.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return baseline, nil
}

func (r *trustBaselineRepository) Upsert(ctx context.Context, userID uuid.UUID, fp fingerprint.Fingerprint) error {
	query := `
		INSERT INTO trust_baselines (
			id, user_id, ip, country, city, browser, platform, os, device, device_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id)
		DO UPDATE SET
			ip = EXCLUDED.ip,
			country = EXCLUDED.country,
			city = EXCLUDED.city,
			browser = EXCLUDED.browser,
			platform = EXCLUDED.platform,
			os = EXCLUDED.os,
			device = EXCLUDED.device,
			device_type = EXCLUDED.device_type,
			updated_at = CURRENT_TIMESTAMP`

	_, err := r.DB().ExecContext(ctx, query,
		uuid.New(), userID,
		fp.IP, fp.Country, fp.City, fp.Browser, fp.Platform, fp.OS, fp.Device, fp.DeviceType,
	)
	return err
}
