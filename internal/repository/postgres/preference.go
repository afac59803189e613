package postgres

import (
	"context"
	"database/sql"

	"contextguard/internal/models"
	"contextguard/internal/repository"

	"github.com/google/uuid"
)

type preferenceRepository struct {
	repository.BaseRepository
}

func NewPreferenceRepository(db *sql.DB) repository.PreferenceRepository {
	return &preferenceRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *preferenceRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Preference, error) {
	pref := &models.Preference{}
	query := `
		SELECT user_id, enable_context_based_auth, updated_at
		FROM preferences
		WHERE user_id = $1`

	err := r.DB().QueryRowContext(ctx, query, userID).Scan(
		&pref.UserID,
		&pref.EnableContextBasedAuth,
		&pref.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return pref, nil
}

func (r *preferenceRepository) Upsert(ctx context.Context, userID uuid.UUID, enableContextBasedAuth bool) error {
	query := `
		INSERT INTO preferences (user_id, enable_context_based_auth)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET
			enable_context_based_auth = EXCLUDED.enable_context_based_auth,
			updated_at = CURRENT_TIMESTAMP`

	_, err := r.DB().ExecContext(ctx, query, userID, enableContextBasedAuth)
	return err
}
