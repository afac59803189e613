package postgres

import (
	"context"
	"database/sql"
	"time"

	"contextguard/internal/models"
	"contextguard/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type userRepository struct {
	repository.BaseRepository
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

const userColumns = `
	id, name, email, password, email_verified, last_login_at, last_failed_login,
	failed_login_attempts, deleted_at, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.EmailVerified,
		&user.LastLoginAt,
		&user.LastFailedLogin,
		&user.FailedLoginAttempts,
		&user.DeletedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	query := `
		INSERT INTO users (id, name, email, password)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := r.DB().QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.Password,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
		return repository.ErrEmailExists
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(r.DB().QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	return scanUser(r.DB().QueryRowContext(ctx, query, email))
}

func (r *userRepository) VerifyEmail(ctx context.Context, id uuid.UUID) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE users
		SET email_verified = true, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, lastLoginAt time.Time) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE users
		SET last_login_at = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND deleted_at IS NULL`, id, lastLoginAt)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

func (r *userRepository) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    last_failed_login = CURRENT_TIMESTAMP
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

func (r *userRepository) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = 0, last_failed_login = NULL
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}
