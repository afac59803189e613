package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"contextguard/internal/models"
	"contextguard/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type auditLogRepository struct {
	repository.BaseRepository
}

// NewAuditLogRepository creates a new PostgreSQL audit log repository
func NewAuditLogRepository(db *sql.DB) repository.AuditLogRepository {
	return &auditLogRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *auditLogRepository) Create(ctx context.Context, log *models.CreateAuditLogRequest) error {
	query := `
		INSERT INTO audit_logs (
			id, user_id, action, entity_type, entity_id,
			description, metadata, ip_address, user_agent, level,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	level := log.Level
	if level == "" {
		level = "info"
	}

	_, err := r.DB().ExecContext(ctx, query,
		uuid.New(),
		log.UserID,
		log.Action,
		log.EntityType,
		log.EntityID,
		log.Description,
		log.Metadata,
		log.IPAddress,
		log.UserAgent,
		level,
		time.Now(),
	)

	return err
}

func (r *auditLogRepository) GetByUserID(ctx context.Context, userID uuid.UUID, filter repository.AuditLogFilter) ([]models.AuditLog, error) {
	var conditions []string
	var params []interface{}

	query := `
		SELECT id, user_id, action, entity_type, entity_id,
			   description, metadata, ip_address, user_agent, level,
			   created_at
		FROM audit_logs`

	conditions = append(conditions, "user_id = $1")
	params = append(params, userID)
	paramCount := 2

	if len(filter.Actions) > 0 {
		conditions = append(conditions, fmt.Sprintf("action = ANY($%d)", paramCount))
		params = append(params, pq.Array(filter.Actions))
		paramCount++
	}

	if filter.CreatedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", paramCount))
		params = append(params, *filter.CreatedAfter)
		paramCount++
	}

	if filter.CreatedBefore != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", paramCount))
		params = append(params, *filter.CreatedBefore)
		paramCount++
	}

	query += " WHERE " + strings.Join(conditions, " AND ")

	if filter.OrderDesc {
		query += " ORDER BY created_at DESC"
	} else {
		query += " ORDER BY created_at ASC"
	}

	if filter.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", paramCount)
		params = append(params, *filter.Limit)
		paramCount++
	}

	if filter.Offset != nil {
		query += fmt.Sprintf(" OFFSET $%d", paramCount)
		params = append(params, *filter.Offset)
	}

	rows, err := r.DB().QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var log models.AuditLog
		if err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.Action,
			&log.EntityType,
			&log.EntityID,
			&log.Description,
			&log.Metadata,
			&log.IPAddress,
			&log.UserAgent,
			&log.Level,
			&log.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

func (r *auditLogRepository) CleanupOld(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	_, err := r.DB().ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	return err
}
