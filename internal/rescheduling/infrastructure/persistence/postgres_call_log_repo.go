package persistence

import (
	"context"
	"time"

	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	sharedDomain "github.com/caniken03/vioconcierge/internal/shared/domain"
	sharedPersistence "github.com/caniken03/vioconcierge/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCallLogRepository implements domain.CallLogRepository using
// PostgreSQL. The table is append-only.
type PostgresCallLogRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCallLogRepository creates the repository.
func NewPostgresCallLogRepository(pool *pgxpool.Pool) *PostgresCallLogRepository {
	return &PostgresCallLogRepository{pool: pool}
}

// Append inserts a call log entry.
func (r *PostgresCallLogRepository) Append(ctx context.Context, log *domain.CallLog) error {
	execer := sharedPersistence.Executor(ctx, r.pool)
	query := `
		INSERT INTO call_logs (
			id, created_at, updated_at, tenant_id, contact_id, call_session_id,
			outcome, duration_seconds, occurred_at, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := execer.Exec(ctx, query,
		log.ID(),
		log.CreatedAt(),
		log.UpdatedAt(),
		log.TenantID,
		log.ContactID,
		log.CallSessionID,
		log.Outcome,
		log.DurationSeconds,
		log.OccurredAt,
		log.Notes,
	)
	return err
}

// ListByContact returns the most recent entries for a contact, newest first.
func (r *PostgresCallLogRepository) ListByContact(ctx context.Context, contactID, tenantID uuid.UUID, limit int) ([]*domain.CallLog, error) {
	execer := sharedPersistence.Executor(ctx, r.pool)
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, created_at, updated_at, tenant_id, contact_id, call_session_id,
		       outcome, duration_seconds, occurred_at, notes
		FROM call_logs
		WHERE contact_id = $1 AND tenant_id = $2
		ORDER BY occurred_at DESC
		LIMIT $3
	`
	rows, err := execer.Query(ctx, query, contactID, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.CallLog
	for rows.Next() {
		log := &domain.CallLog{}
		var (
			id        uuid.UUID
			createdAt time.Time
			updatedAt time.Time
		)
		err := rows.Scan(
			&id,
			&createdAt,
			&updatedAt,
			&log.TenantID,
			&log.ContactID,
			&log.CallSessionID,
			&log.Outcome,
			&log.DurationSeconds,
			&log.OccurredAt,
			&log.Notes,
		)
		if err != nil {
			return nil, err
		}
		log.BaseEntity = sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
