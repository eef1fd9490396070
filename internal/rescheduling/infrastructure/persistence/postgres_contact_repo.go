package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	responsiveness "github.com/caniken03/vioconcierge/internal/responsiveness/domain"
	sharedDomain "github.com/caniken03/vioconcierge/internal/shared/domain"
	sharedPersistence "github.com/caniken03/vioconcierge/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresContactRepository implements domain.ContactRepository using PostgreSQL.
type PostgresContactRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresContactRepository creates the repository.
func NewPostgresContactRepository(pool *pgxpool.Pool) *PostgresContactRepository {
	return &PostgresContactRepository{pool: pool}
}

// FindByID loads a contact scoped to its tenant.
func (r *PostgresContactRepository) FindByID(ctx context.Context, id, tenantID uuid.UUID) (*domain.Contact, error) {
	execer := sharedPersistence.Executor(ctx, r.pool)
	query := `
		SELECT id, created_at, updated_at, tenant_id, name, email, phone,
		       preferred_channel, timezone, appointment_time, appointment_type,
		       appointment_status, appointment_duration, no_show_count, stats
		FROM contacts
		WHERE id = $1 AND tenant_id = $2
	`

	contact := &domain.Contact{}
	var (
		entityID  uuid.UUID
		createdAt time.Time
		updatedAt time.Time
		statsJSON []byte
	)
	err := execer.QueryRow(ctx, query, id, tenantID).Scan(
		&entityID,
		&createdAt,
		&updatedAt,
		&contact.TenantID,
		&contact.Name,
		&contact.Email,
		&contact.Phone,
		&contact.PreferredChannel,
		&contact.Timezone,
		&contact.AppointmentTime,
		&contact.AppointmentType,
		&contact.AppointmentStatus,
		&contact.AppointmentDuration,
		&contact.NoShowCount,
		&statsJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrContactNotFound
	}
	if err != nil {
		return nil, err
	}

	contact.BaseEntity = sharedDomain.RehydrateBaseEntity(entityID, createdAt, updatedAt)
	if len(statsJSON) > 0 {
		var stats responsiveness.ContactStats
		if err := json.Unmarshal(statsJSON, &stats); err != nil {
			return nil, fmt.Errorf("unmarshal contact stats: %w", err)
		}
		contact.Stats = stats
	}
	return contact, nil
}

// Save upserts the contact.
func (r *PostgresContactRepository) Save(ctx context.Context, contact *domain.Contact) error {
	execer := sharedPersistence.Executor(ctx, r.pool)

	statsJSON, err := json.Marshal(contact.Stats)
	if err != nil {
		return fmt.Errorf("marshal contact stats: %w", err)
	}

	query := `
		INSERT INTO contacts (
			id, created_at, updated_at, tenant_id, name, email, phone,
			preferred_channel, timezone, appointment_time, appointment_type,
			appointment_status, appointment_duration, no_show_count, stats
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			preferred_channel = EXCLUDED.preferred_channel,
			timezone = EXCLUDED.timezone,
			appointment_time = EXCLUDED.appointment_time,
			appointment_type = EXCLUDED.appointment_type,
			appointment_status = EXCLUDED.appointment_status,
			appointment_duration = EXCLUDED.appointment_duration,
			no_show_count = EXCLUDED.no_show_count,
			stats = EXCLUDED.stats
	`
	_, err = execer.Exec(ctx, query,
		contact.ID(),
		contact.CreatedAt(),
		contact.UpdatedAt(),
		contact.TenantID,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.PreferredChannel,
		contact.Timezone,
		contact.AppointmentTime,
		contact.AppointmentType,
		contact.AppointmentStatus,
		contact.AppointmentDuration,
		contact.NoShowCount,
		statsJSON,
	)
	return err
}
