package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	calendar "github.com/caniken03/vioconcierge/internal/calendar/domain"
	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	sharedPersistence "github.com/caniken03/vioconcierge/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTenantRepository implements domain.TenantConfigRepository using
// PostgreSQL. Tenant configuration is read-mostly; provisioning writes happen
// out of band.
type PostgresTenantRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTenantRepository creates the repository.
func NewPostgresTenantRepository(pool *pgxpool.Pool) *PostgresTenantRepository {
	return &PostgresTenantRepository{pool: pool}
}

// FindByID loads a tenant's configuration.
func (r *PostgresTenantRepository) FindByID(ctx context.Context, tenantID uuid.UUID) (*domain.TenantConfig, error) {
	execer := sharedPersistence.Executor(ctx, r.pool)
	query := `
		SELECT id, business_name, category, timezone, business_hours,
		       calendar_credential, auto_confirm, default_duration_minutes
		FROM tenants
		WHERE id = $1
	`

	tenant := &domain.TenantConfig{}
	var (
		hoursJSON []byte
		credJSON  []byte
	)
	err := execer.QueryRow(ctx, query, tenantID).Scan(
		&tenant.ID,
		&tenant.BusinessName,
		&tenant.Category,
		&tenant.Timezone,
		&hoursJSON,
		&credJSON,
		&tenant.AutoConfirm,
		&tenant.DefaultDurationMinutes,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(hoursJSON) > 0 {
		var hours availability.BusinessHours
		if err := json.Unmarshal(hoursJSON, &hours); err != nil {
			return nil, fmt.Errorf("unmarshal business hours: %w", err)
		}
		tenant.Hours = &hours
	}
	if len(credJSON) > 0 {
		var cred calendar.Credential
		if err := json.Unmarshal(credJSON, &cred); err != nil {
			return nil, fmt.Errorf("unmarshal calendar credential: %w", err)
		}
		tenant.Calendar = &cred
	}
	return tenant, nil
}
