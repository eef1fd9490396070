// Package persistence provides the pgx-backed and in-memory repositories for
// the rescheduling context.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	sharedPersistence "github.com/caniken03/vioconcierge/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestColumns = `
	id, created_at, updated_at, version, tenant_id, contact_id, call_session_id,
	idempotency_key, webhook_event_id, original_appointment_time, original_appointment_type,
	reschedule_reason, customer_preference, urgency_level, proposed_times,
	status, workflow_stage, available_slots, final_selected_time,
	calendar_updated, confirmation_sent, response_token, processed_by, processed_at, response_time_hours
`

// PostgresRequestRepository implements domain.RequestRepository using PostgreSQL.
type PostgresRequestRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRequestRepository creates the repository.
func NewPostgresRequestRepository(pool *pgxpool.Pool) *PostgresRequestRepository {
	return &PostgresRequestRepository{pool: pool}
}

// Create inserts the request. The unique index on (tenant_id, idempotency_key)
// makes the dedup atomic under concurrency: the losing insert reads back the
// winner instead of erroring.
func (r *PostgresRequestRepository) Create(ctx context.Context, request *domain.ReschedulingRequest) (*domain.ReschedulingRequest, bool, error) {
	execer := sharedPersistence.Executor(ctx, r.pool)

	row, err := requestToRow(request)
	if err != nil {
		return nil, false, err
	}

	query := `
		INSERT INTO rescheduling_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (tenant_id, idempotency_key) DO NOTHING
	`
	tag, err := execer.Exec(ctx, query, row...)
	if err != nil {
		return nil, false, fmt.Errorf("insert rescheduling request: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return request, true, nil
	}

	existing, err := r.findByIdempotencyKey(ctx, request.TenantID(), request.IdempotencyKey())
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// FindByID loads a request scoped to its tenant.
func (r *PostgresRequestRepository) FindByID(ctx context.Context, id, tenantID uuid.UUID) (*domain.ReschedulingRequest, error) {
	execer := sharedPersistence.Executor(ctx, r.pool)
	query := `SELECT ` + requestColumns + ` FROM rescheduling_requests WHERE id = $1 AND tenant_id = $2`
	return scanRequest(execer.QueryRow(ctx, query, id, tenantID))
}

// FindByWebhookEventID deduplicates webhook deliveries.
func (r *PostgresRequestRepository) FindByWebhookEventID(ctx context.Context, tenantID uuid.UUID, webhookEventID string) (*domain.ReschedulingRequest, error) {
	execer := sharedPersistence.Executor(ctx, r.pool)
	query := `SELECT ` + requestColumns + ` FROM rescheduling_requests WHERE tenant_id = $1 AND webhook_event_id = $2`
	return scanRequest(execer.QueryRow(ctx, query, tenantID, webhookEventID))
}

func (r *PostgresRequestRepository) findByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*domain.ReschedulingRequest, error) {
	execer := sharedPersistence.Executor(ctx, r.pool)
	query := `SELECT ` + requestColumns + ` FROM rescheduling_requests WHERE tenant_id = $1 AND idempotency_key = $2`
	return scanRequest(execer.QueryRow(ctx, query, tenantID, key))
}

// Save updates a request with optimistic locking on version.
func (r *PostgresRequestRepository) Save(ctx context.Context, request *domain.ReschedulingRequest) error {
	execer := sharedPersistence.Executor(ctx, r.pool)

	slotsJSON, err := json.Marshal(request.AvailableSlots())
	if err != nil {
		return fmt.Errorf("marshal slots: %w", err)
	}
	proposedJSON, err := json.Marshal(request.ProposedTimes())
	if err != nil {
		return fmt.Errorf("marshal proposed times: %w", err)
	}

	query := `
		UPDATE rescheduling_requests
		SET updated_at = $3, version = version + 1,
		    proposed_times = $4, status = $5, workflow_stage = $6,
		    available_slots = $7, final_selected_time = $8,
		    calendar_updated = $9, confirmation_sent = $10, response_token = $11,
		    processed_by = $12, processed_at = $13, response_time_hours = $14
		WHERE id = $1 AND tenant_id = $2
	`
	tag, err := execer.Exec(ctx, query,
		request.ID(),
		request.TenantID(),
		request.UpdatedAt(),
		proposedJSON,
		request.Status(),
		request.WorkflowStage(),
		slotsJSON,
		request.FinalSelectedTime(),
		request.CalendarUpdated(),
		request.ConfirmationSent(),
		request.ResponseToken(),
		request.ProcessedBy(),
		request.ProcessedAt(),
		request.ResponseTimeHours(),
	)
	if err != nil {
		return fmt.Errorf("update rescheduling request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

// FindUnresolvedOlderThan returns non-terminal requests created before the
// cutoff, oldest first.
func (r *PostgresRequestRepository) FindUnresolvedOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.ReschedulingRequest, error) {
	execer := sharedPersistence.Executor(ctx, r.pool)
	query := `
		SELECT ` + requestColumns + `
		FROM rescheduling_requests
		WHERE status NOT IN ('completed', 'rejected', 'expired')
		  AND created_at < $1
		ORDER BY created_at
	`
	rows, err := execer.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.ReschedulingRequest
	for rows.Next() {
		request, err := scanRequestRow(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

// FindAwaitingResponseOlderThan returns pending confirmation-stage requests
// whose last outbound offer predates the cutoff, oldest first. A reminder
// touches updated_at, so each request surfaces at most once per interval.
func (r *PostgresRequestRepository) FindAwaitingResponseOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.ReschedulingRequest, error) {
	execer := sharedPersistence.Executor(ctx, r.pool)
	query := `
		SELECT ` + requestColumns + `
		FROM rescheduling_requests
		WHERE status = 'pending'
		  AND workflow_stage = 'confirmation'
		  AND confirmation_sent
		  AND updated_at < $1
		ORDER BY updated_at
	`
	rows, err := execer.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.ReschedulingRequest
	for rows.Next() {
		request, err := scanRequestRow(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func requestToRow(request *domain.ReschedulingRequest) ([]any, error) {
	slotsJSON, err := json.Marshal(request.AvailableSlots())
	if err != nil {
		return nil, fmt.Errorf("marshal slots: %w", err)
	}
	proposedJSON, err := json.Marshal(request.ProposedTimes())
	if err != nil {
		return nil, fmt.Errorf("marshal proposed times: %w", err)
	}

	return []any{
		request.ID(),
		request.CreatedAt(),
		request.UpdatedAt(),
		request.Version(),
		request.TenantID(),
		request.ContactID(),
		request.CallSessionID(),
		request.IdempotencyKey(),
		request.WebhookEventID(),
		request.OriginalAppointmentTime(),
		request.OriginalAppointmentType(),
		request.RescheduleReason(),
		request.CustomerPreference(),
		request.UrgencyLevel(),
		proposedJSON,
		request.Status(),
		request.WorkflowStage(),
		slotsJSON,
		request.FinalSelectedTime(),
		request.CalendarUpdated(),
		request.ConfirmationSent(),
		request.ResponseToken(),
		request.ProcessedBy(),
		request.ProcessedAt(),
		request.ResponseTimeHours(),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row pgx.Row) (*domain.ReschedulingRequest, error) {
	request, err := scanRequestRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRequestNotFound
	}
	return request, err
}

func scanRequestRow(row rowScanner) (*domain.ReschedulingRequest, error) {
	var (
		input        domain.RehydrateInput
		proposedJSON []byte
		slotsJSON    []byte
	)
	err := row.Scan(
		&input.ID,
		&input.CreatedAt,
		&input.UpdatedAt,
		&input.Version,
		&input.TenantID,
		&input.ContactID,
		&input.CallSessionID,
		&input.IdempotencyKey,
		&input.WebhookEventID,
		&input.OriginalAppointmentTime,
		&input.OriginalAppointmentType,
		&input.RescheduleReason,
		&input.CustomerPreference,
		&input.UrgencyLevel,
		&proposedJSON,
		&input.Status,
		&input.WorkflowStage,
		&slotsJSON,
		&input.FinalSelectedTime,
		&input.CalendarUpdated,
		&input.ConfirmationSent,
		&input.ResponseToken,
		&input.ProcessedBy,
		&input.ProcessedAt,
		&input.ResponseTimeHours,
	)
	if err != nil {
		return nil, err
	}

	if len(proposedJSON) > 0 {
		if err := json.Unmarshal(proposedJSON, &input.ProposedTimes); err != nil {
			return nil, fmt.Errorf("unmarshal proposed times: %w", err)
		}
	}
	if len(slotsJSON) > 0 {
		var slots []availability.Slot
		if err := json.Unmarshal(slotsJSON, &slots); err != nil {
			return nil, fmt.Errorf("unmarshal slots: %w", err)
		}
		input.AvailableSlots = slots
	}

	return domain.RehydrateReschedulingRequest(input), nil
}
