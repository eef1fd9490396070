package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RequestRepository persists rescheduling requests. Create enforces the
// per-tenant idempotency-key uniqueness atomically: a concurrent duplicate
// resolves to the existing request.
type RequestRepository interface {
	// Create inserts the request. When a request with the same tenant and
	// idempotency key already exists, it returns that request and
	// created=false without inserting.
	Create(ctx context.Context, request *ReschedulingRequest) (existing *ReschedulingRequest, created bool, err error)

	FindByID(ctx context.Context, id, tenantID uuid.UUID) (*ReschedulingRequest, error)

	FindByWebhookEventID(ctx context.Context, tenantID uuid.UUID, webhookEventID string) (*ReschedulingRequest, error)

	Save(ctx context.Context, request *ReschedulingRequest) error

	// FindUnresolvedOlderThan returns non-terminal requests created before
	// the cutoff, for the expiry sweep.
	FindUnresolvedOlderThan(ctx context.Context, cutoff time.Time) ([]*ReschedulingRequest, error)

	// FindAwaitingResponseOlderThan returns pending confirmation-stage
	// requests whose offer went out but has not moved since the cutoff,
	// for the reminder sweep.
	FindAwaitingResponseOlderThan(ctx context.Context, cutoff time.Time) ([]*ReschedulingRequest, error)
}

// ContactRepository persists contacts.
type ContactRepository interface {
	FindByID(ctx context.Context, id, tenantID uuid.UUID) (*Contact, error)
	Save(ctx context.Context, contact *Contact) error
}

// TenantConfigRepository reads tenant configuration.
type TenantConfigRepository interface {
	FindByID(ctx context.Context, tenantID uuid.UUID) (*TenantConfig, error)
}

// CallLogRepository appends call logs. Entries are never updated or deleted.
type CallLogRepository interface {
	Append(ctx context.Context, log *CallLog) error
	ListByContact(ctx context.Context, contactID, tenantID uuid.UUID, limit int) ([]*CallLog, error)
}
