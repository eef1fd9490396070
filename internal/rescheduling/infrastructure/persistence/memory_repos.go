package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	"github.com/google/uuid"
)

// MemoryRequestRepository is the in-memory domain.RequestRepository for local
// mode and tests. The idempotency check happens under the mutex, matching the
// atomicity the unique index gives the postgres repo.
type MemoryRequestRepository struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*domain.ReschedulingRequest
}

// NewMemoryRequestRepository creates the repository.
func NewMemoryRequestRepository() *MemoryRequestRepository {
	return &MemoryRequestRepository{
		requests: make(map[uuid.UUID]*domain.ReschedulingRequest),
	}
}

// Create inserts the request unless one with the same tenant and idempotency
// key already exists.
func (r *MemoryRequestRepository) Create(_ context.Context, request *domain.ReschedulingRequest) (*domain.ReschedulingRequest, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.requests {
		if existing.TenantID() == request.TenantID() && existing.IdempotencyKey() == request.IdempotencyKey() {
			return existing, false, nil
		}
	}
	r.requests[request.ID()] = request
	return request, true, nil
}

// FindByID loads a request scoped to its tenant.
func (r *MemoryRequestRepository) FindByID(_ context.Context, id, tenantID uuid.UUID) (*domain.ReschedulingRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, ok := r.requests[id]
	if !ok || request.TenantID() != tenantID {
		return nil, domain.ErrRequestNotFound
	}
	return request, nil
}

// FindByWebhookEventID deduplicates webhook deliveries.
func (r *MemoryRequestRepository) FindByWebhookEventID(_ context.Context, tenantID uuid.UUID, webhookEventID string) (*domain.ReschedulingRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, request := range r.requests {
		if request.TenantID() == tenantID && request.WebhookEventID() == webhookEventID {
			return request, nil
		}
	}
	return nil, domain.ErrRequestNotFound
}

// Save stores the request.
func (r *MemoryRequestRepository) Save(_ context.Context, request *domain.ReschedulingRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[request.ID()] = request
	return nil
}

// FindUnresolvedOlderThan returns non-terminal requests created before the
// cutoff, oldest first.
func (r *MemoryRequestRepository) FindUnresolvedOlderThan(_ context.Context, cutoff time.Time) ([]*domain.ReschedulingRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []*domain.ReschedulingRequest
	for _, request := range r.requests {
		if !request.Status().IsTerminal() && request.CreatedAt().Before(cutoff) {
			stale = append(stale, request)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].CreatedAt().Before(stale[j].CreatedAt())
	})
	return stale, nil
}

// FindAwaitingResponseOlderThan returns pending confirmation-stage requests
// whose last outbound offer predates the cutoff, oldest first.
func (r *MemoryRequestRepository) FindAwaitingResponseOlderThan(_ context.Context, cutoff time.Time) ([]*domain.ReschedulingRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*domain.ReschedulingRequest
	for _, request := range r.requests {
		if request.Status() == domain.StatusPending &&
			request.WorkflowStage() == domain.StageConfirmation &&
			request.ConfirmationSent() &&
			request.UpdatedAt().Before(cutoff) {
			due = append(due, request)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].UpdatedAt().Before(due[j].UpdatedAt())
	})
	return due, nil
}

// MemoryContactRepository is the in-memory domain.ContactRepository.
type MemoryContactRepository struct {
	mu       sync.RWMutex
	contacts map[uuid.UUID]*domain.Contact
}

// NewMemoryContactRepository creates the repository.
func NewMemoryContactRepository() *MemoryContactRepository {
	return &MemoryContactRepository{
		contacts: make(map[uuid.UUID]*domain.Contact),
	}
}

// FindByID loads a contact scoped to its tenant.
func (r *MemoryContactRepository) FindByID(_ context.Context, id, tenantID uuid.UUID) (*domain.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	contact, ok := r.contacts[id]
	if !ok || contact.TenantID != tenantID {
		return nil, domain.ErrContactNotFound
	}
	return contact, nil
}

// Save stores the contact.
func (r *MemoryContactRepository) Save(_ context.Context, contact *domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[contact.ID()] = contact
	return nil
}

// MemoryTenantRepository is the in-memory domain.TenantConfigRepository.
type MemoryTenantRepository struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*domain.TenantConfig
}

// NewMemoryTenantRepository creates the repository.
func NewMemoryTenantRepository() *MemoryTenantRepository {
	return &MemoryTenantRepository{
		tenants: make(map[uuid.UUID]*domain.TenantConfig),
	}
}

// Put registers a tenant configuration.
func (r *MemoryTenantRepository) Put(tenant *domain.TenantConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[tenant.ID] = tenant
}

// FindByID loads a tenant's configuration.
func (r *MemoryTenantRepository) FindByID(_ context.Context, tenantID uuid.UUID) (*domain.TenantConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tenant, ok := r.tenants[tenantID]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return tenant, nil
}

// MemoryCallLogRepository is the in-memory domain.CallLogRepository.
type MemoryCallLogRepository struct {
	mu   sync.RWMutex
	logs []*domain.CallLog
}

// NewMemoryCallLogRepository creates the repository.
func NewMemoryCallLogRepository() *MemoryCallLogRepository {
	return &MemoryCallLogRepository{}
}

// Append stores a call log entry.
func (r *MemoryCallLogRepository) Append(_ context.Context, log *domain.CallLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return nil
}

// ListByContact returns the most recent entries for a contact, newest first.
func (r *MemoryCallLogRepository) ListByContact(_ context.Context, contactID, tenantID uuid.UUID, limit int) ([]*domain.CallLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var logs []*domain.CallLog
	for _, log := range r.logs {
		if log.ContactID == contactID && log.TenantID == tenantID {
			logs = append(logs, log)
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].OccurredAt.After(logs[j].OccurredAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
