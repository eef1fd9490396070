package domain

import (
	"time"

	sharedDomain "github.com/caniken03/vioconcierge/internal/shared/domain"
	"github.com/google/uuid"
)

// CallLog is one append-only record of a contact attempt.
type CallLog struct {
	sharedDomain.BaseEntity

	TenantID        uuid.UUID
	ContactID       uuid.UUID
	CallSessionID   string
	Outcome         CallOutcome
	DurationSeconds int
	OccurredAt      time.Time
	Notes           string
}

// NewCallLog creates a call log entry.
func NewCallLog(tenantID, contactID uuid.UUID, callSessionID string, outcome CallOutcome, durationSeconds int, occurredAt time.Time, notes string) *CallLog {
	return &CallLog{
		BaseEntity:      sharedDomain.NewBaseEntity(),
		TenantID:        tenantID,
		ContactID:       contactID,
		CallSessionID:   callSessionID,
		Outcome:         outcome,
		DurationSeconds: durationSeconds,
		OccurredAt:      occurredAt,
		Notes:           notes,
	}
}
