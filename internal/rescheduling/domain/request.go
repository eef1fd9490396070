// Package domain models the rescheduling bounded context: the
// ReschedulingRequest aggregate, contacts, tenant configuration, call logs
// and the events the workflow emits.
package domain

import (
	"errors"
	"fmt"
	"time"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	sharedDomain "github.com/caniken03/vioconcierge/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrMissingContact      = errors.New("rescheduling request requires a contact")
	ErrMissingOriginalTime = errors.New("rescheduling request requires the original appointment time")
	ErrStageRegression     = errors.New("workflow stage cannot move backwards")
	ErrRequestNotPending   = errors.New("request is not pending")
	ErrRequestTerminal     = errors.New("request is already in a terminal state")
	ErrNoFinalTime         = errors.New("no final selected time on request")
	ErrRequestNotFound     = errors.New("rescheduling request not found")
)

// Status is the request's overall disposition.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusBlocked   Status = "blocked"
	StatusError     Status = "error"
)

// IsTerminal reports whether the status ends the workflow.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Stage is the workflow position.
type Stage string

const (
	StageCustomerRequest   Stage = "customer_request"
	StageAvailabilityCheck Stage = "availability_check"
	StageConfirmation      Stage = "confirmation"
	StageCalendarUpdate    Stage = "calendar_update"
	StageCancelled         Stage = "cancelled"
	StageExpired           Stage = "expired"
)

// stageOrder indexes the forward path. The side-channel stages are absent:
// they are reachable from anywhere via Cancel/Expire only.
var stageOrder = map[Stage]int{
	StageCustomerRequest:   0,
	StageAvailabilityCheck: 1,
	StageConfirmation:      2,
	StageCalendarUpdate:    3,
}

// ForwardStages returns the forward path in order.
func ForwardStages() []Stage {
	return []Stage{StageCustomerRequest, StageAvailabilityCheck, StageConfirmation, StageCalendarUpdate}
}

// RescheduleReason categorizes why the customer asked to move.
type RescheduleReason string

const (
	ReasonCustomerConflict    RescheduleReason = "customer_conflict"
	ReasonEmergency           RescheduleReason = "emergency"
	ReasonIllness             RescheduleReason = "illness"
	ReasonPreferDifferentTime RescheduleReason = "prefer_different_time"
	ReasonOther               RescheduleReason = "other"
)

// UrgencyLevel grades how quickly the reschedule should land.
type UrgencyLevel string

const (
	UrgencyUrgent UrgencyLevel = "urgent"
	UrgencyHigh   UrgencyLevel = "high"
	UrgencyNormal UrgencyLevel = "normal"
	UrgencyLow    UrgencyLevel = "low"
)

// ReschedulingRequest is the unit of work: one appointment-change
// conversation moving through the workflow. Terminal requests are retained
// for audit and response-time reporting, never deleted.
type ReschedulingRequest struct {
	sharedDomain.BaseAggregateRoot

	tenantID      uuid.UUID
	contactID     uuid.UUID
	callSessionID string

	idempotencyKey string
	webhookEventID string

	originalAppointmentTime time.Time
	originalAppointmentType string
	rescheduleReason        RescheduleReason
	customerPreference      string
	urgencyLevel            UrgencyLevel
	proposedTimes           []time.Time

	status        Status
	workflowStage Stage

	availableSlots    []availability.Slot
	finalSelectedTime *time.Time
	calendarUpdated   bool
	confirmationSent  bool
	responseToken     string
	processedBy       string
	processedAt       *time.Time
	responseTimeHours *float64
}

// NewRequestInput carries the intake payload.
type NewRequestInput struct {
	TenantID                uuid.UUID
	ContactID               uuid.UUID
	CallSessionID           string
	WebhookEventID          string
	OriginalAppointmentTime time.Time
	OriginalAppointmentType string
	RescheduleReason        RescheduleReason
	CustomerPreference      string
	UrgencyLevel            UrgencyLevel
	ProposedTimes           []time.Time
	Now                     time.Time
}

// NewReschedulingRequest validates intake and creates the aggregate in
// pending/customer_request with a derived idempotency key.
func NewReschedulingRequest(input NewRequestInput) (*ReschedulingRequest, error) {
	if input.ContactID == uuid.Nil {
		return nil, ErrMissingContact
	}
	if input.OriginalAppointmentTime.IsZero() {
		return nil, ErrMissingOriginalTime
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	reason := input.RescheduleReason
	if reason == "" {
		reason = ReasonOther
	}
	urgency := input.UrgencyLevel
	if urgency == "" {
		urgency = UrgencyNormal
	}

	r := &ReschedulingRequest{
		BaseAggregateRoot:       sharedDomain.NewBaseAggregateRoot(),
		tenantID:                input.TenantID,
		contactID:               input.ContactID,
		callSessionID:           input.CallSessionID,
		idempotencyKey:          DeriveIdempotencyKey(input.TenantID, input.ContactID, input.CallSessionID, now),
		webhookEventID:          input.WebhookEventID,
		originalAppointmentTime: input.OriginalAppointmentTime,
		originalAppointmentType: input.OriginalAppointmentType,
		rescheduleReason:        reason,
		customerPreference:      input.CustomerPreference,
		urgencyLevel:            urgency,
		proposedTimes:           input.ProposedTimes,
		status:                  StatusPending,
		workflowStage:           StageCustomerRequest,
	}
	r.AddDomainEvent(NewRequestCreated(r))
	return r, nil
}

// Getters
func (r *ReschedulingRequest) TenantID() uuid.UUID                { return r.tenantID }
func (r *ReschedulingRequest) ContactID() uuid.UUID               { return r.contactID }
func (r *ReschedulingRequest) CallSessionID() string              { return r.callSessionID }
func (r *ReschedulingRequest) IdempotencyKey() string             { return r.idempotencyKey }
func (r *ReschedulingRequest) WebhookEventID() string             { return r.webhookEventID }
func (r *ReschedulingRequest) OriginalAppointmentTime() time.Time { return r.originalAppointmentTime }
func (r *ReschedulingRequest) OriginalAppointmentType() string    { return r.originalAppointmentType }
func (r *ReschedulingRequest) RescheduleReason() RescheduleReason { return r.rescheduleReason }
func (r *ReschedulingRequest) CustomerPreference() string         { return r.customerPreference }
func (r *ReschedulingRequest) UrgencyLevel() UrgencyLevel         { return r.urgencyLevel }
func (r *ReschedulingRequest) ProposedTimes() []time.Time         { return r.proposedTimes }
func (r *ReschedulingRequest) Status() Status                     { return r.status }
func (r *ReschedulingRequest) WorkflowStage() Stage               { return r.workflowStage }
func (r *ReschedulingRequest) AvailableSlots() []availability.Slot { return r.availableSlots }
func (r *ReschedulingRequest) FinalSelectedTime() *time.Time      { return r.finalSelectedTime }
func (r *ReschedulingRequest) CalendarUpdated() bool              { return r.calendarUpdated }
func (r *ReschedulingRequest) ConfirmationSent() bool             { return r.confirmationSent }
func (r *ReschedulingRequest) ResponseToken() string              { return r.responseToken }
func (r *ReschedulingRequest) ProcessedBy() string                { return r.processedBy }
func (r *ReschedulingRequest) ProcessedAt() *time.Time            { return r.processedAt }
func (r *ReschedulingRequest) ResponseTimeHours() *float64        { return r.responseTimeHours }

// AdvanceTo moves the workflow stage forward. Regression is an invariant
// violation, never a recoverable condition.
func (r *ReschedulingRequest) AdvanceTo(next Stage) error {
	current, onPath := stageOrder[r.workflowStage]
	target, validTarget := stageOrder[next]
	if !onPath || !validTarget {
		return fmt.Errorf("%w: %s -> %s", ErrStageRegression, r.workflowStage, next)
	}
	if target < current {
		return fmt.Errorf("%w: %s -> %s", ErrStageRegression, r.workflowStage, next)
	}
	r.workflowStage = next
	r.Touch()
	return nil
}

// SnapshotSlots freezes the ranked slot list at the availability-check stage.
func (r *ReschedulingRequest) SnapshotSlots(slots []availability.Slot) {
	r.availableSlots = slots
	r.Touch()
	r.AddDomainEvent(NewSlotsProposed(r, len(slots)))
}

// MarkBlocked records a business-blocking condition (no slots available).
func (r *ReschedulingRequest) MarkBlocked() {
	r.status = StatusBlocked
	r.Touch()
}

// MarkError records a failed stage that needs manual intervention.
func (r *ReschedulingRequest) MarkError() {
	r.status = StatusError
	r.Touch()
}

// Reopen returns a blocked or errored request to pending for a retry.
func (r *ReschedulingRequest) Reopen() error {
	if r.status.IsTerminal() {
		return ErrRequestTerminal
	}
	r.status = StatusPending
	r.Touch()
	return nil
}

// MarkConfirmationSent records the outbound notification and the response
// token it carried. A reminder re-send replaces the token: the previous one
// is revoked by the dispatcher, so the stored token is always the live one.
func (r *ReschedulingRequest) MarkConfirmationSent(token string) {
	r.confirmationSent = true
	r.responseToken = token
	r.Touch()
	r.AddDomainEvent(NewNotificationDispatched(r))
}

// Approve records the customer's (or operator's) chosen time and moves the
// request to the calendar-update stage.
func (r *ReschedulingRequest) Approve(selectedTime time.Time, processedBy string) error {
	if r.status.IsTerminal() {
		return ErrRequestTerminal
	}
	if err := r.AdvanceTo(StageCalendarUpdate); err != nil {
		return err
	}
	t := selectedTime
	r.finalSelectedTime = &t
	r.status = StatusApproved
	r.processedBy = processedBy
	r.Touch()
	r.AddDomainEvent(NewRescheduleConfirmed(r, selectedTime))
	return nil
}

// Complete finishes the workflow after the calendar update, computing the
// elapsed response time.
func (r *ReschedulingRequest) Complete(calendarUpdated bool, now time.Time) error {
	if r.finalSelectedTime == nil {
		return ErrNoFinalTime
	}
	r.calendarUpdated = calendarUpdated
	r.status = StatusCompleted
	r.processedAt = &now
	hours := now.Sub(r.CreatedAt()).Hours()
	r.responseTimeHours = &hours
	r.Touch()
	return nil
}

// Cancel short-circuits the workflow from any stage.
func (r *ReschedulingRequest) Cancel(reason, processedBy string) error {
	if r.status.IsTerminal() {
		return ErrRequestTerminal
	}
	r.status = StatusRejected
	r.workflowStage = StageCancelled
	r.processedBy = processedBy
	r.Touch()
	r.AddDomainEvent(NewRequestCancelled(r, reason))
	return nil
}

// Expire sweeps an unresolved request past the retention window.
func (r *ReschedulingRequest) Expire(now time.Time) error {
	if r.status.IsTerminal() {
		return ErrRequestTerminal
	}
	r.status = StatusExpired
	r.workflowStage = StageExpired
	r.processedAt = &now
	hours := now.Sub(r.CreatedAt()).Hours()
	r.responseTimeHours = &hours
	r.Touch()
	r.AddDomainEvent(NewRequestExpired(r))
	return nil
}

// RehydrateInput restores an aggregate from persisted state.
type RehydrateInput struct {
	ID                      uuid.UUID
	CreatedAt               time.Time
	UpdatedAt               time.Time
	Version                 int
	TenantID                uuid.UUID
	ContactID               uuid.UUID
	CallSessionID           string
	IdempotencyKey          string
	WebhookEventID          string
	OriginalAppointmentTime time.Time
	OriginalAppointmentType string
	RescheduleReason        RescheduleReason
	CustomerPreference      string
	UrgencyLevel            UrgencyLevel
	ProposedTimes           []time.Time
	Status                  Status
	WorkflowStage           Stage
	AvailableSlots          []availability.Slot
	FinalSelectedTime       *time.Time
	CalendarUpdated         bool
	ConfirmationSent        bool
	ResponseToken           string
	ProcessedBy             string
	ProcessedAt             *time.Time
	ResponseTimeHours       *float64
}

// RehydrateReschedulingRequest recreates the aggregate without raising events.
func RehydrateReschedulingRequest(input RehydrateInput) *ReschedulingRequest {
	return &ReschedulingRequest{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(input.ID, input.CreatedAt, input.UpdatedAt),
			input.Version,
		),
		tenantID:                input.TenantID,
		contactID:               input.ContactID,
		callSessionID:           input.CallSessionID,
		idempotencyKey:          input.IdempotencyKey,
		webhookEventID:          input.WebhookEventID,
		originalAppointmentTime: input.OriginalAppointmentTime,
		originalAppointmentType: input.OriginalAppointmentType,
		rescheduleReason:        input.RescheduleReason,
		customerPreference:      input.CustomerPreference,
		urgencyLevel:            input.UrgencyLevel,
		proposedTimes:           input.ProposedTimes,
		status:                  input.Status,
		workflowStage:           input.WorkflowStage,
		availableSlots:          input.AvailableSlots,
		finalSelectedTime:       input.FinalSelectedTime,
		calendarUpdated:         input.CalendarUpdated,
		confirmationSent:        input.ConfirmationSent,
		responseToken:           input.ResponseToken,
		processedBy:             input.ProcessedBy,
		processedAt:             input.ProcessedAt,
		responseTimeHours:       input.ResponseTimeHours,
	}
}

// DeriveIdempotencyKey builds the deterministic dedup key: session-scoped
// when a call session exists, otherwise minute-bucketed so rapid duplicate
// triggers collapse while genuinely separate requests do not.
func DeriveIdempotencyKey(tenantID, contactID uuid.UUID, callSessionID string, now time.Time) string {
	if callSessionID != "" {
		return fmt.Sprintf("%s:%s:%s", tenantID, contactID, callSessionID)
	}
	return fmt.Sprintf("%s:%s:%d", tenantID, contactID, now.Unix()/60)
}
