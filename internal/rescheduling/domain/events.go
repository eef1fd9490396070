package domain

import (
	"time"

	sharedDomain "github.com/caniken03/vioconcierge/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateTypeRequest = "rescheduling_request"

// Routing keys for the domain event exchange.
const (
	RoutingKeyRequestCreated         = "rescheduling.request.created"
	RoutingKeySlotsProposed          = "rescheduling.slots.proposed"
	RoutingKeyRescheduleConfirmed    = "rescheduling.request.confirmed"
	RoutingKeyRequestCancelled       = "rescheduling.request.cancelled"
	RoutingKeyRequestExpired         = "rescheduling.request.expired"
	RoutingKeyNotificationDispatched = "rescheduling.notification.dispatched"
)

// RequestCreated signals a new rescheduling request entered the workflow.
type RequestCreated struct {
	sharedDomain.BaseEvent
	TenantID     uuid.UUID        `json:"tenant_id"`
	ContactID    uuid.UUID        `json:"contact_id"`
	Reason       RescheduleReason `json:"reason"`
	UrgencyLevel UrgencyLevel     `json:"urgency_level"`
	OriginalTime time.Time        `json:"original_time"`
}

// NewRequestCreated creates the event.
func NewRequestCreated(r *ReschedulingRequest) *RequestCreated {
	return &RequestCreated{
		BaseEvent:    sharedDomain.NewBaseEvent(r.ID(), aggregateTypeRequest, RoutingKeyRequestCreated),
		TenantID:     r.TenantID(),
		ContactID:    r.ContactID(),
		Reason:       r.RescheduleReason(),
		UrgencyLevel: r.UrgencyLevel(),
		OriginalTime: r.OriginalAppointmentTime(),
	}
}

// SlotsProposed signals the availability check produced candidate slots.
type SlotsProposed struct {
	sharedDomain.BaseEvent
	TenantID  uuid.UUID `json:"tenant_id"`
	ContactID uuid.UUID `json:"contact_id"`
	SlotCount int       `json:"slot_count"`
}

// NewSlotsProposed creates the event.
func NewSlotsProposed(r *ReschedulingRequest, slotCount int) *SlotsProposed {
	return &SlotsProposed{
		BaseEvent: sharedDomain.NewBaseEvent(r.ID(), aggregateTypeRequest, RoutingKeySlotsProposed),
		TenantID:  r.TenantID(),
		ContactID: r.ContactID(),
		SlotCount: slotCount,
	}
}

// RescheduleConfirmed signals a final time was chosen.
type RescheduleConfirmed struct {
	sharedDomain.BaseEvent
	TenantID     uuid.UUID `json:"tenant_id"`
	ContactID    uuid.UUID `json:"contact_id"`
	SelectedTime time.Time `json:"selected_time"`
}

// NewRescheduleConfirmed creates the event.
func NewRescheduleConfirmed(r *ReschedulingRequest, selectedTime time.Time) *RescheduleConfirmed {
	return &RescheduleConfirmed{
		BaseEvent:    sharedDomain.NewBaseEvent(r.ID(), aggregateTypeRequest, RoutingKeyRescheduleConfirmed),
		TenantID:     r.TenantID(),
		ContactID:    r.ContactID(),
		SelectedTime: selectedTime,
	}
}

// RequestCancelled signals an explicit cancellation.
type RequestCancelled struct {
	sharedDomain.BaseEvent
	TenantID  uuid.UUID `json:"tenant_id"`
	ContactID uuid.UUID `json:"contact_id"`
	Reason    string    `json:"reason"`
}

// NewRequestCancelled creates the event.
func NewRequestCancelled(r *ReschedulingRequest, reason string) *RequestCancelled {
	return &RequestCancelled{
		BaseEvent: sharedDomain.NewBaseEvent(r.ID(), aggregateTypeRequest, RoutingKeyRequestCancelled),
		TenantID:  r.TenantID(),
		ContactID: r.ContactID(),
		Reason:    reason,
	}
}

// RequestExpired signals the retention sweep closed a stalled request.
type RequestExpired struct {
	sharedDomain.BaseEvent
	TenantID  uuid.UUID `json:"tenant_id"`
	ContactID uuid.UUID `json:"contact_id"`
}

// NewRequestExpired creates the event.
func NewRequestExpired(r *ReschedulingRequest) *RequestExpired {
	return &RequestExpired{
		BaseEvent: sharedDomain.NewBaseEvent(r.ID(), aggregateTypeRequest, RoutingKeyRequestExpired),
		TenantID:  r.TenantID(),
		ContactID: r.ContactID(),
	}
}

// NotificationDispatched signals a slot offer went out to the customer.
type NotificationDispatched struct {
	sharedDomain.BaseEvent
	TenantID  uuid.UUID `json:"tenant_id"`
	ContactID uuid.UUID `json:"contact_id"`
}

// NewNotificationDispatched creates the event.
func NewNotificationDispatched(r *ReschedulingRequest) *NotificationDispatched {
	return &NotificationDispatched{
		BaseEvent: sharedDomain.NewBaseEvent(r.ID(), aggregateTypeRequest, RoutingKeyNotificationDispatched),
		TenantID:  r.TenantID(),
		ContactID: r.ContactID(),
	}
}
