package domain

import (
	"errors"
	"time"

	notification "github.com/caniken03/vioconcierge/internal/notification/domain"
	responsiveness "github.com/caniken03/vioconcierge/internal/responsiveness/domain"
	sharedDomain "github.com/caniken03/vioconcierge/internal/shared/domain"
	"github.com/google/uuid"
)

var ErrContactNotFound = errors.New("contact not found")

// AppointmentStatus tracks where the contact's appointment stands.
type AppointmentStatus string

const (
	AppointmentScheduled    AppointmentStatus = "scheduled"
	AppointmentRescheduling AppointmentStatus = "rescheduling"
	AppointmentPending      AppointmentStatus = "pending"
	AppointmentConfirmed    AppointmentStatus = "confirmed"
	AppointmentCancelled    AppointmentStatus = "cancelled"
)

// CallOutcome is what happened on one contact attempt.
type CallOutcome string

const (
	OutcomeAnswered  CallOutcome = "answered"
	OutcomeNoAnswer  CallOutcome = "no_answer"
	OutcomeVoicemail CallOutcome = "voicemail"
	OutcomeBusy      CallOutcome = "busy"
)

// Contact is the customer whose appointment is being rescheduled.
type Contact struct {
	sharedDomain.BaseEntity

	TenantID         uuid.UUID
	Name             string
	Email            string
	Phone            string
	PreferredChannel notification.Channel
	Timezone         string

	AppointmentTime     *time.Time
	AppointmentType     string
	AppointmentStatus   AppointmentStatus
	AppointmentDuration int // minutes

	NoShowCount int
	Stats       responsiveness.ContactStats
}

// NewContact creates a contact.
func NewContact(tenantID uuid.UUID, name string) *Contact {
	return &Contact{
		BaseEntity:        sharedDomain.NewBaseEntity(),
		TenantID:          tenantID,
		Name:              name,
		PreferredChannel:  notification.ChannelEmail,
		AppointmentStatus: AppointmentScheduled,
	}
}

// BeginRescheduling flags the contact's appointment as in flux.
func (c *Contact) BeginRescheduling() {
	c.AppointmentStatus = AppointmentRescheduling
	c.Touch()
}

// ConfirmAppointment fixes the new time after a successful reschedule.
func (c *Contact) ConfirmAppointment(newTime time.Time) {
	t := newTime
	c.AppointmentTime = &t
	c.AppointmentStatus = AppointmentConfirmed
	c.Touch()
}

// RevertToPending returns the contact to an unresolved appointment state,
// used on cancellation and expiry sweeps.
func (c *Contact) RevertToPending() {
	c.AppointmentStatus = AppointmentPending
	c.Touch()
}

// RecordCallOutcome updates the responsiveness counters from one attempt.
// Counters always increment from their prior value.
func (c *Contact) RecordCallOutcome(outcome CallOutcome, durationSeconds int, occurredAt time.Time) {
	c.Stats.CallAttempts++
	success := outcome == OutcomeAnswered
	if success {
		c.Stats.SuccessfulContacts++
		c.Stats.ConsecutiveNoAnswers = 0
	} else {
		c.Stats.ConsecutiveNoAnswers++
	}
	c.Stats.AppendEvent(responsiveness.ContactEvent{
		Timestamp:       occurredAt,
		Success:         success,
		DurationSeconds: durationSeconds,
	})
	c.Stats.NoShowCount = c.NoShowCount
	c.Touch()
}

// RecordNoShow bumps the no-show counter.
func (c *Contact) RecordNoShow() {
	c.NoShowCount++
	c.Stats.NoShowCount = c.NoShowCount
	c.Touch()
}

// Recipient shapes the contact for the notification channel adapters.
func (c *Contact) Recipient() notification.Recipient {
	return notification.Recipient{
		Name:  c.Name,
		Email: c.Email,
		Phone: c.Phone,
	}
}
