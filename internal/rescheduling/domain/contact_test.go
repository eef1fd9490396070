package domain

import (
	"testing"
	"time"

	responsiveness "github.com/caniken03/vioconcierge/internal/responsiveness/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRecordCallOutcome(t *testing.T) {
	now := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)

	t.Run("attempt counter increments on every outcome", func(t *testing.T) {
		contact := NewContact(uuid.New(), "Dana")

		contact.RecordCallOutcome(OutcomeNoAnswer, 0, now)
		contact.RecordCallOutcome(OutcomeNoAnswer, 0, now.Add(time.Hour))
		contact.RecordCallOutcome(OutcomeAnswered, 120, now.Add(2*time.Hour))
		contact.RecordCallOutcome(OutcomeVoicemail, 15, now.Add(3*time.Hour))

		assert.Equal(t, 4, contact.Stats.CallAttempts)
		assert.Equal(t, 1, contact.Stats.SuccessfulContacts)
	})

	t.Run("answered resets the consecutive no-answer streak", func(t *testing.T) {
		contact := NewContact(uuid.New(), "Dana")

		contact.RecordCallOutcome(OutcomeNoAnswer, 0, now)
		contact.RecordCallOutcome(OutcomeBusy, 0, now)
		assert.Equal(t, 2, contact.Stats.ConsecutiveNoAnswers)

		contact.RecordCallOutcome(OutcomeAnswered, 90, now)
		assert.Equal(t, 0, contact.Stats.ConsecutiveNoAnswers)
	})

	t.Run("events land in the rolling log", func(t *testing.T) {
		contact := NewContact(uuid.New(), "Dana")

		contact.RecordCallOutcome(OutcomeAnswered, 60, now)

		assert.Len(t, contact.Stats.Events, 1)
		assert.True(t, contact.Stats.Events[0].Success)
		assert.Equal(t, 60, contact.Stats.Events[0].DurationSeconds)
	})

	t.Run("rolling log stays bounded", func(t *testing.T) {
		contact := NewContact(uuid.New(), "Dana")

		for i := 0; i < responsiveness.MaxPatternEvents+10; i++ {
			contact.RecordCallOutcome(OutcomeAnswered, 30, now.Add(time.Duration(i)*time.Hour))
		}

		assert.Len(t, contact.Stats.Events, responsiveness.MaxPatternEvents)
		assert.Equal(t, responsiveness.MaxPatternEvents+10, contact.Stats.CallAttempts)
	})
}

func TestContactAppointmentLifecycle(t *testing.T) {
	contact := NewContact(uuid.New(), "Dana")
	assert.Equal(t, AppointmentScheduled, contact.AppointmentStatus)

	contact.BeginRescheduling()
	assert.Equal(t, AppointmentRescheduling, contact.AppointmentStatus)

	newTime := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	contact.ConfirmAppointment(newTime)
	assert.Equal(t, AppointmentConfirmed, contact.AppointmentStatus)
	assert.Equal(t, newTime, *contact.AppointmentTime)

	contact.RevertToPending()
	assert.Equal(t, AppointmentPending, contact.AppointmentStatus)
}

func TestRecordNoShow(t *testing.T) {
	contact := NewContact(uuid.New(), "Dana")

	contact.RecordNoShow()
	contact.RecordNoShow()

	assert.Equal(t, 2, contact.NoShowCount)
	assert.Equal(t, 2, contact.Stats.NoShowCount)
}
