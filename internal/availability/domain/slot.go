// Package domain holds the availability value objects: candidate appointment
// slots and tenant business-hours profiles.
package domain

import (
	"time"
)

// ProviderBusinessHours marks a slot as sourced from the business-hours
// fallback rather than an external calendar provider.
const ProviderBusinessHours = "business_hours"

// Slot is a candidate appointment time window. Immutable once generated;
// a request's slot list is a frozen snapshot taken at the availability
// check stage.
type Slot struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	AppointmentType string    `json:"appointment_type,omitempty"`
	Provider        string    `json:"provider"`
	Location        string    `json:"location,omitempty"`
	Timezone        string    `json:"timezone,omitempty"`
}

// NewSlot creates a slot for the given window.
func NewSlot(start, end time.Time, provider string) Slot {
	return Slot{
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: int(end.Sub(start).Minutes()),
		Provider:        provider,
	}
}

// Duration returns the slot duration.
func (s Slot) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// FromProvider reports whether the slot came from an external calendar
// rather than the business-hours fallback.
func (s Slot) FromProvider() bool {
	return s.Provider != "" && s.Provider != ProviderBusinessHours
}

// Overlaps checks the standard half-open interval test against a busy window.
func (s Slot) Overlaps(otherStart, otherEnd time.Time) bool {
	return s.StartTime.Before(otherEnd) && s.EndTime.After(otherStart)
}

// Busy is an existing booking or calendar event that candidate slots must
// not collide with.
type Busy struct {
	Start time.Time
	End   time.Time
}

// Overlaps checks whether the given window collides with this busy interval.
func (b Busy) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && end.After(b.Start)
}
