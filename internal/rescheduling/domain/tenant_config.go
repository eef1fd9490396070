package domain

import (
	"errors"
	"time"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	calendar "github.com/caniken03/vioconcierge/internal/calendar/domain"
	"github.com/google/uuid"
)

var ErrTenantNotFound = errors.New("tenant configuration not found")

// TenantConfig is the per-business configuration the workflow reads.
type TenantConfig struct {
	ID           uuid.UUID
	BusinessName string
	Category     availability.BusinessCategory
	Timezone     string

	// Hours is the configured weekly profile; nil falls back to the
	// category default.
	Hours *availability.BusinessHours

	// Calendar is the bound external booking system; nil means
	// business-hours fallback only and manual calendar updates.
	Calendar *calendar.Credential

	// AutoConfirm lets automated workflows book the top-ranked slot
	// without waiting for a customer reply.
	AutoConfirm bool

	DefaultDurationMinutes int
}

// BusinessHours resolves the effective weekly profile.
func (t TenantConfig) BusinessHours() availability.BusinessHours {
	if t.Hours != nil {
		return *t.Hours
	}
	return availability.DefaultBusinessHours(t.Category)
}

// Location resolves the tenant's timezone, defaulting to UTC.
func (t TenantConfig) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AppointmentDuration resolves the slot duration for a contact.
func (t TenantConfig) AppointmentDuration(contact *Contact) time.Duration {
	if contact != nil && contact.AppointmentDuration > 0 {
		return time.Duration(contact.AppointmentDuration) * time.Minute
	}
	if t.DefaultDurationMinutes > 0 {
		return time.Duration(t.DefaultDurationMinutes) * time.Minute
	}
	return 30 * time.Minute
}
