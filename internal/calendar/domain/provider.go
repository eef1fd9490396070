// Package domain defines the calendar provider port: the contract every
// external booking system adapter fulfils so the engine can read busy times
// and write confirmed reschedules without knowing which system sits behind.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownProvider     = errors.New("unknown calendar provider")
	ErrProviderUnreachable = errors.New("calendar provider unreachable")
	ErrBookingConflict     = errors.New("booking slot no longer available")
)

// ProviderType identifies an external booking system integration.
type ProviderType string

const (
	ProviderBookingAPI     ProviderType = "booking_api"
	ProviderSchedulingLink ProviderType = "scheduling_link"
)

// IsValid reports whether the provider type is one the engine knows.
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderBookingAPI, ProviderSchedulingLink:
		return true
	}
	return false
}

// DisplayName returns a human-readable provider name.
func (p ProviderType) DisplayName() string {
	switch p {
	case ProviderBookingAPI:
		return "Booking API"
	case ProviderSchedulingLink:
		return "Scheduling Link"
	default:
		return string(p)
	}
}

// Credential holds what an adapter needs to talk to the tenant's booking
// system. AccessToken is sent as a bearer token; CalendarRef identifies the
// target calendar or booking page on the remote side.
type Credential struct {
	TenantID    uuid.UUID
	Provider    ProviderType
	AccessToken string
	CalendarRef string
	BaseURL     string // optional override, adapters fall back to their default
}

// Booking is an existing or newly created appointment on the remote system.
type Booking struct {
	ExternalID      string
	Title           string
	StartTime       time.Time
	EndTime         time.Time
	AppointmentType string
	ContactName     string
	ContactPhone    string
	Status          string
}

// Window bounds a busy-time query.
type Window struct {
	From time.Time
	To   time.Time
}

// Provider is the outbound port to an external booking system.
type Provider interface {
	// Name identifies the adapter, used for breaker naming and logs.
	Name() ProviderType

	// ListBookings returns appointments overlapping the window, used as
	// busy intervals during slot generation.
	ListBookings(ctx context.Context, cred Credential, window Window) ([]Booking, error)

	// CreateBooking writes a confirmed reschedule to the remote system and
	// returns its external identifier.
	CreateBooking(ctx context.Context, cred Credential, booking Booking) (string, error)
}
