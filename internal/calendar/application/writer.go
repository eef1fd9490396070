package application

import (
	"context"

	"github.com/caniken03/vioconcierge/internal/calendar/domain"
)

// BookingWriter resolves the provider from the credential and creates the
// booking on it. It is the write-side counterpart of the slot finder's busy
// lookup.
type BookingWriter struct {
	registry *ProviderRegistry
}

// NewBookingWriter creates a writer over the registry.
func NewBookingWriter(registry *ProviderRegistry) *BookingWriter {
	return &BookingWriter{registry: registry}
}

// CreateBooking books the window on the tenant's external system.
func (w *BookingWriter) CreateBooking(ctx context.Context, cred domain.Credential, booking domain.Booking) (string, error) {
	provider, err := w.registry.Provider(cred.Provider)
	if err != nil {
		return "", err
	}
	return provider.CreateBooking(ctx, cred, booking)
}
