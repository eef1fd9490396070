// Package services holds the rescheduling application services that sit
// outside the stage processors: slot finding and the expiry sweep.
package services

import (
	"context"
	"log/slog"
	"time"

	availabilityServices "github.com/caniken03/vioconcierge/internal/availability/application/services"
	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	calendarApp "github.com/caniken03/vioconcierge/internal/calendar/application"
	calendar "github.com/caniken03/vioconcierge/internal/calendar/domain"
	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
)

// SlotFinder bridges the workflow to the slot generator: it resolves the
// tenant's hours, pulls busy times from the bound calendar when one exists,
// and degrades to the business-hours fallback when the provider fails.
type SlotFinder struct {
	generator *availabilityServices.SlotGenerator
	registry  *calendarApp.ProviderRegistry
	logger    *slog.Logger
	now       func() time.Time
}

// NewSlotFinder creates a slot finder.
func NewSlotFinder(generator *availabilityServices.SlotGenerator, registry *calendarApp.ProviderRegistry, logger *slog.Logger) *SlotFinder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlotFinder{
		generator: generator,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (f *SlotFinder) WithClock(now func() time.Time) *SlotFinder {
	f.now = now
	return f
}

// FindSlots computes the ranked candidate list for a request.
func (f *SlotFinder) FindSlots(ctx context.Context, tenant *domain.TenantConfig, contact *domain.Contact, request *domain.ReschedulingRequest) ([]availability.Slot, error) {
	now := f.now().UTC()

	input := availabilityServices.GenerateInput{
		Duration:        resolveDuration(tenant, contact),
		PreferredDates:  request.ProposedTimes(),
		OriginalTime:    request.OriginalAppointmentTime(),
		AppointmentType: request.OriginalAppointmentType(),
		Timezone:        time.UTC,
		Now:             now,
	}
	if tenant != nil {
		input.Hours = tenant.BusinessHours()
		input.Timezone = tenant.Location()
	}

	if tenant != nil && tenant.Calendar != nil {
		busy, provider, err := f.listBusy(ctx, *tenant.Calendar, now, input.Duration)
		if err != nil {
			// Provider trouble falls back to business hours only; the
			// workflow still gets slots rather than stalling.
			f.logger.Warn("calendar busy lookup failed, using business-hours fallback",
				"tenant_id", tenant.ID,
				"error", err,
			)
		} else {
			input.Busy = busy
			input.Provider = provider
		}
	}

	return f.generator.Generate(input), nil
}

func (f *SlotFinder) listBusy(ctx context.Context, cred calendar.Credential, now time.Time, duration time.Duration) ([]availability.Busy, string, error) {
	provider, err := f.registry.Provider(cred.Provider)
	if err != nil {
		return nil, "", err
	}

	window := calendar.Window{
		From: now,
		To:   now.AddDate(0, 0, availabilityServices.DefaultGeneratorConfig().SearchDays+1),
	}
	bookings, err := provider.ListBookings(ctx, cred, window)
	if err != nil {
		return nil, "", err
	}

	busy := make([]availability.Busy, 0, len(bookings))
	for _, b := range bookings {
		busy = append(busy, availability.Busy{Start: b.StartTime, End: b.EndTime})
	}
	return busy, string(cred.Provider), nil
}

func resolveDuration(tenant *domain.TenantConfig, contact *domain.Contact) time.Duration {
	if tenant != nil {
		return tenant.AppointmentDuration(contact)
	}
	if contact != nil && contact.AppointmentDuration > 0 {
		return time.Duration(contact.AppointmentDuration) * time.Minute
	}
	return 30 * time.Minute
}
