package workflow

import (
	"context"
	"fmt"
	"log/slog"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	calendar "github.com/caniken03/vioconcierge/internal/calendar/domain"
	notificationApp "github.com/caniken03/vioconcierge/internal/notification/application"
	notification "github.com/caniken03/vioconcierge/internal/notification/domain"
	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	responsiveness "github.com/caniken03/vioconcierge/internal/responsiveness/domain"
	"github.com/google/uuid"
)

// SlotFinder produces the ranked candidate slots for a request.
type SlotFinder interface {
	FindSlots(ctx context.Context, tenant *domain.TenantConfig, contact *domain.Contact, request *domain.ReschedulingRequest) ([]availability.Slot, error)
}

// Notifier dispatches a slot offer to the customer.
type Notifier interface {
	Dispatch(ctx context.Context, input notificationApp.DispatchInput) (notificationApp.DispatchResult, error)
}

// ContactScorer derives the responsiveness pattern used for channel choice.
type ContactScorer interface {
	Score(stats responsiveness.ContactStats, analytics responsiveness.Analytics) responsiveness.Pattern
}

// CalendarWriter books the confirmed time on the tenant's external system.
type CalendarWriter interface {
	CreateBooking(ctx context.Context, cred calendar.Credential, booking calendar.Booking) (string, error)
}

// CustomerRequestProcessor validates intake and logs it. The only failure is
// a missing required field.
type CustomerRequestProcessor struct {
	logger *slog.Logger
}

// NewCustomerRequestProcessor creates the intake processor.
func NewCustomerRequestProcessor(logger *slog.Logger) *CustomerRequestProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomerRequestProcessor{logger: logger}
}

func (p *CustomerRequestProcessor) Stage() domain.Stage { return domain.StageCustomerRequest }

func (p *CustomerRequestProcessor) CanProcess(r *domain.ReschedulingRequest) bool {
	return r.WorkflowStage() == domain.StageCustomerRequest && r.Status() == domain.StatusPending
}

func (p *CustomerRequestProcessor) NextStage() (domain.Stage, bool) {
	return domain.StageAvailabilityCheck, true
}

func (p *CustomerRequestProcessor) Process(_ context.Context, r *domain.ReschedulingRequest, _ *StageContext) StageResult {
	if r.ContactID() == uuid.Nil {
		return StageResult{Status: domain.StatusError, Message: "request has no contact"}
	}
	if r.OriginalAppointmentTime().IsZero() {
		return StageResult{Status: domain.StatusError, Message: "request has no original appointment time"}
	}

	p.logger.Info("reschedule request received",
		"request_id", r.ID(),
		"reason", r.RescheduleReason(),
		"urgency", r.UrgencyLevel(),
	)
	return StageResult{Status: domain.StatusPending, Message: "customer request validated"}
}

// AvailabilityCheckProcessor computes and snapshots the ranked slot list.
// Zero slots is a business-blocking condition, not a system fault.
type AvailabilityCheckProcessor struct {
	slots  SlotFinder
	logger *slog.Logger
}

// NewAvailabilityCheckProcessor creates the availability processor.
func NewAvailabilityCheckProcessor(slots SlotFinder, logger *slog.Logger) *AvailabilityCheckProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &AvailabilityCheckProcessor{slots: slots, logger: logger}
}

func (p *AvailabilityCheckProcessor) Stage() domain.Stage { return domain.StageAvailabilityCheck }

func (p *AvailabilityCheckProcessor) CanProcess(r *domain.ReschedulingRequest) bool {
	return r.WorkflowStage() == domain.StageAvailabilityCheck && r.Status() == domain.StatusPending
}

func (p *AvailabilityCheckProcessor) NextStage() (domain.Stage, bool) {
	return domain.StageConfirmation, true
}

func (p *AvailabilityCheckProcessor) Process(ctx context.Context, r *domain.ReschedulingRequest, sc *StageContext) StageResult {
	slots, err := p.slots.FindSlots(ctx, sc.Tenant, sc.Contact, r)
	if err != nil {
		p.logger.Error("slot lookup failed", "request_id", r.ID(), "error", err)
		return StageResult{Status: domain.StatusError, Message: fmt.Sprintf("slot lookup failed: %v", err)}
	}
	if len(slots) == 0 {
		return StageResult{Status: domain.StatusBlocked, Message: "no available slots found"}
	}

	r.SnapshotSlots(slots)
	return StageResult{Status: domain.StatusPending, Message: fmt.Sprintf("%d candidate slots found", len(slots))}
}

// ConfirmationProcessor either auto-books the top slot (automated mode with
// tenant auto-confirm) or dispatches a slot offer and pauses for the
// customer's reply.
type ConfirmationProcessor struct {
	notifier Notifier
	scorer   ContactScorer
	logger   *slog.Logger
}

// NewConfirmationProcessor creates the confirmation processor.
func NewConfirmationProcessor(notifier Notifier, scorer ContactScorer, logger *slog.Logger) *ConfirmationProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmationProcessor{notifier: notifier, scorer: scorer, logger: logger}
}

func (p *ConfirmationProcessor) Stage() domain.Stage { return domain.StageConfirmation }

func (p *ConfirmationProcessor) CanProcess(r *domain.ReschedulingRequest) bool {
	return r.WorkflowStage() == domain.StageConfirmation && r.Status() == domain.StatusPending
}

func (p *ConfirmationProcessor) NextStage() (domain.Stage, bool) {
	return domain.StageCalendarUpdate, true
}

func (p *ConfirmationProcessor) Process(ctx context.Context, r *domain.ReschedulingRequest, sc *StageContext) StageResult {
	slots := r.AvailableSlots()
	if len(slots) == 0 {
		return StageResult{Status: domain.StatusBlocked, Message: "no slots to offer"}
	}

	if sc.Mode == ModeAutomated && sc.Tenant != nil && sc.Tenant.AutoConfirm {
		// Highest-ranked slot wins without waiting for a reply.
		if err := r.Approve(slots[0].StartTime, "auto-confirm"); err != nil {
			return StageResult{Status: domain.StatusError, Message: err.Error()}
		}
		return StageResult{Status: domain.StatusApproved, Message: "top-ranked slot auto-confirmed"}
	}

	input := notificationApp.DispatchInput{
		RequestID:    r.ID(),
		TenantID:     r.TenantID(),
		ContactID:    r.ContactID(),
		OriginalTime: r.OriginalAppointmentTime(),
		Slots:        slots,
	}
	if sc.Tenant != nil {
		input.BusinessName = sc.Tenant.BusinessName
	}
	if sc.Contact != nil {
		input.Recipient = sc.Contact.Recipient()
		input.Channel = p.pickChannel(sc.Contact)
	}

	result, err := p.notifier.Dispatch(ctx, input)
	if err != nil {
		// The slot snapshot is committed; the request stays in
		// confirmation so the reminder path can retry the send.
		p.logger.Warn("confirmation dispatch failed, awaiting retry",
			"request_id", r.ID(),
			"error", err,
		)
		return StageResult{
			Status:  domain.StatusPending,
			Message: fmt.Sprintf("notification failed, pending retry: %v", err),
			Pause:   true,
		}
	}

	r.MarkConfirmationSent(result.Token)
	return StageResult{
		Status:  domain.StatusPending,
		Message: "slot offer sent, awaiting customer response",
		Pause:   true,
	}
}

// pickChannel starts from the contact's preference and widens it when the
// responsiveness pattern calls for a multi-channel approach.
func (p *ConfirmationProcessor) pickChannel(contact *domain.Contact) notification.Channel {
	channel := contact.PreferredChannel
	if p.scorer == nil {
		return channel
	}

	pattern := p.scorer.Score(contact.Stats, responsiveness.Analytics{})
	if pattern.Predictions.RecommendedStrategy == responsiveness.StrategyMultiChannel {
		// Hard-to-reach contacts get the written channel with the
		// longest shelf life.
		if contact.Email != "" {
			return notification.ChannelEmail
		}
		if contact.Phone != "" {
			return notification.ChannelSMS
		}
	}
	return channel
}

// CalendarUpdateProcessor writes the confirmed time to the tenant's booking
// system, or treats the update as manually completed when no calendar is
// bound, then finishes the workflow.
type CalendarUpdateProcessor struct {
	calendars CalendarWriter
	logger    *slog.Logger
}

// NewCalendarUpdateProcessor creates the calendar-update processor.
func NewCalendarUpdateProcessor(calendars CalendarWriter, logger *slog.Logger) *CalendarUpdateProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CalendarUpdateProcessor{calendars: calendars, logger: logger}
}

func (p *CalendarUpdateProcessor) Stage() domain.Stage { return domain.StageCalendarUpdate }

func (p *CalendarUpdateProcessor) CanProcess(r *domain.ReschedulingRequest) bool {
	if r.WorkflowStage() != domain.StageCalendarUpdate {
		return false
	}
	return r.Status() == domain.StatusPending || r.Status() == domain.StatusApproved
}

func (p *CalendarUpdateProcessor) NextStage() (domain.Stage, bool) {
	return "", false
}

func (p *CalendarUpdateProcessor) Process(ctx context.Context, r *domain.ReschedulingRequest, sc *StageContext) StageResult {
	finalTime := r.FinalSelectedTime()
	if finalTime == nil {
		return StageResult{Status: domain.StatusError, Message: "no final selected time on request"}
	}

	calendarUpdated := false
	if sc.Tenant != nil && sc.Tenant.Calendar != nil && p.calendars != nil {
		booking := calendar.Booking{
			Title:           fmt.Sprintf("Rescheduled: %s", r.OriginalAppointmentType()),
			StartTime:       *finalTime,
			EndTime:         finalTime.Add(sc.Tenant.AppointmentDuration(sc.Contact)),
			AppointmentType: r.OriginalAppointmentType(),
		}
		if sc.Contact != nil {
			booking.ContactName = sc.Contact.Name
			booking.ContactPhone = sc.Contact.Phone
		}

		externalID, err := p.calendars.CreateBooking(ctx, *sc.Tenant.Calendar, booking)
		if err != nil {
			// Contact data stays intact for manual reconciliation.
			p.logger.Error("calendar update failed",
				"request_id", r.ID(),
				"error", err,
			)
			return StageResult{Status: domain.StatusError, Message: fmt.Sprintf("calendar update failed: %v", err)}
		}
		calendarUpdated = true
		p.logger.Info("external booking created",
			"request_id", r.ID(),
			"external_id", externalID,
		)
	}

	if err := r.Complete(calendarUpdated, sc.Now); err != nil {
		return StageResult{Status: domain.StatusError, Message: err.Error()}
	}
	return StageResult{Status: domain.StatusCompleted, Message: "reschedule completed"}
}
