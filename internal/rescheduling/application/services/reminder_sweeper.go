package services

import (
	"context"
	"log/slog"
	"time"

	notificationApp "github.com/caniken03/vioconcierge/internal/notification/application"
	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	sharedApplication "github.com/caniken03/vioconcierge/internal/shared/application"
	"github.com/caniken03/vioconcierge/internal/shared/infrastructure/outbox"
)

// DefaultReminderAfter is how long an unanswered offer sits before the
// follow-up goes out.
const DefaultReminderAfter = 24 * time.Hour

// OfferDispatcher re-sends a slot offer. Satisfied by the notification
// dispatch service.
type OfferDispatcher interface {
	Dispatch(ctx context.Context, input notificationApp.DispatchInput) (notificationApp.DispatchResult, error)
}

// ReminderSweeper re-dispatches offers for requests parked in confirmation
// past the reminder threshold. The reminder carries a shorter-lived token and
// the previous token is revoked on dispatch, so one token stays live per
// outstanding notification.
type ReminderSweeper struct {
	requests   domain.RequestRepository
	contacts   domain.ContactRepository
	tenants    domain.TenantConfigRepository
	dispatcher OfferDispatcher
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	after      time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewReminderSweeper creates a sweeper.
func NewReminderSweeper(
	requests domain.RequestRepository,
	contacts domain.ContactRepository,
	tenants domain.TenantConfigRepository,
	dispatcher OfferDispatcher,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	after time.Duration,
	logger *slog.Logger,
) *ReminderSweeper {
	if after <= 0 {
		after = DefaultReminderAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderSweeper{
		requests:   requests,
		contacts:   contacts,
		tenants:    tenants,
		dispatcher: dispatcher,
		outboxRepo: outboxRepo,
		uow:        uow,
		after:      after,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (s *ReminderSweeper) WithClock(now func() time.Time) *ReminderSweeper {
	s.now = now
	return s
}

// ProcessDueReminders re-sends the offer for every request awaiting a
// customer response longer than the threshold. One failing request does not
// stop the sweep. Marking the reminder sent touches the request, so it waits
// a full interval before surfacing again.
func (s *ReminderSweeper) ProcessDueReminders(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.after)

	due, err := s.requests.FindAwaitingResponseOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reminded := 0
	for _, request := range due {
		if err := s.remindOne(ctx, request); err != nil {
			s.logger.Error("reminder dispatch failed for request",
				"request_id", request.ID(),
				"error", err,
			)
			continue
		}
		reminded++
	}

	if reminded > 0 {
		s.logger.Info("follow-up reminders dispatched", "count", reminded)
	}
	return reminded, nil
}

func (s *ReminderSweeper) remindOne(ctx context.Context, request *domain.ReschedulingRequest) error {
	contact, err := s.contacts.FindByID(ctx, request.ContactID(), request.TenantID())
	if err != nil {
		return err
	}

	input := notificationApp.DispatchInput{
		RequestID:     request.ID(),
		TenantID:      request.TenantID(),
		ContactID:     request.ContactID(),
		Recipient:     contact.Recipient(),
		Channel:       contact.PreferredChannel,
		OriginalTime:  request.OriginalAppointmentTime(),
		Slots:         request.AvailableSlots(),
		Reminder:      true,
		PreviousToken: request.ResponseToken(),
	}
	if tenant, err := s.tenants.FindByID(ctx, request.TenantID()); err == nil {
		input.BusinessName = tenant.BusinessName
	}

	result, err := s.dispatcher.Dispatch(ctx, input)
	if err != nil {
		return err
	}

	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		request.MarkConfirmationSent(result.Token)
		if err := s.requests.Save(txCtx, request); err != nil {
			return err
		}

		events := request.DomainEvents()
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(request.TenantID(), "reminder-sweeper"))
		msgs, err := outbox.FromDomainEvents(events)
		if err != nil {
			return err
		}
		if err := s.outboxRepo.SaveBatch(txCtx, msgs); err != nil {
			return err
		}
		request.ClearDomainEvents()
		return nil
	})
}
