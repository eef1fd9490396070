package commands

import (
	"context"
	"testing"
	"time"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	calendar "github.com/caniken03/vioconcierge/internal/calendar/domain"
	notificationApp "github.com/caniken03/vioconcierge/internal/notification/application"
	"github.com/caniken03/vioconcierge/internal/notification/infrastructure/tokenstore"
	"github.com/caniken03/vioconcierge/internal/rescheduling/application/workflow"
	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	reschedulingPersistence "github.com/caniken03/vioconcierge/internal/rescheduling/infrastructure/persistence"
	"github.com/caniken03/vioconcierge/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/caniken03/vioconcierge/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSlotFinder struct {
	slots []availability.Slot
}

func (s *stubSlotFinder) FindSlots(_ context.Context, _ *domain.TenantConfig, _ *domain.Contact, _ *domain.ReschedulingRequest) ([]availability.Slot, error) {
	return s.slots, nil
}

type stubNotifier struct {
	calls int
}

func (s *stubNotifier) Dispatch(_ context.Context, _ notificationApp.DispatchInput) (notificationApp.DispatchResult, error) {
	s.calls++
	return notificationApp.DispatchResult{Token: "tok", Delivered: true}, nil
}

type stubCalendarWriter struct{}

func (s *stubCalendarWriter) CreateBooking(_ context.Context, _ calendar.Credential, _ calendar.Booking) (string, error) {
	return "ext-1", nil
}

type fixture struct {
	create   *CreateRequestHandler
	process  *ProcessWorkflowHandler
	confirm  *ConfirmRescheduleHandler
	cancel   *CancelRequestHandler
	requests *reschedulingPersistence.MemoryRequestRepository
	contacts *reschedulingPersistence.MemoryContactRepository
	tenants  *reschedulingPersistence.MemoryTenantRepository
	notifier *stubNotifier
	slots    *stubSlotFinder

	tenantID uuid.UUID
	contact  *domain.Contact
}

func offeredSlots() []availability.Slot {
	base := time.Date(2026, 3, 2, 11, 15, 0, 0, time.UTC)
	return []availability.Slot{
		availability.NewSlot(base, base.Add(30*time.Minute), availability.ProviderBusinessHours),
		availability.NewSlot(base.Add(time.Hour), base.Add(90*time.Minute), availability.ProviderBusinessHours),
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	requests := reschedulingPersistence.NewMemoryRequestRepository()
	contacts := reschedulingPersistence.NewMemoryContactRepository()
	tenants := reschedulingPersistence.NewMemoryTenantRepository()
	outboxRepo := outbox.NewMemoryRepository()
	uow := sharedPersistence.NewNoopUnitOfWork()
	notifier := &stubNotifier{}
	finder := &stubSlotFinder{slots: offeredSlots()}

	tenantID := uuid.New()
	tenants.Put(&domain.TenantConfig{ID: tenantID, BusinessName: "Vio Dental"})

	contact := domain.NewContact(tenantID, "Dana")
	contact.Email = "dana@example.com"
	require.NoError(t, contacts.Save(context.Background(), contact))

	processors := []workflow.StageProcessor{
		workflow.NewCustomerRequestProcessor(nil),
		workflow.NewAvailabilityCheckProcessor(finder, nil),
		workflow.NewConfirmationProcessor(notifier, nil, nil),
		workflow.NewCalendarUpdateProcessor(&stubCalendarWriter{}, nil),
	}
	engine := workflow.NewEngine(processors, requests, outboxRepo, uow, nil)

	return &fixture{
		create:   NewCreateRequestHandler(requests, contacts, tenants, outboxRepo, uow, engine, nil),
		process:  NewProcessWorkflowHandler(requests, contacts, tenants, uow, engine, nil),
		confirm:  NewConfirmRescheduleHandler(requests, contacts, tenants, outboxRepo, uow, engine, nil),
		cancel:   NewCancelRequestHandler(requests, contacts, outboxRepo, uow, nil),
		requests: requests,
		contacts: contacts,
		tenants:  tenants,
		notifier: notifier,
		slots:    finder,
		tenantID: tenantID,
		contact:  contact,
	}
}

func (f *fixture) createCommand() CreateRequestCommand {
	return CreateRequestCommand{
		TenantID:                f.tenantID,
		ContactID:               f.contact.ID(),
		CallSessionID:           "call-42",
		WebhookEventID:          "evt-42",
		OriginalAppointmentTime: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		OriginalAppointmentType: "cleaning",
		RescheduleReason:        domain.ReasonCustomerConflict,
		Mode:                    workflow.ModeAutomated,
	}
}

func TestCreateRequestHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the request and runs the workflow to the pause point", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.create.Handle(ctx, f.createCommand())
		require.NoError(t, err)

		assert.True(t, result.Created)
		assert.Equal(t, domain.StageConfirmation, result.Run.Stage)
		assert.Equal(t, domain.StatusPending, result.Run.Status)
		assert.Equal(t, 1, f.notifier.calls)

		updated, err := f.contacts.FindByID(ctx, f.contact.ID(), f.tenantID)
		require.NoError(t, err)
		assert.Equal(t, domain.AppointmentRescheduling, updated.AppointmentStatus)
	})

	t.Run("duplicate trigger collapses to the existing request", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.create.Handle(ctx, f.createCommand())
		require.NoError(t, err)

		cmd := f.createCommand()
		cmd.WebhookEventID = "evt-other"
		second, err := f.create.Handle(ctx, cmd)
		require.NoError(t, err)

		assert.False(t, second.Created)
		assert.Equal(t, first.Request.ID(), second.Request.ID())
		assert.Equal(t, 1, f.notifier.calls)
	})

	t.Run("replayed webhook event returns the existing request", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.create.Handle(ctx, f.createCommand())
		require.NoError(t, err)

		second, err := f.create.Handle(ctx, f.createCommand())
		require.NoError(t, err)

		assert.False(t, second.Created)
		assert.Equal(t, first.Request.ID(), second.Request.ID())
	})

	t.Run("validation failure creates no state", func(t *testing.T) {
		f := newFixture(t)

		cmd := f.createCommand()
		cmd.OriginalAppointmentTime = time.Time{}
		_, err := f.create.Handle(ctx, cmd)
		assert.ErrorIs(t, err, domain.ErrMissingOriginalTime)

		_, err = f.requests.FindByWebhookEventID(ctx, f.tenantID, cmd.WebhookEventID)
		assert.ErrorIs(t, err, domain.ErrRequestNotFound)
	})

	t.Run("mode is mandatory", func(t *testing.T) {
		f := newFixture(t)

		cmd := f.createCommand()
		cmd.Mode = ""
		_, err := f.create.Handle(ctx, cmd)
		assert.ErrorIs(t, err, workflow.ErrUnknownMode)
	})
}

func TestProcessWorkflowHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("manual-mode request advances one stage per call", func(t *testing.T) {
		f := newFixture(t)

		cmd := f.createCommand()
		cmd.Mode = workflow.ModeManual
		created, err := f.create.Handle(ctx, cmd)
		require.NoError(t, err)
		require.Equal(t, domain.StageAvailabilityCheck, created.Run.Stage)

		run, err := f.process.Handle(ctx, ProcessWorkflowCommand{
			RequestID: created.Request.ID(),
			TenantID:  f.tenantID,
			Mode:      workflow.ModeManual,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StageConfirmation, run.Stage)
		assert.Equal(t, 0, f.notifier.calls)

		run, err = f.process.Handle(ctx, ProcessWorkflowCommand{
			RequestID: created.Request.ID(),
			TenantID:  f.tenantID,
			Mode:      workflow.ModeManual,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StageConfirmation, run.Stage)
		assert.Equal(t, domain.StatusPending, run.Status)
		assert.Equal(t, 1, f.notifier.calls)
	})

	t.Run("blocked request is reopened and retried", func(t *testing.T) {
		f := newFixture(t)
		f.slots.slots = nil

		created, err := f.create.Handle(ctx, f.createCommand())
		require.NoError(t, err)
		require.Equal(t, domain.StatusBlocked, created.Request.Status())

		f.slots.slots = offeredSlots()
		run, err := f.process.Handle(ctx, ProcessWorkflowCommand{
			RequestID: created.Request.ID(),
			TenantID:  f.tenantID,
			Mode:      workflow.ModeAutomated,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.StageConfirmation, run.Stage)
		assert.Equal(t, domain.StatusPending, run.Status)
		assert.Equal(t, 1, f.notifier.calls)
	})

	t.Run("terminal request cannot be processed again", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.create.Handle(ctx, f.createCommand())
		require.NoError(t, err)

		_, err = f.confirm.Handle(ctx, ConfirmRescheduleCommand{
			RequestID:    created.Request.ID(),
			TenantID:     f.tenantID,
			SelectedTime: offeredSlots()[0].StartTime,
			ProcessedBy:  "operator",
		})
		require.NoError(t, err)

		_, err = f.process.Handle(ctx, ProcessWorkflowCommand{
			RequestID: created.Request.ID(),
			TenantID:  f.tenantID,
			Mode:      workflow.ModeAutomated,
		})
		assert.ErrorIs(t, err, domain.ErrRequestTerminal)
	})

	t.Run("mode is mandatory", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.create.Handle(ctx, f.createCommand())
		require.NoError(t, err)

		_, err = f.process.Handle(ctx, ProcessWorkflowCommand{
			RequestID: created.Request.ID(),
			TenantID:  f.tenantID,
		})
		assert.ErrorIs(t, err, workflow.ErrUnknownMode)
	})
}

func TestConfirmRescheduleHandler(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.create.Handle(ctx, f.createCommand())
	require.NoError(t, err)

	selected := offeredSlots()[0].StartTime
	run, err := f.confirm.Handle(ctx, ConfirmRescheduleCommand{
		RequestID:    created.Request.ID(),
		TenantID:     f.tenantID,
		SelectedTime: selected,
		ProcessedBy:  "operator",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, run.Status)

	contact, err := f.contacts.FindByID(ctx, f.contact.ID(), f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentConfirmed, contact.AppointmentStatus)
	assert.Equal(t, selected, *contact.AppointmentTime)
}

func TestCancelRequestHandler(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.create.Handle(ctx, f.createCommand())
	require.NoError(t, err)

	err = f.cancel.Handle(ctx, CancelRequestCommand{
		RequestID:   created.Request.ID(),
		TenantID:    f.tenantID,
		Reason:      "customer cancelled",
		ProcessedBy: "operator",
	})
	require.NoError(t, err)

	request, err := f.requests.FindByID(ctx, created.Request.ID(), f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, request.Status())

	contact, err := f.contacts.FindByID(ctx, f.contact.ID(), f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentPending, contact.AppointmentStatus)
}

func TestProcessCustomerResponseHandler(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, *ProcessCustomerResponseHandler, *notificationApp.TokenService, *domain.ReschedulingRequest) {
		t.Helper()
		f := newFixture(t)
		tokens := notificationApp.NewTokenService(tokenstore.NewMemoryStore(), 0, 0, nil)
		handler := NewProcessCustomerResponseHandler(tokens, f.confirm, f.cancel, nil)

		created, err := f.create.Handle(ctx, f.createCommand())
		require.NoError(t, err)
		return f, handler, tokens, created.Request
	}

	t.Run("selecting a slot confirms the reschedule", func(t *testing.T) {
		f, handler, tokens, request := setup(t)

		token, err := tokens.Issue(ctx, request.ID(), f.tenantID, f.contact.ID(), request.AvailableSlots())
		require.NoError(t, err)

		idx := 1
		result, err := handler.Handle(ctx, ProcessCustomerResponseCommand{Token: token, SelectedSlotIndex: &idx})
		require.NoError(t, err)

		assert.False(t, result.Declined)
		assert.Equal(t, domain.StatusCompleted, result.Run.Status)

		// Single use: the token is gone.
		_, err = handler.Handle(ctx, ProcessCustomerResponseCommand{Token: token, SelectedSlotIndex: &idx})
		assert.Error(t, err)
	})

	t.Run("nil selection declines and cancels", func(t *testing.T) {
		f, handler, tokens, request := setup(t)

		token, err := tokens.Issue(ctx, request.ID(), f.tenantID, f.contact.ID(), request.AvailableSlots())
		require.NoError(t, err)

		result, err := handler.Handle(ctx, ProcessCustomerResponseCommand{Token: token, Comments: "none of these work"})
		require.NoError(t, err)
		assert.True(t, result.Declined)

		cancelled, err := f.requests.FindByID(ctx, request.ID(), f.tenantID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, cancelled.Status())
	})

	t.Run("out-of-range selection leaves the token usable", func(t *testing.T) {
		f, handler, tokens, request := setup(t)

		token, err := tokens.Issue(ctx, request.ID(), f.tenantID, f.contact.ID(), request.AvailableSlots())
		require.NoError(t, err)

		bad := 99
		_, err = handler.Handle(ctx, ProcessCustomerResponseCommand{Token: token, SelectedSlotIndex: &bad})
		require.Error(t, err)

		good := 0
		result, err := handler.Handle(ctx, ProcessCustomerResponseCommand{Token: token, SelectedSlotIndex: &good})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, result.Run.Status)
	})
}

func TestRecordCallOutcomeHandler(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	logs := reschedulingPersistence.NewMemoryCallLogRepository()
	handler := NewRecordCallOutcomeHandler(f.contacts, logs, sharedPersistence.NewNoopUnitOfWork(), nil)

	occurred := time.Date(2026, 2, 27, 9, 30, 0, 0, time.UTC)
	for _, outcome := range []domain.CallOutcome{domain.OutcomeNoAnswer, domain.OutcomeAnswered} {
		err := handler.Handle(ctx, RecordCallOutcomeCommand{
			TenantID:        f.tenantID,
			ContactID:       f.contact.ID(),
			CallSessionID:   "call-42",
			Outcome:         outcome,
			DurationSeconds: 45,
			OccurredAt:      occurred,
		})
		require.NoError(t, err)
	}

	contact, err := f.contacts.FindByID(ctx, f.contact.ID(), f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, 2, contact.Stats.CallAttempts)
	assert.Equal(t, 1, contact.Stats.SuccessfulContacts)
	assert.Equal(t, 0, contact.Stats.ConsecutiveNoAnswers)

	entries, err := logs.ListByContact(ctx, f.contact.ID(), f.tenantID, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
