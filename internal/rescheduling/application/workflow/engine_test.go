package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	calendar "github.com/caniken03/vioconcierge/internal/calendar/domain"
	notificationApp "github.com/caniken03/vioconcierge/internal/notification/application"
	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	reschedulingPersistence "github.com/caniken03/vioconcierge/internal/rescheduling/infrastructure/persistence"
	responsiveness "github.com/caniken03/vioconcierge/internal/responsiveness/domain"
	"github.com/caniken03/vioconcierge/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/caniken03/vioconcierge/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlotFinder struct {
	slots []availability.Slot
	err   error
}

func (f *fakeSlotFinder) FindSlots(_ context.Context, _ *domain.TenantConfig, _ *domain.Contact, _ *domain.ReschedulingRequest) ([]availability.Slot, error) {
	return f.slots, f.err
}

type fakeNotifier struct {
	err   error
	calls int
}

func (f *fakeNotifier) Dispatch(_ context.Context, _ notificationApp.DispatchInput) (notificationApp.DispatchResult, error) {
	f.calls++
	if f.err != nil {
		return notificationApp.DispatchResult{}, f.err
	}
	return notificationApp.DispatchResult{Token: "tok", Delivered: true}, nil
}

type fakeScorer struct {
	pattern responsiveness.Pattern
}

func (f *fakeScorer) Score(_ responsiveness.ContactStats, _ responsiveness.Analytics) responsiveness.Pattern {
	return f.pattern
}

type fakeCalendarWriter struct {
	err   error
	calls int
}

func (f *fakeCalendarWriter) CreateBooking(_ context.Context, _ calendar.Credential, _ calendar.Booking) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "ext-1", nil
}

type engineFixture struct {
	engine   *Engine
	requests *reschedulingPersistence.MemoryRequestRepository
	notifier *fakeNotifier
	writer   *fakeCalendarWriter
}

func newEngineFixture(t *testing.T, slots []availability.Slot, slotErr error, notifyErr error) *engineFixture {
	t.Helper()

	requests := reschedulingPersistence.NewMemoryRequestRepository()
	outboxRepo := outbox.NewMemoryRepository()
	uow := sharedPersistence.NewNoopUnitOfWork()
	notifier := &fakeNotifier{err: notifyErr}
	writer := &fakeCalendarWriter{}

	processors := []StageProcessor{
		NewCustomerRequestProcessor(nil),
		NewAvailabilityCheckProcessor(&fakeSlotFinder{slots: slots, err: slotErr}, nil),
		NewConfirmationProcessor(notifier, &fakeScorer{}, nil),
		NewCalendarUpdateProcessor(writer, nil),
	}
	engine := NewEngine(processors, requests, outboxRepo, uow, nil)

	return &engineFixture{engine: engine, requests: requests, notifier: notifier, writer: writer}
}

func testSlots() []availability.Slot {
	base := time.Date(2026, 3, 2, 11, 15, 0, 0, time.UTC)
	return []availability.Slot{
		availability.NewSlot(base, base.Add(30*time.Minute), availability.ProviderBusinessHours),
		availability.NewSlot(base.Add(time.Hour), base.Add(90*time.Minute), availability.ProviderBusinessHours),
	}
}

func newEngineRequest(t *testing.T) *domain.ReschedulingRequest {
	t.Helper()
	request, err := domain.NewReschedulingRequest(domain.NewRequestInput{
		TenantID:                uuid.New(),
		ContactID:               uuid.New(),
		CallSessionID:           "call-9",
		OriginalAppointmentTime: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		OriginalAppointmentType: "checkup",
	})
	require.NoError(t, err)
	return request
}

func stageContext(mode Mode) *StageContext {
	return &StageContext{
		Tenant: &domain.TenantConfig{
			ID:           uuid.New(),
			BusinessName: "Vio Dental",
		},
		Contact: domain.NewContact(uuid.New(), "Dana"),
		Mode:    mode,
		Now:     time.Date(2026, 2, 27, 19, 0, 0, 0, time.UTC),
	}
}

func TestEngineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("automated run pauses at confirmation awaiting the customer", func(t *testing.T) {
		fixture := newEngineFixture(t, testSlots(), nil, nil)
		request := newEngineRequest(t)

		result, err := fixture.engine.Run(ctx, request, stageContext(ModeAutomated))
		require.NoError(t, err)

		assert.Equal(t, domain.StatusPending, result.Status)
		assert.Equal(t, domain.StageConfirmation, result.Stage)
		assert.True(t, request.ConfirmationSent())
		assert.Len(t, request.AvailableSlots(), 2)
		assert.Equal(t, 1, fixture.notifier.calls)
	})

	t.Run("auto-confirm books the top slot end to end", func(t *testing.T) {
		fixture := newEngineFixture(t, testSlots(), nil, nil)
		request := newEngineRequest(t)
		sc := stageContext(ModeAutomated)
		sc.Tenant.AutoConfirm = true
		sc.Tenant.Calendar = &calendar.Credential{
			TenantID: sc.Tenant.ID,
			Provider: calendar.ProviderBookingAPI,
		}

		result, err := fixture.engine.Run(ctx, request, sc)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusCompleted, result.Status)
		assert.True(t, request.CalendarUpdated())
		require.NotNil(t, request.FinalSelectedTime())
		assert.Equal(t, testSlots()[0].StartTime, *request.FinalSelectedTime())
		assert.Equal(t, 0, fixture.notifier.calls)
		assert.Equal(t, 1, fixture.writer.calls)
	})

	t.Run("zero slots blocks the request", func(t *testing.T) {
		fixture := newEngineFixture(t, nil, nil, nil)
		request := newEngineRequest(t)

		result, err := fixture.engine.Run(ctx, request, stageContext(ModeAutomated))
		require.NoError(t, err)

		assert.Equal(t, domain.StatusBlocked, result.Status)
		assert.Equal(t, domain.StageAvailabilityCheck, result.Stage)
		assert.Equal(t, 0, fixture.notifier.calls)
	})

	t.Run("slot lookup failure errors the request", func(t *testing.T) {
		fixture := newEngineFixture(t, nil, errors.New("calendar down"), nil)
		request := newEngineRequest(t)

		result, err := fixture.engine.Run(ctx, request, stageContext(ModeAutomated))
		require.NoError(t, err)

		assert.Equal(t, domain.StatusError, result.Status)
	})

	t.Run("notification failure leaves the request resumable", func(t *testing.T) {
		fixture := newEngineFixture(t, testSlots(), nil, errors.New("smtp down"))
		request := newEngineRequest(t)

		result, err := fixture.engine.Run(ctx, request, stageContext(ModeAutomated))
		require.NoError(t, err)

		assert.Equal(t, domain.StatusPending, result.Status)
		assert.Equal(t, domain.StageConfirmation, result.Stage)
		assert.False(t, request.ConfirmationSent())

		// The retry succeeds once the channel recovers.
		fixture.notifier.err = nil
		result, err = fixture.engine.Run(ctx, request, stageContext(ModeAutomated))
		require.NoError(t, err)
		assert.Equal(t, domain.StageConfirmation, result.Stage)
		assert.True(t, request.ConfirmationSent())
	})

	t.Run("manual mode runs exactly one stage", func(t *testing.T) {
		fixture := newEngineFixture(t, testSlots(), nil, nil)
		request := newEngineRequest(t)

		result, err := fixture.engine.Run(ctx, request, stageContext(ModeManual))
		require.NoError(t, err)

		assert.Equal(t, domain.StageAvailabilityCheck, result.Stage)
		assert.Empty(t, request.AvailableSlots())
		assert.Equal(t, 0, fixture.notifier.calls)
	})

	t.Run("unknown mode is rejected", func(t *testing.T) {
		fixture := newEngineFixture(t, testSlots(), nil, nil)
		request := newEngineRequest(t)

		_, err := fixture.engine.Run(ctx, request, &StageContext{Mode: Mode("turbo")})
		assert.ErrorIs(t, err, ErrUnknownMode)
	})

	t.Run("approved request resumes at calendar update", func(t *testing.T) {
		fixture := newEngineFixture(t, testSlots(), nil, nil)
		request := newEngineRequest(t)
		sc := stageContext(ModeAutomated)

		_, err := fixture.engine.Run(ctx, request, sc)
		require.NoError(t, err)
		require.Equal(t, domain.StageConfirmation, request.WorkflowStage())

		selected := testSlots()[1].StartTime
		require.NoError(t, request.Approve(selected, "customer-response"))

		result, err := fixture.engine.Run(ctx, request, sc)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusCompleted, result.Status)
		assert.False(t, request.CalendarUpdated())
		assert.Equal(t, selected, *request.FinalSelectedTime())
	})

	t.Run("terminal requests are untouched", func(t *testing.T) {
		fixture := newEngineFixture(t, testSlots(), nil, nil)
		request := newEngineRequest(t)
		require.NoError(t, request.Cancel("done", "op"))

		result, err := fixture.engine.Run(ctx, request, stageContext(ModeAutomated))
		require.NoError(t, err)
		assert.Equal(t, "no stage processed", result.Message)
	})
}
