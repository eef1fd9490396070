package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	sharedApplication "github.com/caniken03/vioconcierge/internal/shared/application"
	"github.com/google/uuid"
)

// RecordCallOutcomeCommand reports one contact attempt.
type RecordCallOutcomeCommand struct {
	TenantID        uuid.UUID
	ContactID       uuid.UUID
	CallSessionID   string
	Outcome         domain.CallOutcome
	DurationSeconds int
	OccurredAt      time.Time
	Notes           string
}

// RecordCallOutcomeHandler appends the call log and folds the attempt into
// the contact's responsiveness counters.
type RecordCallOutcomeHandler struct {
	contacts domain.ContactRepository
	logs     domain.CallLogRepository
	uow      sharedApplication.UnitOfWork
	logger   *slog.Logger
}

// NewRecordCallOutcomeHandler creates the handler.
func NewRecordCallOutcomeHandler(
	contacts domain.ContactRepository,
	logs domain.CallLogRepository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *RecordCallOutcomeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordCallOutcomeHandler{
		contacts: contacts,
		logs:     logs,
		uow:      uow,
		logger:   logger,
	}
}

// Handle records the attempt. The call log is append-only; the contact's
// counters and rolling event log update in the same transaction.
func (h *RecordCallOutcomeHandler) Handle(ctx context.Context, cmd RecordCallOutcomeCommand) error {
	occurredAt := cmd.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	contact, err := h.contacts.FindByID(ctx, cmd.ContactID, cmd.TenantID)
	if err != nil {
		return err
	}

	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		entry := domain.NewCallLog(cmd.TenantID, cmd.ContactID, cmd.CallSessionID, cmd.Outcome, cmd.DurationSeconds, occurredAt, cmd.Notes)
		if err := h.logs.Append(txCtx, entry); err != nil {
			return err
		}

		contact.RecordCallOutcome(cmd.Outcome, cmd.DurationSeconds, occurredAt)
		return h.contacts.Save(txCtx, contact)
	})
}
