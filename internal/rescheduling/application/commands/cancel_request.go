package commands

import (
	"context"
	"log/slog"

	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	sharedApplication "github.com/caniken03/vioconcierge/internal/shared/application"
	"github.com/caniken03/vioconcierge/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// CancelRequestCommand aborts an in-flight rescheduling request.
type CancelRequestCommand struct {
	RequestID   uuid.UUID
	TenantID    uuid.UUID
	Reason      string
	ProcessedBy string
}

// CancelRequestHandler handles CancelRequestCommand.
type CancelRequestHandler struct {
	requests   domain.RequestRepository
	contacts   domain.ContactRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	logger     *slog.Logger
}

// NewCancelRequestHandler creates the handler.
func NewCancelRequestHandler(
	requests domain.RequestRepository,
	contacts domain.ContactRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *CancelRequestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CancelRequestHandler{
		requests:   requests,
		contacts:   contacts,
		outboxRepo: outboxRepo,
		uow:        uow,
		logger:     logger,
	}
}

// Handle cancels the request from whatever stage it is in and returns the
// contact to an unresolved appointment state.
func (h *CancelRequestHandler) Handle(ctx context.Context, cmd CancelRequestCommand) error {
	request, err := h.requests.FindByID(ctx, cmd.RequestID, cmd.TenantID)
	if err != nil {
		return err
	}

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := request.Cancel(cmd.Reason, cmd.ProcessedBy); err != nil {
			return err
		}
		if err := h.requests.Save(txCtx, request); err != nil {
			return err
		}

		contact, err := h.contacts.FindByID(txCtx, request.ContactID(), cmd.TenantID)
		if err == nil && contact != nil {
			contact.RevertToPending()
			if err := h.contacts.Save(txCtx, contact); err != nil {
				return err
			}
		}

		events := request.DomainEvents()
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(cmd.TenantID, cmd.ProcessedBy))
		msgs, err := outbox.FromDomainEvents(events)
		if err != nil {
			return err
		}
		if err := h.outboxRepo.SaveBatch(txCtx, msgs); err != nil {
			return err
		}
		request.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return err
	}

	h.logger.Info("reschedule request cancelled",
		"request_id", request.ID(),
		"reason", cmd.Reason,
	)
	return nil
}
