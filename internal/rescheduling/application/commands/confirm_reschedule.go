package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/caniken03/vioconcierge/internal/rescheduling/application/workflow"
	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	sharedApplication "github.com/caniken03/vioconcierge/internal/shared/application"
	"github.com/caniken03/vioconcierge/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// ConfirmRescheduleCommand approves a time for a paused request and resumes
// the workflow at the calendar-update stage.
type ConfirmRescheduleCommand struct {
	RequestID    uuid.UUID
	TenantID     uuid.UUID
	SelectedTime time.Time
	ProcessedBy  string
}

// ConfirmRescheduleHandler handles ConfirmRescheduleCommand.
type ConfirmRescheduleHandler struct {
	requests   domain.RequestRepository
	contacts   domain.ContactRepository
	tenants    domain.TenantConfigRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	engine     *workflow.Engine
	logger     *slog.Logger
}

// NewConfirmRescheduleHandler creates the handler.
func NewConfirmRescheduleHandler(
	requests domain.RequestRepository,
	contacts domain.ContactRepository,
	tenants domain.TenantConfigRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	engine *workflow.Engine,
	logger *slog.Logger,
) *ConfirmRescheduleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmRescheduleHandler{
		requests:   requests,
		contacts:   contacts,
		tenants:    tenants,
		outboxRepo: outboxRepo,
		uow:        uow,
		engine:     engine,
		logger:     logger,
	}
}

// Handle records the approval, updates the contact's appointment, and runs
// the remaining workflow stages in automated mode.
func (h *ConfirmRescheduleHandler) Handle(ctx context.Context, cmd ConfirmRescheduleCommand) (*workflow.RunResult, error) {
	request, err := h.requests.FindByID(ctx, cmd.RequestID, cmd.TenantID)
	if err != nil {
		return nil, err
	}

	contact, err := h.contacts.FindByID(ctx, request.ContactID(), cmd.TenantID)
	if err != nil {
		return nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := request.Approve(cmd.SelectedTime, cmd.ProcessedBy); err != nil {
			return err
		}
		if err := h.requests.Save(txCtx, request); err != nil {
			return err
		}

		contact.ConfirmAppointment(cmd.SelectedTime)
		if err := h.contacts.Save(txCtx, contact); err != nil {
			return err
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
		return nil, err
	}

	tenant, err := h.tenants.FindByID(ctx, cmd.TenantID)
	if err != nil {
		return nil, err
	}

	run, err := h.engine.Run(ctx, request, &workflow.StageContext{
		Tenant:  tenant,
		Contact: contact,
		Mode:    workflow.ModeAutomated,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("reschedule confirmed",
		"request_id", request.ID(),
		"selected_time", cmd.SelectedTime,
		"final_status", run.Status,
	)
	return run, nil
}
