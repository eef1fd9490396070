package commands

import (
	"context"
	"log/slog"

	"github.com/caniken03/vioconcierge/internal/rescheduling/application/workflow"
	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	sharedApplication "github.com/caniken03/vioconcierge/internal/shared/application"
	"github.com/google/uuid"
)

// ProcessWorkflowCommand re-runs the engine on an existing request: the
// operator's lever to advance a manual-mode request one stage, or to retry
// one that is blocked or errored. Mode is required, as everywhere.
type ProcessWorkflowCommand struct {
	RequestID uuid.UUID
	TenantID  uuid.UUID
	Mode      workflow.Mode
}

// ProcessWorkflowHandler handles ProcessWorkflowCommand.
type ProcessWorkflowHandler struct {
	requests domain.RequestRepository
	contacts domain.ContactRepository
	tenants  domain.TenantConfigRepository
	uow      sharedApplication.UnitOfWork
	engine   *workflow.Engine
	logger   *slog.Logger
}

// NewProcessWorkflowHandler creates the handler.
func NewProcessWorkflowHandler(
	requests domain.RequestRepository,
	contacts domain.ContactRepository,
	tenants domain.TenantConfigRepository,
	uow sharedApplication.UnitOfWork,
	engine *workflow.Engine,
	logger *slog.Logger,
) *ProcessWorkflowHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessWorkflowHandler{
		requests: requests,
		contacts: contacts,
		tenants:  tenants,
		uow:      uow,
		engine:   engine,
		logger:   logger,
	}
}

// Handle loads the request, reopens it when a previous run left it blocked
// or errored, and runs the engine in the requested mode. Terminal requests
// cannot be processed again.
func (h *ProcessWorkflowHandler) Handle(ctx context.Context, cmd ProcessWorkflowCommand) (*workflow.RunResult, error) {
	if !cmd.Mode.IsValid() {
		return nil, workflow.ErrUnknownMode
	}

	request, err := h.requests.FindByID(ctx, cmd.RequestID, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	if request.Status().IsTerminal() {
		return nil, domain.ErrRequestTerminal
	}

	if request.Status() == domain.StatusBlocked || request.Status() == domain.StatusError {
		err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
			if err := request.Reopen(); err != nil {
				return err
			}
			return h.requests.Save(txCtx, request)
		})
		if err != nil {
			return nil, err
		}
		h.logger.Info("request reopened for retry",
			"request_id", request.ID(),
			"stage", request.WorkflowStage(),
		)
	}

	contact, err := h.contacts.FindByID(ctx, request.ContactID(), cmd.TenantID)
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
		Mode:    cmd.Mode,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("workflow processed",
		"request_id", request.ID(),
		"mode", cmd.Mode,
		"stage", run.Stage,
		"status", run.Status,
	)
	return run, nil
}
