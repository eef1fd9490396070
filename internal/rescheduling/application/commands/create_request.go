// Package commands contains the rescheduling command handlers.
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

// CreateRequestCommand is the intake payload from a webhook or the manual
// API. Mode is required: the caller always states whether the workflow runs
// automated or manual.
type CreateRequestCommand struct {
	TenantID                uuid.UUID
	ContactID               uuid.UUID
	CallSessionID           string
	WebhookEventID          string
	OriginalAppointmentTime time.Time
	OriginalAppointmentType string
	RescheduleReason        domain.RescheduleReason
	CustomerPreference      string
	UrgencyLevel            domain.UrgencyLevel
	ProposedTimes           []time.Time
	Mode                    workflow.Mode
}

// CreateRequestResult reports the created (or deduplicated) request and how
// far the workflow advanced.
type CreateRequestResult struct {
	Request *domain.ReschedulingRequest
	Created bool
	Run     *workflow.RunResult
}

// CreateRequestHandler handles CreateRequestCommand.
type CreateRequestHandler struct {
	requests   domain.RequestRepository
	contacts   domain.ContactRepository
	tenants    domain.TenantConfigRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	engine     *workflow.Engine
	logger     *slog.Logger
}

// NewCreateRequestHandler creates the handler.
func NewCreateRequestHandler(
	requests domain.RequestRepository,
	contacts domain.ContactRepository,
	tenants domain.TenantConfigRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	engine *workflow.Engine,
	logger *slog.Logger,
) *CreateRequestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateRequestHandler{
		requests:   requests,
		contacts:   contacts,
		tenants:    tenants,
		outboxRepo: outboxRepo,
		uow:        uow,
		engine:     engine,
		logger:     logger,
	}
}

// Handle validates intake, deduplicates, persists the new request and runs
// the workflow. Validation failures create no state. A duplicate trigger
// returns the existing request without spawning a second workflow.
func (h *CreateRequestHandler) Handle(ctx context.Context, cmd CreateRequestCommand) (*CreateRequestResult, error) {
	if !cmd.Mode.IsValid() {
		return nil, workflow.ErrUnknownMode
	}

	if cmd.WebhookEventID != "" {
		existing, err := h.requests.FindByWebhookEventID(ctx, cmd.TenantID, cmd.WebhookEventID)
		if err != nil && err != domain.ErrRequestNotFound {
			return nil, err
		}
		if existing != nil {
			return &CreateRequestResult{Request: existing, Created: false}, nil
		}
	}

	request, err := domain.NewReschedulingRequest(domain.NewRequestInput{
		TenantID:                cmd.TenantID,
		ContactID:               cmd.ContactID,
		CallSessionID:           cmd.CallSessionID,
		WebhookEventID:          cmd.WebhookEventID,
		OriginalAppointmentTime: cmd.OriginalAppointmentTime,
		OriginalAppointmentType: cmd.OriginalAppointmentType,
		RescheduleReason:        cmd.RescheduleReason,
		CustomerPreference:      cmd.CustomerPreference,
		UrgencyLevel:            cmd.UrgencyLevel,
		ProposedTimes:           cmd.ProposedTimes,
	})
	if err != nil {
		return nil, err
	}

	contact, err := h.contacts.FindByID(ctx, cmd.ContactID, cmd.TenantID)
	if err != nil {
		return nil, err
	}

	var created bool
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		existing, wasCreated, err := h.requests.Create(txCtx, request)
		if err != nil {
			return err
		}
		created = wasCreated
		if !wasCreated {
			request = existing
			return nil
		}

		contact.BeginRescheduling()
		if err := h.contacts.Save(txCtx, contact); err != nil {
			return err
		}

		events := request.DomainEvents()
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(cmd.TenantID, "create-request"))
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

	if !created {
		h.logger.Info("duplicate reschedule trigger collapsed",
			"request_id", request.ID(),
			"idempotency_key", request.IdempotencyKey(),
		)
		return &CreateRequestResult{Request: request, Created: false}, nil
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

	return &CreateRequestResult{Request: request, Created: true, Run: run}, nil
}
