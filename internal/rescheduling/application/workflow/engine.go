// Package workflow implements the rescheduling state machine: one processor
// per stage, dispatched from a lookup table, advanced by an iterative loop
// with a hard iteration bound.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	sharedApplication "github.com/caniken03/vioconcierge/internal/shared/application"
	"github.com/caniken03/vioconcierge/internal/shared/infrastructure/outbox"
)

var (
	// ErrUnknownMode rejects calls that do not state the workflow mode.
	// The mode is always an explicit caller decision, never inferred.
	ErrUnknownMode = errors.New("workflow mode must be automated or manual")

	ErrNoProcessor = errors.New("no processor registered for stage")
)

// Mode selects whether the engine chains stages or runs exactly one.
type Mode string

const (
	ModeAutomated Mode = "automated"
	ModeManual    Mode = "manual"
)

// IsValid reports whether the mode is one the engine accepts.
func (m Mode) IsValid() bool {
	return m == ModeAutomated || m == ModeManual
}

// StageContext carries the collaborating state a processor may need.
type StageContext struct {
	Tenant  *domain.TenantConfig
	Contact *domain.Contact
	Mode    Mode
	Now     time.Time
}

// StageResult is a processor's outcome. Every result carries a
// human-readable message; callers translate status into presentation.
type StageResult struct {
	Status  domain.Status
	Message string

	// Pause stops automated chaining: the stage awaits external input
	// (a customer reply or operator approval).
	Pause bool
}

// StageProcessor handles exactly one workflow stage.
type StageProcessor interface {
	Stage() domain.Stage

	// CanProcess is the entry guard: stage matches and status allows it.
	CanProcess(request *domain.ReschedulingRequest) bool

	// Process runs the stage, mutating the request. It never persists.
	Process(ctx context.Context, request *domain.ReschedulingRequest, sc *StageContext) StageResult

	// NextStage returns the following forward stage, or false at the end.
	NextStage() (domain.Stage, bool)
}

// RunResult summarizes an engine run.
type RunResult struct {
	Status  domain.Status
	Stage   domain.Stage
	Message string
}

// Engine advances rescheduling requests through their stages, persisting
// each stage's output and its domain events transactionally before moving on.
type Engine struct {
	processors map[domain.Stage]StageProcessor
	requests   domain.RequestRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	logger     *slog.Logger
}

// NewEngine creates an engine over the given processors.
func NewEngine(
	processors []StageProcessor,
	requests domain.RequestRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	table := make(map[domain.Stage]StageProcessor, len(processors))
	for _, p := range processors {
		table[p.Stage()] = p
	}
	return &Engine{
		processors: table,
		requests:   requests,
		outboxRepo: outboxRepo,
		uow:        uow,
		logger:     logger,
	}
}

// Run advances the request until a stage pauses, blocks, fails, or the
// workflow completes. In manual mode exactly one stage runs. The loop is
// bounded by the number of forward stages, so a future stage wired without
// pause logic cannot spin the engine.
func (e *Engine) Run(ctx context.Context, request *domain.ReschedulingRequest, sc *StageContext) (*RunResult, error) {
	if !sc.Mode.IsValid() {
		return nil, ErrUnknownMode
	}
	if sc.Now.IsZero() {
		sc.Now = time.Now().UTC()
	}

	last := &RunResult{
		Status:  request.Status(),
		Stage:   request.WorkflowStage(),
		Message: "no stage processed",
	}

	maxIterations := len(domain.ForwardStages())
	for i := 0; i < maxIterations; i++ {
		if request.Status().IsTerminal() {
			break
		}
		if request.Status() != domain.StatusPending && request.Status() != domain.StatusApproved {
			break
		}

		processor, ok := e.processors[request.WorkflowStage()]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoProcessor, request.WorkflowStage())
		}
		if !processor.CanProcess(request) {
			break
		}

		stage := request.WorkflowStage()
		result := processor.Process(ctx, request, sc)

		switch result.Status {
		case domain.StatusBlocked:
			request.MarkBlocked()
		case domain.StatusError:
			request.MarkError()
		}

		advanced := false
		if stageSucceeded(result) {
			if next, ok := processor.NextStage(); ok {
				if err := request.AdvanceTo(next); err != nil {
					return nil, err
				}
				advanced = true
			}
		}

		if err := e.persist(ctx, request); err != nil {
			return nil, err
		}

		e.logger.Info("workflow stage processed",
			"request_id", request.ID(),
			"stage", stage,
			"status", result.Status,
			"mode", sc.Mode,
		)

		last = &RunResult{
			Status:  request.Status(),
			Stage:   request.WorkflowStage(),
			Message: result.Message,
		}

		if result.Pause || !stageSucceeded(result) || !advanced {
			break
		}
		if sc.Mode == ModeManual {
			break
		}
	}

	return last, nil
}

func stageSucceeded(result StageResult) bool {
	switch result.Status {
	case domain.StatusBlocked, domain.StatusError, domain.StatusRejected:
		return false
	}
	return !result.Pause
}

// persist saves the request and drains its domain events to the outbox in
// one transaction, so partial progress is never lost and events never
// outrun state.
func (e *Engine) persist(ctx context.Context, request *domain.ReschedulingRequest) error {
	return sharedApplication.WithUnitOfWork(ctx, e.uow, func(txCtx context.Context) error {
		if err := e.requests.Save(txCtx, request); err != nil {
			return err
		}

		events := request.DomainEvents()
		if len(events) == 0 {
			return nil
		}
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(request.TenantID(), "workflow-engine"))
		msgs, err := outbox.FromDomainEvents(events)
		if err != nil {
			return err
		}
		if err := e.outboxRepo.SaveBatch(txCtx, msgs); err != nil {
			return err
		}
		request.ClearDomainEvents()
		return nil
	})
}
