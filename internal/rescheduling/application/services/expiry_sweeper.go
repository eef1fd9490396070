package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	sharedApplication "github.com/caniken03/vioconcierge/internal/shared/application"
	"github.com/caniken03/vioconcierge/internal/shared/infrastructure/outbox"
)

// DefaultRetention bounds how long an unresolved request can linger.
const DefaultRetention = 7 * 24 * time.Hour

// ExpirySweeper closes stalled rescheduling requests past the retention
// window and reverts their contacts to a pending appointment state.
type ExpirySweeper struct {
	requests   domain.RequestRepository
	contacts   domain.ContactRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	retention  time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewExpirySweeper creates a sweeper.
func NewExpirySweeper(
	requests domain.RequestRepository,
	contacts domain.ContactRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	retention time.Duration,
	logger *slog.Logger,
) *ExpirySweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpirySweeper{
		requests:   requests,
		contacts:   contacts,
		outboxRepo: outboxRepo,
		uow:        uow,
		retention:  retention,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (s *ExpirySweeper) WithClock(now func() time.Time) *ExpirySweeper {
	s.now = now
	return s
}

// ProcessExpiredRequests sweeps every unresolved request older than the
// retention window. One failing request does not stop the sweep.
func (s *ExpirySweeper) ProcessExpiredRequests(ctx context.Context) (int, error) {
	now := s.now().UTC()
	cutoff := now.Add(-s.retention)

	stale, err := s.requests.FindUnresolvedOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, request := range stale {
		if err := s.expireOne(ctx, request, now); err != nil {
			s.logger.Error("expiry sweep failed for request",
				"request_id", request.ID(),
				"error", err,
			)
			continue
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("stale rescheduling requests expired", "count", expired)
	}
	return expired, nil
}

func (s *ExpirySweeper) expireOne(ctx context.Context, request *domain.ReschedulingRequest, now time.Time) error {
	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		if err := request.Expire(now); err != nil {
			return err
		}
		if err := s.requests.Save(txCtx, request); err != nil {
			return err
		}

		contact, err := s.contacts.FindByID(txCtx, request.ContactID(), request.TenantID())
		if err == nil && contact != nil {
			contact.RevertToPending()
			if err := s.contacts.Save(txCtx, contact); err != nil {
				return err
			}
		}

		events := request.DomainEvents()
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(request.TenantID(), "expiry-sweeper"))
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
