// Package consumers reacts to rescheduling lifecycle events on the event bus.
package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/caniken03/vioconcierge/internal/responsiveness/application/services"
	"github.com/caniken03/vioconcierge/internal/responsiveness/domain"
	"github.com/caniken03/vioconcierge/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// ContactStatsSource loads the persisted responsiveness counters for a contact.
type ContactStatsSource interface {
	Stats(ctx context.Context, contactID, tenantID uuid.UUID) (domain.ContactStats, error)
}

// PatternConsumer recomputes a contact's responsiveness pattern whenever a
// rescheduling request reaches a terminal state. The derived pattern is never
// stored; the consumer surfaces it in the logs so scoring drift is visible
// without an API round trip.
type PatternConsumer struct {
	stats  ContactStatsSource
	scorer *services.Scorer
	logger *slog.Logger
}

// NewPatternConsumer creates the consumer.
func NewPatternConsumer(stats ContactStatsSource, scorer *services.Scorer, logger *slog.Logger) *PatternConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PatternConsumer{
		stats:  stats,
		scorer: scorer,
		logger: logger,
	}
}

// EventTypes returns the routing keys this consumer handles.
func (c *PatternConsumer) EventTypes() []string {
	return []string{
		"rescheduling.request.confirmed",
		"rescheduling.request.cancelled",
		"rescheduling.request.expired",
	}
}

type contactRef struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	ContactID uuid.UUID `json:"contact_id"`
}

// Handle rescoring for the contact referenced by the event.
func (c *PatternConsumer) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var ref contactRef
	if err := json.Unmarshal(event.Payload, &ref); err != nil {
		return fmt.Errorf("decode event payload: %w", err)
	}
	if ref.ContactID == uuid.Nil {
		c.logger.Warn("event payload has no contact reference",
			"routing_key", event.RoutingKey,
			"event_id", event.EventID,
		)
		return nil
	}

	stats, err := c.stats.Stats(ctx, ref.ContactID, ref.TenantID)
	if err != nil {
		return fmt.Errorf("load contact stats: %w", err)
	}

	pattern := c.scorer.Score(stats, domain.Analytics{})
	c.logger.Info("responsiveness pattern refreshed",
		"contact_id", ref.ContactID,
		"tenant_id", ref.TenantID,
		"trigger", event.RoutingKey,
		"overall_score", pattern.OverallScore,
		"trend", pattern.TrendDirection,
		"risk", pattern.Predictions.AppointmentRisk,
		"strategy", pattern.Predictions.RecommendedStrategy,
	)
	return nil
}
