package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/caniken03/vioconcierge/internal/responsiveness/application/services"
	"github.com/caniken03/vioconcierge/internal/responsiveness/domain"
	"github.com/caniken03/vioconcierge/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStatsSource struct {
	stats domain.ContactStats
	err   error
	calls int
}

func (s *stubStatsSource) Stats(_ context.Context, _, _ uuid.UUID) (domain.ContactStats, error) {
	s.calls++
	return s.stats, s.err
}

func consumedEvent(t *testing.T, routingKey string, payload map[string]any) *eventbus.ConsumedEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &eventbus.ConsumedEvent{
		EventID:    uuid.New(),
		RoutingKey: routingKey,
		Payload:    raw,
	}
}

func TestPatternConsumer_RescoresOnTerminalEvents(t *testing.T) {
	source := &stubStatsSource{stats: domain.ContactStats{
		CallAttempts:       10,
		SuccessfulContacts: 8,
	}}
	consumer := NewPatternConsumer(source, services.NewScorer(), nil)

	event := consumedEvent(t, "rescheduling.request.confirmed", map[string]any{
		"tenant_id":  uuid.New(),
		"contact_id": uuid.New(),
	})

	require.NoError(t, consumer.Handle(context.Background(), event))
	assert.Equal(t, 1, source.calls)
}

func TestPatternConsumer_SkipsEventsWithoutContact(t *testing.T) {
	source := &stubStatsSource{}
	consumer := NewPatternConsumer(source, services.NewScorer(), nil)

	event := consumedEvent(t, "rescheduling.request.expired", map[string]any{
		"tenant_id": uuid.New(),
	})

	require.NoError(t, consumer.Handle(context.Background(), event))
	assert.Zero(t, source.calls)
}

func TestPatternConsumer_PropagatesLoadFailure(t *testing.T) {
	source := &stubStatsSource{err: errors.New("contact gone")}
	consumer := NewPatternConsumer(source, services.NewScorer(), nil)

	event := consumedEvent(t, "rescheduling.request.cancelled", map[string]any{
		"tenant_id":  uuid.New(),
		"contact_id": uuid.New(),
	})

	err := consumer.Handle(context.Background(), event)
	assert.ErrorContains(t, err, "contact gone")
}

func TestPatternConsumer_SubscribesToTerminalRoutingKeys(t *testing.T) {
	consumer := NewPatternConsumer(&stubStatsSource{}, services.NewScorer(), nil)
	assert.ElementsMatch(t, []string{
		"rescheduling.request.confirmed",
		"rescheduling.request.cancelled",
		"rescheduling.request.expired",
	}, consumer.EventTypes())
}
