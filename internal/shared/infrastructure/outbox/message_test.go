package outbox_test

import (
	"testing"
	"time"

	"github.com/caniken03/vioconcierge/internal/shared/domain"
	"github.com/caniken03/vioconcierge/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	domain.BaseEvent
	Detail string `json:"detail"`
}

func newTestEvent() testEvent {
	return testEvent{
		BaseEvent: domain.NewBaseEvent(uuid.New(), "ReschedulingRequest", "rescheduling.request.created"),
		Detail:    "created",
	}
}

func TestNewMessage(t *testing.T) {
	event := newTestEvent()

	msg, err := outbox.NewMessage(event)
	require.NoError(t, err)

	assert.Equal(t, event.EventID(), msg.EventID)
	assert.Equal(t, "ReschedulingRequest", msg.AggregateType)
	assert.Equal(t, event.AggregateID(), msg.AggregateID)
	assert.Equal(t, "rescheduling.request.created", msg.RoutingKey)
	assert.Equal(t, msg.RoutingKey, msg.EventType)
	assert.NotEmpty(t, msg.Payload)
	assert.False(t, msg.IsPublished())
	assert.False(t, msg.IsDead())
}

func TestFromDomainEvents(t *testing.T) {
	events := []domain.DomainEvent{newTestEvent(), newTestEvent()}

	msgs, err := outbox.FromDomainEvents(events)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, events[0].EventID(), msgs[0].EventID)
	assert.Equal(t, events[1].EventID(), msgs[1].EventID)
}

func TestMessage_CanRetry(t *testing.T) {
	msg := &outbox.Message{RetryCount: 2}

	assert.True(t, msg.CanRetry(3))
	assert.False(t, msg.CanRetry(2))
}

func TestMessage_IsPublished(t *testing.T) {
	now := time.Now()
	msg := &outbox.Message{PublishedAt: &now}

	assert.True(t, msg.IsPublished())
}
