package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caniken03/vioconcierge/internal/notification/application"
	"github.com/caniken03/vioconcierge/internal/notification/domain"
	"github.com/caniken03/vioconcierge/internal/notification/infrastructure/tokenstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	channel   domain.Channel
	lastOffer domain.SlotOffer
	sendErr   error
	sends     int
}

func (f *fakeAdapter) Channel() domain.Channel { return f.channel }

func (f *fakeAdapter) Send(_ context.Context, _ domain.Recipient, offer domain.SlotOffer) (domain.Delivery, error) {
	f.sends++
	f.lastOffer = offer
	if f.sendErr != nil {
		return domain.Delivery{}, f.sendErr
	}
	return domain.Delivery{Delivered: true, ExternalID: "ext-42"}, nil
}

func newDispatchFixture(t *testing.T) (*application.DispatchService, *application.TokenService, *tokenstore.MemoryStore, *fakeAdapter, *fakeAdapter) {
	t.Helper()
	store := tokenstore.NewMemoryStore()
	tokens := application.NewTokenService(store, 24*time.Hour, 12*time.Hour, nil)
	email := &fakeAdapter{channel: domain.ChannelEmail}
	sms := &fakeAdapter{channel: domain.ChannelSMS}
	service := application.NewDispatchService(tokens, []domain.Adapter{email, sms}, nil)
	return service, tokens, store, email, sms
}

func TestDispatch_RoutesByChannel(t *testing.T) {
	service, _, store, email, sms := newDispatchFixture(t)

	result, err := service.Dispatch(context.Background(), application.DispatchInput{
		RequestID: uuid.New(),
		TenantID:  uuid.New(),
		ContactID: uuid.New(),
		Recipient: domain.Recipient{Phone: "+15550100"},
		Channel:   domain.ChannelSMS,
		Slots:     testSlots(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ChannelSMS, result.Channel)
	assert.True(t, result.Delivered)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, 1, sms.sends)
	assert.Equal(t, 0, email.sends)
	assert.Equal(t, 1, store.Len())
}

func TestDispatch_DefaultsToEmailForUnknownChannel(t *testing.T) {
	service, _, _, email, _ := newDispatchFixture(t)

	_, err := service.Dispatch(context.Background(), application.DispatchInput{
		RequestID: uuid.New(),
		TenantID:  uuid.New(),
		ContactID: uuid.New(),
		Recipient: domain.Recipient{Email: "dana@example.com"},
		Channel:   domain.Channel("carrier_pigeon"),
		Slots:     testSlots(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, email.sends)
}

func TestDispatch_SendFailureRevokesToken(t *testing.T) {
	service, _, store, email, _ := newDispatchFixture(t)
	email.sendErr = errors.New("smtp timeout")

	_, err := service.Dispatch(context.Background(), application.DispatchInput{
		RequestID: uuid.New(),
		TenantID:  uuid.New(),
		ContactID: uuid.New(),
		Recipient: domain.Recipient{Email: "dana@example.com"},
		Channel:   domain.ChannelEmail,
		Slots:     testSlots(),
	})
	require.Error(t, err)
	// No orphaned token survives a failed send.
	assert.Equal(t, 0, store.Len())
}

func TestDispatch_ReminderRevokesPreviousToken(t *testing.T) {
	service, tokens, store, email, _ := newDispatchFixture(t)
	ctx := context.Background()

	requestID, tenantID, contactID := uuid.New(), uuid.New(), uuid.New()
	first, err := tokens.Issue(ctx, requestID, tenantID, contactID, testSlots())
	require.NoError(t, err)

	result, err := service.Dispatch(ctx, application.DispatchInput{
		RequestID:     requestID,
		TenantID:      tenantID,
		ContactID:     contactID,
		Recipient:     domain.Recipient{Email: "dana@example.com"},
		Channel:       domain.ChannelEmail,
		Slots:         testSlots(),
		Reminder:      true,
		PreviousToken: first,
	})
	require.NoError(t, err)

	// Exactly one live token: the reminder's.
	assert.Equal(t, 1, store.Len())
	assert.NotEqual(t, first, result.Token)
	assert.True(t, email.lastOffer.Reminder)
	// The rendered expiry follows the shorter reminder lifetime.
	assert.Equal(t, 12*time.Hour, email.lastOffer.TokenTTL)

	_, err = tokens.Redeem(ctx, first, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestDispatch_MissingAdapter(t *testing.T) {
	store := tokenstore.NewMemoryStore()
	tokens := application.NewTokenService(store, 24*time.Hour, 12*time.Hour, nil)
	service := application.NewDispatchService(tokens, nil, nil)

	_, err := service.Dispatch(context.Background(), application.DispatchInput{
		Channel: domain.ChannelEmail,
	})
	assert.ErrorIs(t, err, domain.ErrChannelUnavailable)
}
