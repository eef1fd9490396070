package application_test

import (
	"context"
	"testing"
	"time"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	"github.com/caniken03/vioconcierge/internal/notification/application"
	"github.com/caniken03/vioconcierge/internal/notification/domain"
	"github.com/caniken03/vioconcierge/internal/notification/infrastructure/tokenstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSlots() []availability.Slot {
	return []availability.Slot{
		availability.NewSlot(
			time.Date(2026, 3, 2, 11, 15, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 12, 15, 0, 0, time.UTC),
			availability.ProviderBusinessHours,
		),
		availability.NewSlot(
			time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
			availability.ProviderBusinessHours,
		),
	}
}

func intPtr(v int) *int { return &v }

func TestTokenService_IssueAndRedeem(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemoryStore()
	service := application.NewTokenService(store, 24*time.Hour, 12*time.Hour, nil)

	requestID, tenantID, contactID := uuid.New(), uuid.New(), uuid.New()
	token, err := service.Issue(ctx, requestID, tenantID, contactID, testSlots())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	redemption, err := service.Redeem(ctx, token, intPtr(1))
	require.NoError(t, err)

	assert.Equal(t, requestID, redemption.RequestID)
	assert.Equal(t, tenantID, redemption.TenantID)
	assert.False(t, redemption.Declined)
	require.NotNil(t, redemption.SelectedSlot)
	assert.Equal(t, 14, redemption.SelectedSlot.StartTime.Hour())
}

func TestTokenService_SingleUse(t *testing.T) {
	ctx := context.Background()
	service := application.NewTokenService(tokenstore.NewMemoryStore(), 24*time.Hour, 12*time.Hour, nil)

	token, err := service.Issue(ctx, uuid.New(), uuid.New(), uuid.New(), testSlots())
	require.NoError(t, err)

	_, err = service.Redeem(ctx, token, intPtr(0))
	require.NoError(t, err)

	_, err = service.Redeem(ctx, token, intPtr(0))
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenService_UnknownToken(t *testing.T) {
	service := application.NewTokenService(tokenstore.NewMemoryStore(), 24*time.Hour, 12*time.Hour, nil)

	_, err := service.Redeem(context.Background(), "no-such-token", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenService_Expiry(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	store := tokenstore.NewMemoryStore().WithClock(clock)
	service := application.NewTokenService(store, 24*time.Hour, 12*time.Hour, nil).WithClock(clock)

	token, err := service.Issue(ctx, uuid.New(), uuid.New(), uuid.New(), testSlots())
	require.NoError(t, err)

	current = current.Add(25 * time.Hour)

	_, err = service.Redeem(ctx, token, intPtr(0))
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	// The expired binding is gone, not merely rejected.
	assert.Equal(t, 0, store.Len())
}

func TestTokenService_OutOfRangeSelectionLeavesTokenLive(t *testing.T) {
	ctx := context.Background()
	service := application.NewTokenService(tokenstore.NewMemoryStore(), 24*time.Hour, 12*time.Hour, nil)

	token, err := service.Issue(ctx, uuid.New(), uuid.New(), uuid.New(), testSlots())
	require.NoError(t, err)

	_, err = service.Redeem(ctx, token, intPtr(5))
	require.ErrorIs(t, err, domain.ErrSlotIndexOutOfRange)

	// Retry with a valid index still works.
	redemption, err := service.Redeem(ctx, token, intPtr(0))
	require.NoError(t, err)
	assert.NotNil(t, redemption.SelectedSlot)
}

func TestTokenService_NilSelectionIsDecline(t *testing.T) {
	ctx := context.Background()
	service := application.NewTokenService(tokenstore.NewMemoryStore(), 24*time.Hour, 12*time.Hour, nil)

	token, err := service.Issue(ctx, uuid.New(), uuid.New(), uuid.New(), testSlots())
	require.NoError(t, err)

	redemption, err := service.Redeem(ctx, token, nil)
	require.NoError(t, err)

	assert.True(t, redemption.Declined)
	assert.Nil(t, redemption.SelectedSlot)
}

func TestTokenService_EvictExpired(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	store := tokenstore.NewMemoryStore().WithClock(clock)
	service := application.NewTokenService(store, 24*time.Hour, 12*time.Hour, nil).WithClock(clock)

	_, err := service.Issue(ctx, uuid.New(), uuid.New(), uuid.New(), testSlots())
	require.NoError(t, err)
	_, err = service.IssueReminder(ctx, uuid.New(), uuid.New(), uuid.New(), testSlots())
	require.NoError(t, err)

	// Reminder tokens live 12 hours; the first token has 24.
	current = current.Add(13 * time.Hour)

	evicted, err := service.EvictExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, store.Len())
}
