// Package application holds the response-token service and notification
// dispatch orchestration.
package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	"github.com/caniken03/vioconcierge/internal/notification/domain"
	"github.com/google/uuid"
)

const tokenBytes = 32

// TokenService issues and redeems single-use response tokens.
type TokenService struct {
	store       domain.TokenStore
	ttl         time.Duration
	reminderTTL time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewTokenService creates a token service. ttl applies to first notifications,
// reminderTTL to follow-up reminders.
func NewTokenService(store domain.TokenStore, ttl, reminderTTL time.Duration, logger *slog.Logger) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if reminderTTL <= 0 {
		reminderTTL = 12 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenService{
		store:       store,
		ttl:         ttl,
		reminderTTL: reminderTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the time source, used by expiry tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue creates a cryptographically random token bound to the request and
// its slot snapshot.
func (s *TokenService) Issue(ctx context.Context, requestID, tenantID, contactID uuid.UUID, slots []availability.Slot) (string, error) {
	return s.issue(ctx, requestID, tenantID, contactID, slots, s.ttl)
}

// IssueReminder creates a shorter-lived token for a follow-up reminder.
func (s *TokenService) IssueReminder(ctx context.Context, requestID, tenantID, contactID uuid.UUID, slots []availability.Slot) (string, error) {
	return s.issue(ctx, requestID, tenantID, contactID, slots, s.reminderTTL)
}

func (s *TokenService) issue(ctx context.Context, requestID, tenantID, contactID uuid.UUID, slots []availability.Slot, ttl time.Duration) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	binding := domain.TokenBinding{
		RequestID: requestID,
		TenantID:  tenantID,
		ContactID: contactID,
		ExpiresAt: s.now().Add(ttl),
		Slots:     slots,
	}
	if err := s.store.Save(ctx, token, binding, ttl); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}

	s.logger.Debug("response token issued",
		"request_id", requestID,
		"expires_at", binding.ExpiresAt,
	)
	return token, nil
}

// Redemption is the outcome of a valid customer response.
type Redemption struct {
	RequestID    uuid.UUID
	TenantID     uuid.UUID
	ContactID    uuid.UUID
	Declined     bool
	SelectedSlot *availability.Slot
}

// Redeem validates and consumes a token. A nil selection means the customer
// declined every offered slot. An out-of-range selection leaves the token
// live so the customer can retry with a valid index.
func (s *TokenService) Redeem(ctx context.Context, token string, selection *int) (Redemption, error) {
	binding, err := s.store.Peek(ctx, token)
	if err != nil {
		return Redemption{}, err
	}
	if binding.Expired(s.now()) {
		_ = s.store.Revoke(ctx, token)
		return Redemption{}, domain.ErrInvalidToken
	}

	if selection != nil && (*selection < 0 || *selection >= len(binding.Slots)) {
		return Redemption{}, fmt.Errorf("%w: %d of %d", domain.ErrSlotIndexOutOfRange, *selection, len(binding.Slots))
	}

	// Consume only after validation. Take is atomic, so a concurrent
	// redemption of the same token loses here with ErrInvalidToken.
	binding, err = s.store.Take(ctx, token)
	if err != nil {
		return Redemption{}, err
	}

	redemption := Redemption{
		RequestID: binding.RequestID,
		TenantID:  binding.TenantID,
		ContactID: binding.ContactID,
	}
	if selection == nil {
		redemption.Declined = true
	} else {
		slot := binding.Slots[*selection]
		redemption.SelectedSlot = &slot
	}
	return redemption, nil
}

// Revoke drops a token, used before re-issuing for a reminder so only one
// token is live per outstanding notification.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	return s.store.Revoke(ctx, token)
}

// EvictExpired sweeps tokens past their deadline.
func (s *TokenService) EvictExpired(ctx context.Context) (int, error) {
	evicted, err := s.store.EvictExpired(ctx)
	if err != nil {
		return 0, err
	}
	if evicted > 0 {
		s.logger.Info("expired response tokens evicted", "count", evicted)
	}
	return evicted, nil
}

func randomToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
