package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	"github.com/caniken03/vioconcierge/internal/notification/domain"
	"github.com/google/uuid"
)

// DispatchInput describes one outbound slot offer.
type DispatchInput struct {
	RequestID    uuid.UUID
	TenantID     uuid.UUID
	ContactID    uuid.UUID
	Recipient    domain.Recipient
	Channel      domain.Channel
	BusinessName string
	OriginalTime time.Time
	Slots        []availability.Slot
	Reminder     bool

	// PreviousToken, when set, is revoked before the new token is issued
	// so only one token is live per outstanding notification.
	PreviousToken string
}

// DispatchResult reports what went out.
type DispatchResult struct {
	Token      string
	Channel    domain.Channel
	Delivered  bool
	ExternalID string
}

// DispatchService fans a slot offer out to the contact's preferred channel.
type DispatchService struct {
	adapters map[domain.Channel]domain.Adapter
	tokens   *TokenService
	logger   *slog.Logger
}

// NewDispatchService creates a dispatch service over the given adapters.
func NewDispatchService(tokens *TokenService, adapters []domain.Adapter, logger *slog.Logger) *DispatchService {
	if logger == nil {
		logger = slog.Default()
	}
	byChannel := make(map[domain.Channel]domain.Adapter, len(adapters))
	for _, adapter := range adapters {
		byChannel[adapter.Channel()] = adapter
	}
	return &DispatchService{adapters: byChannel, tokens: tokens, logger: logger}
}

// Dispatch issues a fresh token and sends the offer. A send failure leaves no
// live token behind, so a retry re-issues cleanly.
func (s *DispatchService) Dispatch(ctx context.Context, input DispatchInput) (DispatchResult, error) {
	channel := input.Channel
	if !channel.IsValid() {
		channel = domain.ChannelEmail
	}
	adapter, ok := s.adapters[channel]
	if !ok {
		return DispatchResult{}, fmt.Errorf("%w: %s", domain.ErrChannelUnavailable, channel)
	}

	if input.PreviousToken != "" {
		if err := s.tokens.Revoke(ctx, input.PreviousToken); err != nil {
			return DispatchResult{}, fmt.Errorf("revoke previous token: %w", err)
		}
	}

	var token string
	var err error
	ttl := s.tokens.ttl
	if input.Reminder {
		token, err = s.tokens.IssueReminder(ctx, input.RequestID, input.TenantID, input.ContactID, input.Slots)
		ttl = s.tokens.reminderTTL
	} else {
		token, err = s.tokens.Issue(ctx, input.RequestID, input.TenantID, input.ContactID, input.Slots)
	}
	if err != nil {
		return DispatchResult{}, err
	}

	offer := domain.SlotOffer{
		RequestID:    input.RequestID,
		Token:        token,
		BusinessName: input.BusinessName,
		OriginalTime: input.OriginalTime,
		Slots:        input.Slots,
		Reminder:     input.Reminder,
		TokenTTL:     ttl,
	}

	delivery, err := adapter.Send(ctx, input.Recipient, offer)
	if err != nil {
		// Drop the token so the retry path starts clean.
		_ = s.tokens.Revoke(ctx, token)
		s.logger.Warn("notification dispatch failed",
			"request_id", input.RequestID,
			"channel", channel,
			"error", err,
		)
		return DispatchResult{}, err
	}

	s.logger.Info("notification dispatched",
		"request_id", input.RequestID,
		"channel", channel,
		"delivered", delivery.Delivered,
	)
	return DispatchResult{
		Token:      token,
		Channel:    channel,
		Delivered:  delivery.Delivered,
		ExternalID: delivery.ExternalID,
	}, nil
}
