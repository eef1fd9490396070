package domain

import (
	"context"
	"errors"
	"time"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	"github.com/google/uuid"
)

var ErrChannelUnavailable = errors.New("notification channel unavailable")

// Channel identifies a delivery medium.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelVoice Channel = "voice"
)

// IsValid reports whether the channel is one the engine can dispatch on.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelVoice:
		return true
	}
	return false
}

// Recipient is who the notification goes to.
type Recipient struct {
	Name  string
	Email string
	Phone string
}

// SlotOffer is the channel-independent payload: every adapter renders the
// same slot list into its own message shape.
type SlotOffer struct {
	RequestID    uuid.UUID
	Token        string
	BusinessName string
	OriginalTime time.Time
	Slots        []availability.Slot
	Reminder     bool

	// TokenTTL is the issued token's lifetime, so the stated expiry in the
	// message matches the real one. Reminder tokens live shorter.
	TokenTTL time.Duration
}

// Delivery is the adapter's result.
type Delivery struct {
	Delivered  bool
	ExternalID string
}

// Adapter is one concrete delivery channel. Send blocks only for the
// adapter's own latency and returns the delivery outcome.
type Adapter interface {
	Channel() Channel
	Send(ctx context.Context, recipient Recipient, offer SlotOffer) (Delivery, error)
}
