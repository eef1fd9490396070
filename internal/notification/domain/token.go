// Package domain defines the response-token model and the outbound channel
// port. A token is an opaque secret binding one outstanding notification to
// the rescheduling request and slot list it was sent for.
package domain

import (
	"context"
	"errors"
	"time"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers unknown, already-used, and expired tokens.
	// Responders only ever learn "invalid or expired".
	ErrInvalidToken = errors.New("invalid or expired token")

	ErrSlotIndexOutOfRange = errors.New("selected slot index out of range")
)

// TokenBinding is the context a token resolves to. Redemption never needs to
// load the rescheduling request to validate, only to act on the result.
type TokenBinding struct {
	RequestID uuid.UUID           `json:"request_id"`
	TenantID  uuid.UUID           `json:"tenant_id"`
	ContactID uuid.UUID           `json:"contact_id"`
	ExpiresAt time.Time           `json:"expires_at"`
	Slots     []availability.Slot `json:"slots"`
}

// Expired reports whether the binding is past its deadline.
func (b TokenBinding) Expired(now time.Time) bool {
	return !b.ExpiresAt.After(now)
}

// TokenStore persists token bindings with TTL and single-use semantics.
// Take is the only consuming read: it must atomically return-and-delete so a
// token can never be redeemed twice, even under concurrent redemption.
type TokenStore interface {
	Save(ctx context.Context, token string, binding TokenBinding, ttl time.Duration) error

	// Peek returns the binding without consuming it. Expired or unknown
	// tokens yield ErrInvalidToken.
	Peek(ctx context.Context, token string) (TokenBinding, error)

	// Take atomically consumes the token. Expired, unknown, or
	// already-taken tokens yield ErrInvalidToken.
	Take(ctx context.Context, token string) (TokenBinding, error)

	// Revoke removes a token regardless of state. Revoking an unknown
	// token is not an error.
	Revoke(ctx context.Context, token string) error

	// EvictExpired removes tokens past their deadline, returning how many
	// were dropped. Stores with native TTL may report zero.
	EvictExpired(ctx context.Context) (int, error)
}
