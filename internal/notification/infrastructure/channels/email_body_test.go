package channels

import (
	"testing"
	"time"

	availability "github.com/caniken03/vioconcierge/internal/availability/domain"
	"github.com/caniken03/vioconcierge/internal/notification/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func emailOffer(ttl time.Duration, reminder bool) domain.SlotOffer {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return domain.SlotOffer{
		RequestID:    uuid.New(),
		Token:        "tok-abc123",
		BusinessName: "Lakeside Dental",
		OriginalTime: start.Add(-48 * time.Hour),
		Slots: []availability.Slot{
			availability.NewSlot(start, start.Add(30*time.Minute), availability.ProviderBusinessHours),
		},
		Reminder: reminder,
		TokenTTL: ttl,
	}
}

func TestRenderEmailBody_ExpiryMatchesTokenLifetime(t *testing.T) {
	recipient := domain.Recipient{Name: "Dana", Email: "dana@example.com"}

	body := renderEmailBody(recipient, emailOffer(24*time.Hour, false), "https://r.example.com")
	assert.Contains(t, body, "This link expires in 24 hours.")

	reminder := renderEmailBody(recipient, emailOffer(12*time.Hour, true), "https://r.example.com")
	assert.Contains(t, reminder, "This link expires in 12 hours.")
	assert.Contains(t, reminder, "Just a reminder")
	assert.NotContains(t, reminder, "24 hours")
}

func TestRenderEmailBody_DefaultsExpiryWhenUnset(t *testing.T) {
	body := renderEmailBody(domain.Recipient{}, emailOffer(0, false), "https://r.example.com")
	assert.Contains(t, body, "This link expires in 24 hours.")
	assert.Contains(t, body, "Hi there,")
}
