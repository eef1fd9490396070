package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/caniken03/vioconcierge/internal/notification/domain"
)

// SMS messages carry a length-capped digest: at most smsMaxSlots slots and
// smsMaxLength characters, with the response link always included.
const (
	smsMaxSlots  = 3
	smsMaxLength = 320
)

// SMSGatewayConfig configures the SMS adapter.
type SMSGatewayConfig struct {
	BaseURL  string
	APIKey   string
	Sender   string
	LinkBase string
	Timeout  time.Duration
}

// SMSAdapter delivers slot digests through a REST SMS gateway.
type SMSAdapter struct {
	config SMSGatewayConfig
	client *http.Client
	logger *slog.Logger
}

// NewSMSAdapter creates an SMS adapter.
func NewSMSAdapter(config SMSGatewayConfig, logger *slog.Logger) *SMSAdapter {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMSAdapter{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// Channel implements domain.Adapter.
func (a *SMSAdapter) Channel() domain.Channel {
	return domain.ChannelSMS
}

type smsRequest struct {
	To   string `json:"to"`
	From string `json:"from"`
	Body string `json:"body"`
}

type smsResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Send posts the digest to the gateway.
func (a *SMSAdapter) Send(ctx context.Context, recipient domain.Recipient, offer domain.SlotOffer) (domain.Delivery, error) {
	if recipient.Phone == "" {
		return domain.Delivery{}, fmt.Errorf("%w: recipient has no phone number", domain.ErrChannelUnavailable)
	}

	payload, err := json.Marshal(smsRequest{
		To:   recipient.Phone,
		From: a.config.Sender,
		Body: RenderSMSDigest(offer, a.config.LinkBase),
	})
	if err != nil {
		return domain.Delivery{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return domain.Delivery{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.Delivery{}, fmt.Errorf("%w: %v", domain.ErrChannelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.Delivery{}, fmt.Errorf("%w: gateway status %d", domain.ErrChannelUnavailable, resp.StatusCode)
	}

	var res smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return domain.Delivery{}, err
	}
	return domain.Delivery{Delivered: res.Status != "failed", ExternalID: res.ID}, nil
}

// RenderSMSDigest builds the capped SMS body. Exported for tests.
func RenderSMSDigest(offer domain.SlotOffer, linkBase string) string {
	var b strings.Builder

	prefix := "Reschedule"
	if offer.Reminder {
		prefix = "Reminder: reschedule"
	}
	fmt.Fprintf(&b, "%s your %s appointment. Reply options:\n", prefix, businessOr(offer.BusinessName))

	shown := len(offer.Slots)
	if shown > smsMaxSlots {
		shown = smsMaxSlots
	}
	for i := 0; i < shown; i++ {
		fmt.Fprintf(&b, "%d) %s\n", i+1, offer.Slots[i].StartTime.Format("Mon Jan 2 3:04PM"))
	}
	if len(offer.Slots) > shown {
		fmt.Fprintf(&b, "+%d more online\n", len(offer.Slots)-shown)
	}
	fmt.Fprintf(&b, "%s/r/%s", strings.TrimRight(linkBase, "/"), offer.Token)

	digest := b.String()
	if len(digest) > smsMaxLength {
		digest = digest[:smsMaxLength]
	}
	return digest
}
