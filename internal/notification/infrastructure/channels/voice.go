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

// VoiceGatewayConfig configures the voice adapter.
type VoiceGatewayConfig struct {
	BaseURL string
	APIKey  string
	Caller  string
	Timeout time.Duration
}

// VoiceAdapter queues an outbound call on a REST voice gateway. The payload
// is a spoken script outline; slot selection happens on the call itself, so
// the script names options by number and the token travels as call metadata.
type VoiceAdapter struct {
	config VoiceGatewayConfig
	client *http.Client
	logger *slog.Logger
}

// NewVoiceAdapter creates a voice adapter.
func NewVoiceAdapter(config VoiceGatewayConfig, logger *slog.Logger) *VoiceAdapter {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VoiceAdapter{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// Channel implements domain.Adapter.
func (a *VoiceAdapter) Channel() domain.Channel {
	return domain.ChannelVoice
}

type voiceRequest struct {
	To       string            `json:"to"`
	From     string            `json:"from"`
	Script   string            `json:"script"`
	Metadata map[string]string `json:"metadata"`
}

type voiceResponse struct {
	CallID string `json:"call_id"`
	Status string `json:"status"`
}

// Send queues the call.
func (a *VoiceAdapter) Send(ctx context.Context, recipient domain.Recipient, offer domain.SlotOffer) (domain.Delivery, error) {
	if recipient.Phone == "" {
		return domain.Delivery{}, fmt.Errorf("%w: recipient has no phone number", domain.ErrChannelUnavailable)
	}

	payload, err := json.Marshal(voiceRequest{
		To:     recipient.Phone,
		From:   a.config.Caller,
		Script: RenderVoiceScript(recipient, offer),
		Metadata: map[string]string{
			"response_token": offer.Token,
			"request_id":     offer.RequestID.String(),
		},
	})
	if err != nil {
		return domain.Delivery{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/calls", bytes.NewReader(payload))
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

	var res voiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return domain.Delivery{}, err
	}
	return domain.Delivery{Delivered: res.Status != "failed", ExternalID: res.CallID}, nil
}

// RenderVoiceScript builds the spoken outline. Exported for tests.
func RenderVoiceScript(recipient domain.Recipient, offer domain.SlotOffer) string {
	var b strings.Builder

	name := recipient.Name
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hello %s. This is %s calling about rescheduling your appointment.\n", name, businessOr(offer.BusinessName))
	b.WriteString("We have the following times available:\n")
	for i, slot := range offer.Slots {
		fmt.Fprintf(&b, "Option %d: %s.\n", i+1, slot.StartTime.Format("Monday, January 2 at 3:04 PM"))
	}
	b.WriteString("Say the option number to pick a time, say none if none of these work, or say repeat to hear them again.\n")
	return b.String()
}
