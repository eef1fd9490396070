// Package schedulinglink is the REST adapter for tenants using a
// scheduling-link service (Calendly-style booking pages).
package schedulinglink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/caniken03/vioconcierge/internal/calendar/domain"
	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://api.schedlink.example.com/v2"

// Client talks to the scheduling-link API. The remote model is event-based:
// busy times come from scheduled events on the link owner, and a confirmed
// reschedule becomes an invitee booking against an event type.
type Client struct {
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a scheduling-link adapter.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: baseURL, timeout: timeout, logger: logger}
}

// Name implements domain.Provider.
func (c *Client) Name() domain.ProviderType {
	return domain.ProviderSchedulingLink
}

type scheduledEvent struct {
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
}

type eventsResponse struct {
	Collection []scheduledEvent `json:"collection"`
}

// ListBookings returns the link owner's scheduled events in the window.
// Cancelled events are filtered out so they do not block candidate slots.
func (c *Client) ListBookings(ctx context.Context, cred domain.Credential, window domain.Window) ([]domain.Booking, error) {
	endpoint := c.base(cred) + "/scheduled_events"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("user", cred.CalendarRef)
	q.Set("min_start_time", window.From.Format(time.RFC3339))
	q.Set("max_start_time", window.To.Format(time.RFC3339))
	req.URL.RawQuery = q.Encode()

	body, err := c.do(req, cred, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var res eventsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode scheduled events: %w", err)
	}

	bookings := make([]domain.Booking, 0, len(res.Collection))
	for _, ev := range res.Collection {
		if ev.Status == "canceled" {
			continue
		}
		bookings = append(bookings, domain.Booking{
			ExternalID: ev.URI,
			Title:      ev.Name,
			StartTime:  ev.StartTime,
			EndTime:    ev.EndTime,
			Status:     ev.Status,
		})
	}
	return bookings, nil
}

type inviteeRequest struct {
	EventType string    `json:"event_type"`
	StartTime time.Time `json:"start_time"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
}

type inviteeResponse struct {
	Resource struct {
		URI string `json:"uri"`
	} `json:"resource"`
}

// CreateBooking books the contact onto the tenant's event type at the
// confirmed slot time.
func (c *Client) CreateBooking(ctx context.Context, cred domain.Credential, booking domain.Booking) (string, error) {
	payload, err := json.Marshal(inviteeRequest{
		EventType: cred.CalendarRef,
		StartTime: booking.StartTime,
		Name:      booking.ContactName,
		Phone:     booking.ContactPhone,
	})
	if err != nil {
		return "", err
	}

	endpoint := c.base(cred) + "/invitees"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, cred, http.StatusCreated)
	if err != nil {
		return "", err
	}

	var res inviteeResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("decode invitee response: %w", err)
	}
	return res.Resource.URI, nil
}

func (c *Client) base(cred domain.Credential) string {
	if cred.BaseURL != "" {
		return cred.BaseURL
	}
	return c.baseURL
}

func (c *Client) do(req *http.Request, cred domain.Credential, wantStatus int) ([]byte, error) {
	client := http.Client{
		Timeout: c.timeout,
		Transport: &bearerTransport{
			base:   http.DefaultTransport,
			source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.AccessToken}),
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == wantStatus:
		return body, nil
	case resp.StatusCode == http.StatusConflict:
		return nil, domain.ErrBookingConflict
	case resp.StatusCode >= http.StatusInternalServerError:
		c.logger.Warn("scheduling link server error",
			"status", resp.StatusCode,
			"path", req.URL.Path,
		)
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderUnreachable, resp.StatusCode)
	default:
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		if apiErr.Message != "" {
			return nil, fmt.Errorf("scheduling link: %s (status=%d)", apiErr.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("scheduling link: status %d", resp.StatusCode)
	}
}

type bearerTransport struct {
	base   http.RoundTripper
	source oauth2.TokenSource
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	return t.base.RoundTrip(req)
}
