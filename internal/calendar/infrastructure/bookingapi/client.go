// Package bookingapi is the REST adapter for tenants whose appointments live
// in a hosted booking API (practice management systems and similar).
package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/caniken03/vioconcierge/internal/calendar/domain"
	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://api.bookings.example.com/v1"

// Client talks to the booking API. Requests carry the tenant credential as a
// bearer token via an oauth2 static token source.
type Client struct {
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a booking API adapter.
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
	return domain.ProviderBookingAPI
}

type apiBooking struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	AppointmentType string    `json:"appointment_type"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone"`
	Status          string    `json:"status"`
}

type listResponse struct {
	Bookings []apiBooking `json:"bookings"`
}

// ListBookings fetches appointments overlapping the window from the tenant's
// calendar.
func (c *Client) ListBookings(ctx context.Context, cred domain.Credential, window domain.Window) ([]domain.Booking, error) {
	endpoint := fmt.Sprintf("%s/calendars/%s/bookings", c.base(cred), url.PathEscape(cred.CalendarRef))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("from", window.From.Format(time.RFC3339))
	q.Set("to", window.To.Format(time.RFC3339))
	req.URL.RawQuery = q.Encode()

	body, err := c.do(req, cred, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var res listResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode bookings response: %w", err)
	}

	bookings := make([]domain.Booking, 0, len(res.Bookings))
	for _, b := range res.Bookings {
		bookings = append(bookings, domain.Booking{
			ExternalID:      b.ID,
			Title:           b.Title,
			StartTime:       b.StartsAt,
			EndTime:         b.EndsAt,
			AppointmentType: b.AppointmentType,
			ContactName:     b.CustomerName,
			ContactPhone:    b.CustomerPhone,
			Status:          b.Status,
		})
	}
	return bookings, nil
}

// CreateBooking writes a confirmed reschedule and returns the remote booking ID.
func (c *Client) CreateBooking(ctx context.Context, cred domain.Credential, booking domain.Booking) (string, error) {
	payload, err := json.Marshal(apiBooking{
		Title:           booking.Title,
		StartsAt:        booking.StartTime,
		EndsAt:          booking.EndTime,
		AppointmentType: booking.AppointmentType,
		CustomerName:    booking.ContactName,
		CustomerPhone:   booking.ContactPhone,
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/bookings", c.base(cred), url.PathEscape(cred.CalendarRef))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, cred, http.StatusCreated)
	if err != nil {
		return "", err
	}

	var created apiBooking
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	return created.ID, nil
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
		c.logger.Warn("booking api server error",
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
			return nil, fmt.Errorf("booking api: %s (status=%d)", apiErr.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("booking api: status %d", resp.StatusCode)
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
