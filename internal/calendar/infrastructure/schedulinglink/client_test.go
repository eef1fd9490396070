package schedulinglink_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caniken03/vioconcierge/internal/calendar/domain"
	"github.com/caniken03/vioconcierge/internal/calendar/infrastructure/schedulinglink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListBookings_FiltersCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scheduled_events", r.URL.Path)
		assert.Equal(t, "owner-1", r.URL.Query().Get("user"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"collection": []map[string]any{
				{
					"uri":        "ev-1",
					"name":       "Consult",
					"start_time": "2026-03-02T10:00:00Z",
					"end_time":   "2026-03-02T10:30:00Z",
					"status":     "active",
				},
				{
					"uri":        "ev-2",
					"name":       "Consult",
					"start_time": "2026-03-02T11:00:00Z",
					"end_time":   "2026-03-02T11:30:00Z",
					"status":     "canceled",
				},
			},
		})
	}))
	defer server.Close()

	client := schedulinglink.NewClient(server.URL, time.Second, nil)
	bookings, err := client.ListBookings(context.Background(), domain.Credential{CalendarRef: "owner-1"}, domain.Window{
		From: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "ev-1", bookings[0].ExternalID)
}

func TestClient_CreateBooking(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/invitees", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "etype-1", payload["event_type"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"resource": map[string]any{"uri": "inv-5"},
		})
	}))
	defer server.Close()

	client := schedulinglink.NewClient(server.URL, time.Second, nil)
	uri, err := client.CreateBooking(context.Background(), domain.Credential{CalendarRef: "etype-1"}, domain.Booking{
		StartTime:   time.Date(2026, 3, 2, 11, 15, 0, 0, time.UTC),
		ContactName: "Dana",
	})

	require.NoError(t, err)
	assert.Equal(t, "inv-5", uri)
}
