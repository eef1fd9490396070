package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caniken03/vioconcierge/internal/calendar/application"
	"github.com/caniken03/vioconcierge/internal/calendar/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResilientProvider(t *testing.T) {
	config := application.BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 3,
	}

	t.Run("passes results through", func(t *testing.T) {
		stub := &stubProvider{
			name: domain.ProviderBookingAPI,
			bookings: []domain.Booking{
				{ExternalID: "b1", StartTime: time.Now(), EndTime: time.Now().Add(time.Hour)},
			},
		}
		resilient := application.NewResilientProvider(stub, config, nil)

		bookings, err := resilient.ListBookings(context.Background(), domain.Credential{}, domain.Window{})
		require.NoError(t, err)
		assert.Len(t, bookings, 1)
		assert.Equal(t, domain.ProviderBookingAPI, resilient.Name())
	})

	t.Run("opens after consecutive failures", func(t *testing.T) {
		stub := &stubProvider{name: domain.ProviderBookingAPI, err: errors.New("upstream down")}
		resilient := application.NewResilientProvider(stub, config, nil)

		for i := 0; i < 3; i++ {
			_, err := resilient.ListBookings(context.Background(), domain.Credential{}, domain.Window{})
			require.Error(t, err)
		}
		callsBeforeOpen := stub.calls

		_, err := resilient.ListBookings(context.Background(), domain.Credential{}, domain.Window{})
		require.Error(t, err)
		// Open breaker fails fast without hitting the adapter again.
		assert.Equal(t, callsBeforeOpen, stub.calls)
	})

	t.Run("list and create trip independently", func(t *testing.T) {
		stub := &stubProvider{name: domain.ProviderBookingAPI, err: errors.New("upstream down")}
		resilient := application.NewResilientProvider(stub, config, nil)

		for i := 0; i < 4; i++ {
			_, _ = resilient.ListBookings(context.Background(), domain.Credential{}, domain.Window{})
		}

		stub.err = nil
		id, err := resilient.CreateBooking(context.Background(), domain.Credential{}, domain.Booking{})
		require.NoError(t, err)
		assert.Equal(t, "ext-1", id)
	})
}
