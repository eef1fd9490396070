package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/caniken03/vioconcierge/internal/calendar/application"
	"github.com/caniken03/vioconcierge/internal/calendar/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name     domain.ProviderType
	bookings []domain.Booking
	err      error
	calls    int
}

func (s *stubProvider) Name() domain.ProviderType { return s.name }

func (s *stubProvider) ListBookings(_ context.Context, _ domain.Credential, _ domain.Window) ([]domain.Booking, error) {
	s.calls++
	return s.bookings, s.err
}

func (s *stubProvider) CreateBooking(_ context.Context, _ domain.Credential, _ domain.Booking) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "ext-1", nil
}

func TestProviderRegistry(t *testing.T) {
	t.Run("returns registered provider", func(t *testing.T) {
		registry := application.NewProviderRegistry()
		registry.Register(domain.ProviderBookingAPI, func() (domain.Provider, error) {
			return &stubProvider{name: domain.ProviderBookingAPI}, nil
		})

		p, err := registry.Provider(domain.ProviderBookingAPI)
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderBookingAPI, p.Name())
	})

	t.Run("unknown provider yields sentinel error", func(t *testing.T) {
		registry := application.NewProviderRegistry()

		_, err := registry.Provider(domain.ProviderSchedulingLink)
		assert.ErrorIs(t, err, domain.ErrUnknownProvider)
	})

	t.Run("builds adapter once and caches it", func(t *testing.T) {
		registry := application.NewProviderRegistry()
		built := 0
		registry.Register(domain.ProviderBookingAPI, func() (domain.Provider, error) {
			built++
			return &stubProvider{name: domain.ProviderBookingAPI}, nil
		})

		_, err := registry.Provider(domain.ProviderBookingAPI)
		require.NoError(t, err)
		_, err = registry.Provider(domain.ProviderBookingAPI)
		require.NoError(t, err)

		assert.Equal(t, 1, built)
	})

	t.Run("factory failure is not cached", func(t *testing.T) {
		registry := application.NewProviderRegistry()
		registry.Register(domain.ProviderBookingAPI, func() (domain.Provider, error) {
			return nil, errors.New("missing credentials")
		})

		_, err := registry.Provider(domain.ProviderBookingAPI)
		require.Error(t, err)
		assert.False(t, registry.HasProvider(domain.ProviderSchedulingLink))
		assert.True(t, registry.HasProvider(domain.ProviderBookingAPI))
	})

	t.Run("supported providers lists registrations", func(t *testing.T) {
		registry := application.NewProviderRegistry()
		registry.Register(domain.ProviderBookingAPI, func() (domain.Provider, error) {
			return &stubProvider{name: domain.ProviderBookingAPI}, nil
		})
		registry.Register(domain.ProviderSchedulingLink, func() (domain.Provider, error) {
			return &stubProvider{name: domain.ProviderSchedulingLink}, nil
		})

		assert.ElementsMatch(t,
			[]domain.ProviderType{domain.ProviderBookingAPI, domain.ProviderSchedulingLink},
			registry.SupportedProviders(),
		)
	})
}
