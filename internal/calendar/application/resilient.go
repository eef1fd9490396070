package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/caniken03/vioconcierge/internal/calendar/domain"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker wrapped around provider calls.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns production breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// ResilientProvider wraps a provider adapter with a circuit breaker so a
// flapping booking system degrades the engine into business-hours fallback
// instead of stalling every workflow on timeouts.
type ResilientProvider struct {
	inner         domain.Provider
	listBreaker   *gobreaker.CircuitBreaker[[]domain.Booking]
	createBreaker *gobreaker.CircuitBreaker[string]
	logger        *slog.Logger
}

// NewResilientProvider wraps the given adapter.
func NewResilientProvider(inner domain.Provider, config BreakerConfig, logger *slog.Logger) *ResilientProvider {
	if logger == nil {
		logger = slog.Default()
	}
	name := string(inner.Name())
	return &ResilientProvider{
		inner:         inner,
		listBreaker:   newBreaker[[]domain.Booking](name+".list", config, logger),
		createBreaker: newBreaker[string](name+".create", config, logger),
		logger:        logger,
	}
}

func newBreaker[T any](name string, config BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// Name returns the wrapped adapter's provider type.
func (r *ResilientProvider) Name() domain.ProviderType {
	return r.inner.Name()
}

// ListBookings delegates through the list breaker.
func (r *ResilientProvider) ListBookings(ctx context.Context, cred domain.Credential, window domain.Window) ([]domain.Booking, error) {
	return r.listBreaker.Execute(func() ([]domain.Booking, error) {
		return r.inner.ListBookings(ctx, cred, window)
	})
}

// CreateBooking delegates through the create breaker.
func (r *ResilientProvider) CreateBooking(ctx context.Context, cred domain.Credential, booking domain.Booking) (string, error) {
	return r.createBreaker.Execute(func() (string, error) {
		return r.inner.CreateBooking(ctx, cred, booking)
	})
}
