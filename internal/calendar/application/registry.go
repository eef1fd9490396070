// Package application wires calendar provider adapters behind a registry and
// a circuit-breaker wrapper.
package application

import (
	"fmt"
	"sync"

	"github.com/caniken03/vioconcierge/internal/calendar/domain"
)

// ProviderFactory builds a provider adapter on first use.
type ProviderFactory func() (domain.Provider, error)

// ProviderRegistry maps provider types to adapter factories. Adapters are
// built lazily and cached, so an unconfigured provider costs nothing until a
// tenant actually references it.
type ProviderRegistry struct {
	mu        sync.RWMutex
	factories map[domain.ProviderType]ProviderFactory
	cache     map[domain.ProviderType]domain.Provider
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		factories: make(map[domain.ProviderType]ProviderFactory),
		cache:     make(map[domain.ProviderType]domain.Provider),
	}
}

// Register adds a factory for a provider type, replacing any previous one.
func (r *ProviderRegistry) Register(provider domain.ProviderType, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[provider] = factory
	delete(r.cache, provider)
}

// Provider returns the adapter for the given type, building it on first use.
func (r *ProviderRegistry) Provider(provider domain.ProviderType) (domain.Provider, error) {
	r.mu.RLock()
	if cached, ok := r.cache[provider]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	factory, ok := r.factories[provider]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, provider)
	}

	built, err := factory()
	if err != nil {
		return nil, fmt.Errorf("build %s adapter: %w", provider, err)
	}

	r.mu.Lock()
	r.cache[provider] = built
	r.mu.Unlock()
	return built, nil
}

// HasProvider reports whether a factory is registered for the type.
func (r *ProviderRegistry) HasProvider(provider domain.ProviderType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[provider]
	return ok
}

// SupportedProviders returns all registered provider types.
func (r *ProviderRegistry) SupportedProviders() []domain.ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]domain.ProviderType, 0, len(r.factories))
	for p := range r.factories {
		providers = append(providers, p)
	}
	return providers
}
