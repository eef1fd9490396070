package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/caniken03/vioconcierge/internal/notification/domain"
)

// MemoryStore keeps token bindings in process memory. Used in local mode and
// tests; bindings do not survive a restart.
type MemoryStore struct {
	mu       sync.Mutex
	bindings map[string]domain.TokenBinding
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bindings: make(map[string]domain.TokenBinding),
		now:      time.Now,
	}
}

// WithClock overrides the time source, used by expiry tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Save stores the binding. The TTL parameter is ignored; expiry is driven by
// the binding's own deadline.
func (s *MemoryStore) Save(_ context.Context, token string, binding domain.TokenBinding, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[token] = binding
	return nil
}

// Peek returns the binding without consuming it, evicting it if expired.
func (s *MemoryStore) Peek(_ context.Context, token string) (domain.TokenBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	binding, ok := s.bindings[token]
	if !ok {
		return domain.TokenBinding{}, domain.ErrInvalidToken
	}
	if binding.Expired(s.now()) {
		delete(s.bindings, token)
		return domain.TokenBinding{}, domain.ErrInvalidToken
	}
	return binding, nil
}

// Take consumes the token under the store mutex.
func (s *MemoryStore) Take(_ context.Context, token string) (domain.TokenBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	binding, ok := s.bindings[token]
	if !ok {
		return domain.TokenBinding{}, domain.ErrInvalidToken
	}
	delete(s.bindings, token)
	if binding.Expired(s.now()) {
		return domain.TokenBinding{}, domain.ErrInvalidToken
	}
	return binding, nil
}

// Revoke drops the token. Unknown tokens are not an error.
func (s *MemoryStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bindings, token)
	return nil
}

// EvictExpired sweeps all bindings past their deadline.
func (s *MemoryStore) EvictExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for token, binding := range s.bindings {
		if binding.Expired(now) {
			delete(s.bindings, token)
			evicted++
		}
	}
	return evicted, nil
}

// Len reports the number of live bindings, used by tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bindings)
}
