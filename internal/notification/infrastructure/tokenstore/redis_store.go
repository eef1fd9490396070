// Package tokenstore provides the Redis-backed and in-memory token stores.
package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/caniken03/vioconcierge/internal/notification/domain"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "vioconcierge:resptoken:"

// RedisStore keeps token bindings in Redis. TTL expiry is native, and GETDEL
// gives atomic single-use consumption across processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis token store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(token string) string {
	return redisKeyPrefix + token
}

// Save stores the binding under the token with the given TTL.
func (s *RedisStore) Save(ctx context.Context, token string, binding domain.TokenBinding, ttl time.Duration) error {
	payload, err := json.Marshal(binding)
	if err != nil {
		return fmt.Errorf("marshal token binding: %w", err)
	}
	return s.client.Set(ctx, redisKey(token), payload, ttl).Err()
}

// Peek reads the binding without consuming it.
func (s *RedisStore) Peek(ctx context.Context, token string) (domain.TokenBinding, error) {
	payload, err := s.client.Get(ctx, redisKey(token)).Bytes()
	if err == redis.Nil {
		return domain.TokenBinding{}, domain.ErrInvalidToken
	}
	if err != nil {
		return domain.TokenBinding{}, err
	}
	return unmarshalBinding(payload)
}

// Take atomically consumes the token via GETDEL.
func (s *RedisStore) Take(ctx context.Context, token string) (domain.TokenBinding, error) {
	payload, err := s.client.GetDel(ctx, redisKey(token)).Bytes()
	if err == redis.Nil {
		return domain.TokenBinding{}, domain.ErrInvalidToken
	}
	if err != nil {
		return domain.TokenBinding{}, err
	}
	return unmarshalBinding(payload)
}

// Revoke drops the token. Unknown tokens are not an error.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, redisKey(token)).Err()
}

// EvictExpired is a no-op: Redis drops expired keys itself.
func (s *RedisStore) EvictExpired(_ context.Context) (int, error) {
	return 0, nil
}

func unmarshalBinding(payload []byte) (domain.TokenBinding, error) {
	var binding domain.TokenBinding
	if err := json.Unmarshal(payload, &binding); err != nil {
		return domain.TokenBinding{}, fmt.Errorf("unmarshal token binding: %w", err)
	}
	return binding, nil
}
