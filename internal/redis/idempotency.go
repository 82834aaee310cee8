package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes
const (
	idempotencyResponsePrefix = "idempotency:"
	idempotencyLockPrefix     = "lock:idempotency:"
)

// CachedResponse is a replayable HTTP response.
type CachedResponse struct {
	StatusCode int               `json:"status_code"`
	Body       json.RawMessage   `json:"body"`
	Headers    map[string]string `json:"headers"`
}

// IdempotencyStore caches responses per Idempotency-Key and guards keys that
// are still being processed.
type IdempotencyStore struct {
	client KeyValue
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client KeyValue) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// GetResponse returns the cached response for key, or nil on a cache miss.
func (s *IdempotencyStore) GetResponse(ctx context.Context, key string) (*CachedResponse, error) {
	data, err := s.client.Get(ctx, idempotencyResponsePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var cached CachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

// SetResponse stores the response for key.
func (s *IdempotencyStore) SetResponse(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, idempotencyResponsePrefix+key, data, ttl).Err()
}

// Acquire marks key as in flight. It returns false if another request
// already holds it.
func (s *IdempotencyStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, idempotencyLockPrefix+key, "1", ttl).Result()
}

// Release clears the in-flight mark for key.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyLockPrefix+key).Err()
}
