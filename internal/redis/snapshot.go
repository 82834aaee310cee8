package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"olago/internal/domain"
	"olago/internal/repository"
)

// SnapshotStore keeps the engine state as one JSON value under a single key.
type SnapshotStore struct {
	client KeyValue
	key    string
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(client KeyValue, key string) *SnapshotStore {
	return &SnapshotStore{client: client, key: key}
}

// Load reads the snapshot. A missing key is repository.ErrNotFound.
func (s *SnapshotStore) Load(ctx context.Context) (*domain.State, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &state, nil
}

// Save replaces the snapshot. It never expires.
func (s *SnapshotStore) Save(ctx context.Context, state *domain.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}
