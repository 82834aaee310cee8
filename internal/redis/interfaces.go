package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"olago/internal/repository"
)

// KeyValue is the subset of the go-redis client the stores use.
type KeyValue interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Ensure concrete types implement interfaces.
var (
	_ KeyValue         = (*redis.Client)(nil)
	_ repository.Store = (*SnapshotStore)(nil)
)
