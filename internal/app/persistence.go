package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"olago/internal/config"
	internalRedis "olago/internal/redis"
	"olago/internal/repository"
	"olago/internal/repository/file"
	"olago/internal/repository/postgres"
	"olago/internal/service"
)

// NewStore returns the snapshot store selected by cfg.Store.Backend.
// The postgres backend creates its table on the way.
func NewStore(ctx context.Context, cfg *config.Config, db *sql.DB, redisClient *redis.Client) (repository.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreFile:
		return file.NewSnapshotStore(cfg.Store.FilePath), nil

	case config.StorePostgres:
		if db == nil {
			return nil, errors.New("postgres store requires a database connection")
		}
		store := postgres.NewSnapshotStore(db, "default")
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case config.StoreRedis:
		if redisClient == nil {
			return nil, errors.New("redis store requires a redis client")
		}
		return internalRedis.NewSnapshotStore(redisClient, cfg.Store.RedisKey), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Persister writes an engine snapshot to the store after each successful
// mutation. Saves are serialised so an older snapshot never overwrites a
// newer one.
type Persister struct {
	mu     sync.Mutex
	engine *service.Engine
	store  repository.Store
	logger *zap.Logger
}

// NewPersister creates a new Persister.
func NewPersister(engine *service.Engine, store repository.Store, logger *zap.Logger) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{engine: engine, store: store, logger: logger}
}

// Persist saves the current engine state. Failures are logged; the
// in-memory state stays authoritative.
func (p *Persister) Persist(ctx context.Context) {
	if err := p.Save(ctx); err != nil {
		p.logger.Warn("failed to persist engine state", zap.Error(err))
	}
}

// Save snapshots the engine and writes it to the store.
func (p *Persister) Save(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A cancelled request must not skip the write it already paid for.
	ctx = context.WithoutCancel(ctx)
	if err := p.store.Save(ctx, p.engine.Snapshot()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadOrSeed restores the engine from the store. When the store is empty the
// demo drivers and promo codes are seeded (if seed is set) and saved.
func LoadOrSeed(ctx context.Context, engine *service.Engine, store repository.Store, seed bool, logger *zap.Logger) error {
	state, err := store.Load(ctx)
	switch {
	case err == nil:
		if err := engine.Restore(state); err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
		logger.Info("engine state restored",
			zap.Int("riders", len(state.Riders)),
			zap.Int("drivers", len(state.Drivers)),
			zap.Int("rides", len(state.Rides)),
		)
		return nil

	case errors.Is(err, repository.ErrNotFound):
		if !seed {
			logger.Info("no saved state; starting empty")
			return nil
		}
		if err := engine.Seed(service.DefaultDrivers(), service.DefaultPromos()); err != nil {
			return err
		}
		logger.Info("no saved state; seeded demo data")
		return store.Save(ctx, engine.Snapshot())

	default:
		return fmt.Errorf("load snapshot: %w", err)
	}
}
