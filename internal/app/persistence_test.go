package app_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"olago/internal/app"
	"olago/internal/config"
	"olago/internal/domain"
	"olago/internal/repository"
	"olago/internal/repository/file"
	"olago/internal/service"
)

type failingStore struct{ saves int }

func (s *failingStore) Load(ctx context.Context) (*domain.State, error) {
	return nil, errors.New("disk on fire")
}

func (s *failingStore) Save(ctx context.Context, state *domain.State) error {
	s.saves++
	return errors.New("disk on fire")
}

func TestLoadOrSeed_SeedsThenRestores(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := file.NewSnapshotStore(filepath.Join(t.TempDir(), "db.json"))

	first := service.NewEngine(service.EngineConfig{DefaultBalance: service.DefaultInitialBalance})
	require.NoError(t, app.LoadOrSeed(ctx, first, store, true, zap.NewNop()))
	assert.Len(t, first.ListDrivers(ctx), 3)

	rider, err := first.RegisterRider(ctx, service.RegisterRiderCommand{Name: "Asha"})
	require.NoError(t, err)
	require.NoError(t, app.NewPersister(first, store, zap.NewNop()).Save(ctx))

	// A fresh engine picks up the saved state instead of reseeding.
	second := service.NewEngine(service.EngineConfig{DefaultBalance: service.DefaultInitialBalance})
	require.NoError(t, app.LoadOrSeed(ctx, second, store, true, zap.NewNop()))
	assert.Len(t, second.ListDrivers(ctx), 3)

	restored, err := second.GetRider(ctx, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), restored.Balance)
}

func TestLoadOrSeed_WithoutSeed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := file.NewSnapshotStore(filepath.Join(t.TempDir(), "db.json"))
	engine := service.NewEngine(service.EngineConfig{DefaultBalance: service.DefaultInitialBalance})

	require.NoError(t, app.LoadOrSeed(ctx, engine, store, false, zap.NewNop()))
	assert.Empty(t, engine.ListDrivers(ctx))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLoadOrSeed_StoreError(t *testing.T) {
	t.Parallel()

	engine := service.NewEngine(service.EngineConfig{DefaultBalance: service.DefaultInitialBalance})
	err := app.LoadOrSeed(context.Background(), engine, &failingStore{}, true, zap.NewNop())
	assert.Error(t, err)
}

func TestPersister_LogsFailures(t *testing.T) {
	t.Parallel()

	store := &failingStore{}
	p := app.NewPersister(service.NewEngine(service.EngineConfig{DefaultBalance: service.DefaultInitialBalance}), store, nil)

	assert.NotPanics(t, func() { p.Persist(context.Background()) })
	assert.Equal(t, 1, store.saves)
	assert.Error(t, p.Save(context.Background()))
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		backend string
		wantErr bool
	}{
		{name: "file", backend: config.StoreFile},
		{name: "postgres without db", backend: config.StorePostgres, wantErr: true},
		{name: "redis without client", backend: config.StoreRedis, wantErr: true},
		{name: "unknown", backend: "s3", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{Store: config.StoreConfig{
				Backend:  tc.backend,
				FilePath: filepath.Join(t.TempDir(), "db.json"),
			}}

			store, err := app.NewStore(context.Background(), cfg, nil, nil)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, store)
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	logger, err := app.NewLogger("debug", true)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = app.NewLogger("loud", false)
	assert.Error(t, err)
}
