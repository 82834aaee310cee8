package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"olago/internal/domain"
	"olago/internal/repository"
)

const (
	createSnapshotTable = `
		CREATE TABLE IF NOT EXISTS engine_snapshots (
			id         TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			saved_at   TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	selectSnapshot = `SELECT state FROM engine_snapshots WHERE id = $1`

	upsertSnapshot = `
		INSERT INTO engine_snapshots (id, state, saved_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state, saved_at = EXCLUDED.saved_at, updated_at = NOW()
	`
)

// SnapshotStore is a PostgreSQL implementation of repository.Store.
// The whole engine state lives in one JSONB row keyed by name.
type SnapshotStore struct {
	q    Querier
	name string
}

// NewSnapshotStore creates a new PostgreSQL snapshot store.
func NewSnapshotStore(db *sql.DB, name string) *SnapshotStore {
	return &SnapshotStore{q: db, name: name}
}

// NewSnapshotStoreWithTx creates a snapshot store using a transaction.
func NewSnapshotStoreWithTx(tx *sql.Tx, name string) *SnapshotStore {
	return &SnapshotStore{q: tx, name: name}
}

var _ repository.Store = (*SnapshotStore)(nil)

// Migrate creates the snapshot table if it does not exist.
func (s *SnapshotStore) Migrate(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, createSnapshotTable); err != nil {
		return fmt.Errorf("create engine_snapshots: %w", err)
	}
	return nil
}

// Load retrieves the snapshot.
func (s *SnapshotStore) Load(ctx context.Context) (*domain.State, error) {
	var data []byte
	err := s.q.QueryRowContext(ctx, selectSnapshot, s.name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select snapshot: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &state, nil
}

// Save upserts the snapshot.
func (s *SnapshotStore) Save(ctx context.Context, state *domain.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if _, err := s.q.ExecContext(ctx, upsertSnapshot, s.name, string(data), state.SavedAt); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
