package postgres

import (
	"context"
	"database/sql"

	"olago/internal/repository"
)

// Querier is the subset of *sql.DB and *sql.Tx the snapshot store needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier          = (*sql.DB)(nil)
	_ Querier          = (*sql.Tx)(nil)
	_ repository.Store = (*SnapshotStore)(nil)
)
