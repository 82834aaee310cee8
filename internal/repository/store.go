package repository

import (
	"context"

	"olago/internal/domain"
)

// Store is the durable snapshot target for engine state.
// It is not transactional: callers save after each successful mutation.
type Store interface {
	// Load returns the last saved snapshot, or ErrNotFound.
	Load(ctx context.Context) (*domain.State, error)

	// Save replaces the stored snapshot.
	Save(ctx context.Context, state *domain.State) error
}
