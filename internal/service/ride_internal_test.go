package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"olago/internal/domain"
)

func TestRideService_AbandonReleasesDriver(t *testing.T) {
	t.Parallel()

	pool := NewDriverPool(MatchFirstAvailable)
	require.NoError(t, pool.Add(&domain.Driver{ID: "drv-1", Available: true}))
	rides := NewRideService(pool, NewWalletService(), NewPromoService(), nil)

	id, err := pool.Select(nil)
	require.NoError(t, err)

	err = rides.abandon(id, ErrRiderNotFound)
	assert.Equal(t, ErrRiderNotFound, err)

	d, err := pool.Get(id)
	require.NoError(t, err)
	assert.True(t, d.Available)
}

func TestRideService_AbandonReportsFailedRelease(t *testing.T) {
	t.Parallel()

	rides := NewRideService(NewDriverPool(MatchNearest), NewWalletService(), NewPromoService(), nil)

	err := rides.abandon("drv-gone", ErrRiderNotFound)
	assert.ErrorIs(t, err, ErrRiderNotFound)
	assert.ErrorIs(t, err, ErrDriverNotFound)
	assert.Contains(t, err.Error(), "drv-gone")
}
