package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"restaurant-core/logger"
	"restaurant-core/models"
	"restaurant-core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T, specs ...[2]int) (*Allocator, *store.MemoryTables) {
	t.Helper()
	var tables []*models.Table
	for _, s := range specs {
		tbl, err := models.NewTable(s[0], s[1])
		require.NoError(t, err)
		tables = append(tables, tbl)
	}
	reg := store.NewMemoryTables(tables...)
	return NewAllocator(reg, NewKeyedLocker(time.Second), logger.Discard()), reg
}

func TestFindAndReserveFirstFit(t *testing.T) {
	ctx := context.Background()
	a, reg := newTestAllocator(t, [2]int{7, 8}, [2]int{3, 4}, [2]int{5, 4}, [2]int{1, 2})
	start := time.Date(2026, 1, 2, 19, 0, 0, 0, time.Local)

	n, err := a.FindAndReserve(ctx, 3, start, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = a.FindAndReserve(ctx, 3, start, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = a.FindAndReserve(ctx, 3, start, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = a.FindAndReserve(ctx, 3, start, 2*time.Hour)
	assert.ErrorIs(t, err, models.ErrResourceUnavailable)
	one, err := reg.FindByNumber(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, one.Status, "a failed search mutates nothing")

	_, err = a.FindAndReserve(ctx, 0, start, time.Hour)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestOccupyAndRelease(t *testing.T) {
	ctx := context.Background()
	a, reg := newTestAllocator(t, [2]int{1, 2})

	require.NoError(t, a.Occupy(ctx, 1))
	assert.ErrorIs(t, a.Occupy(ctx, 1), models.ErrInvalidTransition)
	assert.ErrorIs(t, a.Occupy(ctx, 9), models.ErrNotFound)

	require.NoError(t, a.Release(ctx, 1))
	tbl, err := reg.FindByNumber(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, tbl.Status)

	// releasing an available or unknown table is a logged no-op
	assert.NoError(t, a.Release(ctx, 1))
	assert.NoError(t, a.Release(ctx, 9))
}

func TestReleaseAroundRestoresOnFailure(t *testing.T) {
	ctx := context.Background()
	a, reg := newTestAllocator(t, [2]int{1, 2})
	require.NoError(t, a.Occupy(ctx, 1))

	status := func() models.TableStatus {
		tbl, err := reg.FindByNumber(ctx, 1)
		require.NoError(t, err)
		return tbl.Status
	}

	saveErr := errors.New("disk full")
	err := a.ReleaseAround(ctx, 1, func() error {
		assert.Equal(t, models.TableAvailable, status())
		return saveErr
	})
	assert.ErrorIs(t, err, saveErr)
	assert.Equal(t, models.TableOccupied, status())

	require.NoError(t, a.ReleaseAround(ctx, 1, func() error { return nil }))
	assert.Equal(t, models.TableAvailable, status())
}

func TestRestoreRefusesTakenTable(t *testing.T) {
	ctx := context.Background()
	a, reg := newTestAllocator(t, [2]int{1, 2})
	require.NoError(t, a.Occupy(ctx, 1))

	prev, err := a.releaseLocked(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, prev)
	n, err := a.FindAndReserve(ctx, 2, time.Now(), time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	err = a.restoreLocked(ctx, prev)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	tbl, err := reg.FindByNumber(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TableReserved, tbl.Status)

	assert.NoError(t, a.restoreLocked(ctx, nil))
}
