package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockManager_TryAcquire(t *testing.T) {
	mgr := NewLocalLockManager()
	ctx := context.Background()

	ok, err := mgr.TryAcquire(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mgr.TryAcquire(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = mgr.TryAcquire(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mgr.Release(ctx, 1))
	assert.ErrorIs(t, mgr.Release(ctx, 1), ErrNotHeld)
}

func TestLocalLockManager_AcquireWaitsForRelease(t *testing.T) {
	mgr := NewLocalLockManager()
	ctx := context.Background()
	require.NoError(t, mgr.Acquire(ctx, 1))

	acquired := make(chan struct{})
	go func() {
		_ = mgr.Acquire(ctx, 1)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire returned while the lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, mgr.Release(ctx, 1))
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire never returned")
	}
}

func TestLocalLockManager_AcquireHonoursContext(t *testing.T) {
	mgr := NewLocalLockManager()
	require.NoError(t, mgr.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, mgr.Acquire(ctx, 1), context.DeadlineExceeded)
}
