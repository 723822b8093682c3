package lock

import (
	"context"
	"errors"
)

var ErrNotHeld = errors.New("lock is not held by this manager")

// DistributedLockManager serializes work across instances that share storage.
type DistributedLockManager interface {
	// Acquire blocks until the lock is held or ctx is done.
	Acquire(ctx context.Context, lockID int) error
	// TryAcquire takes the lock only if nobody holds it.
	TryAcquire(ctx context.Context, lockID int) (bool, error)
	Release(ctx context.Context, lockID int) error
}
