package lock

import (
	"context"
	"sync"
)

// LocalLockManager keeps locks in process memory. It is used with SQLite,
// where a single process owns the database file.
type LocalLockManager struct {
	mu    sync.Mutex
	locks map[int]chan struct{}
}

func NewLocalLockManager() *LocalLockManager {
	return &LocalLockManager{locks: make(map[int]chan struct{})}
}

func (l *LocalLockManager) Acquire(ctx context.Context, lockID int) error {
	for {
		l.mu.Lock()
		held, ok := l.locks[lockID]
		if !ok {
			l.locks[lockID] = make(chan struct{})
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-held:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *LocalLockManager) TryAcquire(ctx context.Context, lockID int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.locks[lockID]; ok {
		return false, nil
	}
	l.locks[lockID] = make(chan struct{})
	return true, nil
}

func (l *LocalLockManager) Release(ctx context.Context, lockID int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	held, ok := l.locks[lockID]
	if !ok {
		return ErrNotHeld
	}
	delete(l.locks, lockID)
	close(held)
	return nil
}
