package lock

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// PostgresDistributedLockManager uses session-level advisory locks. Each held
// lock pins its own connection so the unlock runs in the session that locked.
type PostgresDistributedLockManager struct {
	db      *sql.DB
	timeout time.Duration

	mu    sync.Mutex
	conns map[int]*sql.Conn
}

func NewPostgresDistributedLockManager(db *sql.DB) *PostgresDistributedLockManager {
	return &PostgresDistributedLockManager{
		db:      db,
		timeout: 5 * time.Second,
		conns:   make(map[int]*sql.Conn),
	}
}

func (l *PostgresDistributedLockManager) Acquire(ctx context.Context, lockID int) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.hold(lockID, conn)
	return nil
}

func (l *PostgresDistributedLockManager) TryAcquire(ctx context.Context, lockID int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	var ok bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&ok); err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		_ = conn.Close()
		return false, nil
	}
	l.hold(lockID, conn)
	return true, nil
}

func (l *PostgresDistributedLockManager) Release(ctx context.Context, lockID int) error {
	l.mu.Lock()
	conn, ok := l.conns[lockID]
	delete(l.conns, lockID)
	l.mu.Unlock()
	if !ok {
		return ErrNotHeld
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", lockID); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (l *PostgresDistributedLockManager) hold(lockID int, conn *sql.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.conns[lockID]; ok {
		_ = prev.Close()
	}
	l.conns[lockID] = conn
}
