package lock

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostgresDistributedLockManager(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mgr := NewPostgresDistributedLockManager(db)
	require.NotNil(t, mgr)
	var _ DistributedLockManager = mgr
}

func TestPostgresDistributedLockManager_AcquireRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mgr := NewPostgresDistributedLockManager(db)
	ctx := context.Background()

	mock.ExpectExec("SELECT pg_advisory_lock").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, mgr.Acquire(ctx, 1))
	require.NoError(t, mgr.Release(ctx, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDistributedLockManager_Acquire_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mgr := NewPostgresDistributedLockManager(db)

	mock.ExpectExec("SELECT pg_advisory_lock").
		WithArgs(42).
		WillReturnError(sql.ErrConnDone)

	err = mgr.Acquire(context.Background(), 42)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to acquire lock")
	assert.ErrorIs(t, mgr.Release(context.Background(), 42), ErrNotHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDistributedLockManager_TryAcquire(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mgr := NewPostgresDistributedLockManager(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))
	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))

	ok, err := mgr.TryAcquire(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = mgr.TryAcquire(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDistributedLockManager_Release_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mgr := NewPostgresDistributedLockManager(db)
	ctx := context.Background()

	mock.ExpectExec("SELECT pg_advisory_lock").
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(99).
		WillReturnError(sql.ErrConnDone)

	require.NoError(t, mgr.Acquire(ctx, 99))
	err = mgr.Release(ctx, 99)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to release lock")
	assert.NoError(t, mock.ExpectationsWereMet())
}
