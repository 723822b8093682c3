package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ali123/ali123/client/test/mocks"
	"github.com/ali123/ali123/internal/constants"
	"github.com/ali123/ali123/types/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_BothDriversShipSameVersions(t *testing.T) {
	pg, err := Migrations(config.Postgres)
	require.NoError(t, err)
	lite, err := Migrations(config.SQLite)
	require.NoError(t, err)

	assert.NotEmpty(t, pg)
	assert.Equal(t, pg, lite)
	assert.Contains(t, pg, "000001_import_queue.up.sql")
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/q.db?"+sqlitePragmas, sqliteDSN("/tmp/q.db"))
	assert.Equal(t, "file:q.db?mode=rwc&"+sqlitePragmas, sqliteDSN("file:q.db?mode=rwc"))
	assert.Equal(t, "file:q.db?_pragma=foreign_keys(1)", sqliteDSN("file:q.db?_pragma=foreign_keys(1)"))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StorageDriver(99), "")
	assert.Error(t, err)
}

func TestMigrate_SQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, config.SQLite, filepath.Join(t.TempDir(), "ali123.db"))
	require.NoError(t, err)
	defer conn.Close()

	var acquired, released []int
	lockMgr := &mocks.MockDistributedLockManager{
		AcquireFunc: func(ctx context.Context, lockID int) error {
			acquired = append(acquired, lockID)
			return nil
		},
		ReleaseFunc: func(ctx context.Context, lockID int) error {
			released = append(released, lockID)
			return nil
		},
	}

	require.NoError(t, Migrate(ctx, conn, config.SQLite, lockMgr))
	require.NoError(t, Migrate(ctx, conn, config.SQLite, lockMgr))
	assert.Equal(t, []int{constants.MigrationLock, constants.MigrationLock}, acquired)
	assert.Equal(t, acquired, released)

	for _, table := range []string{"import_queue", "products", "product_meta", "orders", "order_items", "order_notes", "api_users"} {
		var name string
		err := conn.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestMigrate_LockAcquireFails(t *testing.T) {
	lockMgr := &mocks.MockDistributedLockManager{
		AcquireFunc: func(ctx context.Context, lockID int) error { return errors.New("lock busy") },
	}
	err := Migrate(context.Background(), nil, config.SQLite, lockMgr)
	assert.EqualError(t, err, "lock busy")
}
