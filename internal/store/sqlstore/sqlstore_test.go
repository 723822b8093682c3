package sqlstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/ali123/ali123/internal/db"
	"github.com/ali123/ali123/internal/lock"
	"github.com/ali123/ali123/types/config"
	"github.com/stretchr/testify/require"
)

func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, config.SQLite, filepath.Join(t.TempDir(), "ali123.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.Migrate(ctx, conn, config.SQLite, lock.NewLocalLockManager()))
	return conn
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr[T any](v T) *T {
	return &v
}
