package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ali123/ali123/internal/constants"
	"github.com/ali123/ali123/internal/lock"
	"github.com/ali123/ali123/types/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, driver config.StorageDriver, dsn string) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case config.Postgres:
		db, err = sql.Open("postgres", dsn)
	case config.SQLite:
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err == nil {
			// One writer at a time; conditional updates still decide claims.
			db.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver: %v", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// Migrate applies the embedded schema migrations. Only one instance migrates
// at a time; the others wait on the migration lock.
func Migrate(ctx context.Context, db *sql.DB, driver config.StorageDriver, distributedLock lock.DistributedLockManager) error {
	if distributedLock != nil {
		if err := distributedLock.Acquire(ctx, constants.MigrationLock); err != nil {
			return err
		}
		defer distributedLock.Release(context.Background(), constants.MigrationLock)
	}

	source, err := iofs.New(migrationFS, migrationDir(driver))
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	var instance database.Driver
	switch driver {
	case config.Postgres:
		instance, err = postgres.WithInstance(db, &postgres.Config{})
	case config.SQLite:
		instance, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return fmt.Errorf("unsupported storage driver: %v", driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver.String(), instance)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Migrations lists the embedded migration files for driver.
func Migrations(driver config.StorageDriver) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, migrationDir(driver))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func migrationDir(driver config.StorageDriver) string {
	return "migrations/" + driver.String()
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}
