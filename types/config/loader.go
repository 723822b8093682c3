package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "ALI123"

// Load reads configuration into a Config.
// Priority (highest to lowest):
// 1. Environment variables with ALI123_ prefix (e.g., ALI123_STORAGE_DRIVER)
// 2. the file at path, or ali123.{toml,yaml} in . and /etc/ali123 when path is empty
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := NewViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("ali123")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ali123")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	return FromViper(v)
}

// NewViper returns a viper instance with every known key defaulted and env
// overrides enabled.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("instance", "ali123")
	v.SetDefault("storage.driver", SQLite.String())
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("storage.sqlite_path", DefaultSQLitePath)
	v.SetDefault("lock.driver", LockDatabase.String())
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", DefaultRedisLockPrefix)
	v.SetDefault("redis.lock_ttl", DefaultRedisLockTTL)
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", DefaultExchange)
	v.SetDefault("rabbitmq.queue", DefaultEventsQueue)
	v.SetDefault("rabbitmq.binding_key", "#")
	v.SetDefault("queue.batch_size", 25)
	v.SetDefault("queue.max_per_run", 100)
	v.SetDefault("queue.process_schedule", DefaultProcessSchedule)
	v.SetDefault("tracking.sync_delay", DefaultTrackingSyncDelay)
	v.SetDefault("store.default_id", 1)
	v.SetDefault("store.default_status", DefaultProductStatus)
	v.SetDefault("store.default_visibility", DefaultVisibility)
	v.SetDefault("http.address", DefaultHTTPAddress)
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("api.auth_enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("metrics.enabled", true)
	return v
}

// FromViper translates viper keys into Config options.
func FromViper(v *viper.Viper) (*Config, error) {
	storageDriver, err := ParseStorageDriver(strings.ToLower(v.GetString("storage.driver")))
	if err != nil {
		return nil, err
	}
	lockDriver, err := ParseLockDriver(strings.ToLower(v.GetString("lock.driver")))
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithStorageDriver(storageDriver),
		WithLockDriver(lockDriver),
		WithBatchSize(v.GetInt("queue.batch_size")),
		WithMaxPerRun(v.GetInt("queue.max_per_run")),
		WithProcessSchedule(v.GetString("queue.process_schedule")),
		WithTrackingSyncDelay(v.GetDuration("tracking.sync_delay")),
		WithDefaultStoreID(v.GetInt64("store.default_id")),
		WithStoreDefaults(v.GetString("store.default_status"), v.GetString("store.default_visibility")),
		WithHTTPConfig(HTTPConfig{
			Address:         v.GetString("http.address"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		}),
		WithAPIAuth(v.GetBool("api.auth_enabled")),
		WithLogConfig(LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		}),
		WithMetricsEnabled(v.GetBool("metrics.enabled")),
	}

	switch storageDriver {
	case Postgres:
		opts = append(opts, WithPostgresConfig(PostgresConfig{ConnectionUrl: v.GetString("storage.postgres_url")}))
	case SQLite:
		opts = append(opts, WithSQLiteConfig(SQLiteConfig{Path: v.GetString("storage.sqlite_path")}))
	}
	if addr := v.GetString("redis.address"); addr != "" {
		opts = append(opts, WithRedisConfig(RedisConfig{
			Address:  addr,
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Prefix:   v.GetString("redis.prefix"),
			LockTTL:  v.GetDuration("redis.lock_ttl"),
		}))
	}
	if url := v.GetString("rabbitmq.url"); url != "" {
		opts = append(opts, WithRabbitMQConfig(RabbitMQConfig{
			URL:        url,
			Exchange:   v.GetString("rabbitmq.exchange"),
			Queue:      v.GetString("rabbitmq.queue"),
			BindingKey: v.GetString("rabbitmq.binding_key"),
		}))
	}

	return NewConfig(v.GetString("instance"), opts...)
}
