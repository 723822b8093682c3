package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/ali123/ali123/client"
	"github.com/ali123/ali123/internal/db"
	"github.com/ali123/ali123/internal/fulfillment"
	"github.com/ali123/ali123/internal/lock"
	"github.com/ali123/ali123/internal/mapper"
	"github.com/ali123/ali123/internal/message_broaker"
	"github.com/ali123/ali123/internal/observability"
	"github.com/ali123/ali123/internal/pricing"
	"github.com/ali123/ali123/internal/store"
	"github.com/ali123/ali123/internal/store/sqlstore"
	"github.com/ali123/ali123/types/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Container holds all application dependencies. It is the single source of truth
// for dependency injection and ensures connections and services are created once.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Storage connections (created once, shared by all stores)
	DB      *sql.DB
	Redis   *redis.Client
	Dialect sqlstore.Dialect

	ImportQueueStore store.ImportQueueStore
	ProductStore     store.ProductStore
	OrderStore       store.OrderStore
	UserStore        store.UserStore

	// Infrastructure
	LockManager    lock.DistributedLockManager
	MessageBroker  message_broaker.MessageBroker
	Events         *message_broaker.EventPublisher
	Metrics        *observability.Metrics
	MetricsHandler http.Handler

	Engine        *pricing.Engine
	Mapper        *mapper.ProductMapper
	ImportService *client.ImportService
	Fulfillment   *fulfillment.Service
	TrackingSync  *fulfillment.TrackingSync
	JobRunner     *client.JobRunner

	ownsDB          bool
	ownsRedis       bool
	ownsBroker      bool
	metricsShutdown func(context.Context) error
}

// NewContainer creates and wires all dependencies. Single entry point for DI.
// Call this once per application lifecycle.
// Pass optional WithDB, WithRedis, WithMessageBroker to inject connections for testing.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	opt := &containerConfig{}
	for _, o := range opts {
		o(opt)
	}

	log := opt.logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("instance", cfg.Instance))

	c := &Container{
		Config:  cfg,
		Logger:  log,
		Dialect: dialectFor(cfg.StorageDriver),
	}

	if opt.db != nil {
		c.DB = opt.db
	} else {
		sqlDB, err := db.Open(ctx, cfg.StorageDriver, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		c.DB = sqlDB
		c.ownsDB = true
	}

	if opt.redis != nil {
		c.Redis = opt.redis
	} else if cfg.RedisConfig.Address != "" {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		c.ownsRedis = true
	}

	c.ImportQueueStore = sqlstore.NewImportQueueStore(c.DB, c.Dialect)
	c.ProductStore = sqlstore.NewProductStore(c.DB, c.Dialect)
	c.OrderStore = sqlstore.NewOrderStore(c.DB, c.Dialect)
	c.UserStore = sqlstore.NewUserStore(c.DB, c.Dialect)

	lockMgr, err := createDistributedLockManager(cfg, c.DB, c.Redis)
	if err != nil {
		c.closeConnections()
		return nil, err
	}
	c.LockManager = lockMgr

	c.MessageBroker = opt.broker
	if c.MessageBroker == nil && cfg.EventsEnabled() {
		broker, err := message_broaker.NewRabbitMQ(
			cfg.RabbitMQConfig.URL,
			cfg.RabbitMQConfig.Exchange,
			cfg.RabbitMQConfig.Queue,
			cfg.RabbitMQConfig.BindingKey,
		)
		if err != nil {
			c.closeConnections()
			return nil, fmt.Errorf("init rabbitmq: %w", err)
		}
		c.MessageBroker = broker
		c.ownsBroker = true
	}
	if c.MessageBroker != nil {
		c.Events = message_broaker.NewEventPublisher(c.MessageBroker, log)
	}

	if cfg.MetricsEnabled {
		handler, shutdown, err := observability.InitMetrics()
		if err != nil {
			c.closeConnections()
			return nil, err
		}
		metrics, err := observability.NewGlobalMetrics()
		if err != nil {
			_ = shutdown(ctx)
			c.closeConnections()
			return nil, err
		}
		c.MetricsHandler = handler
		c.metricsShutdown = shutdown
		c.Metrics = metrics
	}

	c.Engine = pricing.NewEngine()
	c.Mapper = mapper.NewProductMapper(c.ProductStore, log)

	c.ImportService = client.NewImportService(c.ImportQueueStore, c.Mapper, c.Engine, client.ImportSettings{
		DefaultStoreID:    cfg.DefaultStoreID,
		DefaultStatus:     cfg.DefaultStatus,
		DefaultVisibility: cfg.DefaultVisibility,
		BatchSize:         cfg.BatchSize,
		MaxPerRun:         cfg.MaxPerRun,
	}, log)
	c.ImportService.SetEventPublisher(c.Events)
	c.ImportService.SetMetrics(c.Metrics)

	c.Fulfillment = fulfillment.NewService(c.OrderStore, log)
	c.TrackingSync = fulfillment.NewTrackingSync(c.Fulfillment, c.OrderStore, trackingProvider(opt), c.LockManager, log)
	c.TrackingSync.SetEventPublisher(c.Events)
	c.TrackingSync.SetMetrics(c.Metrics)

	c.JobRunner = client.NewJobRunner(c.ImportService, c.TrackingSync, cfg.ProcessSchedule, cfg.TrackingSyncDelay, log)
	c.ImportService.SetScheduleTrigger(c.JobRunner)

	return c, nil
}

// Migrate applies the schema migrations under the migration lock.
func (c *Container) Migrate(ctx context.Context) error {
	return db.Migrate(ctx, c.DB, c.Config.StorageDriver, c.LockManager)
}

// Close releases everything the container opened itself.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.ownsBroker {
		if err := c.MessageBroker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close broker: %w", err))
		}
	}
	if c.metricsShutdown != nil {
		if err := c.metricsShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics: %w", err))
		}
	}
	if err := c.closeConnections(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Container) closeConnections() error {
	var errs []error
	if c.ownsRedis && c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.ownsDB && c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}

func dialectFor(driver config.StorageDriver) sqlstore.Dialect {
	if driver == config.Postgres {
		return sqlstore.Postgres
	}
	return sqlstore.SQLite
}

// createDistributedLockManager picks the lock backend. SQLite runs single-node,
// so it falls back to an in-process lock unless redis is requested.
func createDistributedLockManager(cfg *config.Config, sqlDB *sql.DB, redisClient *redis.Client) (lock.DistributedLockManager, error) {
	switch {
	case cfg.LockDriver == config.LockRedis:
		if redisClient == nil {
			return nil, errors.New("redis lock driver selected without a redis client")
		}
		return lock.NewRedisDistributedLockManager(redisClient, cfg.RedisConfig.Prefix, cfg.RedisConfig.LockTTL), nil
	case cfg.StorageDriver == config.Postgres:
		return lock.NewPostgresDistributedLockManager(sqlDB), nil
	default:
		return lock.NewLocalLockManager(), nil
	}
}

func trackingProvider(opt *containerConfig) fulfillment.TrackingProvider {
	if opt.trackingProvider != nil {
		return opt.trackingProvider
	}
	return fulfillment.NewDefaultTrackingProvider()
}
