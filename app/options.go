package app

import (
	"database/sql"

	"github.com/ali123/ali123/internal/fulfillment"
	"github.com/ali123/ali123/internal/message_broaker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ContainerOption configures Container creation. Used for testing and customization.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	// Optional: inject custom connections instead of creating them from config
	db               *sql.DB
	redis            *redis.Client
	broker           message_broaker.MessageBroker
	trackingProvider fulfillment.TrackingProvider
	logger           *zap.Logger
}

// WithDB injects a custom database connection. The container does not close it.
func WithDB(db *sql.DB) ContainerOption {
	return func(c *containerConfig) {
		c.db = db
	}
}

// WithRedis injects a custom Redis client. The container does not close it.
func WithRedis(redis *redis.Client) ContainerOption {
	return func(c *containerConfig) {
		c.redis = redis
	}
}

func WithMessageBroker(broker message_broaker.MessageBroker) ContainerOption {
	return func(c *containerConfig) {
		c.broker = broker
	}
}

func WithTrackingProvider(provider fulfillment.TrackingProvider) ContainerOption {
	return func(c *containerConfig) {
		c.trackingProvider = provider
	}
}

func WithLogger(logger *zap.Logger) ContainerOption {
	return func(c *containerConfig) {
		c.logger = logger
	}
}
