package config

import "fmt"

type StorageDriver int

const (
	Postgres StorageDriver = iota + 1
	SQLite
)

// String converts the StorageDriver enum to a human-readable string.
func (d StorageDriver) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	}
	return "unknown"
}

func ParseStorageDriver(s string) (StorageDriver, error) {
	switch s {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3", "":
		return SQLite, nil
	}
	return 0, fmt.Errorf("unknown storage driver %q", s)
}

type LockDriver int

const (
	LockDatabase LockDriver = iota + 1
	LockRedis
)

func (d LockDriver) String() string {
	switch d {
	case LockDatabase:
		return "database"
	case LockRedis:
		return "redis"
	}
	return "unknown"
}

func ParseLockDriver(s string) (LockDriver, error) {
	switch s {
	case "database", "":
		return LockDatabase, nil
	case "redis":
		return LockRedis, nil
	}
	return 0, fmt.Errorf("unknown lock driver %q", s)
}

type MessageQueueDriver int

const (
	NoMessageQueue MessageQueueDriver = iota
	RabbitMQ
)

func (d MessageQueueDriver) String() string {
	switch d {
	case RabbitMQ:
		return "rabbitmq"
	case NoMessageQueue:
		return "none"
	}
	return "unknown"
}
