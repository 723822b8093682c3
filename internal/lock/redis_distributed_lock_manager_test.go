package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisDistributedLockManager_Key(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	mgr := NewRedisDistributedLockManager(client, "ali123:", time.Minute)
	var _ DistributedLockManager = mgr
	assert.Equal(t, "ali123:lock:7101", mgr.Key(7101))
}

func TestRedisDistributedLockManager_ReleaseWithoutAcquire(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	mgr := NewRedisDistributedLockManager(client, "", 0)
	assert.Equal(t, 5*time.Minute, mgr.ttl)
	assert.ErrorIs(t, mgr.Release(context.Background(), 1), ErrNotHeld)
}
