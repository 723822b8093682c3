package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when it still carries this holder's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisDistributedLockManager implements locks with SET NX and a TTL so a
// crashed holder cannot block others forever.
type RedisDistributedLockManager struct {
	client    redis.UniversalClient
	prefix    string
	ttl       time.Duration
	retryWait time.Duration

	mu     sync.Mutex
	tokens map[int]string
}

func NewRedisDistributedLockManager(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisDistributedLockManager {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisDistributedLockManager{
		client:    client,
		prefix:    prefix,
		ttl:       ttl,
		retryWait: 100 * time.Millisecond,
		tokens:    make(map[int]string),
	}
}

func (l *RedisDistributedLockManager) Key(lockID int) string {
	return fmt.Sprintf("%slock:%d", l.prefix, lockID)
}

func (l *RedisDistributedLockManager) Acquire(ctx context.Context, lockID int) error {
	ticker := time.NewTicker(l.retryWait)
	defer ticker.Stop()
	for {
		ok, err := l.TryAcquire(ctx, lockID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to acquire lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisDistributedLockManager) TryAcquire(ctx context.Context, lockID int) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.Key(lockID), token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if ok {
		l.mu.Lock()
		l.tokens[lockID] = token
		l.mu.Unlock()
	}
	return ok, nil
}

func (l *RedisDistributedLockManager) Release(ctx context.Context, lockID int) error {
	l.mu.Lock()
	token, ok := l.tokens[lockID]
	delete(l.tokens, lockID)
	l.mu.Unlock()
	if !ok {
		return ErrNotHeld
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.Key(lockID)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
