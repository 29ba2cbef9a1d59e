// Package lock serializes crawls of the same company across processes with
// short-lived Redis keys.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed holder can block a company.
const DefaultTTL = 10 * time.Minute

// KeyPrefix namespaces lock keys.
const KeyPrefix = "jobintel:crawl-lock:"

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("crawl lock held")

// releaseScript deletes the key only if it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Client is the subset of the go-redis client the locker needs.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// RedisLocker hands out per-key locks stored in Redis.
type RedisLocker struct {
	client Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker. A non-positive ttl uses DefaultTTL.
func NewRedisLocker(client Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// Acquire takes the lock for key or fails with ErrLockHeld. The returned
// release func is safe to call once the lock has expired or been taken over.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := KeyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, key)
	}

	release := func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := l.client.Eval(rctx, releaseScript, []string{redisKey}, token).Err(); err != nil {
			log.Printf("[LOCK] Failed to release %s: %v", key, err)
		}
	}
	return release, nil
}
