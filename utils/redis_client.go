package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ticket-maintenance/internal/status"
)

// NewRedisClient connects to url (a redis:// URL or a bare host:port) and pings it.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		// Fall back to simple connection
		opts = &redis.Options{
			Addr: url,
		}
	}

	// A single job holds at most one lock at a time.
	opts.PoolSize = 4
	opts.MinIdleConns = 1
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	if err := RedisHealthCheck(client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// RedisHealthCheck performs a health check on Redis connection
func RedisHealthCheck(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	return nil
}

// releaseScript deletes the lock only while it still carries our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

var ErrLockLost = errors.New("run lock expired or taken over before release")

// RunLock is a single-holder lock on one Redis key with a TTL, so a crashed
// holder cannot block later runs forever.
type RunLock struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration

	newToken func() string
}

func NewRunLock(client redis.Cmdable, key string, ttl time.Duration) *RunLock {
	return &RunLock{
		client:   client,
		key:      key,
		ttl:      ttl,
		newToken: uuid.NewString,
	}
}

// Acquire takes the lock. It returns status.ErrRunInProgress when the key is
// already held.
func (l *RunLock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrRunInProgress, l.key)
	}

	release := func(ctx context.Context) error {
		n, err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Int()
		if err != nil {
			return fmt.Errorf("unlock %s: %w", l.key, err)
		}
		if n == 0 {
			return ErrLockLost
		}
		return nil
	}
	return release, nil
}
