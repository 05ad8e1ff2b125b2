package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-travel-sales/internal/metrics"
	"ms-travel-sales/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Locker serializes cart mutations and settlement per user.
type Locker interface {
	WithUser(ctx context.Context, userID string, fn func(ctx context.Context) error) error
}

const retryInterval = 25 * time.Millisecond

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	Client  *redis.Client
	TTL     time.Duration
	MaxWait time.Duration
}

func NewRedisLocker(client *redis.Client, ttl, maxWait time.Duration) *RedisLocker {
	return &RedisLocker{Client: client, TTL: ttl, MaxWait: maxWait}
}

func key(userID string) string {
	return "cart_lock:" + userID
}

// Acquire takes the user's lock, polling until MaxWait elapses. It returns
// the owner token needed to release it.
func (l *RedisLocker) Acquire(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	start := time.Now()
	deadline := start.Add(l.MaxWait)

	for {
		ok, err := l.Client.SetNX(ctx, key(userID), token, l.TTL).Result()
		if err != nil {
			return "", fmt.Errorf("acquire cart lock: %w", err)
		}
		if ok {
			metrics.LockWait.Observe(time.Since(start).Seconds())
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w: cart of user %s is locked", models.ErrBusy, userID)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// Release deletes the lock only while token still owns it.
func (l *RedisLocker) Release(ctx context.Context, userID, token string) error {
	err := releaseScript.Run(ctx, l.Client, []string{key(userID)}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release cart lock: %w", err)
	}
	return nil
}

func (l *RedisLocker) WithUser(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	token, err := l.Acquire(ctx, userID)
	if err != nil {
		return err
	}
	// Release on a fresh context so a cancelled request still frees the lock.
	defer l.Release(context.Background(), userID, token)
	return fn(ctx)
}
