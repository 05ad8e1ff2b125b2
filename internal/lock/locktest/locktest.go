// Package locktest backs the cart lock with miniredis.
package locktest

import (
	"testing"
	"time"

	"ms-travel-sales/internal/lock"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func New(t *testing.T) (*lock.RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return lock.NewRedisLocker(client, 30*time.Second, 200*time.Millisecond), mr
}
