package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ms-travel-sales/internal/lock/locktest"
	"ms-travel-sales/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	l, mr := locktest.New(t)
	ctx := context.Background()

	token, err := l.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("cart_lock:user-1"))

	got, err := mr.Get("cart_lock:user-1")
	require.NoError(t, err)
	assert.Equal(t, token, got)

	require.NoError(t, l.Release(ctx, "user-1", token))
	assert.False(t, mr.Exists("cart_lock:user-1"))
}

func TestReleaseIgnoresForeignToken(t *testing.T) {
	l, mr := locktest.New(t)
	ctx := context.Background()

	_, err := l.Acquire(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, l.Release(ctx, "user-1", "someone-else"))
	assert.True(t, mr.Exists("cart_lock:user-1"))
}

func TestAcquireTimesOutWithErrBusy(t *testing.T) {
	l, _ := locktest.New(t)
	l.MaxWait = 60 * time.Millisecond
	ctx := context.Background()

	_, err := l.Acquire(ctx, "user-1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "user-1")
	assert.True(t, errors.Is(err, models.ErrBusy))

	_, err = l.Acquire(ctx, "user-2")
	assert.NoError(t, err, "locks are per user")
}

func TestLockExpiresAfterTTL(t *testing.T) {
	l, mr := locktest.New(t)
	ctx := context.Background()

	_, err := l.Acquire(ctx, "user-1")
	require.NoError(t, err)

	mr.FastForward(31 * time.Second)
	_, err = l.Acquire(ctx, "user-1")
	assert.NoError(t, err)
}

func TestWithUserSerializes(t *testing.T) {
	l, mr := locktest.New(t)
	l.MaxWait = 5 * time.Second

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithUser(context.Background(), "user-1", func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.False(t, mr.Exists("cart_lock:user-1"))
}

func TestWithUserReleasesOnError(t *testing.T) {
	l, mr := locktest.New(t)
	boom := errors.New("boom")

	err := l.WithUser(context.Background(), "user-1", func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("cart_lock:user-1"))
}
