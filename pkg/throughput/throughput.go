// Package throughput tracks a rolling current-minute count of fetched posts
// in Redis, the way internal/auth/ratelimit.go tracks failed login attempts
// with INCR + EXPIRE.
package throughput

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const key = "posts:fetched:current_minute"

// Counter tracks how many posts have been fetched within the current
// rolling one-minute window.
type Counter struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Counter {
	return &Counter{rdb: rdb}
}

// Record adds n to the current-minute count, setting a fresh one-minute
// expiry on the first increment of a window so it rolls over on its own.
func (c *Counter) Record(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	incr := pipe.IncrBy(ctx, key, int64(n))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording throughput: %w", err)
	}

	if incr.Val() == int64(n) {
		c.rdb.Expire(ctx, key, time.Minute)
	}
	return nil
}

// Get returns the current-minute count, or 0 if nothing has been recorded
// since the window last rolled over.
func (c *Counter) Get(ctx context.Context) (int64, error) {
	val, err := c.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading throughput: %w", err)
	}
	return val, nil
}
