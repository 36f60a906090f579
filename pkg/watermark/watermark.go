// Package watermark tracks, per subSource, the highest rawCreatedAt seen so
// far so the collector can skip already-harvested history.
package watermark

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Store is a durable, monotonically non-decreasing high-watermark per key.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func key(subSource string) string {
	return "last_fetch:" + subSource
}

// Get returns the current watermark for subSource, or 0 if none recorded.
func (s *Store) Get(ctx context.Context, subSource string) (int64, error) {
	val, err := s.rdb.Get(ctx, key(subSource)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading watermark for %q: %w", subSource, err)
	}

	ts, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing watermark for %q: %w", subSource, err)
	}
	return ts, nil
}

// Advance sets the watermark to ts if ts is greater than the current value;
// otherwise it is a no-op. Non-decreasing by construction.
func (s *Store) Advance(ctx context.Context, subSource string, ts int64) error {
	current, err := s.Get(ctx, subSource)
	if err != nil {
		return err
	}
	if ts <= current {
		return nil
	}
	if err := s.rdb.Set(ctx, key(subSource), ts, 0).Err(); err != nil {
		return fmt.Errorf("advancing watermark for %q: %w", subSource, err)
	}
	return nil
}

// FilterNew returns only the items whose createdAt is strictly newer than
// the given watermark.
func FilterNew[T any](items []T, createdAt func(T) int64, watermark int64) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if createdAt(item) > watermark {
			out = append(out, item)
		}
	}
	return out
}
