// Package dedup provides an at-most-once membership index over previously
// seen post ids, backed by a Redis set so it survives restarts and is
// shared across collector processes.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds memory growth; refreshed on every write so an
// actively-seen id's entry never expires out from under it.
const DefaultTTL = 90 * 24 * time.Hour

// Index is a durable at-most-once set keyed by source.
type Index struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Index {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Index{rdb: rdb, ttl: ttl}
}

func seenKey(source string) string {
	return "seen:" + source
}

// Add inserts id into the source's set and reports whether it was new.
// SADD's own return value makes this atomic: Redis returns the count of
// elements actually added, which is 0 for an id already present.
func (idx *Index) Add(ctx context.Context, source, id string) (wasNew bool, err error) {
	key := seenKey(source)

	added, err := idx.rdb.SAdd(ctx, key, id).Result()
	if err != nil {
		return false, fmt.Errorf("dedup add %q: %w", id, err)
	}

	if err := idx.rdb.Expire(ctx, key, idx.ttl).Err(); err != nil {
		return added > 0, fmt.Errorf("dedup refresh ttl for %q: %w", source, err)
	}

	return added > 0, nil
}

// AddMany inserts multiple ids in one round trip and returns how many were
// new (SADD's accumulated added-count across all members).
func (idx *Index) AddMany(ctx context.Context, source string, ids []string) (newCount int, err error) {
	if len(ids) == 0 {
		return 0, nil
	}

	key := seenKey(source)

	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	added, err := idx.rdb.SAdd(ctx, key, members...).Result()
	if err != nil {
		return 0, fmt.Errorf("dedup add many (source=%s): %w", source, err)
	}

	if err := idx.rdb.Expire(ctx, key, idx.ttl).Err(); err != nil {
		return int(added), fmt.Errorf("dedup refresh ttl for %q: %w", source, err)
	}

	return int(added), nil
}

// ContainsMany reports membership for each id, keyed by id, using a
// single pipelined round trip.
func (idx *Index) ContainsMany(ctx context.Context, source string, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	key := seenKey(source)

	pipe := idx.rdb.Pipeline()
	cmds := make([]*redis.BoolCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.SIsMember(ctx, key, id)
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("dedup contains many (source=%s): %w", source, err)
	}

	for i, id := range ids {
		out[id] = cmds[i].Val()
	}
	return out, nil
}

// SeedStream warm-starts the index from an id channel (typically a streamed
// pass over the raw-post store) so a freshly restarted collector doesn't
// treat everything it has already seen as new.
func (idx *Index) SeedStream(ctx context.Context, source string, ids <-chan string) error {
	const batchSize = 500

	batch := make([]string, 0, batchSize)
	for id := range ids {
		batch = append(batch, id)
		if len(batch) >= batchSize {
			if _, err := idx.AddMany(ctx, source, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if _, err := idx.AddMany(ctx, source, batch); err != nil {
			return err
		}
	}
	return nil
}
