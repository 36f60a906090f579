// Package credential implements a round-robin pool of forum-API credentials
// with per-credential cooldown state, durable across restarts via Redis.
package credential

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Credential is one set of forum-API auth material.
type Credential struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Username     string `json:"username"`
	Password     string `json:"password"`
}

// Pool hands out credentials round-robin, skipping any currently in
// cooldown. Cooldown state is mirrored to Redis under cooldown:<index> so
// multiple collector processes share it.
type Pool struct {
	rdb   *redis.Client
	creds []Credential

	mu            sync.Mutex
	cooldownUntil []time.Time // local mirror, index-aligned with creds
	lastIndex     int
}

func New(rdb *redis.Client, creds []Credential) *Pool {
	return &Pool{
		rdb:           rdb,
		creds:         creds,
		cooldownUntil: make([]time.Time, len(creds)),
		lastIndex:     -1,
	}
}

func cooldownKey(index int) string {
	return "cooldown:" + strconv.Itoa(index)
}

// refreshCooldowns reads durable cooldown values into the local vector for
// any index it doesn't already consider cooling, so a cooldown set by
// another process is observed here too.
func (p *Pool) refreshCooldowns(ctx context.Context) {
	now := time.Now()
	for i := range p.creds {
		if p.cooldownUntil[i].After(now) {
			continue
		}
		val, err := p.rdb.Get(ctx, cooldownKey(i)).Result()
		if err != nil {
			continue // redis.Nil or transient error: treat as not cooling
		}
		ms, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		p.cooldownUntil[i] = time.UnixMilli(ms)
	}
}

// Next returns the next usable credential, blocking if every credential is
// currently cooling down until the soonest one clears.
func (p *Pool) Next(ctx context.Context) (Credential, int, error) {
	for {
		p.mu.Lock()
		p.refreshCooldowns(ctx)

		now := time.Now()
		n := len(p.creds)
		if n == 0 {
			p.mu.Unlock()
			return Credential{}, -1, fmt.Errorf("credential pool is empty")
		}

		minWait := time.Duration(-1)
		for step := 1; step <= n; step++ {
			idx := (p.lastIndex + step) % n
			if p.cooldownUntil[idx].IsZero() || !p.cooldownUntil[idx].After(now) {
				p.lastIndex = idx
				cred := p.creds[idx]
				p.mu.Unlock()
				return cred, idx, nil
			}
			if wait := p.cooldownUntil[idx].Sub(now); minWait < 0 || wait < minWait {
				minWait = wait
			}
		}
		p.mu.Unlock()

		select {
		case <-time.After(minWait):
		case <-ctx.Done():
			return Credential{}, -1, ctx.Err()
		}
	}
}

// Cooldown marks a credential as unusable for duration, both locally and
// durably, so every collector process backs off it.
func (p *Pool) Cooldown(ctx context.Context, index int, duration time.Duration) error {
	until := time.Now().Add(duration)

	p.mu.Lock()
	if index >= 0 && index < len(p.cooldownUntil) {
		p.cooldownUntil[index] = until
	}
	p.mu.Unlock()

	err := p.rdb.Set(ctx, cooldownKey(index), until.UnixMilli(), duration).Err()
	if err != nil {
		return fmt.Errorf("setting durable cooldown for credential %d: %w", index, err)
	}
	return nil
}

// Len returns the number of credentials in the pool.
func (p *Pool) Len() int {
	return len(p.creds)
}
