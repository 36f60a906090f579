// Package ratecontrol provides token-bucket rate limiting for the external
// resource classes the collector and pipeline must honor: forum API calls
// and per-minute LLM request/token budgets. The Gate type is general enough
// to rate-limit other upstreams (e.g. an RSS poller) if one is added.
package ratecontrol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate wraps golang.org/x/time/rate.Limiter with capacity/refill-per-second
// vocabulary instead of rate.Limit's burst/limit pair, and adds an optional
// minimum inter-call gap. Safe for concurrent waiters.
type Gate struct {
	limiter *rate.Limiter
	minGap  time.Duration

	mu           sync.Mutex
	lastCallUnix int64 // unix nanos of the last granted call, 0 if none yet
}

// New creates a Gate with the given refill rate (events/sec), bucket
// capacity (burst), and minimum gap enforced between successive calls even
// when tokens are available.
func New(refillPerSecond float64, capacity int, minGap time.Duration) *Gate {
	return &Gate{
		limiter: rate.NewLimiter(rate.Limit(refillPerSecond), capacity),
		minGap:  minGap,
	}
}

// NewPerMinute is a convenience constructor for "N per minute" buckets
// with no minimum gap (requestsPerMinute, tokensPerMinute).
func NewPerMinute(perMinute int, capacity int) *Gate {
	return New(float64(perMinute)/60.0, capacity, 0)
}

// Wait blocks until a single token is available and the minimum gap since
// the previous granted call has elapsed, or ctx is cancelled. Safe under
// parallel waiters: each caller serializes on the gap check so two
// goroutines never both read a stale lastCallUnix and proceed together.
func (g *Gate) Wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate gate wait: %w", err)
	}

	if g.minGap > 0 {
		g.mu.Lock()
		defer g.mu.Unlock()

		if elapsed := time.Since(time.Unix(0, g.lastCallUnix)); g.lastCallUnix != 0 && elapsed < g.minGap {
			select {
			case <-time.After(g.minGap - elapsed):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		g.lastCallUnix = time.Now().UnixNano()
		return nil
	}

	g.mu.Lock()
	g.lastCallUnix = time.Now().UnixNano()
	g.mu.Unlock()
	return nil
}

// WaitN behaves like Wait but reserves n tokens at once, used for the
// tokensPerMinute gate where a single LLM call may consume many tokens.
func (g *Gate) WaitN(ctx context.Context, n int) error {
	if err := g.limiter.WaitN(ctx, n); err != nil {
		return fmt.Errorf("rate gate waitN: %w", err)
	}
	return nil
}
