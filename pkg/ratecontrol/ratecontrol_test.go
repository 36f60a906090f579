package ratecontrol

import (
	"context"
	"testing"
	"time"
)

func TestNewPerMinute_ConvertsToPerSecond(t *testing.T) {
	g := NewPerMinute(120, 10)
	if g.limiter.Limit() != 2 {
		t.Errorf("limiter rate = %v, want 2 (120/min = 2/sec)", g.limiter.Limit())
	}
	if g.limiter.Burst() != 10 {
		t.Errorf("limiter burst = %d, want 10", g.limiter.Burst())
	}
	if g.minGap != 0 {
		t.Errorf("minGap = %v, want 0 for NewPerMinute", g.minGap)
	}
}

func TestGate_Wait_GrantsWithinCapacity(t *testing.T) {
	g := New(100, 5, 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		if err := g.Wait(ctx); err != nil {
			t.Fatalf("Wait() call %d returned error: %v", i, err)
		}
	}
}

func TestGate_WaitN_ReservesMultipleTokens(t *testing.T) {
	g := New(1000, 50, 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := g.WaitN(ctx, 10); err != nil {
		t.Fatalf("WaitN returned error: %v", err)
	}
}
