package dedup

import (
	"testing"
	"time"
)

func TestSeenKey(t *testing.T) {
	if got := seenKey("forum"); got != "seen:forum" {
		t.Errorf("seenKey(%q) = %q, want %q", "forum", got, "seen:forum")
	}
}

func TestDefaultTTL(t *testing.T) {
	if DefaultTTL != 90*24*time.Hour {
		t.Errorf("DefaultTTL = %v, want 90 days", DefaultTTL)
	}
}

func TestNew_NonPositiveTTLFallsBackToDefault(t *testing.T) {
	idx := New(nil, 0)
	if idx.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want DefaultTTL", idx.ttl)
	}

	idx = New(nil, -time.Second)
	if idx.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want DefaultTTL for negative input", idx.ttl)
	}
}

func TestNew_PositiveTTLIsKept(t *testing.T) {
	idx := New(nil, time.Hour)
	if idx.ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h", idx.ttl)
	}
}
