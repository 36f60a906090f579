package stages

import (
	"strings"
	"testing"

	"github.com/wisbric/scoutwell/pkg/rawpost"
)

func TestShortClusterName_UsesTitle(t *testing.T) {
	post := rawpost.RawPost{ID: "p1", Title: "A short title"}
	if got := shortClusterName(post); got != "A short title" {
		t.Errorf("shortClusterName = %q, want %q", got, "A short title")
	}
}

func TestShortClusterName_TruncatesLongTitle(t *testing.T) {
	long := strings.Repeat("x", 120)
	post := rawpost.RawPost{ID: "p2", Title: long}
	got := shortClusterName(post)
	if len(got) != 60 {
		t.Errorf("shortClusterName truncated length = %d, want 60", len(got))
	}
}

func TestShortClusterName_FallsBackToID(t *testing.T) {
	post := rawpost.RawPost{ID: "p3", Title: "   "}
	got := shortClusterName(post)
	if got != "cluster-p3" {
		t.Errorf("shortClusterName = %q, want %q", got, "cluster-p3")
	}
}

func TestNewClusterAssign_DefaultThreshold(t *testing.T) {
	c := NewClusterAssign(nil, nil, 0)
	if c.threshold != defaultClusterThreshold {
		t.Errorf("threshold = %v, want default %v", c.threshold, defaultClusterThreshold)
	}
}

func TestNewClusterAssign_ExplicitThreshold(t *testing.T) {
	c := NewClusterAssign(nil, nil, 0.85)
	if c.threshold != 0.85 {
		t.Errorf("threshold = %v, want 0.85", c.threshold)
	}
}
