package stages

import (
	"math"
	"testing"

	"github.com/wisbric/scoutwell/pkg/enrichment"
)

func TestEngagementScore(t *testing.T) {
	cases := []struct {
		score int
		want  float64
	}{
		{-5, 0},
		{0, 0},
		{9, 0.25},
		{99999, 1.0},
	}
	for _, tc := range cases {
		got := engagementScore(tc.score)
		if math.Abs(got-tc.want) > 0.01 {
			t.Errorf("engagementScore(%d) = %v, want ~%v", tc.score, got, tc.want)
		}
		if got < 0 || got > 1 {
			t.Errorf("engagementScore(%d) = %v, out of [0,1] bound", tc.score, got)
		}
	}
}

func TestRequiredVerdict_NilResult(t *testing.T) {
	_, ok := requiredVerdict[enrichment.ClusterVerdict](nil)
	if ok {
		t.Error("requiredVerdict(nil) should report ok=false")
	}
}

func TestRequiredVerdict_FailedResult(t *testing.T) {
	result := &enrichment.StageResult{Success: false, Data: enrichment.ClusterVerdict{ClusterID: 7}}
	_, ok := requiredVerdict[enrichment.ClusterVerdict](result)
	if ok {
		t.Error("requiredVerdict(failed stage) should report ok=false")
	}
}

func TestRequiredVerdict_WrongType(t *testing.T) {
	result := &enrichment.StageResult{Success: true, Data: enrichment.CategoryVerdict{CategoryID: 1}}
	_, ok := requiredVerdict[enrichment.ClusterVerdict](result)
	if ok {
		t.Error("requiredVerdict should report ok=false on a type mismatch")
	}
}

func TestRequiredVerdict_Success(t *testing.T) {
	result := &enrichment.StageResult{Success: true, Data: enrichment.ClusterVerdict{ClusterID: 42}}
	got, ok := requiredVerdict[enrichment.ClusterVerdict](result)
	if !ok {
		t.Fatal("requiredVerdict should report ok=true for a matching, successful stage")
	}
	if got.ClusterID != 42 {
		t.Errorf("got ClusterID=%d, want 42", got.ClusterID)
	}
}
