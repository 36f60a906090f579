package stages

import (
	"strings"
	"testing"
)

func TestCategoryAssign_NoLLMFallsBackToOther(t *testing.T) {
	c := NewCategoryAssign(nil, nil, nil)
	name, description, parent, tokens := c.pick(nil, rawpostForTest(), nil)
	if name != "Other" {
		t.Errorf("name = %q, want %q", name, "Other")
	}
	if description != "" || parent != "" || tokens != 0 {
		t.Errorf("pick() = (%q, %q, %d), want all zero values", description, parent, tokens)
	}
}

func TestBuildCategoryPrompt_ListsAllCandidates(t *testing.T) {
	candidates := []string{"Fintech", "Gaming", "Other"}
	prompt := buildCategoryPrompt(candidates)
	for _, c := range candidates {
		if !strings.Contains(prompt, c) {
			t.Errorf("prompt missing candidate %q: %s", c, prompt)
		}
	}
}

func TestFixedIndustryLabels_EndsWithOther(t *testing.T) {
	if got := fixedIndustryLabels[len(fixedIndustryLabels)-1]; got != "Other" {
		t.Errorf("last fixed industry label = %q, want %q", got, "Other")
	}
}
