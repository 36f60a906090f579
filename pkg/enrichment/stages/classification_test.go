package stages

import (
	"testing"

	"github.com/wisbric/scoutwell/pkg/enrichedpost"
)

func TestClassification_NoLLMFallsBackToOther(t *testing.T) {
	c := NewClassification(nil, nil)
	verdict, tokens := c.classify(nil, rawpostForTest())
	if verdict.Classification != string(enrichedpost.ClassificationOther) {
		t.Errorf("Classification = %q, want %q", verdict.Classification, enrichedpost.ClassificationOther)
	}
	if verdict.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", verdict.Confidence)
	}
	if tokens != 0 {
		t.Errorf("tokens = %d, want 0", tokens)
	}
}

func TestValidClassifications_CoversAllEnumValues(t *testing.T) {
	want := []enrichedpost.Classification{
		enrichedpost.ClassificationBug,
		enrichedpost.ClassificationFeatureRequest,
		enrichedpost.ClassificationQuestion,
		enrichedpost.ClassificationDiscussion,
		enrichedpost.ClassificationDocumentation,
		enrichedpost.ClassificationOther,
	}
	for _, c := range want {
		if !validClassifications[c] {
			t.Errorf("validClassifications missing enum value %q", c)
		}
	}
	if len(validClassifications) != len(want) {
		t.Errorf("validClassifications has %d entries, want %d", len(validClassifications), len(want))
	}
}
