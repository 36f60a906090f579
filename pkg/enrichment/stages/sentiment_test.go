package stages

import (
	"testing"

	"github.com/wisbric/scoutwell/pkg/enrichedpost"
)

func TestSentimentAnalysis_NoLLMFallsBackToNeutral(t *testing.T) {
	s := NewSentimentAnalysis(nil, nil)
	verdict, tokens := s.analyze(nil, rawpostForTest())
	if verdict.Sentiment != string(enrichedpost.SentimentNeutral) {
		t.Errorf("Sentiment = %q, want %q", verdict.Sentiment, enrichedpost.SentimentNeutral)
	}
	if verdict.Score != 0 {
		t.Errorf("Score = %v, want 0", verdict.Score)
	}
	if verdict.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", verdict.Confidence)
	}
	if tokens != 0 {
		t.Errorf("tokens = %d, want 0", tokens)
	}
}

func TestValidSentiments_CoversAllEnumValues(t *testing.T) {
	for _, s := range []enrichedpost.SentimentLabel{
		enrichedpost.SentimentPositive,
		enrichedpost.SentimentNeutral,
		enrichedpost.SentimentNegative,
	} {
		if !validSentiments[s] {
			t.Errorf("validSentiments missing enum value %q", s)
		}
	}
}
