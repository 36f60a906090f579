package stages

import (
	"reflect"
	"testing"
)

func TestParseKeywords_JSONArray(t *testing.T) {
	raw := []any{"go", " concurrency ", "channels"}
	got := parseKeywords(raw)
	want := []string{"go", "concurrency", "channels"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseKeywords(array) = %v, want %v", got, want)
	}
}

func TestParseKeywords_JSONArraySkipsNonStrings(t *testing.T) {
	raw := []any{"go", 42, "channels"}
	got := parseKeywords(raw)
	want := []string{"go", "channels"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseKeywords(mixed array) = %v, want %v", got, want)
	}
}

func TestParseKeywords_CommaString(t *testing.T) {
	got := parseKeywords("go, concurrency ,channels")
	want := []string{"go", "concurrency", "channels"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseKeywords(string) = %v, want %v", got, want)
	}
}

func TestParseKeywords_UnexpectedType(t *testing.T) {
	if got := parseKeywords(42); got != nil {
		t.Errorf("parseKeywords(int) = %v, want nil", got)
	}
}

func TestSemanticAnalysis_NoLLMFallback(t *testing.T) {
	s := NewSemanticAnalysis(nil, nil)
	summary, keywords, tokens := s.summarize(nil, rawpostForTest())
	if summary != "" || keywords != nil || tokens != 0 {
		t.Errorf("summarize with nil llm = (%q, %v, %d), want zero values", summary, keywords, tokens)
	}

	embedding, embedTokens := s.embed(nil, rawpostForTest())
	if len(embedding) != embeddingDimension {
		t.Errorf("embed with nil llm returned %d dims, want %d", len(embedding), embeddingDimension)
	}
	if embedTokens != 0 {
		t.Errorf("embed with nil llm returned %d tokens, want 0", embedTokens)
	}
}
