package llmclient

import (
	"context"
	"errors"
	"testing"
	"time"
)

type decodeTarget struct {
	Name string `json:"name"`
}

func TestDecodeVerdict_Success(t *testing.T) {
	var v decodeTarget
	if ok := DecodeVerdict(`{"name":"bug"}`, &v); !ok {
		t.Fatal("DecodeVerdict should report ok=true for valid JSON")
	}
	if v.Name != "bug" {
		t.Errorf("Name = %q, want %q", v.Name, "bug")
	}
}

func TestDecodeVerdict_InvalidJSON(t *testing.T) {
	var v decodeTarget
	if ok := DecodeVerdict("not json", &v); ok {
		t.Error("DecodeVerdict should report ok=false for invalid JSON")
	}
}

func TestWithRetry_SucceedsWithoutExhaustingAttempts(t *testing.T) {
	c := &Client{retryAttempts: 3, retryDelay: time.Millisecond}
	calls := 0
	err := c.withRetry(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry returned error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	c := &Client{retryAttempts: 2, retryDelay: time.Millisecond}
	calls := 0
	err := c.withRetry(context.Background(), func() error {
		calls++
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("withRetry should return an error once attempts are exhausted")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
