package jobqueue

import (
	"encoding/json"
	"testing"
)

func TestCounts_JSONFieldNames(t *testing.T) {
	c := Counts{Waiting: 1, Active: 2, Completed: 3, Failed: 4}
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshalling Counts: %v", err)
	}

	var got map[string]int
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshalling into map: %v", err)
	}

	want := map[string]int{"waiting": 1, "active": 2, "completed": 3, "failed": 4}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("field %q = %d, want %d", k, got[k], v)
		}
	}
}

func TestNew_NonPositiveMaxAttemptsDefaultsToThree(t *testing.T) {
	q := New(nil, 0)
	if q.maxAttempts != 3 {
		t.Errorf("maxAttempts = %d, want 3", q.maxAttempts)
	}

	q = New(nil, -1)
	if q.maxAttempts != 3 {
		t.Errorf("maxAttempts = %d, want 3 for negative input", q.maxAttempts)
	}
}
