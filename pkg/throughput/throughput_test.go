package throughput

import (
	"context"
	"testing"
)

func TestRecord_NonPositiveIsNoop(t *testing.T) {
	c := New(nil)

	if err := c.Record(context.Background(), 0); err != nil {
		t.Errorf("Record(0) with nil client should no-op, got error: %v", err)
	}
	if err := c.Record(context.Background(), -5); err != nil {
		t.Errorf("Record(-5) with nil client should no-op, got error: %v", err)
	}
}
