package audit

import (
	"log/slog"
	"testing"
)

func TestRecord_DropsWhenFull(t *testing.T) {
	logger := slog.Default()
	w := NewWriter(nil, logger)
	// Don't start the background goroutine: nothing drains the channel.

	for i := 0; i < bufferSize; i++ {
		w.Record(Entry{PostID: "p1", Stage: "spam_check"})
	}

	// The next record should be dropped (non-blocking).
	w.Record(Entry{PostID: "p2", Stage: "dropped"})

	if len(w.entries) != bufferSize {
		t.Errorf("buffer size = %d, want %d", len(w.entries), bufferSize)
	}
}

func TestRecord_DoesNotBlockCaller(t *testing.T) {
	logger := slog.Default()
	w := NewWriter(nil, logger)

	done := make(chan struct{})
	go func() {
		w.Record(Entry{PostID: "p1", Stage: "classification", Success: true})
		close(done)
	}()

	select {
	case <-done:
	default:
	}
	<-done
}
