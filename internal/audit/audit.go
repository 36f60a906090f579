// Package audit records per-stage pipeline execution history (inputs,
// outputs, latency, token usage, errors) as an async, buffered writer so
// the hot path never blocks on a database round trip.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is a single pipeline-stage audit record.
type Entry struct {
	PostID     string
	Stage      string
	Success    bool
	Input      json.RawMessage
	Output     json.RawMessage
	ErrorKind  string
	LatencyMs  float64
	TokensUsed int
}

// Writer is an async, buffered audit log writer. Entries are sent to an
// internal channel and flushed by a background goroutine.
type Writer struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	entries chan Entry
	wg      sync.WaitGroup
}

const (
	bufferSize    = 256
	flushInterval = 2 * time.Second
	flushBatch    = 32
)

// NewWriter creates an audit Writer. Call Start to begin processing entries.
func NewWriter(pool *pgxpool.Pool, logger *slog.Logger) *Writer {
	return &Writer{
		pool:    pool,
		logger:  logger,
		entries: make(chan Entry, bufferSize),
	}
}

// Start begins the background goroutine that flushes audit entries to the
// database and returns immediately. The goroutine flushes pending entries
// and exits when the context is cancelled or Close is called.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Close waits for all pending entries to be flushed.
func (w *Writer) Close() {
	close(w.entries)
	w.wg.Wait()
}

// Record enqueues an audit entry for async writing. It never blocks the
// caller; if the buffer is full the entry is dropped and a warning logged,
// since audit history must never slow down enrichment.
func (w *Writer) Record(entry Entry) {
	select {
	case w.entries <- entry:
	default:
		w.logger.Warn("audit log buffer full, dropping entry",
			"post_id", entry.PostID, "stage", entry.Stage)
	}
}

func (w *Writer) run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, flushBatch)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-w.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case entry, ok := <-w.entries:
					if !ok {
						flush()
						return
					}
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

// flush writes a batch of entries to audit_log in a single statement batch.
func (w *Writer) flush(entries []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	for _, e := range entries {
		input := e.Input
		if len(input) == 0 {
			input = []byte(`{}`)
		}
		output := e.Output
		if len(output) == 0 {
			output = []byte(`{}`)
		}
		batch.Queue(`
			INSERT INTO audit_log (post_id, stage, success, input, output, error_kind, latency_ms, tokens_used)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, e.PostID, e.Stage, e.Success, input, output, e.ErrorKind, e.LatencyMs, e.TokensUsed)
	}

	br := w.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			w.logger.Error("writing audit log entry", "error", err)
		}
	}
}
