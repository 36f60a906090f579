// Package jobqueue is a durable, at-least-once FIFO queue backed by
// Postgres. Jobs carry a raw post payload to be enriched; workers claim rows
// with FOR UPDATE SKIP LOCKED so multiple consumers can pull concurrently.
package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/scoutwell/pkg/rawpost"
)

const queueName = "orchestrator"

// Status values a job row can be in.
const (
	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one unit of work: enrich a single raw post.
type Job struct {
	ID         uuid.UUID
	Payload    rawpost.RawPost
	Status     string
	Attempts   int
	MaxAttempts int
}

// Counts reports the current queue depth by state.
type Counts struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Queue is the Postgres-backed implementation.
type Queue struct {
	db         *pgxpool.Pool
	maxAttempts int
}

func New(db *pgxpool.Pool, maxAttempts int) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Queue{db: db, maxAttempts: maxAttempts}
}

// Enqueue inserts one job in status "waiting".
func (q *Queue) Enqueue(ctx context.Context, post rawpost.RawPost) (uuid.UUID, error) {
	payload, err := json.Marshal(post)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshalling job payload: %w", err)
	}

	var id uuid.UUID
	err = q.db.QueryRow(ctx, `
		INSERT INTO jobs (queue_name, payload, status, max_attempts)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, queueName, payload, StatusWaiting, q.maxAttempts).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueueing job: %w", err)
	}
	return id, nil
}

// EnqueueBulk inserts many jobs in a single round trip via a batch.
func (q *Queue) EnqueueBulk(ctx context.Context, posts []rawpost.RawPost) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, p := range posts {
		payload, err := json.Marshal(p)
		if err != nil {
			return 0, fmt.Errorf("marshalling job payload for %q: %w", p.ID, err)
		}
		batch.Queue(`
			INSERT INTO jobs (queue_name, payload, status, max_attempts)
			VALUES ($1, $2, $3, $4)
		`, queueName, payload, StatusWaiting, q.maxAttempts)
	}

	br := q.db.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range posts {
		if _, err := br.Exec(); err != nil {
			return inserted, fmt.Errorf("enqueueing bulk jobs: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

// Counts returns the current depth per state.
func (q *Queue) Counts(ctx context.Context) (Counts, error) {
	rows, err := q.db.Query(ctx, `
		SELECT status, count(*) FROM jobs WHERE queue_name = $1 GROUP BY status
	`, queueName)
	if err != nil {
		return Counts{}, fmt.Errorf("counting jobs: %w", err)
	}
	defer rows.Close()

	var c Counts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Counts{}, fmt.Errorf("scanning job count row: %w", err)
		}
		switch status {
		case StatusWaiting:
			c.Waiting = n
		case StatusActive:
			c.Active = n
		case StatusCompleted:
			c.Completed = n
		case StatusFailed:
			c.Failed = n
		}
	}
	return c, rows.Err()
}

// Claim atomically claims up to n waiting jobs whose run_after has passed,
// marking them active. Uses FOR UPDATE SKIP LOCKED so concurrent workers
// never double-claim the same row.
func (q *Queue) Claim(ctx context.Context, n int) ([]Job, error) {
	tx, err := q.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, payload, attempts, max_attempts
		FROM jobs
		WHERE queue_name = $1 AND status = $2 AND run_after <= now()
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT $3
	`, queueName, StatusWaiting, n)
	if err != nil {
		return nil, fmt.Errorf("selecting claimable jobs: %w", err)
	}

	var jobs []Job
	var ids []uuid.UUID
	for rows.Next() {
		var j Job
		var payload []byte
		if err := rows.Scan(&j.ID, &payload, &j.Attempts, &j.MaxAttempts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning claimable job: %w", err)
		}
		if err := json.Unmarshal(payload, &j.Payload); err != nil {
			rows.Close()
			return nil, fmt.Errorf("unmarshalling job %s payload: %w", j.ID, err)
		}
		j.Status = StatusActive
		jobs = append(jobs, j)
		ids = append(ids, j.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, err := tx.Exec(ctx, `
			UPDATE jobs SET status = $1, attempts = attempts + 1, updated_at = now() WHERE id = $2
		`, StatusActive, id); err != nil {
			return nil, fmt.Errorf("marking job %s active: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing claim transaction: %w", err)
	}
	return jobs, nil
}

// Complete marks a job completed.
func (q *Queue) Complete(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE jobs SET status = $1, updated_at = now() WHERE id = $2`, StatusCompleted, id)
	if err != nil {
		return fmt.Errorf("completing job %s: %w", id, err)
	}
	return nil
}

// Fail records a failed attempt. If attempts have reached max_attempts it
// marks the job permanently failed; otherwise it reschedules with
// exponential backoff starting at 1-2s.
func (q *Queue) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	var attempts, maxAttempts int
	err := q.db.QueryRow(ctx, `SELECT attempts, max_attempts FROM jobs WHERE id = $1`, id).Scan(&attempts, &maxAttempts)
	if err != nil {
		return fmt.Errorf("reading job %s for failure handling: %w", id, err)
	}

	if attempts >= maxAttempts {
		_, err := q.db.Exec(ctx, `
			UPDATE jobs SET status = $1, last_error = $2, updated_at = now() WHERE id = $3
		`, StatusFailed, errMsg, id)
		if err != nil {
			return fmt.Errorf("marking job %s failed: %w", id, err)
		}
		return nil
	}

	backoff := time.Duration(1<<uint(attempts)) * time.Second
	_, err = q.db.Exec(ctx, `
		UPDATE jobs SET status = $1, last_error = $2, run_after = now() + $3::interval, updated_at = now() WHERE id = $4
	`, StatusWaiting, errMsg, fmt.Sprintf("%d seconds", int(backoff.Seconds())), id)
	if err != nil {
		return fmt.Errorf("rescheduling job %s: %w", id, err)
	}
	return nil
}
