package enrichedpost

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the repository over the shared posts table's enrichment columns.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ErrNotFound is returned when a post id has no row.
var ErrNotFound = fmt.Errorf("enriched post not found")

// Get fetches the current enrichment state of a post.
func (s *Store) Get(ctx context.Context, id string) (EnrichedPost, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, status, is_spam, has_pii, moderation_notes, is_valid, validity_reason,
		       classification, classification_confidence, summary, keywords, embedding,
		       sentiment_label, sentiment_score, category_id, cluster_id, retry_count,
		       error_message, lock_epoch, created_at, updated_at,
		       processing_started_at, processed_at, failed_at
		FROM posts WHERE id = $1
	`, id)
	return scanRow(row)
}

func scanRow(row pgx.Row) (EnrichedPost, error) {
	var e EnrichedPost
	var classification *string
	var sentiment *string

	err := row.Scan(
		&e.ID, &e.Status, &e.IsSpam, &e.HasPII, &e.ModerationNotes, &e.IsValid, &e.ValidityReason,
		&classification, &e.ClassificationConfidence, &e.Summary, &e.Keywords, &e.Embedding,
		&sentiment, &e.SentimentScore, &e.CategoryID, &e.ClusterID, &e.RetryCount,
		&e.ErrorMessage, &e.LockEpoch, &e.CreatedAt, &e.UpdatedAt,
		&e.ProcessingStartedAt, &e.ProcessedAt, &e.FailedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return EnrichedPost{}, ErrNotFound
		}
		return EnrichedPost{}, fmt.Errorf("scanning enriched post row: %w", err)
	}

	if classification != nil {
		c := Classification(*classification)
		e.Classification = &c
	}
	if sentiment != nil {
		sv := SentimentLabel(*sentiment)
		e.SentimentLabel = &sv
	}

	return e, nil
}

// AcquirePostLock is the atomic reserve RPC: it returns true exactly once
// per (postId, epoch) by bumping status to "processing" only when the post
// is not already processing/processed, giving post-level mutual exclusion
// across concurrent workers. It only updates an existing posts row; an id
// with no row is not inserted and reports acquired=false.
func (s *Store) AcquirePostLock(ctx context.Context, id string) (acquired bool, epoch int64, err error) {
	row := s.db.QueryRow(ctx, `
		UPDATE posts
		SET status = 'processing', lock_epoch = lock_epoch + 1, processing_started_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ('unprocessed', 'failed')
		RETURNING lock_epoch
	`, id)

	if err := row.Scan(&epoch); err != nil {
		if err == pgx.ErrNoRows {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("acquiring post lock for %q: %w", id, err)
	}
	return true, epoch, nil
}

// ReleaseAsProcessed transitions a post to its terminal processed state.
func (s *Store) ReleaseAsProcessed(ctx context.Context, id string, epoch int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE posts SET status = 'processed', processed_at = now(), updated_at = now()
		WHERE id = $1 AND lock_epoch = $2
	`, id, epoch)
	if err != nil {
		return fmt.Errorf("releasing post %q as processed: %w", id, err)
	}
	return nil
}

// ReleaseAsFailed transitions a post to failed and atomically increments
// retry_count, recording the error.
func (s *Store) ReleaseAsFailed(ctx context.Context, id string, epoch int64, errMsg string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE posts
		SET status = 'failed', failed_at = now(), updated_at = now(),
		    retry_count = retry_count + 1, error_message = $3
		WHERE id = $1 AND lock_epoch = $2
	`, id, epoch, errMsg)
	if err != nil {
		return fmt.Errorf("releasing post %q as failed: %w", id, err)
	}
	return nil
}

// ApplySpamCheck writes the SpamCheck stage's verdict.
func (s *Store) ApplySpamCheck(ctx context.Context, id string, isSpam, hasPII bool, notes string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE posts SET is_spam = $2, has_pii = $3, moderation_notes = $4, updated_at = now() WHERE id = $1
	`, id, isSpam, hasPII, notes)
	if err != nil {
		return fmt.Errorf("applying spam check for %q: %w", id, err)
	}
	return nil
}

// ApplyValidity writes the ValidityCheck stage's verdict.
func (s *Store) ApplyValidity(ctx context.Context, id string, isValid bool, reason string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE posts SET is_valid = $2, validity_reason = $3, updated_at = now() WHERE id = $1
	`, id, isValid, reason)
	if err != nil {
		return fmt.Errorf("applying validity check for %q: %w", id, err)
	}
	return nil
}

// ApplyClassification writes the Classification stage's verdict.
func (s *Store) ApplyClassification(ctx context.Context, id string, classification Classification, confidence float64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE posts SET classification = $2, classification_confidence = $3, updated_at = now() WHERE id = $1
	`, id, classification, confidence)
	if err != nil {
		return fmt.Errorf("applying classification for %q: %w", id, err)
	}
	return nil
}

// ApplySemantic writes the SemanticAnalysis stage's output.
func (s *Store) ApplySemantic(ctx context.Context, id string, summary string, keywords []string, embedding []float64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE posts SET summary = $2, keywords = $3, embedding = $4, updated_at = now() WHERE id = $1
	`, id, summary, keywords, embedding)
	if err != nil {
		return fmt.Errorf("applying semantic analysis for %q: %w", id, err)
	}
	return nil
}

// ApplySentiment writes the SentimentAnalysis stage's output.
func (s *Store) ApplySentiment(ctx context.Context, id string, label SentimentLabel, score float64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE posts SET sentiment_label = $2, sentiment_score = $3, updated_at = now() WHERE id = $1
	`, id, label, score)
	if err != nil {
		return fmt.Errorf("applying sentiment analysis for %q: %w", id, err)
	}
	return nil
}

// ApplyCategory writes the CategoryAssign stage's output.
func (s *Store) ApplyCategory(ctx context.Context, id string, categoryID int) error {
	_, err := s.db.Exec(ctx, `UPDATE posts SET category_id = $2, updated_at = now() WHERE id = $1`, id, categoryID)
	if err != nil {
		return fmt.Errorf("applying category for %q: %w", id, err)
	}
	return nil
}

// ApplyCluster writes the ClusterAssign stage's output.
func (s *Store) ApplyCluster(ctx context.Context, id string, clusterID int) error {
	_, err := s.db.Exec(ctx, `UPDATE posts SET cluster_id = $2, updated_at = now() WHERE id = $1`, id, clusterID)
	if err != nil {
		return fmt.Errorf("applying cluster for %q: %w", id, err)
	}
	return nil
}

// InsertDerived creates a linked enriched record for a derived sub-problem,
// copying the parent's raw post fields but starting fresh pipeline state.
// id must already be of the form "<origId>-Derived-<uuid>".
func (s *Store) InsertDerived(ctx context.Context, origID, derivedID, title, body string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO posts (id, source, sub_source, title, body, author, score, url, metadata, raw_created_at, status)
		SELECT $2, source, sub_source, $3, $4, author, score, url, metadata, raw_created_at, 'unprocessed'
		FROM posts WHERE id = $1
		ON CONFLICT (id) DO NOTHING
	`, origID, derivedID, title, body)
	if err != nil {
		return fmt.Errorf("inserting derived post %q from %q: %w", derivedID, origID, err)
	}
	return nil
}
