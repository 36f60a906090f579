// Package mention provides the append-only repository over the mentions
// table, recorded once per successfully-enriched post.
package mention

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Mention is an immutable record linking a post to its cluster/category.
type Mention struct {
	ID              uuid.UUID
	PostID          string
	ClusterID       int
	CategoryID      int
	SentimentScore  float64
	EngagementScore float64
	MentionedAt     time.Time
}

// Store inserts mention rows. There is no update or delete path: mentions
// are append-only.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Create inserts one mention row and returns its generated id. Re-running
// RecordMention for a post that already has a mention is a no-op: it
// returns uuid.Nil rather than an error, preserving pipeline idempotency.
func (s *Store) Create(ctx context.Context, postID string, clusterID, categoryID int, sentimentScore, engagementScore float64) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		INSERT INTO mentions (post_id, cluster_id, category_id, sentiment_score, engagement_score)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (post_id) DO NOTHING
		RETURNING id
	`, postID, clusterID, categoryID, sentimentScore, engagementScore).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, nil
		}
		return uuid.Nil, fmt.Errorf("recording mention for post %q: %w", postID, err)
	}
	return id, nil
}
