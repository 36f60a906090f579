package rawpost

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the narrow raw-post persistence interface. PostgresStore is its
// only implementation in this module, and the collector takes
// *PostgresStore directly.
type Store interface {
	// Insert writes a RawPost row in status "unprocessed". It is idempotent:
	// inserting a post whose id already exists is a no-op and returns
	// (false, nil) rather than an error, since the id space is the dedup key.
	Insert(ctx context.Context, p RawPost) (inserted bool, err error)
	Get(ctx context.Context, id string) (RawPost, error)
}

// PostgresStore persists RawPost rows into the shared posts table (the same
// table the enrichment pipeline later updates in place).
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool; it never owns its lifecycle.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, p RawPost) (bool, error) {
	metadata := p.Metadata
	if len(metadata) == 0 {
		metadata = []byte(`{}`)
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO posts (id, source, sub_source, title, body, author, score, url, metadata, raw_created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, p.ID, p.Source, p.SubSource, p.Title, p.Body, p.Author, p.Score, p.URL, metadata, p.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("inserting raw post %q: %w", p.ID, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (RawPost, error) {
	var p RawPost
	err := s.db.QueryRow(ctx, `
		SELECT id, source, sub_source, title, body, author, score, url, metadata, raw_created_at
		FROM posts WHERE id = $1
	`, id).Scan(&p.ID, &p.Source, &p.SubSource, &p.Title, &p.Body, &p.Author, &p.Score, &p.URL, &p.Metadata, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return RawPost{}, fmt.Errorf("raw post %q: %w", id, ErrNotFound)
		}
		return RawPost{}, fmt.Errorf("fetching raw post %q: %w", id, err)
	}
	return p, nil
}

// ErrNotFound is returned when a lookup by id finds no row.
var ErrNotFound = fmt.Errorf("raw post not found")
