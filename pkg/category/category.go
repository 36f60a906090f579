// Package category implements the find-or-create repository over the
// categories table, which forms a parent-linked DAG of industry labels.
package category

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Category is one node in the category DAG.
type Category struct {
	ID          int
	Name        string
	Description string
	ParentID    *int
}

// Store is the find-or-create repository. Uniqueness by name guarantees the
// CategoryAssign stage never creates duplicate categories for the same
// label.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// FindOrCreate returns the existing category by name, or creates one with
// the given description/parent if none exists yet.
func (s *Store) FindOrCreate(ctx context.Context, name, description string, parentID *int) (Category, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO categories (name, description, parent_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, description, parent_id
	`, name, description, parentID)

	var c Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.ParentID); err == nil {
		return c, nil
	} else if err != pgx.ErrNoRows {
		return Category{}, fmt.Errorf("creating category %q: %w", name, err)
	}

	// The insert hit the unique conflict: the category already exists.
	row = s.db.QueryRow(ctx, `SELECT id, name, description, parent_id FROM categories WHERE name = $1`, name)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.ParentID); err != nil {
		return Category{}, fmt.Errorf("fetching existing category %q: %w", name, err)
	}
	return c, nil
}

// ListNames returns every existing category name, used by CategoryAssign to
// feed the LLM's candidate list alongside the fixed industry labels.
func (s *Store) ListNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing category names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning category name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
