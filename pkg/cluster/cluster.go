// Package cluster implements the ClusterRegistry: a vector index over
// cluster centroids with nearest-neighbor query and incremental centroid
// maintenance.
package cluster

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cluster is one row of the clusters table.
type Cluster struct {
	ID          int
	Name        string
	Centroid    []float64
	MemberCount int
	CategoryID  *int
}

// Match is the result of a nearest-neighbor query.
type Match struct {
	Cluster    Cluster
	Similarity float64
}

// Registry is the Postgres-backed ClusterRegistry.
type Registry struct {
	db *pgxpool.Pool
}

func NewRegistry(db *pgxpool.Pool) *Registry {
	return &Registry{db: db}
}

// CosineSimilarity computes the cosine similarity between two equal-length
// vectors. Returns 0 if either vector has zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	var dot, magA, magB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// FindNearest loads every cluster's centroid and returns the single nearest
// one whose cosine similarity to embedding is >= threshold, or ok=false if
// none qualifies. A full scan is acceptable at the cluster counts this
// system targets; no ANN index is needed at this scale.
func (r *Registry) FindNearest(ctx context.Context, embedding []float64, threshold float64) (Match, bool, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, centroid, member_count, category_id FROM clusters`)
	if err != nil {
		return Match{}, false, fmt.Errorf("loading clusters: %w", err)
	}
	defer rows.Close()

	var best Match
	found := false
	for rows.Next() {
		var c Cluster
		if err := rows.Scan(&c.ID, &c.Name, &c.Centroid, &c.MemberCount, &c.CategoryID); err != nil {
			return Match{}, false, fmt.Errorf("scanning cluster row: %w", err)
		}
		sim := CosineSimilarity(embedding, c.Centroid)
		if sim >= threshold && (!found || sim > best.Similarity) {
			best = Match{Cluster: c, Similarity: sim}
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return Match{}, false, err
	}
	return best, found, nil
}

// Create inserts a brand-new single-member cluster.
func (r *Registry) Create(ctx context.Context, name string, embedding []float64, categoryID *int) (Cluster, error) {
	c := Cluster{Name: name, Centroid: embedding, MemberCount: 1, CategoryID: categoryID}
	err := r.db.QueryRow(ctx, `
		INSERT INTO clusters (name, centroid, member_count, category_id)
		VALUES ($1, $2, 1, $3)
		RETURNING id
	`, name, embedding, categoryID).Scan(&c.ID)
	if err != nil {
		return Cluster{}, fmt.Errorf("creating cluster %q: %w", name, err)
	}
	return c, nil
}

// IncrementalUpdate folds embedding into the cluster's running mean and
// bumps member_count, serialized through SELECT ... FOR UPDATE against the
// row's own transaction so concurrent assignments never lose an update.
func (r *Registry) IncrementalUpdate(ctx context.Context, clusterID int, embedding []float64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning centroid update transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var centroid []float64
	var memberCount int
	err = tx.QueryRow(ctx, `SELECT centroid, member_count FROM clusters WHERE id = $1 FOR UPDATE`, clusterID).
		Scan(&centroid, &memberCount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("cluster %d not found", clusterID)
		}
		return fmt.Errorf("locking cluster %d: %w", clusterID, err)
	}

	newCentroid := make([]float64, len(centroid))
	for i := range centroid {
		var e float64
		if i < len(embedding) {
			e = embedding[i]
		}
		newCentroid[i] = (centroid[i]*float64(memberCount) + e) / float64(memberCount+1)
	}

	_, err = tx.Exec(ctx, `
		UPDATE clusters SET centroid = $2, member_count = member_count + 1, updated_at = now() WHERE id = $1
	`, clusterID, newCentroid)
	if err != nil {
		return fmt.Errorf("updating centroid for cluster %d: %w", clusterID, err)
	}

	return tx.Commit(ctx)
}

// RecomputeAll reloads every member embedding and sets each cluster's
// centroid to the arithmetic mean, correcting any drift from incremental
// updates. Intended as a periodic batch job, not the per-post hot path.
func (r *Registry) RecomputeAll(ctx context.Context) error {
	rows, err := r.db.Query(ctx, `SELECT id FROM clusters`)
	if err != nil {
		return fmt.Errorf("listing clusters to recompute: %w", err)
	}
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning cluster id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if err := r.recomputeOne(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) recomputeOne(ctx context.Context, clusterID int) error {
	rows, err := r.db.Query(ctx, `SELECT embedding FROM posts WHERE cluster_id = $1 AND embedding IS NOT NULL`, clusterID)
	if err != nil {
		return fmt.Errorf("loading members of cluster %d: %w", clusterID, err)
	}
	defer rows.Close()

	var sum []float64
	count := 0
	for rows.Next() {
		var e []float64
		if err := rows.Scan(&e); err != nil {
			return fmt.Errorf("scanning member embedding: %w", err)
		}
		if sum == nil {
			sum = make([]float64, len(e))
		}
		for i, v := range e {
			if i < len(sum) {
				sum[i] += v
			}
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	mean := make([]float64, len(sum))
	for i, v := range sum {
		mean[i] = v / float64(count)
	}

	_, err = r.db.Exec(ctx, `
		UPDATE clusters SET centroid = $2, member_count = $3, updated_at = now() WHERE id = $1
	`, clusterID, mean, count)
	if err != nil {
		return fmt.Errorf("writing recomputed centroid for cluster %d: %w", clusterID, err)
	}
	return nil
}

// MergeSimilar pairwise-scans clusters and, when two centroids exceed
// threshold (default 0.95), reassigns all posts from the smaller cluster
// into the larger and recomputes the survivor's centroid.
func (r *Registry) MergeSimilar(ctx context.Context, threshold float64) (merged int, err error) {
	rows, err := r.db.Query(ctx, `SELECT id, centroid, member_count FROM clusters ORDER BY id`)
	if err != nil {
		return 0, fmt.Errorf("loading clusters for merge scan: %w", err)
	}

	type row struct {
		id          int
		centroid    []float64
		memberCount int
	}
	var all []row
	for rows.Next() {
		var rr row
		if err := rows.Scan(&rr.id, &rr.centroid, &rr.memberCount); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning cluster for merge scan: %w", err)
		}
		all = append(all, rr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	absorbed := make(map[int]bool)
	for i := 0; i < len(all); i++ {
		if absorbed[all[i].id] {
			continue
		}
		for j := i + 1; j < len(all); j++ {
			if absorbed[all[j].id] {
				continue
			}
			sim := CosineSimilarity(all[i].centroid, all[j].centroid)
			if sim < threshold {
				continue
			}

			survivor, loser := all[i], all[j]
			if loser.memberCount > survivor.memberCount {
				survivor, loser = loser, survivor
			}

			if err := r.absorb(ctx, survivor.id, loser.id); err != nil {
				return merged, fmt.Errorf("merging cluster %d into %d: %w", loser.id, survivor.id, err)
			}
			absorbed[loser.id] = true
			merged++
		}
	}
	return merged, nil
}

func (r *Registry) absorb(ctx context.Context, survivorID, loserID int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE posts SET cluster_id = $1 WHERE cluster_id = $2`, survivorID, loserID); err != nil {
		return fmt.Errorf("reassigning posts: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE mentions SET cluster_id = $1 WHERE cluster_id = $2`, survivorID, loserID); err != nil {
		return fmt.Errorf("reassigning mentions: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM clusters WHERE id = $1`, loserID); err != nil {
		return fmt.Errorf("deleting absorbed cluster: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	return r.recomputeOne(ctx, survivorID)
}

// ReassignOutliers re-checks every processed post's nearest cluster and
// reassigns it if its currently-assigned cluster is no longer the nearest.
func (r *Registry) ReassignOutliers(ctx context.Context, threshold float64) (reassigned int, err error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, embedding, cluster_id FROM posts
		WHERE status = 'processed' AND embedding IS NOT NULL AND cluster_id IS NOT NULL
	`)
	if err != nil {
		return 0, fmt.Errorf("loading processed posts: %w", err)
	}

	type row struct {
		id        string
		embedding []float64
		clusterID int
	}
	var all []row
	for rows.Next() {
		var rr row
		if err := rows.Scan(&rr.id, &rr.embedding, &rr.clusterID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning processed post: %w", err)
		}
		all = append(all, rr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, rr := range all {
		match, ok, err := r.FindNearest(ctx, rr.embedding, threshold)
		if err != nil {
			return reassigned, fmt.Errorf("finding nearest cluster for post %q: %w", rr.id, err)
		}
		if !ok || match.Cluster.ID == rr.clusterID {
			continue
		}
		if _, err := r.db.Exec(ctx, `UPDATE posts SET cluster_id = $2 WHERE id = $1`, rr.id, match.Cluster.ID); err != nil {
			return reassigned, fmt.Errorf("reassigning post %q: %w", rr.id, err)
		}
		reassigned++
	}
	return reassigned, nil
}
