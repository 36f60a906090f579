package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/wisbric/scoutwell/pkg/cluster"
	"github.com/wisbric/scoutwell/pkg/enrichedpost"
	"github.com/wisbric/scoutwell/pkg/enrichment"
	"github.com/wisbric/scoutwell/pkg/rawpost"
)

const defaultClusterThreshold = 0.7

// ClusterAssign places a post's embedding into the nearest existing cluster
// or seeds a new one.
type ClusterAssign struct {
	store     *enrichedpost.Store
	registry  *cluster.Registry
	threshold float64
}

// NewClusterAssign wires ClusterAssign against the registry. A threshold of
// 0 falls back to a default of 0.7.
func NewClusterAssign(store *enrichedpost.Store, registry *cluster.Registry, threshold float64) *ClusterAssign {
	if threshold <= 0 {
		threshold = defaultClusterThreshold
	}
	return &ClusterAssign{store: store, registry: registry, threshold: threshold}
}

func (c *ClusterAssign) Name() string { return "cluster_assign" }

func (c *ClusterAssign) Run(ctx context.Context, post rawpost.RawPost, state *enrichment.State) enrichment.StageResult {
	semantic, ok := requiredVerdict[enrichment.SemanticVerdict](state.SemanticResult)
	if !ok {
		return enrichment.StageResult{Success: false, ErrorKind: "missing_embedding"}
	}

	match, found, err := c.registry.FindNearest(ctx, semantic.Embedding, c.threshold)
	if err != nil {
		return enrichment.StageResult{Success: false, ErrorKind: "registry_error"}
	}

	var clusterID int
	if found {
		clusterID = match.Cluster.ID
		if err := c.registry.IncrementalUpdate(ctx, clusterID, semantic.Embedding); err != nil {
			return enrichment.StageResult{Success: false, ErrorKind: "registry_error"}
		}
	} else {
		newCluster, err := c.registry.Create(ctx, shortClusterName(post), semantic.Embedding, nil)
		if err != nil {
			return enrichment.StageResult{Success: false, ErrorKind: "registry_error"}
		}
		clusterID = newCluster.ID
	}

	if err := c.store.ApplyCluster(ctx, post.ID, clusterID); err != nil {
		return enrichment.StageResult{Success: false, ErrorKind: "store_error"}
	}

	return enrichment.StageResult{Success: true, Data: enrichment.ClusterVerdict{ClusterID: clusterID}}
}

// shortClusterName derives a human-readable name for a brand-new cluster
// from the seeding post's title, truncated to a reasonable display length.
func shortClusterName(post rawpost.RawPost) string {
	title := strings.TrimSpace(post.Title)
	const maxLen = 60
	if len(title) > maxLen {
		title = title[:maxLen]
	}
	if title == "" {
		return fmt.Sprintf("cluster-%s", post.ID)
	}
	return title
}
