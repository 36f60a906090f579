package stages

import (
	"context"
	"math"

	"github.com/wisbric/scoutwell/pkg/enrichment"
	"github.com/wisbric/scoutwell/pkg/mention"
	"github.com/wisbric/scoutwell/pkg/rawpost"
)

// RecordMention inserts the immutable mention row once cluster, category,
// and sentiment have all succeeded.
type RecordMention struct {
	store *mention.Store
}

func NewRecordMention(store *mention.Store) *RecordMention {
	return &RecordMention{store: store}
}

func (r *RecordMention) Name() string { return "record_mention" }

func (r *RecordMention) Run(ctx context.Context, post rawpost.RawPost, state *enrichment.State) enrichment.StageResult {
	clusterVerdict, ok := requiredVerdict[enrichment.ClusterVerdict](state.ClusterResult)
	if !ok {
		return enrichment.StageResult{Success: false, ErrorKind: "prerequisite_failed"}
	}
	categoryVerdict, ok := requiredVerdict[enrichment.CategoryVerdict](state.CategoryResult)
	if !ok {
		return enrichment.StageResult{Success: false, ErrorKind: "prerequisite_failed"}
	}
	sentimentVerdict, ok := requiredVerdict[enrichment.SentimentVerdict](state.SentimentResult)
	if !ok {
		return enrichment.StageResult{Success: false, ErrorKind: "prerequisite_failed"}
	}

	engagement := engagementScore(post.Score)

	id, err := r.store.Create(ctx, post.ID, clusterVerdict.ClusterID, categoryVerdict.CategoryID, sentimentVerdict.Score, engagement)
	if err != nil {
		return enrichment.StageResult{Success: false, ErrorKind: "store_error"}
	}

	return enrichment.StageResult{Success: true, Data: id}
}

func requiredVerdict[T any](result *enrichment.StageResult) (T, bool) {
	var zero T
	if result == nil || !result.Success {
		return zero, false
	}
	v, ok := result.Data.(T)
	return v, ok
}

// engagementScore maps a raw upvote-style score onto a bounded [0,1] scale
// using a log curve so a handful of outlier posts don't dominate.
func engagementScore(rawScore int) float64 {
	if rawScore <= 0 {
		return 0
	}
	return math.Min(1.0, math.Log10(float64(rawScore)+1)/4.0)
}
