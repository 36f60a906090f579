package stages

import (
	"context"

	"github.com/wisbric/scoutwell/pkg/enrichedpost"
	"github.com/wisbric/scoutwell/pkg/enrichment"
	"github.com/wisbric/scoutwell/pkg/llmclient"
	"github.com/wisbric/scoutwell/pkg/rawpost"
)

var validClassifications = map[enrichedpost.Classification]bool{
	enrichedpost.ClassificationBug:            true,
	enrichedpost.ClassificationFeatureRequest: true,
	enrichedpost.ClassificationQuestion:       true,
	enrichedpost.ClassificationDiscussion:     true,
	enrichedpost.ClassificationDocumentation:  true,
	enrichedpost.ClassificationOther:          true,
}

// Classification buckets a post into a fixed content-type enum.
type Classification struct {
	store *enrichedpost.Store
	llm   *llmclient.Client
}

func NewClassification(store *enrichedpost.Store, llm *llmclient.Client) *Classification {
	return &Classification{store: store, llm: llm}
}

func (c *Classification) Name() string { return "classification" }

type llmClassifyVerdict struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
}

func (c *Classification) Run(ctx context.Context, post rawpost.RawPost, state *enrichment.State) enrichment.StageResult {
	verdict, tokens := c.classify(ctx, post)

	if err := c.store.ApplyClassification(ctx, post.ID, enrichedpost.Classification(verdict.Classification), verdict.Confidence); err != nil {
		return enrichment.StageResult{Success: false, ErrorKind: "store_error", TokensUsed: tokens}
	}

	return enrichment.StageResult{Success: true, Data: verdict, TokensUsed: tokens}
}

func (c *Classification) classify(ctx context.Context, post rawpost.RawPost) (enrichment.ClassifyVerdict, int) {
	fallback := enrichment.ClassifyVerdict{Classification: string(enrichedpost.ClassificationOther), Confidence: 0.0}

	if c.llm == nil {
		return fallback, 0
	}

	result, err := c.llm.ChatJSON(ctx,
		`Classify this forum post as one of: bug, feature_request, question, discussion, documentation, other. `+
			`Respond with JSON {"classification":string,"confidence":number}.`,
		post.Title+"\n"+post.Body,
	)
	if err != nil {
		return fallback, 0
	}

	var v llmClassifyVerdict
	if !llmclient.DecodeVerdict(result.Content, &v) {
		return fallback, result.TokensUsed
	}
	if !validClassifications[enrichedpost.Classification(v.Classification)] {
		return enrichment.ClassifyVerdict{Classification: string(enrichedpost.ClassificationOther), Confidence: 0.0}, result.TokensUsed
	}

	return enrichment.ClassifyVerdict{Classification: v.Classification, Confidence: v.Confidence}, result.TokensUsed
}
