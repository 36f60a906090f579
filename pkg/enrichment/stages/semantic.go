package stages

import (
	"context"
	"strings"

	"github.com/wisbric/scoutwell/pkg/enrichedpost"
	"github.com/wisbric/scoutwell/pkg/enrichment"
	"github.com/wisbric/scoutwell/pkg/llmclient"
	"github.com/wisbric/scoutwell/pkg/rawpost"
)

const embeddingDimension = 1536

// SemanticAnalysis produces a short summary, keyword list, and embedding
// vector used downstream by ClusterAssign.
type SemanticAnalysis struct {
	store *enrichedpost.Store
	llm   *llmclient.Client
}

func NewSemanticAnalysis(store *enrichedpost.Store, llm *llmclient.Client) *SemanticAnalysis {
	return &SemanticAnalysis{store: store, llm: llm}
}

func (s *SemanticAnalysis) Name() string { return "semantic_analysis" }

type llmSemanticVerdict struct {
	Summary  string `json:"summary"`
	Keywords any    `json:"keywords"` // array of strings, or a comma-separated string fallback
}

func (s *SemanticAnalysis) Run(ctx context.Context, post rawpost.RawPost, state *enrichment.State) enrichment.StageResult {
	summary, keywords, chatTokens := s.summarize(ctx, post)
	embedding, embedTokens := s.embed(ctx, post)
	totalTokens := chatTokens + embedTokens

	if err := s.store.ApplySemantic(ctx, post.ID, summary, keywords, embedding); err != nil {
		return enrichment.StageResult{Success: false, ErrorKind: "store_error", TokensUsed: totalTokens}
	}

	verdict := enrichment.SemanticVerdict{Summary: summary, Keywords: keywords, Embedding: embedding}
	return enrichment.StageResult{Success: true, Data: verdict, TokensUsed: totalTokens}
}

func (s *SemanticAnalysis) summarize(ctx context.Context, post rawpost.RawPost) (string, []string, int) {
	if s.llm == nil {
		return "", nil, 0
	}

	result, err := s.llm.ChatJSON(ctx,
		`Summarize this forum post in 1-3 sentences and extract keywords. `+
			`Respond with JSON {"summary":string,"keywords":[string]}.`,
		post.Title+"\n"+post.Body,
	)
	if err != nil {
		return "", nil, 0
	}

	var v llmSemanticVerdict
	if !llmclient.DecodeVerdict(result.Content, &v) {
		return "", nil, result.TokensUsed
	}

	return v.Summary, parseKeywords(v.Keywords), result.TokensUsed
}

// parseKeywords accepts a JSON array of strings, falling back to a
// comma-split of a bare string when the model doesn't follow the schema.
func parseKeywords(raw any) []string {
	switch k := raw.(type) {
	case []any:
		keywords := make([]string, 0, len(k))
		for _, item := range k {
			if str, ok := item.(string); ok {
				keywords = append(keywords, strings.TrimSpace(str))
			}
		}
		return keywords
	case string:
		var keywords []string
		for _, part := range strings.Split(k, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				keywords = append(keywords, trimmed)
			}
		}
		return keywords
	default:
		return nil
	}
}

func (s *SemanticAnalysis) embed(ctx context.Context, post rawpost.RawPost) ([]float64, int) {
	if s.llm == nil {
		return make([]float64, embeddingDimension), 0
	}

	embedding, tokens, err := s.llm.Embed(ctx, post.Title+"\n"+post.Body)
	if err != nil {
		return make([]float64, embeddingDimension), 0
	}
	return embedding, tokens
}
