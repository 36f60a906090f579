package stages

import (
	"context"

	"github.com/wisbric/scoutwell/pkg/enrichedpost"
	"github.com/wisbric/scoutwell/pkg/enrichment"
	"github.com/wisbric/scoutwell/pkg/llmclient"
	"github.com/wisbric/scoutwell/pkg/rawpost"
)

var validSentiments = map[enrichedpost.SentimentLabel]bool{
	enrichedpost.SentimentPositive: true,
	enrichedpost.SentimentNeutral:  true,
	enrichedpost.SentimentNegative: true,
}

// SentimentAnalysis scores a post's emotional tone.
type SentimentAnalysis struct {
	store *enrichedpost.Store
	llm   *llmclient.Client
}

func NewSentimentAnalysis(store *enrichedpost.Store, llm *llmclient.Client) *SentimentAnalysis {
	return &SentimentAnalysis{store: store, llm: llm}
}

func (s *SentimentAnalysis) Name() string { return "sentiment_analysis" }

type llmSentimentVerdict struct {
	Sentiment  string  `json:"sentiment"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

func (s *SentimentAnalysis) Run(ctx context.Context, post rawpost.RawPost, state *enrichment.State) enrichment.StageResult {
	verdict, tokens := s.analyze(ctx, post)

	label := enrichedpost.SentimentLabel(verdict.Sentiment)
	if err := s.store.ApplySentiment(ctx, post.ID, label, verdict.Score); err != nil {
		return enrichment.StageResult{Success: false, ErrorKind: "store_error", TokensUsed: tokens}
	}

	return enrichment.StageResult{Success: true, Data: verdict, TokensUsed: tokens}
}

func (s *SentimentAnalysis) analyze(ctx context.Context, post rawpost.RawPost) (enrichment.SentimentVerdict, int) {
	fallback := enrichment.SentimentVerdict{Sentiment: string(enrichedpost.SentimentNeutral), Score: 0.0, Confidence: 0.5}

	if s.llm == nil {
		return fallback, 0
	}

	result, err := s.llm.ChatJSON(ctx,
		`Rate the sentiment of this forum post. Respond with JSON `+
			`{"sentiment":"positive"|"neutral"|"negative","score":number between -1 and 1,"confidence":number between 0 and 1}.`,
		post.Title+"\n"+post.Body,
	)
	if err != nil {
		return fallback, 0
	}

	var v llmSentimentVerdict
	if !llmclient.DecodeVerdict(result.Content, &v) {
		return fallback, result.TokensUsed
	}
	if !validSentiments[enrichedpost.SentimentLabel(v.Sentiment)] {
		return fallback, result.TokensUsed
	}

	return enrichment.SentimentVerdict{Sentiment: v.Sentiment, Score: v.Score, Confidence: v.Confidence}, result.TokensUsed
}
