// Package stages implements the eight enrichment pipeline stages run by
// package enrichment.
package stages

import (
	"context"
	"regexp"
	"strings"

	"github.com/wisbric/scoutwell/pkg/enrichedpost"
	"github.com/wisbric/scoutwell/pkg/enrichment"
	"github.com/wisbric/scoutwell/pkg/llmclient"
	"github.com/wisbric/scoutwell/pkg/rawpost"
)

var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                           // SSN-like
	regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`), // email
	regexp.MustCompile(`\b(\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`), // phone
	regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`),                         // credit-card-like
}

var spamIndicators = []string{
	"click here", "buy now", "limited time offer", "work from home",
	"make money fast", "free gift card", "act now", "guaranteed income",
}

// SpamCheck applies a fixed rule set (PII regexes + spam substring match)
// combined with an LLM JSON verdict via OR.
type SpamCheck struct {
	store *enrichedpost.Store
	llm   *llmclient.Client
}

func NewSpamCheck(store *enrichedpost.Store, llm *llmclient.Client) *SpamCheck {
	return &SpamCheck{store: store, llm: llm}
}

func (s *SpamCheck) Name() string { return "spam_check" }

type llmSpamVerdict struct {
	IsSpam bool   `json:"isSpam"`
	HasPII bool   `json:"hasPii"`
	Notes  string `json:"notes"`
}

func (s *SpamCheck) Run(ctx context.Context, post rawpost.RawPost, state *enrichment.State) enrichment.StageResult {
	text := post.Title + "\n" + post.Body

	ruleSpam := containsSpamIndicator(text)
	rulePII := containsPII(text)

	llmSpam, llmPII, notes, tokens := s.callLLM(ctx, text)

	verdict := enrichment.SpamVerdict{
		IsSpam: ruleSpam || llmSpam,
		HasPII: rulePII || llmPII,
		Notes:  notes,
	}

	if err := s.store.ApplySpamCheck(ctx, post.ID, verdict.IsSpam, verdict.HasPII, verdict.Notes); err != nil {
		return enrichment.StageResult{Success: false, ErrorKind: "store_error", TokensUsed: tokens}
	}

	return enrichment.StageResult{Success: true, Data: verdict, TokensUsed: tokens}
}

// callLLM asks the LLM for a JSON verdict. On any failure (network or parse),
// the LLM's contribution to the OR is treated as false rather than aborting
// the stage: the rule-based half still fires.
func (s *SpamCheck) callLLM(ctx context.Context, text string) (isSpam, hasPII bool, notes string, tokens int) {
	if s.llm == nil {
		return false, false, "", 0
	}

	result, err := s.llm.ChatJSON(ctx,
		"You moderate forum posts. Respond with JSON {\"isSpam\":bool,\"hasPii\":bool,\"notes\":string}.",
		text,
	)
	if err != nil {
		return false, false, "", 0
	}

	var v llmSpamVerdict
	if !llmclient.DecodeVerdict(result.Content, &v) {
		return false, false, "", result.TokensUsed
	}
	return v.IsSpam, v.HasPII, v.Notes, result.TokensUsed
}

func containsSpamIndicator(text string) bool {
	lower := strings.ToLower(text)
	for _, indicator := range spamIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

func containsPII(text string) bool {
	for _, re := range piiPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
