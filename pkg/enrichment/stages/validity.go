package stages

import (
	"context"

	"github.com/wisbric/scoutwell/pkg/enrichedpost"
	"github.com/wisbric/scoutwell/pkg/enrichment"
	"github.com/wisbric/scoutwell/pkg/llmclient"
	"github.com/wisbric/scoutwell/pkg/rawpost"
)

const minValidBodyLength = 10

// ValidityCheck rejects posts too short to carry a real problem, and may
// split a post into derivedProblems when the LLM's enhanced variant finds
// more than one distinct sub-problem in the body.
type ValidityCheck struct {
	store *enrichedpost.Store
	llm   *llmclient.Client
}

func NewValidityCheck(store *enrichedpost.Store, llm *llmclient.Client) *ValidityCheck {
	return &ValidityCheck{store: store, llm: llm}
}

func (v *ValidityCheck) Name() string { return "validity_check" }

type llmValidityVerdict struct {
	IsValid         bool                      `json:"isValid"`
	Reason          string                    `json:"reason"`
	DerivedProblems []llmDerivedProblem       `json:"derivedProblems"`
}

type llmDerivedProblem struct {
	Label       string `json:"label"`
	Explanation string `json:"explanation"`
	Industry    string `json:"industry"`
}

func (v *ValidityCheck) Run(ctx context.Context, post rawpost.RawPost, state *enrichment.State) enrichment.StageResult {
	if len(post.Body) < minValidBodyLength {
		reason := "Content too short to be meaningful"
		if err := v.store.ApplyValidity(ctx, post.ID, false, reason); err != nil {
			return enrichment.StageResult{Success: false, ErrorKind: "store_error"}
		}
		return enrichment.StageResult{Success: true, Data: enrichment.ValidityVerdict{IsValid: false, Reason: reason}}
	}

	verdict, derived, tokens := v.callLLM(ctx, post)

	if err := v.store.ApplyValidity(ctx, post.ID, verdict.IsValid, verdict.Reason); err != nil {
		return enrichment.StageResult{Success: false, ErrorKind: "store_error", TokensUsed: tokens}
	}

	if verdict.IsValid && len(derived) > 0 {
		state.DerivedProblems = derived
	}

	return enrichment.StageResult{Success: true, Data: verdict, TokensUsed: tokens}
}

func (v *ValidityCheck) callLLM(ctx context.Context, post rawpost.RawPost) (enrichment.ValidityVerdict, []enrichment.DerivedProblem, int) {
	if v.llm == nil {
		return enrichment.ValidityVerdict{IsValid: true}, nil, 0
	}

	result, err := v.llm.ChatJSON(ctx,
		`Determine whether this forum post describes a real problem. Respond with JSON `+
			`{"isValid":bool,"reason":string,"derivedProblems":[{"label":string,"explanation":string,"industry":string}]}. `+
			`Only populate derivedProblems if the post describes more than one distinct problem.`,
		post.Title+"\n"+post.Body,
	)
	if err != nil {
		return enrichment.ValidityVerdict{IsValid: true}, nil, 0
	}

	var raw llmValidityVerdict
	if !llmclient.DecodeVerdict(result.Content, &raw) {
		return enrichment.ValidityVerdict{IsValid: true}, nil, result.TokensUsed
	}

	var derived []enrichment.DerivedProblem
	for _, d := range raw.DerivedProblems {
		derived = append(derived, enrichment.DerivedProblem{
			Label:       d.Label,
			Explanation: d.Explanation,
			Industry:    d.Industry,
		})
	}

	return enrichment.ValidityVerdict{IsValid: raw.IsValid, Reason: raw.Reason}, derived, result.TokensUsed
}
