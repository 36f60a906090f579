package stages

import (
	"context"

	"github.com/wisbric/scoutwell/pkg/category"
	"github.com/wisbric/scoutwell/pkg/enrichedpost"
	"github.com/wisbric/scoutwell/pkg/enrichment"
	"github.com/wisbric/scoutwell/pkg/llmclient"
	"github.com/wisbric/scoutwell/pkg/rawpost"
)

// fixedIndustryLabels seeds the LLM's candidate list alongside whatever
// categories have already been created by prior posts.
var fixedIndustryLabels = []string{
	"Software & SaaS",
	"E-commerce & Retail",
	"Fintech & Payments",
	"Healthcare & Life Sciences",
	"Gaming & Entertainment",
	"Education",
	"Logistics & Supply Chain",
	"Real Estate & Construction",
	"Travel & Hospitality",
	"Manufacturing",
	"Other",
}

// CategoryAssign picks an industry category for a post, reusing an existing
// category by name wherever the LLM's pick matches one.
type CategoryAssign struct {
	store    *enrichedpost.Store
	category *category.Store
	llm      *llmclient.Client
}

func NewCategoryAssign(store *enrichedpost.Store, categoryStore *category.Store, llm *llmclient.Client) *CategoryAssign {
	return &CategoryAssign{store: store, category: categoryStore, llm: llm}
}

func (c *CategoryAssign) Name() string { return "category_assign" }

type llmCategoryVerdict struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parent      string `json:"parent"`
}

func (c *CategoryAssign) Run(ctx context.Context, post rawpost.RawPost, state *enrichment.State) enrichment.StageResult {
	existing, err := c.category.ListNames(ctx)
	if err != nil {
		return enrichment.StageResult{Success: false, ErrorKind: "store_error"}
	}

	name, description, parentName, tokens := c.pick(ctx, post, existing)

	var parentID *int
	if parentName != "" && parentName != name {
		parent, err := c.category.FindOrCreate(ctx, parentName, "", nil)
		if err != nil {
			return enrichment.StageResult{Success: false, ErrorKind: "store_error", TokensUsed: tokens}
		}
		parentID = &parent.ID
	}

	cat, err := c.category.FindOrCreate(ctx, name, description, parentID)
	if err != nil {
		return enrichment.StageResult{Success: false, ErrorKind: "store_error", TokensUsed: tokens}
	}

	if err := c.store.ApplyCategory(ctx, post.ID, cat.ID); err != nil {
		return enrichment.StageResult{Success: false, ErrorKind: "store_error", TokensUsed: tokens}
	}

	return enrichment.StageResult{Success: true, Data: enrichment.CategoryVerdict{CategoryID: cat.ID}, TokensUsed: tokens}
}

func (c *CategoryAssign) pick(ctx context.Context, post rawpost.RawPost, existing []string) (name, description, parent string, tokens int) {
	fallbackName := fixedIndustryLabels[len(fixedIndustryLabels)-1] // "Other"

	if c.llm == nil {
		return fallbackName, "", "", 0
	}

	candidates := append(append([]string{}, fixedIndustryLabels...), existing...)

	result, err := c.llm.ChatJSON(ctx,
		buildCategoryPrompt(candidates),
		post.Title+"\n"+post.Body,
	)
	if err != nil {
		return fallbackName, "", "", 0
	}

	var v llmCategoryVerdict
	if !llmclient.DecodeVerdict(result.Content, &v) || v.Name == "" {
		return fallbackName, "", "", result.TokensUsed
	}

	return v.Name, v.Description, v.Parent, result.TokensUsed
}

func buildCategoryPrompt(candidates []string) string {
	prompt := `Assign this forum post an industry category. Prefer one of the existing categories when it fits; ` +
		`otherwise propose a new one. Respond with JSON {"name":string,"description":string,"parent":string}. ` +
		`parent may be empty. Candidates: `
	for i, cand := range candidates {
		if i > 0 {
			prompt += ", "
		}
		prompt += cand
	}
	return prompt
}
