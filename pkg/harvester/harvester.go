// Package harvester orchestrates forum API calls through a credential pool
// and rate gate, turning sampling strategies into batches of raw posts.
package harvester

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wisbric/scoutwell/pkg/credential"
	"github.com/wisbric/scoutwell/pkg/forumapi"
	"github.com/wisbric/scoutwell/pkg/ratecontrol"
	"github.com/wisbric/scoutwell/pkg/sampling"
)

// cooldownDuration is applied to a credential on a 429/"ratelimit" response.
const cooldownDuration = 60 * time.Second

// Harvester runs sampling strategies against the forum API.
type Harvester struct {
	client    *forumapi.Client
	creds     *credential.Pool
	apiBucket *ratecontrol.Gate
	logger    *slog.Logger
	// maxRetries bounds the "retry up to N-1 times with another credential"
	// rule; N is len(creds) in the common case, but is configurable for tests.
	maxRetries int
}

func New(client *forumapi.Client, creds *credential.Pool, apiBucket *ratecontrol.Gate, logger *slog.Logger) *Harvester {
	return &Harvester{
		client:     client,
		creds:      creds,
		apiBucket:  apiBucket,
		logger:     logger,
		maxRetries: creds.Len(),
	}
}

// RunStrategy executes a single sampling strategy, rotating credentials on
// rate-limit errors up to maxRetries-1 additional attempts. Any other error
// is logged and an empty listing is returned rather than propagated.
func (h *Harvester) RunStrategy(ctx context.Context, s sampling.Strategy) forumapi.Listing {
	attempts := h.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		cred, idx, err := h.creds.Next(ctx)
		if err != nil {
			h.logger.Error("harvester: acquiring credential", "error", err)
			return forumapi.Listing{}
		}

		if err := h.apiBucket.Wait(ctx); err != nil {
			h.logger.Error("harvester: waiting on api bucket", "error", err)
			return forumapi.Listing{}
		}

		listing, err := h.client.List(ctx, cred, s)
		if err == nil {
			return listing
		}

		var rl *forumapi.RateLimitedError
		if errors.As(err, &rl) {
			if cdErr := h.creds.Cooldown(ctx, idx, cooldownDuration); cdErr != nil {
				h.logger.Error("harvester: cooling credential", "error", cdErr)
			}
			h.logger.Warn("harvester: rate limited, rotating credential",
				"sub_source", s.SubSource, "sort", s.Sort, "credential_index", idx)
			continue
		}

		h.logger.Error("harvester: strategy failed",
			"sub_source", s.SubSource, "sort", s.Sort, "error", err)
		return forumapi.Listing{}
	}

	h.logger.Warn("harvester: exhausted retries on rate limit", "sub_source", s.SubSource, "sort", s.Sort)
	return forumapi.Listing{}
}
