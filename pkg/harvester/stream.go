package harvester

import (
	"context"
	"time"

	"github.com/wisbric/scoutwell/pkg/forumapi"
)

// Batch is one yielded page from the continuous stream, tagged with its
// sub-source so the consumer can apply the right watermark.
type Batch struct {
	SubSource string
	Posts     []forumapi.Post
}

// StreamNewContinuous paginates the "new" listing for subSource within
// timeBudget, using after=lastName cursors, halting early if the last
// page's oldest post is at or below watermark. It sleeps pollInterval
// between outer loops. Consumer decides persistence and watermark
// advancement; this function only produces batches.
func (h *Harvester) StreamNewContinuous(ctx context.Context, subSource string, watermark int64, timeBudget, pollInterval time.Duration, limit int, out chan<- Batch) {
	deadline := time.Now().Add(timeBudget)

	for time.Now().Before(deadline) {
		after := ""
		for {
			cred, idx, err := h.creds.Next(ctx)
			if err != nil {
				h.logger.Error("harvester: stream acquiring credential", "error", err)
				return
			}
			if err := h.apiBucket.Wait(ctx); err != nil {
				h.logger.Error("harvester: stream waiting on api bucket", "error", err)
				return
			}

			listing, err := h.client.ListAfter(ctx, cred, subSource, after, limit)
			if err != nil {
				if rl, ok := isRateLimited(err); ok {
					_ = rl
					if cdErr := h.creds.Cooldown(ctx, idx, cooldownDuration); cdErr != nil {
						h.logger.Error("harvester: stream cooling credential", "error", cdErr)
					}
					continue
				}
				h.logger.Error("harvester: stream page failed", "sub_source", subSource, "error", err)
				break
			}

			if len(listing.Posts) == 0 {
				break
			}

			select {
			case out <- Batch{SubSource: subSource, Posts: listing.Posts}:
			case <-ctx.Done():
				return
			}

			oldestInPage := listing.Posts[len(listing.Posts)-1].CreatedAt
			if oldestInPage <= watermark || listing.AfterName == "" {
				break
			}
			after = listing.AfterName

			if time.Now().After(deadline) {
				break
			}
		}

		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			return
		}
	}
}

func isRateLimited(err error) (*forumapi.RateLimitedError, bool) {
	rl, ok := err.(*forumapi.RateLimitedError)
	return rl, ok
}
