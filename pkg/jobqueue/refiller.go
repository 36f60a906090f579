package jobqueue

import (
	"context"
	"log/slog"
	"time"

	"github.com/wisbric/scoutwell/pkg/rawpost"
)

// RefillFunc supplies up to batchSize candidate raw posts still marked
// unprocessed in the source store.
type RefillFunc func(ctx context.Context, batchSize int) ([]rawpost.RawPost, error)

// Refiller watches queue depth and tops it up from the raw-post store when
// waiting+active drops at or below lowThreshold.
type Refiller struct {
	queue         *Queue
	refill        RefillFunc
	logger        *slog.Logger
	lowThreshold  int
	batchSize     int
}

func NewRefiller(queue *Queue, refill RefillFunc, logger *slog.Logger, lowThreshold, batchSize int) *Refiller {
	return &Refiller{
		queue:        queue,
		refill:       refill,
		logger:       logger,
		lowThreshold: lowThreshold,
		batchSize:    batchSize,
	}
}

// MaybeRefill checks current depth and tops up if at or below the low
// threshold. Intended to be called after every completed job and also on a
// periodic ticker.
func (r *Refiller) MaybeRefill(ctx context.Context) error {
	counts, err := r.queue.Counts(ctx)
	if err != nil {
		return err
	}

	if counts.Waiting+counts.Active > r.lowThreshold {
		return nil
	}

	candidates, err := r.refill(ctx, r.batchSize)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	for i := range candidates {
		candidates[i].Author = normalizeAuthor(candidates[i].Author)
	}

	inserted, err := r.queue.EnqueueBulk(ctx, candidates)
	if err != nil {
		return err
	}

	r.logger.Info("queue refilled", "candidates", len(candidates), "enqueued", inserted)
	return nil
}

// normalizeAuthor is a no-op today because rawpost.RawPost.Author is already
// a flat string; the forum API's own "object.name" shape is flattened to a
// string at harvest time (see forumapi.AuthorName). Kept as a named step so
// the refill path matches explicit normalization mention.
func normalizeAuthor(author string) string {
	return author
}

// RunLoop periodically calls MaybeRefill until ctx is cancelled.
func (r *Refiller) RunLoop(ctx context.Context, interval time.Duration) {
	r.logger.Info("queue refiller loop started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("queue refiller loop stopped")
			return
		case <-ticker.C:
			if err := r.MaybeRefill(ctx); err != nil {
				r.logger.Error("queue refill tick", "error", err)
			}
		}
	}
}
