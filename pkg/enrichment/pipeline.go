// Package enrichment orchestrates the per-post stage sequence that turns a
// RawPost into an EnrichedPost: SpamCheck, ValidityCheck, Classification,
// SemanticAnalysis, SentimentAnalysis, CategoryAssign, ClusterAssign,
// RecordMention.
package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wisbric/scoutwell/internal/audit"
	"github.com/wisbric/scoutwell/internal/telemetry"
	"github.com/wisbric/scoutwell/pkg/enrichedpost"
	"github.com/wisbric/scoutwell/pkg/rawpost"
)

// StageResult is the uniform output contract every stage returns.
type StageResult struct {
	Success    bool
	Data       any
	ErrorKind  string
	Latency    time.Duration
	TokensUsed int
}

// State is the mutable accumulator threaded through the stage sequence.
// Stages read prior results from it and never observe a later stage's
// output.
type State struct {
	PostID  string
	RawPost rawpost.RawPost

	SpamResult        *StageResult
	ValidityResult    *StageResult
	ClassifyResult    *StageResult
	SemanticResult    *StageResult
	SentimentResult   *StageResult
	CategoryResult    *StageResult
	ClusterResult     *StageResult
	MentionResult     *StageResult

	// DerivedProblems, when non-empty, instructs the pipeline to re-run the
	// stages after ValidityCheck once per entry.
	DerivedProblems []DerivedProblem
}

// DerivedProblem is one sub-problem ValidityCheck's enhanced variant may
// split a post into.
type DerivedProblem struct {
	Label       string
	Explanation string
	Industry    string
}

// Stage is the capability interface every pipeline step implements.
type Stage interface {
	Name() string
	Run(ctx context.Context, post rawpost.RawPost, state *State) StageResult
}

// Pipeline runs the fixed stage sequence against the post store and lock.
type Pipeline struct {
	store  *enrichedpost.Store
	audit  *audit.Writer
	logger *slog.Logger

	spam       Stage
	validity   Stage
	classify   Stage
	semantic   Stage
	sentiment  Stage
	category   Stage
	clusterAsg Stage
	mention    Stage
}

// Stages bundles the eight capability implementations in execution order.
type Stages struct {
	Spam       Stage
	Validity   Stage
	Classify   Stage
	Semantic   Stage
	Sentiment  Stage
	Category   Stage
	Cluster    Stage
	Mention    Stage
}

func New(store *enrichedpost.Store, auditWriter *audit.Writer, logger *slog.Logger, s Stages) *Pipeline {
	return &Pipeline{
		store:      store,
		audit:      auditWriter,
		logger:     logger,
		spam:       s.Spam,
		validity:   s.Validity,
		classify:   s.Classify,
		semantic:   s.Semantic,
		sentiment:  s.Sentiment,
		category:   s.Category,
		clusterAsg: s.Cluster,
		mention:    s.Mention,
	}
}

// Process runs the full pipeline for one post. It is idempotent: a post
// already in status=processed returns immediately, and a post whose lock
// cannot be acquired (another worker owns it, or it has no row in the posts
// table) returns without error and without running any stage.
func (p *Pipeline) Process(ctx context.Context, post rawpost.RawPost) error {
	existing, err := p.store.Get(ctx, post.ID)
	if err == nil && existing.Status == enrichedpost.StatusProcessed {
		return nil // idempotent short-circuit
	}

	acquired, epoch, err := p.store.AcquirePostLock(ctx, post.ID)
	if err != nil {
		return fmt.Errorf("acquiring lock for post %q: %w", post.ID, err)
	}
	if !acquired {
		return nil // another worker owns this post
	}

	state := &State{PostID: post.ID, RawPost: post}

	if runErr := p.runStages(ctx, post, state); runErr != nil {
		if err := p.store.ReleaseAsFailed(ctx, post.ID, epoch, runErr.Error()); err != nil {
			p.logger.Error("releasing post as failed", "post_id", post.ID, "error", err)
		}
		telemetry.PostsProcessedTotal.WithLabelValues("failed").Inc()
		return runErr
	}

	if err := p.store.ReleaseAsProcessed(ctx, post.ID, epoch); err != nil {
		return fmt.Errorf("releasing post %q as processed: %w", post.ID, err)
	}
	telemetry.PostsProcessedTotal.WithLabelValues("processed").Inc()
	return nil
}

// runStages executes the fixed sequence and handles early termination. Only
// an uncaught/fatal error (e.g. the enriched store is unreachable) returns a
// non-nil error that fails the job; stage-level failures are recorded on
// State and do not abort by themselves.
func (p *Pipeline) runStages(ctx context.Context, post rawpost.RawPost, state *State) error {
	state.SpamResult = p.execute(ctx, p.spam, post, state)
	state.ValidityResult = p.execute(ctx, p.validity, post, state)

	if p.shouldStop(state) {
		return nil
	}

	state.ClassifyResult = p.execute(ctx, p.classify, post, state)
	state.SemanticResult = p.execute(ctx, p.semantic, post, state)
	state.SentimentResult = p.execute(ctx, p.sentiment, post, state)
	state.CategoryResult = p.execute(ctx, p.category, post, state)
	state.ClusterResult = p.execute(ctx, p.clusterAsg, post, state)
	state.MentionResult = p.execute(ctx, p.mention, post, state)

	for _, derived := range state.DerivedProblems {
		if err := p.runDerived(ctx, post, derived); err != nil {
			p.logger.Error("derived problem pipeline failed", "post_id", post.ID, "error", err)
		}
	}

	return nil
}

// shouldStop implements the early-termination rule: stop on isSpam/hasPii,
// or on isValid=false. A ValidityCheck stage that itself errored is treated
// as isValid=true (continue) rather than as a stop signal.
func (p *Pipeline) shouldStop(state *State) bool {
	if state.SpamResult != nil && state.SpamResult.Success {
		if verdict, ok := state.SpamResult.Data.(SpamVerdict); ok {
			if verdict.IsSpam || verdict.HasPII {
				return true
			}
		}
	}

	if state.ValidityResult != nil && state.ValidityResult.Success {
		if verdict, ok := state.ValidityResult.Data.(ValidityVerdict); ok && !verdict.IsValid {
			return true
		}
	}

	return false
}

func (p *Pipeline) execute(ctx context.Context, stage Stage, post rawpost.RawPost, state *State) *StageResult {
	if stage == nil {
		return &StageResult{Success: false, ErrorKind: "unimplemented"}
	}

	start := time.Now()
	result := stage.Run(ctx, post, state)
	result.Latency = time.Since(start)

	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	telemetry.StageCallsTotal.WithLabelValues(stage.Name(), outcome).Inc()
	telemetry.StageDuration.WithLabelValues(stage.Name()).Observe(result.Latency.Seconds())
	if result.TokensUsed > 0 {
		telemetry.StageTokensTotal.WithLabelValues(stage.Name()).Add(float64(result.TokensUsed))
	}

	if p.audit != nil {
		p.audit.Record(audit.Entry{
			PostID:     state.PostID,
			Stage:      stage.Name(),
			Success:    result.Success,
			ErrorKind:  result.ErrorKind,
			LatencyMs:  float64(result.Latency.Microseconds()) / 1000,
			TokensUsed: result.TokensUsed,
		})
	}

	return &result
}

// runDerived re-runs the post-Validity stage sequence against a synthetic
// linked record produced by ValidityCheck's derived-problem fan-out.
func (p *Pipeline) runDerived(ctx context.Context, origPost rawpost.RawPost, derived DerivedProblem) error {
	derivedID := fmt.Sprintf("%s-Derived-%s", origPost.ID, newDerivedSuffix())

	if err := p.store.InsertDerived(ctx, origPost.ID, derivedID, derived.Label, derived.Explanation); err != nil {
		return err
	}

	acquired, epoch, err := p.store.AcquirePostLock(ctx, derivedID)
	if err != nil || !acquired {
		return err
	}

	derivedPost := origPost
	derivedPost.ID = derivedID
	derivedPost.Title = derived.Label
	derivedPost.Body = derived.Explanation

	state := &State{PostID: derivedID, RawPost: derivedPost}
	// Reuse the parent's SpamCheck verdict rather than re-running a
	// text-level classifier against the same underlying post body.
	state.SpamResult = &StageResult{Success: true, Data: SpamVerdict{}}

	state.ClassifyResult = p.execute(ctx, p.classify, derivedPost, state)
	state.SemanticResult = p.execute(ctx, p.semantic, derivedPost, state)
	state.SentimentResult = p.execute(ctx, p.sentiment, derivedPost, state)
	state.CategoryResult = p.execute(ctx, p.category, derivedPost, state)
	state.ClusterResult = p.execute(ctx, p.clusterAsg, derivedPost, state)
	state.MentionResult = p.execute(ctx, p.mention, derivedPost, state)

	return p.store.ReleaseAsProcessed(ctx, derivedID, epoch)
}
