// Package app wires the scoutwell services together: config, stores,
// the enrichment pipeline, and whichever mode the process was started in.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/scoutwell/internal/audit"
	"github.com/wisbric/scoutwell/internal/config"
	"github.com/wisbric/scoutwell/internal/httpserver"
	"github.com/wisbric/scoutwell/internal/platform"
	"github.com/wisbric/scoutwell/internal/telemetry"
	"github.com/wisbric/scoutwell/pkg/category"
	"github.com/wisbric/scoutwell/pkg/cluster"
	"github.com/wisbric/scoutwell/pkg/credential"
	"github.com/wisbric/scoutwell/pkg/dedup"
	"github.com/wisbric/scoutwell/pkg/enrichedpost"
	"github.com/wisbric/scoutwell/pkg/enrichment"
	"github.com/wisbric/scoutwell/pkg/enrichment/stages"
	"github.com/wisbric/scoutwell/pkg/forumapi"
	"github.com/wisbric/scoutwell/pkg/harvester"
	"github.com/wisbric/scoutwell/pkg/jobqueue"
	"github.com/wisbric/scoutwell/pkg/llmclient"
	"github.com/wisbric/scoutwell/pkg/mention"
	"github.com/wisbric/scoutwell/pkg/ratecontrol"
	"github.com/wisbric/scoutwell/pkg/rawpost"
	"github.com/wisbric/scoutwell/pkg/sampling"
	"github.com/wisbric/scoutwell/pkg/throughput"
	"github.com/wisbric/scoutwell/pkg/watermark"
)

// Run reads config, connects to infrastructure, and starts the mode named
// by cfg.Mode: "server", "worker", or "collector".
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting scoutwell", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	switch cfg.Mode {
	case "server":
		return runServer(ctx, cfg, logger, db, rdb, metricsReg)
	case "worker":
		return runWorker(ctx, cfg, logger, db, rdb, metricsReg)
	case "collector":
		_ = metricsReg // collector mode has no HTTP surface to expose /metrics on
		return runCollector(ctx, cfg, logger, db, rdb)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// buildPipeline wires the full enrichment stage set against shared stores,
// used by both the HTTP sync-process route and worker mode.
func buildPipeline(cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, auditWriter *audit.Writer) *enrichment.Pipeline {
	postStore := enrichedpost.NewStore(db)
	categoryStore := category.NewStore(db)
	mentionStore := mention.NewStore(db)
	clusterRegistry := cluster.NewRegistry(db)

	var llm *llmclient.Client
	if cfg.LLMAPIKey != "" {
		requestsPerMin := ratecontrol.NewPerMinute(cfg.MaxRequestsPerMinute, cfg.MaxRequestsPerMinute)
		tokensPerMin := ratecontrol.NewPerMinute(cfg.MaxTokensPerMinute, cfg.MaxTokensPerMinute)
		retryDelay := time.Duration(cfg.RetryDelayMs) * time.Millisecond
		llm = llmclient.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMChatModel, cfg.LLMEmbedModel, requestsPerMin, tokensPerMin, cfg.RetryAttempts, retryDelay)
	} else {
		logger.Warn("LLM_API_KEY not set: stages will use rule-only/fallback verdicts")
	}

	clusterAssign := stages.NewClusterAssign(postStore, clusterRegistry, cfg.ClusterSimilarityThreshold)

	return enrichment.New(postStore, auditWriter, logger, enrichment.Stages{
		Spam:      stages.NewSpamCheck(postStore, llm),
		Validity:  stages.NewValidityCheck(postStore, llm),
		Classify:  stages.NewClassification(postStore, llm),
		Semantic:  stages.NewSemanticAnalysis(postStore, llm),
		Sentiment: stages.NewSentimentAnalysis(postStore, llm),
		Category:  stages.NewCategoryAssign(postStore, categoryStore, llm),
		Cluster:   clusterAssign,
		Mention:   stages.NewRecordMention(mentionStore),
	})
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	auditWriter := audit.NewWriter(db, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	queue := jobqueue.New(db, cfg.QueueAttempts)
	pipeline := buildPipeline(cfg, logger, db, auditWriter)

	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg, queue, pipeline)
	go runThroughputGaugeRefresh(ctx, srv)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// runThroughputGaugeRefresh keeps the posts_fetched_current_minute gauge in
// sync with the Redis counter on a short ticker, since the gauge itself has
// no subscription into Redis writes.
func runThroughputGaugeRefresh(ctx context.Context, srv *httpserver.Server) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.RefreshThroughputGauge(ctx)
		}
	}
}

func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	auditWriter := audit.NewWriter(db, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	queue := jobqueue.New(db, cfg.QueueAttempts)
	pipeline := buildPipeline(cfg, logger, db, auditWriter)

	refiller := jobqueue.NewRefiller(queue, rawRefillFunc(db), logger, cfg.QueueLowWaterThreshold, cfg.QueueRefillBatchSize)
	go refiller.RunLoop(ctx, 30*time.Second)

	clusterRegistry := cluster.NewRegistry(db)
	go runClusterMaintenance(ctx, logger, clusterRegistry, cfg.ClusterSimilarityThreshold)

	logger.Info("worker started", "concurrency", cfg.QueueConcurrency)

	sem := make(chan struct{}, cfg.QueueConcurrency)
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopping")
			return nil
		default:
		}

		jobs, err := queue.Claim(ctx, cfg.QueueConcurrency)
		if err != nil {
			logger.Error("claiming jobs", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if len(jobs) == 0 {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, job := range jobs {
			job := job
			sem <- struct{}{}
			go func() {
				defer func() { <-sem }()
				processJob(ctx, queue, pipeline, refiller, logger, job)
			}()
		}
	}
}

func processJob(ctx context.Context, queue *jobqueue.Queue, pipeline *enrichment.Pipeline, refiller *jobqueue.Refiller, logger *slog.Logger, job jobqueue.Job) {
	if err := pipeline.Process(ctx, job.Payload); err != nil {
		logger.Error("processing job", "job_id", job.ID, "post_id", job.Payload.ID, "error", err)
		if failErr := queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
			logger.Error("marking job failed", "job_id", job.ID, "error", failErr)
		}
		return
	}

	if err := queue.Complete(ctx, job.ID); err != nil {
		logger.Error("marking job complete", "job_id", job.ID, "error", err)
	}

	if err := refiller.MaybeRefill(ctx); err != nil {
		logger.Error("post-completion refill", "error", err)
	}
}

// runClusterMaintenance periodically recomputes centroids, merges clusters
// that have drifted close enough together, and reassigns posts stranded
// in clusters that no longer fit. Same ticker-loop shape as
// jobqueue.Refiller.RunLoop.
func runClusterMaintenance(ctx context.Context, logger *slog.Logger, registry *cluster.Registry, similarityThreshold float64) {
	const mergeSimilarityThreshold = 0.95
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := registry.RecomputeAll(ctx); err != nil {
				logger.Error("cluster recompute", "error", err)
				continue
			}
			merged, err := registry.MergeSimilar(ctx, mergeSimilarityThreshold)
			if err != nil {
				logger.Error("cluster merge", "error", err)
			}
			reassigned, err := registry.ReassignOutliers(ctx, similarityThreshold)
			if err != nil {
				logger.Error("cluster reassign outliers", "error", err)
			}
			logger.Info("cluster maintenance pass", "merged", merged, "reassigned", reassigned)
		}
	}
}

// rawRefillFunc loads unprocessed posts straight from the shared posts table
// into queue candidates, used to top up the queue from storage rather than
// from the live forum API on every tick. Excludes posts that already have a
// waiting or active job so a post sitting in the queue ahead of being
// claimed and locked isn't re-enqueued as a duplicate on the next tick.
func rawRefillFunc(db *pgxpool.Pool) jobqueue.RefillFunc {
	return func(ctx context.Context, batchSize int) ([]rawpost.RawPost, error) {
		rows, err := db.Query(ctx, `
			SELECT id, source, sub_source, title, body, author, score, url, metadata, raw_created_at
			FROM posts
			WHERE status = 'unprocessed'
			  AND NOT EXISTS (
				SELECT 1 FROM jobs
				WHERE jobs.queue_name = 'orchestrator'
				  AND jobs.status IN ('waiting', 'active')
				  AND jobs.payload ->> 'id' = posts.id
			  )
			ORDER BY raw_created_at
			LIMIT $1
		`, batchSize)
		if err != nil {
			return nil, fmt.Errorf("querying unprocessed posts: %w", err)
		}
		defer rows.Close()

		var posts []rawpost.RawPost
		for rows.Next() {
			var p rawpost.RawPost
			if err := rows.Scan(&p.ID, &p.Source, &p.SubSource, &p.Title, &p.Body, &p.Author, &p.Score, &p.URL, &p.Metadata, &p.CreatedAt); err != nil {
				return nil, fmt.Errorf("scanning unprocessed post: %w", err)
			}
			posts = append(posts, p)
		}
		return posts, rows.Err()
	}
}

func runCollector(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client) error {
	creds, err := loadCredentials(cfg)
	if err != nil {
		return fmt.Errorf("loading api credentials: %w", err)
	}
	credPool := credential.New(rdb, creds)

	client := forumapi.NewClient(cfg.ForumAPIBaseURL, cfg.UserAgent)
	// 75ms minimum gap between API calls even when the token bucket has
	// capacity to spare, on top of the per-minute refill rate.
	apiBucket := ratecontrol.New(float64(cfg.MaxRequestsPerMinute)/60.0, cfg.MaxRequestsPerMinute, 75*time.Millisecond)
	h := harvester.New(client, credPool, apiBucket, logger)

	rawStore := rawpost.NewPostgresStore(db)
	dedupTTL, err := time.ParseDuration(cfg.DedupTTL)
	if err != nil {
		dedupTTL = dedup.DefaultTTL
	}
	dedupIndex := dedup.New(rdb, dedupTTL)
	watermarkStore := watermark.New(rdb)
	planner := sampling.New(nil)
	throughputCounter := throughput.New(rdb)

	pollInterval, err := time.ParseDuration(cfg.CollectorPollInterval)
	if err != nil || pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}

	batches := make(chan harvester.Batch, len(cfg.SubSources))
	for _, subSource := range cfg.SubSources {
		go runContinuousStream(ctx, logger, h, watermarkStore, subSource, pollInterval, cfg.PerSourceQuota, batches)
	}
	go drainContinuousBatches(ctx, logger, rawStore, dedupIndex, watermarkStore, throughputCounter, batches)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("collector stopping")
			return nil
		case <-ticker.C:
			runCollectionPass(ctx, cfg, logger, h, rawStore, dedupIndex, watermarkStore, throughputCounter, planner)
		}
	}
}

// runContinuousStream keeps subSource's "new" listing streamed via
// StreamNewContinuous, re-reading the watermark each outer cycle so a
// restarted loop resumes from wherever Advance last left it.
func runContinuousStream(ctx context.Context, logger *slog.Logger, h *harvester.Harvester, watermarkStore *watermark.Store, subSource string, pollInterval time.Duration, limit int, out chan<- harvester.Batch) {
	for {
		if ctx.Err() != nil {
			return
		}

		wm, err := watermarkStore.Get(ctx, subSource)
		if err != nil {
			logger.Error("continuous stream watermark lookup", "sub_source", subSource, "error", err)
			wm = 0
		}

		h.StreamNewContinuous(ctx, subSource, wm, time.Minute, pollInterval, limit, out)
	}
}

// drainContinuousBatches persists every batch produced by the continuous
// streams until ctx is cancelled.
func drainContinuousBatches(ctx context.Context, logger *slog.Logger, rawStore *rawpost.PostgresStore, dedupIndex *dedup.Index, watermarkStore *watermark.Store, throughputCounter *throughput.Counter, batches <-chan harvester.Batch) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-batches:
			storeListingPosts(ctx, logger, rawStore, dedupIndex, watermarkStore, throughputCounter, b.SubSource, b.Posts)
		}
	}
}

func runCollectionPass(ctx context.Context, cfg *config.Config, logger *slog.Logger, h *harvester.Harvester, rawStore *rawpost.PostgresStore, dedupIndex *dedup.Index, watermarkStore *watermark.Store, throughputCounter *throughput.Counter, planner *sampling.Planner) {
	strategies := planner.Plan(cfg.SubSources, cfg.PerSourceQuota*len(cfg.SubSources))
	logger.Info("collector pass starting", "strategies", len(strategies))

	for _, s := range strategies {
		listing := h.RunStrategy(ctx, s)
		if len(listing.Posts) == 0 {
			continue
		}
		storeListingPosts(ctx, logger, rawStore, dedupIndex, watermarkStore, throughputCounter, s.SubSource, listing.Posts)
	}
}

func storeListingPosts(ctx context.Context, logger *slog.Logger, rawStore *rawpost.PostgresStore, dedupIndex *dedup.Index, watermarkStore *watermark.Store, throughputCounter *throughput.Counter, subSource string, posts []forumapi.Post) {
	wm, err := watermarkStore.Get(ctx, subSource)
	if err != nil {
		logger.Error("reading watermark", "sub_source", subSource, "error", err)
		wm = 0
	}
	posts = watermark.FilterNew(posts, func(p forumapi.Post) int64 { return p.CreatedAt }, wm)

	var newest int64
	var fetched int
	for _, p := range posts {
		wasNew, err := dedupIndex.Add(ctx, "forum", p.ID)
		if err != nil {
			logger.Error("dedup check", "post_id", p.ID, "error", err)
			continue
		}
		if !wasNew {
			continue
		}

		metadata, _ := json.Marshal(map[string]string{"name": p.Name})
		raw := rawpost.RawPost{
			ID:        p.ID,
			Source:    "forum",
			SubSource: subSource,
			Title:     p.Title,
			Body:      p.Body,
			Author:    forumapi.AuthorName(p.Author),
			Score:     p.Score,
			URL:       p.URL,
			CreatedAt: p.CreatedAt,
			Metadata:  metadata,
		}
		if !raw.Valid() {
			continue
		}

		if _, err := rawStore.Insert(ctx, raw); err != nil {
			logger.Error("inserting raw post", "post_id", p.ID, "error", err)
			continue
		}
		fetched++

		if p.CreatedAt > newest {
			newest = p.CreatedAt
		}
	}

	if newest > 0 {
		if err := watermarkStore.Advance(ctx, subSource, newest); err != nil {
			logger.Error("advancing watermark", "sub_source", subSource, "error", err)
		}
	}

	if fetched > 0 {
		if err := throughputCounter.Record(ctx, fetched); err != nil {
			logger.Error("recording throughput", "sub_source", subSource, "error", err)
		}
	}
}

// loadCredentials builds the credential pool from either the multi-account
// ACCOUNTS JSON array or the single fallback credential.
func loadCredentials(cfg *config.Config) ([]credential.Credential, error) {
	if cfg.AccountsJSON != "" {
		var creds []credential.Credential
		if err := json.Unmarshal([]byte(cfg.AccountsJSON), &creds); err != nil {
			return nil, fmt.Errorf("parsing ACCOUNTS: %w", err)
		}
		return creds, nil
	}

	if cfg.ClientID == "" {
		return nil, fmt.Errorf("no API credentials configured (set ACCOUNTS or API_CLIENT_ID/...)")
	}

	return []credential.Credential{{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Username:     cfg.Username,
		Password:     cfg.Password,
	}}, nil
}
