package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/scoutwell/internal/config"
	"github.com/wisbric/scoutwell/internal/telemetry"
	"github.com/wisbric/scoutwell/pkg/enrichment"
	"github.com/wisbric/scoutwell/pkg/jobqueue"
	"github.com/wisbric/scoutwell/pkg/rawpost"
	"github.com/wisbric/scoutwell/pkg/throughput"
)

// Server holds the HTTP ingress dependencies: health, enrichment ingress,
// and queue status.
type Server struct {
	Router  *chi.Mux
	Logger  *slog.Logger
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Metrics *prometheus.Registry

	env        string
	startedAt  time.Time
	queue      *jobqueue.Queue
	pipeline   *enrichment.Pipeline
	throughput *throughput.Counter
}

// NewServer creates the HTTP server with middleware and the four ingress
// routes mounted.
func NewServer(cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, queue *jobqueue.Queue, pipeline *enrichment.Pipeline) *Server {
	s := &Server{
		Router:     chi.NewRouter(),
		Logger:     logger,
		DB:         db,
		Redis:      rdb,
		Metrics:    metricsReg,
		env:        cfg.Env,
		startedAt:  time.Now(),
		queue:      queue,
		pipeline:   pipeline,
		throughput: throughput.New(rdb),
	}

	s.Router.Use(RequestID)
	s.Router.Use(Logger(logger))
	s.Router.Use(Metrics)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.Router.Get("/health", s.handleHealth)
	s.Router.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	s.Router.Route("/api", func(r chi.Router) {
		r.Post("/process-post", s.handleProcessPost)
		r.Post("/process-post-sync", s.handleProcessPostSync)
		r.Get("/queue/status", s.handleQueueStatus)
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

type healthResponse struct {
	Status             string    `json:"status"`
	Timestamp          time.Time `json:"timestamp"`
	Environment        string    `json:"environment"`
	PostsFetchedMinute int64     `json:"postsFetchedCurrentMinute"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fetched, err := s.throughput.Get(r.Context())
	if err != nil {
		s.Logger.Error("reading throughput counter", "error", err)
	}

	Respond(w, http.StatusOK, healthResponse{
		Status:             "ok",
		Timestamp:          time.Now().UTC(),
		Environment:        s.env,
		PostsFetchedMinute: fetched,
	})
}

type processPostRequest struct {
	Post rawpost.RawPost `json:"post" validate:"required"`
}

type processPostResponse struct {
	Success bool   `json:"success"`
	PostID  string `json:"postId"`
}

// decodePost decodes and validates the request body, writing the 400/422
// response itself on failure.
func (s *Server) decodePost(w http.ResponseWriter, r *http.Request) (rawpost.RawPost, bool) {
	var req processPostRequest
	if !DecodeAndValidate(w, r, &req) {
		return rawpost.RawPost{}, false
	}
	return req.Post, true
}

// handleProcessPost enqueues a post for async processing.
func (s *Server) handleProcessPost(w http.ResponseWriter, r *http.Request) {
	post, ok := s.decodePost(w, r)
	if !ok {
		return
	}

	if _, err := s.queue.Enqueue(r.Context(), post); err != nil {
		s.Logger.Error("enqueueing post", "post_id", post.ID, "error", err)
		RespondError(w, http.StatusInternalServerError, "enqueue_failed", "failed to enqueue post")
		return
	}

	Respond(w, http.StatusOK, processPostResponse{Success: true, PostID: post.ID})
}

// handleProcessPostSync runs the enrichment pipeline synchronously and
// returns 500 on pipeline failure.
func (s *Server) handleProcessPostSync(w http.ResponseWriter, r *http.Request) {
	post, ok := s.decodePost(w, r)
	if !ok {
		return
	}

	if err := s.pipeline.Process(r.Context(), post); err != nil {
		s.Logger.Error("processing post synchronously", "post_id", post.ID, "error", err)
		RespondError(w, http.StatusInternalServerError, "pipeline_failed", err.Error())
		return
	}

	Respond(w, http.StatusOK, processPostResponse{Success: true, PostID: post.ID})
}

type queueStatusResponse struct {
	jobqueue.Counts
	PostsFetchedMinute int64 `json:"postsFetchedCurrentMinute"`
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.queue.Counts(r.Context())
	if err != nil {
		s.Logger.Error("fetching queue status", "error", err)
		RespondError(w, http.StatusInternalServerError, "queue_status_failed", "failed to fetch queue status")
		return
	}

	fetched, err := s.throughput.Get(r.Context())
	if err != nil {
		s.Logger.Error("reading throughput counter", "error", err)
	}

	Respond(w, http.StatusOK, queueStatusResponse{Counts: counts, PostsFetchedMinute: fetched})
}

// RefreshThroughputGauge reads the current-minute fetched-posts count and
// sets the Prometheus gauge from it. Intended to be called on a short ticker
// from the process that owns the server's lifetime.
func (s *Server) RefreshThroughputGauge(ctx context.Context) {
	fetched, err := s.throughput.Get(ctx)
	if err != nil {
		s.Logger.Error("refreshing throughput gauge", "error", err)
		return
	}
	telemetry.PostsFetchedCurrentMinute.Set(float64(fetched))
}
