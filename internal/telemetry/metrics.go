package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency across all routes.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "scoutwell",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// --- Collector metrics ---

var PostsHarvestedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "scoutwell",
		Subsystem: "collector",
		Name:      "posts_harvested_total",
		Help:      "Total number of posts harvested, by sub-source and whether new (post-dedup).",
	},
	[]string{"sub_source", "new"},
)

var CredentialCooldownsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "scoutwell",
		Subsystem: "collector",
		Name:      "credential_cooldowns_total",
		Help:      "Total number of times a credential was put into cooldown.",
	},
	[]string{"credential_index"},
)

var StrategyErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "scoutwell",
		Subsystem: "collector",
		Name:      "strategy_errors_total",
		Help:      "Total number of sampling strategy executions that returned an error.",
	},
	[]string{"sub_source", "sort"},
)

// --- Pipeline / stage metrics ---

var StageCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "scoutwell",
		Subsystem: "pipeline",
		Name:      "stage_calls_total",
		Help:      "Total number of stage executions, by stage and outcome.",
	},
	[]string{"stage", "outcome"},
)

var StageDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "scoutwell",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Stage execution duration in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
	[]string{"stage"},
)

var StageTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "scoutwell",
		Subsystem: "pipeline",
		Name:      "stage_tokens_total",
		Help:      "Total number of LLM tokens consumed, by stage.",
	},
	[]string{"stage"},
)

var PostsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "scoutwell",
		Subsystem: "pipeline",
		Name:      "posts_processed_total",
		Help:      "Total number of posts reaching a terminal pipeline status.",
	},
	[]string{"status"}, // processed, failed
)

var MentionsRecordedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "scoutwell",
		Subsystem: "pipeline",
		Name:      "mentions_recorded_total",
		Help:      "Total number of mention rows recorded.",
	},
)

var ClustersCreatedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "scoutwell",
		Subsystem: "cluster",
		Name:      "clusters_created_total",
		Help:      "Total number of new clusters created.",
	},
)

var ClusterMergesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "scoutwell",
		Subsystem: "cluster",
		Name:      "merges_total",
		Help:      "Total number of clusters absorbed by MergeSimilar.",
	},
)

var QueueDepthGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "scoutwell",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Current job queue depth, by state.",
	},
	[]string{"state"}, // waiting, active, completed, failed
)

var PostsFetchedCurrentMinute = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "scoutwell",
		Subsystem: "collector",
		Name:      "posts_fetched_current_minute",
		Help:      "Number of posts fetched in the current rolling one-minute window.",
	},
)

// All returns all scoutwell-specific metrics for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		PostsHarvestedTotal,
		CredentialCooldownsTotal,
		StrategyErrorsTotal,
		StageCallsTotal,
		StageDuration,
		StageTokensTotal,
		PostsProcessedTotal,
		MentionsRecordedTotal,
		ClustersCreatedTotal,
		ClusterMergesTotal,
		QueueDepthGauge,
		PostsFetchedCurrentMinute,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process collectors,
// the shared HTTPRequestDuration metric, and any additional service-specific
// collectors passed as arguments.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
