// Package enrichedpost holds the mutable record the enrichment pipeline
// writes through to, plus the repository and per-post lock RPC that
// guarantee each post is enriched by exactly one worker at a time.
package enrichedpost

import (
	"strings"
	"time"
)

// Status is the pipeline status of an enriched post.
type Status string

const (
	StatusUnprocessed Status = "unprocessed"
	StatusProcessing  Status = "processing"
	StatusProcessed   Status = "processed"
	StatusFailed      Status = "failed"
)

// Classification is the stage-assigned content category.
type Classification string

const (
	ClassificationBug             Classification = "bug"
	ClassificationFeatureRequest  Classification = "feature_request"
	ClassificationQuestion        Classification = "question"
	ClassificationDiscussion      Classification = "discussion"
	ClassificationDocumentation   Classification = "documentation"
	ClassificationOther           Classification = "other"
)

// SentimentLabel is the stage-assigned sentiment bucket.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// EnrichedPost is the mutable record a post becomes as it passes through the
// pipeline. It is keyed by the same id as the originating RawPost.
type EnrichedPost struct {
	ID     string
	Status Status

	IsSpam          bool
	HasPII          bool
	ModerationNotes string

	IsValid        *bool
	ValidityReason string

	Classification           *Classification
	ClassificationConfidence *float64

	Summary   string
	Keywords  []string
	Embedding []float64

	SentimentLabel *SentimentLabel
	SentimentScore *float64

	CategoryID *int
	ClusterID  *int

	RetryCount   int
	ErrorMessage string
	LockEpoch    int64

	CreatedAt           time.Time
	UpdatedAt           time.Time
	ProcessingStartedAt *time.Time
	ProcessedAt         *time.Time
	FailedAt            *time.Time
}

// IsDerived reports whether this is a synthetic derived-problem record,
// identified by its "<origId>-Derived-<uuid>" id pattern.
func IsDerived(id string) bool {
	return strings.Contains(id, "-Derived-")
}
