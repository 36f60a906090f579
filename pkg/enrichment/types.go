package enrichment

import "github.com/google/uuid"

// SpamVerdict is the Data payload of a successful SpamCheck StageResult.
type SpamVerdict struct {
	IsSpam bool
	HasPII bool
	Notes  string
}

// ValidityVerdict is the Data payload of a successful ValidityCheck
// StageResult.
type ValidityVerdict struct {
	IsValid bool
	Reason  string
}

// ClassifyVerdict is the Data payload of a successful Classification
// StageResult.
type ClassifyVerdict struct {
	Classification string
	Confidence     float64
}

// SemanticVerdict is the Data payload of a successful SemanticAnalysis
// StageResult.
type SemanticVerdict struct {
	Summary   string
	Keywords  []string
	Embedding []float64
}

// SentimentVerdict is the Data payload of a successful SentimentAnalysis
// StageResult.
type SentimentVerdict struct {
	Sentiment  string
	Score      float64
	Confidence float64
}

// CategoryVerdict is the Data payload of a successful CategoryAssign
// StageResult.
type CategoryVerdict struct {
	CategoryID int
}

// ClusterVerdict is the Data payload of a successful ClusterAssign
// StageResult.
type ClusterVerdict struct {
	ClusterID int
}

func newDerivedSuffix() string {
	return uuid.NewString()
}
