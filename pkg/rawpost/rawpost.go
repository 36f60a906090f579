// Package rawpost holds the immutable ingest unit harvested from a
// third-party forum API, plus the store it is persisted to before the
// enrichment pipeline picks it up.
package rawpost

import "encoding/json"

// RawPost is the immutable unit produced by the collector. Its id uniquely
// identifies a post within the entire system, regardless of source.
type RawPost struct {
	ID        string          `json:"id" validate:"required"`
	Source    string          `json:"source"`
	SubSource string          `json:"subSource"`
	Title     string          `json:"title" validate:"required"`
	Body      string          `json:"body" validate:"required"`
	Author    string          `json:"author"`
	Score     int             `json:"score"`
	URL       string          `json:"url"`
	CreatedAt int64           `json:"createdAt"` // unix seconds
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Valid reports whether the three fields the HTTP ingress validates on are
// present. Deeper validity checks (length, spam) belong to the pipeline's
// ValidityCheck stage, not here.
func (p RawPost) Valid() bool {
	return p.ID != "" && p.Title != "" && p.Body != ""
}
