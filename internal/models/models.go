package models

import (
	"time"

	"github.com/codeclash/similitude/internal/similarity"
)

// CompareRequest is the synchronous comparison payload: two named source
// blobs. Empty sources are legal inputs, so no field is required.
type CompareRequest struct {
	NameA   string `json:"nameA"`
	SourceA string `json:"sourceA"`
	NameB   string `json:"nameB"`
	SourceB string `json:"sourceB"`
}

// CompareResponse wraps the engine report with the archive identifier
// assigned to this comparison.
type CompareResponse struct {
	ComparisonID string             `json:"comparisonId"`
	Cached       bool               `json:"cached"`
	Report       *similarity.Report `json:"report"`
}

// ComparisonRecord is one archived comparison.
type ComparisonRecord struct {
	ComparisonID string             `bson:"comparisonId" json:"comparisonId"`
	Digest       string             `bson:"digest" json:"digest"`
	Report       *similarity.Report `bson:"report" json:"report"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// StreamSubmission is an asynchronous comparison request read from the
// Redis stream.
type StreamSubmission struct {
	SubmissionID string `json:"submissionId"`
	NameA        string `json:"nameA"`
	SourceA      string `json:"sourceA"`
	NameB        string `json:"nameB"`
	SourceB      string `json:"sourceB"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
