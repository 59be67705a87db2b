// Package run describes one execution of the SOM pipeline as seen from the
// outside: the request that triggers it, the summary left behind and the
// ports that store and announce those summaries.  Trained maps themselves are
// never persisted.
package run

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Source records what triggered a run.
type Source string

const (
	SourceHTTP   Source = "http"
	SourceWorker Source = "worker"
	SourceCLI    Source = "cli"
)

// Request asks for an analysis.  Zero fields fall back to the profile
// defaults of the executing service.
type Request struct {
	ID          string    `json:"id"`
	Profile     string    `json:"profile,omitempty"`
	Rows        int       `json:"rows,omitempty"`
	Cols        int       `json:"cols,omitempty"`
	Iterations  int       `json:"iterations,omitempty"`
	Source      Source    `json:"source"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRequest returns a request with a fresh id.
func NewRequest(source Source, profile string, rows, cols, iterations int) *Request {
	return &Request{
		ID:          NewID(),
		Profile:     profile,
		Rows:        rows,
		Cols:        cols,
		Iterations:  iterations,
		Source:      source,
		RequestedAt: time.Now().UTC(),
	}
}

// NewID returns a random run id.
func NewID() string { return uuid.NewString() }

// Summary is the durable trace of one run.
type Summary struct {
	ID      string `json:"id"`
	Profile string `json:"profile"`
	Source  Source `json:"source"`
	Status  Status `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	Rows       int   `json:"rows"`
	Cols       int   `json:"cols"`
	Iterations int   `json:"iterations"`
	Seed       int64 `json:"seed"`

	Countries  int `json:"countries"`
	Indicators int `json:"indicators"`

	QuantizationError float64 `json:"quantization_error"`
	TopographicError  float64 `json:"topographic_error"`
	Quality           string  `json:"quality,omitempty"`

	// Fingerprint identifies the assembled input; equal fingerprints and
	// parameters reproduce the same map.
	Fingerprint string `json:"fingerprint,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// Succeeded reports whether the run produced a map.
func (s *Summary) Succeeded() bool { return s != nil && s.Status == StatusSuccess }

// History keeps the most recent run summaries.
type History interface {
	Record(ctx context.Context, s *Summary) error
	Recent(ctx context.Context, limit int) ([]*Summary, error)
}

// Publisher announces finished runs.
type Publisher interface {
	PublishCompleted(ctx context.Context, s *Summary) error
}

//Personal.AI order the ending
