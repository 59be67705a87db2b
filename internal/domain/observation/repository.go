package observation

import (
	"context"
)

// DefaultMinYear is the year floor applied when none is configured.
const DefaultMinYear = 2018

// DefaultFetchLimit caps the number of rows read per analysis.
const DefaultFetchLimit = 1000

// Query selects the raw observations handed to the pipeline.
type Query struct {
	// MinYear drops rows older than this year; 0 disables the floor.
	MinYear int
	// Limit caps the number of returned rows; 0 means no cap.
	Limit int
}

// Repository is the read side of the observation store.  Implementations
// return rows with a non-empty country and value, ordered by country,
// indicator name and descending year.
type Repository interface {
	FetchObservations(ctx context.Context, q Query) ([]Observation, error)
	CountObservations(ctx context.Context, q Query) (int64, error)
}

// Indicator is one measured series as stored.
type Indicator struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Unit     string   `json:"unit,omitempty"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// ImportStats counts what a bulk load did.
type ImportStats struct {
	Indicators int `json:"indicators"`
	Inserted   int `json:"inserted"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
}

// Importer is the write side used by bulk loads.  Rows are upserted on
// (indicator, country, year); values are stored verbatim.
type Importer interface {
	ImportObservations(ctx context.Context, rows []Observation) (*ImportStats, error)
	ListIndicators(ctx context.Context) ([]Indicator, error)
}

//Personal.AI order the ending
