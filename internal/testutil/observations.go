package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/EconSOM/internal/domain/observation"
	"github.com/turtacn/EconSOM/internal/domain/run"
)

// AnyQuery is a query with no filters.
var AnyQuery = observation.Query{}

// FixtureIndicators are the indicator names used by EconomicObservations.
var FixtureIndicators = []string{"gdp_growth", "inflation", "unemployment", "debt_ratio"}

// EconomicObservations returns a deterministic table of 24 countries with
// two regimes, two reporting years and a few unusable values mixed in.
func EconomicObservations() []observation.Observation {
	var rows []observation.Observation
	for i := 0; i < 24; i++ {
		country := fmt.Sprintf("Country %02d", i)
		base := 1.0
		if i%2 == 1 {
			base = 8.0
		}
		for j, ind := range FixtureIndicators {
			v := base + float64(j) + float64(i%5)*0.25
			rows = append(rows,
				observation.Observation{Country: country, IndicatorName: ind, Category: "macro", Value: v, Year: 2022, Unit: "%"},
				observation.Observation{Country: country, IndicatorName: ind, Category: "macro", Value: fmt.Sprintf("%.2f", v-0.5), Year: 2019, Unit: "%"},
			)
		}
	}
	rows = append(rows,
		observation.Observation{Country: "Country 00", IndicatorName: "trade_balance", Value: "N/A", Year: 2022},
		observation.Observation{Country: "Country 01", IndicatorName: "gdp_growth", Value: 4.0, Year: 2009},
		observation.Observation{Country: "", IndicatorName: "inflation", Value: 1.0, Year: 2022},
	)
	return rows
}

// FakeObservationRepository serves a fixed slice of rows.
type FakeObservationRepository struct {
	Rows []observation.Observation
	// Err, when set, is returned by every call.
	Err error
	// Count overrides the value returned by CountObservations when non-nil.
	Count *int64

	mu    sync.Mutex
	calls int
}

func (f *FakeObservationRepository) FetchObservations(_ context.Context, q observation.Query) ([]observation.Observation, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := append([]observation.Observation(nil), f.Rows...)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *FakeObservationRepository) CountObservations(_ context.Context, _ observation.Query) (int64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	if f.Count != nil {
		return *f.Count, nil
	}
	return int64(len(f.Rows)), nil
}

// Calls returns how many repository calls were made.
func (f *FakeObservationRepository) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// MemoryHistory is an in-memory run.History.
type MemoryHistory struct {
	mu        sync.Mutex
	summaries []*run.Summary
	Err       error
}

func (h *MemoryHistory) Record(_ context.Context, s *run.Summary) error {
	if h.Err != nil {
		return h.Err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.summaries = append(h.summaries, s)
	return nil
}

// Recent returns summaries newest first.
func (h *MemoryHistory) Recent(_ context.Context, limit int) ([]*run.Summary, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*run.Summary, 0, len(h.summaries))
	for i := len(h.summaries) - 1; i >= 0; i-- {
		out = append(out, h.summaries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of recorded summaries.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.summaries)
}

// RecordingPublisher captures published completions.
type RecordingPublisher struct {
	mu        sync.Mutex
	Published []*run.Summary
	Err       error
}

func (p *RecordingPublisher) PublishCompleted(_ context.Context, s *run.Summary) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Published = append(p.Published, s)
	return nil
}

// MemoryArtifactStore keeps uploaded objects in memory.
type MemoryArtifactStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
	Err     error
}

// NewMemoryArtifactStore returns an empty store.
func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{Objects: map[string][]byte{}, Types: map[string]string{}}
}

func (s *MemoryArtifactStore) PutArtifact(_ context.Context, key string, data []byte, contentType string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[key] = append([]byte(nil), data...)
	s.Types[key] = contentType
	return nil
}

func (s *MemoryArtifactStore) PresignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return fmt.Sprintf("memory://artifacts/%s?expires=%d", key, int64(expiry.Seconds())), nil
}

// Keys returns the stored keys in order.
func (s *MemoryArtifactStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.Objects))
	for k := range s.Objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

//Personal.AI order the ending
