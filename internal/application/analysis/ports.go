package analysis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/EconSOM/internal/domain/run"
)

// ---------------------------------------------------------------------------
// Adapter interfaces (ports for infrastructure)
// ---------------------------------------------------------------------------

// Cache memoizes rendered images.  GetOrSet decodes a hit into dest or runs
// loader, stores its value and decodes that into dest.
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
}

// ArtifactStore keeps exported reports and rendered images.
type ArtifactStore interface {
	PutArtifact(ctx context.Context, key string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// WorkbookWriter turns a finished analysis into a spreadsheet.
type WorkbookWriter interface {
	WriteWorkbook(report *Report) ([]byte, error)
}

// Metrics records pipeline telemetry.
type Metrics interface {
	ObserveRun(profile, status string, d time.Duration)
	ObserveAssembly(accepted int, rejectedByReason map[string]int)
	ObserveMatrix(rows, cols, imputed int)
	ObserveQuality(quantizationError, topographicError float64)
	IncRender(kind string)
	IncExport(status string)
}

// ---------------------------------------------------------------------------
// No-op fallbacks
// ---------------------------------------------------------------------------

type noopMetrics struct{}

func (noopMetrics) ObserveRun(string, string, time.Duration) {}
func (noopMetrics) ObserveAssembly(int, map[string]int) {}
func (noopMetrics) ObserveMatrix(int, int, int) {}
func (noopMetrics) ObserveQuality(float64, float64) {}
func (noopMetrics) IncRender(string) {}
func (noopMetrics) IncExport(string) {}

// passthroughCache always runs the loader.
type passthroughCache struct{}

func (passthroughCache) GetOrSet(ctx context.Context, _ string, dest interface{}, _ time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	v, err := loader(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

type noopHistory struct{}

func (noopHistory) Record(context.Context, *run.Summary) error { return nil }
func (noopHistory) Recent(context.Context, int) ([]*run.Summary, error) { return nil, nil }

type noopPublisher struct{}

func (noopPublisher) PublishCompleted(context.Context, *run.Summary) error { return nil }

//Personal.AI order the ending
