package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/EconSOM/internal/domain/observation"
	"github.com/turtacn/EconSOM/internal/domain/run"
	"github.com/turtacn/EconSOM/internal/infrastructure/rendering"
	"github.com/turtacn/EconSOM/internal/testutil"
	"github.com/turtacn/EconSOM/pkg/errors"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	loads   int
}

func newMemoryCache() *memoryCache { return &memoryCache{entries: map[string][]byte{}} }

func (c *memoryCache) GetOrSet(ctx context.Context, key string, dest interface{}, _ time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	c.mu.Lock()
	data, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		v, err := loader(ctx)
		if err != nil {
			return err
		}
		if data, err = json.Marshal(v); err != nil {
			return err
		}
		c.mu.Lock()
		c.entries[key] = data
		c.loads++
		c.mu.Unlock()
	}
	return json.Unmarshal(data, dest)
}

type recordingMetrics struct {
	noopMetrics
	mu      sync.Mutex
	runs    map[string]int
	renders int
	exports map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{runs: map[string]int{}, exports: map[string]int{}}
}

func (m *recordingMetrics) ObserveRun(profile, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[profile+"/"+status]++
}

func (m *recordingMetrics) IncRender(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renders++
}

func (m *recordingMetrics) IncExport(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exports[status]++
}

type stubWorkbook struct {
	reports []*Report
	err     error
}

func (w *stubWorkbook) WriteWorkbook(r *Report) ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.reports = append(w.reports, r)
	return []byte("PK-workbook"), nil
}

func newTestService(t *testing.T, repo observation.Repository, cfg *Config, opts ...Option) Service {
	t.Helper()
	svc, err := NewService(repo, testutil.NewMockLogger(), cfg, opts...)
	require.NoError(t, err)
	return svc
}

func fixtureRepo() *testutil.FakeObservationRepository {
	return &testutil.FakeObservationRepository{Rows: testutil.EconomicObservations()}
}

func dataMap(t *testing.T, env *Envelope) map[string]any {
	t.Helper()
	require.NotNil(t, env)
	require.True(t, env.Succeeded(), "envelope: %+v", env)
	m, ok := env.Data.(map[string]any)
	require.True(t, ok)
	return m
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewService_RequiresRepository(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestNewService_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dedup = "first"
	_, err := NewService(fixtureRepo(), nil, cfg)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

// ---------------------------------------------------------------------------
// Analyze
// ---------------------------------------------------------------------------

func TestAnalyze_FullProfile(t *testing.T) {
	metrics := newRecordingMetrics()
	svc := newTestService(t, fixtureRepo(), nil, WithMetrics(metrics))

	env, err := svc.Analyze(context.Background(), nil)
	require.NoError(t, err)
	data := dataMap(t, env)
	assert.NotEmpty(t, env.RunID)

	som := data["som_analysis"].(map[string]any)
	assert.Equal(t, []any{int64(6), int64(6)}, som["map_size"])
	assert.Equal(t, int64(500), som["training_iterations"])
	assert.Len(t, som["distance_map"], 6)
	assert.Len(t, som["hit_map"], 6)

	hits := int64(0)
	for _, row := range som["hit_map"].([]any) {
		for _, h := range row.([]any) {
			hits += h.(int64)
		}
	}
	assert.Equal(t, int64(24), hits)

	summary := data["summary"].(map[string]any)
	assert.Equal(t, int64(24), summary["total_countries"])
	assert.Equal(t, int64(4), summary["total_indicators"])
	assert.Equal(t, int64(96), summary["data_coverage"])
	assert.Equal(t, []any{}, summary["dropped_countries"])
	assembly := summary["assembly"].(map[string]any)
	assert.Equal(t, int64(195), assembly["total"])
	assert.Equal(t, int64(96), assembly["accepted"])
	assert.Equal(t, int64(96), assembly["superseded"])
	assert.Equal(t, int64(2), assembly["rejected"])
	assert.Equal(t, int64(1), assembly["filtered"])

	regional := data["regional_data"].([]any)
	require.Len(t, regional, 24)
	first := regional[0].(map[string]any)
	assert.Equal(t, "Country 00", first["country"])
	assert.Len(t, first["indicators"], 4)

	clusters := data["clusters"].(map[string]any)
	stats := data["cluster_stats"].(map[string]any)
	assert.Equal(t, len(clusters), len(stats))
	assert.Equal(t, int64(len(clusters)), summary["clusters_found"])

	assert.Equal(t, 1, metrics.runs["full/success"])
}

func TestAnalyze_IsReproducible(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	a, err := svc.Analyze(context.Background(), &AnalyzeRequest{Rows: 3, Cols: 3, Iterations: 200})
	require.NoError(t, err)
	b, err := svc.Analyze(context.Background(), &AnalyzeRequest{Rows: 3, Cols: 3, Iterations: 200})
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Data, b.Data)
}

func TestAnalyze_NonSquareGridIsRowMajor(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	env, err := svc.Analyze(context.Background(), &AnalyzeRequest{Rows: 2, Cols: 5, Iterations: 200})
	require.NoError(t, err)
	data := dataMap(t, env)
	som := data["som_analysis"].(map[string]any)

	dist := som["distance_map"].([]any)
	hits := som["hit_map"].([]any)
	require.Len(t, dist, 2)
	require.Len(t, hits, 2)
	for i := range dist {
		assert.Len(t, dist[i], 5)
		assert.Len(t, hits[i], 5)
	}

	for _, e := range data["regional_data"].([]any) {
		entry := e.(map[string]any)
		pos := entry["som_position"].([]any)
		row, col := pos[0].(int64), pos[1].(int64)
		assert.Equal(t, row*5+col, entry["cluster_id"])
		assert.Positive(t, hits[row].([]any)[col].(int64))
	}
}

func TestAnalyze_MinimalProfile(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	env, err := svc.Analyze(context.Background(), &AnalyzeRequest{Profile: "minimal"})
	require.NoError(t, err)
	data := dataMap(t, env)

	stats := data["summary_stats"].(map[string]any)
	assert.Equal(t, []any{int64(4), int64(4)}, stats["som_size"])
	assert.Equal(t, int64(24), stats["total_countries"])
	assert.Len(t, data["countries"], 10)
	assert.Len(t, data["indicators"], 4)
	assert.Equal(t, []any{int64(4), int64(4)}, data["map_size"])
	assert.NotContains(t, data, "regional_data")
}

func TestAnalyze_RejectsInvalidRequest(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	_, err := svc.Analyze(context.Background(), &AnalyzeRequest{Profile: "verbose"})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = svc.Analyze(context.Background(), &AnalyzeRequest{Rows: -2})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestAnalyze_EmptyDataIsAnErrorEnvelope(t *testing.T) {
	history := &testutil.MemoryHistory{}
	svc := newTestService(t, &testutil.FakeObservationRepository{}, nil, WithHistory(history))

	env, err := svc.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusError, env.Status)
	assert.Equal(t, errors.ErrCodeEmptyData.String(), env.Code)
	assert.Nil(t, env.Data)
	assert.NotEmpty(t, env.RunID)

	recent, err := history.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, run.StatusError, recent[0].Status)
	assert.Equal(t, errors.ErrCodeEmptyData.String(), recent[0].Code)
}

func TestAnalyze_InsufficientMatrix(t *testing.T) {
	repo := &testutil.FakeObservationRepository{Rows: []observation.Observation{
		{Country: "A", IndicatorName: "x", Value: 1.0, Year: 2022},
		{Country: "B", IndicatorName: "y", Value: 2.0, Year: 2022},
	}}
	cfg := DefaultConfig()
	cfg.Matrix.ColumnCoverage = 1
	svc := newTestService(t, repo, cfg)

	env, err := svc.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusError, env.Status)
	assert.Equal(t, errors.ErrCodeInsufficientMatrix.String(), env.Code)
}

func TestAnalyze_RepositoryFailureIsReturned(t *testing.T) {
	repo := &testutil.FakeObservationRepository{Err: errors.New(errors.ErrCodeDatabaseError, "connection refused")}
	svc := newTestService(t, repo, nil)

	env, err := svc.Analyze(context.Background(), nil)
	assert.Nil(t, env)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestAnalyze_RecordsAndPublishesRuns(t *testing.T) {
	history := &testutil.MemoryHistory{}
	publisher := &testutil.RecordingPublisher{}
	svc := newTestService(t, fixtureRepo(), nil, WithHistory(history), WithPublisher(publisher))

	env, err := svc.Analyze(context.Background(), &AnalyzeRequest{Iterations: 100})
	require.NoError(t, err)

	require.Len(t, publisher.Published, 1)
	sum := publisher.Published[0]
	assert.Equal(t, env.RunID, sum.ID)
	assert.True(t, sum.Succeeded())
	assert.Equal(t, run.SourceHTTP, sum.Source)
	assert.Equal(t, 24, sum.Countries)
	assert.Equal(t, 4, sum.Indicators)
	assert.Len(t, sum.Fingerprint, 32)
	assert.Equal(t, 1, history.Len())
}

func TestAnalyze_SummarySinkFailuresAreOnlyLogged(t *testing.T) {
	logger := testutil.NewMockLogger()
	svc, err := NewService(fixtureRepo(), logger, nil,
		WithHistory(&testutil.MemoryHistory{Err: errors.New(errors.ErrCodeCacheError, "redis down")}),
		WithPublisher(&testutil.RecordingPublisher{Err: errors.New(errors.ErrCodeExternalService, "broker down")}))
	require.NoError(t, err)

	env, err := svc.Analyze(context.Background(), &AnalyzeRequest{Iterations: 100})
	require.NoError(t, err)
	assert.True(t, env.Succeeded())
	assert.True(t, logger.HasMessage("warn", "failed to record run summary"))
	assert.True(t, logger.HasMessage("warn", "failed to publish run completion"))
}

// ---------------------------------------------------------------------------
// Clusters / Summary
// ---------------------------------------------------------------------------

func TestClusters(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	env, err := svc.Clusters(context.Background())
	require.NoError(t, err)
	data := dataMap(t, env)
	assert.Contains(t, data, "clusters")
	assert.Contains(t, data, "cluster_stats")
	assert.Contains(t, data, "summary")

	members := 0
	for key, list := range data["clusters"].(map[string]any) {
		assert.Regexp(t, `^\d+_\d+$`, key)
		members += len(list.([]any))
	}
	assert.Equal(t, 24, members)
}

func TestSummary(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	env, err := svc.Summary(context.Background())
	require.NoError(t, err)
	data := dataMap(t, env)
	assert.Equal(t, int64(24), data["total_countries"])
	assert.Contains(t, []any{"excellent", "good", "fair", "poor"}, data["training_quality"])
}

// ---------------------------------------------------------------------------
// Retrain
// ---------------------------------------------------------------------------

func TestRetrain_Success(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	resp, err := svc.Retrain(context.Background(), &RetrainRequest{MapSize: []int{3, 4}, Iterations: intPtr(150)})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "SOM retrained successfully", resp.Message)
	require.NotNil(t, resp.NewParameters)
	assert.Equal(t, [2]int{3, 4}, resp.NewParameters.MapSize)
	assert.Equal(t, 150, resp.NewParameters.Iterations)
	assert.NotEmpty(t, resp.Quality)
}

func TestRetrain_DefaultsWhenOmitted(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	resp, err := svc.Retrain(context.Background(), &RetrainRequest{})
	require.NoError(t, err)
	assert.Equal(t, [2]int{6, 6}, resp.NewParameters.MapSize)
	assert.Equal(t, 500, resp.NewParameters.Iterations)
}

func TestRetrain_Validation(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	tests := []struct {
		name string
		req  *RetrainRequest
		code errors.ErrorCode
		msg  string
	}{
		{"one dimension", &RetrainRequest{MapSize: []int{3}}, errors.ErrCodeInvalidGrid, "map_size must be a list of two integers"},
		{"zero dimension", &RetrainRequest{MapSize: []int{0, 3}}, errors.ErrCodeInvalidGrid, "map_size must be a list of two integers"},
		{"too few iterations", &RetrainRequest{Iterations: intPtr(50)}, errors.CodeInvalidParam, "iterations must be an integer >= 100"},
		{"explicit zero iterations", &RetrainRequest{Iterations: intPtr(0)}, errors.CodeInvalidParam, "iterations must be an integer >= 100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Retrain(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code))
			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.msg, appErr.Message)
		})
	}
}

func intPtr(v int) *int { return &v }

func TestRetrain_OverBudgetIsAnErrorResponse(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	resp, err := svc.Retrain(context.Background(), &RetrainRequest{Iterations: intPtr(200000)})
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, errors.ErrCodeBudgetExceeded.String(), resp.Code)
	assert.Nil(t, resp.NewParameters)
}

// ---------------------------------------------------------------------------
// Render / Visualize
// ---------------------------------------------------------------------------

func TestRender_UsesCache(t *testing.T) {
	cache := newMemoryCache()
	metrics := newRecordingMetrics()
	svc := newTestService(t, fixtureRepo(), nil, WithCache(cache), WithMetrics(metrics))

	first, err := svc.Render(context.Background(), rendering.KindDistance)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	second, err := svc.Render(context.Background(), rendering.KindDistance)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.loads)
	assert.Equal(t, 1, metrics.renders)

	_, err = svc.Render(context.Background(), rendering.KindHit)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.loads)
}

func TestVisualize(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	resp, err := svc.Visualize(context.Background(), "hit")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.True(t, strings.HasPrefix(resp.Image, rendering.DataURIPrefix))

	_, err = svc.Visualize(context.Background(), "contour")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedMapType))
}

func TestVisualize_EmptyDataIsAnErrorResponse(t *testing.T) {
	svc := newTestService(t, &testutil.FakeObservationRepository{}, nil)

	resp, err := svc.Visualize(context.Background(), "distance")
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, errors.ErrCodeEmptyData.String(), resp.Code)
	assert.Empty(t, resp.Image)
}

// ---------------------------------------------------------------------------
// Execute
// ---------------------------------------------------------------------------

func TestExecute(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	req := run.NewRequest(run.SourceWorker, "minimal", 0, 0, 0)
	sum, err := svc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.ID, sum.ID)
	assert.Equal(t, run.SourceWorker, sum.Source)
	assert.Equal(t, "minimal", sum.Profile)
	assert.Equal(t, 4, sum.Rows)
	assert.Equal(t, 100, sum.Iterations)
	assert.True(t, sum.Succeeded())
}

func TestExecute_PipelineOutcomeIsASummary(t *testing.T) {
	svc := newTestService(t, &testutil.FakeObservationRepository{}, nil)

	sum, err := svc.Execute(context.Background(), &run.Request{ID: "r-1"})
	require.NoError(t, err)
	assert.Equal(t, "r-1", sum.ID)
	assert.Equal(t, run.SourceWorker, sum.Source)
	assert.Equal(t, run.StatusError, sum.Status)
	assert.Equal(t, errors.ErrCodeEmptyData.String(), sum.Code)
}

func TestExecute_InvalidRequest(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	_, err := svc.Execute(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = svc.Execute(context.Background(), &run.Request{Profile: "verbose"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

// ---------------------------------------------------------------------------
// Export / History
// ---------------------------------------------------------------------------

func TestExport(t *testing.T) {
	store := testutil.NewMemoryArtifactStore()
	book := &stubWorkbook{}
	metrics := newRecordingMetrics()
	svc := newTestService(t, fixtureRepo(), nil, WithArtifactStore(store), WithWorkbookWriter(book), WithMetrics(metrics))

	res, err := svc.Export(context.Background(), &AnalyzeRequest{Iterations: 100})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "exports/"+res.RunID+".xlsx", res.Key)
	assert.Equal(t, len("PK-workbook"), res.Size)
	assert.True(t, strings.HasPrefix(res.URL, "memory://artifacts/exports/"))

	assert.ElementsMatch(t, []string{
		"exports/" + res.RunID + ".xlsx",
		"renders/" + res.RunID + "/distance.png",
		"renders/" + res.RunID + "/hit.png",
	}, store.Keys())
	assert.Equal(t, "image/png", store.Types["renders/"+res.RunID+"/hit.png"])

	require.Len(t, book.reports, 1)
	assert.Equal(t, ProfileFull, book.reports[0].Profile)
	assert.Equal(t, 24, book.reports[0].Result.Summary.TotalCountries)
	assert.Equal(t, 1, metrics.exports[StatusSuccess])
}

func TestExport_NotConfigured(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	_, err := svc.Export(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeatureDisabled))
}

func TestExport_WorkbookFailure(t *testing.T) {
	book := &stubWorkbook{err: errors.New(errors.ErrCodeInternal, "disk full")}
	svc := newTestService(t, fixtureRepo(), nil,
		WithArtifactStore(testutil.NewMemoryArtifactStore()), WithWorkbookWriter(book))

	_, err := svc.Export(context.Background(), &AnalyzeRequest{Iterations: 100})
	assert.True(t, errors.IsCode(err, errors.ErrCodeExportFailed))
}

func TestHistory_ClampsLimit(t *testing.T) {
	history := &testutil.MemoryHistory{}
	cfg := DefaultConfig()
	cfg.HistoryLimit = 2
	svc := newTestService(t, fixtureRepo(), cfg, WithHistory(history))

	for i := 0; i < 3; i++ {
		_, err := svc.Analyze(context.Background(), &AnalyzeRequest{Rows: 2, Cols: 2, Iterations: 100})
		require.NoError(t, err)
	}

	got, err := svc.History(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

// ---------------------------------------------------------------------------
// Health / diagnostics
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)
	h, err := svc.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "kohonen", h.Service)
	assert.True(t, h.DataAvailable)
	assert.Equal(t, int64(195), h.DataCount)
	assert.Equal(t, Version, h.Version)

	zero := int64(0)
	svc = newTestService(t, &testutil.FakeObservationRepository{Count: &zero}, nil)
	h, err = svc.Health(context.Background())
	require.NoError(t, err)
	assert.False(t, h.DataAvailable)
}

func TestDebugData(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	env, err := svc.DebugData(context.Background())
	require.NoError(t, err)
	data := dataMap(t, env)
	assert.Equal(t, []any{int64(195), int64(6)}, data["data_shape"])
	assert.Len(t, data["sample"], 5)

	svc = newTestService(t, &testutil.FakeObservationRepository{}, nil)
	env, err = svc.DebugData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusError, env.Status)
	assert.Equal(t, errors.ErrCodeEmptyData.String(), env.Code)
}

func TestDebugMatrix(t *testing.T) {
	svc := newTestService(t, fixtureRepo(), nil)

	env, err := svc.DebugMatrix(context.Background())
	require.NoError(t, err)
	data := dataMap(t, env)
	assert.Equal(t, int64(195), data["raw_rows"])
	assert.Equal(t, int64(96), data["clean_rows"])
	assert.Equal(t, []any{int64(24), int64(4)}, data["matrix_shape"])
	assert.Equal(t, int64(0), data["imputed_cells"])
	assert.Len(t, data["sample_countries"], 3)
}

//Personal.AI order the ending
