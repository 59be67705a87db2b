// Package analysis is the application service around the SOM pipeline.  It
// fetches observations, runs assembly, matrix building, training and map
// analysis for every request and turns the outcome into JSON-safe
// responses, images and exported reports.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/semaphore"

	"github.com/turtacn/EconSOM/internal/domain/observation"
	"github.com/turtacn/EconSOM/internal/domain/run"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/internal/infrastructure/rendering"
	"github.com/turtacn/EconSOM/pkg/errors"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

var validate = validator.New()

// ============================================================================
// Requests
// ============================================================================

// AnalyzeRequest overrides the configured profile and grid.  Zero values
// keep the defaults.
type AnalyzeRequest struct {
	Profile    string `json:"profile" validate:"omitempty,oneof=full minimal"`
	Rows       int    `json:"rows" validate:"gte=0"`
	Cols       int    `json:"cols" validate:"gte=0"`
	Iterations int    `json:"iterations" validate:"gte=0"`
}

// Validate checks field constraints.
func (r *AnalyzeRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.InvalidParam("invalid analysis request").WithDetail(err.Error())
	}
	return nil
}

// RetrainRequest asks for a new grid and iteration count.  A missing
// MapSize or Iterations keeps the configured value; an iterations key that
// is present is always checked, 0 included.
type RetrainRequest struct {
	MapSize    []int `json:"map_size" validate:"omitempty,len=2,dive,gte=1"`
	Iterations *int  `json:"iterations" validate:"omitempty,gte=100"`
}

// Validate checks field constraints.
func (r *RetrainRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		for _, fe := range asFieldErrors(err) {
			switch {
			case strings.HasPrefix(fe.StructField(), "MapSize"):
				return errors.New(errors.ErrCodeInvalidGrid, "map_size must be a list of two integers").WithDetail(err.Error())
			case fe.StructField() == "Iterations":
				return errors.InvalidParam(fmt.Sprintf("iterations must be an integer >= %d", minRetrainIterations)).WithDetail(err.Error())
			}
		}
		return errors.InvalidParam("invalid retrain request").WithDetail(err.Error())
	}
	return nil
}

func asFieldErrors(err error) validator.ValidationErrors {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

// ============================================================================
// Service
// ============================================================================

// Service exposes the SOM pipeline.  Every call that needs a map retrains
// from freshly fetched observations.
type Service interface {
	// Analyze runs the pipeline and returns the profile's payload.
	// Pipeline outcomes (no data, insufficient matrix, training failure,
	// budget) come back as an error envelope, not as an error.
	Analyze(ctx context.Context, req *AnalyzeRequest) (*Envelope, error)
	// Clusters returns the cluster table and summary of a full run.
	Clusters(ctx context.Context) (*Envelope, error)
	// Summary returns only the summary of a full run.
	Summary(ctx context.Context) (*Envelope, error)
	// Retrain runs the pipeline with new parameters.  Nothing is kept.
	Retrain(ctx context.Context, req *RetrainRequest) (*RetrainResponse, error)
	// Render draws the distance or hit map as PNG.
	Render(ctx context.Context, kind rendering.MapKind) ([]byte, error)
	// Visualize returns Render's output as a data URI response.
	Visualize(ctx context.Context, mapType string) (*VisualizationResponse, error)
	// Execute runs a queued request and returns its summary.
	Execute(ctx context.Context, req *run.Request) (*run.Summary, error)
	// Export stores a workbook report and returns a download link.
	Export(ctx context.Context, req *AnalyzeRequest) (*ExportResult, error)
	// History lists recent run summaries, newest first.
	History(ctx context.Context, limit int) ([]*run.Summary, error)
	// Health reports data availability.
	Health(ctx context.Context) (*HealthReport, error)
	// DebugData describes the raw rows the pipeline would see.
	DebugData(ctx context.Context) (*Envelope, error)
	// DebugMatrix runs assembly and matrix building without training.
	DebugMatrix(ctx context.Context) (*Envelope, error)
}

// Option configures optional collaborators.
type Option func(*serviceImpl)

// WithCache memoizes rendered images.
func WithCache(c Cache) Option { return func(s *serviceImpl) { s.cache = c } }

// WithHistory records run summaries.
func WithHistory(h run.History) Option { return func(s *serviceImpl) { s.history = h } }

// WithPublisher announces finished runs.
func WithPublisher(p run.Publisher) Option { return func(s *serviceImpl) { s.publisher = p } }

// WithArtifactStore enables exports.
func WithArtifactStore(a ArtifactStore) Option { return func(s *serviceImpl) { s.artifacts = a } }

// WithWorkbookWriter sets the export format writer.
func WithWorkbookWriter(w WorkbookWriter) Option { return func(s *serviceImpl) { s.workbook = w } }

// WithMetrics records pipeline telemetry.
func WithMetrics(m Metrics) Option { return func(s *serviceImpl) { s.metrics = m } }

type serviceImpl struct {
	repo      observation.Repository
	logger    logging.Logger
	cfg       *Config
	sem       *semaphore.Weighted
	cache     Cache
	history   run.History
	publisher run.Publisher
	artifacts ArtifactStore
	workbook  WorkbookWriter
	metrics   Metrics
}

// NewService validates cfg and wires the service.  A nil cfg uses
// DefaultConfig.
func NewService(repo observation.Repository, logger logging.Logger, cfg *Config, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, errors.ErrInvalidConfig.WithDetail("observation repository is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		repo:      repo,
		logger:    logger.Named("analysis"),
		cfg:       cfg,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		cache:     passthroughCache{},
		history:   noopHistory{},
		publisher: noopPublisher{},
		metrics:   noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Analyze / Clusters / Summary
// ---------------------------------------------------------------------------

func (s *serviceImpl) Analyze(ctx context.Context, req *AnalyzeRequest) (*Envelope, error) {
	if req == nil {
		req = &AnalyzeRequest{}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	out, err := s.execute(ctx, runRequest{
		source:     run.SourceHTTP,
		profile:    Profile(req.Profile),
		rows:       req.Rows,
		cols:       req.Cols,
		iterations: req.Iterations,
	})
	if err != nil {
		return s.outcomeEnvelope(out, err)
	}
	if out.params.profile == ProfileMinimal {
		return successEnvelope(out.runID, BuildMinimal(out.result, s.cfg.SampleSize))
	}
	return successEnvelope(out.runID, out.result)
}

func (s *serviceImpl) Clusters(ctx context.Context) (*Envelope, error) {
	out, err := s.execute(ctx, runRequest{source: run.SourceHTTP, profile: ProfileFull})
	if err != nil {
		return s.outcomeEnvelope(out, err)
	}
	return successEnvelope(out.runID, struct {
		Clusters     map[string][]ClusterMember `json:"clusters"`
		ClusterStats map[string]ClusterStats    `json:"cluster_stats"`
		Summary      Summary                    `json:"summary"`
	}{out.result.Clusters, out.result.ClusterStats, out.result.Summary})
}

func (s *serviceImpl) Summary(ctx context.Context) (*Envelope, error) {
	out, err := s.execute(ctx, runRequest{source: run.SourceHTTP, profile: ProfileFull})
	if err != nil {
		return s.outcomeEnvelope(out, err)
	}
	return successEnvelope(out.runID, out.result.Summary)
}

// outcomeEnvelope turns pipeline outcomes into an error envelope and passes
// every other error through.
func (s *serviceImpl) outcomeEnvelope(out *outcome, err error) (*Envelope, error) {
	if !errors.IsPipelineOutcome(errors.GetCode(err)) {
		return nil, err
	}
	env := ErrorEnvelope(err)
	if out != nil {
		env.RunID = out.runID
	}
	return env, nil
}

// ---------------------------------------------------------------------------
// Retrain
// ---------------------------------------------------------------------------

func (s *serviceImpl) Retrain(ctx context.Context, req *RetrainRequest) (*RetrainResponse, error) {
	if req == nil {
		req = &RetrainRequest{}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rr := runRequest{source: run.SourceHTTP, profile: ProfileFull}
	if req.Iterations != nil {
		rr.iterations = *req.Iterations
	}
	if len(req.MapSize) == 2 {
		rr.rows, rr.cols = req.MapSize[0], req.MapSize[1]
	}

	out, err := s.execute(ctx, rr)
	if err != nil {
		env, err := s.outcomeEnvelope(out, err)
		if err != nil {
			return nil, err
		}
		return &RetrainResponse{Status: env.Status, Message: env.Message, Code: env.Code, Details: env.Details, RunID: env.RunID}, nil
	}
	return &RetrainResponse{
		Status:  StatusSuccess,
		Message: "SOM retrained successfully",
		RunID:   out.runID,
		NewParameters: &RetrainParameters{
			MapSize:    [2]int{out.params.rows, out.params.cols},
			Iterations: out.params.iterations,
		},
		Quality: string(out.analysis.Quality),
	}, nil
}

// ---------------------------------------------------------------------------
// Render / Visualize
// ---------------------------------------------------------------------------

func (s *serviceImpl) Render(ctx context.Context, kind rendering.MapKind) ([]byte, error) {
	if _, err := rendering.ParseMapKind(string(kind)); err != nil {
		return nil, err
	}
	p, err := s.cfg.resolve(ProfileFull, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	asm, err := s.assemble(ctx)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("render:%s:%s:%dx%d:%d:%d", kind, fingerprint(asm.Observations), p.rows, p.cols, p.iterations, s.cfg.Train.Seed)
	var png []byte
	err = s.cache.GetOrSet(ctx, key, &png, s.cfg.RenderCacheTTL, func(ctx context.Context) (interface{}, error) {
		out, err := s.train(ctx, p, asm)
		if err != nil {
			return nil, err
		}
		s.metrics.IncRender(string(kind))
		return rendering.Render(kind, gridFor(kind, out))
	})
	if err != nil {
		return nil, err
	}
	return png, nil
}

func (s *serviceImpl) Visualize(ctx context.Context, mapType string) (*VisualizationResponse, error) {
	kind, err := rendering.ParseMapKind(mapType)
	if err != nil {
		return nil, err
	}
	png, err := s.Render(ctx, kind)
	if err != nil {
		if errors.IsPipelineOutcome(errors.GetCode(err)) {
			env := ErrorEnvelope(err)
			return &VisualizationResponse{Status: StatusError, Message: env.Message, Code: env.Code}, nil
		}
		return nil, err
	}
	return &VisualizationResponse{Status: StatusSuccess, Image: rendering.EncodeDataURI(png)}, nil
}

func gridFor(kind rendering.MapKind, out *outcome) [][]float64 {
	if kind == rendering.KindHit {
		return rendering.IntGrid(out.analysis.HitMap)
	}
	return out.analysis.DistanceMap
}

// ---------------------------------------------------------------------------
// Execute (queued runs)
// ---------------------------------------------------------------------------

func (s *serviceImpl) Execute(ctx context.Context, req *run.Request) (*run.Summary, error) {
	if req == nil {
		return nil, errors.InvalidParam("run request is required")
	}
	source := req.Source
	if source == "" {
		source = run.SourceWorker
	}
	out, err := s.execute(ctx, runRequest{
		id:         req.ID,
		source:     source,
		profile:    Profile(req.Profile),
		rows:       req.Rows,
		cols:       req.Cols,
		iterations: req.Iterations,
	})
	if out != nil && out.summary != nil && (err == nil || errors.IsPipelineOutcome(errors.GetCode(err))) {
		return out.summary, nil
	}
	return nil, err
}

// ---------------------------------------------------------------------------
// Export / History
// ---------------------------------------------------------------------------

func (s *serviceImpl) Export(ctx context.Context, req *AnalyzeRequest) (*ExportResult, error) {
	if s.artifacts == nil || s.workbook == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "export is not configured")
	}
	if req == nil {
		req = &AnalyzeRequest{}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	out, err := s.execute(ctx, runRequest{
		source:     run.SourceHTTP,
		profile:    ProfileFull,
		rows:       req.Rows,
		cols:       req.Cols,
		iterations: req.Iterations,
	})
	if err != nil {
		s.metrics.IncExport(StatusError)
		return nil, err
	}

	report := &Report{
		RunID:       out.runID,
		GeneratedAt: time.Now().UTC(),
		Profile:     out.params.profile,
		Seed:        s.cfg.Train.Seed,
		Result:      out.result,
	}
	book, err := s.workbook.WriteWorkbook(report)
	if err != nil {
		s.metrics.IncExport(StatusError)
		return nil, errors.Wrap(err, errors.ErrCodeExportFailed, "failed to build workbook")
	}

	key := fmt.Sprintf("exports/%s.xlsx", out.runID)
	if err := s.artifacts.PutArtifact(ctx, key, book, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
		s.metrics.IncExport(StatusError)
		return nil, err
	}
	for _, kind := range []rendering.MapKind{rendering.KindDistance, rendering.KindHit} {
		png, err := rendering.Render(kind, gridFor(kind, out))
		if err != nil {
			s.logger.Warn("skipping map image in export", logging.String("kind", string(kind)), logging.Err(err))
			continue
		}
		imgKey := fmt.Sprintf("renders/%s/%s.png", out.runID, kind)
		if err := s.artifacts.PutArtifact(ctx, imgKey, png, "image/png"); err != nil {
			s.logger.Warn("failed to store map image", logging.String("key", imgKey), logging.Err(err))
		}
	}

	url, err := s.artifacts.PresignedURL(ctx, key, s.cfg.PresignExpiry)
	if err != nil {
		s.metrics.IncExport(StatusError)
		return nil, err
	}
	s.metrics.IncExport(StatusSuccess)
	return &ExportResult{
		Status:    StatusSuccess,
		RunID:     out.runID,
		Key:       key,
		URL:       url,
		Size:      len(book),
		ExpiresAt: report.GeneratedAt.Add(s.cfg.PresignExpiry),
	}, nil
}

func (s *serviceImpl) History(ctx context.Context, limit int) ([]*run.Summary, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.history.Recent(ctx, limit)
}

// ---------------------------------------------------------------------------
// Health / diagnostics
// ---------------------------------------------------------------------------

func (s *serviceImpl) Health(ctx context.Context) (*HealthReport, error) {
	n, err := s.repo.CountObservations(ctx, observation.Query{MinYear: s.cfg.MinYear})
	if err != nil {
		return nil, err
	}
	return &HealthReport{
		Status:        "healthy",
		Service:       "kohonen",
		DataAvailable: n > 0,
		DataCount:     n,
		Version:       Version,
	}, nil
}

// debugSampleRows and debugSampleAxes size the diagnostic samples.
const (
	debugSampleRows = 5
	debugSampleAxes = 3
)

var observationColumns = []string{"country", "indicator_name", "category", "value", "year", "unit"}

func (s *serviceImpl) DebugData(ctx context.Context) (*Envelope, error) {
	rows, err := s.repo.FetchObservations(ctx, observation.Query{MinYear: s.cfg.MinYear, Limit: s.cfg.FetchLimit})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return ErrorEnvelope(observation.ErrEmptyData.WithDetail("data source returned no rows")), nil
	}
	sample := rows
	if len(sample) > debugSampleRows {
		sample = sample[:debugSampleRows]
	}
	return successEnvelope("", struct {
		Shape   [2]int                    `json:"data_shape"`
		Columns []string                  `json:"columns"`
		Sample  []observation.Observation `json:"sample"`
	}{[2]int{len(rows), len(observationColumns)}, observationColumns, sample})
}

func (s *serviceImpl) DebugMatrix(ctx context.Context) (*Envelope, error) {
	rows, err := s.repo.FetchObservations(ctx, observation.Query{MinYear: s.cfg.MinYear, Limit: s.cfg.FetchLimit})
	if err != nil {
		return nil, err
	}
	asm, err := observation.Assemble(rows, observation.AssembleOptions{MinYear: s.cfg.MinYear, Policy: s.cfg.Dedup})
	if err != nil {
		return s.outcomeEnvelope(nil, err)
	}
	x, err := buildMatrix(asm, s.cfg)
	if err != nil {
		return s.outcomeEnvelope(nil, err)
	}
	return successEnvelope("", struct {
		RawRows           int                       `json:"raw_rows"`
		CleanRows         int                       `json:"clean_rows"`
		Countries         int                       `json:"countries"`
		Indicators        int                       `json:"indicators"`
		MatrixShape       [2]int                    `json:"matrix_shape"`
		ImputedCells      int                       `json:"imputed_cells"`
		SampleCountries   []string                  `json:"sample_countries"`
		SampleIndicators  []string                  `json:"sample_indicators"`
		DroppedCountries  []string                  `json:"dropped_countries"`
		DroppedIndicators []string                  `json:"dropped_indicators"`
		Assembly          observation.AssemblyStats `json:"assembly"`
	}{
		RawRows:           len(rows),
		CleanRows:         len(asm.Observations),
		Countries:         asm.Countries,
		Indicators:        asm.Indicators,
		MatrixShape:       [2]int{x.Rows(), x.Cols()},
		ImputedCells:      x.ImputedCells(),
		SampleCountries:   head(x.Countries, debugSampleAxes),
		SampleIndicators:  head(x.Indicators, debugSampleAxes),
		DroppedCountries:  x.DroppedCountries,
		DroppedIndicators: x.DroppedIndicators,
		Assembly:          asm.Stats,
	})
}

//Personal.AI order the ending
