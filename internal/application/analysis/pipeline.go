package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/turtacn/EconSOM/internal/domain/observation"
	"github.com/turtacn/EconSOM/internal/domain/run"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/internal/intelligence/kohonen"
	"github.com/turtacn/EconSOM/pkg/errors"
)

// runRequest is the internal form of every pipeline invocation.
type runRequest struct {
	id         string
	source     run.Source
	profile    Profile
	rows       int
	cols       int
	iterations int
}

// outcome carries whatever a run produced, up to the stage it reached.
type outcome struct {
	runID    string
	params   params
	assembly *observation.Assembly
	matrix   *kohonen.Matrix
	som      *kohonen.Map
	analysis *kohonen.Analysis
	result   *AnalysisResult
	summary  *run.Summary
}

// execute resolves parameters, runs the pipeline on request-local state and
// records the run.  The returned outcome is nil only when the parameters are
// rejected.
func (s *serviceImpl) execute(ctx context.Context, rr runRequest) (*outcome, error) {
	p, err := s.cfg.resolve(rr.profile, rr.rows, rr.cols, rr.iterations)
	if err != nil {
		return nil, err
	}
	if rr.id == "" {
		rr.id = run.NewID()
	}
	ctx = logging.ContextWithRunID(ctx, rr.id)
	log := s.logger.WithContext(ctx)

	started := time.Now()
	out := &outcome{runID: rr.id, params: p}
	err = s.pipeline(ctx, out)
	elapsed := time.Since(started)

	status := StatusSuccess
	if err != nil {
		status = StatusError
		log.Warn("analysis run failed",
			logging.String("profile", string(p.profile)),
			logging.String("code", errors.GetCode(err).String()),
			logging.Duration("elapsed", elapsed),
			logging.Err(err))
	} else {
		log.Info("analysis run completed",
			logging.String("profile", string(p.profile)),
			logging.Int("countries", out.matrix.Rows()),
			logging.Int("indicators", out.matrix.Cols()),
			logging.Float64("quantization_error", out.analysis.QuantizationError),
			logging.Float64("topographic_error", out.analysis.TopographicError),
			logging.Duration("elapsed", elapsed))
	}
	s.metrics.ObserveRun(string(p.profile), status, elapsed)

	out.summary = s.summarize(rr, out, err, started, elapsed)
	s.finish(ctx, out.summary)
	return out, err
}

func (s *serviceImpl) pipeline(ctx context.Context, out *outcome) error {
	asm, err := s.assemble(ctx)
	out.assembly = asm
	if err != nil {
		return err
	}
	trained, err := s.train(ctx, out.params, asm)
	if trained != nil {
		out.matrix, out.som, out.analysis = trained.matrix, trained.som, trained.analysis
	}
	if err != nil {
		return err
	}
	out.result = BuildResult(out.matrix, out.som, out.analysis, asm)
	return nil
}

// assemble fetches raw rows and reduces them to one clean value per pair.
func (s *serviceImpl) assemble(ctx context.Context) (*observation.Assembly, error) {
	rows, err := s.repo.FetchObservations(ctx, observation.Query{MinYear: s.cfg.MinYear, Limit: s.cfg.FetchLimit})
	if err != nil {
		return nil, err
	}
	asm, err := observation.Assemble(rows, observation.AssembleOptions{MinYear: s.cfg.MinYear, Policy: s.cfg.Dedup})
	if asm != nil {
		s.metrics.ObserveAssembly(asm.Stats.Accepted, asm.Stats.RejectedByReason)
	}
	return asm, err
}

// train builds the matrix, trains and analyzes a fresh map.  It holds one
// slot of the concurrency semaphore for its whole duration.
func (s *serviceImpl) train(ctx context.Context, p params, asm *observation.Assembly) (*outcome, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "no analysis slot available")
	}
	defer s.sem.Release(1)

	out := &outcome{params: p, assembly: asm}
	x, err := buildMatrix(asm, s.cfg)
	if err != nil {
		return out, err
	}
	out.matrix = x
	s.metrics.ObserveMatrix(x.Rows(), x.Cols(), x.ImputedCells())

	m, err := kohonen.Train(ctx, x.Standardized, s.cfg.trainOptions(p))
	if err != nil {
		return out, err
	}
	out.som = m

	a, err := kohonen.Analyze(m, x)
	if err != nil {
		return out, err
	}
	out.analysis = a
	s.metrics.ObserveQuality(a.QuantizationError, a.TopographicError)
	return out, nil
}

func buildMatrix(asm *observation.Assembly, cfg *Config) (*kohonen.Matrix, error) {
	return kohonen.BuildMatrix(asm.Observations, cfg.Matrix)
}

func (s *serviceImpl) summarize(rr runRequest, out *outcome, err error, started time.Time, elapsed time.Duration) *run.Summary {
	sum := &run.Summary{
		ID:         out.runID,
		Profile:    string(out.params.profile),
		Source:     rr.source,
		Status:     run.StatusSuccess,
		Rows:       out.params.rows,
		Cols:       out.params.cols,
		Iterations: out.params.iterations,
		Seed:       s.cfg.Train.Seed,
		StartedAt:  started.UTC(),
		DurationMS: elapsed.Milliseconds(),
	}
	if out.assembly != nil {
		sum.Fingerprint = fingerprint(out.assembly.Observations)
	}
	if out.matrix != nil {
		sum.Countries, sum.Indicators = out.matrix.Rows(), out.matrix.Cols()
	}
	if out.analysis != nil {
		sum.QuantizationError = out.analysis.QuantizationError
		sum.TopographicError = out.analysis.TopographicError
		sum.Quality = string(out.analysis.Quality)
	}
	if err != nil {
		sum.Status = run.StatusError
		sum.Code = errors.GetCode(err).String()
		sum.Message = err.Error()
	}
	return sum
}

// finish stores and announces a summary.  Failures are logged and never
// change the outcome of the run.
func (s *serviceImpl) finish(ctx context.Context, sum *run.Summary) {
	log := s.logger.WithContext(ctx)
	if err := s.history.Record(ctx, sum); err != nil {
		log.Warn("failed to record run summary", logging.Err(err))
	}
	if err := s.publisher.PublishCompleted(ctx, sum); err != nil {
		log.Warn("failed to publish run completion", logging.Err(err))
	}
}

// fingerprint hashes assembled observations.  They arrive sorted, so equal
// inputs give equal fingerprints.
func fingerprint(obs []observation.CleanObservation) string {
	h := sha256.New()
	buf := make([]byte, 0, 64)
	for _, o := range obs {
		buf = buf[:0]
		buf = append(buf, o.Country...)
		buf = append(buf, 0x1f)
		buf = append(buf, o.IndicatorName...)
		buf = append(buf, 0x1f)
		buf = strconv.AppendInt(buf, int64(o.Year), 10)
		buf = append(buf, 0x1f)
		buf = strconv.AppendFloat(buf, o.Value, 'g', -1, 64)
		buf = append(buf, '\n')
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

//Personal.AI order the ending
