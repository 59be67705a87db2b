package analysis

import (
	"fmt"
	"time"

	"github.com/turtacn/EconSOM/internal/domain/observation"
	"github.com/turtacn/EconSOM/internal/intelligence/kohonen"
	"github.com/turtacn/EconSOM/pkg/errors"
)

// Profile selects how much of the analysis a response carries.
type Profile string

const (
	// ProfileFull trains the default 6x6 map and returns every section.
	ProfileFull Profile = "full"
	// ProfileMinimal trains a 4x4 map for 100 iterations and returns the
	// summary plus a sample of countries and indicators.
	ProfileMinimal Profile = "minimal"
)

// Valid reports whether p is a known profile.
func (p Profile) Valid() bool { return p == ProfileFull || p == ProfileMinimal }

const (
	defaultSampleSize     = 10
	defaultMaxConcurrent  = 4
	defaultRenderCacheTTL = 10 * time.Minute
	defaultHistoryLimit   = 20
	defaultPresignExpiry  = time.Hour
	// minRetrainIterations is the lowest iteration count a retrain request
	// may ask for.
	minRetrainIterations = 100
)

// Config drives the pipeline.  Train.Rows/Cols/Iterations are the full
// profile defaults; the minimal profile overrides them.
type Config struct {
	Profile Profile

	MinYear    int
	FetchLimit int
	Dedup      observation.DedupPolicy

	Matrix kohonen.MatrixOptions
	Train  kohonen.TrainOptions

	MaxConcurrent  int
	SampleSize     int
	RenderCacheTTL time.Duration
	HistoryLimit   int
	PresignExpiry  time.Duration
}

// DefaultConfig returns the full profile with the reference parameters.
func DefaultConfig() *Config {
	return &Config{
		Profile:        ProfileFull,
		MinYear:        observation.DefaultMinYear,
		FetchLimit:     observation.DefaultFetchLimit,
		Dedup:          observation.DedupLatestLastSeen,
		Matrix:         kohonen.DefaultMatrixOptions(),
		Train:          kohonen.DefaultTrainOptions(),
		MaxConcurrent:  defaultMaxConcurrent,
		SampleSize:     defaultSampleSize,
		RenderCacheTTL: defaultRenderCacheTTL,
		HistoryLimit:   defaultHistoryLimit,
		PresignExpiry:  defaultPresignExpiry,
	}
}

// applyDefaults fills zero values.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Profile == "" {
		c.Profile = d.Profile
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = d.FetchLimit
	}
	if c.Dedup == "" {
		c.Dedup = d.Dedup
	}
	if c.Train.Rows == 0 && c.Train.Cols == 0 && c.Train.Iterations == 0 {
		c.Train = d.Train
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	if c.SampleSize <= 0 {
		c.SampleSize = d.SampleSize
	}
	if c.RenderCacheTTL <= 0 {
		c.RenderCacheTTL = d.RenderCacheTTL
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.PresignExpiry <= 0 {
		c.PresignExpiry = d.PresignExpiry
	}
}

// Validate checks the configuration once at construction.
func (c *Config) Validate() error {
	if !c.Profile.Valid() {
		return errors.ErrInvalidConfig.WithDetail(fmt.Sprintf("unknown analysis profile %q", c.Profile))
	}
	if !c.Dedup.Valid() {
		return errors.ErrInvalidConfig.WithDetail(fmt.Sprintf("unknown dedup policy %q", c.Dedup))
	}
	if c.Matrix.RowCoverage < 0 || c.Matrix.RowCoverage > 1 || c.Matrix.ColumnCoverage < 0 || c.Matrix.ColumnCoverage > 1 {
		return errors.ErrInvalidConfig.WithDetail("coverage thresholds must be within [0,1]")
	}
	if c.Train.Rows < 1 || c.Train.Cols < 1 {
		return errors.ErrInvalidConfig.WithDetail(fmt.Sprintf("invalid default grid %dx%d", c.Train.Rows, c.Train.Cols))
	}
	if c.Train.Iterations < 1 {
		return errors.ErrInvalidConfig.WithDetail("iterations must be positive")
	}
	return nil
}

// params are the per-run knobs resolved from the config, the profile and
// the request.
type params struct {
	profile    Profile
	rows       int
	cols       int
	iterations int
}

// resolve merges a request's overrides into the profile defaults.
func (c *Config) resolve(profile Profile, rows, cols, iterations int) (params, error) {
	if profile == "" {
		profile = c.Profile
	}
	if !profile.Valid() {
		return params{}, errors.New(errors.ErrCodeValidation, "unknown analysis profile").WithDetail(string(profile))
	}
	p := params{profile: profile, rows: c.Train.Rows, cols: c.Train.Cols, iterations: c.Train.Iterations}
	if profile == ProfileMinimal {
		p.rows, p.cols, p.iterations = 4, 4, 100
	}
	if rows != 0 || cols != 0 {
		if rows < 1 || cols < 1 {
			return params{}, errors.New(errors.ErrCodeInvalidGrid, "invalid grid dimensions").
				WithDetail(fmt.Sprintf("%dx%d", rows, cols))
		}
		p.rows, p.cols = rows, cols
	}
	if iterations != 0 {
		p.iterations = iterations
	}
	return p, nil
}

func (c *Config) trainOptions(p params) kohonen.TrainOptions {
	opts := c.Train
	opts.Rows, opts.Cols, opts.Iterations = p.rows, p.cols, p.iterations
	return opts
}

//Personal.AI order the ending
