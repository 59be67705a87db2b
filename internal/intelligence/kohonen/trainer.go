package kohonen

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/turtacn/EconSOM/pkg/errors"
)

// Selection decides which input row feeds each training step.
type Selection string

const (
	// SelectCyclic feeds rows in order, wrapping around.
	SelectCyclic Selection = "cyclic"
	// SelectRandom draws rows from the seeded generator.
	SelectRandom Selection = "random"
)

// budgetCheckInterval is the number of steps between wall-clock and context
// checks.
const budgetCheckInterval = 64

var (
	// ErrCannotTrain is returned for an empty training matrix.
	ErrCannotTrain = errors.New(errors.ErrCodeTrainingFailed, "cannot train SOM on an empty matrix")
	// ErrBudgetExceeded is returned when training hits the iteration cap or
	// the wall-clock budget.
	ErrBudgetExceeded = errors.New(errors.ErrCodeBudgetExceeded, "training exceeded budget")
)

// TrainOptions configures Train.
type TrainOptions struct {
	Rows       int
	Cols       int
	Iterations int
	Seed       int64

	// Sigma is the initial neighborhood radius in grid units.
	Sigma float64
	// LearningRate is the initial learning rate.
	LearningRate float64
	// DecayFloor is the fraction of Sigma and LearningRate left at the
	// final step.  Both decay exponentially towards it.
	DecayFloor float64

	Selection Selection

	// MaxIterations rejects requests above the cap; 0 disables it.
	MaxIterations int
	// TimeBudget aborts training after this wall-clock duration; 0 disables it.
	TimeBudget time.Duration
}

// DefaultTrainOptions returns a 6x6 grid, 500 iterations and seed 42.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Rows:          6,
		Cols:          6,
		Iterations:    500,
		Seed:          42,
		Sigma:         1.0,
		LearningRate:  0.5,
		DecayFloor:    0.01,
		Selection:     SelectCyclic,
		MaxIterations: 100000,
	}
}

// Map is a trained grid of prototype vectors.  Weights is row-major: the
// vector of cell (r, c) starts at (r*Cols+c)*Dim.
type Map struct {
	Rows       int
	Cols       int
	Dim        int
	Weights    []float64
	Iterations int
	Seed       int64
}

// Cells returns Rows*Cols.
func (m *Map) Cells() int { return m.Rows * m.Cols }

// Weight returns the prototype of cell (r, c) as a view into Weights.
func (m *Map) Weight(r, c int) []float64 {
	return m.unit(r*m.Cols + c)
}

func (m *Map) unit(i int) []float64 {
	off := i * m.Dim
	return m.Weights[off : off+m.Dim : off+m.Dim]
}

// BMU returns the row-major index of the cell nearest to x (Euclidean) and
// the distance to it.  Ties resolve to the lowest index.
func (m *Map) BMU(x []float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for i := 0; i < m.Cells(); i++ {
		if d := sqDist(x, m.unit(i)); d < bestD {
			best, bestD = i, d
		}
	}
	return best, math.Sqrt(bestD)
}

// Position converts a row-major cell index to grid coordinates.
func (m *Map) Position(i int) (row, col int) {
	return i / m.Cols, i % m.Cols
}

func sqDist(a, b []float64) float64 {
	var s float64
	for k := range a {
		d := a[k] - b[k]
		s += d * d
	}
	return s
}

func (o TrainOptions) validate(rows, dim int) error {
	if rows == 0 || dim == 0 {
		return ErrCannotTrain.WithDetail(fmt.Sprintf("matrix is %dx%d", rows, dim))
	}
	if o.Rows < 1 || o.Cols < 1 {
		return errors.New(errors.ErrCodeTrainingFailed, "failed to train SOM").
			WithDetail(fmt.Sprintf("invalid grid dimensions %dx%d", o.Rows, o.Cols))
	}
	if o.Iterations < 1 {
		return errors.New(errors.ErrCodeTrainingFailed, "failed to train SOM").
			WithDetail(fmt.Sprintf("iterations must be positive, got %d", o.Iterations))
	}
	if o.Sigma <= 0 || o.LearningRate <= 0 {
		return errors.New(errors.ErrCodeTrainingFailed, "failed to train SOM").
			WithDetail("sigma and learning rate must be positive")
	}
	if o.DecayFloor <= 0 || o.DecayFloor > 1 {
		return errors.New(errors.ErrCodeTrainingFailed, "failed to train SOM").
			WithDetail(fmt.Sprintf("decay floor must be within (0,1], got %v", o.DecayFloor))
	}
	if o.Selection != SelectCyclic && o.Selection != SelectRandom {
		return errors.New(errors.ErrCodeTrainingFailed, "failed to train SOM").
			WithDetail(fmt.Sprintf("unknown row selection %q", o.Selection))
	}
	if o.MaxIterations > 0 && o.Iterations > o.MaxIterations {
		return ErrBudgetExceeded.WithDetail(fmt.Sprintf("%d iterations requested, cap is %d", o.Iterations, o.MaxIterations))
	}
	return nil
}

// Train runs sequential competitive learning over data.  Identical data,
// options and seed produce bit-identical weights.
func Train(ctx context.Context, data [][]float64, opts TrainOptions) (*Map, error) {
	dim := 0
	if len(data) > 0 {
		dim = len(data[0])
	}
	if err := opts.validate(len(data), dim); err != nil {
		return nil, err
	}
	for i, row := range data {
		if len(row) != dim {
			return nil, errors.New(errors.ErrCodeTrainingFailed, "failed to train SOM").
				WithDetail(fmt.Sprintf("row %d has %d columns, expected %d", i, len(row), dim))
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	m := &Map{
		Rows:       opts.Rows,
		Cols:       opts.Cols,
		Dim:        dim,
		Weights:    make([]float64, opts.Rows*opts.Cols*dim),
		Iterations: opts.Iterations,
		Seed:       opts.Seed,
	}
	// Uniform [-1, 1) then unit length per prototype.
	for i := 0; i < m.Cells(); i++ {
		w := m.unit(i)
		var norm float64
		for k := range w {
			w[k] = rng.Float64()*2 - 1
			norm += w[k] * w[k]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range w {
				w[k] /= norm
			}
		}
	}

	start := time.Now()
	last := float64(opts.Iterations - 1)
	if last < 1 {
		last = 1
	}
	for t := 0; t < opts.Iterations; t++ {
		if t%budgetCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				if err == context.DeadlineExceeded {
					return nil, ErrBudgetExceeded.WithCause(err).WithDetail(fmt.Sprintf("deadline reached at step %d", t))
				}
				return nil, errors.Wrap(err, errors.ErrCodeTimeout, "training cancelled")
			}
			if opts.TimeBudget > 0 && time.Since(start) > opts.TimeBudget {
				return nil, ErrBudgetExceeded.WithDetail(fmt.Sprintf("time budget %s exhausted at step %d", opts.TimeBudget, t))
			}
		}

		var x []float64
		if opts.Selection == SelectRandom {
			x = data[rng.Intn(len(data))]
		} else {
			x = data[t%len(data)]
		}

		decay := math.Pow(opts.DecayFloor, float64(t)/last)
		lr := opts.LearningRate * decay
		sigma := opts.Sigma * decay
		m.update(x, lr, sigma)
	}

	return m, nil
}

// update pulls every prototype towards x with a Gaussian neighborhood
// centred on the BMU.
func (m *Map) update(x []float64, lr, sigma float64) {
	bmu, _ := m.BMU(x)
	br, bc := m.Position(bmu)
	twoSigmaSq := 2 * sigma * sigma
	for i := 0; i < m.Cells(); i++ {
		r, c := m.Position(i)
		dr, dc := float64(r-br), float64(c-bc)
		h := math.Exp(-(dr*dr + dc*dc) / twoSigmaSq)
		if h < 1e-12 {
			continue
		}
		step := lr * h
		w := m.unit(i)
		for k := range w {
			w[k] += step * (x[k] - w[k])
		}
	}
}

// Clone returns a deep copy of the map.
func (m *Map) Clone() *Map {
	c := *m
	c.Weights = append([]float64(nil), m.Weights...)
	return &c
}

//Personal.AI order the ending
