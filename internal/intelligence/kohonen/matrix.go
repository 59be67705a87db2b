// Package kohonen turns assembled observations into a standardized
// countries × indicators matrix, trains a self-organizing map on it and
// derives the map's quality metrics and cluster table.
package kohonen

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/turtacn/EconSOM/internal/domain/observation"
	"github.com/turtacn/EconSOM/pkg/errors"
)

// DefaultCoverage is the minimum share of non-missing cells a country row or
// an indicator column needs to stay in the matrix.
const DefaultCoverage = 0.5

// zeroVarianceEpsilon: a column whose population std falls below this
// (relative to its mean) is treated as constant and scaled by 1.
const zeroVarianceEpsilon = 1e-12

// ErrInsufficientMatrix is returned when coverage filtering leaves no rows or
// no columns.
var ErrInsufficientMatrix = errors.New(errors.ErrCodeInsufficientMatrix, "insufficient data for SOM analysis")

// MatrixOptions configures BuildMatrix.
type MatrixOptions struct {
	RowCoverage    float64
	ColumnCoverage float64
}

// DefaultMatrixOptions returns 50% thresholds for rows and columns.
func DefaultMatrixOptions() MatrixOptions {
	return MatrixOptions{RowCoverage: DefaultCoverage, ColumnCoverage: DefaultCoverage}
}

// Matrix is the pivoted and standardized training input.  Rows follow
// Countries and columns follow Indicators, both sorted alphabetically.
type Matrix struct {
	Countries  []string
	Indicators []string

	// Raw holds pivoted values after imputation, before standardization.
	Raw [][]float64
	// Observed is true where Raw came from data rather than imputation.
	Observed [][]bool
	// Standardized is the zero-mean, unit-variance training matrix.
	Standardized [][]float64

	// Means and Stds are the per-column scaler parameters.  A zero-variance
	// column has Std 1.
	Means []float64
	Stds  []float64

	DroppedCountries  []string
	DroppedIndicators []string
}

// Rows returns the number of countries.
func (m *Matrix) Rows() int { return len(m.Countries) }

// Cols returns the number of indicators.
func (m *Matrix) Cols() int { return len(m.Indicators) }

// ImputedCells counts the cells filled with a column mean.
func (m *Matrix) ImputedCells() int {
	n := 0
	for _, row := range m.Observed {
		for _, ok := range row {
			if !ok {
				n++
			}
		}
	}
	return n
}

// BuildMatrix pivots observations into countries × indicators (mean of
// colliding cells), drops rows then columns below the coverage thresholds,
// imputes the remaining gaps with the column mean of the reduced table and
// standardizes every column with the population standard deviation.
func BuildMatrix(obs []observation.CleanObservation, opts MatrixOptions) (*Matrix, error) {
	if opts.RowCoverage < 0 || opts.RowCoverage > 1 || opts.ColumnCoverage < 0 || opts.ColumnCoverage > 1 {
		return nil, errors.InvalidParam(fmt.Sprintf("coverage thresholds must be within [0,1], got rows=%v columns=%v",
			opts.RowCoverage, opts.ColumnCoverage))
	}
	if len(obs) == 0 {
		return nil, ErrInsufficientMatrix.WithDetail("no observations to pivot")
	}

	countries, indicators := axes(obs)
	ci := index(countries)
	ii := index(indicators)

	sums := newGrid(len(countries), len(indicators))
	counts := make([][]int, len(countries))
	for r := range counts {
		counts[r] = make([]int, len(indicators))
	}
	for _, o := range obs {
		r, c := ci[o.Country], ii[o.IndicatorName]
		sums[r][c] += o.Value
		counts[r][c]++
	}

	// Row coverage over all indicators.
	var keptRows []int
	var droppedCountries []string
	for r := range countries {
		present := 0
		for c := range indicators {
			if counts[r][c] > 0 {
				present++
			}
		}
		if float64(present)/float64(len(indicators)) >= opts.RowCoverage {
			keptRows = append(keptRows, r)
		} else {
			droppedCountries = append(droppedCountries, countries[r])
		}
	}
	if len(keptRows) == 0 {
		return nil, ErrInsufficientMatrix.WithDetail("no country meets the row coverage threshold")
	}

	// Column coverage over the remaining countries.  A column with no
	// observed value cannot be imputed and is dropped at any threshold.
	var keptCols []int
	var droppedIndicators []string
	for c := range indicators {
		present := 0
		for _, r := range keptRows {
			if counts[r][c] > 0 {
				present++
			}
		}
		if present > 0 && float64(present)/float64(len(keptRows)) >= opts.ColumnCoverage {
			keptCols = append(keptCols, c)
		} else {
			droppedIndicators = append(droppedIndicators, indicators[c])
		}
	}
	if len(keptCols) == 0 {
		return nil, ErrInsufficientMatrix.WithDetail("no indicator meets the column coverage threshold")
	}

	m := &Matrix{
		Countries:         pick(countries, keptRows),
		Indicators:        pick(indicators, keptCols),
		Raw:               newGrid(len(keptRows), len(keptCols)),
		Observed:          make([][]bool, len(keptRows)),
		Standardized:      newGrid(len(keptRows), len(keptCols)),
		Means:             make([]float64, len(keptCols)),
		Stds:              make([]float64, len(keptCols)),
		DroppedCountries:  droppedCountries,
		DroppedIndicators: droppedIndicators,
	}
	for i, r := range keptRows {
		m.Observed[i] = make([]bool, len(keptCols))
		for j, c := range keptCols {
			if counts[r][c] > 0 {
				m.Raw[i][j] = sums[r][c] / float64(counts[r][c])
				m.Observed[i][j] = true
			}
		}
	}

	// Impute from observed cells of the reduced table only.
	for j := range keptCols {
		var observed []float64
		for i := range keptRows {
			if m.Observed[i][j] {
				observed = append(observed, m.Raw[i][j])
			}
		}
		fill := stat.Mean(observed, nil)
		for i := range keptRows {
			if !m.Observed[i][j] {
				m.Raw[i][j] = fill
			}
		}
	}

	col := make([]float64, len(keptRows))
	for j := range keptCols {
		for i := range keptRows {
			col[i] = m.Raw[i][j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if !(std >= zeroVarianceEpsilon*math.Max(1, math.Abs(mean))) {
			std = 1
		}
		m.Means[j], m.Stds[j] = mean, std
		for i := range keptRows {
			z := (m.Raw[i][j] - mean) / std
			if math.IsNaN(z) || math.IsInf(z, 0) {
				return nil, errors.New(errors.ErrCodeSerialization, "standardization produced a non-finite value").
					WithDetail(fmt.Sprintf("country=%s indicator=%s", m.Countries[i], m.Indicators[j]))
			}
			m.Standardized[i][j] = z
		}
	}

	return m, nil
}

func axes(obs []observation.CleanObservation) (countries, indicators []string) {
	cs := make(map[string]struct{})
	is := make(map[string]struct{})
	for _, o := range obs {
		cs[o.Country] = struct{}{}
		is[o.IndicatorName] = struct{}{}
	}
	for c := range cs {
		countries = append(countries, c)
	}
	for i := range is {
		indicators = append(indicators, i)
	}
	sort.Strings(countries)
	sort.Strings(indicators)
	return countries, indicators
}

func index(names []string) map[string]int {
	out := make(map[string]int, len(names))
	for i, n := range names {
		out[n] = i
	}
	return out
}

func pick(names []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, k := range idx {
		out[i] = names[k]
	}
	return out
}

func newGrid(rows, cols int) [][]float64 {
	g := make([][]float64, rows)
	for i := range g {
		g[i] = make([]float64, cols)
	}
	return g
}

//Personal.AI order the ending
