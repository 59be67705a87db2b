package kohonen

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/turtacn/EconSOM/pkg/errors"
)

// neighborOffsets is the 8-neighborhood of a rectangular grid cell, used for
// the U-matrix.
var neighborOffsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Assignment places one country on its best matching unit.
type Assignment struct {
	Country   string
	Row       int
	Col       int
	ClusterID int
	// Distance is the Euclidean distance to the BMU prototype.
	Distance float64
}

// Cluster is a non-empty grid cell and the countries mapped to it.
type Cluster struct {
	ID        int
	Row       int
	Col       int
	Countries []string
	// Members indexes the matrix rows of Countries.
	Members []int
	// AvgIndicators is the per-indicator mean of the members' observed raw
	// values.  Imputed cells are left out; an indicator without any
	// observed member value maps to nil.
	AvgIndicators map[string]*float64
}

// Key returns the "row_col" cluster key.
func (c Cluster) Key() string { return fmt.Sprintf("%d_%d", c.Row, c.Col) }

// Size returns the number of member countries.
func (c Cluster) Size() int { return len(c.Countries) }

// Analysis holds everything derived from a trained map and its input.
type Analysis struct {
	// DistanceMap[r][c] is the mean distance from cell (r, c) to its grid
	// neighbours' prototypes.
	DistanceMap [][]float64
	// HitMap[r][c] counts the rows whose BMU is (r, c).
	HitMap [][]int

	QuantizationError float64
	TopographicError  float64
	Quality           Quality

	// Assignments follows the matrix row order.
	Assignments []Assignment
	// Clusters holds the non-empty cells ordered by cluster id.
	Clusters []Cluster
}

// ClusterID returns the row-major id of cell (row, col) on a grid with cols
// columns.
func ClusterID(row, col, cols int) int { return row*cols + col }

// Analyze computes the U-matrix, hit map, quantization and topographic errors
// and the cluster table of m over x.
func Analyze(m *Map, x *Matrix) (*Analysis, error) {
	if m == nil || x == nil {
		return nil, errors.New(errors.ErrCodeTrainingFailed, "no trained map to analyze")
	}
	if x.Cols() != m.Dim {
		return nil, errors.New(errors.ErrCodeTrainingFailed, "map does not match matrix").
			WithDetail(fmt.Sprintf("map dimension %d, matrix has %d indicators", m.Dim, x.Cols()))
	}

	a := &Analysis{
		DistanceMap: distanceMap(m),
		HitMap:      make([][]int, m.Rows),
		Assignments: make([]Assignment, x.Rows()),
	}
	for r := range a.HitMap {
		a.HitMap[r] = make([]int, m.Cols)
	}

	members := make(map[int][]int)
	var qeSum float64
	topoErrors := 0
	for i, row := range x.Standardized {
		bmu, d := m.BMU(row)
		r, c := m.Position(bmu)
		a.HitMap[r][c]++
		qeSum += d
		a.Assignments[i] = Assignment{
			Country:   x.Countries[i],
			Row:       r,
			Col:       c,
			ClusterID: ClusterID(r, c, m.Cols),
			Distance:  d,
		}
		members[bmu] = append(members[bmu], i)

		if second, ok := secondBMU(m, row, bmu); ok {
			sr, sc := m.Position(second)
			if abs(r-sr)+abs(c-sc) != 1 {
				topoErrors++
			}
		}
	}
	if n := x.Rows(); n > 0 {
		a.QuantizationError = qeSum / float64(n)
		a.TopographicError = float64(topoErrors) / float64(n)
	}
	a.Quality = ClassifyQuality(a.QuantizationError, a.TopographicError)

	for cell := 0; cell < m.Cells(); cell++ {
		idx, ok := members[cell]
		if !ok {
			continue
		}
		r, c := m.Position(cell)
		cl := Cluster{
			ID:            cell,
			Row:           r,
			Col:           c,
			Members:       idx,
			Countries:     make([]string, len(idx)),
			AvgIndicators: make(map[string]*float64, x.Cols()),
		}
		for k, i := range idx {
			cl.Countries[k] = x.Countries[i]
		}
		for j, name := range x.Indicators {
			var sum float64
			n := 0
			for _, i := range idx {
				if x.Observed[i][j] {
					sum += x.Raw[i][j]
					n++
				}
			}
			if n == 0 {
				cl.AvgIndicators[name] = nil
				continue
			}
			avg := sum / float64(n)
			cl.AvgIndicators[name] = &avg
		}
		a.Clusters = append(a.Clusters, cl)
	}

	return a, nil
}

// secondBMU returns the nearest cell other than bmu; ties resolve to the
// lowest row-major index.  A single-cell map has no second unit.
func secondBMU(m *Map, x []float64, bmu int) (int, bool) {
	best, bestD := -1, math.Inf(1)
	for i := 0; i < m.Cells(); i++ {
		if i == bmu {
			continue
		}
		if d := sqDist(x, m.unit(i)); d < bestD {
			best, bestD = i, d
		}
	}
	return best, best >= 0
}

func distanceMap(m *Map) [][]float64 {
	out := make([][]float64, m.Rows)
	for r := 0; r < m.Rows; r++ {
		out[r] = make([]float64, m.Cols)
		for c := 0; c < m.Cols; c++ {
			w := m.Weight(r, c)
			var sum float64
			n := 0
			for _, off := range neighborOffsets {
				nr, nc := r+off[0], c+off[1]
				if nr < 0 || nr >= m.Rows || nc < 0 || nc >= m.Cols {
					continue
				}
				sum += floats.Distance(w, m.Weight(nr, nc), 2)
				n++
			}
			if n > 0 {
				out[r][c] = sum / float64(n)
			}
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

//Personal.AI order the ending
