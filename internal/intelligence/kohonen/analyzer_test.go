package kohonen

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrixFrom(rows [][]float64) *Matrix {
	m := &Matrix{
		Raw:          rows,
		Standardized: rows,
		Observed:     make([][]bool, len(rows)),
	}
	for i := range rows {
		m.Countries = append(m.Countries, fmt.Sprintf("C%02d", i))
		m.Observed[i] = make([]bool, len(rows[i]))
		for j := range rows[i] {
			m.Observed[i][j] = true
		}
	}
	for j := range rows[0] {
		m.Indicators = append(m.Indicators, fmt.Sprintf("I%d", j))
	}
	return m
}

func TestAnalyze_FiveByFiveTwentyRows(t *testing.T) {
	x := matrixFrom(syntheticRows(20, 3, 42))
	sm, err := Train(context.Background(), x.Standardized, gridOptions(5, 5, 500))
	require.NoError(t, err)

	a, err := Analyze(sm, x)
	require.NoError(t, err)

	total := 0
	for _, row := range a.HitMap {
		require.Len(t, row, 5)
		for _, h := range row {
			total += h
		}
	}
	assert.Equal(t, 20, total)

	assert.GreaterOrEqual(t, a.QuantizationError, 0.0)
	assert.GreaterOrEqual(t, a.TopographicError, 0.0)
	assert.LessOrEqual(t, a.TopographicError, 1.0)
	assert.Equal(t, ClassifyQuality(a.QuantizationError, a.TopographicError), a.Quality)

	require.Len(t, a.DistanceMap, 5)
	for _, row := range a.DistanceMap {
		for _, d := range row {
			assert.False(t, math.IsNaN(d))
			assert.GreaterOrEqual(t, d, 0.0)
		}
	}

	require.Len(t, a.Assignments, 20)
	members := 0
	for _, cl := range a.Clusters {
		assert.Equal(t, a.HitMap[cl.Row][cl.Col], cl.Size())
		assert.Equal(t, ClusterID(cl.Row, cl.Col, 5), cl.ID)
		members += cl.Size()
	}
	assert.Equal(t, 20, members)
	for _, as := range a.Assignments {
		assert.Equal(t, as.Row*5+as.Col, as.ClusterID)
	}
}

func TestAnalyze_SingleCellGrid(t *testing.T) {
	x := matrixFrom([][]float64{{0}})
	sm, err := Train(context.Background(), x.Standardized, gridOptions(1, 1, 10))
	require.NoError(t, err)

	a, err := Analyze(sm, x)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0}}, a.DistanceMap)
	assert.Equal(t, [][]int{{1}}, a.HitMap)
	assert.Equal(t, 0.0, a.TopographicError)
	require.Len(t, a.Clusters, 1)
	assert.Equal(t, "0_0", a.Clusters[0].Key())
}

func TestAnalyze_ClusterAveragesSkipImputedCells(t *testing.T) {
	sm := &Map{Rows: 1, Cols: 2, Dim: 2, Weights: []float64{0, 0, 10, 10}}
	x := &Matrix{
		Countries:    []string{"A", "B", "C"},
		Indicators:   []string{"x", "y"},
		Standardized: [][]float64{{0, 0}, {10, 10}, {10, 10}},
		Raw:          [][]float64{{1, 5}, {2, 7}, {4, 7}},
		Observed:     [][]bool{{true, false}, {true, true}, {true, false}},
	}

	a, err := Analyze(sm, x)
	require.NoError(t, err)
	require.Len(t, a.Clusters, 2)

	first := a.Clusters[0]
	assert.Equal(t, "0_0", first.Key())
	assert.Equal(t, []string{"A"}, first.Countries)
	require.NotNil(t, first.AvgIndicators["x"])
	assert.Equal(t, 1.0, *first.AvgIndicators["x"])
	assert.Nil(t, first.AvgIndicators["y"])

	second := a.Clusters[1]
	assert.Equal(t, 1, second.ID)
	assert.Equal(t, []string{"B", "C"}, second.Countries)
	assert.Equal(t, 3.0, *second.AvgIndicators["x"])
	assert.Equal(t, 7.0, *second.AvgIndicators["y"])

	// Both units are 4-adjacent and every row sits on a prototype.
	assert.Equal(t, 0.0, a.QuantizationError)
	assert.Equal(t, 0.0, a.TopographicError)
	assert.Equal(t, QualityExcellent, a.Quality)
	assert.InDelta(t, math.Sqrt(200), a.DistanceMap[0][0], 1e-12)
	assert.InDelta(t, math.Sqrt(200), a.DistanceMap[0][1], 1e-12)
}

func TestAnalyze_TopographicErrorCountsNonAdjacentRunnerUp(t *testing.T) {
	// Cells 0 and 2 of a 1x3 row are close in weight space but two steps
	// apart on the grid.
	sm := &Map{Rows: 1, Cols: 3, Dim: 1, Weights: []float64{0, 10, 1}}
	x := &Matrix{
		Countries:    []string{"A", "B"},
		Indicators:   []string{"x"},
		Standardized: [][]float64{{0.2}, {9}},
		Raw:          [][]float64{{0.2}, {9}},
		Observed:     [][]bool{{true}, {true}},
	}

	a, err := Analyze(sm, x)
	require.NoError(t, err)
	// A: BMU 0, runner-up 2 (error). B: BMU 1, runner-up 2 (adjacent).
	assert.Equal(t, 0.5, a.TopographicError)
}

func TestAnalyze_DimensionMismatch(t *testing.T) {
	sm := &Map{Rows: 1, Cols: 1, Dim: 3, Weights: []float64{0, 0, 0}}
	_, err := Analyze(sm, matrixFrom([][]float64{{1}}))
	require.Error(t, err)
}

func TestClassifyQuality(t *testing.T) {
	tests := []struct {
		qe, te float64
		want   Quality
	}{
		{0.1, 0.05, QualityExcellent},
		{0.4, 0.1, QualityGood},
		{0.9, 0.15, QualityGood},
		{1.5, 0.0, QualityFair},
		{1.9, 0.29, QualityFair},
		{2.0, 0.0, QualityPoor},
		{0.1, 0.5, QualityPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyQuality(tt.qe, tt.te), "qe=%v te=%v", tt.qe, tt.te)
	}
}

//Personal.AI order the ending
