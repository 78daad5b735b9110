package instance

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"q.log/mip/simplex"
)

// fakeSource is an in-memory Source, numbered from 1 like GLPK.
type fakeSource struct {
	names    []string
	maximize bool
	obj      []float64 // obj[0] is the constant term
	rows     [][]float64
	rowLB    []float64
	rowUB    []float64
	colLB    []float64
	colUB    []float64
	ints     []bool
}

func (s *fakeSource) NumRows() int          { return len(s.rows) }
func (s *fakeSource) NumCols() int          { return len(s.names) }
func (s *fakeSource) ColName(j int) string  { return s.names[j-1] }
func (s *fakeSource) Maximize() bool        { return s.maximize }
func (s *fakeSource) ObjCoef(j int) float64 { return s.obj[j] }
func (s *fakeSource) IsInteger(j int) bool  { return s.ints[j-1] }

func (s *fakeSource) RowCoefs(i int) ([]int, []float64) {
	var cols []int
	var vals []float64
	for j, v := range s.rows[i-1] {
		if v != 0 {
			cols = append(cols, j+1)
			vals = append(vals, v)
		}
	}
	return cols, vals
}

func (s *fakeSource) RowBounds(i int) (float64, float64) { return s.rowLB[i-1], s.rowUB[i-1] }
func (s *fakeSource) ColBounds(j int) (float64, float64) { return s.colLB[j-1], s.colUB[j-1] }

const inf = math.MaxFloat64

func TestBuild_Knapsack(t *testing.T) {
	// maximize 0.8x + 0.5y s.t. 0.1x + 0.1y <= 0.6, 0.9x + 0.5y <= 4.5,
	// x, y >= 0 integer.
	src := &fakeSource{
		names:    []string{"x", "y"},
		maximize: true,
		obj:      []float64{0, 0.8, 0.5},
		rows:     [][]float64{{0.1, 0.1}, {0.9, 0.5}},
		rowLB:    []float64{-inf, -inf},
		rowUB:    []float64{0.6, 4.5},
		colLB:    []float64{0, 0},
		colUB:    []float64{inf, inf},
		ints:     []bool{true, true},
	}
	inst, err := Build(src)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, inst.Names)
	require.Equal(t, "10", inst.ObjectiveScale.RatString())
	require.Equal(t, simplex.Maximization, inst.Problem.OptimizationMode())
	require.Equal(t, 2, inst.Problem.IntegerSpaceDimensions().Len())

	num, den, err := inst.Problem.OptimalValue(context.Background())
	require.NoError(t, err)
	// 40 in scaled units, 4 in the units of the file.
	require.Equal(t, int64(40), num.Int64())
	require.Equal(t, int64(1), den.Int64())
}

func TestBuild_BoundsAndEqualities(t *testing.T) {
	// minimize x - y s.t. x + y = 3, -1 <= x <= 2, y free.
	src := &fakeSource{
		names: []string{"x", "y"},
		obj:   []float64{0.5, 1, -1},
		rows:  [][]float64{{1, 1}},
		rowLB: []float64{3},
		rowUB: []float64{3},
		colLB: []float64{-1, -inf},
		colUB: []float64{2, inf},
		ints:  []bool{false, false},
	}
	inst, err := Build(src)
	require.NoError(t, err)
	p := inst.Problem
	require.Equal(t, simplex.Minimization, p.OptimizationMode())
	// One equality and two column bounds.
	require.Len(t, p.Constraints(), 3)

	g, err := p.OptimizingPoint(context.Background())
	require.NoError(t, err)
	require.Equal(t, "-1", g.Value(0).RatString())
	require.Equal(t, "4", g.Value(1).RatString())

	num, den, err := p.OptimalValue(context.Background())
	require.NoError(t, err)
	// (x - y + 1/2) * 2 at (-1, 4).
	require.Equal(t, int64(-9), num.Int64())
	require.Equal(t, int64(1), den.Int64())
	require.Equal(t, "2", inst.ObjectiveScale.RatString())
}

func TestBuild_Errors(t *testing.T) {
	src := &fakeSource{
		names: []string{"x"},
		obj:   []float64{0, math.NaN()},
		rows:  nil,
		colLB: []float64{0},
		colUB: []float64{inf},
		ints:  []bool{false},
	}
	_, err := Build(src)
	require.Error(t, err)
}
