package simplex_test

import (
	"context"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"q.log/mip/model"
	"q.log/mip/simplex"
)

// TestSolve_AgreesWithGonum checks the exact optimum of random bounded
// problems against the float64 simplex of gonum. The problems are
//
//	maximize c·x  s.t.  A x <= b, 0 <= x <= ub
//
// with A >= 0 and b > 0, so the origin is feasible. gonum gets the
// standard form with one slack per row.
func TestSolve_AgreesWithGonum(t *testing.T) {
	const (
		n  = 4
		m  = 3
		ub = 10
	)
	rng := rand.New(rand.NewSource(11))
	for trial := range 30 {
		a := make([][]int64, m)
		b := make([]int64, m)
		for i := range a {
			a[i] = make([]int64, n)
			for j := range a[i] {
				a[i][j] = rng.Int63n(6)
			}
			b[i] = 1 + rng.Int63n(20)
		}
		c := make([]int64, n)
		for j := range c {
			c[j] = rng.Int63n(11) - 5
		}

		// Exact problem.
		var cs []model.Constraint
		for i := range a {
			cs = append(cs, le(b[i], a[i]...))
		}
		for j := range n {
			unit := make([]int64, n)
			unit[j] = 1
			cs = append(cs, ge(0, unit...), le(ub, unit...))
		}
		rules := []simplex.ControlParameterValue{
			simplex.PricingSteepestEdgeFloat, simplex.PricingSteepestEdgeExact, simplex.PricingTextbook,
		}
		var exact *big.Rat
		for _, rule := range rules {
			p := newProblem(t, n, model.Int64Expression(0, c...), simplex.Maximization, cs...)
			p.SetControlParameter(rule)
			st, err := p.Solve(context.Background())
			require.NoError(t, err)
			require.Equal(t, simplex.OptimizedProblem, st)
			v := optimalValue(t, p)
			if exact == nil {
				exact = v
			}
			// Every pricing rule reaches the same optimum.
			require.Equal(t, exact.RatString(), v.RatString(), "trial %d pricing %v", trial, rule)
			g, err := p.OptimizingPoint(context.Background())
			require.NoError(t, err)
			require.True(t, p.Constraints().IsSatisfiedBy(g))
		}

		// Standard form: m + n rows, n + m + n columns.
		rows, cols := m+n, n+m+n
		A := mat.NewDense(rows, cols, nil)
		rhs := make([]float64, rows)
		cost := make([]float64, cols)
		for i := range m {
			for j := range n {
				A.Set(i, j, float64(a[i][j]))
			}
			A.Set(i, n+i, 1)
			rhs[i] = float64(b[i])
		}
		for j := range n {
			A.Set(m+j, j, 1)
			A.Set(m+j, n+m+j, 1)
			rhs[m+j] = ub
			cost[j] = -float64(c[j])
		}
		optF, _, err := lp.Simplex(cost, A, rhs, 1e-10, nil)
		require.NoError(t, err)

		want, _ := exact.Float64()
		require.InDelta(t, -optF, want, 1e-7, "trial %d", trial)
	}
}
