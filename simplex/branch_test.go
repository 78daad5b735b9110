package simplex_test

import (
	"context"
	"math/big"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"q.log/mip/model"
	"q.log/mip/simplex"
)

func integer(t *testing.T, p *simplex.Problem, vs ...int) {
	t.Helper()
	require.NoError(t, p.AddToIntegerSpaceDimensions(model.NewVariableSet(vs...)))
}

func TestMIP_IntegralRelaxation(t *testing.T) {
	// x + y = 1, x, y >= 0 integer, maximize x.
	p := newProblem(t, 2, model.Var(0), simplex.Maximization, eq(1, 1, 1), ge(0, 1, 0), ge(0, 0, 1))
	integer(t, p, 0, 1)
	require.Equal(t, "1", optimalValue(t, p).RatString())
	g, err := p.OptimizingPoint(context.Background())
	require.NoError(t, err)
	requirePoint(t, g, "1", "0")
	require.True(t, p.OK())
}

func TestMIP_Infeasible(t *testing.T) {
	// 2x = 1 has no integer solution.
	p := newProblem(t, 1, model.LinearExpression{}, simplex.Maximization, eq(1, 2))
	integer(t, p, 0)
	ok, err := p.IsSatisfiable(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	st, err := p.Solve(context.Background())
	require.NoError(t, err)
	require.Equal(t, simplex.UnfeasibleProblem, st)

	// Without integrality the rational point x = 1/2 is fine.
	q := newProblem(t, 1, model.LinearExpression{}, simplex.Maximization, eq(1, 2))
	g, err := q.FeasiblePoint(context.Background())
	require.NoError(t, err)
	requirePoint(t, g, "1/2")
}

func TestMIP_Knapsack(t *testing.T) {
	// x + y <= 6, 9x + 5y <= 45, maximize 8x + 5y. The relaxation peaks at
	// (15/4, 9/4) with value 165/4; the integer optimum is (5, 0).
	cs := []model.Constraint{le(6, 1, 1), le(45, 9, 5), ge(0, 1, 0), ge(0, 0, 1)}
	obj := model.Int64Expression(0, 8, 5)

	relaxed := newProblem(t, 2, obj, simplex.Maximization, cs...)
	require.Equal(t, "165/4", optimalValue(t, relaxed).RatString())

	for _, rule := range []simplex.ControlParameterValue{
		simplex.PricingSteepestEdgeFloat, simplex.PricingSteepestEdgeExact, simplex.PricingTextbook,
	} {
		p := newProblem(t, 2, obj, simplex.Maximization, cs...)
		p.SetControlParameter(rule)
		integer(t, p, 0, 1)
		require.Equal(t, "40", optimalValue(t, p).RatString(), "pricing %v", rule)
		g, err := p.OptimizingPoint(context.Background())
		require.NoError(t, err)
		requirePoint(t, g, "5", "0")
		require.True(t, p.OK())
	}
}

func TestMIP_MixedInteger(t *testing.T) {
	// 2x + 2y <= 3, x, y >= 0, x integer, maximize x + 2y: y takes the slack.
	p := newProblem(t, 2, model.Int64Expression(0, 1, 2), simplex.Maximization, le(3, 2, 2), ge(0, 1, 0), ge(0, 0, 1))
	integer(t, p, 0)
	require.Equal(t, "3", optimalValue(t, p).RatString())

	// Both integer: y <= 1.
	q := newProblem(t, 2, model.Int64Expression(0, 1, 2), simplex.Maximization, le(3, 2, 2), ge(0, 1, 0), ge(0, 0, 1))
	integer(t, q, 0, 1)
	require.Equal(t, "2", optimalValue(t, q).RatString())
}

func TestMIP_Unbounded(t *testing.T) {
	p := newProblem(t, 1, model.Var(0), simplex.Maximization, ge(0, 1))
	integer(t, p, 0)
	st, err := p.Solve(context.Background())
	require.NoError(t, err)
	require.Equal(t, simplex.UnboundedProblem, st)
}

func TestMIP_FeasiblePointIsIntegral(t *testing.T) {
	// 3x + 3y = 7 over the reals, 2 <= 3x <= 4.
	p := newProblem(t, 2, model.LinearExpression{}, simplex.Maximization, le(8, 3, 3), ge(7, 3, 3), ge(2, 3, 0), le(4, 3, 0))
	integer(t, p, 0)
	g, err := p.FeasiblePoint(context.Background())
	require.NoError(t, err)
	requirePoint(t, g, "1")
	require.True(t, p.Constraints().IsSatisfiedBy(g))
	require.True(t, p.OK())
}

func TestMIP_IncumbentSurvivesNewConstraints(t *testing.T) {
	cs := []model.Constraint{le(6, 1, 1), le(45, 9, 5), ge(0, 1, 0), ge(0, 0, 1)}
	p := newProblem(t, 2, model.Int64Expression(0, 8, 5), simplex.Maximization, cs...)
	integer(t, p, 0, 1)
	require.Equal(t, "40", optimalValue(t, p).RatString())

	require.NoError(t, p.AddConstraint(le(4, 1, 0)))
	// (3, 3) now beats (4, 1).
	require.Equal(t, "39", optimalValue(t, p).RatString())
	require.True(t, p.OK())
}

// enumerate returns the best objective value over the integer points of the
// box [lo, hi]^dim satisfying cs, or nil if there is none.
func enumerate(dim int, lo, hi int64, cs model.ConstraintSystem, obj model.LinearExpression, mode simplex.OptimizationMode) *big.Rat {
	var best *big.Rat
	coords := make([]int64, dim)
	var walk func(v int)
	walk = func(v int) {
		if v == dim {
			g, err := model.Int64Point(1, coords...)
			if err != nil {
				panic(err)
			}
			if !cs.IsSatisfiedBy(g) {
				return
			}
			num, den := obj.Evaluate(g)
			val := new(big.Rat).SetFrac(num, den)
			if best == nil ||
				(mode == simplex.Maximization && val.Cmp(best) > 0) ||
				(mode == simplex.Minimization && val.Cmp(best) < 0) {
				best = val
			}
			return
		}
		for x := lo; x <= hi; x++ {
			coords[v] = x
			walk(v + 1)
		}
	}
	walk(0)
	return best
}

func TestMIP_AgreesWithEnumeration(t *testing.T) {
	const (
		dim = 3
		hi  = 4
	)
	rng := rand.New(rand.NewSource(7))
	randCoeffs := func() []int64 {
		cs := make([]int64, dim)
		for i := range cs {
			cs[i] = rng.Int63n(7) - 3
		}
		return cs
	}
	for trial := range 40 {
		cs := model.ConstraintSystem{}
		for v := range dim {
			unit := make([]int64, dim)
			unit[v] = 1
			cs = append(cs, ge(0, unit...), le(hi, unit...))
		}
		for range 3 {
			cs = append(cs, le(rng.Int63n(11)-2, randCoeffs()...))
		}
		obj := model.Int64Expression(0, randCoeffs()...)
		mode := simplex.Maximization
		if trial%2 == 1 {
			mode = simplex.Minimization
		}

		p := newProblem(t, dim, obj, mode, cs...)
		integer(t, p, 0, 1, 2)
		st, err := p.Solve(context.Background())
		require.NoError(t, err)

		want := enumerate(dim, 0, hi, cs, obj, mode)
		if want == nil {
			require.Equal(t, simplex.UnfeasibleProblem, st, "trial %d", trial)
			continue
		}
		require.Equal(t, simplex.OptimizedProblem, st, "trial %d", trial)
		require.Equal(t, want.RatString(), optimalValue(t, p).RatString(), "trial %d", trial)

		g, err := p.OptimizingPoint(context.Background())
		require.NoError(t, err)
		require.True(t, cs.IsSatisfiedBy(g), "trial %d: %v", trial, g)
		for v := range dim {
			require.True(t, g.IsIntegral(v), "trial %d: %v", trial, g)
		}
		require.True(t, p.OK())
	}
}

func TestMIP_AgreesWithEnumerationAroundOrigin(t *testing.T) {
	const (
		dim   = 3
		bound = 2
	)
	rng := rand.New(rand.NewSource(13))
	randCoeffs := func() []int64 {
		cs := make([]int64, dim)
		for i := range cs {
			cs[i] = rng.Int63n(7) - 3
		}
		return cs
	}
	for trial := range 40 {
		cs := model.ConstraintSystem{}
		for v := range dim {
			unit := make([]int64, dim)
			unit[v] = 1
			cs = append(cs, ge(-bound, unit...), le(bound, unit...))
		}
		mode := simplex.Maximization
		if trial%2 == 1 {
			mode = simplex.Minimization
		}
		obj := model.Int64Expression(0, randCoeffs()...)
		p := newProblem(t, dim, obj, mode, cs...)
		integer(t, p, 0, 1, 2)

		// Solve after every constraint, as the box is cut down.
		for range 3 {
			c := le(rng.Int63n(7)-3, randCoeffs()...)
			cs = append(cs, c)
			require.NoError(t, p.AddConstraint(c))
			st, err := p.Solve(context.Background())
			require.NoError(t, err)

			want := enumerate(dim, -bound, bound, cs, obj, mode)
			if want == nil {
				require.Equal(t, simplex.UnfeasibleProblem, st, "trial %d", trial)
				break
			}
			require.Equal(t, simplex.OptimizedProblem, st, "trial %d", trial)
			require.Equal(t, want.RatString(), optimalValue(t, p).RatString(), "trial %d", trial)
			require.True(t, p.OK(), "trial %d", trial)
		}
	}
}

func TestMIP_UnboundedAtFractionalVertex(t *testing.T) {
	// (1, 0, 0) is an integer point and x0 - x1 grows without limit.
	cs := []model.Constraint{ge(-3, 1, 0, 0), ge(-2, 4, 3, -4), ge(-3, 0, 0, 1), ge(1, 4, 3, 4)}
	obj := model.Int64Expression(0, 3, -3, -1)
	for _, rule := range []simplex.ControlParameterValue{
		simplex.PricingSteepestEdgeFloat, simplex.PricingSteepestEdgeExact, simplex.PricingTextbook,
	} {
		t.Run(rule.String(), func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			p := newProblem(t, 3, obj, simplex.Maximization, cs...)
			p.SetControlParameter(rule)
			integer(t, p, 0, 1, 2)
			st, err := p.Solve(ctx)
			require.NoError(t, err)
			require.Equal(t, simplex.UnboundedProblem, st)

			_, err = p.OptimizingPoint(ctx)
			require.ErrorIs(t, err, simplex.ErrDomain)
			g, err := p.FeasiblePoint(ctx)
			require.NoError(t, err)
			for v := range 3 {
				require.True(t, g.IsIntegral(v), "%v", g)
			}
			require.True(t, p.Constraints().IsSatisfiedBy(g))
			require.True(t, p.OK())
		})
	}
}

func TestMIP_UnboundedRelaxationWithoutIntegerPoints(t *testing.T) {
	// 2x - 2y = 1 runs off to infinity but misses every integer point.
	p := newProblem(t, 2, model.Var(0), simplex.Maximization, eq(1, 2, -2), ge(0, 1, 0))
	integer(t, p, 0, 1)
	st, err := p.Solve(context.Background())
	require.NoError(t, err)
	require.Equal(t, simplex.UnfeasibleProblem, st)

	// Relaxing y brings the points (k, k - 1/2) back.
	q := newProblem(t, 2, model.Var(0), simplex.Maximization, eq(1, 2, -2), ge(0, 1, 0))
	integer(t, q, 0)
	st, err = q.Solve(context.Background())
	require.NoError(t, err)
	require.Equal(t, simplex.UnboundedProblem, st)
}

// TestMIP_UnboundedRegions solves problems whose constraints keep a known
// integer point but leave the region open, and checks the answer against
// the relaxation and against the integer points around the origin.
func TestMIP_UnboundedRegions(t *testing.T) {
	const dim = 3
	rng := rand.New(rand.NewSource(5))
	randCoeffs := func() []int64 {
		cs := make([]int64, dim)
		for i := range cs {
			cs[i] = rng.Int63n(7) - 3
		}
		return cs
	}
	for trial := range 20 {
		z := randCoeffs()
		var cs model.ConstraintSystem
		for range 4 {
			a := randCoeffs()
			var az int64
			for i := range a {
				az += a[i] * z[i]
			}
			cs = append(cs, le(az+rng.Int63n(3), a...))
		}
		obj := model.Int64Expression(0, randCoeffs()...)
		mode := simplex.Maximization
		if trial%2 == 1 {
			mode = simplex.Minimization
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		p := newProblem(t, dim, obj, mode, cs...)
		integer(t, p, 0, 1, 2)
		st, err := p.Solve(ctx)
		require.NoError(t, err, "trial %d", trial)
		relaxed := newProblem(t, dim, obj, mode, cs...)
		lpSt, err := relaxed.Solve(ctx)
		require.NoError(t, err, "trial %d", trial)
		cancel()

		// z is an integer point, so only the relaxation decides.
		require.Equal(t, lpSt, st, "trial %d", trial)
		require.True(t, p.OK(), "trial %d", trial)
		if st != simplex.OptimizedProblem {
			continue
		}
		got := optimalValue(t, p)
		near := enumerate(dim, -3, 3, cs, obj, mode)
		require.NotNil(t, near, "trial %d", trial)
		if mode == simplex.Maximization {
			require.GreaterOrEqual(t, got.Cmp(near), 0, "trial %d", trial)
		} else {
			require.LessOrEqual(t, got.Cmp(near), 0, "trial %d", trial)
		}
	}
}
