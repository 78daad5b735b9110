package simplex

import (
	"context"
	"math/big"

	"q.log/mip/model"
	"q.log/mip/tableau"
)

// allowedNonIncreasingLoops is the number of pivots in a row that may leave
// the objective unchanged before the steepest edge rules give way to the
// textbook rule, which cannot cycle.
const allowedNonIncreasingLoops = 200

// lpSatisfiable brings pending constraints into the tableau and finds a
// feasible basis for the rational relaxation.
func (p *Problem) lpSatisfiable(ctx context.Context) (bool, error) {
	if p.lpInfeasible {
		return false, nil
	}
	if !p.lpFeasible || p.hasPending() {
		artificials, ok := p.processPendingConstraints()
		if !ok {
			p.lpInfeasible = true
			return false, nil
		}
		if artificials > 0 {
			feasible, err := p.firstPhase(ctx, artificials)
			if err != nil {
				p.discardTableau()
				return false, err
			}
			if !feasible {
				p.lpInfeasible = true
				return false, nil
			}
		}
		p.lpFeasible = true
	}
	p.lastGenerator = p.basisPoint()
	return true, nil
}

func (p *Problem) hasPending() bool {
	return p.firstPending < len(p.inputCS) || p.internalDim < p.externalDim
}

// firstPhase minimizes the sum of the artificial variables, which are the
// last columns of the tableau, and removes them. It reports whether the sum
// reached zero.
func (p *Problem) firstPhase(ctx context.Context, artificials int) (bool, error) {
	cols := p.tableau.NumColumns()
	first := cols - artificials
	p.resetWorkingCost()
	for j := first; j < cols; j++ {
		p.workingCost.SetInt64(j, -1)
	}
	for i, b := range p.base {
		if b >= first {
			p.workingCost.LinearCombine(p.tableau.Row(i), b)
		}
	}
	if _, err := p.computeSimplex(ctx); err != nil {
		return false, err
	}
	if p.workingCost.Sign(0) != 0 {
		p.logf("first phase: artificial sum stays positive")
		return false, nil
	}
	p.eraseArtificials(first)
	return true, nil
}

// eraseArtificials drives the artificial columns starting at first out of the
// basis and removes them. Rows left with nothing but an artificial variable
// are redundant and removed too.
func (p *Problem) eraseArtificials(first int) {
	for i := 0; i < p.tableau.NumRows(); {
		if p.base[i] < first {
			i++
			continue
		}
		r := p.tableau.Row(i)
		entering := 0
		for j := 1; j < first; j++ {
			if r.Sign(j) != 0 {
				entering = j
				break
			}
		}
		if entering != 0 {
			p.pivot(entering, i)
			i++
			continue
		}
		last := p.tableau.NumRows() - 1
		p.tableau.SwapRows(i, last)
		p.base[i], p.base[last] = p.base[last], p.base[i]
		p.tableau.RemoveTrailingRows(1)
		p.base = p.base[:last]
	}
	p.tableau.RemoveTrailingColumns(p.tableau.NumColumns() - first)
	p.resetWorkingCost()
}

// secondPhase optimizes the objective from the current feasible basis.
func (p *Problem) secondPhase(ctx context.Context) (ProblemStatus, error) {
	p.resetWorkingCost()
	sign := big.NewInt(1)
	if p.mode == Minimization {
		sign.SetInt64(-1)
	}
	w := p.workingCost
	w.Get(0).Mul(p.objective.Inhomogeneous(), sign)
	p.objective.ForEachNonZero(func(v int, c *big.Int) {
		vc := p.mapping[v]
		w.Get(vc.pos).Mul(c, sign)
		if vc.mode == splitSign {
			w.Get(vc.neg).Neg(w.Get(vc.pos))
		}
	})
	for i, b := range p.base {
		if w.Sign(b) != 0 {
			w.LinearCombine(p.tableau.Row(i), b)
		}
	}
	optimal, err := p.computeSimplex(ctx)
	if err != nil {
		p.discardTableau()
		return UnfeasibleProblem, err
	}
	p.lastGenerator = p.basisPoint()
	if !optimal {
		return UnboundedProblem, nil
	}
	return OptimizedProblem, nil
}

// computeSimplex pivots until the working cost has no improving column. It
// returns false if the cost is unbounded.
func (p *Problem) computeSimplex(ctx context.Context) (bool, error) {
	textbook := p.pricing == PricingTextbook
	nonIncreasing := 0
	var current, challenger big.Rat
	p.costValue(&current)
	for iter := 0; ; iter++ {
		var entering int
		switch {
		case textbook:
			entering = p.textbookEnteringIndex()
		case p.pricing == PricingSteepestEdgeExact:
			entering = p.steepestEdgeExactEnteringIndex()
		default:
			entering = p.steepestEdgeFloatEnteringIndex()
		}
		if entering == 0 {
			p.logf("simplex: optimum after %d iterations", iter)
			return true, nil
		}
		exiting := p.exitingIndex(entering)
		if exiting < 0 {
			p.logf("simplex: unbounded after %d iterations", iter)
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, abandoned(err)
		}
		p.pivot(entering, exiting)
		if p.pricing == PricingTextbook {
			continue
		}
		p.costValue(&challenger)
		if challenger.Cmp(&current) == 0 {
			nonIncreasing++
			if nonIncreasing > allowedNonIncreasingLoops && !textbook {
				p.logf("simplex: %d degenerate pivots, switching to textbook pricing", nonIncreasing)
				textbook = true
			}
		} else {
			nonIncreasing = 0
			textbook = false
			current.Set(&challenger)
		}
	}
}

// costValue stores in z the value of the maximized function at the current
// vertex.
func (p *Problem) costValue(z *big.Rat) {
	last := len(p.workingCost) - 1
	z.SetFrac(p.workingCost.Get(0), p.workingCost.Get(last))
}

// improving reports whether raising column j improves the working cost.
func (p *Problem) improving(j int) bool {
	s := p.workingCost.Sign(j)
	return s != 0 && s == p.workingCost.Sign(len(p.workingCost)-1)
}

// exitingIndex returns the row whose basic variable is the first to reach
// zero as column entering grows, or -1 if none does. Ties go to the row with
// the smallest basic column.
func (p *Problem) exitingIndex(entering int) int {
	exiting := -1
	var best0, bestE, lhs, rhs, t0, te big.Int
	for i := range p.tableau.NumRows() {
		r := p.tableau.Row(i)
		s := r.Sign(entering)
		if s == 0 || s != r.Sign(p.base[i]) {
			continue
		}
		t0.Abs(r.Get(0))
		te.Abs(r.Get(entering))
		if exiting >= 0 {
			// Compare |t0|/|te| with the best ratio so far.
			lhs.Mul(&t0, &bestE)
			rhs.Mul(&best0, &te)
			c := lhs.Cmp(&rhs)
			if c > 0 || (c == 0 && p.base[i] > p.base[exiting]) {
				continue
			}
		}
		exiting = i
		best0.Set(&t0)
		bestE.Set(&te)
	}
	return exiting
}

// pivot makes column entering basic in row exiting.
func (p *Problem) pivot(entering, exiting int) {
	er := p.tableau.Row(exiting)
	for i := range p.tableau.NumRows() {
		if i != exiting {
			if r := p.tableau.Row(i); r.Sign(entering) != 0 {
				r.LinearCombine(er, entering)
			}
		}
	}
	if p.workingCost.Sign(entering) != 0 {
		p.workingCost.LinearCombine(er, entering)
	}
	p.logf("base change %d -> %d", p.base[exiting], entering)
	p.base[exiting] = entering
}

// basisValues returns the value of every tableau column at the vertex of the
// current basis.
func (p *Problem) basisValues() []big.Rat {
	values := make([]big.Rat, p.tableau.NumColumns())
	var num big.Int
	for i, b := range p.base {
		r := p.tableau.Row(i)
		num.Neg(r.Get(0))
		values[b].SetFrac(&num, r.Get(b))
	}
	return values
}

// basisPoint returns the point of the current basis in problem coordinates.
func (p *Problem) basisPoint() model.Generator {
	values := p.basisValues()
	coords := make([]big.Rat, p.externalDim)
	for v := range p.internalDim {
		vc := p.mapping[v]
		coords[v].Set(&values[vc.pos])
		if vc.mode == splitSign {
			coords[v].Sub(&coords[v], &values[vc.neg])
		}
	}
	divisor := big.NewInt(1)
	var g big.Int
	for v := range coords {
		d := coords[v].Denom()
		g.GCD(nil, nil, divisor, d)
		divisor.Mul(divisor, g.Quo(d, &g))
	}
	nums := tableau.NewRow(p.externalDim)
	ints := make([]*big.Int, p.externalDim)
	for v := range coords {
		ints[v] = nums.Get(v)
		ints[v].Mul(coords[v].Num(), divisor)
		ints[v].Quo(ints[v], coords[v].Denom())
	}
	pt, err := model.NewPoint(model.NewLinearExpression(ints, nil), divisor)
	if err != nil {
		panic(err)
	}
	return pt
}
