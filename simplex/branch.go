package simplex

import (
	"context"
	"math/big"

	"q.log/mip/model"
)

// branchAndBound optimizes over the integer points of the problem by a
// depth-first search on copies of p, each with tighter bounds on a
// fractional integer variable. p must be satisfiable as a relaxation.
//
// With rational data, an integer problem whose relaxation is unbounded is
// itself unbounded as soon as it has one integer point, so that case is
// settled by searchIntegerPoint. Otherwise the search runs inside the box of
// integerBound, which holds an optimal point and keeps the tree finite.
func (p *Problem) branchAndBound(ctx context.Context) (ProblemStatus, model.Generator, error) {
	if p.hasIntegerlessEquality() {
		return UnfeasibleProblem, model.Generator{}, nil
	}
	root := p.Clone()
	if _, err := root.lpSatisfiable(ctx); err != nil {
		return UnfeasibleProblem, model.Generator{}, err
	}
	st, err := root.secondPhase(ctx)
	if err != nil {
		return UnfeasibleProblem, model.Generator{}, err
	}
	if st == UnboundedProblem {
		g := root.lastGenerator
		if _, fractional := p.branchingVariable(root, g); fractional {
			var ok bool
			g, ok, err = p.searchIntegerPoint(ctx)
			if err != nil || !ok {
				return UnfeasibleProblem, model.Generator{}, err
			}
		}
		p.logf("branch and bound: unbounded relaxation with integer point %v", g)
		return UnboundedProblem, g, nil
	}
	root.addIntegerBox(p.integerBound())

	var (
		incumbent big.Rat
		best      model.Generator
		found     bool
		value     big.Rat
		nodes     int
	)
	stack := []*Problem{root}
	for len(stack) > 0 {
		lp := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++
		ok, err := lp.lpSatisfiable(ctx)
		if err != nil {
			return UnfeasibleProblem, model.Generator{}, err
		}
		if !ok {
			continue
		}
		st, err := lp.secondPhase(ctx)
		if err != nil {
			return UnfeasibleProblem, model.Generator{}, err
		}
		if st == UnboundedProblem {
			panic("simplex: unbounded node below a bounded relaxation")
		}
		point := lp.lastGenerator
		value.SetFrac(p.objective.Evaluate(point))
		if found && !p.better(&value, &incumbent) {
			continue
		}
		v, fractional := p.branchingVariable(lp, point)
		if !fractional {
			incumbent.Set(&value)
			best = point
			found = true
			p.logf("branch and bound: incumbent %v with value %v", point, &value)
			continue
		}
		stack = append(stack, lp.split(v, point)...)
	}
	p.logf("branch and bound: %d nodes", nodes)
	if !found {
		return UnfeasibleProblem, model.Generator{}, nil
	}
	return OptimizedProblem, best, nil
}

// searchIntegerPoint looks for any point of the problem giving integer values
// to the integer variables, within the box of integerBound. p must be
// satisfiable as a relaxation.
func (p *Problem) searchIntegerPoint(ctx context.Context) (model.Generator, bool, error) {
	if p.hasIntegerlessEquality() {
		return model.Generator{}, false, nil
	}
	root := p.Clone()
	root.addIntegerBox(p.integerBound())
	stack := []*Problem{root}
	for len(stack) > 0 {
		lp := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ok, err := lp.lpSatisfiable(ctx)
		if err != nil {
			return model.Generator{}, false, err
		}
		if !ok {
			continue
		}
		point := lp.lastGenerator
		v, fractional := p.branchingVariable(lp, point)
		if !fractional {
			return point, true, nil
		}
		stack = append(stack, lp.split(v, point)...)
	}
	return model.Generator{}, false, nil
}

// hasIntegerlessEquality reports whether some equality over integer variables
// only has a constant term that the gcd of its coefficients does not divide.
func (p *Problem) hasIntegerlessEquality() bool {
	var g, rem big.Int
	for _, c := range p.inputCS {
		if !c.IsEquality() {
			continue
		}
		integral := true
		g.SetInt64(0)
		c.Expression().ForEachNonZero(func(v int, a *big.Int) {
			integral = integral && p.intVars.Contains(v)
			g.GCD(nil, nil, &g, a)
		})
		if integral && g.Sign() != 0 && rem.Rem(c.Inhomogeneous(), &g).Sign() != 0 {
			p.logf("branch and bound: %v has no integer solution", c)
			return true
		}
	}
	return false
}

// integerBound returns M such that, if the constraints have a point giving
// integer values to the integer variables, they have one with every
// coordinate in [-M, M], and when the objective is bounded one that is also
// optimal.
//
// With every variable split into two non-negative halves, each vertex
// coordinate and each integral extreme ray entry of the constraint polyhedron
// is bounded by the largest subdeterminant D of [A b]. Subtracting whole
// multiples of at most 2n rays from any point leaves a point of the same kind,
// no worse for a bounded objective, within (2n+1)D per half. Hence
// M = 2(2n+1)H with H the Hadamard bound of D over the columns of [A b] and
// of the sign rows.
func (p *Problem) integerBound() *big.Int {
	one := big.NewInt(1)
	norms := make([]big.Int, p.externalDim)
	var rhs, sq big.Int
	for _, c := range p.inputCS {
		// An equality stands for two opposite inequalities.
		weight := big.NewInt(1)
		if c.IsEquality() {
			weight.SetInt64(2)
		}
		c.Expression().ForEachNonZero(func(v int, a *big.Int) {
			sq.Mul(a, a)
			norms[v].Add(&norms[v], sq.Mul(&sq, weight))
		})
		b := c.Inhomogeneous()
		sq.Mul(b, b)
		rhs.Add(&rhs, sq.Mul(&sq, weight))
	}
	h2 := new(big.Int).Add(&rhs, one)
	for v := range norms {
		if norms[v].Sign() == 0 {
			continue
		}
		norms[v].Add(&norms[v], one)
		// Both halves of v have this column norm.
		h2.Mul(h2, &norms[v])
		h2.Mul(h2, &norms[v])
	}
	h := new(big.Int).Sqrt(h2)
	if sq.Mul(h, h).Cmp(h2) < 0 {
		h.Add(h, one)
	}
	m := big.NewInt(2 * (2*int64(p.externalDim) + 1))
	return m.Mul(m, h)
}

// addIntegerBox constrains every integer variable to [-m, m].
func (p *Problem) addIntegerBox(m *big.Int) {
	low := new(big.Int).Neg(m)
	for _, v := range p.intVars.Indices() {
		p.addConstraint(model.LessOrEqual(model.Var(v), model.ConstantBig(m)))
		if v >= p.internalDim || p.mapping[v].mode == splitSign {
			p.addConstraint(model.GreaterOrEqual(model.Var(v), model.ConstantBig(low)))
		}
	}
	p.logf("integer variables bounded by %v", m)
}

// split returns the two children of p on variable v: p itself with
// x_v >= ceil(point_v), and a copy with x_v <= floor(point_v). The copy comes
// last so it is explored first.
func (p *Problem) split(v int, point model.Generator) []*Problem {
	floor := new(big.Int).Div(point.Coefficient(v), point.Divisor())
	ceil := new(big.Int).Add(floor, big.NewInt(1))
	down := p.Clone()
	down.addConstraint(model.LessOrEqual(model.Var(v), model.ConstantBig(floor)))
	p.addConstraint(model.GreaterOrEqual(model.Var(v), model.ConstantBig(ceil)))
	return []*Problem{p, down}
}

func (p *Problem) better(a, b *big.Rat) bool {
	if p.mode == Minimization {
		return a.Cmp(b) < 0
	}
	return a.Cmp(b) > 0
}

// branchingVariable returns the integer variable with a fractional value at
// point that occurs in the most constraints active at point. Ties go to the
// smallest index. It returns false if every integer variable is integral.
func (p *Problem) branchingVariable(lp *Problem, point model.Generator) (int, bool) {
	var candidates []int
	for _, v := range p.intVars.Indices() {
		if !point.IsIntegral(v) {
			candidates = append(candidates, v)
		}
	}
	switch len(candidates) {
	case 0:
		return 0, false
	case 1:
		return candidates[0], true
	}
	counts := make([]int, len(candidates))
	for _, c := range lp.inputCS {
		if !c.IsEquality() && !c.IsTightAt(point) {
			continue
		}
		for k, v := range candidates {
			if c.Coefficient(v).Sign() != 0 {
				counts[k]++
			}
		}
	}
	bestK := 0
	for k := range candidates {
		if counts[k] > counts[bestK] {
			bestK = k
		}
	}
	return candidates[bestK], true
}
