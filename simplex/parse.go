package simplex

import (
	"math/big"

	"q.log/mip/model"
	"q.log/mip/tableau"
)

// constraintClass tells how a pending constraint enters the tableau.
type constraintClass int

const (
	// classTrivial constraints have no variable: they are dropped when true
	// and make the problem unsatisfiable when false.
	classTrivial constraintClass = iota
	// classRow constraints become a row.
	classRow
	// classBoundingRow constraints become a row and also force their only
	// variable to be non-negative.
	classBoundingRow
	// classNonNegativity constraints are exactly x >= 0 up to a positive
	// factor and need no row once x has a single column.
	classNonNegativity
)

// classify returns the class of c and, for constraints on a single variable,
// that variable.
func classify(c model.Constraint) (constraintClass, int) {
	e := c.Expression()
	v, n := -1, 0
	var a *big.Int
	e.ForEachNonZero(func(i int, coeff *big.Int) {
		if n == 0 {
			v, a = i, coeff
		}
		n++
	})
	switch {
	case n == 0:
		return classTrivial, -1
	case n > 1:
		return classRow, -1
	}
	sa, sb := a.Sign(), e.Inhomogeneous().Sign()
	if c.IsEquality() {
		// a*x + b = 0 fixes x to -b/a.
		if sb != 0 && sa == sb {
			return classRow, v
		}
		return classBoundingRow, v
	}
	switch {
	case sa < 0, sb > 0:
		return classRow, v
	case sb == 0:
		return classNonNegativity, v
	default:
		return classBoundingRow, v
	}
}

// processPendingConstraints brings every pending constraint and every new
// variable into the tableau. Rows whose basic column cannot be chosen among
// their own slack get an artificial column; their number is returned. It
// returns false if a pending constraint is inconsistent on its own.
func (p *Problem) processPendingConstraints() (artificials int, ok bool) {
	p.resetWorkingCost()
	newDims := p.externalDim - p.internalDim
	newNonNeg := make([]bool, newDims)
	var (
		rows      []model.Constraint
		merge     model.VariableSet
		boundOnly []model.Constraint
	)
	markNonNegative := func(v int) {
		if v >= p.internalDim {
			newNonNeg[v-p.internalDim] = true
		} else if p.mapping[v].mode == splitSign {
			merge.Insert(v)
		}
	}
	for _, c := range p.inputCS[p.firstPending:] {
		class, v := classify(c)
		switch class {
		case classTrivial:
			if c.IsInconsistent() {
				return 0, false
			}
		case classRow:
			rows = append(rows, c)
		case classBoundingRow:
			rows = append(rows, c)
			markNonNegative(v)
		case classNonNegativity:
			if v < p.internalDim && p.mapping[v].mode == splitSign {
				boundOnly = append(boundOnly, c)
			}
			markNonNegative(v)
		}
	}

	for _, v := range merge.Indices() {
		if !p.mergeSplitVariable(v) {
			p.logf("variable x%d is negative at the current vertex, keeping both columns", v)
		}
	}
	for _, c := range boundOnly {
		_, v := classify(c)
		if p.mapping[v].mode == splitSign {
			rows = append(rows, c)
		}
	}

	oldRows := p.tableau.NumRows()
	col := p.tableau.NumColumns()
	for i := range newDims {
		vc := variableColumns{mode: nonNegative, pos: col}
		col++
		if !newNonNeg[i] {
			vc.mode = splitSign
			vc.neg = col
			col++
		}
		p.mapping = append(p.mapping, vc)
	}
	slacks := 0
	for _, c := range rows {
		if c.IsInequality() {
			slacks++
		}
	}
	p.tableau.AddZeroRowsAndColumns(len(rows), col-p.tableau.NumColumns()+slacks, 0)
	p.internalDim = p.externalDim

	var needArtificial []int
	slack := col
	for k, c := range rows {
		i := oldRows + k
		r := p.tableau.Row(i)
		r.Set(0, c.Expression().Inhomogeneous())
		c.Expression().ForEachNonZero(func(v int, a *big.Int) {
			vc := p.mapping[v]
			r.Get(vc.pos).Set(a)
			if vc.mode == splitSign {
				r.Get(vc.neg).Neg(a)
			}
		})
		basic := 0
		if c.IsEquality() {
			p.tableau.SetFlags(i, tableau.EqualityRow)
		} else {
			r.SetInt64(slack, -1)
			basic = slack
			slack++
		}
		for old := range oldRows {
			if b := p.base[old]; r.Sign(b) != 0 {
				r.LinearCombine(p.tableau.Row(old), b)
			}
		}
		r.Normalize()
		if basic != 0 && r.Sign(0) != r.Sign(basic) {
			p.base = append(p.base, basic)
			continue
		}
		if r.Sign(0) > 0 {
			r.Negate()
		}
		p.base = append(p.base, 0)
		needArtificial = append(needArtificial, i)
	}

	if len(needArtificial) > 0 {
		first := p.tableau.NumColumns()
		p.tableau.AddZeroColumns(len(needArtificial))
		for k, i := range needArtificial {
			p.tableau.At(i, first+k).SetInt64(1)
			p.base[i] = first + k
		}
	}
	p.firstPending = len(p.inputCS)
	p.resetWorkingCost()
	p.logf("processed constraints: %d rows, %d columns, %d artificial", p.tableau.NumRows(),
		p.tableau.NumColumns(), len(needArtificial))
	return len(needArtificial), true
}

// mergeSplitVariable gives the split variable v a single column, which is
// possible when v is non-negative at the current vertex. It reports whether
// the merge happened.
func (p *Problem) mergeSplitVariable(v int) bool {
	vc := p.mapping[v]
	values := p.basisValues()
	if values[vc.pos].Cmp(&values[vc.neg]) < 0 {
		return false
	}
	if r := p.basicRow(vc.neg); r >= 0 {
		// x[neg] is basic at value zero: swap it out for x[pos].
		p.pivot(vc.pos, r)
	}
	p.mapping[v] = variableColumns{mode: nonNegative, pos: vc.pos}
	p.removeColumn(vc.neg)
	return true
}

// basicRow returns the row col is basic in, or -1.
func (p *Problem) basicRow(col int) int {
	for i, b := range p.base {
		if b == col {
			return i
		}
	}
	return -1
}

// removeColumn drops the non-basic column col, moving the last column into
// its place.
func (p *Problem) removeColumn(col int) {
	last := p.tableau.NumColumns() - 1
	if col != last {
		cycle := [][]int{{col, last}}
		p.tableau.PermuteColumns(cycle)
		tableau.PermuteEntries(p.workingCost, cycle)
		for i, b := range p.base {
			if b == last {
				p.base[i] = col
			}
		}
		for i := range p.mapping {
			vc := &p.mapping[i]
			if vc.pos == last {
				vc.pos = col
			}
			if vc.mode == splitSign && vc.neg == last {
				vc.neg = col
			}
		}
	}
	p.tableau.RemoveTrailingColumns(1)
	p.resetWorkingCost()
}
