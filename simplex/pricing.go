package simplex

import (
	"math/big"

	"gonum.org/v1/gonum/floats"
)

// textbookEnteringIndex returns the first improving column, or 0.
func (p *Problem) textbookEnteringIndex() int {
	for j := 1; j < p.tableau.NumColumns(); j++ {
		if p.improving(j) {
			return j
		}
	}
	return 0
}

// steepestEdgeExactEnteringIndex returns the improving column j maximizing
//
//	cost[j]^2 / (1 + sum_i (t[i][j] / t[i][base[i]])^2)
//
// computed exactly, or 0. Every term is scaled by the square of the LCM of
// the basic coefficients so only integers are compared.
func (p *Problem) steepestEdgeExactEnteringIndex() int {
	rows := p.tableau.NumRows()
	lcm := big.NewInt(1)
	var g, tmp big.Int
	for i, b := range p.base {
		tmp.Abs(p.tableau.At(i, b))
		g.GCD(nil, nil, lcm, &tmp)
		lcm.Mul(lcm, tmp.Quo(&tmp, &g))
	}
	factors := make([]big.Int, rows)
	for i, b := range p.base {
		factors[i].Quo(lcm, p.tableau.At(i, b))
	}
	var squaredLCM big.Int
	squaredLCM.Mul(lcm, lcm)

	entering := 0
	var bestNum, bestDen, num, den, lhs, rhs big.Int
	for j := 1; j < p.tableau.NumColumns(); j++ {
		if !p.improving(j) {
			continue
		}
		den.Set(&squaredLCM)
		for i := range rows {
			if t := p.tableau.At(i, j); t.Sign() != 0 {
				tmp.Mul(t, &factors[i])
				den.Add(&den, tmp.Mul(&tmp, &tmp))
			}
		}
		c := p.workingCost.Get(j)
		num.Mul(c, c)
		if entering != 0 {
			lhs.Mul(&num, &bestDen)
			rhs.Mul(&bestNum, &den)
			if lhs.Cmp(&rhs) <= 0 {
				continue
			}
		}
		entering = j
		bestNum.Set(&num)
		bestDen.Set(&den)
	}
	return entering
}

// steepestEdgeFloatEnteringIndex approximates the exact steepest edge rule
// with float64 arithmetic.
func (p *Problem) steepestEdgeFloatEnteringIndex() int {
	rows := p.tableau.NumRows()
	basic := make([]float64, rows)
	for i, b := range p.base {
		basic[i] = toFloat(p.tableau.At(i, b))
	}
	ratios := make([]float64, 0, rows)
	entering := 0
	best := 0.0
	for j := 1; j < p.tableau.NumColumns(); j++ {
		if !p.improving(j) {
			continue
		}
		ratios = ratios[:0]
		for i := range rows {
			if t := p.tableau.At(i, j); t.Sign() != 0 {
				ratios = append(ratios, toFloat(t)/basic[i])
			}
		}
		c := toFloat(p.workingCost.Get(j))
		value := c * c / (1 + floats.Dot(ratios, ratios))
		if entering == 0 || value > best {
			entering = j
			best = value
		}
	}
	return entering
}

func toFloat(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
