// Package model holds the value types a MIP problem is described with:
// linear expressions, constraints on them, generators (points, rays, lines)
// and sets of variable indices.
//
// All coefficients are arbitrary-precision integers. Values are immutable:
// every operation returns a new value.
package model

import (
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"q.log/mip/internal/ascii"
	"q.log/mip/tableau"
)

// ErrInvalidArgument is returned (wrapped) by constructors given malformed
// input.
var ErrInvalidArgument = errors.New("model: invalid argument")

// LinearExpression is sum(a_i * x_i) + b. The coefficient of every variable
// whose index is not below SpaceDimension() is zero.
//
// The zero value is the constant 0.
type LinearExpression struct {
	// row[0] is b, row[i+1] is a_i.
	row tableau.Row
}

// Var returns the expression 1*x_i.
func Var(i int) LinearExpression {
	if i < 0 {
		panic("model: negative variable index")
	}
	r := tableau.NewRow(i + 2)
	r.SetInt64(i+1, 1)
	return LinearExpression{row: r}
}

// Constant returns the expression b.
func Constant(b int64) LinearExpression {
	r := tableau.NewRow(1)
	r.SetInt64(0, b)
	return LinearExpression{row: r}
}

// ConstantBig returns the expression b.
func ConstantBig(b *big.Int) LinearExpression {
	r := tableau.NewRow(1)
	r.Set(0, b)
	return LinearExpression{row: r}
}

// Int64Expression returns coeffs[0]*x_0 + ... + coeffs[n-1]*x_n-1 + b.
func Int64Expression(b int64, coeffs ...int64) LinearExpression {
	r := tableau.NewRow(len(coeffs) + 1)
	r.SetInt64(0, b)
	for i, c := range coeffs {
		r.SetInt64(i+1, c)
	}
	return LinearExpression{row: r}
}

// NewLinearExpression returns sum(coeffs[i] * x_i) + b. Nil entries count as
// zero; a nil b is zero.
func NewLinearExpression(coeffs []*big.Int, b *big.Int) LinearExpression {
	r := tableau.NewRow(len(coeffs) + 1)
	if b != nil {
		r.Set(0, b)
	}
	for i, c := range coeffs {
		if c != nil {
			r.Set(i+1, c)
		}
	}
	return LinearExpression{row: r}
}

// ScaleToIntegers returns an integer expression with the same solutions as
// sum(coeffs[i] * x_i) + b = 0: the rational coefficients are multiplied by
// the LCM of their denominators and the result is reduced by its GCD. The
// returned factor is the positive rational the input was multiplied by.
func ScaleToIntegers(coeffs []*big.Rat, b *big.Rat) (LinearExpression, *big.Rat) {
	lcm := big.NewInt(1)
	var g big.Int
	lcmWith := func(q *big.Rat) {
		if q == nil || q.Sign() == 0 {
			return
		}
		d := q.Denom()
		g.GCD(nil, nil, lcm, d)
		lcm.Mul(lcm, new(big.Int).Quo(d, &g))
	}
	lcmWith(b)
	for _, c := range coeffs {
		lcmWith(c)
	}
	r := tableau.NewRow(len(coeffs) + 1)
	scaled := func(dst *big.Int, q *big.Rat) {
		if q == nil {
			return
		}
		dst.Mul(q.Num(), lcm)
		dst.Quo(dst, q.Denom())
	}
	scaled(r.Get(0), b)
	for i, c := range coeffs {
		scaled(r.Get(i+1), c)
	}
	r.Gcd(&g)
	factor := new(big.Rat).SetInt(lcm)
	if g.Sign() != 0 && !(g.IsInt64() && g.Int64() == 1) {
		r.Normalize()
		factor.Quo(factor, new(big.Rat).SetInt(&g))
	}
	return LinearExpression{row: r}, factor
}

func (e LinearExpression) rowOrZero() tableau.Row {
	if len(e.row) == 0 {
		return tableau.NewRow(1)
	}
	return e.row
}

// SpaceDimension returns one plus the largest variable index the expression
// stores a coefficient for.
func (e LinearExpression) SpaceDimension() int {
	if len(e.row) == 0 {
		return 0
	}
	return len(e.row) - 1
}

// Coefficient returns a copy of the coefficient of x_v.
func (e LinearExpression) Coefficient(v int) *big.Int {
	if v < 0 || v+1 >= len(e.row) {
		return new(big.Int)
	}
	return new(big.Int).Set(e.row.Get(v + 1))
}

// Inhomogeneous returns a copy of the constant term.
func (e LinearExpression) Inhomogeneous() *big.Int {
	if len(e.row) == 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(e.row.Get(0))
}

// ForEachNonZero calls fn for every variable with a nonzero coefficient, in
// increasing index order. fn must not modify c.
func (e LinearExpression) ForEachNonZero(fn func(v int, c *big.Int)) {
	for i := 1; i < len(e.row); i++ {
		if e.row.Sign(i) != 0 {
			fn(i-1, e.row.Get(i))
		}
	}
}

// NonZeroVariables returns the indices of the variables with a nonzero
// coefficient.
func (e LinearExpression) NonZeroVariables() []int {
	var vs []int
	e.ForEachNonZero(func(v int, _ *big.Int) { vs = append(vs, v) })
	return vs
}

// AllHomogeneousTermsAreZero reports whether every variable coefficient is 0.
func (e LinearExpression) AllHomogeneousTermsAreZero() bool {
	for i := 1; i < len(e.row); i++ {
		if e.row.Sign(i) != 0 {
			return false
		}
	}
	return true
}

// IsZero reports whether e is the constant 0.
func (e LinearExpression) IsZero() bool {
	return e.row.IsZero()
}

// WithCoefficient returns e with the coefficient of x_v replaced by c.
func (e LinearExpression) WithCoefficient(v int, c *big.Int) LinearExpression {
	if v < 0 {
		panic("model: negative variable index")
	}
	r := e.rowOrZero().Clone().Resize(max(len(e.row), v+2))
	r.Set(v+1, c)
	return LinearExpression{row: r}
}

// Plus returns e + o.
func (e LinearExpression) Plus(o LinearExpression) LinearExpression {
	return e.combine(o, false)
}

// Minus returns e - o.
func (e LinearExpression) Minus(o LinearExpression) LinearExpression {
	return e.combine(o, true)
}

func (e LinearExpression) combine(o LinearExpression, sub bool) LinearExpression {
	a, b := e.rowOrZero(), o.rowOrZero()
	r := a.Clone().Resize(max(len(a), len(b)))
	for i := range b {
		if sub {
			r[i].Sub(&r[i], &b[i])
		} else {
			r[i].Add(&r[i], &b[i])
		}
	}
	return LinearExpression{row: r}
}

// PlusConstant returns e + b.
func (e LinearExpression) PlusConstant(b int64) LinearExpression {
	return e.Plus(Constant(b))
}

// Times returns k*e.
func (e LinearExpression) Times(k int64) LinearExpression {
	return e.TimesBig(big.NewInt(k))
}

// TimesBig returns k*e.
func (e LinearExpression) TimesBig(k *big.Int) LinearExpression {
	r := e.rowOrZero().Clone()
	r.Scale(k)
	return LinearExpression{row: r}
}

// Negate returns -e.
func (e LinearExpression) Negate() LinearExpression {
	r := e.rowOrZero().Clone()
	r.Negate()
	return LinearExpression{row: r}
}

// Equal reports whether e and o denote the same expression, regardless of
// trailing zero coefficients.
func (e LinearExpression) Equal(o LinearExpression) bool {
	a, b := e.rowOrZero(), o.rowOrZero()
	if len(a) < len(b) {
		a, b = b, a
	}
	for i := range a {
		if i < len(b) {
			if a[i].Cmp(&b[i]) != 0 {
				return false
			}
		} else if a[i].Sign() != 0 {
			return false
		}
	}
	return true
}

func (e LinearExpression) String() string {
	var sb strings.Builder
	writeTerms(&sb, e.rowOrZero(), true)
	return sb.String()
}

// writeTerms prints "2*x0 - x1 + 3". A zero expression prints as "0".
func writeTerms(sb *strings.Builder, r tableau.Row, withConstant bool) {
	first := true
	var abs big.Int
	term := func(c *big.Int, name string) {
		abs.Abs(c)
		switch {
		case first && c.Sign() < 0:
			sb.WriteByte('-')
		case !first && c.Sign() < 0:
			sb.WriteString(" - ")
		case !first:
			sb.WriteString(" + ")
		}
		first = false
		if name == "" {
			sb.WriteString(abs.String())
			return
		}
		if !(abs.IsInt64() && abs.Int64() == 1) {
			sb.WriteString(abs.String())
			sb.WriteByte('*')
		}
		sb.WriteString(name)
	}
	for i := 1; i < len(r); i++ {
		if r.Sign(i) != 0 {
			term(r.Get(i), variableName(i-1))
		}
	}
	if withConstant && r.Sign(0) != 0 {
		term(r.Get(0), "")
	}
	if first {
		sb.WriteByte('0')
	}
}

func variableName(v int) string {
	return "x" + strconv.Itoa(v)
}

// Dump writes e in the tableau row format.
func (e LinearExpression) Dump(w io.Writer) error {
	return e.rowOrZero().Dump(w)
}

// LoadLinearExpression reads an expression written by LinearExpression.Dump.
func LoadLinearExpression(in *ascii.Reader) (LinearExpression, error) {
	r, err := tableau.LoadRow(in)
	if err != nil {
		return LinearExpression{}, err
	}
	if len(r) == 0 {
		return LinearExpression{}, errors.Wrap(ascii.ErrBadFormat, "empty linear expression")
	}
	return LinearExpression{row: r}, nil
}
