package model

import (
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"q.log/mip/internal/ascii"
)

// ConstraintKind is the relation a constraint imposes on its expression.
type ConstraintKind int

const (
	// Equality is e = 0.
	Equality ConstraintKind = iota
	// NonStrictInequality is e >= 0.
	NonStrictInequality
	// StrictInequality is e > 0.
	StrictInequality
)

func (k ConstraintKind) String() string {
	switch k {
	case Equality:
		return "="
	case NonStrictInequality:
		return ">="
	case StrictInequality:
		return ">"
	}
	return "?"
}

// Constraint is a linear expression related to zero. Every relation is
// stored in the "e >= 0" orientation: LessOrEqual(a, b) is b - a >= 0.
type Constraint struct {
	expr LinearExpression
	kind ConstraintKind
}

// NewConstraint returns the constraint "e kind 0".
func NewConstraint(e LinearExpression, kind ConstraintKind) Constraint {
	return Constraint{expr: e, kind: kind}
}

// Equal returns lhs = rhs.
func Equal(lhs, rhs LinearExpression) Constraint {
	return Constraint{expr: lhs.Minus(rhs), kind: Equality}
}

// GreaterOrEqual returns lhs >= rhs.
func GreaterOrEqual(lhs, rhs LinearExpression) Constraint {
	return Constraint{expr: lhs.Minus(rhs), kind: NonStrictInequality}
}

// LessOrEqual returns lhs <= rhs.
func LessOrEqual(lhs, rhs LinearExpression) Constraint {
	return Constraint{expr: rhs.Minus(lhs), kind: NonStrictInequality}
}

// GreaterThan returns lhs > rhs.
func GreaterThan(lhs, rhs LinearExpression) Constraint {
	return Constraint{expr: lhs.Minus(rhs), kind: StrictInequality}
}

// LessThan returns lhs < rhs.
func LessThan(lhs, rhs LinearExpression) Constraint {
	return Constraint{expr: rhs.Minus(lhs), kind: StrictInequality}
}

func (c Constraint) Kind() ConstraintKind         { return c.kind }
func (c Constraint) Expression() LinearExpression { return c.expr }
func (c Constraint) IsEquality() bool             { return c.kind == Equality }
func (c Constraint) IsInequality() bool           { return c.kind != Equality }
func (c Constraint) IsStrictInequality() bool     { return c.kind == StrictInequality }
func (c Constraint) IsNonStrictInequality() bool  { return c.kind == NonStrictInequality }
func (c Constraint) SpaceDimension() int          { return c.expr.SpaceDimension() }
func (c Constraint) Coefficient(v int) *big.Int   { return c.expr.Coefficient(v) }
func (c Constraint) Inhomogeneous() *big.Int      { return c.expr.Inhomogeneous() }

// IsTautological reports whether c holds for every point.
func (c Constraint) IsTautological() bool {
	if !c.expr.AllHomogeneousTermsAreZero() {
		return false
	}
	return c.holds(c.expr.rowOrZero().Sign(0))
}

// IsInconsistent reports whether c holds for no point.
func (c Constraint) IsInconsistent() bool {
	if !c.expr.AllHomogeneousTermsAreZero() {
		return false
	}
	return !c.holds(c.expr.rowOrZero().Sign(0))
}

// holds reports whether a value of the expression with the given sign
// satisfies the relation.
func (c Constraint) holds(sign int) bool {
	switch c.kind {
	case Equality:
		return sign == 0
	case NonStrictInequality:
		return sign >= 0
	default:
		return sign > 0
	}
}

// Evaluate returns the value of the expression at the point g scaled by the
// divisor of g, that is sum(a_i * g_i) + b * divisor. Its sign is the sign
// of the expression at g.
func (c Constraint) Evaluate(g Generator) *big.Int {
	return g.scaledValue(c.expr)
}

// IsSatisfiedBy reports whether the point g satisfies c. Rays and lines
// satisfy c when moving along them keeps c satisfied.
func (c Constraint) IsSatisfiedBy(g Generator) bool {
	v := c.Evaluate(g)
	if g.IsPoint() || g.kind == ClosurePoint {
		if g.kind == ClosurePoint && c.kind == StrictInequality {
			return v.Sign() >= 0
		}
		return c.holds(v.Sign())
	}
	if g.kind == Line || c.kind == Equality {
		return v.Sign() == 0
	}
	return v.Sign() >= 0
}

// IsTightAt reports whether the expression of c is zero at the point g.
func (c Constraint) IsTightAt(g Generator) bool {
	return c.Evaluate(g).Sign() == 0
}

// String prints the constraint as "2*x0 - x1 >= -3".
func (c Constraint) String() string {
	r := c.expr.rowOrZero()
	var sb strings.Builder
	writeTerms(&sb, r, false)
	sb.WriteByte(' ')
	sb.WriteString(c.kind.String())
	sb.WriteByte(' ')
	sb.WriteString(new(big.Int).Neg(r.Get(0)).String())
	return sb.String()
}

// Dump writes c as "kind <expression dump>", with kind one of "=", ">=", ">".
func (c Constraint) Dump(w io.Writer) error {
	if _, err := io.WriteString(w, c.kind.String()+" "); err != nil {
		return errors.Wrap(err, "model: dump constraint")
	}
	return c.expr.Dump(w)
}

// LoadConstraint reads a constraint written by Constraint.Dump.
func LoadConstraint(in *ascii.Reader) (Constraint, error) {
	tok, err := in.Token()
	if err != nil {
		return Constraint{}, err
	}
	var kind ConstraintKind
	switch tok {
	case "=":
		kind = Equality
	case ">=":
		kind = NonStrictInequality
	case ">":
		kind = StrictInequality
	default:
		return Constraint{}, errors.Wrapf(ascii.ErrBadFormat, "unknown constraint kind %q", tok)
	}
	e, err := LoadLinearExpression(in)
	if err != nil {
		return Constraint{}, err
	}
	return Constraint{expr: e, kind: kind}, nil
}

// ConstraintSystem is an ordered sequence of constraints.
type ConstraintSystem []Constraint

// SpaceDimension returns the largest space dimension of its constraints.
func (cs ConstraintSystem) SpaceDimension() int {
	d := 0
	for _, c := range cs {
		d = max(d, c.SpaceDimension())
	}
	return d
}

// HasStrictInequalities reports whether some constraint is strict.
func (cs ConstraintSystem) HasStrictInequalities() bool {
	for _, c := range cs {
		if c.IsStrictInequality() {
			return true
		}
	}
	return false
}

// IsSatisfiedBy reports whether g satisfies every constraint.
func (cs ConstraintSystem) IsSatisfiedBy(g Generator) bool {
	for _, c := range cs {
		if !c.IsSatisfiedBy(g) {
			return false
		}
	}
	return true
}

// Dump writes "constraints N" followed by each constraint.
func (cs ConstraintSystem) Dump(w io.Writer) error {
	if _, err := io.WriteString(w, "constraints "+strconv.Itoa(len(cs))+"\n"); err != nil {
		return errors.Wrap(err, "model: dump constraint system")
	}
	for _, c := range cs {
		if err := c.Dump(w); err != nil {
			return err
		}
	}
	return nil
}

// LoadConstraintSystem reads a system written by ConstraintSystem.Dump.
func LoadConstraintSystem(in *ascii.Reader) (ConstraintSystem, error) {
	if err := in.Expect("constraints"); err != nil {
		return nil, err
	}
	n, err := in.NonNegInt()
	if err != nil {
		return nil, err
	}
	var cs ConstraintSystem
	for range n {
		c, err := LoadConstraint(in)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return cs, nil
}
