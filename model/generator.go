package model

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"q.log/mip/internal/ascii"
	"q.log/mip/tableau"
)

// GeneratorKind tells points from rays and lines. The zero kind belongs to
// the zero Generator, which is none of them.
type GeneratorKind int

const (
	Point GeneratorKind = iota + 1
	ClosurePoint
	Ray
	Line
)

func (k GeneratorKind) String() string {
	switch k {
	case Point:
		return "p"
	case ClosurePoint:
		return "c"
	case Ray:
		return "r"
	case Line:
		return "l"
	}
	return "?"
}

// Generator is a point, closure point, ray or line. Points and closure points
// are rational: the coordinate of x_i is Coefficient(i) / Divisor(). The
// representation is kept in lowest terms with a positive divisor.
type Generator struct {
	kind    GeneratorKind
	coeffs  tableau.Row // coeffs[i] is the numerator of coordinate i
	divisor *big.Int    // 1 for rays and lines
}

// NewPoint returns the point e/divisor. The constant term of e is ignored.
func NewPoint(e LinearExpression, divisor *big.Int) (Generator, error) {
	return newPointLike(Point, e, divisor)
}

// NewClosurePoint returns the closure point e/divisor.
func NewClosurePoint(e LinearExpression, divisor *big.Int) (Generator, error) {
	return newPointLike(ClosurePoint, e, divisor)
}

// Int64Point returns the point (coords[0], ..., coords[n-1]) / divisor.
func Int64Point(divisor int64, coords ...int64) (Generator, error) {
	return NewPoint(Int64Expression(0, coords...), big.NewInt(divisor))
}

// Origin returns the point of the given dimension with zero coordinates.
func Origin(dim int) Generator {
	return Generator{kind: Point, coeffs: tableau.NewRow(dim), divisor: big.NewInt(1)}
}

func newPointLike(kind GeneratorKind, e LinearExpression, divisor *big.Int) (Generator, error) {
	if divisor == nil || divisor.Sign() == 0 {
		return Generator{}, errors.Wrap(ErrInvalidArgument, "point with zero divisor")
	}
	g := Generator{kind: kind, coeffs: homogeneousPart(e), divisor: new(big.Int).Set(divisor)}
	g.normalize()
	return g, nil
}

// NewRay returns the ray with direction e. The direction must not be zero.
func NewRay(e LinearExpression) (Generator, error) {
	return newDirection(Ray, e)
}

// NewLine returns the line with direction e. The direction must not be zero.
func NewLine(e LinearExpression) (Generator, error) {
	return newDirection(Line, e)
}

func newDirection(kind GeneratorKind, e LinearExpression) (Generator, error) {
	if e.AllHomogeneousTermsAreZero() {
		return Generator{}, errors.Wrapf(ErrInvalidArgument, "%s with zero direction", kind)
	}
	g := Generator{kind: kind, coeffs: homogeneousPart(e), divisor: big.NewInt(1)}
	g.coeffs.Normalize()
	return g, nil
}

func homogeneousPart(e LinearExpression) tableau.Row {
	r := e.rowOrZero()
	return r[1:].Clone()
}

// normalize reduces the point to lowest terms with a positive divisor.
func (g *Generator) normalize() {
	if g.divisor.Sign() < 0 {
		g.divisor.Neg(g.divisor)
		g.coeffs.Negate()
	}
	var gcd big.Int
	g.coeffs.Gcd(&gcd)
	gcd.GCD(nil, nil, &gcd, g.divisor)
	if gcd.IsInt64() && gcd.Int64() == 1 {
		return
	}
	for i := range g.coeffs {
		g.coeffs[i].Quo(&g.coeffs[i], &gcd)
	}
	g.divisor.Quo(g.divisor, &gcd)
}

func (g Generator) Kind() GeneratorKind  { return g.kind }
func (g Generator) IsPoint() bool        { return g.kind == Point }
func (g Generator) IsClosurePoint() bool { return g.kind == ClosurePoint }
func (g Generator) IsRay() bool          { return g.kind == Ray }
func (g Generator) IsLine() bool         { return g.kind == Line }
func (g Generator) SpaceDimension() int  { return len(g.coeffs) }

// Coefficient returns a copy of the numerator of coordinate v.
func (g Generator) Coefficient(v int) *big.Int {
	if v < 0 || v >= len(g.coeffs) {
		return new(big.Int)
	}
	return new(big.Int).Set(g.coeffs.Get(v))
}

// Divisor returns a copy of the divisor. It is 1 for rays and lines.
func (g Generator) Divisor() *big.Int {
	if g.divisor == nil {
		return big.NewInt(1)
	}
	return new(big.Int).Set(g.divisor)
}

// Value returns coordinate v as a rational number.
func (g Generator) Value(v int) *big.Rat {
	return new(big.Rat).SetFrac(g.Coefficient(v), g.Divisor())
}

// IsIntegral reports whether coordinate v is an integer.
func (g Generator) IsIntegral(v int) bool {
	d := g.Divisor()
	var gcd big.Int
	gcd.GCD(nil, nil, g.Coefficient(v), d)
	return gcd.Cmp(d) == 0
}

// scaledValue returns sum(a_i * g_i) + b * divisor.
func (g Generator) scaledValue(e LinearExpression) *big.Int {
	r := e.rowOrZero()
	v := new(big.Int)
	if g.kind == Point || g.kind == ClosurePoint {
		v.Mul(r.Get(0), g.Divisor())
	}
	var tmp big.Int
	for i := 1; i < len(r) && i-1 < len(g.coeffs); i++ {
		if r.Sign(i) != 0 {
			v.Add(v, tmp.Mul(r.Get(i), g.coeffs.Get(i-1)))
		}
	}
	return v
}

// Evaluate returns the value of e at the point g as num/den, in lowest terms
// with den > 0.
func (e LinearExpression) Evaluate(g Generator) (num, den *big.Int) {
	num = g.scaledValue(e)
	den = g.Divisor()
	var gcd big.Int
	gcd.GCD(nil, nil, new(big.Int).Abs(num), den)
	if gcd.Sign() != 0 {
		num.Quo(num, &gcd)
		den.Quo(den, &gcd)
	}
	return num, den
}

// Equal reports whether g and o are the same generator.
func (g Generator) Equal(o Generator) bool {
	if g.kind != o.kind || g.Divisor().Cmp(o.Divisor()) != 0 {
		return false
	}
	n := max(len(g.coeffs), len(o.coeffs))
	for i := range n {
		if g.Coefficient(i).Cmp(o.Coefficient(i)) != 0 {
			return false
		}
	}
	return true
}

// String prints points as "p((x0 + 2*x1)/3)", rays as "r(x0)" and so on.
func (g Generator) String() string {
	var sb strings.Builder
	r := tableau.NewRow(len(g.coeffs) + 1)
	for i := range g.coeffs {
		r.Set(i+1, g.coeffs.Get(i))
	}
	writeTerms(&sb, r, false)
	body := sb.String()
	d := g.Divisor()
	if (g.kind == Point || g.kind == ClosurePoint) && !(d.IsInt64() && d.Int64() == 1) {
		if strings.ContainsAny(body, "+ ") {
			body = "(" + body + ")"
		}
		body += "/" + d.String()
	}
	return g.kind.String() + "(" + body + ")"
}

// Dump writes g as "kind divisor D size N c0 ... cN-1".
func (g Generator) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s divisor %s ", g.kind, g.Divisor()); err != nil {
		return errors.Wrap(err, "model: dump generator")
	}
	return g.coeffs.Dump(w)
}

// LoadGenerator reads a generator written by Generator.Dump.
func LoadGenerator(in *ascii.Reader) (Generator, error) {
	tok, err := in.Token()
	if err != nil {
		return Generator{}, err
	}
	var g Generator
	switch tok {
	case "p":
		g.kind = Point
	case "c":
		g.kind = ClosurePoint
	case "r":
		g.kind = Ray
	case "l":
		g.kind = Line
	default:
		return Generator{}, errors.Wrapf(ascii.ErrBadFormat, "unknown generator kind %q", tok)
	}
	if err := in.Expect("divisor"); err != nil {
		return Generator{}, err
	}
	g.divisor = new(big.Int)
	if err := in.BigInt(g.divisor); err != nil {
		return Generator{}, err
	}
	if g.divisor.Sign() <= 0 {
		return Generator{}, errors.Wrap(ascii.ErrBadFormat, "non-positive generator divisor")
	}
	if g.coeffs, err = tableau.LoadRow(in); err != nil {
		return Generator{}, err
	}
	return g, nil
}
