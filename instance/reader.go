// Package instance loads MIP problems from MPS files through GLPK.
package instance

import (
	"math"
	"math/big"
	"runtime"
	"strconv"

	"github.com/lukpank/go-glpk/glpk"
	"github.com/pkg/errors"

	"q.log/mip/model"
	"q.log/mip/simplex"
)

// Source is the view of a problem a Reader builds from. Rows and columns are
// numbered from 1; bounds equal to ±math.MaxFloat64 are absent.
type Source interface {
	NumRows() int
	NumCols() int
	ColName(j int) string
	Maximize() bool
	// ObjCoef(0) is the constant term of the objective.
	ObjCoef(j int) float64
	RowCoefs(i int) (cols []int, vals []float64)
	RowBounds(i int) (lb, ub float64)
	ColBounds(j int) (lb, ub float64)
	IsInteger(j int) bool
}

// Instance is a problem read from a file.
type Instance struct {
	Problem *simplex.Problem
	// Names[v] is the column name of variable v.
	Names []string
	// ObjectiveScale is the positive factor the objective was multiplied by
	// to make its coefficients integers.
	ObjectiveScale *big.Rat
}

// Reader reads MPS files.
type Reader struct {
	filename string
}

func NewReader(filename string) *Reader {
	return &Reader{
		filename: filename,
	}
}

// Read parses the file in fixed MPS format.
func (r *Reader) Read() (*Instance, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	lp := glpk.New()
	defer lp.Delete()
	if err := lp.ReadMPS(glpk.MPS_FILE, nil, r.filename); err != nil {
		return nil, errors.Wrapf(err, "instance: read %s", r.filename)
	}
	return Build(glpkSource{lp})
}

// Build turns src into a problem over NumCols variables. Finite row and
// column bounds become constraints, integer columns become integer
// variables, and every coefficient is converted to an exact rational from
// its shortest decimal representation.
func Build(src Source) (*Instance, error) {
	n := src.NumCols()
	p, err := simplex.NewProblem(n)
	if err != nil {
		return nil, err
	}
	inst := &Instance{Problem: p, Names: make([]string, n)}

	coeffs := make([]*big.Rat, n)
	for i := 1; i <= src.NumRows(); i++ {
		clear(coeffs)
		cols, vals := src.RowCoefs(i)
		for k, j := range cols {
			if j < 1 || j > n {
				return nil, errors.Errorf("instance: row %d references column %d of %d", i, j, n)
			}
			if coeffs[j-1], err = toRat(vals[k]); err != nil {
				return nil, errors.Wrapf(err, "instance: row %d", i)
			}
		}
		lb, ub := src.RowBounds(i)
		if err := addBounded(p, coeffs, lb, ub); err != nil {
			return nil, errors.Wrapf(err, "instance: row %d", i)
		}
	}

	var ints model.VariableSet
	for j := 1; j <= n; j++ {
		inst.Names[j-1] = src.ColName(j)
		clear(coeffs)
		coeffs[j-1] = big.NewRat(1, 1)
		lb, ub := src.ColBounds(j)
		if err := addBounded(p, coeffs[:j], lb, ub); err != nil {
			return nil, errors.Wrapf(err, "instance: column %d", j)
		}
		if src.IsInteger(j) {
			ints.Insert(j - 1)
		}
	}
	if err := p.AddToIntegerSpaceDimensions(ints); err != nil {
		return nil, err
	}

	clear(coeffs)
	for j := 1; j <= n; j++ {
		if coeffs[j-1], err = toRat(src.ObjCoef(j)); err != nil {
			return nil, errors.Wrapf(err, "instance: objective column %d", j)
		}
	}
	constant, err := toRat(src.ObjCoef(0))
	if err != nil {
		return nil, errors.Wrap(err, "instance: objective constant")
	}
	obj, scale := model.ScaleToIntegers(coeffs, constant)
	if err := p.SetObjectiveFunction(obj); err != nil {
		return nil, err
	}
	inst.ObjectiveScale = scale
	if src.Maximize() {
		p.SetOptimizationMode(simplex.Maximization)
	} else {
		p.SetOptimizationMode(simplex.Minimization)
	}
	return inst, nil
}

// addBounded adds lb <= coeffs·x <= ub, skipping infinite bounds.
func addBounded(p *simplex.Problem, coeffs []*big.Rat, lb, ub float64) error {
	hasLB, hasUB := lb > -math.MaxFloat64, ub < math.MaxFloat64
	if hasLB && hasUB && lb == ub {
		return addRelation(p, coeffs, lb, model.Equality, false)
	}
	if hasLB {
		if err := addRelation(p, coeffs, lb, model.NonStrictInequality, false); err != nil {
			return err
		}
	}
	if hasUB {
		return addRelation(p, coeffs, ub, model.NonStrictInequality, true)
	}
	return nil
}

// addRelation adds coeffs·x - rhs (kind) 0, or rhs - coeffs·x (kind) 0 when
// flip is set.
func addRelation(p *simplex.Problem, coeffs []*big.Rat, rhs float64, kind model.ConstraintKind, flip bool) error {
	b, err := toRat(rhs)
	if err != nil {
		return err
	}
	b.Neg(b)
	e, _ := model.ScaleToIntegers(coeffs, b)
	if flip {
		e = e.Negate()
	}
	return p.AddConstraint(model.NewConstraint(e, kind))
}

func toRat(f float64) (*big.Rat, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, errors.Errorf("instance: non-finite coefficient %v", f)
	}
	q, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if !ok {
		return nil, errors.Errorf("instance: cannot convert %v", f)
	}
	return q, nil
}

// glpkSource adapts a GLPK problem object.
type glpkSource struct {
	lp *glpk.Prob
}

func (s glpkSource) NumRows() int          { return s.lp.NumRows() }
func (s glpkSource) NumCols() int          { return s.lp.NumCols() }
func (s glpkSource) ColName(j int) string  { return s.lp.ColName(j) }
func (s glpkSource) Maximize() bool        { return s.lp.ObjDir() == glpk.MAX }
func (s glpkSource) ObjCoef(j int) float64 { return s.lp.ObjCoef(j) }
func (s glpkSource) IsInteger(j int) bool  { return s.lp.ColKind(j) != glpk.CV }

func (s glpkSource) RowCoefs(i int) ([]int, []float64) {
	idxs, row := s.lp.MatRow(i)
	cols := make([]int, 0, len(idxs))
	vals := make([]float64, 0, len(idxs))
	for k, j := range idxs {
		// GLPK leaves index 0 unused.
		if j == 0 {
			continue
		}
		cols = append(cols, int(j))
		vals = append(vals, row[k])
	}
	return cols, vals
}

func (s glpkSource) RowBounds(i int) (float64, float64) { return s.lp.RowLB(i), s.lp.RowUB(i) }
func (s glpkSource) ColBounds(j int) (float64, float64) { return s.lp.ColLB(j), s.lp.ColUB(j) }
