package simplex

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"q.log/mip/internal/ascii"
	"q.log/mip/model"
	"q.log/mip/tableau"
)

// dumpWriter remembers the first write error so a dump can be written
// without checking every line.
type dumpWriter struct {
	w   io.Writer
	err error
}

func (d *dumpWriter) printf(format string, args ...any) {
	if d.err == nil {
		_, d.err = fmt.Fprintf(d.w, format, args...)
	}
}

func (d *dumpWriter) dump(f func(io.Writer) error) {
	if d.err == nil {
		d.err = f(d.w)
	}
}

// Dump writes the full state of p, tableau included, in a form Load reads
// back. The logger is not part of the dump.
func (p *Problem) Dump(w io.Writer) error {
	d := &dumpWriter{w: w}
	d.printf("external_space_dim %d\n", p.externalDim)
	d.printf("internal_space_dim %d\n", p.internalDim)
	d.printf("input_cs ")
	d.dump(p.inputCS.Dump)
	d.printf("first_pending_constraint %d\n", p.firstPending)
	d.printf("objective ")
	d.dump(p.objective.Dump)
	d.printf("mode %v\n", p.mode)
	d.printf("pricing %v\n", p.pricing)
	d.printf("status %v\n", p.status)
	d.printf("lp_feasible %t lp_infeasible %t\n", p.lpFeasible, p.lpInfeasible)
	d.printf("integer_variables ")
	d.dump(p.intVars.Dump)
	d.printf("tableau ")
	d.dump(p.tableau.Dump)
	d.printf("working_cost ")
	d.dump(p.workingCost.Dump)
	d.printf("base %d", len(p.base))
	for _, b := range p.base {
		d.printf(" %d", b)
	}
	d.printf("\nmapping %d\n", len(p.mapping))
	for _, vc := range p.mapping {
		if vc.mode == splitSign {
			d.printf("split %d %d\n", vc.pos, vc.neg)
		} else {
			d.printf("nonneg %d\n", vc.pos)
		}
	}
	d.printf("last_generator ")
	d.dump(p.lastGenerator.Dump)
	return errors.Wrap(d.err, "simplex: dump")
}

// Load reads a problem written by Dump.
func Load(r io.Reader) (*Problem, error) {
	in := ascii.NewReader(r)
	p := &Problem{}
	if err := p.load(in); err != nil {
		return nil, err
	}
	if !p.OK() {
		return nil, errors.Wrap(ascii.ErrBadFormat, "simplex: loaded problem is inconsistent")
	}
	return p, nil
}

func (p *Problem) load(in *ascii.Reader) error {
	var err error
	if err = in.Expect("external_space_dim"); err != nil {
		return err
	}
	if p.externalDim, err = in.NonNegInt(); err != nil {
		return err
	}
	if p.externalDim > MaxSpaceDimension {
		return errors.Wrapf(ascii.ErrBadFormat, "space dimension %d exceeds %d", p.externalDim, MaxSpaceDimension)
	}
	if err = in.Expect("internal_space_dim"); err != nil {
		return err
	}
	if p.internalDim, err = in.NonNegInt(); err != nil {
		return err
	}
	if err = in.Expect("input_cs"); err != nil {
		return err
	}
	if p.inputCS, err = model.LoadConstraintSystem(in); err != nil {
		return err
	}
	if err = in.Expect("first_pending_constraint"); err != nil {
		return err
	}
	if p.firstPending, err = in.NonNegInt(); err != nil {
		return err
	}
	if err = in.Expect("objective"); err != nil {
		return err
	}
	if p.objective, err = model.LoadLinearExpression(in); err != nil {
		return err
	}
	if err = in.Expect("mode"); err != nil {
		return err
	}
	if p.mode, err = loadEnum(in, Maximization, Minimization); err != nil {
		return err
	}
	if err = in.Expect("pricing"); err != nil {
		return err
	}
	if p.pricing, err = loadEnum(in, PricingSteepestEdgeFloat, PricingSteepestEdgeExact, PricingTextbook); err != nil {
		return err
	}
	if err = in.Expect("status"); err != nil {
		return err
	}
	if p.status, err = loadEnum(in, unsatisfiable, satisfiable, unbounded, optimized, partiallySatisfiable); err != nil {
		return err
	}
	if err = in.Expect("lp_feasible"); err != nil {
		return err
	}
	if p.lpFeasible, err = in.Bool(); err != nil {
		return err
	}
	if err = in.Expect("lp_infeasible"); err != nil {
		return err
	}
	if p.lpInfeasible, err = in.Bool(); err != nil {
		return err
	}
	if err = in.Expect("integer_variables"); err != nil {
		return err
	}
	if p.intVars, err = model.LoadVariableSet(in); err != nil {
		return err
	}
	if err = in.Expect("tableau"); err != nil {
		return err
	}
	if p.tableau, err = tableau.LoadMatrix(in); err != nil {
		return err
	}
	if err = in.Expect("working_cost"); err != nil {
		return err
	}
	if p.workingCost, err = tableau.LoadRow(in); err != nil {
		return err
	}
	if err = in.Expect("base"); err != nil {
		return err
	}
	n, err := in.NonNegInt()
	if err != nil {
		return err
	}
	p.base = make([]int, n)
	for i := range p.base {
		if p.base[i], err = in.NonNegInt(); err != nil {
			return err
		}
	}
	if err = in.Expect("mapping"); err != nil {
		return err
	}
	if n, err = in.NonNegInt(); err != nil {
		return err
	}
	p.mapping = make([]variableColumns, n)
	for i := range p.mapping {
		vc := &p.mapping[i]
		tok, err := in.Token()
		if err != nil {
			return err
		}
		switch tok {
		case "split":
			vc.mode = splitSign
		case "nonneg":
			vc.mode = nonNegative
		default:
			return errors.Wrapf(ascii.ErrBadFormat, "unknown column mapping %q", tok)
		}
		if vc.pos, err = in.NonNegInt(); err != nil {
			return err
		}
		if vc.mode == splitSign {
			if vc.neg, err = in.NonNegInt(); err != nil {
				return err
			}
		}
	}
	if err = in.Expect("last_generator"); err != nil {
		return err
	}
	p.lastGenerator, err = model.LoadGenerator(in)
	return err
}

// loadEnum reads a token and returns the value among values that prints as
// it.
func loadEnum[T fmt.Stringer](in *ascii.Reader, values ...T) (T, error) {
	tok, err := in.Token()
	if err != nil {
		var zero T
		return zero, err
	}
	for _, v := range values {
		if v.String() == tok {
			return v, nil
		}
	}
	var zero T
	return zero, errors.Wrapf(ascii.ErrBadFormat, "unexpected value %q", tok)
}
