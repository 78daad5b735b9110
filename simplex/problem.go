// Package simplex solves mixed integer linear programs exactly.
//
// A Problem holds a growing system of equalities and non-strict inequalities
// over rational variables, a linear objective, an optimization mode and a
// set of variables constrained to integer values. Relaxations are solved by
// a two-phase revised simplex over an integer tableau; integer variables are
// handled by branch and bound. Constraints are absorbed incrementally so a
// problem can be re-solved cheaply after new constraints are added.
package simplex

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/big"
	"slices"

	"github.com/pkg/errors"

	"q.log/mip/model"
	"q.log/mip/tableau"
)

// MaxSpaceDimension is the largest supported number of variables. Each
// variable may take two tableau columns.
const MaxSpaceDimension = (math.MaxInt32 - 2) / 2

// OptimizationMode selects the direction of optimization.
type OptimizationMode int

const (
	Maximization OptimizationMode = iota
	Minimization
)

func (m OptimizationMode) String() string {
	if m == Minimization {
		return "MINIMIZATION"
	}
	return "MAXIMIZATION"
}

// ProblemStatus is the outcome of Solve.
type ProblemStatus int

const (
	// UnfeasibleProblem means no point satisfies the constraints.
	UnfeasibleProblem ProblemStatus = iota
	// UnboundedProblem means the objective is unbounded in the optimization
	// direction.
	UnboundedProblem
	// OptimizedProblem means an optimum was found.
	OptimizedProblem
)

func (s ProblemStatus) String() string {
	switch s {
	case UnfeasibleProblem:
		return "UNFEASIBLE"
	case UnboundedProblem:
		return "UNBOUNDED"
	case OptimizedProblem:
		return "OPTIMIZED"
	}
	return fmt.Sprintf("ProblemStatus(%d)", int(s))
}

// ControlParameterName names a tunable of the solver.
type ControlParameterName int

const (
	// Pricing selects the rule choosing the entering column.
	Pricing ControlParameterName = iota
)

// ControlParameterValue is a value of a control parameter.
type ControlParameterValue int

const (
	// PricingSteepestEdgeFloat approximates steepest edge with float64 norms.
	PricingSteepestEdgeFloat ControlParameterValue = iota
	// PricingSteepestEdgeExact computes steepest edge norms exactly.
	PricingSteepestEdgeExact
	// PricingTextbook takes the first improving column.
	PricingTextbook
)

func (v ControlParameterValue) String() string {
	switch v {
	case PricingSteepestEdgeFloat:
		return "STEEPEST_EDGE_FLOAT"
	case PricingSteepestEdgeExact:
		return "STEEPEST_EDGE_EXACT"
	case PricingTextbook:
		return "TEXTBOOK"
	}
	return fmt.Sprintf("ControlParameterValue(%d)", int(v))
}

// status tracks what is known about the problem.
type status int

const (
	unsatisfiable status = iota
	satisfiable
	unbounded
	optimized
	// partiallySatisfiable means nothing is known about constraints added
	// since the last solve.
	partiallySatisfiable
)

func (s status) String() string {
	switch s {
	case unsatisfiable:
		return "UNSATISFIABLE"
	case satisfiable:
		return "SATISFIABLE"
	case unbounded:
		return "UNBOUNDED"
	case optimized:
		return "OPTIMIZED"
	case partiallySatisfiable:
		return "PARTIALLY_SATISFIABLE"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type signMode uint8

const (
	nonNegative signMode = iota
	splitSign
)

// variableColumns locates a problem variable in the tableau. A variable known
// to be non-negative owns the single column pos; any other variable is
// x = x[pos] - x[neg].
type variableColumns struct {
	mode signMode
	pos  int
	neg  int
}

// Problem is a mixed integer linear program. The zero value is not usable;
// use NewProblem or NewProblemWith.
//
// A Problem is not safe for concurrent use. Clone it to solve variants in
// parallel.
type Problem struct {
	externalDim int
	// internalDim variables have columns in the tableau.
	internalDim int

	// Row i of the tableau stands for t[i][0] + sum t[i][j]*x_j = 0 where
	// every x_j with j >= 1 is non-negative. base[i] is the basic column of
	// row i.
	tableau *tableau.Matrix
	base    []int
	mapping []variableColumns

	// workingCost has one entry per tableau column plus a trailing scale w:
	// w*f = cost[0] + sum cost[j]*x_j, with f the maximized function.
	workingCost tableau.Row

	status  status
	pricing ControlParameterValue

	inputCS model.ConstraintSystem
	// firstPending is the index of the first constraint of inputCS not yet
	// in the tableau.
	firstPending int

	objective model.LinearExpression
	mode      OptimizationMode
	intVars   model.VariableSet

	lastGenerator model.Generator

	// lpFeasible is set while the basis is primal feasible for every
	// constraint up to firstPending. lpInfeasible records that those
	// constraints have no rational solution.
	lpFeasible   bool
	lpInfeasible bool

	logger *log.Logger
}

// NewProblem returns an unconstrained problem over dim variables with a zero
// objective to maximize.
func NewProblem(dim int) (*Problem, error) {
	if err := checkDimension(dim); err != nil {
		return nil, err
	}
	p := &Problem{
		externalDim:   dim,
		status:        partiallySatisfiable,
		pricing:       PricingSteepestEdgeFloat,
		lastGenerator: model.Origin(0),
	}
	p.discardTableau()
	return p, nil
}

// NewProblemWith returns a problem over dim variables with the given
// constraints, objective and mode.
func NewProblemWith(dim int, cs model.ConstraintSystem, obj model.LinearExpression, mode OptimizationMode) (*Problem, error) {
	p, err := NewProblem(dim)
	if err != nil {
		return nil, err
	}
	if err := p.AddConstraints(cs); err != nil {
		return nil, err
	}
	if err := p.SetObjectiveFunction(obj); err != nil {
		return nil, err
	}
	p.SetOptimizationMode(mode)
	return p, nil
}

func checkDimension(dim int) error {
	if dim < 0 {
		return errors.Wrapf(ErrInvalidArgument, "negative space dimension %d", dim)
	}
	if dim > MaxSpaceDimension {
		return errors.Wrapf(ErrLength, "space dimension %d exceeds %d", dim, MaxSpaceDimension)
	}
	return nil
}

// discardTableau drops everything derived from the constraints, so that the
// next solve starts from scratch.
func (p *Problem) discardTableau() {
	p.internalDim = 0
	p.tableau = tableau.NewMatrix(0, 1)
	p.base = nil
	p.mapping = nil
	p.firstPending = 0
	p.lpFeasible = false
	p.lpInfeasible = false
	p.resetWorkingCost()
	if p.status != unsatisfiable {
		p.status = partiallySatisfiable
	}
}

// resetWorkingCost sizes the cost row to the tableau and zeroes it.
func (p *Problem) resetWorkingCost() {
	p.workingCost = tableau.NewRow(p.tableau.NumColumns() + 1)
	p.workingCost.SetInt64(p.tableau.NumColumns(), 1)
}

// SetLogger makes the solver report its pivots and iteration counts to l.
// A nil logger silences it.
func (p *Problem) SetLogger(l *log.Logger) {
	p.logger = l
}

func (p *Problem) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

func (p *Problem) checkConstraint(c model.Constraint) error {
	if c.SpaceDimension() > p.externalDim {
		return errors.Wrapf(ErrInvalidArgument, "constraint %v has space dimension %d, problem has %d",
			c, c.SpaceDimension(), p.externalDim)
	}
	if c.IsStrictInequality() {
		return errors.Wrapf(ErrInvalidArgument, "strict inequality %v", c)
	}
	return nil
}

// AddConstraint adds c to the constraint system.
func (p *Problem) AddConstraint(c model.Constraint) error {
	if err := p.checkConstraint(c); err != nil {
		return err
	}
	p.addConstraint(c)
	return nil
}

// AddConstraints adds every constraint of cs, or none of them if one is
// invalid.
func (p *Problem) AddConstraints(cs model.ConstraintSystem) error {
	for _, c := range cs {
		if err := p.checkConstraint(c); err != nil {
			return err
		}
	}
	for _, c := range cs {
		p.addConstraint(c)
	}
	return nil
}

func (p *Problem) addConstraint(c model.Constraint) {
	p.inputCS = append(p.inputCS, c)
	if p.status != unsatisfiable {
		p.status = partiallySatisfiable
	}
}

// AddSpaceDimensionsAndEmbed adds m unconstrained variables.
func (p *Problem) AddSpaceDimensionsAndEmbed(m int) error {
	if m < 0 {
		return errors.Wrapf(ErrInvalidArgument, "negative number of dimensions %d", m)
	}
	if m > MaxSpaceDimension-p.externalDim {
		return errors.Wrapf(ErrLength, "space dimension %d+%d exceeds %d", p.externalDim, m, MaxSpaceDimension)
	}
	if m == 0 {
		return nil
	}
	p.externalDim += m
	if p.status != unsatisfiable {
		p.status = partiallySatisfiable
	}
	return nil
}

// AddToIntegerSpaceDimensions constrains the variables of vs to integer
// values.
func (p *Problem) AddToIntegerSpaceDimensions(vs model.VariableSet) error {
	if vs.SpaceDimension() > p.externalDim {
		return errors.Wrapf(ErrInvalidArgument, "variable set %v exceeds space dimension %d", vs, p.externalDim)
	}
	added := false
	for _, v := range vs.Indices() {
		if p.intVars.Insert(v) {
			added = true
		}
	}
	if added && p.status != unsatisfiable {
		p.status = partiallySatisfiable
	}
	return nil
}

// SetObjectiveFunction replaces the objective.
func (p *Problem) SetObjectiveFunction(obj model.LinearExpression) error {
	if obj.SpaceDimension() > p.externalDim {
		return errors.Wrapf(ErrInvalidArgument, "objective %v has space dimension %d, problem has %d",
			obj, obj.SpaceDimension(), p.externalDim)
	}
	p.objective = obj
	p.forgetOptimum()
	return nil
}

// SetOptimizationMode selects maximization or minimization.
func (p *Problem) SetOptimizationMode(mode OptimizationMode) {
	if p.mode == mode {
		return
	}
	p.mode = mode
	p.forgetOptimum()
}

func (p *Problem) forgetOptimum() {
	if p.status == unbounded || p.status == optimized {
		p.status = satisfiable
	}
}

// ControlParameter returns the current value of the named parameter.
func (p *Problem) ControlParameter(name ControlParameterName) ControlParameterValue {
	switch name {
	case Pricing:
		return p.pricing
	}
	panic(fmt.Sprintf("simplex: unknown control parameter %d", int(name)))
}

// SetControlParameter sets the parameter v belongs to.
func (p *Problem) SetControlParameter(v ControlParameterValue) {
	switch v {
	case PricingSteepestEdgeFloat, PricingSteepestEdgeExact, PricingTextbook:
		p.pricing = v
	default:
		panic(fmt.Sprintf("simplex: unknown control parameter value %d", int(v)))
	}
}

func (p *Problem) SpaceDimension() int                       { return p.externalDim }
func (p *Problem) Objective() model.LinearExpression         { return p.objective }
func (p *Problem) OptimizationMode() OptimizationMode        { return p.mode }
func (p *Problem) IntegerSpaceDimensions() model.VariableSet { return p.intVars.Clone() }

// Constraints returns a copy of the constraint system.
func (p *Problem) Constraints() model.ConstraintSystem {
	return slices.Clone(p.inputCS)
}

// IsSatisfiable reports whether some point satisfies every constraint and
// gives integer values to the integer variables.
func (p *Problem) IsSatisfiable(ctx context.Context) (bool, error) {
	switch p.status {
	case unsatisfiable:
		return false, nil
	case satisfiable, unbounded, optimized:
		return true, nil
	}
	ok, err := p.lpSatisfiable(ctx)
	if err != nil {
		return false, err
	}
	if ok && !p.intVars.IsEmpty() {
		var g model.Generator
		g, ok, err = p.searchIntegerPoint(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			p.lastGenerator = g
		}
	}
	if !ok {
		p.status = unsatisfiable
		return false, nil
	}
	p.status = satisfiable
	return true, nil
}

// Solve optimizes the objective.
func (p *Problem) Solve(ctx context.Context) (ProblemStatus, error) {
	switch p.status {
	case unsatisfiable:
		return UnfeasibleProblem, nil
	case unbounded:
		return UnboundedProblem, nil
	case optimized:
		return OptimizedProblem, nil
	}
	ok, err := p.lpSatisfiable(ctx)
	if err != nil {
		return UnfeasibleProblem, err
	}
	if !ok {
		p.status = unsatisfiable
		return UnfeasibleProblem, nil
	}
	var st ProblemStatus
	if p.intVars.IsEmpty() {
		st, err = p.secondPhase(ctx)
	} else {
		var g model.Generator
		st, g, err = p.branchAndBound(ctx)
		if err == nil && st != UnfeasibleProblem {
			p.lastGenerator = g
		}
	}
	if err != nil {
		return UnfeasibleProblem, err
	}
	switch st {
	case UnfeasibleProblem:
		p.status = unsatisfiable
	case UnboundedProblem:
		p.status = unbounded
	case OptimizedProblem:
		p.status = optimized
	}
	return st, nil
}

// FeasiblePoint returns a point satisfying the problem.
func (p *Problem) FeasiblePoint(ctx context.Context) (model.Generator, error) {
	ok, err := p.IsSatisfiable(ctx)
	if err != nil {
		return model.Generator{}, err
	}
	if !ok {
		return model.Generator{}, errors.Wrap(ErrDomain, "problem is unsatisfiable")
	}
	return p.lastGenerator, nil
}

// OptimizingPoint returns a point where the objective reaches its optimum.
func (p *Problem) OptimizingPoint(ctx context.Context) (model.Generator, error) {
	st, err := p.Solve(ctx)
	if err != nil {
		return model.Generator{}, err
	}
	if st != OptimizedProblem {
		return model.Generator{}, errors.Wrapf(ErrDomain, "problem is %v", st)
	}
	return p.lastGenerator, nil
}

// OptimalValue returns the optimum of the objective as num/den with den > 0.
func (p *Problem) OptimalValue(ctx context.Context) (num, den *big.Int, err error) {
	g, err := p.OptimizingPoint(ctx)
	if err != nil {
		return nil, nil, err
	}
	num, den = p.objective.Evaluate(g)
	return num, den, nil
}

// EvaluateObjectiveFunction returns the objective at the point g as num/den
// with den > 0.
func (p *Problem) EvaluateObjectiveFunction(g model.Generator) (num, den *big.Int, err error) {
	if g.SpaceDimension() > p.externalDim {
		return nil, nil, errors.Wrapf(ErrInvalidArgument, "point %v has space dimension %d, problem has %d",
			g, g.SpaceDimension(), p.externalDim)
	}
	if !g.IsPoint() {
		return nil, nil, errors.Wrapf(ErrInvalidArgument, "%v is not a point", g)
	}
	num, den = p.objective.Evaluate(g)
	return num, den, nil
}

// Clone returns an independent copy of p. The logger is shared.
func (p *Problem) Clone() *Problem {
	c := *p
	c.tableau = p.tableau.Clone()
	c.base = slices.Clone(p.base)
	c.mapping = slices.Clone(p.mapping)
	c.workingCost = p.workingCost.Clone()
	c.inputCS = slices.Clone(p.inputCS)
	c.intVars = p.intVars.Clone()
	return &c
}

func (p *Problem) String() string {
	return fmt.Sprintf("MIP problem: %d variables, %d constraints, %d integer, %v %v, status %v",
		p.externalDim, len(p.inputCS), p.intVars.Len(), p.mode, p.objective, p.status)
}

// OK checks the invariants of p.
func (p *Problem) OK() bool {
	cols := p.tableau.NumColumns()
	switch {
	case !p.tableau.OK(),
		cols < 1,
		p.externalDim > MaxSpaceDimension,
		p.internalDim > p.externalDim,
		len(p.mapping) != p.internalDim,
		len(p.base) != p.tableau.NumRows(),
		len(p.workingCost) != cols+1,
		p.workingCost.Sign(cols) == 0,
		p.firstPending > len(p.inputCS),
		p.intVars.SpaceDimension() > p.externalDim,
		p.objective.SpaceDimension() > p.externalDim,
		p.inputCS.SpaceDimension() > p.externalDim,
		p.inputCS.HasStrictInequalities():
		return false
	}
	basic := make([]bool, cols)
	for _, b := range p.base {
		if b < 1 || b >= cols || basic[b] {
			return false
		}
		basic[b] = true
	}
	seen := make([]bool, cols)
	use := func(c int) bool {
		if c < 1 || c >= cols || seen[c] {
			return false
		}
		seen[c] = true
		return true
	}
	for _, vc := range p.mapping {
		if !use(vc.pos) || (vc.mode == splitSign && !use(vc.neg)) {
			return false
		}
	}
	if p.lpFeasible && !p.basisOK() {
		return false
	}
	switch p.status {
	case satisfiable, unbounded, optimized:
		g := p.lastGenerator
		if !g.IsPoint() || g.SpaceDimension() > p.externalDim || !p.inputCS.IsSatisfiedBy(g) {
			return false
		}
		for _, v := range p.intVars.Indices() {
			if !g.IsIntegral(v) {
				return false
			}
		}
	}
	return true
}

// basisOK checks that the basis is a feasible one: every basic column has a
// nonzero entry in its own row only, and has a non-negative value.
func (p *Problem) basisOK() bool {
	cols := p.tableau.NumColumns()
	for i, b := range p.base {
		if b < 1 || b >= cols {
			return false
		}
		r := p.tableau.Row(i)
		if r.Sign(b) == 0 || r.Sign(0) == r.Sign(b) {
			return false
		}
		for k := range p.tableau.NumRows() {
			if k != i && p.tableau.Row(k).Sign(b) != 0 {
				return false
			}
		}
		if p.workingCost.Sign(b) != 0 {
			return false
		}
	}
	return true
}
