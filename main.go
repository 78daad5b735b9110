package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"

	"q.log/mip/instance"
	"q.log/mip/model"
	"q.log/mip/simplex"
)

var pricingRules = map[string]simplex.ControlParameterValue{
	"float":    simplex.PricingSteepestEdgeFloat,
	"exact":    simplex.PricingSteepestEdgeExact,
	"textbook": simplex.PricingTextbook,
}

func main() {
	pricing := flag.String("pricing", "float", "entering column rule: float, exact or textbook")
	relax := flag.Bool("relax", false, "ignore integrality and solve the linear relaxation")
	verbose := flag.Bool("v", false, "log pivots and branch and bound progress")
	dump := flag.Bool("dump", false, "dump the solver state after solving")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] problem.mps\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	rule, ok := pricingRules[*pricing]
	if !ok {
		log.Fatalf("unknown pricing rule %q", *pricing)
	}

	inst, err := instance.NewReader(flag.Arg(0)).Read()
	if err != nil {
		log.Fatal(err)
	}
	p := inst.Problem
	if *relax {
		p = relaxation(p)
	}
	p.SetControlParameter(rule)
	if *verbose {
		p.SetLogger(log.New(os.Stderr, "mip: ", log.Ltime))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	st, err := p.Solve(ctx)
	if err != nil {
		log.Fatal(err)
	}
	if *verbose {
		p.PrintTableau(os.Stderr)
	}
	fmt.Println("status:", st)
	if st == simplex.OptimizedProblem {
		report(ctx, p, inst)
	}
	if *dump {
		if err := p.Dump(os.Stdout); err != nil {
			log.Fatal(err)
		}
	}
}

// relaxation returns p without its integrality constraints.
func relaxation(p *simplex.Problem) *simplex.Problem {
	r, err := simplex.NewProblemWith(p.SpaceDimension(), p.Constraints(), p.Objective(), p.OptimizationMode())
	if err != nil {
		log.Fatal(err)
	}
	return r
}

func report(ctx context.Context, p *simplex.Problem, inst *instance.Instance) {
	num, den, err := p.OptimalValue(ctx)
	if err != nil {
		log.Fatal(err)
	}
	value := new(big.Rat).SetFrac(num, den)
	value.Quo(value, inst.ObjectiveScale)
	f, _ := value.Float64()
	fmt.Printf("objective: %s (%g)\n", value.RatString(), f)
	g, err := p.OptimizingPoint(ctx)
	if err != nil {
		log.Fatal(err)
	}
	printPoint(g, inst.Names)
}

func printPoint(g model.Generator, names []string) {
	for v, name := range names {
		x := g.Value(v)
		if x.Sign() == 0 {
			continue
		}
		f, _ := x.Float64()
		fmt.Printf("%-12s %s (%g)\n", name, x.RatString(), f)
	}
}
