package simplex

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"
)

// PrintTableau writes a float approximation of the tableau followed by the
// basis and the working cost, for debugging.
func (p *Problem) PrintTableau(w io.Writer) {
	if t := p.tableau.Float64(); t != nil {
		fmt.Fprintf(w, "T = %v\n", mat.Formatted(t, mat.Prefix("    "), mat.Squeeze()))
	} else {
		fmt.Fprintf(w, "T = []\n")
	}
	fmt.Fprintf(w, "base = %v\n", p.base)
	fmt.Fprintf(w, "cost = %v\n", p.workingCost)
	for v, vc := range p.mapping {
		if vc.mode == splitSign {
			fmt.Fprintf(w, "x%d = c%d - c%d\n", v, vc.pos, vc.neg)
		} else {
			fmt.Fprintf(w, "x%d = c%d\n", v, vc.pos)
		}
	}
}
