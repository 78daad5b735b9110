package model

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"q.log/mip/internal/ascii"
)

// VariableSet is a set of variable indices, iterated in increasing order.
// The zero value is an empty set.
type VariableSet struct {
	idx []int
}

// NewVariableSet returns the set of the given indices.
func NewVariableSet(vs ...int) VariableSet {
	var s VariableSet
	for _, v := range vs {
		s.Insert(v)
	}
	return s
}

// Insert adds v and reports whether it was not already present.
func (s *VariableSet) Insert(v int) bool {
	if v < 0 {
		panic("model: negative variable index")
	}
	i, found := slices.BinarySearch(s.idx, v)
	if found {
		return false
	}
	s.idx = slices.Insert(s.idx, i, v)
	return true
}

func (s VariableSet) Contains(v int) bool {
	_, found := slices.BinarySearch(s.idx, v)
	return found
}

func (s VariableSet) Len() int      { return len(s.idx) }
func (s VariableSet) IsEmpty() bool { return len(s.idx) == 0 }

// Indices returns the members in increasing order.
func (s VariableSet) Indices() []int {
	return slices.Clone(s.idx)
}

// SpaceDimension returns one plus the largest member, or 0 for an empty set.
func (s VariableSet) SpaceDimension() int {
	if len(s.idx) == 0 {
		return 0
	}
	return s.idx[len(s.idx)-1] + 1
}

func (s VariableSet) Clone() VariableSet {
	return VariableSet{idx: slices.Clone(s.idx)}
}

func (s VariableSet) String() string {
	names := make([]string, len(s.idx))
	for i, v := range s.idx {
		names[i] = variableName(v)
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// Dump writes "variables N i0 ... iN-1".
func (s VariableSet) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "variables %d", len(s.idx)); err != nil {
		return errors.Wrap(err, "model: dump variable set")
	}
	for _, v := range s.idx {
		if _, err := fmt.Fprintf(w, " %d", v); err != nil {
			return errors.Wrap(err, "model: dump variable set")
		}
	}
	_, err := io.WriteString(w, "\n")
	return errors.Wrap(err, "model: dump variable set")
}

// LoadVariableSet reads a set written by VariableSet.Dump.
func LoadVariableSet(in *ascii.Reader) (VariableSet, error) {
	if err := in.Expect("variables"); err != nil {
		return VariableSet{}, err
	}
	n, err := in.NonNegInt()
	if err != nil {
		return VariableSet{}, err
	}
	var s VariableSet
	for range n {
		v, err := in.NonNegInt()
		if err != nil {
			return VariableSet{}, err
		}
		s.Insert(v)
	}
	return s, nil
}
