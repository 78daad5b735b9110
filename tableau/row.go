// Package tableau provides the exact-coefficient rows and the dense matrix the
// simplex engine pivots on.
//
// Coefficients are arbitrary-precision integers. Rational quantities are kept
// as rows of integers scaled by a common factor, and rows are reduced by the
// GCD of their entries after each combination so coefficients stay small.
package tableau

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"q.log/mip/internal/ascii"
)

// Row is a dense vector of exact integer coefficients. len(r) is the logical
// size of the row and cap(r) its allocated capacity.
type Row []big.Int

// NewRow returns a zero row of the given size.
func NewRow(size int) Row {
	return make(Row, size)
}

// NewRowWithCapacity returns a zero row of the given size whose capacity is at
// least capacity.
func NewRowWithCapacity(size, capacity int) Row {
	if capacity < size {
		capacity = size
	}
	return make(Row, size, capacity)
}

func (r Row) Size() int     { return len(r) }
func (r Row) Capacity() int { return cap(r) }

// Resize returns r with the new size. Entries added by growing are zero;
// the capacity grows geometrically when it is exhausted.
func (r Row) Resize(size int) Row {
	if size <= len(r) {
		return r[:size]
	}
	if size <= cap(r) {
		old := len(r)
		r = r[:size]
		for i := old; i < size; i++ {
			r[i].SetInt64(0)
		}
		return r
	}
	capacity := 2 * cap(r)
	if capacity < size {
		capacity = size
	}
	nr := make(Row, size, capacity)
	for i := range r {
		nr[i].Set(&r[i])
	}
	return nr
}

// Get returns a pointer to the i-th coefficient. Writing through it changes r.
func (r Row) Get(i int) *big.Int { return &r[i] }

func (r Row) Set(i int, v *big.Int)   { r[i].Set(v) }
func (r Row) SetInt64(i int, v int64) { r[i].SetInt64(v) }
func (r Row) Sign(i int) int          { return r[i].Sign() }

// IsZero reports whether every coefficient is zero.
func (r Row) IsZero() bool {
	for i := range r {
		if r[i].Sign() != 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of r with the same capacity.
func (r Row) Clone() Row {
	c := make(Row, len(r), cap(r))
	for i := range r {
		c[i].Set(&r[i])
	}
	return c
}

// Equal reports whether r and o have the same size and coefficients.
func (r Row) Equal(o Row) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if r[i].Cmp(&o[i]) != 0 {
			return false
		}
	}
	return true
}

func (r Row) Negate() {
	for i := range r {
		r[i].Neg(&r[i])
	}
}

// Scale multiplies every coefficient by k.
func (r Row) Scale(k *big.Int) {
	for i := range r {
		r[i].Mul(&r[i], k)
	}
}

// Gcd stores in z the GCD of the absolute values of the coefficients and
// returns z. The GCD of a zero row is zero.
func (r Row) Gcd(z *big.Int) *big.Int {
	z.SetInt64(0)
	for i := range r {
		if r[i].Sign() == 0 {
			continue
		}
		z.GCD(nil, nil, z, &r[i])
		if z.IsInt64() && z.Int64() == 1 {
			break
		}
	}
	return z
}

// Normalize divides r by the GCD of its coefficients. Signs are preserved.
func (r Row) Normalize() {
	var g big.Int
	r.Gcd(&g)
	if g.Sign() == 0 || (g.IsInt64() && g.Int64() == 1) {
		return
	}
	for i := range r {
		if r[i].Sign() != 0 {
			r[i].Quo(&r[i], &g)
		}
	}
}

// LinearCombine makes r[k] zero by replacing r with a combination of r and y
// and then normalizes r. With g = gcd(r[k], y[k]), r becomes
//
//	r*(y[k]/g) - y*(r[k]/g)
//
// y may be shorter than r; its missing entries count as zero. y[k] must not be
// zero. If r[k] is already zero r is left untouched.
func (r Row) LinearCombine(y Row, k int) {
	if y[k].Sign() == 0 {
		panic("tableau: linear combination on a zero pivot")
	}
	if r[k].Sign() == 0 {
		return
	}
	var g, nr, ny, tmp big.Int
	g.GCD(nil, nil, &r[k], &y[k])
	nr.Quo(&r[k], &g)
	ny.Quo(&y[k], &g)
	for i := range r {
		if i == k {
			continue
		}
		r[i].Mul(&r[i], &ny)
		if i < len(y) && y[i].Sign() != 0 {
			tmp.Mul(&y[i], &nr)
			r[i].Sub(&r[i], &tmp)
		}
	}
	r[k].SetInt64(0)
	r.Normalize()
}

// SwapEntries exchanges the coefficients at i and j.
func (r Row) SwapEntries(i, j int) {
	r[i], r[j] = r[j], r[i]
}

func (r Row) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := range r {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(r[i].String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// Dump writes r as "size N c0 c1 ... cN-1".
func (r Row) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "size %d", len(r)); err != nil {
		return errors.Wrap(err, "tableau: dump row")
	}
	return r.dumpCoefficients(w)
}

func (r Row) dumpCoefficients(w io.Writer) error {
	for i := range r {
		if _, err := fmt.Fprintf(w, " %s", r[i].String()); err != nil {
			return errors.Wrap(err, "tableau: dump row")
		}
	}
	_, err := io.WriteString(w, "\n")
	return errors.Wrap(err, "tableau: dump row")
}

// LoadRow reads a row written by Row.Dump.
func LoadRow(in *ascii.Reader) (Row, error) {
	if err := in.Expect("size"); err != nil {
		return nil, err
	}
	n, err := in.NonNegInt()
	if err != nil {
		return nil, err
	}
	return loadCoefficients(in, n)
}

// loadCoefficients reads n integers, growing the row one token at a time.
func loadCoefficients(in *ascii.Reader, n int) (Row, error) {
	r := Row{}
	for range n {
		r = append(r, big.Int{})
		if err := in.BigInt(&r[len(r)-1]); err != nil {
			return nil, err
		}
	}
	return r, nil
}
