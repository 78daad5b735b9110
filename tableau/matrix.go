package tableau

import (
	"fmt"
	"io"
	"math"
	"math/big"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"q.log/mip/internal/ascii"
)

// Flags carries per-row metadata.
type Flags uint8

const (
	// EqualityRow marks a row coming from an equality constraint.
	EqualityRow Flags = 1 << iota
)

// Matrix is a dense matrix of exact integer coefficients stored row-major in
// a single buffer. All rows share the same size and capacity; the row
// capacity is the stride of the buffer.
//
// Rows and columns are appended with amortized constant cost: both the row
// capacity and the number of allocated rows grow geometrically.
type Matrix struct {
	data    []big.Int
	flags   []Flags
	rows    int
	rowSize int
	rowCap  int
}

// NewMatrix returns a rows×cols zero matrix.
func NewMatrix(rows, cols int) *Matrix {
	m := &Matrix{}
	m.reshape(rows, cols)
	return m
}

func (m *Matrix) NumRows() int     { return m.rows }
func (m *Matrix) NumColumns() int  { return m.rowSize }
func (m *Matrix) RowCapacity() int { return m.rowCap }

// Row returns a view of the i-th row. The view shares storage with m and is
// invalidated by any call that changes the shape of m; it must not be
// resized.
func (m *Matrix) Row(i int) Row {
	if i < 0 || i >= m.rows {
		panic(fmt.Sprintf("tableau: row %d out of range [0,%d)", i, m.rows))
	}
	start := i * m.rowCap
	return Row(m.data[start : start+m.rowSize : start+m.rowCap])
}

// At returns a pointer to the coefficient at (i, j).
func (m *Matrix) At(i, j int) *big.Int {
	if j < 0 || j >= m.rowSize {
		panic(fmt.Sprintf("tableau: column %d out of range [0,%d)", j, m.rowSize))
	}
	return m.Row(i).Get(j)
}

func (m *Matrix) Flags(i int) Flags       { return m.flags[i] }
func (m *Matrix) SetFlags(i int, f Flags) { m.flags[i] = f }

// AddZeroRows appends n zero rows tagged with f.
func (m *Matrix) AddZeroRows(n int, f Flags) {
	m.AddZeroRowsAndColumns(n, 0, f)
}

// AddZeroColumns appends n zero columns.
func (m *Matrix) AddZeroColumns(n int) {
	m.AddZeroRowsAndColumns(0, n, 0)
}

// AddZeroRowsAndColumns appends n zero rows tagged with f and k zero columns,
// reallocating at most once.
func (m *Matrix) AddZeroRowsAndColumns(n, k int, f Flags) {
	if n < 0 || k < 0 {
		panic("tableau: negative growth")
	}
	old := m.rows
	m.reshape(m.rows+n, m.rowSize+k)
	for i := old; i < m.rows; i++ {
		m.flags[i] = f
	}
}

// RemoveTrailingColumns drops the last k columns.
func (m *Matrix) RemoveTrailingColumns(k int) {
	if k < 0 || k > m.rowSize {
		panic(fmt.Sprintf("tableau: cannot remove %d of %d columns", k, m.rowSize))
	}
	m.rowSize -= k
}

// RemoveTrailingRows drops the last k rows.
func (m *Matrix) RemoveTrailingRows(k int) {
	if k < 0 || k > m.rows {
		panic(fmt.Sprintf("tableau: cannot remove %d of %d rows", k, m.rows))
	}
	m.rows -= k
	m.data = m.data[:m.rows*m.rowCap]
	m.flags = m.flags[:m.rows]
}

// SwapRows exchanges rows i and j.
func (m *Matrix) SwapRows(i, j int) {
	if i == j {
		return
	}
	ri, rj := m.Row(i), m.Row(j)
	for c := range ri {
		ri[c], rj[c] = rj[c], ri[c]
	}
	m.flags[i], m.flags[j] = m.flags[j], m.flags[i]
}

// PermuteColumns applies a permutation given as disjoint cycles. For a cycle
// [c0, c1, ..., cn] the content of column c_i moves to column c_i+1 and the
// content of column cn moves to column c0.
func (m *Matrix) PermuteColumns(cycles [][]int) {
	for _, cycle := range cycles {
		for _, c := range cycle {
			if c < 0 || c >= m.rowSize {
				panic(fmt.Sprintf("tableau: column %d out of range [0,%d)", c, m.rowSize))
			}
		}
	}
	for i := range m.rows {
		permuteRow(m.Row(i), cycles)
	}
}

// PermuteEntries applies to r the same column permutation as
// Matrix.PermuteColumns.
func PermuteEntries(r Row, cycles [][]int) {
	permuteRow(r, cycles)
}

func permuteRow(r Row, cycles [][]int) {
	for _, cycle := range cycles {
		for k := len(cycle) - 1; k > 0; k-- {
			r.SwapEntries(cycle[k], cycle[k-1])
		}
	}
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{
		data:    make([]big.Int, len(m.data), cap(m.data)),
		flags:   append([]Flags(nil), m.flags...),
		rows:    m.rows,
		rowSize: m.rowSize,
		rowCap:  m.rowCap,
	}
	for i := range m.rows {
		dst, src := c.Row(i), m.Row(i)
		for j := range src {
			dst[j].Set(&src[j])
		}
	}
	return c
}

// Equal reports whether m and o have the same shape, flags and coefficients.
// Capacities are not compared.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.rows != o.rows || m.rowSize != o.rowSize {
		return false
	}
	for i := range m.rows {
		if m.flags[i] != o.flags[i] || !m.Row(i).Equal(o.Row(i)) {
			return false
		}
	}
	return true
}

// Float64 returns a floating point approximation of m, or nil when m has no
// rows or no columns.
func (m *Matrix) Float64() *mat.Dense {
	if m.rows == 0 || m.rowSize == 0 {
		return nil
	}
	d := mat.NewDense(m.rows, m.rowSize, nil)
	var f big.Float
	for i := range m.rows {
		r := m.Row(i)
		for j := range r {
			v, _ := f.SetInt(&r[j]).Float64()
			d.Set(i, j, v)
		}
	}
	return d
}

// OK checks the internal consistency of m.
func (m *Matrix) OK() bool {
	return m.rowSize <= m.rowCap &&
		len(m.flags) == m.rows &&
		len(m.data) == m.rows*m.rowCap
}

// reshape sets the logical shape, zeroing every cell that becomes visible.
func (m *Matrix) reshape(rows, cols int) {
	oldRows, oldCols := m.rows, m.rowSize
	if cols > m.rowCap {
		m.realloc(rows, grow(m.rowCap, cols))
	} else if rows*m.rowCap > cap(m.data) {
		m.realloc(rows, m.rowCap)
	}
	m.data = m.data[:rows*m.rowCap]
	if len(m.flags) < rows {
		m.flags = append(m.flags, make([]Flags, rows-len(m.flags))...)
	}
	m.flags = m.flags[:rows]
	m.rows, m.rowSize = rows, cols
	for i := range rows {
		start := i * m.rowCap
		from := oldCols
		if i >= oldRows {
			from = 0
		}
		for j := from; j < cols; j++ {
			m.data[start+j].SetInt64(0)
		}
	}
}

// realloc moves the live cells into a fresh buffer with the given stride and
// room for at least rows rows.
func (m *Matrix) realloc(rows, rowCap int) {
	allocRows := 0
	if m.rowCap > 0 {
		allocRows = cap(m.data) / m.rowCap
	}
	allocRows = grow(allocRows, rows)
	data := make([]big.Int, rows*rowCap, allocRows*rowCap)
	for i := range min(m.rows, rows) {
		src := m.data[i*m.rowCap : i*m.rowCap+m.rowSize]
		dst := data[i*rowCap:]
		for j := range src {
			dst[j].Set(&src[j])
		}
	}
	m.data = data
	m.rowCap = rowCap
}

func grow(current, needed int) int {
	if needed <= current {
		return current
	}
	n := 2 * current
	if n < needed {
		n = needed
	}
	return n
}

// Dump writes m as
//
//	rows R columns C
//	f F0 c00 ... c0C-1
//	...
func (m *Matrix) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "rows %d columns %d\n", m.rows, m.rowSize); err != nil {
		return errors.Wrap(err, "tableau: dump matrix")
	}
	for i := range m.rows {
		if _, err := fmt.Fprintf(w, "f %d", m.flags[i]); err != nil {
			return errors.Wrap(err, "tableau: dump matrix")
		}
		if err := m.Row(i).dumpCoefficients(w); err != nil {
			return err
		}
	}
	return nil
}

// LoadMatrix reads a matrix written by Matrix.Dump.
func LoadMatrix(in *ascii.Reader) (*Matrix, error) {
	if err := in.Expect("rows"); err != nil {
		return nil, err
	}
	rows, err := in.NonNegInt()
	if err != nil {
		return nil, err
	}
	if err := in.Expect("columns"); err != nil {
		return nil, err
	}
	cols, err := in.NonNegInt()
	if err != nil {
		return nil, err
	}
	// The counts are untrusted: allocate only once the rows are read.
	var (
		loaded []Row
		flags  []Flags
	)
	for range rows {
		if err := in.Expect("f"); err != nil {
			return nil, err
		}
		f, err := in.NonNegInt()
		if err != nil {
			return nil, err
		}
		if f > math.MaxUint8 {
			return nil, errors.Wrapf(ascii.ErrBadFormat, "row flags %d out of range", f)
		}
		r, err := loadCoefficients(in, cols)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, r)
		flags = append(flags, Flags(f))
	}
	m := NewMatrix(rows, cols)
	for i, r := range loaded {
		m.flags[i] = flags[i]
		dst := m.Row(i)
		for j := range r {
			dst[j].Set(&r[j])
		}
	}
	return m, nil
}
