// Package sparse implements compressed sparse column (CSC) matrices over
// complex128 and float64 entries. The layout is the classic triplet of
// arrays (Indptr, Indices, Data): column j owns the half-open slice
// [Indptr[j], Indptr[j+1]) of Indices/Data. Row indices within a column are
// unique but not necessarily sorted.
//
// Matrices are built either directly (when the producer knows the exact
// pattern, as the derivative kernels do) or from coordinate triplets with
// duplicate (row, col) entries summed during compression, which is how the
// admittance assembler accumulates contributions from branches that share a
// bus pair.
package sparse

import (
	"fmt"
	"strings"
)

// CMatrix is a complex-valued CSC matrix.
type CMatrix struct {
	Rows, Cols int
	Indptr     []int
	Indices    []int
	Data       []complex128
}

// NewCMatrix allocates a rowsxcols matrix with room for nnz entries.
// Indptr is zeroed; the caller fills the structure.
func NewCMatrix(rows, cols, nnz int) *CMatrix {
	return &CMatrix{
		Rows:    rows,
		Cols:    cols,
		Indptr:  make([]int, cols+1),
		Indices: make([]int, nnz),
		Data:    make([]complex128, nnz),
	}
}

// CFromCOO builds a CSC matrix from coordinate triplets. Duplicate (row, col)
// pairs are summed, so producers may emit overlapping contributions in any
// order.
func CFromCOO(rows, cols int, ri, ci []int, vals []complex128) (*CMatrix, error) {
	if len(ri) != len(vals) || len(ci) != len(vals) {
		return nil, fmt.Errorf("sparse: triplet length mismatch: %d rows, %d cols, %d values",
			len(ri), len(ci), len(vals))
	}
	for k := range vals {
		if ri[k] < 0 || ri[k] >= rows || ci[k] < 0 || ci[k] >= cols {
			return nil, fmt.Errorf("sparse: entry (%d, %d) outside %dx%d", ri[k], ci[k], rows, cols)
		}
	}

	m := NewCMatrix(rows, cols, len(vals))

	// column counts -> indptr
	for _, j := range ci {
		m.Indptr[j+1]++
	}
	for j := 0; j < cols; j++ {
		m.Indptr[j+1] += m.Indptr[j]
	}

	// scatter
	next := make([]int, cols)
	copy(next, m.Indptr[:cols])
	for k := range vals {
		p := next[ci[k]]
		m.Indices[p] = ri[k]
		m.Data[p] = vals[k]
		next[ci[k]]++
	}

	m.sumDuplicates()
	return m, nil
}

// sumDuplicates compacts each column in place, merging repeated row indices.
func (m *CMatrix) sumDuplicates() {
	marker := make([]int, m.Rows)
	for i := range marker {
		marker[i] = -1
	}
	nz := 0
	colStart := 0
	for j := 0; j < m.Cols; j++ {
		colEnd := m.Indptr[j+1]
		start := nz
		for p := colStart; p < colEnd; p++ {
			i := m.Indices[p]
			if marker[i] >= start {
				m.Data[marker[i]] += m.Data[p]
			} else {
				marker[i] = nz
				m.Indices[nz] = i
				m.Data[nz] = m.Data[p]
				nz++
			}
		}
		colStart = colEnd
		m.Indptr[j+1] = nz
	}
	m.Indices = m.Indices[:nz]
	m.Data = m.Data[:nz]
}

// NNZ returns the number of stored entries.
func (m *CMatrix) NNZ() int { return len(m.Data) }

// At returns the value at (i, j), zero if the position is not stored.
func (m *CMatrix) At(i, j int) complex128 {
	for p := m.Indptr[j]; p < m.Indptr[j+1]; p++ {
		if m.Indices[p] == i {
			return m.Data[p]
		}
	}
	return 0
}

// Copy returns a deep copy sharing no storage with m.
func (m *CMatrix) Copy() *CMatrix {
	out := NewCMatrix(m.Rows, m.Cols, m.NNZ())
	copy(out.Indptr, m.Indptr)
	copy(out.Indices, m.Indices)
	copy(out.Data, m.Data)
	return out
}

// MulVec computes y = m*v.
func (m *CMatrix) MulVec(v []complex128) []complex128 {
	y := make([]complex128, m.Rows)
	for j := 0; j < m.Cols; j++ {
		x := v[j]
		if x == 0 {
			continue
		}
		for p := m.Indptr[j]; p < m.Indptr[j+1]; p++ {
			y[m.Indices[p]] += m.Data[p] * x
		}
	}
	return y
}

// Scale multiplies every stored entry by alpha, in place, and returns m.
func (m *CMatrix) Scale(alpha complex128) *CMatrix {
	for k := range m.Data {
		m.Data[k] *= alpha
	}
	return m
}

// Add returns m + other. The operands must agree in shape; the result's
// pattern is the union of both patterns.
func (m *CMatrix) Add(other *CMatrix) (*CMatrix, error) {
	if m.Rows != other.Rows || m.Cols != other.Cols {
		return nil, fmt.Errorf("sparse: shape mismatch %dx%d vs %dx%d",
			m.Rows, m.Cols, other.Rows, other.Cols)
	}
	n := m.NNZ() + other.NNZ()
	ri := make([]int, 0, n)
	ci := make([]int, 0, n)
	vals := make([]complex128, 0, n)
	for _, src := range []*CMatrix{m, other} {
		for j := 0; j < src.Cols; j++ {
			for p := src.Indptr[j]; p < src.Indptr[j+1]; p++ {
				ri = append(ri, src.Indices[p])
				ci = append(ci, j)
				vals = append(vals, src.Data[p])
			}
		}
	}
	return CFromCOO(m.Rows, m.Cols, ri, ci, vals)
}

// Dense expands the matrix to a row-major [][]complex128.
func (m *CMatrix) Dense() [][]complex128 {
	out := make([][]complex128, m.Rows)
	for i := range out {
		out[i] = make([]complex128, m.Cols)
	}
	for j := 0; j < m.Cols; j++ {
		for p := m.Indptr[j]; p < m.Indptr[j+1]; p++ {
			out[m.Indices[p]][j] += m.Data[p]
		}
	}
	return out
}

// Real returns a real CSC matrix holding the real parts, same pattern.
func (m *CMatrix) Real() *Matrix {
	out := NewMatrix(m.Rows, m.Cols, m.NNZ())
	copy(out.Indptr, m.Indptr)
	copy(out.Indices, m.Indices)
	for k, v := range m.Data {
		out.Data[k] = real(v)
	}
	return out
}

// Imag returns a real CSC matrix holding the imaginary parts, same pattern.
func (m *CMatrix) Imag() *Matrix {
	out := NewMatrix(m.Rows, m.Cols, m.NNZ())
	copy(out.Indptr, m.Indptr)
	copy(out.Indices, m.Indices)
	for k, v := range m.Data {
		out.Data[k] = imag(v)
	}
	return out
}

// Submatrix extracts the rows and columns listed in rowIdx and colIdx, in
// that order, using an index lookup so the cost is proportional to the
// entries visited, not to the dense size.
func (m *CMatrix) Submatrix(rowIdx, colIdx []int) *CMatrix {
	lookup := MakeLookup(m.Rows, rowIdx)
	ri := make([]int, 0, m.NNZ())
	ci := make([]int, 0, m.NNZ())
	vals := make([]complex128, 0, m.NNZ())
	for jj, j := range colIdx {
		for p := m.Indptr[j]; p < m.Indptr[j+1]; p++ {
			if ii := lookup[m.Indices[p]]; ii >= 0 {
				ri = append(ri, ii)
				ci = append(ci, jj)
				vals = append(vals, m.Data[p])
			}
		}
	}
	out, _ := CFromCOO(len(rowIdx), len(colIdx), ri, ci, vals) // indices already validated
	return out
}

// String renders small matrices for debugging.
func (m *CMatrix) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CMatrix %dx%d nnz=%d", m.Rows, m.Cols, m.NNZ())
	if m.Rows <= 8 && m.Cols <= 8 {
		d := m.Dense()
		for i := range d {
			b.WriteByte('\n')
			for j := range d[i] {
				fmt.Fprintf(&b, " %v", d[i][j])
			}
		}
	}
	return b.String()
}

// MakeLookup builds a position lookup for an index subset: lookup[original]
// is the position within idx, or -1 when original is not selected.
func MakeLookup(n int, idx []int) []int {
	lookup := make([]int, n)
	for i := range lookup {
		lookup[i] = -1
	}
	for pos, i := range idx {
		lookup[i] = pos
	}
	return lookup
}
