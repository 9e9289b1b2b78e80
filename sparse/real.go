package sparse

import "fmt"

// Matrix is a real-valued CSC matrix. It backs the Newton Jacobian, which is
// assembled from the real and imaginary parts of the complex derivatives.
type Matrix struct {
	Rows, Cols int
	Indptr     []int
	Indices    []int
	Data       []float64
}

// NewMatrix allocates a rowsxcols real matrix with room for nnz entries.
func NewMatrix(rows, cols, nnz int) *Matrix {
	return &Matrix{
		Rows:    rows,
		Cols:    cols,
		Indptr:  make([]int, cols+1),
		Indices: make([]int, nnz),
		Data:    make([]float64, nnz),
	}
}

// FromCOO builds a real CSC matrix from coordinate triplets, summing
// duplicate (row, col) pairs.
func FromCOO(rows, cols int, ri, ci []int, vals []float64) (*Matrix, error) {
	if len(ri) != len(vals) || len(ci) != len(vals) {
		return nil, fmt.Errorf("sparse: triplet length mismatch: %d rows, %d cols, %d values",
			len(ri), len(ci), len(vals))
	}
	for k := range vals {
		if ri[k] < 0 || ri[k] >= rows || ci[k] < 0 || ci[k] >= cols {
			return nil, fmt.Errorf("sparse: entry (%d, %d) outside %dx%d", ri[k], ci[k], rows, cols)
		}
	}

	m := NewMatrix(rows, cols, len(vals))
	for _, j := range ci {
		m.Indptr[j+1]++
	}
	for j := 0; j < cols; j++ {
		m.Indptr[j+1] += m.Indptr[j]
	}
	next := make([]int, cols)
	copy(next, m.Indptr[:cols])
	for k := range vals {
		p := next[ci[k]]
		m.Indices[p] = ri[k]
		m.Data[p] = vals[k]
		next[ci[k]]++
	}

	marker := make([]int, rows)
	for i := range marker {
		marker[i] = -1
	}
	nz := 0
	colStart := 0
	for j := 0; j < cols; j++ {
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
	return m, nil
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int { return len(m.Data) }

// At returns the value at (i, j), zero if the position is not stored.
func (m *Matrix) At(i, j int) float64 {
	for p := m.Indptr[j]; p < m.Indptr[j+1]; p++ {
		if m.Indices[p] == i {
			return m.Data[p]
		}
	}
	return 0
}

// MulVec computes y = m*v.
func (m *Matrix) MulVec(v []float64) []float64 {
	y := make([]float64, m.Rows)
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

// TransMulVec computes y = m^T v. In CSC this is a gather per column, so it
// needs no transposed copy.
func (m *Matrix) TransMulVec(v []float64) []float64 {
	y := make([]float64, m.Cols)
	for j := 0; j < m.Cols; j++ {
		var sum float64
		for p := m.Indptr[j]; p < m.Indptr[j+1]; p++ {
			sum += m.Data[p] * v[m.Indices[p]]
		}
		y[j] = sum
	}
	return y
}

// Scale multiplies every stored entry by alpha, in place, and returns m.
func (m *Matrix) Scale(alpha float64) *Matrix {
	for k := range m.Data {
		m.Data[k] *= alpha
	}
	return m
}

// RowMajor expands the matrix into a dense row-major slice, the layout
// expected by gonum's mat.NewDense.
func (m *Matrix) RowMajor() []float64 {
	out := make([]float64, m.Rows*m.Cols)
	for j := 0; j < m.Cols; j++ {
		for p := m.Indptr[j]; p < m.Indptr[j+1]; p++ {
			out[m.Indices[p]*m.Cols+j] += m.Data[p]
		}
	}
	return out
}
