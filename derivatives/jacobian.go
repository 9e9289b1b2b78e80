package derivatives

import (
	"github.com/gridflow-xyz/go-gridflow/sparse"
)

// NewtonJacobian assembles the real Newton-Raphson Jacobian
//
//	J = | dP/dVa  dP/dVm |
//	    | dQ/dVa  dQ/dVm |
//
// with P rows and Va columns over noSlack (PQ plus PV, sorted) and Q rows and Vm
// columns over pq. The blocks are sliced out of the complex dS/dVa and
// dS/dVm by index lookup, preserving sparsity; nothing is recomputed or
// densified.
func NewtonJacobian(dSdVa, dSdVm *sparse.CMatrix, noSlack, pq []int) *sparse.Matrix {
	n := dSdVa.Cols
	npvpq := len(noSlack)
	npq := len(pq)
	size := npvpq + npq

	rowP := sparse.MakeLookup(n, noSlack) // bus -> P-mismatch row
	rowQ := sparse.MakeLookup(n, pq)      // bus -> Q-mismatch row (offset by npvpq)

	nnz := dSdVa.NNZ() + dSdVm.NNZ()
	ri := make([]int, 0, nnz)
	ci := make([]int, 0, nnz)
	vals := make([]float64, 0, nnz)

	// Va columns: real part feeds dP/dVa, imaginary part feeds dQ/dVa
	for jj, j := range noSlack {
		for k := dSdVa.Indptr[j]; k < dSdVa.Indptr[j+1]; k++ {
			i := dSdVa.Indices[k]
			if r := rowP[i]; r >= 0 {
				ri = append(ri, r)
				ci = append(ci, jj)
				vals = append(vals, real(dSdVa.Data[k]))
			}
			if r := rowQ[i]; r >= 0 {
				ri = append(ri, npvpq+r)
				ci = append(ci, jj)
				vals = append(vals, imag(dSdVa.Data[k]))
			}
		}
	}

	// Vm columns
	for jj, j := range pq {
		for k := dSdVm.Indptr[j]; k < dSdVm.Indptr[j+1]; k++ {
			i := dSdVm.Indices[k]
			if r := rowP[i]; r >= 0 {
				ri = append(ri, r)
				ci = append(ci, npvpq+jj)
				vals = append(vals, real(dSdVm.Data[k]))
			}
			if r := rowQ[i]; r >= 0 {
				ri = append(ri, npvpq+r)
				ci = append(ci, npvpq+jj)
				vals = append(vals, imag(dSdVm.Data[k]))
			}
		}
	}

	J, _ := sparse.FromCOO(size, size, ri, ci, vals) // indices bounded by construction
	return J
}
