// Package derivatives builds, in sparse CSC form, the partial derivatives of
// bus power injections and branch power flows with respect to voltage
// magnitude, voltage angle and the branch control variables (tap module, tap
// angle, equivalent shunt susceptance). All formulas are exact analytic
// derivatives; nothing here is finite-differenced.
package derivatives

import (
	"math/cmplx"

	"github.com/gridflow-xyz/go-gridflow/sparse"
)

// DSbusDV computes dS/dVm and dS/dVa for the complex bus power injections
// S = diag(V)*conj(Ybus*V). The result shares Ybus's sparsity pattern
// entry for entry; no fill-in is created.
//
// Two passes over the CSC structure:
//
//	pass 1 scatters I = Ybus*V and stages Ybus*diag(E), E = V/|V|
//	pass 2 finalizes dS/dVm = diag(V)*conj(Ybus*diag(E)) + conj(diag(I))*diag(E)
//	                dS/dVa = j*diag(V)*conj(diag(I) - Ybus*diag(V))
func DSbusDV(Ybus *sparse.CMatrix, V []complex128) (dSdVm, dSdVa *sparse.CMatrix) {
	n := Ybus.Cols
	Ibus := make([]complex128, n)
	E := make([]complex128, n)

	dSdVm = Ybus.Copy()
	dSdVa = Ybus.Copy()

	// pass 1: matrix-vector products against Ybus's columns
	for j := 0; j < n; j++ {
		E[j] = V[j]
		if vm := cmplx.Abs(V[j]); vm > 0 {
			E[j] /= complex(vm, 0)
		}
		for k := Ybus.Indptr[j]; k < Ybus.Indptr[j+1]; k++ {
			i := Ybus.Indices[k]
			I := Ybus.Data[k] * V[j]
			Ibus[i] += I
			dSdVm.Data[k] = Ybus.Data[k] * E[j]
			dSdVa.Data[k] = -I
		}
	}

	// pass 2: Ibus is complete, finalize entry by entry
	for j := 0; j < n; j++ {
		buffer := cmplx.Conj(Ibus[j]) * E[j]
		for k := Ybus.Indptr[j]; k < Ybus.Indptr[j+1]; k++ {
			i := Ybus.Indices[k]
			dSdVm.Data[k] = V[i] * cmplx.Conj(dSdVm.Data[k])
			if i == j {
				dSdVa.Data[k] += Ibus[j]
				dSdVm.Data[k] += buffer
			}
			dSdVa.Data[k] = (1i * V[i]) * cmplx.Conj(dSdVa.Data[k])
		}
	}
	return dSdVm, dSdVa
}

// Scalc evaluates the complex power injections S = V .* conj(Ybus*V - Ibus).
// A nil Ibus means no current injections.
func Scalc(Ybus *sparse.CMatrix, V, Ibus []complex128) []complex128 {
	I := Ybus.MulVec(V)
	out := make([]complex128, len(V))
	for i := range out {
		ii := I[i]
		if Ibus != nil {
			ii -= Ibus[i]
		}
		out[i] = V[i] * cmplx.Conj(ii)
	}
	return out
}
