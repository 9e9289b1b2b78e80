package derivatives

import (
	"math/cmplx"

	"github.com/gridflow-xyz/go-gridflow/sparse"
)

// mapCoordinates records, for each branch row of an mxn branch-to-bus
// matrix, the data positions of its "from" and "to" entries.
func mapCoordinates(m *sparse.CMatrix, F, T []int) (idxF, idxT []int) {
	idxF = make([]int, m.Rows)
	idxT = make([]int, m.Rows)
	for j := 0; j < m.Cols; j++ {
		for k := m.Indptr[j]; k < m.Indptr[j+1]; k++ {
			i := m.Indices[k]
			if j == F[i] {
				idxF[i] = k
			} else if j == T[i] {
				idxT[i] = k
			}
		}
	}
	return idxF, idxT
}

// DSfDV computes the derivatives of each branch's "from"-end power flow
// Sf = V[F] .* conj(Yf*V) with respect to voltage magnitude and angle. Each
// row has at most two entries, at the branch's endpoint columns; the result
// reuses Yf's sparsity.
func DSfDV(Yf *sparse.CMatrix, V []complex128, F, T []int) (dSfdVm, dSfdVa *sparse.CMatrix) {
	idxF, idxT := mapCoordinates(Yf, F, T)

	dSfdVm = Yf.Copy()
	dSfdVa = Yf.Copy()

	for k := 0; k < Yf.Rows; k++ {
		f, t := F[k], T[k]
		kf, kt := idxF[k], idxT[k]

		vmF := cmplx.Abs(V[f])
		vmT := cmplx.Abs(V[t])
		thF := cmplx.Phase(V[f])
		thT := cmplx.Phase(V[t])
		ea := cmplx.Exp(complex(0, thF-thT))

		yffC := cmplx.Conj(Yf.Data[kf])
		yftC := cmplx.Conj(Yf.Data[kt])

		dSfdVm.Data[kf] = complex(2*vmF, 0)*yffC + complex(vmT, 0)*yftC*ea
		dSfdVm.Data[kt] = complex(vmF, 0) * yftC * ea
		dSfdVa.Data[kf] = complex(vmF*vmT, 0) * yftC * ea * 1i
		dSfdVa.Data[kt] = -dSfdVa.Data[kf]
	}
	return dSfdVm, dSfdVa
}

// DStDV is the "to"-end counterpart of DSfDV for St = V[T] .* conj(Yt*V).
func DStDV(Yt *sparse.CMatrix, V []complex128, F, T []int) (dStdVm, dStdVa *sparse.CMatrix) {
	idxF, idxT := mapCoordinates(Yt, F, T)

	dStdVm = Yt.Copy()
	dStdVa = Yt.Copy()

	for k := 0; k < Yt.Rows; k++ {
		f, t := F[k], T[k]
		kf, kt := idxF[k], idxT[k]

		vmF := cmplx.Abs(V[f])
		vmT := cmplx.Abs(V[t])
		thF := cmplx.Phase(V[f])
		thT := cmplx.Phase(V[t])
		ea := cmplx.Exp(complex(0, thT-thF))

		ytfC := cmplx.Conj(Yt.Data[kf])
		yttC := cmplx.Conj(Yt.Data[kt])

		dStdVm.Data[kf] = complex(vmT, 0) * ytfC * ea
		dStdVm.Data[kt] = complex(2*vmT, 0)*yttC + complex(vmF, 0)*ytfC*ea
		dStdVa.Data[kf] = complex(-vmF*vmT, 0) * ytfC * ea * 1i
		dStdVa.Data[kt] = -dStdVa.Data[kf]
	}
	return dStdVm, dStdVa
}
