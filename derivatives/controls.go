package derivatives

import (
	"math/cmplx"

	"github.com/gridflow-xyz/go-gridflow/sparse"
)

// Control-variable partials. Each builder differentiates the branch
// admittance primitives with respect to one control variable and scatters
// the result into a CSC block whose rows and columns follow caller-supplied
// index subsets, so extended Jacobians can place the blocks wherever their
// unknown ordering requires.
//
// With the tap t = m*e^(-jtheta) and converter factor k the primitives are
//
//	Yff = (Ys + jBc/2 + jBeq) / (k^2m^2)
//	Yft = -Ys / (k*conj(t))
//	Ytf = -Ys / (k*t)
//
// and the partials below follow by direct differentiation, keeping the full
// complex tap (no small-angle approximation).

// ControlBranches carries the per-branch primitive arrays the control
// kernels consume. Slices are indexed by branch.
type ControlBranches struct {
	F, T      []int
	Ys        []complex128 // series admittance
	Bc        []float64    // total charging susceptance
	Beq       []float64    // equivalent shunt susceptance (zero for lines)
	Kconv     []float64    // converter factor, 1.0 for regular branches
	Tap       []complex128 // complex tap m*e^(-jtheta)
	TapModule []float64
}

// DSbusDtau computes d(Sbus)/dtheta for the branches in tauIdx, with rows
// restricted to busIdx. Each branch contributes at most two entries, at its
// endpoint buses.
func DSbusDtau(nbus int, busIdx, tauIdx []int, cb ControlBranches, V []complex128) *sparse.CMatrix {
	lookup := sparse.MakeLookup(nbus, busIdx)
	ri := make([]int, 0, 2*len(tauIdx))
	ci := make([]int, 0, 2*len(tauIdx))
	vals := make([]complex128, 0, 2*len(tauIdx))

	for col, k := range tauIdx {
		f, t := cb.F[k], cb.T[k]
		dyft, dytf := tauPartials(cb, k)

		if fi := lookup[f]; fi >= 0 {
			ri = append(ri, fi)
			ci = append(ci, col)
			vals = append(vals, V[f]*cmplx.Conj(dyft*V[t]))
		}
		if ti := lookup[t]; ti >= 0 {
			ri = append(ri, ti)
			ci = append(ci, col)
			vals = append(vals, V[t]*cmplx.Conj(dytf*V[f]))
		}
	}
	m, _ := sparse.CFromCOO(len(busIdx), len(tauIdx), ri, ci, vals)
	return m
}

// DSfDtau computes d(Sf)/dtheta with rows restricted to sfIdx (branch indices).
// Only the controlled branch's own row is non-zero.
func DSfDtau(nbr int, sfIdx, tauIdx []int, cb ControlBranches, V []complex128) *sparse.CMatrix {
	lookup := sparse.MakeLookup(nbr, sfIdx)
	ri := make([]int, 0, len(tauIdx))
	ci := make([]int, 0, len(tauIdx))
	vals := make([]complex128, 0, len(tauIdx))

	for col, k := range tauIdx {
		if row := lookup[k]; row >= 0 {
			f, t := cb.F[k], cb.T[k]
			dyft, _ := tauPartials(cb, k)
			ri = append(ri, row)
			ci = append(ci, col)
			vals = append(vals, V[f]*cmplx.Conj(dyft*V[t]))
		}
	}
	m, _ := sparse.CFromCOO(len(sfIdx), len(tauIdx), ri, ci, vals)
	return m
}

// DStDtau computes d(St)/dtheta with rows restricted to stIdx.
func DStDtau(nbr int, stIdx, tauIdx []int, cb ControlBranches, V []complex128) *sparse.CMatrix {
	lookup := sparse.MakeLookup(nbr, stIdx)
	ri := make([]int, 0, len(tauIdx))
	ci := make([]int, 0, len(tauIdx))
	vals := make([]complex128, 0, len(tauIdx))

	for col, k := range tauIdx {
		if row := lookup[k]; row >= 0 {
			f, t := cb.F[k], cb.T[k]
			_, dytf := tauPartials(cb, k)
			ri = append(ri, row)
			ci = append(ci, col)
			vals = append(vals, V[t]*cmplx.Conj(dytf*V[f]))
		}
	}
	m, _ := sparse.CFromCOO(len(stIdx), len(tauIdx), ri, ci, vals)
	return m
}

// tauPartials returns dYft/dtheta and dYtf/dtheta for branch k.
func tauPartials(cb ControlBranches, k int) (dyft, dytf complex128) {
	kc := complex(cb.Kconv[k], 0)
	dyft = -cb.Ys[k] / (1i * kc * cmplx.Conj(cb.Tap[k]))
	dytf = -cb.Ys[k] / (-1i * kc * cb.Tap[k])
	return dyft, dytf
}

// DSbusDm computes d(Sbus)/dm for the branches in mIdx, rows restricted to
// busIdx.
func DSbusDm(nbus int, busIdx, mIdx []int, cb ControlBranches, V []complex128) *sparse.CMatrix {
	lookup := sparse.MakeLookup(nbus, busIdx)
	ri := make([]int, 0, 2*len(mIdx))
	ci := make([]int, 0, 2*len(mIdx))
	vals := make([]complex128, 0, 2*len(mIdx))

	for col, k := range mIdx {
		f, t := cb.F[k], cb.T[k]
		dyff, dyft, dytf := modulePartials(cb, k)

		if fi := lookup[f]; fi >= 0 {
			ri = append(ri, fi)
			ci = append(ci, col)
			vals = append(vals, V[f]*cmplx.Conj(dyff*V[f]+dyft*V[t]))
		}
		if ti := lookup[t]; ti >= 0 {
			ri = append(ri, ti)
			ci = append(ci, col)
			vals = append(vals, V[t]*cmplx.Conj(dytf*V[f]))
		}
	}
	m, _ := sparse.CFromCOO(len(busIdx), len(mIdx), ri, ci, vals)
	return m
}

// DSfDm computes d(Sf)/dm with rows restricted to sfIdx.
func DSfDm(nbr int, sfIdx, mIdx []int, cb ControlBranches, V []complex128) *sparse.CMatrix {
	lookup := sparse.MakeLookup(nbr, sfIdx)
	ri := make([]int, 0, len(mIdx))
	ci := make([]int, 0, len(mIdx))
	vals := make([]complex128, 0, len(mIdx))

	for col, k := range mIdx {
		if row := lookup[k]; row >= 0 {
			f, t := cb.F[k], cb.T[k]
			dyff, dyft, _ := modulePartials(cb, k)
			ri = append(ri, row)
			ci = append(ci, col)
			vals = append(vals, V[f]*cmplx.Conj(dyff*V[f]+dyft*V[t]))
		}
	}
	m, _ := sparse.CFromCOO(len(sfIdx), len(mIdx), ri, ci, vals)
	return m
}

// DStDm computes d(St)/dm with rows restricted to stIdx.
func DStDm(nbr int, stIdx, mIdx []int, cb ControlBranches, V []complex128) *sparse.CMatrix {
	lookup := sparse.MakeLookup(nbr, stIdx)
	ri := make([]int, 0, len(mIdx))
	ci := make([]int, 0, len(mIdx))
	vals := make([]complex128, 0, len(mIdx))

	for col, k := range mIdx {
		if row := lookup[k]; row >= 0 {
			f, t := cb.F[k], cb.T[k]
			_, _, dytf := modulePartials(cb, k)
			ri = append(ri, row)
			ci = append(ci, col)
			vals = append(vals, V[t]*cmplx.Conj(dytf*V[f]))
		}
	}
	m, _ := sparse.CFromCOO(len(stIdx), len(mIdx), ri, ci, vals)
	return m
}

// modulePartials returns dYff/dm, dYft/dm and dYtf/dm for branch k.
func modulePartials(cb ControlBranches, k int) (dyff, dyft, dytf complex128) {
	kc := cb.Kconv[k]
	m := cb.TapModule[k]
	beq := 0.0
	if cb.Beq != nil {
		beq = cb.Beq[k]
	}
	yttB := cb.Ys[k] + complex(0, cb.Bc[k]/2+beq)

	dyff = -2 * yttB / complex(kc*kc*m*m*m, 0)
	dyft = cb.Ys[k] / (complex(kc*m, 0) * cmplx.Conj(cb.Tap[k]))
	dytf = cb.Ys[k] / (complex(kc*m, 0) * cb.Tap[k])
	return dyff, dyft, dytf
}

// DSbusDbeq computes d(Sbus)/dBeq. Only the "from" bus sees the equivalent
// susceptance, so each column has at most one entry.
func DSbusDbeq(nbus int, busIdx, beqIdx []int, cb ControlBranches, V []complex128) *sparse.CMatrix {
	lookup := sparse.MakeLookup(nbus, busIdx)
	ri := make([]int, 0, len(beqIdx))
	ci := make([]int, 0, len(beqIdx))
	vals := make([]complex128, 0, len(beqIdx))

	for col, k := range beqIdx {
		f := cb.F[k]
		if fi := lookup[f]; fi >= 0 {
			dyff := beqPartial(cb, k)
			ri = append(ri, fi)
			ci = append(ci, col)
			vals = append(vals, V[f]*cmplx.Conj(dyff*V[f]))
		}
	}
	m, _ := sparse.CFromCOO(len(busIdx), len(beqIdx), ri, ci, vals)
	return m
}

// DSfDbeq computes d(Sf)/dBeq with rows restricted to sfIdx.
func DSfDbeq(nbr int, sfIdx, beqIdx []int, cb ControlBranches, V []complex128) *sparse.CMatrix {
	lookup := sparse.MakeLookup(nbr, sfIdx)
	ri := make([]int, 0, len(beqIdx))
	ci := make([]int, 0, len(beqIdx))
	vals := make([]complex128, 0, len(beqIdx))

	for col, k := range beqIdx {
		if row := lookup[k]; row >= 0 {
			f := cb.F[k]
			dyff := beqPartial(cb, k)
			ri = append(ri, row)
			ci = append(ci, col)
			vals = append(vals, V[f]*cmplx.Conj(dyff*V[f]))
		}
	}
	m, _ := sparse.CFromCOO(len(sfIdx), len(beqIdx), ri, ci, vals)
	return m
}

// DStDbeq is identically zero: the equivalent susceptance sits on the
// "from" side only. The empty block keeps the caller's stacking uniform.
func DStDbeq(stIdx, beqIdx []int) *sparse.CMatrix {
	return sparse.NewCMatrix(len(stIdx), len(beqIdx), 0)
}

// beqPartial returns dYff/dBeq for branch k.
func beqPartial(cb ControlBranches, k int) complex128 {
	km := cb.Kconv[k] * cb.TapModule[k]
	return 1i / complex(km*km, 0)
}
