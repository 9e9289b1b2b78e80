package results

import (
	"math/cmplx"

	"github.com/gridflow-xyz/go-gridflow/admittance"
)

// BranchFlows holds the per-branch complex quantities of one island,
// in MVA on the system base.
type BranchFlows struct {
	If, It []complex128 // terminal currents, per unit
	Sf, St []complex128 // terminal powers, MVA
	Losses []complex128 // Sf + St, MVA
	// Loading is the larger of the two terminal apparent powers over the
	// branch rating.
	Loading []float64
}

// ComputeBranchFlows evaluates the branch powers from a voltage solution.
// Pure and stateless; a non-converged V yields the flows of the best
// available voltage vector.
func ComputeBranchFlows(sys *admittance.System, V []complex128, sbase float64) *BranchFlows {
	m := sys.NumBranch()
	bf := &BranchFlows{
		If:      sys.Yf.MulVec(V),
		It:      sys.Yt.MulVec(V),
		Sf:      make([]complex128, m),
		St:      make([]complex128, m),
		Losses:  make([]complex128, m),
		Loading: make([]float64, m),
	}
	for k := 0; k < m; k++ {
		bf.Sf[k] = V[sys.F[k]] * cmplx.Conj(bf.If[k]) * complex(sbase, 0)
		bf.St[k] = V[sys.T[k]] * cmplx.Conj(bf.It[k]) * complex(sbase, 0)
		bf.Losses[k] = bf.Sf[k] + bf.St[k]
		load := cmplx.Abs(bf.Sf[k])
		if at := cmplx.Abs(bf.St[k]); at > load {
			load = at
		}
		bf.Loading[k] = load / sys.Ratings[k]
	}
	return bf
}
