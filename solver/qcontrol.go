package solver

import (
	"math/cmplx"

	"github.com/gridflow-xyz/go-gridflow/grid"
)

// adjustReactiveLimits reclassifies buses after a converged Newton round.
//
// A PV bus whose computed reactive injection violates its limits becomes
// PQ with the target Q clamped to the violated limit; its voltage
// magnitude is then free. A demoted bus is restored to PV, with its
// set-point magnitude and original Q target reinstated, once its voltage
// has drifted past the set-point in the direction of the binding limit,
// meaning the limit is no longer needed to hold the set-point.
//
// Mutates modes, Sbus and V in place. Reports whether anything changed,
// which tells the engine to rebuild the index sets and iterate again.
func adjustReactiveLimits(prob *Problem, V, Scalc, Sbus []complex128, modes []grid.BusMode, origPV []bool) bool {
	changed := false
	for i, m := range modes {
		switch {
		case m == grid.ModePV:
			q := imag(Scalc[i])
			if q > prob.Qmax[i] {
				modes[i] = grid.ModePQ
				Sbus[i] = complex(real(Sbus[i]), prob.Qmax[i])
				changed = true
			} else if q < prob.Qmin[i] {
				modes[i] = grid.ModePQ
				Sbus[i] = complex(real(Sbus[i]), prob.Qmin[i])
				changed = true
			}

		case m == grid.ModePQ && origPV[i]:
			vm := cmplx.Abs(V[i])
			qset := imag(Sbus[i])
			atMax := qset == prob.Qmax[i] && vm > prob.Vset[i]
			atMin := qset == prob.Qmin[i] && vm < prob.Vset[i]
			if atMax || atMin {
				modes[i] = grid.ModePV
				Sbus[i] = complex(real(Sbus[i]), imag(prob.Sbus[i]))
				V[i] = cmplx.Rect(prob.Vset[i], cmplx.Phase(V[i]))
				changed = true
			}
		}
	}
	return changed
}
