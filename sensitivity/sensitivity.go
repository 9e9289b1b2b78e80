// Package sensitivity ranks how branch control variables move power flows
// around an operating point. It linearizes at a solved voltage vector: the
// direct effect of the control on the target flow plus the network's
// voltage response through the Newton Jacobian, so no re-solve is needed
// per control.
package sensitivity

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/gridflow-xyz/go-gridflow/admittance"
	"github.com/gridflow-xyz/go-gridflow/derivatives"
	"github.com/gridflow-xyz/go-gridflow/sparse"
	"github.com/gridflow-xyz/go-gridflow/topology"
)

// Control identifies which branch variable is perturbed.
type Control int

const (
	TapModule Control = iota
	TapAngle
	ShuntSusceptance
)

func (c Control) String() string {
	switch c {
	case TapModule:
		return "tap-module"
	case TapAngle:
		return "tap-angle"
	case ShuntSusceptance:
		return "shunt-susceptance"
	default:
		return "unknown"
	}
}

// RankedControl is one control variable and its effect on the target flow,
// in per-unit active power per unit of control movement.
type RankedControl struct {
	Branch  int
	Control Control
	Impact  float64 // signed dPf of the target
}

// Result holds a sensitivity analysis around one operating point.
type Result struct {
	Target   int     // monitored branch
	Baseline float64 // its active from-side flow, per unit
	Ranking  []RankedControl
}

// Analyzer evaluates control sensitivities on a solved island.
type Analyzer struct {
	sys      *admittance.System
	V        []complex128
	idx      topology.Indexing
	target   int
	controls []int
}

// NewAnalyzer creates an analyzer for a solved admittance system. The
// index sets must match the solve that produced V. By default every branch
// is a control candidate and the target is branch 0.
func NewAnalyzer(sys *admittance.System, V []complex128, idx topology.Indexing) *Analyzer {
	controls := make([]int, sys.NumBranch())
	for i := range controls {
		controls[i] = i
	}
	return &Analyzer{sys: sys, V: V, idx: idx, controls: controls}
}

// WithTarget sets the monitored branch.
func (a *Analyzer) WithTarget(branch int) *Analyzer {
	a.target = branch
	return a
}

// WithControls restricts the control candidates to the given branches.
func (a *Analyzer) WithControls(branches []int) *Analyzer {
	a.controls = branches
	return a
}

// Analyze computes the target flow's sensitivity to every candidate
// control and ranks the controls by absolute impact.
func (a *Analyzer) Analyze() (*Result, error) {
	n := len(a.V)
	m := a.sys.NumBranch()
	if a.target < 0 || a.target >= m {
		return nil, fmt.Errorf("target branch %d outside [0, %d)", a.target, m)
	}

	cb := derivatives.ControlBranches{
		F: a.sys.F, T: a.sys.T,
		Ys: a.sys.Ys, Bc: a.sys.Bc,
		Kconv: a.sys.Kconv, Tap: a.sys.Tap, TapModule: a.sys.TapModule,
	}
	allBus := make([]int, n)
	for i := range allBus {
		allBus[i] = i
	}
	sfIdx := []int{a.target}

	If := a.sys.Yf.MulVec(a.V)
	res := &Result{
		Target:   a.target,
		Baseline: real(a.V[a.sys.F[a.target]] * cmplx.Conj(If[a.target])),
	}

	// voltage response operator, factorized once
	nns := len(a.idx.NoSlack)
	size := nns + len(a.idx.PQ)
	var lu mat.LU
	if size > 0 {
		dSdVm, dSdVa := derivatives.DSbusDV(a.sys.Ybus, a.V)
		J := derivatives.NewtonJacobian(dSdVa, dSdVm, a.idx.NoSlack, a.idx.PQ)
		lu.Factorize(mat.NewDense(size, size, J.RowMajor()))
	}
	dSfdVm, dSfdVa := derivatives.DSfDV(a.sys.Yf, a.V, a.sys.F, a.sys.T)

	eval := func(ctrl Control, dSbus, dSf *sparse.CMatrix) {
		for col, k := range a.controls {
			direct := dSf.At(0, col)
			network := a.networkTerm(&lu, size, dSbus, col, dSfdVa, dSfdVm)
			res.Ranking = append(res.Ranking, RankedControl{
				Branch:  k,
				Control: ctrl,
				Impact:  real(direct + network),
			})
		}
	}

	eval(TapModule,
		derivatives.DSbusDm(n, allBus, a.controls, cb, a.V),
		derivatives.DSfDm(m, sfIdx, a.controls, cb, a.V))
	eval(TapAngle,
		derivatives.DSbusDtau(n, allBus, a.controls, cb, a.V),
		derivatives.DSfDtau(m, sfIdx, a.controls, cb, a.V))

	cb.Beq = make([]float64, m)
	eval(ShuntSusceptance,
		derivatives.DSbusDbeq(n, allBus, a.controls, cb, a.V),
		derivatives.DSfDbeq(m, sfIdx, a.controls, cb, a.V))

	sort.Slice(res.Ranking, func(i, j int) bool {
		return math.Abs(res.Ranking[i].Impact) > math.Abs(res.Ranking[j].Impact)
	})
	return res, nil
}

// networkTerm propagates a control's injection perturbation through the
// Jacobian into a voltage correction and evaluates the target flow's
// response to it.
func (a *Analyzer) networkTerm(lu *mat.LU, size int, dSbus *sparse.CMatrix, col int, dSfdVa, dSfdVm *sparse.CMatrix) complex128 {
	if size == 0 {
		return 0
	}
	nns := len(a.idx.NoSlack)

	rhs := mat.NewVecDense(size, nil)
	for i, b := range a.idx.NoSlack {
		rhs.SetVec(i, -real(dSbus.At(b, col)))
	}
	for i, b := range a.idx.PQ {
		rhs.SetVec(nns+i, -imag(dSbus.At(b, col)))
	}

	dx := mat.NewVecDense(size, nil)
	if err := lu.SolveVecTo(dx, false, rhs); err != nil {
		return 0
	}

	var out complex128
	for i, b := range a.idx.NoSlack {
		out += dSfdVa.At(a.target, b) * complex(dx.AtVec(i), 0)
	}
	for i, b := range a.idx.PQ {
		out += dSfdVm.At(a.target, b) * complex(dx.AtVec(nns+i), 0)
	}
	return out
}
