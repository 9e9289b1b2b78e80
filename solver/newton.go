package solver

import (
	"context"
	"math"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/gridflow-xyz/go-gridflow/derivatives"
	"github.com/gridflow-xyz/go-gridflow/grid"
	"github.com/gridflow-xyz/go-gridflow/topology"
)

// Solve runs the Newton-Raphson power flow on one island. The context is
// checked at the top of every Newton iteration; cancellation returns the
// best solution so far together with ctx.Err().
func Solve(ctx context.Context, prob *Problem, opts *Options) (*Solution, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := prob.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	n := len(prob.V0)

	// A degenerate island has no angle reference at all. Its only
	// consistent solution is the collapsed network: zero voltage
	// everywhere, reported as converged.
	if len(prob.Idx.Ref) == 0 {
		sol := &Solution{
			V:         make([]complex128, n),
			Scalc:     make([]complex128, n),
			Converged: true,
			State:     Converged,
			Elapsed:   time.Since(start),
		}
		return sol, nil
	}

	// private working copies; the problem itself stays untouched
	V := append([]complex128(nil), prob.V0...)
	Sbus := append([]complex128(nil), prob.Sbus...)
	modes := append([]grid.BusMode(nil), prob.Modes...)
	origPV := make([]bool, n)
	for _, i := range prob.Idx.PV {
		origPV[i] = true
	}
	idx := prob.Idx

	sol := &Solution{State: Initialized}
	for round := 0; ; round++ {
		sol.State = Iterating
		err := newtonLoop(ctx, prob, opts, V, Sbus, idx, sol)
		if err != nil {
			sol.V = V
			sol.Scalc = derivatives.Scalc(prob.Ybus, V, prob.Ibus)
			sol.Elapsed = time.Since(start)
			return sol, err
		}

		if !sol.Converged || !opts.ControlQLimits {
			break
		}
		sol.State = ControlCheck
		Scalc := derivatives.Scalc(prob.Ybus, V, prob.Ibus)
		changed := adjustReactiveLimits(prob, V, Scalc, Sbus, modes, origPV)
		if !changed {
			break
		}
		sol.ControlIterations++
		if sol.ControlIterations >= opts.MaxControlIterations {
			break
		}
		idx = idx.Rebuild(modes)
	}

	sol.V = V
	sol.Scalc = derivatives.Scalc(prob.Ybus, V, prob.Ibus)
	if sol.Converged {
		sol.State = Converged
	} else {
		sol.State = MaxIterExceeded
	}
	sol.Elapsed = time.Since(start)
	return sol, nil
}

// newtonLoop iterates until the mismatch norm drops below tolerance or the
// iteration cap is hit, updating V in place. sol accumulates iteration
// counts and the optional trace across control rounds.
func newtonLoop(ctx context.Context, prob *Problem, opts *Options, V, Sbus []complex128, idx topology.Indexing, sol *Solution) error {
	nns := len(idx.NoSlack)
	npq := len(idx.PQ)
	size := nns + npq

	f := mismatch(prob, V, Sbus, idx)
	sol.Error = normInf(f)
	sol.Converged = sol.Error < opts.Tolerance
	if opts.Trace {
		sol.TraceErrors = append(sol.TraceErrors, sol.Error)
	}
	if sol.Converged || size == 0 {
		sol.Converged = true
		return nil
	}

	rhs := mat.NewVecDense(size, nil)
	dx := mat.NewVecDense(size, nil)
	var lu mat.LU

	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		dSdVm, dSdVa := derivatives.DSbusDV(prob.Ybus, V)
		J := derivatives.NewtonJacobian(dSdVa, dSdVm, idx.NoSlack, idx.PQ)

		lu.Factorize(mat.NewDense(size, size, J.RowMajor()))
		for i := 0; i < size; i++ {
			rhs.SetVec(i, f[i])
		}
		if err := lu.SolveVecTo(dx, false, rhs); err != nil {
			// singular Jacobian, report the best V so far
			return nil
		}

		mu := 1.0
		if opts.UseIwamoto {
			mu = iwamotoMu(prob, J, f, dx.RawVector().Data, V, idx)
		}

		for i, b := range idx.NoSlack {
			va := cmplx.Phase(V[b]) - mu*dx.AtVec(i)
			V[b] = cmplx.Rect(cmplx.Abs(V[b]), va)
		}
		for i, b := range idx.PQ {
			vm := cmplx.Abs(V[b]) - mu*dx.AtVec(nns+i)
			V[b] = cmplx.Rect(vm, cmplx.Phase(V[b]))
		}

		sol.Iterations++
		f = mismatch(prob, V, Sbus, idx)
		sol.Error = normInf(f)
		if opts.Trace {
			sol.TraceErrors = append(sol.TraceErrors, sol.Error)
		}
		if sol.Error < opts.Tolerance {
			sol.Converged = true
			return nil
		}
	}
	sol.Converged = false
	return nil
}

// mismatch builds the stacked real mismatch vector
// [Re(dS) at non-slack buses; Im(dS) at PQ buses] with
// dS = V .* conj(Ybus*V - Ibus) - Sbus.
func mismatch(prob *Problem, V, Sbus []complex128, idx topology.Indexing) []float64 {
	Scalc := derivatives.Scalc(prob.Ybus, V, prob.Ibus)
	nns := len(idx.NoSlack)
	f := make([]float64, nns+len(idx.PQ))
	for i, b := range idx.NoSlack {
		f[i] = real(Scalc[b] - Sbus[b])
	}
	for i, b := range idx.PQ {
		f[nns+i] = imag(Scalc[b] - Sbus[b])
	}
	return f
}

func normInf(v []float64) float64 {
	max := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > max {
			max = a
		}
	}
	return max
}
