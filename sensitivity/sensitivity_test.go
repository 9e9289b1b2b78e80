package sensitivity

import (
	"context"
	"math"
	"math/cmplx"
	"testing"

	"github.com/gridflow-xyz/go-gridflow/admittance"
	"github.com/gridflow-xyz/go-gridflow/diag"
	"github.com/gridflow-xyz/go-gridflow/grid"
	"github.com/gridflow-xyz/go-gridflow/solver"
	"github.com/gridflow-xyz/go-gridflow/topology"
)

func testBranches() []admittance.Branch {
	return []admittance.Branch{
		{From: 0, To: 1, R: 0.01, X: 0.05, TapModule: 1, Rating: 100},
		{From: 1, To: 2, R: 0.02, X: 0.08, TapModule: 1, Rating: 100},
		{From: 0, To: 2, R: 0.015, X: 0.07, TapModule: 0.98, TapAngle: 0.02, Rating: 100},
	}
}

func solveCase(t *testing.T, branches []admittance.Branch) (*admittance.System, *solver.Solution, topology.Indexing) {
	t.Helper()
	sys, err := admittance.Build(3, branches, make([]complex128, 3), diag.NewCollector())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	modes := []grid.BusMode{grid.ModeSlack, grid.ModePQ, grid.ModePQ}
	Sbus := []complex128{0, -0.2 - 0.08i, -0.3 - 0.12i}
	idx := topology.CompileTypes([]float64{0, -0.2, -0.3}, modes, diag.NewCollector())
	prob := &solver.Problem{
		Ybus:  sys.Ybus,
		V0:    []complex128{1, 1, 1},
		Sbus:  Sbus,
		Modes: modes,
		Idx:   idx,
		Qmin:  []float64{-1e20, -1e20, -1e20},
		Qmax:  []float64{1e20, 1e20, 1e20},
		Vset:  []float64{1, 0, 0},
	}
	sol, err := solver.Solve(context.Background(), prob, solver.DefaultOptions())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !sol.Converged {
		t.Fatalf("reference case did not converge")
	}
	return sys, sol, idx
}

func flowOf(t *testing.T, branches []admittance.Branch, target int) float64 {
	sys, sol, _ := solveCase(t, branches)
	If := sys.Yf.MulVec(sol.V)
	return real(sol.V[sys.F[target]] * cmplx.Conj(If[target]))
}

// The linearized sensitivity must match the slope observed by actually
// re-solving with a perturbed control.
func TestTapModuleImpactMatchesResolve(t *testing.T) {
	const target, ctrlBranch = 0, 2
	const h = 1e-5

	sys, sol, idx := solveCase(t, testBranches())
	res, err := NewAnalyzer(sys, sol.V, idx).WithTarget(target).Analyze()
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var predicted float64
	found := false
	for _, rc := range res.Ranking {
		if rc.Branch == ctrlBranch && rc.Control == TapModule {
			predicted = rc.Impact
			found = true
		}
	}
	if !found {
		t.Fatal("tap-module entry missing from ranking")
	}

	plus := testBranches()
	plus[ctrlBranch].TapModule += h
	minus := testBranches()
	minus[ctrlBranch].TapModule -= h
	fd := (flowOf(t, plus, target) - flowOf(t, minus, target)) / (2 * h)

	scale := math.Max(math.Abs(fd), 1e-3)
	if math.Abs(predicted-fd)/scale > 1e-2 {
		t.Errorf("tap-module impact = %g, re-solve slope %g", predicted, fd)
	}
}

func TestTapAngleImpactMatchesResolve(t *testing.T) {
	const target, ctrlBranch = 1, 2
	const h = 1e-5

	sys, sol, idx := solveCase(t, testBranches())
	res, err := NewAnalyzer(sys, sol.V, idx).WithTarget(target).Analyze()
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var predicted float64
	for _, rc := range res.Ranking {
		if rc.Branch == ctrlBranch && rc.Control == TapAngle {
			predicted = rc.Impact
		}
	}

	plus := testBranches()
	plus[ctrlBranch].TapAngle += h
	minus := testBranches()
	minus[ctrlBranch].TapAngle -= h
	fd := (flowOf(t, plus, target) - flowOf(t, minus, target)) / (2 * h)

	scale := math.Max(math.Abs(fd), 1e-3)
	if math.Abs(predicted-fd)/scale > 1e-2 {
		t.Errorf("tap-angle impact = %g, re-solve slope %g", predicted, fd)
	}
}

func TestBaselineAndRankingShape(t *testing.T) {
	sys, sol, idx := solveCase(t, testBranches())
	res, err := NewAnalyzer(sys, sol.V, idx).WithTarget(0).Analyze()
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// the slack feeds both loads, so the monitored branch carries power
	if res.Baseline <= 0 {
		t.Errorf("baseline flow = %g, want > 0", res.Baseline)
	}
	// three controls per candidate branch
	if len(res.Ranking) != 9 {
		t.Fatalf("ranking has %d entries, want 9", len(res.Ranking))
	}
	for i := 1; i < len(res.Ranking); i++ {
		if math.Abs(res.Ranking[i].Impact) > math.Abs(res.Ranking[i-1].Impact) {
			t.Fatal("ranking not sorted by absolute impact")
		}
	}
}

func TestTargetOutOfRange(t *testing.T) {
	sys, sol, idx := solveCase(t, testBranches())
	if _, err := NewAnalyzer(sys, sol.V, idx).WithTarget(99).Analyze(); err == nil {
		t.Error("expected an error for an out-of-range target")
	}
}
