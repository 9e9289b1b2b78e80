package admittance

import (
	"errors"
	"math/cmplx"
	"testing"

	"github.com/gridflow-xyz/go-gridflow/diag"
	"github.com/gridflow-xyz/go-gridflow/grid"
)

func line(f, t int, r, x float64) Branch {
	return Branch{From: f, To: t, R: r, X: x, TapModule: 1, Rating: 100}
}

func TestBuildReciprocityWithoutShunts(t *testing.T) {
	br := line(0, 1, 0.01, 0.05)
	sys, err := Build(2, []Branch{br}, nil, diag.NewCollector())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ys := 1 / complex(0.01, 0.05)
	if got := sys.Ybus.At(0, 1); cmplx.Abs(got+ys) > 1e-14 {
		t.Errorf("Ybus[0,1] = %v, want %v", got, -ys)
	}
	if got := sys.Ybus.At(1, 0); cmplx.Abs(got+ys) > 1e-14 {
		t.Errorf("Ybus[1,0] = %v, want %v", got, -ys)
	}
	if sys.Ybus.At(0, 1) != sys.Ybus.At(1, 0) {
		t.Error("off-diagonal entries must be equal for a unity-tap branch without shunts")
	}
	if got := sys.Ybus.At(0, 0); cmplx.Abs(got-ys) > 1e-14 {
		t.Errorf("Ybus[0,0] = %v, want %v", got, ys)
	}
}

func TestBuildParallelBranchesAccumulate(t *testing.T) {
	a := line(0, 1, 0.01, 0.05)
	b := line(0, 1, 0.02, 0.08)
	sys, err := Build(2, []Branch{a, b}, nil, diag.NewCollector())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := -(1/complex(0.01, 0.05) + 1/complex(0.02, 0.08))
	if got := sys.Ybus.At(0, 1); cmplx.Abs(got-want) > 1e-13 {
		t.Errorf("parallel branches: Ybus[0,1] = %v, want %v", got, want)
	}
}

func TestBuildTapTransformer(t *testing.T) {
	br := line(0, 1, 0.0, 0.1)
	br.TapModule = 1.05
	br.TapAngle = 0.05
	sys, err := Build(2, []Branch{br}, nil, diag.NewCollector())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ys := 1 / complex(0, 0.1)
	tap := complex(1.05, 0) * cmplx.Exp(complex(0, -0.05))
	wantFF := ys / complex(1.05*1.05, 0)
	wantFT := -ys / cmplx.Conj(tap)
	wantTF := -ys / tap

	if got := sys.Ybus.At(0, 0); cmplx.Abs(got-wantFF) > 1e-13 {
		t.Errorf("Yff = %v, want %v", got, wantFF)
	}
	if got := sys.Ybus.At(0, 1); cmplx.Abs(got-wantFT) > 1e-13 {
		t.Errorf("Yft = %v, want %v", got, wantFT)
	}
	if got := sys.Ybus.At(1, 0); cmplx.Abs(got-wantTF) > 1e-13 {
		t.Errorf("Ytf = %v, want %v", got, wantTF)
	}
	if got := sys.Ybus.At(1, 1); cmplx.Abs(got-ys) > 1e-13 {
		t.Errorf("Ytt = %v, want %v", got, ys)
	}
	// phase shift breaks reciprocity
	if cmplx.Abs(sys.Ybus.At(0, 1)-sys.Ybus.At(1, 0)) < 1e-13 {
		t.Error("phase-shifted branch should not be reciprocal")
	}
}

func TestBuildShuntsOnDiagonal(t *testing.T) {
	br := line(0, 1, 0.01, 0.05)
	br.B = 0.2 // charging susceptance
	ysh := []complex128{0, complex(0, 0.03)}
	sys, err := Build(2, []Branch{br}, ysh, diag.NewCollector())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ys := 1 / complex(0.01, 0.05)
	half := complex(0, 0.1)
	if got := sys.Ybus.At(0, 0); cmplx.Abs(got-(ys+half)) > 1e-13 {
		t.Errorf("Ybus[0,0] = %v, want %v", got, ys+half)
	}
	if got := sys.Ybus.At(1, 1); cmplx.Abs(got-(ys+half+complex(0, 0.03))) > 1e-13 {
		t.Errorf("Ybus[1,1] = %v, want %v", got, ys+half+complex(0, 0.03))
	}
	// off-diagonals carry no shunt
	if got := sys.Ybus.At(0, 1); cmplx.Abs(got+ys) > 1e-13 {
		t.Errorf("Ybus[0,1] = %v, want %v", got, -ys)
	}
	// Ybus = Yseries + diag(Yshunt)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			want := sys.Yseries.At(i, j)
			if i == j {
				want += sys.Yshunt[i]
			}
			if got := sys.Ybus.At(i, j); cmplx.Abs(got-want) > 1e-13 {
				t.Errorf("Ybus[%d,%d] = %v, want Yseries+shunt = %v", i, j, got, want)
			}
		}
	}
}

func TestBuildBranchProjections(t *testing.T) {
	br := line(0, 1, 0.01, 0.05)
	sys, _ := Build(2, []Branch{br}, nil, diag.NewCollector())

	if sys.Yf.Rows != 1 || sys.Yf.Cols != 2 {
		t.Fatalf("Yf shape %dx%d", sys.Yf.Rows, sys.Yf.Cols)
	}
	if got := sys.Yf.At(0, 0); got != sys.Yff[0] {
		t.Errorf("Yf[0,f] = %v, want %v", got, sys.Yff[0])
	}
	if got := sys.Yf.At(0, 1); got != sys.Yft[0] {
		t.Errorf("Yf[0,t] = %v, want %v", got, sys.Yft[0])
	}
	if got := sys.Yt.At(0, 0); got != sys.Ytf[0] {
		t.Errorf("Yt[0,f] = %v, want %v", got, sys.Ytf[0])
	}
	if got := sys.Yt.At(0, 1); got != sys.Ytt[0] {
		t.Errorf("Yt[0,t] = %v, want %v", got, sys.Ytt[0])
	}
}

func TestBuildZeroImpedanceRejected(t *testing.T) {
	br := line(0, 1, 0, 0)
	br.Original = 7
	_, err := Build(2, []Branch{br}, nil, diag.NewCollector())
	if err == nil {
		t.Fatal("expected zero-impedance error")
	}
	var zi *grid.ZeroImpedanceError
	if !errors.As(err, &zi) {
		t.Fatalf("expected ZeroImpedanceError, got %T: %v", err, err)
	}
	if zi.Branch != 7 {
		t.Errorf("error names branch %d, want 7", zi.Branch)
	}
}

func TestBuildSelfLoopRejected(t *testing.T) {
	br := line(1, 1, 0.01, 0.05)
	br.Name = "loop"
	_, err := Build(2, []Branch{br}, nil, diag.NewCollector())
	if err == nil {
		t.Fatal("expected an error for a branch with identical endpoints")
	}
}

func TestBuildRatingFloor(t *testing.T) {
	br := line(0, 1, 0.01, 0.05)
	br.Rating = 0
	d := diag.NewCollector()
	sys, err := Build(2, []Branch{br}, nil, d)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if sys.Ratings[0] != MinRating {
		t.Errorf("rating = %v, want floor %v", sys.Ratings[0], MinRating)
	}
	if d.Count(diag.Warning) != 1 {
		t.Errorf("expected one warning, got %d", d.Count(diag.Warning))
	}
}
