// Package admittance assembles the sparse bus admittance matrices of one
// island from per-branch physical parameters. Each branch contributes four
// primitives to Ybus and a row to the branch-to-bus projections Yf and Yt;
// shunt devices and the branch half-shunts add only to the diagonal.
//
// For a branch with series impedance z = R + jX, shunt admittance
// y = G + jB and complex tap t = m*e^(-jtheta):
//
//	Ys  = 1/z
//	Ysh = y/2
//	Ytt = Ys + Ysh
//	Yff = Ytt / m^2
//	Yft = -Ys / conj(t)
//	Ytf = -Ys / t
//
// A zero series impedance makes the model divide by zero and aborts the
// island's compile.
package admittance

import (
	"fmt"
	"math/cmplx"

	"github.com/gridflow-xyz/go-gridflow/diag"
	"github.com/gridflow-xyz/go-gridflow/grid"
	"github.com/gridflow-xyz/go-gridflow/sparse"
)

// MinRating replaces non-positive branch ratings so loading computations
// never divide by zero.
const MinRating = 1e-6

// Branch carries the island-local parameters the assembler consumes. From
// and To are island-local bus indices.
type Branch struct {
	From, To   int
	R, X, G, B float64
	TapModule  float64
	TapAngle   float64
	Rating     float64
	Original   int // original-network branch index, for diagnostics
	Name       string
}

// System holds the assembled matrices and branch primitives of one island.
type System struct {
	Ybus    *sparse.CMatrix // nxn bus admittance
	Yseries *sparse.CMatrix // nxn series-only admittance
	Yf      *sparse.CMatrix // mxn "from"-end projection
	Yt      *sparse.CMatrix // mxn "to"-end projection
	Yshunt  []complex128    // length-n diagonal shunt admittance

	// per-branch primitives, used by the control-variable derivative kernels
	Yff, Yft, Ytf, Ytt []complex128
	Ys                 []complex128 // series admittance 1/z
	Bc                 []float64    // total branch charging susceptance
	Tap                []complex128 // complex tap m*e^(-jtheta)
	TapModule          []float64
	Kconv              []float64 // converter factor, 1.0 for regular branches

	F, T    []int // branch endpoint bus indices, island-local
	Ratings []float64
}

// NumBus returns the number of buses in the island.
func (s *System) NumBus() int { return s.Ybus.Cols }

// NumBranch returns the number of branches in the island.
func (s *System) NumBranch() int { return len(s.F) }

// Build assembles the admittance system for an island of nbus buses.
// yshuntBus is the per-bus device shunt admittance from aggregation, p.u.
// Contributions from branches sharing a bus pair accumulate into the same
// matrix entry.
func Build(nbus int, branches []Branch, yshuntBus []complex128, d *diag.Collector) (*System, error) {
	m := len(branches)
	s := &System{
		Yshunt:    make([]complex128, nbus),
		Yff:       make([]complex128, m),
		Yft:       make([]complex128, m),
		Ytf:       make([]complex128, m),
		Ytt:       make([]complex128, m),
		Ys:        make([]complex128, m),
		Bc:        make([]float64, m),
		Tap:       make([]complex128, m),
		TapModule: make([]float64, m),
		Kconv:     make([]float64, m),
		F:         make([]int, m),
		T:         make([]int, m),
		Ratings:   make([]float64, m),
	}
	copy(s.Yshunt, yshuntBus)

	// COO buffers: 4 entries per branch plus the diagonal
	busRI := make([]int, 0, 4*m+nbus)
	busCI := make([]int, 0, 4*m+nbus)
	busVals := make([]complex128, 0, 4*m+nbus)
	serRI := make([]int, 0, 4*m)
	serCI := make([]int, 0, 4*m)
	serVals := make([]complex128, 0, 4*m)
	fRI := make([]int, 0, 2*m)
	fCI := make([]int, 0, 2*m)
	fVals := make([]complex128, 0, 2*m)
	tRI := make([]int, 0, 2*m)
	tCI := make([]int, 0, 2*m)
	tVals := make([]complex128, 0, 2*m)

	for k, br := range branches {
		if br.R == 0 && br.X == 0 {
			return nil, &grid.ZeroImpedanceError{Branch: br.Original, Name: br.Name}
		}
		// the derivative kernels assume two distinct endpoints per branch row
		if br.From == br.To {
			return nil, fmt.Errorf("branch %d (%s): both ends connect to bus %d", br.Original, br.Name, br.From)
		}

		tapM := br.TapModule
		if tapM == 0 {
			tapM = 1.0
		}
		ys := 1 / complex(br.R, br.X)
		ysh := complex(br.G, br.B) / 2
		tap := complex(tapM, 0) * cmplx.Exp(complex(0, -br.TapAngle))

		ytt := ys + ysh
		yff := ytt / complex(tapM*tapM, 0)
		yft := -ys / cmplx.Conj(tap)
		ytf := -ys / tap

		s.Ys[k] = ys
		s.Bc[k] = br.B
		s.Tap[k] = tap
		s.TapModule[k] = tapM
		s.Kconv[k] = 1.0
		s.Yff[k] = yff
		s.Yft[k] = yft
		s.Ytf[k] = ytf
		s.Ytt[k] = ytt
		s.F[k] = br.From
		s.T[k] = br.To

		rating := br.Rating
		if rating <= 0 {
			d.Warnf("admittance", "branch %d (%s): rating %.3g floored to %g",
				br.Original, br.Name, br.Rating, MinRating)
			rating = MinRating
		}
		s.Ratings[k] = rating

		f, t := br.From, br.To
		busRI = append(busRI, f, f, t, t)
		busCI = append(busCI, f, t, f, t)
		busVals = append(busVals, yff, yft, ytf, ytt)

		// series-only primitives drop the half-shunt
		sff := ys / complex(tapM*tapM, 0)
		serRI = append(serRI, f, f, t, t)
		serCI = append(serCI, f, t, f, t)
		serVals = append(serVals, sff, yft, ytf, ys)

		// branch half-shunts accumulate on the shunt diagonal
		s.Yshunt[f] += ysh / complex(tapM*tapM, 0)
		s.Yshunt[t] += ysh

		fRI = append(fRI, k, k)
		fCI = append(fCI, f, t)
		fVals = append(fVals, yff, yft)
		tRI = append(tRI, k, k)
		tCI = append(tCI, f, t)
		tVals = append(tVals, ytf, ytt)
	}

	for i := 0; i < nbus; i++ {
		if yshuntBus != nil && i < len(yshuntBus) && yshuntBus[i] != 0 {
			busRI = append(busRI, i)
			busCI = append(busCI, i)
			busVals = append(busVals, yshuntBus[i])
		}
	}

	var err error
	if s.Ybus, err = sparse.CFromCOO(nbus, nbus, busRI, busCI, busVals); err != nil {
		return nil, err
	}
	if s.Yseries, err = sparse.CFromCOO(nbus, nbus, serRI, serCI, serVals); err != nil {
		return nil, err
	}
	if s.Yf, err = sparse.CFromCOO(m, nbus, fRI, fCI, fVals); err != nil {
		return nil, err
	}
	if s.Yt, err = sparse.CFromCOO(m, nbus, tRI, tCI, tVals); err != nil {
		return nil, err
	}
	return s, nil
}
