package solver

import (
	"math"
	"math/cmplx"

	"github.com/gridflow-xyz/go-gridflow/derivatives"
	"github.com/gridflow-xyz/go-gridflow/sparse"
	"github.com/gridflow-xyz/go-gridflow/topology"
)

// iwamotoMu picks the step length that minimizes the mismatch along the
// Newton direction, following Iwamoto and Tamura. The mismatch along the
// step is modeled as a(x) = f + b*x + c*x^2 with b = J*dx and c built from
// the Jacobian evaluated at the increment vector itself; the optimal step
// is a real root of the quartic's derivative, a cubic in the scalar step.
// Returns 1 whenever the model degenerates.
func iwamotoMu(prob *Problem, J *sparse.Matrix, f, dx []float64, V []complex128, idx topology.Indexing) float64 {
	n := len(V)
	nns := len(idx.NoSlack)

	dV := make([]complex128, n)
	dVa := make([]float64, n)
	for i, b := range idx.NoSlack {
		dVa[b] = dx[i]
	}
	for i, b := range idx.PQ {
		dV[b] = cmplx.Rect(dx[nns+i], dVa[b])
	}

	allZero := true
	for _, v := range dV {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return 1
	}

	dSdVm, dSdVa := derivatives.DSbusDV(prob.Ybus, dV)
	J2 := derivatives.NewtonJacobian(dSdVa, dSdVm, idx.NoSlack, idx.PQ)

	b := J.MulVec(dx)
	y := J2.TransMulVec(dx)
	c := make([]float64, len(dx))
	for i := range c {
		c[i] = 0.5 * dx[i] * y[i]
	}

	var g0, g1, g2, g3 float64
	for i := range f {
		g0 -= f[i] * b[i]
		g1 += b[i]*b[i] + 2*f[i]*c[i]
		g2 -= 3 * b[i] * c[i]
		g3 += 2 * c[i] * c[i]
	}

	mu := cubicRealRoot(g3, g2, g1, g0)
	if !(mu > 0) || mu > 1 || math.IsNaN(mu) {
		return 1
	}
	return mu
}

// cubicRealRoot returns the real root of a*x^3+b*x^2+c*x+d closest to 1,
// or NaN when the cubic degenerates.
func cubicRealRoot(a, b, c, d float64) float64 {
	const eps = 1e-30
	if math.Abs(a) < eps {
		// quadratic fallback
		if math.Abs(b) < eps {
			if math.Abs(c) < eps {
				return math.NaN()
			}
			return -d / c
		}
		disc := c*c - 4*b*d
		if disc < 0 {
			return math.NaN()
		}
		r1 := (-c + math.Sqrt(disc)) / (2 * b)
		r2 := (-c - math.Sqrt(disc)) / (2 * b)
		if math.Abs(r1-1) < math.Abs(r2-1) {
			return r1
		}
		return r2
	}

	// depressed cubic t^3 + p*t + q with x = t - b/(3a)
	shift := b / (3 * a)
	p := (3*a*c - b*b) / (3 * a * a)
	q := (2*b*b*b - 9*a*b*c + 27*a*a*d) / (27 * a * a * a)

	disc := q*q/4 + p*p*p/27
	var roots []float64
	if disc > 0 {
		u := math.Cbrt(-q/2 + math.Sqrt(disc))
		v := math.Cbrt(-q/2 - math.Sqrt(disc))
		roots = []float64{u + v - shift}
	} else {
		// three real roots, trigonometric form
		r := math.Sqrt(-p * p * p / 27)
		if r < eps {
			roots = []float64{-shift}
		} else {
			phi := math.Acos(math.Max(-1, math.Min(1, -q/(2*r))))
			m := 2 * math.Sqrt(-p/3)
			for k := 0; k < 3; k++ {
				roots = append(roots, m*math.Cos((phi+2*math.Pi*float64(k))/3)-shift)
			}
		}
	}

	best := math.NaN()
	for _, r := range roots {
		if math.IsNaN(best) || math.Abs(r-1) < math.Abs(best-1) {
			best = r
		}
	}
	return best
}
