// Package solver implements the Newton-Raphson power-flow iteration engine,
// with optional Iwamoto step-length damping and reactive-power-limit bus
// reclassification.
package solver

import (
	"fmt"
	"time"

	"github.com/gridflow-xyz/go-gridflow/grid"
	"github.com/gridflow-xyz/go-gridflow/sparse"
	"github.com/gridflow-xyz/go-gridflow/topology"
)

// Problem holds the inputs of one island's power-flow solve. The matrices
// and target injections are read-only during the solve; the engine mutates
// only its private copies of the voltage vector and bus modes.
type Problem struct {
	Ybus *sparse.CMatrix // nxn bus admittance, per unit
	V0   []complex128    // initial voltage guess
	Sbus []complex128    // target power injections, per unit
	Ibus []complex128    // target current injections, may be nil

	Modes []grid.BusMode // per-bus type tags, as compiled
	Idx   topology.Indexing

	// reactive limits and voltage set-points, used when the control
	// check switches PV buses to PQ and back
	Qmin, Qmax []float64
	Vset       []float64
}

// Validate checks that the problem's arrays agree in size.
func (p *Problem) Validate() error {
	n := p.Ybus.Cols
	if p.Ybus.Rows != n {
		return fmt.Errorf("Ybus is %dx%d, want square", p.Ybus.Rows, p.Ybus.Cols)
	}
	if len(p.V0) != n || len(p.Sbus) != n || len(p.Modes) != n {
		return fmt.Errorf("V0/Sbus/Modes length mismatch for %d buses", n)
	}
	if p.Ibus != nil && len(p.Ibus) != n {
		return fmt.Errorf("Ibus has %d entries, want %d", len(p.Ibus), n)
	}
	return nil
}

// Solution is the outcome of a solve. A non-converged solve still carries
// the best available voltage vector and its mismatch norm.
type Solution struct {
	V     []complex128 `json:"-"`
	Scalc []complex128 `json:"-"`

	Converged         bool          `json:"converged"`
	Error             float64       `json:"error"`
	Iterations        int           `json:"iterations"`
	ControlIterations int           `json:"control_iterations"`
	State             State         `json:"-"`
	Elapsed           time.Duration `json:"elapsed"`

	// TraceErrors holds the mismatch norm of every Newton iteration when
	// Options.Trace is set, in order across control rounds.
	TraceErrors []float64 `json:"trace_errors,omitempty"`
}
