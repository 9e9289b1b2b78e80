package results

import (
	"math/cmplx"
	"time"

	"github.com/gridflow-xyz/go-gridflow/grid"
	"github.com/gridflow-xyz/go-gridflow/solver"
)

// Builder assembles a Results document from per-island solver output.
type Builder struct {
	results Results
}

// NewBuilder creates a results builder stamped with the current time.
func NewBuilder() *Builder {
	return &Builder{
		results: Results{
			Version: SchemaVersion,
			Metadata: Metadata{
				Timestamp: time.Now(),
				Solver:    "newton-raphson",
				Status:    "success",
			},
		},
	}
}

// WithGrid sets grid summary information.
func (b *Builder) WithGrid(g *grid.Grid, numIslands int) *Builder {
	b.results.Grid = GridInfo{
		Name:     g.Name,
		Sbase:    g.Sbase,
		NumBus:   len(g.Buses),
		NumBr:    len(g.Branches),
		NumIsles: numIslands,
	}
	b.results.Buses = make([]Bus, len(g.Buses))
	for i, bus := range g.Buses {
		b.results.Buses[i] = Bus{Name: bus.Name, Island: -1}
	}
	b.results.Branches = make([]Branch, len(g.Branches))
	for i, br := range g.Branches {
		b.results.Branches[i] = Branch{Name: br.Name}
	}
	return b
}

// WithRunID attaches the identifier under which the run is logged.
func (b *Builder) WithRunID(id string) *Builder {
	b.results.Metadata.RunID = id
	return b
}

// WithSolverName overrides the solver tag, e.g. for Iwamoto-damped runs.
func (b *Builder) WithSolverName(name string) *Builder {
	b.results.Metadata.Solver = name
	return b
}

// AddIsland records one island's solution, scattering bus voltages and
// injections into the full-network arrays. busIdx maps island-local bus
// positions to original indices.
func (b *Builder) AddIsland(index int, busIdx []int, sol *solver.Solution, sbase float64) *Builder {
	degenerate := sol.Iterations == 0 && sol.Converged && len(sol.V) > 0 && sol.V[0] == 0
	b.results.Islands = append(b.results.Islands, Island{
		Index:      index,
		NumBus:     len(busIdx),
		Converged:  sol.Converged,
		Error:      sol.Error,
		Iterations: sol.Iterations,
		Degenerate: degenerate,
		Trace:      sol.TraceErrors,
	})
	for local, orig := range busIdx {
		v := sol.V[local]
		s := sol.Scalc[local] * complex(sbase, 0)
		b.results.Buses[orig] = Bus{
			Name:   b.results.Buses[orig].Name,
			Vm:     cmplx.Abs(v),
			Va:     cmplx.Phase(v),
			P:      real(s),
			Q:      imag(s),
			Island: index,
		}
	}
	if !sol.Converged {
		b.results.Metadata.Status = "partial"
	}
	return b
}

// AddIslandFailure records an island whose compile or solve failed outright.
func (b *Builder) AddIslandFailure(index, numBus int, err error) *Builder {
	b.results.Islands = append(b.results.Islands, Island{
		Index:      index,
		NumBus:     numBus,
		Converged:  false,
		FailReason: err.Error(),
	})
	b.results.Metadata.Status = "partial"
	return b
}

// AddBranchFlows scatters one island's branch results. brIdx maps
// island-local branch positions to original indices.
func (b *Builder) AddBranchFlows(brIdx []int, bf *BranchFlows) *Builder {
	for local, orig := range brIdx {
		b.results.Branches[orig] = Branch{
			Name:    b.results.Branches[orig].Name,
			Pf:      real(bf.Sf[local]),
			Qf:      imag(bf.Sf[local]),
			Pt:      real(bf.St[local]),
			Qt:      imag(bf.St[local]),
			Ploss:   real(bf.Losses[local]),
			Qloss:   imag(bf.Losses[local]),
			Loading: bf.Loading[local],
		}
	}
	return b
}

// WithComputeTime records the wall-clock duration of the study.
func (b *Builder) WithComputeTime(d time.Duration) *Builder {
	b.results.Metadata.ComputeTime = d.Seconds()
	return b
}

// WithError marks the whole study failed.
func (b *Builder) WithError(err error) *Builder {
	b.results.Metadata.Status = "failed"
	b.results.Metadata.Error = err.Error()
	return b
}

// Build finalizes the document, computing the analysis section.
func (b *Builder) Build(g *grid.Grid) *Results {
	b.results.Analysis = analyze(&b.results, g)
	out := b.results
	return &out
}
