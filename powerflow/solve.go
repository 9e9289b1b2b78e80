package powerflow

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gridflow-xyz/go-gridflow/grid"
	"github.com/gridflow-xyz/go-gridflow/results"
	"github.com/gridflow-xyz/go-gridflow/solver"
)

// Solve runs the power flow on every compiled island. Islands share no
// state, so they solve concurrently; each writes a disjoint index range of
// the result document, merged after the group finishes. Islands whose
// compile failed are reported in the document instead of aborting the run.
func (nw *Network) Solve(ctx context.Context, opts *solver.Options) (*results.Results, error) {
	if opts == nil {
		opts = solver.DefaultOptions()
	}
	start := time.Now()

	sols := make([]*solver.Solution, len(nw.Islands))
	g, gctx := errgroup.WithContext(ctx)
	for i, isl := range nw.Islands {
		if isl.Err != nil {
			continue
		}
		i, isl := i, isl
		g.Go(func() error {
			sol, err := solver.Solve(gctx, isl.Problem, opts)
			if err != nil {
				return err
			}
			sols[i] = sol
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	name := "newton-raphson"
	if opts.UseIwamoto {
		name = "newton-raphson-iwamoto"
	}
	b := results.NewBuilder().
		WithGrid(nw.Grid, len(nw.Islands)).
		WithRunID(nw.ID).
		WithSolverName(name)

	for i, isl := range nw.Islands {
		if isl.Err != nil {
			b.AddIslandFailure(i, len(isl.BusIdx), isl.Err)
			continue
		}
		sol := sols[i]
		b.AddIsland(i, isl.BusIdx, sol, nw.Grid.Sbase)
		bf := results.ComputeBranchFlows(isl.System, sol.V, nw.Grid.Sbase)
		b.AddBranchFlows(isl.BranchIdx, bf)
	}

	return b.WithComputeTime(time.Since(start)).Build(nw.Grid), nil
}

// SolveGrid compiles and solves in one step, the convenience entry point
// for callers that do not reuse the compiled network.
func SolveGrid(ctx context.Context, g *grid.Grid, opts *solver.Options) (*results.Results, error) {
	nw, err := Compile(g)
	if err != nil {
		return nil, err
	}
	return nw.Solve(ctx, opts)
}
