// Package powerflow orchestrates a full study: device aggregation, island
// splitting, per-island admittance assembly and parallel Newton solves,
// with results scattered back into full-network arrays.
package powerflow

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gridflow-xyz/go-gridflow/admittance"
	"github.com/gridflow-xyz/go-gridflow/diag"
	"github.com/gridflow-xyz/go-gridflow/grid"
	"github.com/gridflow-xyz/go-gridflow/solver"
	"github.com/gridflow-xyz/go-gridflow/topology"
)

// Island is one electrically independent subnetwork, compiled and ready to
// solve. BusIdx and BranchIdx map island-local positions back to original
// network indices. A non-nil Err marks an island whose compile failed;
// the rest of the network is still solvable.
type Island struct {
	BusIdx    []int
	BranchIdx []int
	System    *admittance.System
	Problem   *solver.Problem
	Err       error
}

// Network is a compiled study, immutable during a solve and rebuilt from
// the grid whenever topology or device parameters change.
type Network struct {
	ID      string
	Grid    *grid.Grid
	Islands []*Island
	Diag    *diag.Collector
}

// Compile aggregates devices, splits the grid into islands and assembles
// each island's admittance system. Device-level configuration conflicts
// abort the whole compile; per-island assembly errors are recorded on the
// island and do not abort the others.
func Compile(g *grid.Grid) (*Network, error) {
	d := diag.NewCollector()
	inj, err := g.Aggregate(d)
	if err != nil {
		return nil, fmt.Errorf("aggregate devices: %w", err)
	}

	nw := &Network{
		ID:   uuid.NewString(),
		Grid: g,
		Diag: d,
	}

	for _, isl := range topology.FindIslands(g.Buses, g.Branches) {
		nw.Islands = append(nw.Islands, compileIsland(g, inj, isl, d))
	}
	return nw, nil
}

func compileIsland(g *grid.Grid, inj *grid.Injections, isl topology.Island, d *diag.Collector) *Island {
	out := &Island{
		BusIdx:    isl.Buses,
		BranchIdx: isl.Branches,
	}
	n := len(isl.Buses)

	local := make(map[int]int, n)
	for i, b := range isl.Buses {
		local[b] = i
	}

	branches := make([]admittance.Branch, len(isl.Branches))
	for i, bk := range isl.Branches {
		br := g.Branches[bk]
		branches[i] = admittance.Branch{
			From:      local[br.From],
			To:        local[br.To],
			R:         br.R,
			X:         br.X,
			G:         br.G,
			B:         br.B,
			TapModule: br.TapModule,
			TapAngle:  br.TapAngle,
			Rating:    br.Rating,
			Original:  bk,
			Name:      br.Name,
		}
	}

	yshunt := make([]complex128, n)
	Sbus := make([]complex128, n)
	Ibus := make([]complex128, n)
	modes := make([]grid.BusMode, n)
	qmin := make([]float64, n)
	qmax := make([]float64, n)
	vset := make([]float64, n)
	pbus := make([]float64, n)
	V0 := make([]complex128, n)
	for i, b := range isl.Buses {
		yshunt[i] = inj.Ybus[b]
		Sbus[i] = inj.Sbus[b]
		Ibus[i] = inj.Ibus[b]
		modes[i] = inj.Modes[b]
		qmin[i] = inj.Qmin[b]
		qmax[i] = inj.Qmax[b]
		vset[i] = inj.Vset[b]
		pbus[i] = real(inj.Sbus[b])
		V0[i] = complex(vset[i], 0)
	}

	sys, err := admittance.Build(n, branches, yshunt, d)
	if err != nil {
		out.Err = fmt.Errorf("assemble admittance: %w", err)
		return out
	}
	out.System = sys
	out.Problem = &solver.Problem{
		Ybus:  sys.Ybus,
		V0:    V0,
		Sbus:  Sbus,
		Ibus:  Ibus,
		Modes: modes,
		Idx:   topology.CompileTypes(pbus, modes, d),
		Qmin:  qmin,
		Qmax:  qmax,
		Vset:  vset,
	}
	return out
}
