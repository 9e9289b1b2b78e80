package results

import (
	"fmt"
	"math"

	"github.com/gridflow-xyz/go-gridflow/grid"
)

// analyze computes the insight section from a filled results document:
// voltage extremes against bus limits, total losses, and overloaded
// branches. Buses outside any solved island are skipped.
func analyze(r *Results, g *grid.Grid) *Analysis {
	a := &Analysis{
		VmMin:    math.Inf(1),
		VmMax:    math.Inf(-1),
		VmMinBus: -1,
		VmMaxBus: -1,
	}

	for i, bus := range r.Buses {
		if bus.Island < 0 || bus.Vm == 0 {
			continue
		}
		if bus.Vm < a.VmMin {
			a.VmMin, a.VmMinBus = bus.Vm, i
		}
		if bus.Vm > a.VmMax {
			a.VmMax, a.VmMaxBus = bus.Vm, i
		}
		if g != nil && i < len(g.Buses) {
			if lim := g.Buses[i].Vmin; lim > 0 && bus.Vm < lim {
				a.Undervolted = append(a.Undervolted, i)
			}
			if lim := g.Buses[i].Vmax; lim > 0 && bus.Vm > lim {
				a.Overvolted = append(a.Overvolted, i)
			}
		}
	}
	if a.VmMinBus < 0 {
		a.VmMin, a.VmMax = 0, 0
	}

	for i, br := range r.Branches {
		a.TotalPLoss += br.Ploss
		a.TotalQLoss += br.Qloss
		if br.Loading > 1 {
			a.Overloads = append(a.Overloads, i)
		}
	}

	if n := len(a.Overloads); n > 0 {
		a.Notes = append(a.Notes, fmt.Sprintf("%d branch(es) loaded above rating", n))
	}
	if n := len(a.Undervolted) + len(a.Overvolted); n > 0 {
		a.Notes = append(a.Notes, fmt.Sprintf("%d bus(es) outside voltage limits", n))
	}
	return a
}
