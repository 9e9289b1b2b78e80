// Package topology decomposes a grid into electrically independent islands
// and compiles the bus-type index sets the power-flow solver iterates over.
// Buses in different islands never interact, so each island solves on its
// own and writes results into disjoint slices of the full-network arrays.
package topology

import (
	"sort"

	"github.com/gridflow-xyz/go-gridflow/diag"
	"github.com/gridflow-xyz/go-gridflow/grid"
)

// Island is one connected component of the bus/branch graph. Buses and
// Branches hold original-network indices, sorted ascending.
type Island struct {
	Buses    []int
	Branches []int
}

// FindIslands splits the network into connected components. Only active
// branches whose endpoints are both active conduct; active buses with no
// conducting branch become singleton islands. Inactive buses belong to no
// island.
func FindIslands(buses []*grid.Bus, branches []*grid.Branch) []Island {
	n := len(buses)
	active := make([]bool, n)
	for i, b := range buses {
		active[i] = b.Active
	}

	type edge struct{ to, branch int }
	adj := make([][]edge, n)
	for k, br := range branches {
		if !br.Active || !active[br.From] || !active[br.To] {
			continue
		}
		adj[br.From] = append(adj[br.From], edge{br.To, k})
		adj[br.To] = append(adj[br.To], edge{br.From, k})
	}

	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}

	var islands []Island
	queue := make([]int, 0, n)
	for start := 0; start < n; start++ {
		if !active[start] || comp[start] >= 0 {
			continue
		}
		id := len(islands)
		comp[start] = id
		queue = append(queue[:0], start)
		members := []int{start}
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			for _, e := range adj[i] {
				if comp[e.to] < 0 {
					comp[e.to] = id
					members = append(members, e.to)
					queue = append(queue, e.to)
				}
			}
		}
		sort.Ints(members)
		islands = append(islands, Island{Buses: members})
	}

	for k, br := range branches {
		if !br.Active || !active[br.From] || !active[br.To] {
			continue
		}
		id := comp[br.From] // both endpoints share the component
		islands[id].Branches = append(islands[id].Branches, k)
	}
	return islands
}

// Indexing holds the bus-type index sets for one island, island-local.
// NoSlack is the sorted concatenation of PQ and PV.
type Indexing struct {
	Ref     []int
	PQ      []int
	PV      []int
	NoSlack []int
}

// CompileTypes derives the index sets from the bus modes. When the island
// has no slack bus, the PV bus with the largest real injection is promoted
// (the first PV bus if none injects), with a warning; an island with neither
// slack nor PV buses is left without a reference and the solver treats it as
// collapsed.
func CompileTypes(pbus []float64, modes []grid.BusMode, d *diag.Collector) Indexing {
	idx := Indexing{}
	for i, m := range modes {
		switch {
		case m == grid.ModeSlack:
			idx.Ref = append(idx.Ref, i)
		case m == grid.ModePV:
			idx.PV = append(idx.PV, i)
		case m.IsPQLike():
			idx.PQ = append(idx.PQ, i)
		}
	}

	if len(idx.Ref) == 0 && len(idx.PV) > 0 {
		best := idx.PV[0]
		for _, i := range idx.PV[1:] {
			if pbus[i] > pbus[best] {
				best = i
			}
		}
		if pbus[best] <= 0 {
			best = idx.PV[0]
		}
		d.Warnf("topology", "no slack bus: promoting PV bus %d (P=%.4f p.u.)", best, pbus[best])
		pv := idx.PV[:0]
		for _, i := range idx.PV {
			if i != best {
				pv = append(pv, i)
			}
		}
		idx.PV = pv
		idx.Ref = []int{best}
	}

	idx.NoSlack = make([]int, 0, len(idx.PQ)+len(idx.PV))
	idx.NoSlack = append(idx.NoSlack, idx.PQ...)
	idx.NoSlack = append(idx.NoSlack, idx.PV...)
	sort.Ints(idx.NoSlack)
	return idx
}

// Rebuild recomputes the index sets from mutated modes, keeping the slack
// set fixed. The reactive-limit control check uses it after reclassifying
// buses.
func (idx Indexing) Rebuild(modes []grid.BusMode) Indexing {
	out := Indexing{Ref: idx.Ref}
	ref := make(map[int]bool, len(idx.Ref))
	for _, i := range idx.Ref {
		ref[i] = true
	}
	for i, m := range modes {
		switch {
		case ref[i] || m == grid.ModeSlack:
			// slack stays slack, promoted buses included
		case m == grid.ModePV:
			out.PV = append(out.PV, i)
		case m.IsPQLike():
			out.PQ = append(out.PQ, i)
		}
	}
	out.NoSlack = make([]int, 0, len(out.PQ)+len(out.PV))
	out.NoSlack = append(out.NoSlack, out.PQ...)
	out.NoSlack = append(out.NoSlack, out.PV...)
	sort.Ints(out.NoSlack)
	return out
}
