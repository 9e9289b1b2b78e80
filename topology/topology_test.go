package topology

import (
	"math/rand"
	"testing"

	"github.com/gridflow-xyz/go-gridflow/diag"
	"github.com/gridflow-xyz/go-gridflow/grid"
)

func buildGrid(nbus int, edges [][2]int) *grid.Grid {
	g := grid.New("t", 100)
	for i := 0; i < nbus; i++ {
		g.AddBus("b", 132, false)
	}
	for _, e := range edges {
		g.AddBranch("l", e[0], e[1], 0.01, 0.05)
	}
	return g
}

func TestFindIslandsTwoComponents(t *testing.T) {
	g := buildGrid(5, [][2]int{{0, 1}, {1, 2}, {3, 4}})
	islands := FindIslands(g.Buses, g.Branches)
	if len(islands) != 2 {
		t.Fatalf("expected 2 islands, got %d", len(islands))
	}
	if len(islands[0].Buses) != 3 || islands[0].Buses[0] != 0 {
		t.Errorf("island 0 buses = %v", islands[0].Buses)
	}
	if len(islands[1].Buses) != 2 || islands[1].Buses[0] != 3 {
		t.Errorf("island 1 buses = %v", islands[1].Buses)
	}
	if len(islands[0].Branches) != 2 || len(islands[1].Branches) != 1 {
		t.Errorf("branch partition wrong: %v / %v", islands[0].Branches, islands[1].Branches)
	}
}

func TestFindIslandsInactiveBranchSplits(t *testing.T) {
	g := buildGrid(3, [][2]int{{0, 1}, {1, 2}})
	g.Branches[1].Active = false
	islands := FindIslands(g.Buses, g.Branches)
	if len(islands) != 2 {
		t.Fatalf("expected 2 islands after removing branch, got %d", len(islands))
	}
	// bus 2 becomes a singleton
	if len(islands[1].Buses) != 1 || islands[1].Buses[0] != 2 {
		t.Errorf("singleton island = %v", islands[1].Buses)
	}
	if len(islands[1].Branches) != 0 {
		t.Errorf("singleton island has branches: %v", islands[1].Branches)
	}
}

func TestFindIslandsInactiveBusExcluded(t *testing.T) {
	g := buildGrid(3, [][2]int{{0, 1}, {1, 2}})
	g.Buses[1].Active = false
	islands := FindIslands(g.Buses, g.Branches)
	if len(islands) != 2 {
		t.Fatalf("expected 2 singleton islands, got %d", len(islands))
	}
	for _, isl := range islands {
		if len(isl.Branches) != 0 {
			t.Errorf("branch through inactive bus survived: %v", isl.Branches)
		}
		for _, b := range isl.Buses {
			if b == 1 {
				t.Error("inactive bus assigned to an island")
			}
		}
	}
}

// Every active bus lands in exactly one island, and every conducting
// branch's endpoints land in the same island.
func TestIslandPartitionInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		nbus := 2 + rng.Intn(30)
		nbr := rng.Intn(2 * nbus)
		edges := make([][2]int, nbr)
		for k := range edges {
			edges[k] = [2]int{rng.Intn(nbus), rng.Intn(nbus)}
		}
		g := buildGrid(nbus, edges)
		for _, br := range g.Branches {
			if rng.Float64() < 0.2 {
				br.Active = false
			}
		}

		islands := FindIslands(g.Buses, g.Branches)

		seen := make(map[int]int)
		busIsland := make(map[int]int)
		for id, isl := range islands {
			for _, b := range isl.Buses {
				seen[b]++
				busIsland[b] = id
			}
		}
		for b := 0; b < nbus; b++ {
			if seen[b] != 1 {
				t.Fatalf("trial %d: bus %d appears in %d islands", trial, b, seen[b])
			}
		}
		for _, br := range g.Branches {
			if !br.Active {
				continue
			}
			if busIsland[br.From] != busIsland[br.To] {
				t.Fatalf("trial %d: branch %d-%d crosses islands", trial, br.From, br.To)
			}
		}
	}
}

func TestCompileTypes(t *testing.T) {
	modes := []grid.BusMode{grid.ModeSlack, grid.ModePV, grid.ModePQ, grid.ModePQ}
	pbus := []float64{0.5, 0.3, -0.4, -0.2}
	idx := CompileTypes(pbus, modes, diag.NewCollector())

	if len(idx.Ref) != 1 || idx.Ref[0] != 0 {
		t.Errorf("ref = %v, want [0]", idx.Ref)
	}
	if len(idx.PV) != 1 || idx.PV[0] != 1 {
		t.Errorf("pv = %v, want [1]", idx.PV)
	}
	if len(idx.PQ) != 2 {
		t.Errorf("pq = %v, want [2 3]", idx.PQ)
	}
	want := []int{1, 2, 3}
	for i, v := range want {
		if idx.NoSlack[i] != v {
			t.Errorf("noSlack = %v, want %v", idx.NoSlack, want)
			break
		}
	}
}

func TestCompileTypesPromotesLargestInjection(t *testing.T) {
	modes := []grid.BusMode{grid.ModePV, grid.ModePV, grid.ModePQ}
	pbus := []float64{0.2, 0.8, -1.0}
	d := diag.NewCollector()
	idx := CompileTypes(pbus, modes, d)

	if len(idx.Ref) != 1 || idx.Ref[0] != 1 {
		t.Errorf("promoted ref = %v, want [1]", idx.Ref)
	}
	if len(idx.PV) != 1 || idx.PV[0] != 0 {
		t.Errorf("remaining pv = %v, want [0]", idx.PV)
	}
	if d.Count(diag.Warning) != 1 {
		t.Errorf("expected one promotion warning, got %d", d.Count(diag.Warning))
	}
}

func TestCompileTypesPromotesFirstWhenNoneInjects(t *testing.T) {
	modes := []grid.BusMode{grid.ModePQ, grid.ModePV, grid.ModePV}
	pbus := []float64{-0.5, 0, 0}
	idx := CompileTypes(pbus, modes, diag.NewCollector())
	if len(idx.Ref) != 1 || idx.Ref[0] != 1 {
		t.Errorf("ref = %v, want first PV bus [1]", idx.Ref)
	}
}

func TestCompileTypesDegenerate(t *testing.T) {
	modes := []grid.BusMode{grid.ModePQ, grid.ModePQ}
	idx := CompileTypes([]float64{0, 0}, modes, diag.NewCollector())
	if len(idx.Ref) != 0 {
		t.Errorf("degenerate island must have no reference, got %v", idx.Ref)
	}
}

func TestRebuildKeepsSlack(t *testing.T) {
	modes := []grid.BusMode{grid.ModeSlack, grid.ModePV, grid.ModePQ}
	idx := CompileTypes([]float64{1, 0.5, -1}, modes, diag.NewCollector())

	// PV bus hits a limit and becomes PQ
	modes[1] = grid.ModePQ
	out := idx.Rebuild(modes)
	if len(out.Ref) != 1 || out.Ref[0] != 0 {
		t.Errorf("ref changed: %v", out.Ref)
	}
	if len(out.PV) != 0 {
		t.Errorf("pv = %v, want empty", out.PV)
	}
	if len(out.PQ) != 2 {
		t.Errorf("pq = %v, want [1 2]", out.PQ)
	}
}
