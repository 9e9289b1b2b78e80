package grid

import (
	"errors"
	"math"
	"testing"

	"github.com/gridflow-xyz/go-gridflow/diag"
)

func TestAggregateBasic(t *testing.T) {
	g := New("test", 100)
	b0 := g.AddBus("slack", 132, true)
	b1 := g.AddBus("load", 132, false)
	g.AddBranch("line", b0, b1, 0.01, 0.05)
	g.AddGenerator(b0, 50, 1.02, -30, 30)
	g.AddLoad(b1, 40, 20)
	g.AddShunt(b1, 0, 5)

	d := diag.NewCollector()
	inj, err := g.Aggregate(d)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if inj.Modes[b0] != ModeSlack {
		t.Errorf("bus 0 mode = %v, want slack", inj.Modes[b0])
	}
	if inj.Modes[b1] != ModePQ {
		t.Errorf("bus 1 mode = %v, want PQ", inj.Modes[b1])
	}
	if math.Abs(real(inj.Sbus[b0])-0.5) > 1e-12 {
		t.Errorf("slack P injection = %v, want 0.5 p.u.", real(inj.Sbus[b0]))
	}
	if math.Abs(real(inj.Sbus[b1])+0.4) > 1e-12 || math.Abs(imag(inj.Sbus[b1])+0.2) > 1e-12 {
		t.Errorf("load bus S = %v, want -0.4-0.2i p.u.", inj.Sbus[b1])
	}
	if math.Abs(imag(inj.Ybus[b1])-0.05) > 1e-12 {
		t.Errorf("shunt admittance = %v, want 0.05i p.u.", inj.Ybus[b1])
	}
	if math.Abs(inj.Vset[b0]-1.02) > 1e-12 {
		t.Errorf("set-point = %v, want 1.02", inj.Vset[b0])
	}
	if math.Abs(inj.Qmin[b0]+0.3) > 1e-12 || math.Abs(inj.Qmax[b0]-0.3) > 1e-12 {
		t.Errorf("Q limits = [%v, %v], want [-0.3, 0.3]", inj.Qmin[b0], inj.Qmax[b0])
	}
}

func TestAggregateSetpointConflict(t *testing.T) {
	g := New("conflict", 100)
	b0 := g.AddBus("gen", 20, false)
	g.AddGenerator(b0, 10, 1.00, -10, 10)
	g.AddGenerator(b0, 10, 1.05, -10, 10)

	_, err := g.Aggregate(diag.NewCollector())
	if err == nil {
		t.Fatal("expected set-point conflict error")
	}
	var conflict *SetpointConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected SetpointConflictError, got %T: %v", err, err)
	}
	if conflict.Bus != b0 {
		t.Errorf("conflict bus = %d, want %d", conflict.Bus, b0)
	}
}

func TestAggregateAgreeingSetpoints(t *testing.T) {
	g := New("agree", 100)
	b0 := g.AddBus("gen", 20, false)
	g.AddGenerator(b0, 10, 1.05, -10, 10)
	g.AddGenerator(b0, 15, 1.05, -20, 20)

	inj, err := g.Aggregate(diag.NewCollector())
	if err != nil {
		t.Fatalf("agreeing set-points must not error: %v", err)
	}
	if inj.Modes[b0] != ModePV {
		t.Errorf("mode = %v, want PV", inj.Modes[b0])
	}
	// limits aggregate across machines
	if math.Abs(inj.Qmin[b0]+0.3) > 1e-12 || math.Abs(inj.Qmax[b0]-0.3) > 1e-12 {
		t.Errorf("aggregated Q limits = [%v, %v], want [-0.3, 0.3]", inj.Qmin[b0], inj.Qmax[b0])
	}
	if math.Abs(real(inj.Sbus[b0])-0.25) > 1e-12 {
		t.Errorf("aggregated P = %v, want 0.25", real(inj.Sbus[b0]))
	}
}

func TestAggregateEmptyReactiveRange(t *testing.T) {
	g := New("noband", 100)
	b0 := g.AddBus("gen", 20, false)
	g.AddGenerator(b0, 10, 1.02, 0, 0)

	d := diag.NewCollector()
	inj, err := g.Aggregate(d)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if inj.Modes[b0] != ModePV {
		t.Errorf("mode = %v, want PV", inj.Modes[b0])
	}
	// a [0,0] band would demote the bus to PQ clamped at Q=0 on the
	// first control round; absent limits mean unbounded
	if inj.Qmin[b0] >= 0 || inj.Qmax[b0] <= 0 {
		t.Errorf("Q limits = [%v, %v], want an open range", inj.Qmin[b0], inj.Qmax[b0])
	}
	if d.Count(diag.Warning) == 0 {
		t.Error("expected a warning about the empty reactive range")
	}
}

func TestAggregateInactiveDevices(t *testing.T) {
	g := New("inactive", 100)
	b0 := g.AddBus("bus", 20, false)
	l := g.AddLoad(b0, 10, 5)
	l.Active = false

	d := diag.NewCollector()
	inj, err := g.Aggregate(d)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if inj.Sbus[b0] != 0 {
		t.Errorf("inactive load contributed %v", inj.Sbus[b0])
	}
	if d.Count(diag.Info) == 0 {
		t.Error("expected an informational record for the skipped device")
	}
}

func TestAggregateStorageAndInactiveBus(t *testing.T) {
	g := New("modes", 100)
	b0 := g.AddBus("storage", 20, false)
	b1 := g.AddBus("off", 20, false)
	g.Buses[b1].Active = false
	g.AddBattery(b0, 5, 0, false, true)

	inj, err := g.Aggregate(diag.NewCollector())
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if inj.Modes[b0] != ModeStorageDispatch {
		t.Errorf("bus 0 mode = %v, want storage dispatch", inj.Modes[b0])
	}
	if !inj.Modes[b0].IsPQLike() {
		t.Error("storage dispatch must be solved as PQ")
	}
	if inj.Modes[b1] != ModeNone {
		t.Errorf("inactive bus mode = %v, want none", inj.Modes[b1])
	}
}
