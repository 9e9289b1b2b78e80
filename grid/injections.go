package grid

import (
	"github.com/gridflow-xyz/go-gridflow/diag"
)

// noLimit is the reactive bound used for buses without controlling devices.
const noLimit = 1e20

// setpointTol is the agreement tolerance between voltage-controlling
// devices sharing a bus.
const setpointTol = 1e-9

// Injections is the per-bus aggregation of every attached device: net power
// injection S, net current injection I and net shunt admittance Y, all in
// per-unit on the grid base, plus the derived bus modes and control data.
type Injections struct {
	Sbus []complex128 // net power injection, p.u.
	Ibus []complex128 // net current injection, p.u.
	Ybus []complex128 // net shunt admittance, p.u.

	Modes []BusMode
	Vset  []float64 // voltage set-point per bus, p.u. (1.0 where uncontrolled)
	Qmin  []float64 // aggregated reactive lower limit, p.u.
	Qmax  []float64 // aggregated reactive upper limit, p.u.
}

// Aggregate reduces all devices into per-bus injection triples and derives
// each bus's mode. Voltage-controlling devices that disagree on the
// set-point of a shared bus are a fatal configuration error. Inactive
// devices are skipped with an informational diagnostic.
func (g *Grid) Aggregate(d *diag.Collector) (*Injections, error) {
	n := len(g.Buses)
	inj := &Injections{
		Sbus:  make([]complex128, n),
		Ibus:  make([]complex128, n),
		Ybus:  make([]complex128, n),
		Modes: make([]BusMode, n),
		Vset:  make([]float64, n),
		Qmin:  make([]float64, n),
		Qmax:  make([]float64, n),
	}
	controlled := make([]bool, n)
	hasQLimit := make([]bool, n)
	storage := make([]bool, n)

	for i, b := range g.Buses {
		if b.Active {
			inj.Modes[i] = ModePQ
		} else {
			inj.Modes[i] = ModeNone
		}
		inj.Vset[i] = 1.0
	}

	sb := g.Sbase

	for k, l := range g.Loads {
		if !l.Active {
			d.Infof("load", "skipping inactive load %d at bus %d", k, l.Bus)
			continue
		}
		inj.Sbus[l.Bus] -= complex(l.P/sb, l.Q/sb)
	}

	for k, s := range g.StaticGenerators {
		if !s.Active {
			d.Infof("static-generator", "skipping inactive static generator %d at bus %d", k, s.Bus)
			continue
		}
		inj.Sbus[s.Bus] += complex(s.P/sb, s.Q/sb)
	}

	for k, s := range g.Shunts {
		if !s.Active {
			d.Infof("shunt", "skipping inactive shunt %d at bus %d", k, s.Bus)
			continue
		}
		inj.Ybus[s.Bus] += complex(s.G/sb, s.B/sb)
	}

	assertSetpoint := func(bus int, vset float64, device string) error {
		if controlled[bus] && absDiff(inj.Vset[bus], vset) > setpointTol {
			return &SetpointConflictError{Bus: bus, A: inj.Vset[bus], B: vset, Device: device}
		}
		inj.Vset[bus] = vset
		controlled[bus] = true
		return nil
	}

	addQLimits := func(bus int, qmin, qmax float64) {
		if !hasQLimit[bus] {
			inj.Qmin[bus] = 0
			inj.Qmax[bus] = 0
			hasQLimit[bus] = true
		}
		inj.Qmin[bus] += qmin / sb
		inj.Qmax[bus] += qmax / sb
	}

	for k, gen := range g.Generators {
		if !gen.Active {
			d.Infof("generator", "skipping inactive generator %d at bus %d", k, gen.Bus)
			continue
		}
		inj.Sbus[gen.Bus] += complex(gen.P/sb, 0)
		if gen.Controlled {
			if err := assertSetpoint(gen.Bus, gen.Vset, gen.Name); err != nil {
				return nil, err
			}
			addQLimits(gen.Bus, gen.Qmin, gen.Qmax)
		}
	}

	for k, bat := range g.Batteries {
		if !bat.Active {
			d.Infof("battery", "skipping inactive battery %d at bus %d", k, bat.Bus)
			continue
		}
		inj.Sbus[bat.Bus] += complex(bat.P/sb, 0)
		if bat.Controlled {
			if err := assertSetpoint(bat.Bus, bat.Vset, bat.Name); err != nil {
				return nil, err
			}
			addQLimits(bat.Bus, bat.Qmin, bat.Qmax)
		} else if bat.Dispatchable {
			storage[bat.Bus] = true
		}
	}

	for i, b := range g.Buses {
		if !b.Active {
			continue
		}
		switch {
		case b.Slack:
			inj.Modes[i] = ModeSlack
		case controlled[i]:
			inj.Modes[i] = ModePV
		case storage[i]:
			inj.Modes[i] = ModeStorageDispatch
		}
		if !hasQLimit[i] {
			inj.Qmin[i] = -noLimit
			inj.Qmax[i] = noLimit
		} else if inj.Qmin[i] == 0 && inj.Qmax[i] == 0 {
			// a controlled device with no declared reactive range would
			// otherwise be clamped to Q=0 on the first control round
			d.Warnf("generator", "controlled bus %d has an empty reactive range, treating limits as unbounded", i)
			inj.Qmin[i] = -noLimit
			inj.Qmax[i] = noLimit
		}
	}

	return inj, nil
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
