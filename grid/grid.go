// Package grid defines the static model of an electrical network: buses,
// branches and the injection devices attached to buses (loads, generators,
// batteries, static generators, shunts). The model carries physical
// parameters; everything derived for a solve (admittances, bus modes, index
// sets) is computed at compile time and never written back.
package grid

// Bus is a connection node. Its solve-time mode (PQ/PV/slack) is derived
// from the devices attached to it, not stored here.
type Bus struct {
	Name   string  `json:"name"`
	Vnom   float64 `json:"vnom"`           // nominal voltage, kV
	Vmin   float64 `json:"vmin,omitempty"` // lower voltage limit, p.u.
	Vmax   float64 `json:"vmax,omitempty"` // upper voltage limit, p.u.
	Slack  bool    `json:"slack,omitempty"`
	Active bool    `json:"active"`
}

// Branch is a pi-model line or transformer between two buses. R, X, G and B
// are per-unit on the system base; the complex tap is split into a module
// and a phase-shift angle in radians.
type Branch struct {
	Name      string  `json:"name"`
	From      int     `json:"from"`
	To        int     `json:"to"`
	R         float64 `json:"r"`
	X         float64 `json:"x"`
	G         float64 `json:"g,omitempty"`
	B         float64 `json:"b,omitempty"`
	TapModule float64 `json:"tap_module,omitempty"` // 0 means 1.0
	TapAngle  float64 `json:"tap_angle,omitempty"`  // radians
	Rating    float64 `json:"rating,omitempty"`     // MVA
	Active    bool    `json:"active"`
}

// Load consumes P MW and Q MVAr at its bus.
type Load struct {
	Bus    int     `json:"bus"`
	Name   string  `json:"name,omitempty"`
	P      float64 `json:"p"`
	Q      float64 `json:"q"`
	Active bool    `json:"active"`
}

// StaticGenerator injects fixed P and Q without controlling voltage.
type StaticGenerator struct {
	Bus    int     `json:"bus"`
	Name   string  `json:"name,omitempty"`
	P      float64 `json:"p"`
	Q      float64 `json:"q"`
	Active bool    `json:"active"`
}

// Generator injects P and, when Controlled, holds its bus at Vset within the
// reactive limits [Qmin, Qmax] (MVAr).
type Generator struct {
	Bus        int     `json:"bus"`
	Name       string  `json:"name,omitempty"`
	P          float64 `json:"p"`
	Vset       float64 `json:"vset,omitempty"` // p.u.
	Qmin       float64 `json:"qmin,omitempty"`
	Qmax       float64 `json:"qmax,omitempty"`
	Controlled bool    `json:"controlled"`
	Active     bool    `json:"active"`
}

// Battery is a generator that may additionally be dispatched as storage.
type Battery struct {
	Generator
	Dispatchable bool `json:"dispatchable,omitempty"`
}

// Shunt contributes a fixed admittance at its bus; G and B are the MW and
// MVAr produced at V = 1 p.u.
type Shunt struct {
	Bus    int     `json:"bus"`
	Name   string  `json:"name,omitempty"`
	G      float64 `json:"g"`
	B      float64 `json:"b"`
	Active bool    `json:"active"`
}

// Grid is the full network model.
type Grid struct {
	Name             string             `json:"name,omitempty"`
	Sbase            float64            `json:"sbase"` // base power, MVA
	Buses            []*Bus             `json:"buses"`
	Branches         []*Branch          `json:"branches"`
	Loads            []*Load            `json:"loads,omitempty"`
	StaticGenerators []*StaticGenerator `json:"static_generators,omitempty"`
	Generators       []*Generator       `json:"generators,omitempty"`
	Batteries        []*Battery         `json:"batteries,omitempty"`
	Shunts           []*Shunt           `json:"shunts,omitempty"`
}

// DefaultSbase is the conventional 100 MVA system base.
const DefaultSbase = 100.0

// New creates an empty grid on the given base power. A zero sbase selects
// DefaultSbase.
func New(name string, sbase float64) *Grid {
	if sbase <= 0 {
		sbase = DefaultSbase
	}
	return &Grid{
		Name:     name,
		Sbase:    sbase,
		Buses:    make([]*Bus, 0),
		Branches: make([]*Branch, 0),
	}
}

// AddBus appends a bus and returns its index.
func (g *Grid) AddBus(name string, vnomKV float64, slack bool) int {
	g.Buses = append(g.Buses, &Bus{
		Name:   name,
		Vnom:   vnomKV,
		Vmin:   0.9,
		Vmax:   1.1,
		Slack:  slack,
		Active: true,
	})
	return len(g.Buses) - 1
}

// AddBranch appends a branch between two existing buses and returns its index.
func (g *Grid) AddBranch(name string, from, to int, r, x float64) int {
	g.Branches = append(g.Branches, &Branch{
		Name:      name,
		From:      from,
		To:        to,
		R:         r,
		X:         x,
		TapModule: 1.0,
		Active:    true,
	})
	return len(g.Branches) - 1
}

// AddLoad attaches a load to a bus.
func (g *Grid) AddLoad(bus int, p, q float64) *Load {
	l := &Load{Bus: bus, P: p, Q: q, Active: true}
	g.Loads = append(g.Loads, l)
	return l
}

// AddGenerator attaches a voltage-controlling generator to a bus.
func (g *Grid) AddGenerator(bus int, p, vset, qmin, qmax float64) *Generator {
	gen := &Generator{
		Bus:        bus,
		P:          p,
		Vset:       vset,
		Qmin:       qmin,
		Qmax:       qmax,
		Controlled: true,
		Active:     true,
	}
	g.Generators = append(g.Generators, gen)
	return gen
}

// AddBattery attaches a battery to a bus.
func (g *Grid) AddBattery(bus int, p, vset float64, controlled, dispatchable bool) *Battery {
	b := &Battery{
		Generator: Generator{
			Bus:        bus,
			P:          p,
			Vset:       vset,
			Controlled: controlled,
			Active:     true,
		},
		Dispatchable: dispatchable,
	}
	g.Batteries = append(g.Batteries, b)
	return b
}

// AddShunt attaches a shunt admittance to a bus.
func (g *Grid) AddShunt(bus int, gMW, bMVAr float64) *Shunt {
	s := &Shunt{Bus: bus, G: gMW, B: bMVAr, Active: true}
	g.Shunts = append(g.Shunts, s)
	return s
}

// AddStaticGenerator attaches a fixed P/Q injection to a bus.
func (g *Grid) AddStaticGenerator(bus int, p, q float64) *StaticGenerator {
	s := &StaticGenerator{Bus: bus, P: p, Q: q, Active: true}
	g.StaticGenerators = append(g.StaticGenerators, s)
	return s
}

// NumBuses returns the bus count.
func (g *Grid) NumBuses() int { return len(g.Buses) }

// NumBranches returns the branch count.
func (g *Grid) NumBranches() int { return len(g.Branches) }
