// Package results defines the structured output format for power-flow
// studies and the branch-flow post-processing that fills it.
package results

import "time"

const SchemaVersion = "1.0.0"

// Results contains the complete output of one power-flow study.
type Results struct {
	Version  string    `json:"version"`
	Metadata Metadata  `json:"metadata"`
	Grid     GridInfo  `json:"grid"`
	Islands  []Island  `json:"islands"`
	Buses    []Bus     `json:"buses"`
	Branches []Branch  `json:"branches"`
	Analysis *Analysis `json:"analysis,omitempty"`
}

// Metadata contains execution information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	RunID       string    `json:"runId,omitempty"`
	Solver      string    `json:"solver"`
	Status      string    `json:"status"` // success, partial, failed
	Error       string    `json:"error,omitempty"`
	ComputeTime float64   `json:"computeTime"` // seconds
}

// GridInfo summarizes the studied network.
type GridInfo struct {
	Name     string  `json:"name,omitempty"`
	Sbase    float64 `json:"sbase"`
	NumBus   int     `json:"numBus"`
	NumBr    int     `json:"numBranches"`
	NumIsles int     `json:"numIslands"`
}

// Island reports the solver outcome of one electrical island.
type Island struct {
	Index      int     `json:"index"`
	NumBus     int     `json:"numBus"`
	Converged  bool    `json:"converged"`
	Error      float64 `json:"error"`
	Iterations int     `json:"iterations"`
	Degenerate bool    `json:"degenerate,omitempty"`
	FailReason string  `json:"failReason,omitempty"`
	// Trace holds the mismatch norm of every Newton iteration when the
	// solver was asked to record it.
	Trace []float64 `json:"trace,omitempty"`
}

// Bus holds the solved state of one bus, voltages in per unit and powers
// in MVA on the system base.
type Bus struct {
	Name   string  `json:"name,omitempty"`
	Vm     float64 `json:"vm"`
	Va     float64 `json:"va"` // radians
	P      float64 `json:"p"`
	Q      float64 `json:"q"`
	Island int     `json:"island"`
}

// Branch holds the power flows of one branch in MVA.
type Branch struct {
	Name    string  `json:"name,omitempty"`
	Pf      float64 `json:"pf"`
	Qf      float64 `json:"qf"`
	Pt      float64 `json:"pt"`
	Qt      float64 `json:"qt"`
	Ploss   float64 `json:"ploss"`
	Qloss   float64 `json:"qloss"`
	Loading float64 `json:"loading"` // fraction of rating
}

// Analysis contains automatically computed insights.
type Analysis struct {
	VmMin       float64  `json:"vmMin"`
	VmMax       float64  `json:"vmMax"`
	VmMinBus    int      `json:"vmMinBus"`
	VmMaxBus    int      `json:"vmMaxBus"`
	TotalPLoss  float64  `json:"totalPloss"`
	TotalQLoss  float64  `json:"totalQloss"`
	Overloads   []int    `json:"overloads,omitempty"`
	Undervolted []int    `json:"undervolted,omitempty"`
	Overvolted  []int    `json:"overvolted,omitempty"`
	Notes       []string `json:"notes,omitempty"`
}
