// Package eventlog records power-flow runs and their iteration history,
// with CSV and JSONL interchange and a SQLite-backed store for longer-term
// retention.
package eventlog

import (
	"sort"
	"time"
)

// Run describes one solve of a compiled network.
type Run struct {
	ID         string     `json:"id"`
	GridName   string     `json:"grid_name"`
	Solver     string     `json:"solver"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Islands    int        `json:"islands"`
	Converged  bool       `json:"converged"`
	Error      float64    `json:"error"` // final mismatch infinity-norm
}

// Step is one Newton iteration of one island within a run. Round counts
// the reactive-limit control rounds.
type Step struct {
	RunID     string    `json:"run_id"`
	Island    int       `json:"island"`
	Round     int       `json:"round"`
	Iteration int       `json:"iteration"`
	Error     float64   `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Log is an in-memory collection of runs and their steps, keyed by run ID.
type Log struct {
	Runs  map[string]*Run
	Steps map[string][]Step
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{
		Runs:  make(map[string]*Run),
		Steps: make(map[string][]Step),
	}
}

// AddRun registers a run, replacing any previous record with the same ID.
func (l *Log) AddRun(r *Run) {
	l.Runs[r.ID] = r
}

// AddStep appends an iteration record, creating the run's slot if needed.
func (l *Log) AddStep(s Step) {
	l.Steps[s.RunID] = append(l.Steps[s.RunID], s)
}

// RunIDs returns all run IDs in sorted order, including runs known only
// through their steps.
func (l *Log) RunIDs() []string {
	seen := make(map[string]bool, len(l.Runs))
	ids := make([]string, 0, len(l.Runs))
	for id := range l.Runs {
		seen[id] = true
		ids = append(ids, id)
	}
	for id := range l.Steps {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// NumRuns returns the number of recorded runs.
func (l *Log) NumRuns() int {
	return len(l.Runs)
}

// NumSteps returns the total number of iteration records across all runs.
func (l *Log) NumSteps() int {
	total := 0
	for _, steps := range l.Steps {
		total += len(steps)
	}
	return total
}

// SortSteps orders each run's steps by island, round and iteration.
func (l *Log) SortSteps() {
	for _, steps := range l.Steps {
		sort.Slice(steps, func(i, j int) bool {
			if steps[i].Island != steps[j].Island {
				return steps[i].Island < steps[j].Island
			}
			if steps[i].Round != steps[j].Round {
				return steps[i].Round < steps[j].Round
			}
			return steps[i].Iteration < steps[j].Iteration
		})
	}
}

// FromTrace expands a solver mismatch trace into step records, one per
// recorded iteration.
func FromTrace(runID string, island int, errors []float64, at time.Time) []Step {
	steps := make([]Step, len(errors))
	for i, e := range errors {
		steps[i] = Step{
			RunID:     runID,
			Island:    island,
			Iteration: i,
			Error:     e,
			Timestamp: at,
		}
	}
	return steps
}
