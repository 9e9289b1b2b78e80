package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gridflow-xyz/go-gridflow/eventlog"
	"github.com/gridflow-xyz/go-gridflow/grid"
	"github.com/gridflow-xyz/go-gridflow/powerflow"
	"github.com/gridflow-xyz/go-gridflow/results"
	"github.com/gridflow-xyz/go-gridflow/solver"
)

func solve(args []string) error {
	fs := flag.NewFlagSet("solve", flag.ExitOnError)
	output := fs.String("output", "", "Output file for results JSON (default: stdout)")
	tolerance := fs.Float64("tolerance", 1e-6, "Convergence tolerance, per unit")
	maxIter := fs.Int("max-iter", 25, "Maximum Newton iterations per control round")
	iwamoto := fs.Bool("iwamoto", false, "Use Iwamoto step-length damping")
	qLimits := fs.Bool("q-limits", true, "Enforce generator reactive limits")
	timeout := fs.Duration("timeout", 0, "Wall-clock budget for the solve (0: none)")
	logDB := fs.String("log", "", "SQLite database to record the run in (optional)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: gridflow solve <grid.json> [options]

Run a Newton-Raphson power-flow study.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  gridflow solve grid.json -output results.json
  gridflow solve grid.json -iwamoto -tolerance 1e-8
  gridflow solve grid.json -log runs.db
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("grid file required")
	}

	g, err := loadGrid(fs.Arg(0))
	if err != nil {
		return err
	}

	opts := solver.DefaultOptions()
	opts.Tolerance = *tolerance
	opts.MaxIterations = *maxIter
	opts.UseIwamoto = *iwamoto
	opts.ControlQLimits = *qLimits
	opts.Trace = *logDB != ""

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	nw, err := powerflow.Compile(g)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	doc, err := nw.Solve(ctx, opts)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}

	if *logDB != "" {
		if err := recordRun(*logDB, nw, doc); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: run not logged: %v\n", err)
		}
	}

	for _, rec := range nw.Diag.Records() {
		fmt.Fprintf(os.Stderr, "%s: [%s] %s\n", rec.Severity, rec.Context, rec.Message)
	}

	if *output != "" {
		if err := results.WriteJSON(doc, *output); err != nil {
			return err
		}
		fmt.Printf("Results written to %s (status: %s)\n", *output, doc.Metadata.Status)
		return nil
	}
	text, err := results.ToJSON(doc)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func recordRun(path string, nw *powerflow.Network, doc *results.Results) error {
	store, err := eventlog.NewStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	run := &eventlog.Run{
		ID:        nw.ID,
		GridName:  nw.Grid.Name,
		Solver:    doc.Metadata.Solver,
		StartedAt: doc.Metadata.Timestamp,
		Islands:   len(nw.Islands),
	}
	if err := store.CreateRun(run); err != nil {
		return err
	}

	converged := doc.Metadata.Status == "success"
	worst := 0.0
	var steps []eventlog.Step
	for _, isl := range doc.Islands {
		if isl.Error > worst {
			worst = isl.Error
		}
		steps = append(steps, eventlog.FromTrace(nw.ID, isl.Index, isl.Trace, time.Now())...)
	}
	if err := store.AppendSteps(steps); err != nil {
		return err
	}
	return store.FinishRun(nw.ID, converged, worst)
}

func loadGrid(path string) (*grid.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grid: %w", err)
	}
	var g grid.Grid
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse grid: %w", err)
	}
	if g.Sbase <= 0 {
		g.Sbase = grid.DefaultSbase
	}
	return &g, nil
}
