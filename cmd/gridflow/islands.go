package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gridflow-xyz/go-gridflow/powerflow"
)

func islands(args []string) error {
	fs := flag.NewFlagSet("islands", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "List the buses and branches of each island")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: gridflow islands <grid.json> [options]

Show how the grid splits into electrically independent islands.

Options:
`)
		fs.PrintDefaults()
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
	nw, err := powerflow.Compile(g)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	fmt.Printf("%s: %d buses, %d branches, %d island(s)\n",
		g.Name, len(g.Buses), len(g.Branches), len(nw.Islands))
	for i, isl := range nw.Islands {
		status := "ok"
		if isl.Err != nil {
			status = isl.Err.Error()
		} else if len(isl.Problem.Idx.Ref) == 0 {
			status = "degenerate (no reference bus)"
		}
		fmt.Printf("  island %d: %d buses, %d branches [%s]\n",
			i, len(isl.BusIdx), len(isl.BranchIdx), status)
		if *verbose {
			fmt.Printf("    buses:    %v\n", isl.BusIdx)
			fmt.Printf("    branches: %v\n", isl.BranchIdx)
		}
	}
	for _, rec := range nw.Diag.Records() {
		fmt.Fprintf(os.Stderr, "%s: [%s] %s\n", rec.Severity, rec.Context, rec.Message)
	}
	return nil
}
