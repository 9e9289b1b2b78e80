package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gridflow-xyz/go-gridflow/diag"
	"github.com/gridflow-xyz/go-gridflow/powerflow"
)

func validate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: gridflow validate <grid.json>

Check a grid file for configuration errors: zero-impedance branches,
conflicting voltage set-points, missing reference buses.
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
	nw, err := powerflow.Compile(g)
	if err != nil {
		return fmt.Errorf("invalid: %w", err)
	}

	bad := 0
	for i, isl := range nw.Islands {
		if isl.Err != nil {
			fmt.Printf("island %d: %v\n", i, isl.Err)
			bad++
		}
	}
	for _, rec := range nw.Diag.Records() {
		if rec.Severity >= diag.Warning {
			fmt.Printf("%s: [%s] %s\n", rec.Severity, rec.Context, rec.Message)
		}
	}

	if bad > 0 {
		return fmt.Errorf("%d island(s) failed to compile", bad)
	}
	fmt.Printf("%s: ok (%d buses, %d branches, %d islands)\n",
		g.Name, len(g.Buses), len(g.Branches), len(nw.Islands))
	return nil
}
