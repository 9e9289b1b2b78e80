package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gridflow-xyz/go-gridflow/eventlog"
)

func runs(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	db := fs.String("log", "runs.db", "SQLite database written by 'gridflow solve -log'")
	limit := fs.Int("limit", 20, "Maximum number of runs to list")
	showSteps := fs.String("steps", "", "Show the iteration history of one run ID")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: gridflow runs [options]

List logged solver runs, most recent first.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := eventlog.NewStore(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	if *showSteps != "" {
		steps, err := store.Steps(*showSteps)
		if err != nil {
			return err
		}
		if len(steps) == 0 {
			fmt.Println("no steps recorded for this run")
			return nil
		}
		for _, s := range steps {
			fmt.Printf("island %d round %d iter %2d  error %.3e\n",
				s.Island, s.Round, s.Iteration, s.Error)
		}
		return nil
	}

	list, err := store.ListRuns(*limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no runs logged")
		return nil
	}
	for _, r := range list {
		status := "not converged"
		if r.Converged {
			status = "converged"
		}
		fmt.Printf("%s  %-20s %-24s %d island(s)  %s  error %.3e\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.GridName, r.Solver, r.Islands, status, r.Error)
	}
	return nil
}
