package eventlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

var csvHeader = []string{"run_id", "island", "round", "iteration", "error", "timestamp"}

// WriteCSV writes every step of the log to a CSV file, ordered by run ID.
func WriteCSV(l *Log, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()
	return WriteCSVWriter(l, f)
}

// WriteCSVWriter writes the log's steps to an io.Writer in CSV form.
func WriteCSVWriter(l *Log, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, id := range l.RunIDs() {
		for _, s := range l.Steps[id] {
			rec := []string{
				s.RunID,
				strconv.Itoa(s.Island),
				strconv.Itoa(s.Round),
				strconv.Itoa(s.Iteration),
				strconv.FormatFloat(s.Error, 'g', -1, 64),
				s.Timestamp.UTC().Format(time.RFC3339Nano),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("writing step: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseCSV reads a step log written by WriteCSV.
func ParseCSV(filename string) (*Log, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return ParseCSVReader(f)
}

// ParseCSVReader reads steps from an io.Reader in the WriteCSV layout.
func ParseCSVReader(r io.Reader) (*Log, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected header with %d columns", len(header))
	}

	l := NewLog()
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		line++

		island, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: island: %w", line, err)
		}
		round, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: round: %w", line, err)
		}
		iter, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: iteration: %w", line, err)
		}
		mismatch, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: error value: %w", line, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, rec[5])
		if err != nil {
			return nil, fmt.Errorf("line %d: timestamp: %w", line, err)
		}

		l.AddStep(Step{
			RunID:     rec[0],
			Island:    island,
			Round:     round,
			Iteration: iter,
			Error:     mismatch,
			Timestamp: ts,
		})
	}
	return l, nil
}
