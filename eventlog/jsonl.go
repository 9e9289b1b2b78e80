package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// WriteJSONL writes every step as one JSON object per line, ordered by
// run ID. The layout streams well and appends cheaply.
func WriteJSONL(l *Log, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()
	return WriteJSONLWriter(l, f)
}

// WriteJSONLWriter writes the log's steps to an io.Writer in JSONL form.
func WriteJSONLWriter(l *Log, w io.Writer) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, id := range l.RunIDs() {
		for _, s := range l.Steps[id] {
			if err := enc.Encode(s); err != nil {
				return fmt.Errorf("encoding step: %w", err)
			}
		}
	}
	return bw.Flush()
}

// ParseJSONL reads a step log written by WriteJSONL. Empty lines are
// skipped.
func ParseJSONL(filename string) (*Log, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return ParseJSONLReader(f)
}

// ParseJSONLReader reads steps from an io.Reader, one JSON object per line.
func ParseJSONLReader(r io.Reader) (*Log, error) {
	l := NewLog()
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var s Step
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		l.AddStep(s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}
	return l, nil
}
