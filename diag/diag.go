// Package diag collects diagnostics emitted while compiling and solving a
// grid. Components append severity-tagged records to a Collector instead of
// writing to a process-wide logger, so callers receive the full account of
// soft failures (slack promotion, rating floors, non-convergence) alongside
// the primary result.
package diag

import (
	"fmt"
	"sync"
)

// Severity classifies a diagnostic record.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// String returns the severity label.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Record is a single diagnostic entry.
type Record struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Context  string   `json:"context,omitempty"` // component or device that emitted the record
}

// Collector accumulates diagnostic records. It is safe for concurrent use
// so island workers can share one collector.
type Collector struct {
	mu      sync.Mutex
	records []Record
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{records: make([]Record, 0)}
}

func (c *Collector) add(sev Severity, context, format string, args ...any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, Record{
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Context:  context,
	})
}

// Infof appends an informational record.
func (c *Collector) Infof(context, format string, args ...any) {
	c.add(Info, context, format, args...)
}

// Warnf appends a warning record.
func (c *Collector) Warnf(context, format string, args ...any) {
	c.add(Warning, context, format, args...)
}

// Errorf appends an error record.
func (c *Collector) Errorf(context, format string, args ...any) {
	c.add(Error, context, format, args...)
}

// Records returns a copy of the accumulated records.
func (c *Collector) Records() []Record {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// HasErrors reports whether any record carries Error severity.
func (c *Collector) HasErrors() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if r.Severity == Error {
			return true
		}
	}
	return false
}

// Count returns the number of records with the given severity.
func (c *Collector) Count(sev Severity) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.records {
		if r.Severity == sev {
			n++
		}
	}
	return n
}
