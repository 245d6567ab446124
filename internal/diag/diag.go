// Package diag collects and formats user-facing diagnostics produced
// while assembling, linking, or validating a module. It replaces
// ad-hoc fmt.Errorf chains with a single aggregated report so a bad
// input file gets one clear multi-line message instead of stopping at
// the first problem found.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Level classifies how serious a Diagnostic is.
type Level int

const (
	// Warning indicates a recoverable oddity; processing continues.
	Warning Level = iota
	// Error indicates the current stage cannot produce valid output.
	Error
	// Fatal indicates processing must stop immediately.
	Fatal
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Stage names the toolchain phase a Diagnostic was raised in.
type Stage string

const (
	StageLex       Stage = "lex"
	StageAssemble  Stage = "assemble"
	StageLink      Stage = "link"
	StageConformity Stage = "conformity"
	StageExecute   Stage = "execute"
)

// Diagnostic is a single reported problem, optionally tied to a
// specific source line.
type Diagnostic struct {
	Level   Level
	Stage   Stage
	File    string
	Line    int // 0 when not tied to a specific source line
	Message string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Level.String())
	b.WriteByte(':')
	if d.File != "" {
		fmt.Fprintf(&b, " %s", d.File)
		if d.Line > 0 {
			fmt.Fprintf(&b, ":%d", d.Line)
		}
	} else if d.Line > 0 {
		fmt.Fprintf(&b, " line %d", d.Line)
	}
	fmt.Fprintf(&b, " [%s] %s", d.Stage, d.Message)
	return b.String()
}

// Diagnostics aggregates Diagnostic values across an entire assemble
// or link pass, grouped by line on output so a reader sees every
// complaint about one line together rather than interleaved with
// unrelated lines.
type Diagnostics struct {
	items []Diagnostic
}

// Add appends a Diagnostic to the collector.
func (d *Diagnostics) Add(item Diagnostic) {
	d.items = append(d.items, item)
}

// Errorf is a convenience wrapper that appends an Error-level
// Diagnostic built from a format string.
func (d *Diagnostics) Errorf(stage Stage, line int, format string, args ...any) {
	d.Add(Diagnostic{Level: Error, Stage: stage, Line: line, Message: fmt.Sprintf(format, args...)})
}

// Warnf is a convenience wrapper that appends a Warning-level
// Diagnostic built from a format string.
func (d *Diagnostics) Warnf(stage Stage, line int, format string, args ...any) {
	d.Add(Diagnostic{Level: Warning, Stage: stage, Line: line, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any Error or Fatal level Diagnostic was
// collected.
func (d *Diagnostics) HasErrors() bool {
	for _, item := range d.items {
		if item.Level >= Error {
			return true
		}
	}
	return false
}

// Items returns the collected diagnostics in insertion order.
func (d *Diagnostics) Items() []Diagnostic {
	return d.items
}

// Len returns the number of collected diagnostics.
func (d *Diagnostics) Len() int {
	return len(d.items)
}

// Error implements the error interface, rendering every collected
// diagnostic grouped by line number (diagnostics with no line number
// sort first).
func (d *Diagnostics) Error() string {
	if len(d.items) == 0 {
		return ""
	}
	sorted := make([]Diagnostic, len(d.items))
	copy(sorted, d.items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Line < sorted[j].Line
	})
	lines := make([]string, 0, len(sorted))
	for _, item := range sorted {
		lines = append(lines, item.String())
	}
	return strings.Join(lines, "\n")
}

// AsError returns d as an error when it holds any Error/Fatal level
// diagnostic, or nil otherwise.
func (d *Diagnostics) AsError() error {
	if !d.HasErrors() {
		return nil
	}
	return d
}
