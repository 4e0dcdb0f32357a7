// Package report holds the result of one parse call: the ordered issues and
// the log of matches that could not be turned into issues.
package report

import (
	"fmt"
	"slices"

	"github.com/newhook/harvest/internal/issue"
)

// Status tells whether a parse call ran to the end of its input.
type Status uint8

const (
	// StatusCompleted means the whole input was scanned.
	StatusCompleted Status = iota
	// StatusCancelled means the caller stopped the scan; the report is partial.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// ErrorEntry records one match whose issue could not be built.
type ErrorEntry struct {
	Source string `json:"source"`
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Cause  string `json:"cause"`
}

func (e ErrorEntry) String() string {
	return fmt.Sprintf("%s:%d: %s (in %q)", e.Source, e.Line, e.Cause, e.Text)
}

// Report is the mutable result of a single parse call. It is owned by the
// call that created it and must not be shared with another parse call.
type Report struct {
	name   string
	origin string
	issues []issue.Issue
	errors []ErrorEntry
	status Status
	lines  int
}

// New creates an empty report for the named input and tool.
func New(name, origin string) *Report {
	return &Report{name: name, origin: origin}
}

// Name returns the logical name of the parsed input.
func (r *Report) Name() string { return r.name }

// Origin returns the id of the tool that produced the report.
func (r *Report) Origin() string { return r.origin }

// Add appends an issue. Order is preserved and duplicates are kept.
func (r *Report) Add(i issue.Issue) {
	r.issues = append(r.issues, i)
}

// LogError records a match that failed to produce an issue.
func (r *Report) LogError(line int, text string, cause error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	r.errors = append(r.errors, ErrorEntry{
		Source: r.name,
		Line:   line,
		Text:   text,
		Cause:  msg,
	})
}

// Issues returns a copy of the issues in insertion order.
func (r *Report) Issues() []issue.Issue {
	return slices.Clone(r.issues)
}

// Errors returns a copy of the error log in insertion order.
func (r *Report) Errors() []ErrorEntry {
	return slices.Clone(r.errors)
}

// Len returns the number of issues.
func (r *Report) Len() int { return len(r.issues) }

// ErrorCount returns the number of error-log entries.
func (r *Report) ErrorCount() int { return len(r.errors) }

// IsEmpty returns true if the report has neither issues nor errors.
func (r *Report) IsEmpty() bool {
	return len(r.issues) == 0 && len(r.errors) == 0
}

// Status returns whether the scan completed or was cancelled.
func (r *Report) Status() Status { return r.status }

// MarkCancelled flags the report as partial.
func (r *Report) MarkCancelled() { r.status = StatusCancelled }

// Cancelled returns true if the scan was stopped early.
func (r *Report) Cancelled() bool { return r.status == StatusCancelled }

// SetLines records how many input lines were scanned.
func (r *Report) SetLines(n int) { r.lines = n }

// Lines returns how many input lines were scanned.
func (r *Report) Lines() int { return r.lines }

// CountBySeverity returns the number of issues per severity.
func (r *Report) CountBySeverity() map[issue.Severity]int {
	counts := make(map[issue.Severity]int, len(issue.Severities))
	for _, i := range r.issues {
		counts[i.Severity]++
	}
	return counts
}

// HighestSeverity returns the most severe issue level, or false when the
// report has no issues.
func (r *Report) HighestSeverity() (issue.Severity, bool) {
	if len(r.issues) == 0 {
		return issue.SeverityLow, false
	}
	highest := issue.SeverityLow
	for _, i := range r.issues {
		if i.Severity > highest {
			highest = i.Severity
		}
	}
	return highest, true
}

// Filter returns a new report holding only issues at or above min. The error
// log, status and line count are carried over.
func (r *Report) Filter(min issue.Severity) *Report {
	out := &Report{
		name:   r.name,
		origin: r.origin,
		errors: slices.Clone(r.errors),
		status: r.status,
		lines:  r.lines,
	}
	for _, i := range r.issues {
		if i.Severity.AtLeast(min) {
			out.issues = append(out.issues, i)
		}
	}
	return out
}

// Merge appends the issues and errors of other after those of r. A cancelled
// other makes r cancelled too.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.issues = append(r.issues, other.issues...)
	r.errors = append(r.errors, other.errors...)
	r.lines = max(r.lines, other.lines)
	if other.status == StatusCancelled {
		r.status = StatusCancelled
	}
}
