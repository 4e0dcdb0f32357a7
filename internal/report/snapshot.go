package report

import (
	"slices"

	"github.com/newhook/harvest/internal/issue"
)

// Snapshot is the exported, serializable form of a Report. It is what the
// report cache stores and what JSON output emits.
type Snapshot struct {
	Name   string        `json:"name"`
	Origin string        `json:"origin"`
	Status string        `json:"status"`
	Lines  int           `json:"lines"`
	Issues []issue.Issue `json:"issues"`
	Errors []ErrorEntry  `json:"errors"`
}

// Snapshot copies the report into its serializable form.
func (r *Report) Snapshot() Snapshot {
	issues := slices.Clone(r.issues)
	if issues == nil {
		issues = []issue.Issue{}
	}
	errs := slices.Clone(r.errors)
	if errs == nil {
		errs = []ErrorEntry{}
	}
	return Snapshot{
		Name:   r.name,
		Origin: r.origin,
		Status: r.status.String(),
		Lines:  r.lines,
		Issues: issues,
		Errors: errs,
	}
}

// FromSnapshot rebuilds a Report from its serialized form.
func FromSnapshot(s Snapshot) *Report {
	r := &Report{
		name:   s.Name,
		origin: s.Origin,
		lines:  s.Lines,
		issues: slices.Clone(s.Issues),
		errors: slices.Clone(s.Errors),
	}
	if s.Status == StatusCancelled.String() {
		r.status = StatusCancelled
	}
	return r
}
