package runner

import (
	"github.com/newhook/harvest/internal/issue"
)

// Summary aggregates a set of results.
type Summary struct {
	Results    int
	Issues     int
	Errors     int
	Failed     int
	Cached     int
	BySeverity map[issue.Severity]int
}

// Summarize counts issues per severity across results, along with error-log
// entries and failed parses.
func Summarize(results []Result) Summary {
	s := Summary{
		Results:    len(results),
		BySeverity: make(map[issue.Severity]int, len(issue.Severities)),
	}
	for _, res := range results {
		if res.Err != nil {
			s.Failed++
		}
		if res.Cached {
			s.Cached++
		}
		if res.Report == nil {
			continue
		}
		s.Issues += res.Report.Len()
		s.Errors += res.Report.ErrorCount()
		for sev, n := range res.Report.CountBySeverity() {
			s.BySeverity[sev] += n
		}
	}
	return s
}

// Exceeds reports whether any result holds an issue at or above failOn.
func Exceeds(results []Result, failOn issue.Severity) bool {
	for _, res := range results {
		if res.Report == nil {
			continue
		}
		if highest, ok := res.Report.HighestSeverity(); ok && highest.AtLeast(failOn) {
			return true
		}
	}
	return false
}

// Issues flattens the issues of all results, in result order.
func Issues(results []Result) []issue.Issue {
	var all []issue.Issue
	for _, res := range results {
		if res.Report != nil {
			all = append(all, res.Report.Issues()...)
		}
	}
	return all
}
