package format

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/report"
	"github.com/newhook/harvest/internal/runner"
)

type jsonOutput struct {
	Reports []jsonReport `json:"reports"`
	Summary jsonSummary  `json:"summary"`
}

type jsonReport struct {
	report.Snapshot
	Cached bool   `json:"cached,omitempty"`
	Error  string `json:"error,omitempty"`
}

type jsonSummary struct {
	Results    int            `json:"results"`
	Issues     int            `json:"issues"`
	Errors     int            `json:"errors"`
	Failed     int            `json:"failed"`
	BySeverity map[string]int `json:"bySeverity"`
}

// JSON writes every result as a report snapshot, followed by a summary.
func JSON(w io.Writer, results []runner.Result) error {
	out := jsonOutput{Reports: make([]jsonReport, 0, len(results))}
	for _, res := range results {
		rep := res.Report
		if rep == nil {
			rep = report.New(res.Source, res.Tool)
		}
		jr := jsonReport{Snapshot: rep.Snapshot(), Cached: res.Cached}
		if res.Err != nil {
			jr.Error = res.Err.Error()
		}
		out.Reports = append(out.Reports, jr)
	}

	s := runner.Summarize(results)
	out.Summary = jsonSummary{
		Results:    s.Results,
		Issues:     s.Issues,
		Errors:     s.Errors,
		Failed:     s.Failed,
		BySeverity: make(map[string]int, len(issue.Severities)),
	}
	for _, sev := range issue.Severities {
		out.Summary.BySeverity[strings.ToLower(sev.String())] = s.BySeverity[sev]
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
