package format

import (
	"encoding/json"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/runner"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	// fingerprintKey names the partial fingerprint carried by every result.
	fingerprintKey = "harvestFingerprint/v1"
)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId,omitempty"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

// SARIF writes a SARIF 2.1.0 log with one run per tool, in the order tools
// first appear in results.
func SARIF(w io.Writer, results []runner.Result, opts Options) error {
	var order []string
	runs := make(map[string]*sarifRun)
	rules := make(map[string]map[string]bool)

	for _, res := range results {
		if res.Report == nil || res.Tool == "" {
			continue
		}
		run, ok := runs[res.Tool]
		if !ok {
			run = &sarifRun{
				Tool:    sarifTool{Driver: sarifDriver{Name: res.Tool, Version: opts.Version}},
				Results: []sarifResult{},
			}
			runs[res.Tool] = run
			rules[res.Tool] = make(map[string]bool)
			order = append(order, res.Tool)
		}
		for _, i := range res.Report.Issues() {
			r := sarifResultFor(i)
			if r.RuleID != "" && !rules[res.Tool][r.RuleID] {
				rules[res.Tool][r.RuleID] = true
				run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{
					ID:               r.RuleID,
					ShortDescription: sarifMessage{Text: ruleDescription(i)},
				})
			}
			run.Results = append(run.Results, r)
		}
	}

	log := sarifLog{Version: sarifVersion, Schema: sarifSchema, Runs: []sarifRun{}}
	for _, tool := range order {
		run := runs[tool]
		slices.SortFunc(run.Tool.Driver.Rules, func(a, b sarifRule) int { return strings.Compare(a.ID, b.ID) })
		log.Runs = append(log.Runs, *run)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func sarifResultFor(i issue.Issue) sarifResult {
	r := sarifResult{
		RuleID:  issueLabel(i),
		Level:   sarifLevel(i.Severity),
		Message: sarifMessage{Text: sarifText(i)},
	}
	if i.Fingerprint != "" {
		r.PartialFingerprints = map[string]string{fingerprintKey: i.Fingerprint}
	}
	if i.HasFileName() {
		loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: toURI(i.FileName)},
		}}
		if i.LineStart > 0 {
			region := &sarifRegion{StartLine: i.LineStart, StartColumn: i.ColumnStart}
			if i.LineEnd > i.LineStart {
				region.EndLine = i.LineEnd
			}
			if i.ColumnEnd > i.ColumnStart {
				region.EndColumn = i.ColumnEnd
			}
			loc.PhysicalLocation.Region = region
		}
		r.Locations = []sarifLocation{loc}
	}
	return r
}

func sarifText(i issue.Issue) string {
	if i.Description == "" {
		return i.Message
	}
	return i.Message + "\n\n" + i.Description
}

func ruleDescription(i issue.Issue) string {
	if i.Category != "" && i.Category != i.Type {
		return i.Category
	}
	return issueLabel(i)
}

func sarifLevel(s issue.Severity) string {
	switch s {
	case issue.SeverityError, issue.SeverityHigh:
		return "error"
	case issue.SeverityNormal:
		return "warning"
	}
	return "note"
}

func toURI(p string) string {
	p = filepath.ToSlash(strings.TrimSpace(p))
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.TrimPrefix(p, "./")
}
