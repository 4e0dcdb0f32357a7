package tools

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/parser"
)

func init() {
	register(parser.Config{
		ID:       "semgrep",
		Name:     "Semgrep",
		Strategy: parser.StrategyJSON,
		Decode:   decodeSemgrep,
		Accepts: parser.AllOf(
			parser.HasExtension(".json"),
			parser.Sniff(sniffLines, func(line string) bool { return strings.Contains(line, `"check_id"`) }),
		),
	})
}

type semgrepJSON struct {
	Results []semgrepResult `json:"results"`
}

type semgrepResult struct {
	CheckID string `json:"check_id"`
	Path    string `json:"path"`
	Start   struct {
		Line int `json:"line"`
		Col  int `json:"col"`
	} `json:"start"`
	End struct {
		Line int `json:"line"`
		Col  int `json:"col"`
	} `json:"end"`
	Extra struct {
		Message  string `json:"message"`
		Severity string `json:"severity"` // INFO|WARNING|ERROR
		Metadata struct {
			Category string   `json:"category"`
			Cwe      any      `json:"cwe"` // string | []string | null
			Refs     []string `json:"references"`
		} `json:"metadata"`
	} `json:"extra"`
}

func decodeSemgrep(data []byte, sink *parser.Sink) error {
	var doc semgrepJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	for _, r := range doc.Results {
		ok := sink.Add(r.CheckID, func(mc *parser.MatchContext) parser.Result {
			b := mc.Builder.
				SetFileName(filepath.ToSlash(r.Path)).
				SetLineStart(r.Start.Line).
				SetLineEnd(r.End.Line).
				SetColumnStart(r.Start.Col).
				SetColumnEnd(r.End.Col).
				SetSeverity(semgrepSeverity(r.Extra.Severity)).
				SetType(r.CheckID).
				SetMessage(r.Extra.Message)
			if c := r.Extra.Metadata.Category; c != "" {
				b.SetCategory(c)
			}

			var details []string
			if cwe := toCwe(r.Extra.Metadata.Cwe); len(cwe) > 0 {
				details = append(details, strings.Join(cwe, ", "))
			}
			if len(r.Extra.Metadata.Refs) > 0 {
				details = append(details, r.Extra.Metadata.Refs[0])
			}
			b.SetDescription(strings.Join(details, "\n"))
			return parser.Build(b)
		})
		if !ok {
			break
		}
	}
	return nil
}

func semgrepSeverity(s string) issue.Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return issue.SeverityHigh
	case "WARNING":
		return issue.SeverityNormal
	default:
		return issue.SeverityLow
	}
}

func toCwe(v any) []string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return []string{t}
		}
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
