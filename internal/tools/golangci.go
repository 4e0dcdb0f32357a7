package tools

import (
	"regexp"

	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/parser"
)

func init() {
	register(parser.Config{
		ID:       "golangci-lint",
		Name:     "golangci-lint",
		Strategy: parser.StrategyLine,
		Pattern:  lintPattern,
		Match:    matchLint,
		Accepts:  sniff(lintPattern),
		Clean:    true,
	})
}

// lintPattern matches golangci-lint lines, plain or as GitHub Actions
// annotations:
//
//	##[error]file.go:124:15: Error return value is not checked (errcheck)
//	file.go:3: File is not gofmt-ed (gofmt)
var lintPattern = regexp.MustCompile(`^(?:##\[(error|warning)\])?([^:\s]+):(\d+)(?::(\d+))?:\s*(.+?)\s*\(([\w-]+)\)$`)

// lintSeverities maps linters whose findings are real defects to a higher
// severity than style linters.
var lintSeverities = map[string]issue.Severity{
	"typecheck":   issue.SeverityError,
	"errcheck":    issue.SeverityHigh,
	"govet":       issue.SeverityHigh,
	"staticcheck": issue.SeverityHigh,
	"gosec":       issue.SeverityHigh,
	"gofmt":       issue.SeverityLow,
	"goimports":   issue.SeverityLow,
	"misspell":    issue.SeverityLow,
}

func matchLint(m *parser.Match, mc *parser.MatchContext) parser.Result {
	line, err := parser.Atoi("line", m.Group(3))
	if err != nil {
		return parser.Fail(err)
	}
	linter := m.Group(6)

	severity, ok := lintSeverities[linter]
	if !ok {
		severity = issue.SeverityNormal
	}
	if m.Group(1) == "error" && severity < issue.SeverityHigh {
		severity = issue.SeverityHigh
	}

	return parser.Build(mc.Builder.
		SetFileName(m.Group(2)).
		SetLineStart(line).
		SetColumnStartString(m.Group(4)).
		SetSeverity(severity).
		SetType(linter).
		SetMessage(m.Group(5)))
}
