package tools

import (
	"regexp"

	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/parser"
)

func init() {
	register(parser.Config{
		ID:       "go",
		Name:     "Go compiler and go vet",
		Strategy: parser.StrategyLine,
		Pattern:  goPattern,
		Match:    matchGo,
		Accepts:  sniff(goPattern),
		Clean:    true,
	})
}

// goPattern matches `go build` and `go vet` diagnostics:
//
//	./main.go:12:5: undefined: foo
//	vet: pkg/x.go:3:1: unreachable code
var goPattern = regexp.MustCompile(`^(vet: )?(\S+\.go):(\d+):(?:(\d+):)?\s+(.+)$`)

// linterSuffix marks golangci-lint output, which is left to that tool.
var linterSuffix = regexp.MustCompile(`\s\([\w-]+\)$`)

func matchGo(m *parser.Match, mc *parser.MatchContext) parser.Result {
	if linterSuffix.MatchString(m.Group(5)) {
		return parser.Skip()
	}
	line, err := parser.Atoi("line", m.Group(3))
	if err != nil {
		return parser.Fail(err)
	}
	severity := issue.SeverityError
	typ := "compile"
	if m.Group(1) != "" {
		severity = issue.SeverityNormal
		typ = "vet"
	}
	return parser.Build(mc.Builder.
		SetFileName(m.Group(2)).
		SetLineStart(line).
		SetColumnStartString(m.Group(4)).
		SetSeverity(severity).
		SetType(typ).
		SetMessage(m.Group(5)))
}
