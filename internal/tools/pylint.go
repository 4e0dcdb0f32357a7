package tools

import (
	"regexp"

	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/parser"
)

func init() {
	register(parser.Config{
		ID:       "pylint",
		Name:     "Pylint",
		Strategy: parser.StrategyLine,
		Pattern:  pylintPattern,
		Match:    matchPylint,
		Accepts:  sniff(pylintPattern),
		Clean:    true,
	})
}

// pylintPattern matches the default text format:
//
//	app/models.py:10:0: C0301: Line too long (120/100) (line-too-long)
var pylintPattern = regexp.MustCompile(`^(.+?\.py):(\d+):(\d+): ([CRWEF])(\d{4}): (.*?)(?: \(([\w-]+)\))?$`)

var pylintCategories = map[string]struct {
	category string
	severity issue.Severity
}{
	"C": {"Convention", issue.SeverityLow},
	"R": {"Refactor", issue.SeverityLow},
	"W": {"Warning", issue.SeverityNormal},
	"E": {"Error", issue.SeverityHigh},
	"F": {"Fatal", issue.SeverityError},
}

func matchPylint(m *parser.Match, mc *parser.MatchContext) parser.Result {
	line, err := parser.Atoi("line", m.Group(2))
	if err != nil {
		return parser.Fail(err)
	}
	kind := pylintCategories[m.Group(4)]

	typ := m.Group(7)
	if typ == "" {
		typ = m.Group(4) + m.Group(5)
	}
	// pylint columns are 0-based.
	column := issue.ParseNumber(m.Group(3)) + 1

	return parser.Build(mc.Builder.
		SetFileName(m.Group(1)).
		SetLineStart(line).
		SetColumnStart(column).
		SetSeverity(kind.severity).
		SetCategory(kind.category).
		SetType(typ).
		SetMessage(m.Group(6)))
}
