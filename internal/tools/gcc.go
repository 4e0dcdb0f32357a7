package tools

import (
	"regexp"
	"strings"

	"github.com/newhook/harvest/internal/parser"
)

func init() {
	register(parser.Config{
		ID:        "gcc",
		Name:      "GNU C Compiler (gcc/clang)",
		Strategy:  parser.StrategyPrefiltered,
		Pattern:   gccPattern,
		Prefilter: parser.ContainsAny("warning:", "error:", "note:"),
		Match:     matchGcc,
		Accepts:   sniff(gccPattern),
		Clean:     true,
	})
}

// gccPattern matches: file:line[:col]: warning|error|fatal error|note: msg [-Wflag]
var gccPattern = regexp.MustCompile(`^(.+?):(\d+):(?:(\d+):)?\s*(warning|error|fatal error|note):\s*(.*?)(?:\s+\[(-W[^\]]+)\])?$`)

func matchGcc(m *parser.Match, mc *parser.MatchContext) parser.Result {
	file := m.Group(1)
	if strings.HasPrefix(file, "In file included from") {
		return parser.Skip()
	}
	line, err := parser.Atoi("line", m.Group(2))
	if err != nil {
		return parser.Fail(err)
	}

	b := mc.Builder.
		SetFileName(file).
		SetLineStart(line).
		SetColumnStartString(m.Group(3)).
		GuessSeverity(m.Group(4)).
		SetMessage(m.Group(5))
	if flag := m.Group(6); flag != "" {
		b.SetType(flag)
	}
	return parser.Build(b)
}
