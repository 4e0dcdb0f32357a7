package tools

import (
	"regexp"
	"strings"

	"github.com/newhook/harvest/internal/parser"
)

func init() {
	register(parser.Config{
		ID:        "msbuild",
		Name:      "MSBuild (csc, tsc and friends)",
		Strategy:  parser.StrategyPrefiltered,
		Pattern:   msbuildPattern,
		Prefilter: parser.ContainsAny("warning", "error"),
		Match:     matchMSBuild,
		Accepts:   sniff(msbuildPattern),
		Clean:     true,
	})
}

// msbuildPattern matches:
//
//	1>Program.cs(12,5): warning CS0168: The variable 'e' is declared but never used [C:\src\app.csproj]
//	src/app.ts(3,7): error TS2322: Type 'string' is not assignable to type 'number'.
var msbuildPattern = regexp.MustCompile(`^\s*(?:\d+>)?(.+?)\((\d+)(?:,(\d+))?(?:,\d+,\d+)?\)\s*:\s*(?:fatal\s+)?(warning|error)\s+([A-Za-z]+\d+)\s*:\s*(.*?)(?:\s+\[([^\]]+)\])?$`)

func matchMSBuild(m *parser.Match, mc *parser.MatchContext) parser.Result {
	line, err := parser.Atoi("line", m.Group(2))
	if err != nil {
		return parser.Fail(err)
	}
	code := m.Group(5)
	return parser.Build(mc.Builder.
		SetFileName(strings.TrimSpace(m.Group(1))).
		SetLineStart(line).
		SetColumnStartString(m.Group(3)).
		GuessSeverity(m.Group(4)).
		SetType(code).
		SetModuleName(m.Group(7)).
		SetMessage(m.Group(6)))
}
