package tools

import (
	"regexp"

	"github.com/newhook/harvest/internal/parser"
)

func init() {
	register(parser.Config{
		ID:       "maven",
		Name:     "Maven compiler plugin",
		Strategy: parser.StrategyLine,
		Pattern:  mavenPattern,
		Match:    matchMaven,
		Accepts:  sniff(mavenPattern),
		Clean:    true,
	})
}

// mavenPattern matches: [WARNING] /src/Foo.java:[12,5] [deprecation] msg
var mavenPattern = regexp.MustCompile(`^\[(WARNING|ERROR)\]\s+(.+?\.(?:java|kt|scala|groovy)):\[(\d+)(?:,(\d+))?\]\s+(?:\[([\w-]+)\]\s+)?(.+)$`)

func matchMaven(m *parser.Match, mc *parser.MatchContext) parser.Result {
	line, err := parser.Atoi("line", m.Group(3))
	if err != nil {
		return parser.Fail(err)
	}
	return parser.Build(mc.Builder.
		SetFileName(m.Group(2)).
		SetLineStart(line).
		SetColumnStartString(m.Group(4)).
		GuessSeverity(m.Group(1)).
		SetType(m.Group(5)).
		SetMessage(m.Group(6)))
}
