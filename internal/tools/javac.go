package tools

import (
	"regexp"
	"strings"

	"github.com/newhook/harvest/internal/parser"
)

func init() {
	register(parser.Config{
		ID:       "javac",
		Name:     "Java compiler",
		Strategy: parser.StrategyLookahead,
		Pattern:  javacPattern,
		Match:    matchJavac,
		Accepts:  sniff(javacPattern),
		Clean:    true,
	})
}

var (
	// javacPattern matches: File.java:12: warning: [deprecation] msg
	javacPattern = regexp.MustCompile(`^(.+\.java):(\d+): (warning|error): (?:\[([\w-]+)\] )?(.+)$`)

	// caretPattern is the marker line javac prints below the source line.
	caretPattern = regexp.MustCompile(`^\s*\^\s*$`)
)

// matchJavac reads the diagnostic line and, when javac printed the source
// line followed by a caret, consumes both and takes the column from the
// caret position.
func matchJavac(m *parser.Match, mc *parser.MatchContext) parser.Result {
	line, err := parser.Atoi("line", m.Group(2))
	if err != nil {
		return parser.Fail(err)
	}

	b := mc.Builder.
		SetFileName(m.Group(1)).
		SetLineStart(line).
		GuessSeverity(m.Group(3)).
		SetType(m.Group(4)).
		SetMessage(m.Group(5))

	if caret, ok := mc.Lookahead.Peek(2); ok && caretPattern.MatchString(caret) {
		mc.Lookahead.Next()
		mc.Lookahead.Next()
		b.SetColumnStart(strings.Index(caret, "^") + 1)
	}
	return parser.Build(b)
}
