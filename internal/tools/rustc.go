package tools

import (
	"regexp"
	"strings"

	"github.com/newhook/harvest/internal/parser"
)

func init() {
	register(parser.Config{
		ID:       "rustc",
		Name:     "Rust compiler (rustc/cargo)",
		Strategy: parser.StrategyDocument,
		Pattern:  rustcPattern,
		Match:    matchRustc,
		Accepts:  parser.Sniff(sniffLines, func(line string) bool { return rustcLocationPattern.MatchString(line) }),
		Clean:    true,
	})
}

var (
	// rustcPattern matches a diagnostic header, its location line and any
	// trailing "= note:"/"= help:" lines of the same block:
	//
	//	warning: unused variable: `x`
	//	 --> src/main.rs:2:9
	//	  |
	//	  = note: `#[warn(unused_variables)]` on by default
	rustcPattern = regexp.MustCompile(`(?m)^(warning|error)(?:\[(\w+)\])?: (.+)\n[ \t]*--> (.+?):(\d+):(\d+)[ \t]*$((?:\n[ \t]*(?:\d+[ \t]*)?\|.*|\n[ \t]*= .*)*)`)

	rustcLocationPattern = regexp.MustCompile(`^\s*--> .+:\d+:\d+`)

	rustcNotePattern = regexp.MustCompile(`(?m)^[ \t]*= ((?:note|help): .*)$`)
)

func matchRustc(m *parser.Match, mc *parser.MatchContext) parser.Result {
	line, err := parser.Atoi("line", m.Group(5))
	if err != nil {
		return parser.Fail(err)
	}

	var notes []string
	for _, n := range rustcNotePattern.FindAllStringSubmatch(m.Group(7), -1) {
		notes = append(notes, strings.TrimSpace(n[1]))
	}

	return parser.Build(mc.Builder.
		SetFileName(m.Group(4)).
		SetLineStart(line).
		SetColumnStartString(m.Group(6)).
		GuessSeverity(m.Group(1)).
		SetType(m.Group(2)).
		SetMessage(m.Group(3)).
		SetDescription(strings.Join(notes, "\n")))
}
