package tools

import (
	"regexp"
	"strings"

	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/parser"
)

func init() {
	register(parser.Config{
		ID:       "gotest",
		Name:     "go test",
		Strategy: parser.StrategyLookahead,
		Pattern:  goTestFailPattern,
		Match:    matchGoTest,
		Accepts:  sniff(goTestFailPattern),
		Clean:    true,
	})
}

var (
	// goTestFailPattern matches the standard and the gotestsum failure lines:
	//
	//	--- FAIL: TestName (0.01s)
	//	=== FAIL: package/path TestName (0.01s)
	goTestFailPattern = regexp.MustCompile(`^\s*(?:---\s*FAIL:\s*(\S+)|===\s*FAIL:\s*(\S+)\s+(\S+))\s*\([\d.]+s\)`)

	// Testify error trace: Error Trace:\t/path/to/file.go:line
	testifyErrorTracePattern = regexp.MustCompile(`Error Trace:\s*(.+?):(\d+)`)

	// Testify error message: Error:\s+message
	testifyErrorPattern = regexp.MustCompile(`^\s*Error:\s+(.+)`)

	// Testify custom message: Messages:\s+message
	testifyMessagesPattern = regexp.MustCompile(`^\s*Messages:\s+(.+)`)

	// Generic file:line pattern in test output: "    foo_test.go:12: message"
	fileLinePattern = regexp.MustCompile(`(\S+_test\.go):(\d+):?\s*(.*)`)
)

// matchGoTest turns a failed test into an issue. The indented output that
// follows the failure line belongs to the test and is consumed; a nested
// failure line of a subtest is left for its own match.
func matchGoTest(m *parser.Match, mc *parser.MatchContext) parser.Result {
	testName := m.Group(1)
	pkg := ""
	if testName == "" {
		pkg, testName = m.Group(2), m.Group(3)
	}

	body := mc.Lookahead.NextWhile(func(line string) bool {
		return isIndented(line) && !goTestFailPattern.MatchString(line)
	})
	if len(body) == 0 && strings.HasPrefix(strings.TrimSpace(mc.Lookahead.PeekNext()), "--- FAIL: "+testName+"/") {
		// The parent of a failed subtest carries no detail of its own.
		return parser.Skip()
	}

	b := mc.Builder.
		SetSeverity(issue.SeverityError).
		SetCategory("Test Failure").
		SetType(testName).
		SetPackageName(pkg)
	enrichFailure(b, body)
	if i, ok := b.BuildOptional(); ok {
		return parser.Emit(i)
	}
	return parser.Build(b.SetMessage("test failed"))
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

// enrichFailure extracts location and message from the test's output.
func enrichFailure(b *issue.Builder, lines []string) {
	located := false
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		// Extract file and line from testify Error Trace
		if matches := testifyErrorTracePattern.FindStringSubmatch(line); matches != nil {
			b.SetFileName(strings.TrimSpace(matches[1])).SetLineStartString(matches[2])
			located = true
			continue
		}

		// Extract error message from testify Error, collecting continuation lines
		if matches := testifyErrorPattern.FindStringSubmatch(line); matches != nil {
			errParts := []string{strings.TrimSpace(matches[1])}
			for i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				if next == "" || strings.HasPrefix(next, "Error Trace:") ||
					strings.HasPrefix(next, "Test:") || strings.HasPrefix(next, "Messages:") {
					break
				}
				errParts = append(errParts, next)
				i++
			}
			b.SetMessage(strings.Join(errParts, " "))
			continue
		}

		if matches := testifyMessagesPattern.FindStringSubmatch(line); matches != nil {
			b.SetDescription(strings.TrimSpace(matches[1]))
			continue
		}

		// Fallback: t.Errorf output "file_test.go:12: message"
		if !located {
			if matches := fileLinePattern.FindStringSubmatch(line); matches != nil {
				b.SetFileName(matches[1]).SetLineStartString(matches[2])
				b.AppendMessage(matches[3])
				located = true
			}
		}
	}
}
