package parser

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

var (
	// timestampPattern matches CI log timestamp prefixes.
	// Format: 2026-01-26T14:49:40.7760945Z
	timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z\s?`)

	// jobPrefixPattern matches GitHub Actions job/step prefixes.
	// Format: "JobName\tStepName\t2026-01-26..."
	jobPrefixPattern = regexp.MustCompile(`^[^\t]+\t[^\t]+\t\d{4}-\d{2}-\d{2}T[^\s]+\s?`)
)

// CleanLine removes CI decorations from a single line: the job/step prefix,
// the timestamp and any ANSI escape sequences.
//
//	Input:  "Test\tRun tests\t2026-01-26T14:49:40.7760945Z \x1b[31mFAIL\x1b[0m"
//	Output: "FAIL"
func CleanLine(line string) string {
	line = jobPrefixPattern.ReplaceAllString(line, "")
	line = timestampPattern.ReplaceAllString(line, "")
	return ansi.Strip(line)
}

// CleanLog applies CleanLine to every line of a log.
func CleanLog(log string) string {
	lines := strings.Split(log, "\n")
	for i, line := range lines {
		lines[i] = CleanLine(line)
	}
	return strings.Join(lines, "\n")
}
