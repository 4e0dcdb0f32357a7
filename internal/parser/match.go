package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/newhook/harvest/internal/issue"
)

// Match is one candidate found by a scanning strategy: the matched line (or
// region, for the document strategy) and its capture groups.
type Match struct {
	// Text is the original line or region the pattern matched.
	Text string
	// LineNumber is the 1-based input line where the match starts.
	LineNumber int

	groups []string
	names  []string
}

func newMatch(text string, line int, groups, names []string) *Match {
	return &Match{Text: text, LineNumber: line, groups: groups, names: names}
}

// Group returns capture group i (0 is the whole match), or "" when the group
// does not exist or did not participate in the match.
func (m *Match) Group(i int) string {
	if i < 0 || i >= len(m.groups) {
		return ""
	}
	return m.groups[i]
}

// Named returns the capture group with the given name, or "".
func (m *Match) Named(name string) string {
	for i, n := range m.names {
		if n != "" && n == name {
			return m.Group(i)
		}
	}
	return ""
}

// NumGroups returns the number of capture groups, excluding group 0.
func (m *Match) NumGroups() int {
	return max(len(m.groups)-1, 0)
}

// MatchContext is handed to a match function together with the match.
type MatchContext struct {
	// Builder is a fresh builder for this match, with its origin set.
	Builder *issue.Builder
	// Lookahead is positioned after the matched line. It is only set for
	// the lookahead strategy; other strategies leave it nil.
	Lookahead *LookaheadStream
	// Source is the name of the input being parsed.
	Source string
}

// MatchFunc turns a match into a Result.
type MatchFunc func(m *Match, mc *MatchContext) Result

type resultKind uint8

const (
	kindNone resultKind = iota
	kindIssue
	kindSkip
	kindFail
)

// Result is the outcome of one match: an issue, a silent skip (semantic false
// positive) or a failure that is logged into the report.
type Result struct {
	kind  resultKind
	issue issue.Issue
	err   error
}

// errNoResult is logged when a match function returns the zero Result.
var errNoResult = errors.New("match function returned no result")

// Emit returns a Result carrying i.
func Emit(i issue.Issue) Result {
	return Result{kind: kindIssue, issue: i}
}

// Skip drops the match silently. Use it for matches that are syntactically
// valid but irrelevant; they are neither reported nor logged.
func Skip() Result {
	return Result{kind: kindSkip}
}

// Fail logs the match into the report's error log with err as cause.
func Fail(err error) Result {
	if err == nil {
		err = errNoResult
	}
	return Result{kind: kindFail, err: err}
}

// Failf is Fail with a formatted error.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Errorf(format, args...))
}

// Build finishes b. A build error becomes a logged failure.
func Build(b *issue.Builder) Result {
	i, err := b.Build()
	if err != nil {
		return Fail(err)
	}
	return Emit(i)
}

// BuildOptional finishes b. An incomplete builder is skipped silently.
func BuildOptional(b *issue.Builder) Result {
	i, ok := b.BuildOptional()
	if !ok {
		return Skip()
	}
	return Emit(i)
}

// Issue returns the issue carried by the result.
func (r Result) Issue() (issue.Issue, bool) {
	return r.issue, r.kind == kindIssue
}

// Skipped reports whether the match was dropped as a false positive.
func (r Result) Skipped() bool { return r.kind == kindSkip }

// Err returns the failure cause, if the result is a failure.
func (r Result) Err() error {
	switch r.kind {
	case kindFail:
		return r.err
	case kindNone:
		return errNoResult
	}
	return nil
}

// FieldError reports a capture group whose value could not be converted.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Atoi parses a required numeric field strictly. Match functions use it
// when a non-numeric value means the pattern matched something it should
// not have, which should be visible in the error log instead of being
// normalized to 0 by the builder.
func Atoi(field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &FieldError{Field: field, Value: value, Err: err}
	}
	if n < 0 {
		return 0, &FieldError{Field: field, Value: value, Err: errors.New("negative value")}
	}
	return n, nil
}
