package issue

import (
	"errors"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// ErrMissingMessage is returned by Build when no message was set.
var ErrMissingMessage = errors.New("issue has no message")

// Builder accumulates the fields of one Issue. Parsers get a fresh Builder
// for every match; a Builder must not be reused after Build.
type Builder struct {
	fileName    string
	lineStart   int
	lineEnd     int
	columnStart int
	columnEnd   int
	severity    Severity
	severitySet bool
	category    string
	typ         string
	message     string
	packageName string
	moduleName  string
	description string
	origin      string
	guesser     CategoryGuesser
}

// NewBuilder returns an empty builder using GuessCategory for issues
// without a category.
func NewBuilder() *Builder {
	return &Builder{guesser: GuessCategory}
}

// ParseNumber converts a numeric string to a non-negative int. Blank,
// unparsable, negative and out-of-range values all yield 0.
func ParseNumber(s string) int {
	u, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	n, err := safecast.Conv[int](u)
	if err != nil {
		return 0
	}
	return n
}

func nonNegative(n int) int {
	return max(n, 0)
}

// SetFileName sets the affected file, trimmed of surrounding whitespace.
func (b *Builder) SetFileName(name string) *Builder {
	b.fileName = strings.TrimSpace(name)
	return b
}

// SetLineStart sets the first affected line. Negative values become 0.
func (b *Builder) SetLineStart(line int) *Builder {
	b.lineStart = nonNegative(line)
	return b
}

// SetLineStartString is SetLineStart for a captured group; a value
// ParseNumber cannot read becomes 0.
func (b *Builder) SetLineStartString(line string) *Builder {
	return b.SetLineStart(ParseNumber(line))
}

// SetLineEnd sets the last affected line. Values below the start line are
// raised to it by Build.
func (b *Builder) SetLineEnd(line int) *Builder {
	b.lineEnd = nonNegative(line)
	return b
}

// SetLineEndString is SetLineEnd for a captured group, normalized like
// SetLineStartString.
func (b *Builder) SetLineEndString(line string) *Builder {
	return b.SetLineEnd(ParseNumber(line))
}

// SetColumnStart sets the first affected column, 0 when unknown.
func (b *Builder) SetColumnStart(column int) *Builder {
	b.columnStart = nonNegative(column)
	return b
}

// SetColumnStartString is SetColumnStart for a captured group; blank or
// malformed values become 0.
func (b *Builder) SetColumnStartString(column string) *Builder {
	return b.SetColumnStart(ParseNumber(column))
}

// SetColumnEnd sets the last affected column. Zero means the start column.
func (b *Builder) SetColumnEnd(column int) *Builder {
	b.columnEnd = nonNegative(column)
	return b
}

// SetColumnEndString is SetColumnEnd for a captured group; blank or
// malformed values become 0.
func (b *Builder) SetColumnEndString(column string) *Builder {
	return b.SetColumnEnd(ParseNumber(column))
}

// SetSeverity sets the severity. Values outside the canonical set are
// ignored and the builder keeps its previous severity.
func (b *Builder) SetSeverity(s Severity) *Builder {
	if s.Valid() {
		b.severity = s
		b.severitySet = true
	}
	return b
}

// GuessSeverity sets the severity from a free-form token, see GuessSeverity.
func (b *Builder) GuessSeverity(token string) *Builder {
	return b.SetSeverity(GuessSeverity(token))
}

// SetCategory sets the category. An empty category lets the guesser pick one.
func (b *Builder) SetCategory(category string) *Builder {
	b.category = strings.TrimSpace(category)
	return b
}

// SetType sets the tool-specific rule or warning id, such as a compiler flag.
func (b *Builder) SetType(typ string) *Builder {
	b.typ = strings.TrimSpace(typ)
	return b
}

// SetMessage replaces the message. Build fails without one.
func (b *Builder) SetMessage(message string) *Builder {
	b.message = strings.TrimSpace(message)
	return b
}

// AppendMessage adds a continuation line to the message, separated by a
// newline. Blank lines are skipped.
func (b *Builder) AppendMessage(line string) *Builder {
	line = strings.TrimSpace(line)
	if line == "" {
		return b
	}
	if b.message == "" {
		b.message = line
	} else {
		b.message += "\n" + line
	}
	return b
}

// SetPackageName sets the package the issue belongs to.
func (b *Builder) SetPackageName(name string) *Builder {
	b.packageName = strings.TrimSpace(name)
	return b
}

// SetModuleName sets the module the issue belongs to.
func (b *Builder) SetModuleName(name string) *Builder {
	b.moduleName = strings.TrimSpace(name)
	return b
}

// SetDescription sets the free-form details shown below the message.
func (b *Builder) SetDescription(description string) *Builder {
	b.description = strings.TrimSpace(description)
	return b
}

// SetOrigin records the id of the tool that produced the issue.
func (b *Builder) SetOrigin(origin string) *Builder {
	b.origin = origin
	return b
}

// SetCategoryGuesser replaces the heuristic used for issues without a
// category. A nil guesser disables guessing.
func (b *Builder) SetCategoryGuesser(g CategoryGuesser) *Builder {
	b.guesser = g
	return b
}

// Origin returns the origin set so far.
func (b *Builder) Origin() string {
	return b.origin
}

// Build validates the accumulated state, applies defaults and returns the
// Issue. It fails with ErrMissingMessage when the message is blank.
func (b *Builder) Build() (Issue, error) {
	if b.message == "" {
		return Issue{}, ErrMissingMessage
	}

	fileName := b.fileName
	if fileName == "" {
		fileName = UndefinedFileName
	}

	lineEnd := b.lineEnd
	if lineEnd < b.lineStart {
		lineEnd = b.lineStart
	}
	columnEnd := b.columnEnd
	if columnEnd == 0 || (lineEnd == b.lineStart && columnEnd < b.columnStart) {
		columnEnd = b.columnStart
	}

	severity := SeverityNormal
	if b.severitySet {
		severity = b.severity
	}

	category := b.category
	if category == "" && b.guesser != nil {
		category = b.guesser(b.message)
	}

	return Issue{
		FileName:    fileName,
		LineStart:   b.lineStart,
		LineEnd:     lineEnd,
		ColumnStart: b.columnStart,
		ColumnEnd:   columnEnd,
		Severity:    severity,
		Category:    category,
		Type:        b.typ,
		Message:     b.message,
		PackageName: b.packageName,
		ModuleName:  b.moduleName,
		Description: b.description,
		Fingerprint: Fingerprint(fileName, b.lineStart, category, b.typ, b.message),
		Origin:      b.origin,
	}, nil
}

// BuildOptional is Build for parsers that prefer to skip partial matches
// silently: it reports false instead of returning an error.
func (b *Builder) BuildOptional() (Issue, bool) {
	i, err := b.Build()
	if err != nil {
		return Issue{}, false
	}
	return i, true
}
