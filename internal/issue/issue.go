// Package issue defines the diagnostic record extracted from tool output,
// its severity scale and the builder used by parsers to assemble it.
package issue

import (
	"fmt"
	"strconv"
	"strings"
)

// UndefinedFileName is recorded when the tool output carries no file name.
const UndefinedFileName = "-"

// Issue is one structured diagnostic extracted from a log line or region.
// Issues are produced by Builder.Build and are treated as immutable values
// from then on; copies may be passed around freely.
type Issue struct {
	FileName    string   `json:"fileName"`
	LineStart   int      `json:"lineStart"`
	LineEnd     int      `json:"lineEnd"`
	ColumnStart int      `json:"columnStart"`
	ColumnEnd   int      `json:"columnEnd"`
	Severity    Severity `json:"severity"`
	Category    string   `json:"category,omitempty"`
	Type        string   `json:"type,omitempty"`
	Message     string   `json:"message"`
	PackageName string   `json:"packageName,omitempty"`
	ModuleName  string   `json:"moduleName,omitempty"`
	Description string   `json:"description,omitempty"`
	Fingerprint string   `json:"fingerprint"`
	Origin      string   `json:"origin,omitempty"`
}

// HasFileName returns true if the issue refers to a concrete file.
func (i Issue) HasFileName() bool {
	return i.FileName != "" && i.FileName != UndefinedFileName
}

// Location renders file:line[:column] for display.
func (i Issue) Location() string {
	var sb strings.Builder
	sb.WriteString(i.FileName)
	if i.LineStart > 0 {
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(i.LineStart))
		if i.ColumnStart > 0 {
			sb.WriteString(":")
			sb.WriteString(strconv.Itoa(i.ColumnStart))
		}
	}
	return sb.String()
}

// String returns a compiler-style one-line representation of the issue.
func (i Issue) String() string {
	label := i.Category
	if label == "" {
		label = i.Type
	}
	if label != "" {
		return fmt.Sprintf("%s: %s: %s [%s]", i.Location(), strings.ToLower(i.Severity.String()), i.Message, label)
	}
	return fmt.Sprintf("%s: %s: %s", i.Location(), strings.ToLower(i.Severity.String()), i.Message)
}
