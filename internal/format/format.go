// Package format renders scan results as colored text, JSON or SARIF.
package format

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/newhook/harvest/internal/runner"
)

// ErrUnknownFormat is returned by Write for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Options controls rendering.
type Options struct {
	// Color enables ANSI colors in text output.
	Color bool
	// Wrap is the column descriptions are wrapped at in text output.
	// Zero disables wrapping.
	Wrap int
	// Version is reported as the tool driver version in SARIF output.
	Version string
}

// Names lists the supported format names.
func Names() []string {
	return []string{"text", "json", "sarif"}
}

// Write renders results to w in the named format.
func Write(w io.Writer, name string, results []runner.Result, opts Options) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text":
		return Text(w, results, opts)
	case "json":
		return JSON(w, results)
	case "sarif":
		return SARIF(w, results, opts)
	}
	return fmt.Errorf("%w %q (expected one of %s)", ErrUnknownFormat, name, strings.Join(Names(), ", "))
}
