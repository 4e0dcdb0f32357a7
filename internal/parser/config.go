package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/newhook/harvest/internal/issue"
)

// Strategy selects how the engine walks its input.
type Strategy uint8

const (
	// StrategyLine applies the pattern to every line independently.
	StrategyLine Strategy = iota
	// StrategyPrefiltered runs a cheap prefilter before the pattern.
	StrategyPrefiltered
	// StrategyDocument applies a multiline pattern to the whole input.
	StrategyDocument
	// StrategyLookahead matches per line and lets the match function
	// consume following lines.
	StrategyLookahead
	// StrategyJSON decodes a structured document instead of matching text.
	StrategyJSON
)

func (s Strategy) String() string {
	switch s {
	case StrategyLine:
		return "line"
	case StrategyPrefiltered:
		return "prefiltered"
	case StrategyDocument:
		return "document"
	case StrategyLookahead:
		return "lookahead"
	case StrategyJSON:
		return "json"
	}
	return "unknown"
}

// ParseStrategy parses a strategy name as produced by String.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "line":
		return StrategyLine, nil
	case "prefiltered":
		return StrategyPrefiltered, nil
	case "document":
		return StrategyDocument, nil
	case "lookahead":
		return StrategyLookahead, nil
	case "json":
		return StrategyJSON, nil
	}
	return StrategyLine, fmt.Errorf("unknown strategy %q", name)
}

// DecodeFunc decodes a whole structured document and hands every record to
// the sink.
type DecodeFunc func(data []byte, sink *Sink) error

// ErrInvalidConfig is wrapped by all configuration validation errors.
var ErrInvalidConfig = errors.New("invalid parser configuration")

// Config declares one tool parser: pure data plus callbacks. A Config holds
// no mutable state, so an Engine built from it may be used concurrently.
type Config struct {
	// ID is the stable tool identifier recorded as issue origin.
	ID string
	// Name is a human-readable tool name.
	Name string
	// Strategy selects the scanning discipline.
	Strategy Strategy
	// Pattern is matched against lines, or against the whole input for
	// StrategyDocument. Unused for StrategyJSON.
	Pattern *regexp.Regexp
	// Prefilter must accept every line Pattern matches. Required for
	// StrategyPrefiltered and ignored otherwise.
	Prefilter func(line string) bool
	// VerifyPrefilter additionally runs Pattern on lines the prefilter
	// rejected and logs a warning for every unsound rejection.
	VerifyPrefilter bool
	// Match turns a match into a Result. Unused for StrategyJSON.
	Match MatchFunc
	// Decode handles StrategyJSON inputs.
	Decode DecodeFunc
	// Accepts tells whether the tool plausibly produced src. Nil accepts all.
	Accepts func(src Source) bool
	// Clean strips CI decorations from every line before matching.
	Clean bool
	// Categories overrides the category heuristic for built issues.
	Categories issue.CategoryGuesser
}

// Validate checks that the configuration is complete for its strategy.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidConfig)
	}
	switch c.Strategy {
	case StrategyLine, StrategyPrefiltered, StrategyDocument, StrategyLookahead:
		if c.Pattern == nil {
			return fmt.Errorf("%w: %s: %s strategy needs a pattern", ErrInvalidConfig, c.ID, c.Strategy)
		}
		if c.Match == nil {
			return fmt.Errorf("%w: %s: missing match function", ErrInvalidConfig, c.ID)
		}
		if c.Strategy == StrategyPrefiltered && c.Prefilter == nil {
			return fmt.Errorf("%w: %s: prefiltered strategy needs a prefilter", ErrInvalidConfig, c.ID)
		}
	case StrategyJSON:
		if c.Decode == nil {
			return fmt.Errorf("%w: %s: json strategy needs a decode function", ErrInvalidConfig, c.ID)
		}
	default:
		return fmt.Errorf("%w: %s: unknown strategy %d", ErrInvalidConfig, c.ID, c.Strategy)
	}
	return nil
}

// PrefilterSound reports whether the prefilter is sound for line: a line the
// pattern matches must be accepted by the prefilter. Configurations without
// a prefilter are trivially sound.
func (c *Config) PrefilterSound(line string) bool {
	if c.Prefilter == nil || c.Pattern == nil {
		return true
	}
	return c.Prefilter(line) || !c.Pattern.MatchString(line)
}

// ContainsAny returns a prefilter accepting lines that contain at least one
// of the tokens.
func ContainsAny(tokens ...string) func(string) bool {
	return func(line string) bool {
		for _, t := range tokens {
			if strings.Contains(line, t) {
				return true
			}
		}
		return false
	}
}

// HasExtension returns an Accepts function matching sources whose name ends
// with one of the extensions, or any source when the name has no extension
// (standard input, pipes).
func HasExtension(exts ...string) func(Source) bool {
	return func(src Source) bool {
		name := strings.ToLower(src.Name())
		dot := strings.LastIndex(name, ".")
		if dot < 0 || strings.ContainsAny(name[dot:], `/\`) {
			return true
		}
		for _, ext := range exts {
			if strings.HasSuffix(name, strings.ToLower(ext)) {
				return true
			}
		}
		return false
	}
}

// Sniff returns an Accepts function that reads up to maxLines cleaned lines
// of src and reports whether any of them satisfies pred. Single-use sources
// are accepted without being read.
func Sniff(maxLines int, pred func(line string) bool) func(Source) bool {
	return func(src Source) bool {
		if SingleUse(src) {
			return true
		}
		r, err := src.Open()
		if err != nil {
			return false
		}
		defer r.Close()
		for n := 0; n < maxLines && r.Scan(); n++ {
			if pred(CleanLine(r.Text())) {
				return true
			}
		}
		return false
	}
}

// AllOf combines Accepts functions; src must satisfy each of them.
func AllOf(accepts ...func(Source) bool) func(Source) bool {
	return func(src Source) bool {
		for _, accept := range accepts {
			if !accept(src) {
				return false
			}
		}
		return true
	}
}
