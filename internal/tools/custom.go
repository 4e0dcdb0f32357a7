package tools

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/parser"
)

// Definition is a user-defined tool as written in config.toml:
//
//	[[parser]]
//	id = "eslint-compact"
//	pattern = '^(?P<file>.+): line (?P<line>\d+), col (\d+), (\w+) - (.+)$'
//	column = "3"
//	severity = "4"
//	message = "5"
//
// Field references name a capture group, either by index or by name.
type Definition struct {
	ID         string   `toml:"id"`
	Name       string   `toml:"name,omitempty"`
	Strategy   string   `toml:"strategy,omitempty"`
	Pattern    string   `toml:"pattern"`
	Prefilter  []string `toml:"prefilter,omitempty"`
	Extensions []string `toml:"extensions,omitempty"`
	Clean      bool     `toml:"clean,omitempty"`

	File     string `toml:"file,omitempty"`
	Line     string `toml:"line,omitempty"`
	Column   string `toml:"column,omitempty"`
	Severity string `toml:"severity,omitempty"`
	Message  string `toml:"message"`
	Category string `toml:"category,omitempty"`
	Type     string `toml:"type,omitempty"`

	// DefaultSeverity applies when Severity is unset or its group is empty.
	DefaultSeverity string `toml:"default_severity,omitempty"`
}

// groupRef is a resolved capture group index; -1 means unset.
type groupRef int

func (g groupRef) value(m *parser.Match) string {
	if g < 0 {
		return ""
	}
	return strings.TrimSpace(m.Group(int(g)))
}

// FromDefinition compiles a user-defined tool into a parser configuration.
// Only text strategies can be defined this way.
func FromDefinition(def Definition) (parser.Config, error) {
	invalid := func(format string, args ...any) (parser.Config, error) {
		return parser.Config{}, fmt.Errorf("%w: %s: %s", parser.ErrInvalidConfig, def.ID, fmt.Sprintf(format, args...))
	}

	strategy, err := parser.ParseStrategy(def.Strategy)
	if err != nil {
		return invalid("%v", err)
	}
	switch strategy {
	case parser.StrategyLine, parser.StrategyPrefiltered, parser.StrategyDocument:
	default:
		return invalid("strategy %s cannot be defined in configuration", strategy)
	}

	pattern, err := regexp.Compile(def.Pattern)
	if err != nil {
		return invalid("invalid pattern: %v", err)
	}

	resolve := func(field, ref string) (groupRef, error) {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return -1, nil
		}
		if n, err := strconv.Atoi(ref); err == nil {
			if n < 0 || n > pattern.NumSubexp() {
				return -1, fmt.Errorf("%s refers to group %d, pattern has %d", field, n, pattern.NumSubexp())
			}
			return groupRef(n), nil
		}
		if n := pattern.SubexpIndex(ref); n >= 0 {
			return groupRef(n), nil
		}
		return -1, fmt.Errorf("%s refers to unknown group %q", field, ref)
	}

	var refs struct {
		file, line, column, severity, message, category, typ groupRef
	}
	for _, f := range []struct {
		name string
		ref  string
		dst  *groupRef
	}{
		{"file", def.File, &refs.file},
		{"line", def.Line, &refs.line},
		{"column", def.Column, &refs.column},
		{"severity", def.Severity, &refs.severity},
		{"message", def.Message, &refs.message},
		{"category", def.Category, &refs.category},
		{"type", def.Type, &refs.typ},
	} {
		g, err := resolve(f.name, f.ref)
		if err != nil {
			return invalid("%v", err)
		}
		*f.dst = g
	}
	if refs.message < 0 {
		return invalid("message group is required")
	}

	defaultSeverity := issue.SeverityNormal
	if def.DefaultSeverity != "" {
		if defaultSeverity, err = issue.ParseSeverity(def.DefaultSeverity); err != nil {
			return invalid("%v", err)
		}
	}

	match := func(m *parser.Match, mc *parser.MatchContext) parser.Result {
		b := mc.Builder.
			SetFileName(refs.file.value(m)).
			SetCategory(refs.category.value(m)).
			SetType(refs.typ.value(m)).
			SetMessage(refs.message.value(m))

		if v := refs.line.value(m); v != "" {
			line, err := parser.Atoi("line", v)
			if err != nil {
				return parser.Fail(err)
			}
			b.SetLineStart(line)
		}
		if v := refs.column.value(m); v != "" {
			column, err := parser.Atoi("column", v)
			if err != nil {
				return parser.Fail(err)
			}
			b.SetColumnStart(column)
		}

		if v := refs.severity.value(m); v != "" {
			b.GuessSeverity(v)
		} else {
			b.SetSeverity(defaultSeverity)
		}
		return parser.Build(b)
	}

	cfg := parser.Config{
		ID:       def.ID,
		Name:     def.Name,
		Strategy: strategy,
		Pattern:  pattern,
		Match:    match,
		Clean:    def.Clean,
	}
	if len(def.Prefilter) > 0 {
		cfg.Prefilter = parser.ContainsAny(def.Prefilter...)
	}
	if len(def.Extensions) > 0 {
		cfg.Accepts = parser.HasExtension(def.Extensions...)
	}
	if err := cfg.Validate(); err != nil {
		return parser.Config{}, err
	}
	return cfg, nil
}

// RegisterDefinitions compiles and registers user-defined tools.
func (r *Registry) RegisterDefinitions(defs []Definition) error {
	for _, def := range defs {
		cfg, err := FromDefinition(def)
		if err != nil {
			return err
		}
		if err := r.Register(cfg); err != nil {
			return err
		}
	}
	return nil
}
