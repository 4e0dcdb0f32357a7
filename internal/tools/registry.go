// Package tools declares the tool parsers harvest knows about. Every tool is
// a parser.Config: a pattern, a scanning strategy and a match function.
// Built-in tools register themselves from init; user-defined tools are
// compiled from configuration with FromDefinition.
package tools

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/newhook/harvest/internal/parser"
)

// ErrUnknownTool is returned when a tool id is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// sniffLines bounds how much of an input Detect reads per tool.
const sniffLines = 2000

// sniff accepts inputs where one of the first lines matches re.
func sniff(re *regexp.Regexp) func(parser.Source) bool {
	return parser.Sniff(sniffLines, re.MatchString)
}

// builtins is the table of built-in tools in registration order.
var builtins []parser.Config

// register adds a built-in tool. Called from init functions.
func register(cfg parser.Config) {
	builtins = append(builtins, cfg)
}

// Registry is an ordered lookup table of tool engines keyed by id.
type Registry struct {
	order   []string
	engines map[string]*parser.Engine
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]*parser.Engine)}
}

// Default returns a registry holding all built-in tools.
func Default() *Registry {
	r := NewRegistry()
	for _, cfg := range builtins {
		if err := r.Register(cfg); err != nil {
			panic(fmt.Sprintf("built-in tool %s: %v", cfg.ID, err))
		}
	}
	return r
}

// Register validates cfg and adds it. Ids are unique.
func (r *Registry) Register(cfg parser.Config) error {
	if _, exists := r.engines[cfg.ID]; exists {
		return fmt.Errorf("duplicate tool id %q", cfg.ID)
	}
	e, err := parser.New(cfg)
	if err != nil {
		return err
	}
	r.order = append(r.order, cfg.ID)
	r.engines[cfg.ID] = e
	return nil
}

// Lookup returns the engine for id.
func (r *Registry) Lookup(id string) (*parser.Engine, bool) {
	e, ok := r.engines[id]
	return e, ok
}

// IDs returns the registered tool ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// SortedIDs returns the registered tool ids alphabetically.
func (r *Registry) SortedIDs() []string {
	ids := r.IDs()
	sort.Strings(ids)
	return ids
}

// Engines resolves ids to engines, preserving their order. An empty list
// selects every registered tool.
func (r *Registry) Engines(ids []string) ([]*parser.Engine, error) {
	if len(ids) == 0 {
		ids = r.order
	}
	engines := make([]*parser.Engine, 0, len(ids))
	for _, id := range ids {
		e, ok := r.engines[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, id)
		}
		engines = append(engines, e)
	}
	return engines, nil
}

// Detect returns the engines whose tool plausibly produced src.
func (r *Registry) Detect(src parser.Source) []*parser.Engine {
	var engines []*parser.Engine
	for _, id := range r.order {
		if e := r.engines[id]; e.Accepts(src) {
			engines = append(engines, e)
		}
	}
	return engines
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }
