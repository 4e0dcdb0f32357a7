// Package parser is the extraction engine shared by all tool parsers. An
// Engine runs one scanning strategy over a Source and collects the issues
// produced by the tool's match function into a report.Report.
//
// Per-match failures never abort a scan: they end up in the report's error
// log. Only a failure to open or read the input, or cancellation of the
// context, is returned to the caller.
package parser

import (
	"context"
	"errors"
	"fmt"

	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/logging"
	"github.com/newhook/harvest/internal/report"
)

// Engine runs one tool configuration. It holds no mutable state; each Parse
// call owns its report, cursor and builders.
type Engine struct {
	cfg Config
}

// New validates cfg and returns an engine for it.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// MustNew is New for statically known configurations.
func MustNew(cfg Config) *Engine {
	e, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// ID returns the tool id.
func (e *Engine) ID() string { return e.cfg.ID }

// Name returns the tool name, falling back to the id.
func (e *Engine) Name() string {
	if e.cfg.Name != "" {
		return e.cfg.Name
	}
	return e.cfg.ID
}

// Strategy returns the configured scanning strategy.
func (e *Engine) Strategy() Strategy { return e.cfg.Strategy }

// Config returns a copy of the configuration.
func (e *Engine) Config() Config { return e.cfg }

// Accepts reports whether the tool plausibly produced src. It is used when
// several tools are tried against input of unknown origin.
func (e *Engine) Accepts(src Source) bool {
	if e.cfg.Accepts == nil {
		return true
	}
	return e.cfg.Accepts(src)
}

// ParseString parses an in-memory text.
func (e *Engine) ParseString(ctx context.Context, name, text string) (*report.Report, error) {
	return e.Parse(ctx, StringSource(name, text))
}

// Parse scans src and returns the report. A report is returned even when
// nothing matched. If src cannot be opened or read, Parse returns a nil
// report and the error. If ctx is cancelled, Parse returns the partial
// report, marked cancelled, together with an error wrapping ctx.Err().
func (e *Engine) Parse(ctx context.Context, src Source) (*report.Report, error) {
	r, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src.Name(), err)
	}
	defer r.Close()

	rep := report.New(src.Name(), e.cfg.ID)
	log := logging.With("tool", e.cfg.ID, "source", src.Name())
	log.Debug("parse started", "strategy", e.cfg.Strategy.String())

	switch e.cfg.Strategy {
	case StrategyDocument:
		err = e.scanDocument(ctx, r, rep)
	case StrategyJSON:
		err = e.scanJSON(ctx, r, rep)
	default:
		err = e.scanLines(ctx, r, rep)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			rep.MarkCancelled()
			log.Debug("parse cancelled", "issues", rep.Len(), "errors", rep.ErrorCount(), "lines", rep.Lines())
			return rep, fmt.Errorf("parse of %s cancelled: %w", src.Name(), err)
		}
		return nil, fmt.Errorf("failed to read %s: %w", src.Name(), err)
	}

	log.Debug("parse finished", "issues", rep.Len(), "errors", rep.ErrorCount(), "lines", rep.Lines())
	return rep, nil
}

func (e *Engine) cleaner() func(string) string {
	if e.cfg.Clean {
		return CleanLine
	}
	return nil
}

func (e *Engine) newBuilder() *issue.Builder {
	b := issue.NewBuilder().SetOrigin(e.cfg.ID)
	if e.cfg.Categories != nil {
		b.SetCategoryGuesser(e.cfg.Categories)
	}
	return b
}

// interesting applies the prefilter of the prefiltered strategy.
func (e *Engine) interesting(line string, lineNumber int) bool {
	if e.cfg.Strategy != StrategyPrefiltered {
		return true
	}
	if e.cfg.Prefilter(line) {
		return true
	}
	if e.cfg.VerifyPrefilter && e.cfg.Pattern.MatchString(line) {
		logging.Warn("prefilter rejected a matching line",
			"tool", e.cfg.ID, "line", lineNumber, "text", line)
	}
	return false
}

// apply runs fn and records its result into rep.
func (e *Engine) apply(rep *report.Report, fn MatchFunc, m *Match, mc *MatchContext) {
	res := invoke(fn, m, mc)
	switch res.kind {
	case kindIssue:
		i := res.issue
		if i.Origin == "" {
			i.Origin = e.cfg.ID
		}
		rep.Add(i)
	case kindSkip:
	default:
		cause := res.Err()
		rep.LogError(m.LineNumber, m.Text, cause)
		logging.Debug("match skipped after failure",
			"tool", e.cfg.ID, "source", mc.Source, "line", m.LineNumber, "error", cause)
	}
}

// invoke calls fn, turning a panic into a failure so one malformed match
// cannot stop the scan.
func invoke(fn MatchFunc, m *Match, mc *MatchContext) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Failf("panic in match function: %v", p)
		}
	}()
	return fn(m, mc)
}
