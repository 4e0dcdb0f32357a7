package parser

import (
	"context"
	"strings"

	"github.com/newhook/harvest/internal/report"
)

// scanLines drives the line, prefiltered and lookahead strategies. All three
// walk the same cursor; only the lookahead strategy exposes it to the match
// function, which may consume lines before handing control back.
func (e *Engine) scanLines(ctx context.Context, r LineReader, rep *report.Report) error {
	stream := NewLookaheadStream(r, e.cleaner())
	names := e.cfg.Pattern.SubexpNames()

	for stream.HasNext() {
		if err := ctx.Err(); err != nil {
			rep.SetLines(stream.LineNumber())
			return err
		}

		text := stream.Next()
		lineNumber := stream.LineNumber()
		if !e.interesting(text, lineNumber) {
			continue
		}
		groups := e.cfg.Pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}

		mc := &MatchContext{Builder: e.newBuilder(), Source: rep.Name()}
		if e.cfg.Strategy == StrategyLookahead {
			mc.Lookahead = stream
		}
		e.apply(rep, e.cfg.Match, newMatch(text, lineNumber, groups, names), mc)
	}

	rep.SetLines(stream.LineNumber())
	return stream.Err()
}

// readAll collects the whole input, checking for cancellation between lines.
func (e *Engine) readAll(ctx context.Context, r LineReader) (string, int, error) {
	clean := e.cleaner()
	var sb strings.Builder
	lines := 0
	for r.Scan() {
		if err := ctx.Err(); err != nil {
			return "", lines, err
		}
		text := r.Text()
		if clean != nil {
			text = clean(text)
		}
		if lines > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(text)
		lines++
	}
	return sb.String(), lines, r.Err()
}

// scanDocument applies the multiline pattern to the whole input. Matches
// are successive and non-overlapping: each search continues at the end of
// the previous match.
func (e *Engine) scanDocument(ctx context.Context, r LineReader, rep *report.Report) error {
	text, lines, err := e.readAll(ctx, r)
	rep.SetLines(lines)
	if err != nil {
		return err
	}

	names := e.cfg.Pattern.SubexpNames()
	lineNumber := 1
	offset := 0
	for _, loc := range e.cfg.Pattern.FindAllStringSubmatchIndex(text, -1) {
		if err := ctx.Err(); err != nil {
			return err
		}

		lineNumber += strings.Count(text[offset:loc[0]], "\n")
		offset = loc[0]

		groups := make([]string, len(loc)/2)
		for g := range groups {
			if start, end := loc[2*g], loc[2*g+1]; start >= 0 {
				groups[g] = text[start:end]
			}
		}

		mc := &MatchContext{Builder: e.newBuilder(), Source: rep.Name()}
		e.apply(rep, e.cfg.Match, newMatch(groups[0], lineNumber, groups, names), mc)
	}
	return nil
}

// scanJSON hands the whole document to the decode function. A document that
// cannot be decoded is one error-log entry, not a structural failure.
func (e *Engine) scanJSON(ctx context.Context, r LineReader, rep *report.Report) error {
	data, lines, err := e.readAll(ctx, r)
	rep.SetLines(lines)
	if err != nil {
		return err
	}
	if strings.TrimSpace(data) == "" {
		return nil
	}

	sink := &Sink{ctx: ctx, engine: e, rep: rep}
	if err := e.cfg.Decode([]byte(data), sink); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rep.LogError(0, abbreviate(data, 120), err)
		return nil
	}
	if sink.stopped {
		return ctx.Err()
	}
	return nil
}

// Sink receives the records of a structured document. Every record gets a
// fresh builder and goes through the same result handling as a text match.
type Sink struct {
	ctx     context.Context
	engine  *Engine
	rep     *report.Report
	records int
	stopped bool
}

// Add builds one record. ref identifies the record in the error log. Add
// returns false once the parse has been cancelled; the decoder should stop.
func (s *Sink) Add(ref string, build func(mc *MatchContext) Result) bool {
	if s.stopped || s.ctx.Err() != nil {
		s.stopped = true
		return false
	}
	s.records++
	mc := &MatchContext{Builder: s.engine.newBuilder(), Source: s.rep.Name()}
	m := newMatch(ref, s.records, []string{ref}, nil)
	s.engine.apply(s.rep, func(_ *Match, mc *MatchContext) Result { return build(mc) }, m, mc)
	return true
}

func abbreviate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
