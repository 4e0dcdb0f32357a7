package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/runner"
)

const descriptionIndent = 6

// palette holds the colors of one rendering. Colors are created per call
// so that enabling them does not depend on global state.
type palette struct {
	header   *color.Color
	location *color.Color
	label    *color.Color
	faint    *color.Color
	severity map[issue.Severity]*color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		header:   color.New(color.Bold),
		location: color.New(color.FgWhite),
		label:    color.New(color.FgMagenta),
		faint:    color.New(color.Faint),
		severity: map[issue.Severity]*color.Color{
			issue.SeverityError:  color.New(color.FgRed, color.Bold),
			issue.SeverityHigh:   color.New(color.FgRed),
			issue.SeverityNormal: color.New(color.FgYellow),
			issue.SeverityLow:    color.New(color.FgCyan),
		},
	}
	all := []*color.Color{p.header, p.location, p.label, p.faint}
	for _, c := range p.severity {
		all = append(all, c)
	}
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Text writes a compiler-style listing grouped by source and tool, followed
// by a summary line.
func Text(w io.Writer, results []runner.Result, opts Options) error {
	p := newPalette(opts.Color)
	var b strings.Builder

	for _, res := range results {
		title := res.Source
		if res.Tool != "" {
			title += " (" + res.Tool + ")"
		}
		if res.Cached {
			title += p.faint.Sprint(" [cached]")
		}
		b.WriteString(p.header.Sprint(title))
		b.WriteString("\n")

		if res.Report == nil {
			fmt.Fprintf(&b, "  %s %v\n\n", p.severity[issue.SeverityError].Sprint("failed:"), res.Err)
			continue
		}
		if res.Report.Cancelled() {
			fmt.Fprintf(&b, "  %s\n", p.faint.Sprint("(cancelled, results are partial)"))
		}

		issues := res.Report.Issues()
		if len(issues) == 0 && res.Report.ErrorCount() == 0 {
			fmt.Fprintf(&b, "  %s\n\n", p.faint.Sprint("no issues"))
			continue
		}

		locWidth, sevWidth := 0, 0
		for _, i := range issues {
			locWidth = max(locWidth, runewidth.StringWidth(i.Location()))
			sevWidth = max(sevWidth, len(severityLabel(i.Severity)))
		}

		for _, i := range issues {
			loc := runewidth.FillRight(i.Location(), locWidth)
			sev := runewidth.FillRight(severityLabel(i.Severity), sevWidth)
			fmt.Fprintf(&b, "  %s  %s  %s", p.location.Sprint(loc), p.severity[i.Severity].Sprint(sev), i.Message)
			if label := issueLabel(i); label != "" {
				fmt.Fprintf(&b, " %s", p.label.Sprint("["+label+"]"))
			}
			b.WriteString("\n")
			if i.Description != "" {
				b.WriteString(p.faint.Sprint(wrapDescription(i.Description, opts.Wrap)))
				b.WriteString("\n")
			}
		}

		for _, e := range res.Report.Errors() {
			fmt.Fprintf(&b, "  %s line %d: %s\n", p.faint.Sprint("unparsed"), e.Line, e.Cause)
		}
		b.WriteString("\n")
	}

	b.WriteString(summaryLine(runner.Summarize(results)))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func severityLabel(s issue.Severity) string {
	return strings.ToLower(s.String())
}

func issueLabel(i issue.Issue) string {
	if i.Type != "" {
		return i.Type
	}
	return i.Category
}

func wrapDescription(desc string, width int) string {
	if width > descriptionIndent {
		desc = wordwrap.String(desc, width-descriptionIndent)
	}
	return strings.TrimRight(indent.String(desc, descriptionIndent), "\n")
}

func summaryLine(s runner.Summary) string {
	var parts []string
	for _, sev := range issue.Severities {
		if n := s.BySeverity[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, severityLabel(sev)))
		}
	}

	line := plural(s.Issues, "issue")
	if len(parts) > 0 {
		line += " (" + strings.Join(parts, ", ") + ")"
	}
	line += " in " + plural(s.Results, "result")
	if s.Errors > 0 {
		line += ", " + plural(s.Errors, "unparsed match")
	}
	if s.Failed > 0 {
		line += fmt.Sprintf(", %d failed", s.Failed)
	}
	return line
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "ch") {
		return fmt.Sprintf("%d %ses", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
