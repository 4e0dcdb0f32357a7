package format

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/newhook/harvest/internal/db"
	"github.com/newhook/harvest/internal/issue"
)

// Delta writes the issues that appeared and disappeared between two runs.
// Outstanding issues are only counted.
func Delta(w io.Writer, title string, d *db.Delta, opts Options) error {
	p := newPalette(opts.Color)
	added := color.New(color.FgRed, color.Bold)
	fixed := color.New(color.FgGreen)
	for _, c := range []*color.Color{added, fixed} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	var b strings.Builder
	b.WriteString(p.header.Sprint(title))
	fmt.Fprintf(&b, ": %d new, %d fixed, %d outstanding\n", len(d.New), len(d.Fixed), len(d.Outstanding))

	locWidth := 0
	for _, i := range slices.Concat(d.New, d.Fixed) {
		locWidth = max(locWidth, runewidth.StringWidth(i.Location()))
	}

	line := func(mark string, c *color.Color, i issue.Issue) {
		fmt.Fprintf(&b, "  %s %s  %s  %s\n",
			c.Sprint(mark),
			p.location.Sprint(runewidth.FillRight(i.Location(), locWidth)),
			p.severity[i.Severity].Sprint(severityLabel(i.Severity)),
			i.Message)
	}
	for _, i := range d.New {
		line("+", added, i)
	}
	for _, i := range d.Fixed {
		line("-", fixed, i)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
