package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/newhook/harvest/internal/issue"
)

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderList(),
		dimStyle.Render(strings.Repeat("─", max(m.width, 1))),
		m.detail.View(),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("harvest")
	counts := fmt.Sprintf("%d of %d issues", len(m.visible), len(m.entries))
	filter := "severity ≥ " + severityStyle(m.minSeverity).Render(strings.ToLower(m.minSeverity.String()))
	header := fmt.Sprintf("%s  %s  %s", title, labelStyle.Render(counts), filter)
	return ansi.Truncate(header, m.width, "…")
}

func (m Model) renderList() string {
	h := m.listHeight()
	lines := make([]string, 0, h)

	if len(m.visible) == 0 {
		msg := "No issues"
		if len(m.entries) > 0 {
			msg = fmt.Sprintf("No issues at or above %s", strings.ToLower(m.minSeverity.String()))
		}
		lines = append(lines, dimStyle.Render("  "+msg))
	}

	end := min(m.offset+h, len(m.visible))
	for pos := m.offset; pos < end; pos++ {
		lines = append(lines, m.renderRow(pos))
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(pos int) string {
	e := m.entries[m.visible[pos]]
	sev := fmt.Sprintf("%-6s", strings.ToLower(e.issue.Severity.String()))

	if pos == m.cursor {
		row := fmt.Sprintf("> %s  %s  %s", sev, e.issue.Location(), e.issue.Message)
		row = ansi.Truncate(row, m.width, "…")
		return selectedStyle.Render(row)
	}

	row := fmt.Sprintf("  %s  %s  %s",
		severityStyle(e.issue.Severity).Render(sev),
		locationStyle.Render(e.issue.Location()),
		e.issue.Message)
	return ansi.Truncate(row, m.width, "…")
}

func (m Model) renderDetail() string {
	if len(m.visible) == 0 {
		return ""
	}
	e := m.entries[m.visible[m.cursor]]
	i := e.issue

	var b strings.Builder
	b.WriteString(severityStyle(i.Severity).Render(strings.ToUpper(i.Severity.String())))
	b.WriteString(" ")
	b.WriteString(valueStyle.Bold(true).Render(i.Message))
	b.WriteString("\n\n")

	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), valueStyle.Render(value))
	}
	location := i.Location()
	if !i.HasFileName() {
		location = ""
	}
	field("Location", location)
	if i.LineEnd > i.LineStart {
		field("Lines", fmt.Sprintf("%d-%d", i.LineStart, i.LineEnd))
	}
	field("Category", i.Category)
	field("Type", i.Type)
	field("Package", i.PackageName)
	field("Module", i.ModuleName)
	field("Tool", e.tool)
	field("Source", e.source)
	field("Fingerprint", i.Fingerprint)

	if i.Description != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(max(m.width-1, 10)).Render(i.Description))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderStatusBar() string {
	var counts []string
	for _, sev := range issue.Severities {
		if n := m.summary.BySeverity[sev]; n > 0 {
			counts = append(counts, severityStyle(sev).Render(fmt.Sprintf("%d %s", n, strings.ToLower(sev.String()))))
		}
	}

	keys := []string{
		hotkeyStyle.Render("j/k") + " move",
		hotkeyStyle.Render("g/G") + " top/bottom",
		hotkeyStyle.Render("J/K") + " scroll detail",
		hotkeyStyle.Render("1-4") + " severity",
		hotkeyStyle.Render("q") + " quit",
	}

	bar := strings.Join(keys, "  ")
	if len(counts) > 0 {
		bar = strings.Join(counts, " ") + "  " + bar
	}
	return statusBarStyle.Render(ansi.Truncate(bar, max(m.width-2, 1), "…"))
}
