package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/newhook/harvest/internal/issue"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	hotkeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")) // Orange for hotkeys

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("247"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	locationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("117")) // Light blue
)

var severityStyles = map[issue.Severity]lipgloss.Style{
	issue.SeverityError:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	issue.SeverityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	issue.SeverityNormal: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	issue.SeverityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
}

func severityStyle(s issue.Severity) lipgloss.Style {
	if st, ok := severityStyles[s]; ok {
		return st
	}
	return labelStyle
}
