package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/runner"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	// chromeLines is the header, the separator and the status bar.
	chromeLines = 3
)

// entry is one issue together with the result it came from.
type entry struct {
	issue  issue.Issue
	source string
	tool   string
}

// Model is the report viewer. The upper pane lists issues; the lower pane
// shows the selected issue in full.
type Model struct {
	entries []entry
	visible []int // indexes into entries at or above minSeverity

	cursor int
	offset int // first visible row of the list

	minSeverity issue.Severity
	summary     runner.Summary

	width  int
	height int
	detail viewport.Model

	quitting bool
}

// New builds a viewer over the issues of results.
func New(results []runner.Result) Model {
	var entries []entry
	for _, res := range results {
		if res.Report == nil {
			continue
		}
		for _, i := range res.Report.Issues() {
			entries = append(entries, entry{issue: i, source: res.Source, tool: res.Tool})
		}
	}

	vp := viewport.New(defaultWidth, 1)
	vp.MouseWheelEnabled = false

	m := Model{
		entries:     entries,
		minSeverity: issue.SeverityLow,
		summary:     runner.Summarize(results),
		detail:      vp,
	}
	m.setSize(defaultWidth, defaultHeight)
	m.applyFilter()
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		m.refreshDetail()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "j", "down":
			m.moveTo(m.cursor + 1)
		case "k", "up":
			m.moveTo(m.cursor - 1)
		case "g", "home":
			m.moveTo(0)
		case "G", "end":
			m.moveTo(len(m.visible) - 1)
		case "pgdown", "ctrl+d":
			m.moveTo(m.cursor + m.listHeight())
		case "pgup", "ctrl+u":
			m.moveTo(m.cursor - m.listHeight())
		case "J":
			m.detail.ScrollDown(1)
		case "K":
			m.detail.ScrollUp(1)
		case "1", "2", "3", "4":
			// 1 shows everything, 4 only errors.
			idx := len(issue.Severities) - int(msg.String()[0]-'0')
			m.setMinSeverity(issue.Severities[idx])
		}
	}
	return m, nil
}

// Selected returns the issue under the cursor.
func (m Model) Selected() (issue.Issue, bool) {
	if len(m.visible) == 0 {
		return issue.Issue{}, false
	}
	return m.entries[m.visible[m.cursor]].issue, true
}

// MinSeverity returns the current severity filter.
func (m Model) MinSeverity() issue.Severity {
	return m.minSeverity
}

func (m *Model) setSize(width, height int) {
	m.width = width
	m.height = height
	m.detail.Width = width
	m.detail.Height = max(height-chromeLines-m.listHeight(), 1)
	m.clampOffset()
}

// listHeight gives the list roughly three fifths of the screen.
func (m Model) listHeight() int {
	return max((m.height-chromeLines)*3/5, 1)
}

func (m *Model) setMinSeverity(s issue.Severity) {
	var current *issue.Issue
	if sel, ok := m.Selected(); ok {
		current = &sel
	}
	m.minSeverity = s
	m.applyFilter()

	// Keep the cursor on the same issue when it survives the filter.
	if current != nil {
		for pos, idx := range m.visible {
			if m.entries[idx].issue == *current {
				m.moveTo(pos)
				return
			}
		}
	}
	m.moveTo(0)
}

func (m *Model) applyFilter() {
	m.visible = make([]int, 0, len(m.entries))
	for idx, e := range m.entries {
		if e.issue.Severity.AtLeast(m.minSeverity) {
			m.visible = append(m.visible, idx)
		}
	}
	m.cursor = 0
	m.offset = 0
	m.refreshDetail()
}

func (m *Model) moveTo(pos int) {
	if len(m.visible) == 0 {
		m.cursor = 0
		return
	}
	pos = min(max(pos, 0), len(m.visible)-1)
	if pos == m.cursor {
		return
	}
	m.cursor = pos
	m.clampOffset()
	m.refreshDetail()
}

// clampOffset scrolls the list so the cursor stays visible.
func (m *Model) clampOffset() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	m.offset = max(m.offset, 0)
}

func (m *Model) refreshDetail() {
	m.detail.SetContent(m.renderDetail())
	m.detail.GotoTop()
}
