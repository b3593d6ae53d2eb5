package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"maintenance_audit/audit"
	"maintenance_audit/formatting"
)

var (
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	panelStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

type tab struct {
	label  string
	alarms []audit.Alarm
	sites  []string
}

// Model is the interactive alarm viewer: one tab for the global alarm set
// plus one per priority tier. Enter expands the selected site.
type Model struct {
	report   audit.Report
	tabs     []tab
	active   int
	table    table.Model
	expanded string
	width    int
	height   int
}

// NewModel builds the viewer for rep.
func NewModel(rep audit.Report) Model {
	tabs := []tab{{label: audit.SeriesLabel(""), alarms: rep.Alarms, sites: audit.AlarmSites(rep.Alarms)}}
	for _, s := range rep.TierAlarms {
		tabs = append(tabs, tab{label: s.Label, alarms: s.Alarms, sites: audit.AlarmSites(s.Alarms)})
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "SITE", Width: 24},
			{Title: "PRIORIDAD", Width: 10},
			{Title: "ALARMAS", Width: 8},
			{Title: "ÚLTIMO CAMBIO", Width: 14},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	m := Model{report: rep, tabs: tabs, table: t}
	m.refreshRows()
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if h := msg.Height - 8; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.switchTab(1)
			return m, nil
		case "shift+tab", "left", "h":
			m.switchTab(-1)
			return m, nil
		case "enter":
			if row := m.table.SelectedRow(); row != nil {
				if m.expanded == row[0] {
					m.expanded = ""
				} else {
					m.expanded = row[0]
				}
			}
			return m, nil
		case "esc":
			m.expanded = ""
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) switchTab(step int) {
	n := len(m.tabs)
	m.active = ((m.active+step)%n + n) % n
	m.expanded = ""
	m.refreshRows()
}

func (m *Model) refreshRows() {
	cur := m.tabs[m.active]
	rows := make([]table.Row, 0, len(cur.sites))
	for _, site := range cur.sites {
		var count, last int
		priority := ""
		for _, a := range cur.alarms {
			if a.SiteID != site || !a.Raised() {
				continue
			}
			count++
			last = a.Delta
			priority = a.Priority
		}
		rows = append(rows, table.Row{site, priority, strconv.Itoa(count), formatting.FormatDelta(last)})
	}
	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

// ActiveTab returns the label of the selected tab.
func (m Model) ActiveTab() string { return m.tabs[m.active].label }

// Expanded returns the site whose detail is open, if any.
func (m Model) Expanded() string { return m.expanded }

// View renders the model.
func (m Model) View() string {
	var b strings.Builder
	labels := make([]string, len(m.tabs))
	for i, t := range m.tabs {
		text := fmt.Sprintf("%s (%d)", t.label, len(t.sites))
		if i == m.active {
			labels[i] = activeTabStyle.Render(text)
		} else {
			labels[i] = inactiveTabStyle.Render(text)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labels...))
	b.WriteString("\n\n")

	if len(m.tabs[m.active].sites) == 0 {
		b.WriteString(mutedStyle.Render("Sin alarmas en esta serie."))
	} else {
		b.WriteString(m.table.View())
	}
	if m.expanded != "" {
		b.WriteString("\n")
		b.WriteString(m.detail(m.expanded))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("tab/←→ serie • ↑↓ site • enter detalle • esc cerrar • q salir"))
	return b.String()
}

func (m Model) detail(site string) string {
	history := m.report.SiteHistory(site)
	var alarms []audit.Alarm
	for _, a := range m.tabs[m.active].alarms {
		if a.SiteID == site {
			alarms = append(alarms, a)
		}
	}
	width := 30
	if m.width > 60 {
		width = m.width / 2
	}
	rows := make([][]string, 0, len(history))
	for _, row := range history {
		rows = append(rows, []string{formatting.FormatMonthLabel(string(row.Month)), strconv.Itoa(row.Total), formatting.FormatDelta(row.Delta), strconv.Itoa(row.Unlisted)})
	}
	body := titleStyle.Render(site) + "\n" +
		Bars(history, alarms, width) + "\n" +
		renderTable([]string{"MES", "TOTAL", "CAMBIO", "FUERA"}, rows)
	return panelStyle.Render(body)
}

// Run starts the interactive viewer on the terminal.
func Run(rep audit.Report) error {
	_, err := tea.NewProgram(NewModel(rep), tea.WithAltScreen()).Run()
	return err
}
