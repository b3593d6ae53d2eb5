package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"maintenance_audit/audit"
	"maintenance_audit/formatting"
	"maintenance_audit/internal/store"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	alarmStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// RenderSummary renders a static overview of a report: run counters, the
// raised alarms of the global series and the per-tier alarm counts.
func RenderSummary(rep audit.Report) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Auditoría de mantenimiento"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("registros: %d  filtrados: %d  filas: %d  conflictos de prioridad: %d",
		rep.RecordCount, rep.FilteredOut, len(rep.Coverage), len(rep.PriorityConflicts))))
	b.WriteString("\n\n")

	raised := raisedOnly(rep.Alarms)
	if len(raised) == 0 {
		b.WriteString(fmt.Sprintf("Sin alarmas para %s\n", rep.AlarmTier))
	} else {
		b.WriteString(alarmStyle.Render(fmt.Sprintf("%d alarma(s) para %s", len(raised), rep.AlarmTier)))
		b.WriteString("\n")
		rows := make([][]string, 0, len(raised))
		for _, a := range raised {
			rows = append(rows, []string{a.SiteID, a.Priority, formatting.FormatMonthLabel(string(a.Month)), strconv.Itoa(a.Total), formatting.FormatDelta(a.Delta)})
		}
		b.WriteString(renderTable([]string{"SITE", "PRIORIDAD", "MES", "TOTAL", "CAMBIO"}, rows))
		b.WriteString("\n")
	}

	if len(rep.TierAlarms) > 0 {
		rows := make([][]string, 0, len(rep.TierAlarms))
		for _, s := range rep.TierAlarms {
			rows = append(rows, []string{s.Label, strconv.Itoa(len(raisedOnly(s.Alarms))), strconv.Itoa(len(audit.AlarmSites(s.Alarms)))})
		}
		b.WriteString("\n")
		b.WriteString(renderTable([]string{"SERIE", "ALARMAS", "SITES"}, rows))
		b.WriteString("\n")
	}
	return b.String()
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// Bars draws a site's monthly totals as horizontal text bars, marking the
// months that raised an alarm.
func Bars(history []audit.CoverageRow, alarms []audit.Alarm, width int) string {
	if width < 10 {
		width = 10
	}
	flagged := make(map[audit.Month]bool)
	for _, a := range alarms {
		if a.Raised() {
			flagged[a.Month] = true
		}
	}
	maxTotal := 0
	for _, row := range history {
		if row.Total > maxTotal {
			maxTotal = row.Total
		}
	}
	var lines []string
	for _, row := range history {
		n := 0
		if maxTotal > 0 {
			n = row.Total * width / maxTotal
		}
		bar := barStyle.Render(strings.Repeat("█", n))
		line := fmt.Sprintf("%-7s %s %d", formatting.FormatMonthLabel(string(row.Month)), bar, row.Total)
		if flagged[row.Month] {
			line += " " + alarmStyle.Render("("+formatting.FormatDelta(row.Delta)+")")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func raisedOnly(alarms []audit.Alarm) []audit.Alarm {
	var out []audit.Alarm
	for _, a := range alarms {
		if a.Raised() {
			out = append(out, a)
		}
	}
	return out
}

// RenderRuns lists archived runs, newest first.
func RenderRuns(runs []store.Run) string {
	if len(runs) == 0 {
		return mutedStyle.Render("Sin corridas archivadas.") + "\n"
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Trigger, r.Status, strconv.Itoa(r.Records), strconv.Itoa(r.AlarmsRaised)})
	}
	return renderTable([]string{"ID", "INICIO", "ORIGEN", "ESTADO", "REGISTROS", "ALARMAS"}, rows) + "\n"
}

// RenderRun shows one archived run and its alarms.
func RenderRun(run store.Run, alarms []store.RunAlarm) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Corrida " + run.ID))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s • %s • %s", run.Status, run.Source, run.StartedAt.Local().Format("2006-01-02 15:04:05"))))
	b.WriteString("\n")
	if run.Error != nil {
		b.WriteString(alarmStyle.Render(*run.Error))
		b.WriteString("\n")
	}
	if len(alarms) == 0 {
		b.WriteString("Sin alarmas.\n")
		return b.String()
	}
	rows := make([][]string, 0, len(alarms))
	for _, a := range alarms {
		rows = append(rows, []string{a.SiteID, a.Priority, formatting.FormatMonthLabel(a.Month), strconv.Itoa(a.Total), formatting.FormatDelta(a.Delta)})
	}
	b.WriteString(renderTable([]string{"SITE", "PRIORIDAD", "MES", "TOTAL", "CAMBIO"}, rows))
	b.WriteString("\n")
	return b.String()
}
