package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"maintenance_audit/audit"
	"maintenance_audit/internal/store"
)

func sampleReport() audit.Report {
	var records []audit.Record
	add := func(site, month, tier string, n int) {
		for i := 0; i < n; i++ {
			records = append(records, audit.Record{SiteID: site, MonthToken: month, Specialty: "AA", Priority: tier, Status: "Ejecutado"})
		}
	}
	add("B", "jul-25", "P_1", 3)
	add("B", "ago-25", "P_1", 1)
	add("C", "jul-25", "P_2", 2)
	add("C", "ago-25", "P_2", 1)
	return audit.Run(records, audit.Options{Vocabulary: audit.Vocabulary{"AA"}, AlarmTier: "P_1"})
}

func press(m tea.Model, key string) tea.Model {
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next
}

func TestModelTabs(t *testing.T) {
	m := NewModel(sampleReport())
	if m.ActiveTab() != "ALARMA" {
		t.Fatalf("expected global tab first, got %s", m.ActiveTab())
	}
	view := m.View()
	if !strings.Contains(view, "B") || !strings.Contains(view, "ALARMA_P_2") {
		t.Fatalf("unexpected view:\n%s", view)
	}

	next := press(m, "tab").(Model)
	if next.ActiveTab() != "ALARMA_P_1" {
		t.Fatalf("expected P_1 tab, got %s", next.ActiveTab())
	}
	next = press(next, "tab").(Model)
	if next.ActiveTab() != "ALARMA_P_2" {
		t.Fatalf("expected P_2 tab, got %s", next.ActiveTab())
	}
	next = press(next, "tab").(Model)
	if next.ActiveTab() != "ALARMA" {
		t.Fatalf("tabs should wrap, got %s", next.ActiveTab())
	}
	prev := press(next, "h").(Model)
	if prev.ActiveTab() != "ALARMA_P_2" {
		t.Fatalf("h should go back, got %s", prev.ActiveTab())
	}
}

func TestModelExpandsSite(t *testing.T) {
	m := press(NewModel(sampleReport()), "enter").(Model)
	if m.Expanded() != "B" {
		t.Fatalf("expected B expanded, got %q", m.Expanded())
	}
	view := m.View()
	if !strings.Contains(view, "█") || !strings.Contains(view, "ago-25") {
		t.Fatalf("detail not rendered:\n%s", view)
	}
	m = press(m, "esc").(Model)
	if m.Expanded() != "" {
		t.Fatalf("esc should collapse")
	}
}

func TestModelQuit(t *testing.T) {
	_, cmd := NewModel(sampleReport()).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected QuitMsg")
	}
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(sampleReport())
	if !strings.Contains(out, "1 alarma(s) para P_1") {
		t.Fatalf("missing alarm header:\n%s", out)
	}
	if !strings.Contains(out, "ALARMA_P_2") {
		t.Fatalf("missing tier table:\n%s", out)
	}
	quiet := RenderSummary(audit.Run(nil, audit.Options{AlarmTier: "P_1"}))
	if !strings.Contains(quiet, "Sin alarmas para P_1") {
		t.Fatalf("unexpected empty summary:\n%s", quiet)
	}
}

func TestBars(t *testing.T) {
	history := []audit.CoverageRow{{Month: "2025-07", Total: 4}, {Month: "2025-08", Total: 2, Delta: -2}}
	out := Bars(history, []audit.Alarm{{Month: "2025-08", Delta: -2, Message: audit.AlarmMessage(-2)}}, 10)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if strings.Count(lines[0], "█") != 10 || strings.Count(lines[1], "█") != 5 {
		t.Fatalf("unexpected bar lengths:\n%s", out)
	}
	if !strings.Contains(lines[1], "-2") {
		t.Fatalf("alarm month should show its change: %s", lines[1])
	}
}

func TestRenderRuns(t *testing.T) {
	if !strings.Contains(RenderRuns(nil), "Sin corridas") {
		t.Fatalf("expected empty message")
	}
	msg := "sheet missing"
	runs := []store.Run{
		{ID: "run-2", Status: store.StatusFailed, Error: &msg, StartedAt: time.Date(2025, 9, 2, 8, 0, 0, 0, time.UTC)},
		{ID: "run-1", Status: store.StatusSucceeded, AlarmsRaised: 3, StartedAt: time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)},
	}
	out := RenderRuns(runs)
	if strings.Index(out, "run-2") > strings.Index(out, "run-1") {
		t.Fatalf("runs should keep their order:\n%s", out)
	}
	detail := RenderRun(runs[0], nil)
	if !strings.Contains(detail, msg) || !strings.Contains(detail, "Sin alarmas") {
		t.Fatalf("unexpected detail:\n%s", detail)
	}
}
