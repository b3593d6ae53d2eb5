package formatting

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"maintenance_audit/audit"
)

const maxDigestLines = 15

// DigestDetails is the human-facing view of a run's raised alarms, used for
// chat notifications.
type DigestDetails struct {
	RunID       string
	Tier        string
	Alarms      []audit.Alarm
	GeneratedAt time.Time
	ReportURL   string
}

// FormatDelta renders a coverage change with an explicit sign.
func FormatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

// FormatRatio renders a cancellation ratio as a percentage.
func FormatRatio(ratio float64) string {
	return fmt.Sprintf("%.0f%%", ratio*100)
}

// FormatAlarmLine renders one raised alarm as a single line.
func FormatAlarmLine(a audit.Alarm) string {
	return fmt.Sprintf("📉 %s – %s: total %d (%s)", a.SiteID, FormatMonthLabel(string(a.Month)), a.Total, FormatDelta(a.Delta))
}

// BuildAlarmDigest constructs a GroupMe-friendly digest of the raised alarms.
// It returns "" when nothing was raised.
func BuildAlarmDigest(d DigestDetails) string {
	var raised []audit.Alarm
	for _, a := range d.Alarms {
		if a.Raised() {
			raised = append(raised, a)
		}
	}
	if len(raised) == 0 {
		return ""
	}

	ts := d.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	tier := strings.TrimSpace(d.Tier)
	if tier == "" {
		tier = "sin prioridad"
	}
	noun := "alarmas"
	if len(raised) == 1 {
		noun = "alarma"
	}

	lines := []string{
		fmt.Sprintf("🚨 Auditoría de mantenimiento – %d %s (%s)", len(raised), noun, tier),
		"",
	}
	for i, a := range raised {
		if i == maxDigestLines {
			lines = append(lines, fmt.Sprintf("… y %d más", len(raised)-maxDigestLines))
			break
		}
		lines = append(lines, FormatAlarmLine(a))
	}
	lines = append(lines, "", fmt.Sprintf("🕒 Corrida: %s", ts.Format("2006-01-02 15:04:05")))
	if id := strings.TrimSpace(d.RunID); id != "" {
		lines = append(lines, fmt.Sprintf("🔖 ID: %s", id))
	}
	if url := strings.TrimSpace(d.ReportURL); url != "" {
		lines = append(lines, fmt.Sprintf("📄 Reporte: %s", url))
	}
	return strings.Join(lines, "\n")
}
