package formatting

import (
	"strings"
	"testing"
	"time"

	"maintenance_audit/audit"
)

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]string{
		"  Site  A ": "Site A",
		"\tAA\n":     "AA",
		"":           "",
		"   ":        "",
	}
	for in, want := range cases {
		if got := NormalizeLabel(in); got != want {
			t.Fatalf("NormalizeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatMonthLabel(t *testing.T) {
	cases := map[string]string{
		"2025-07": "jul-25",
		"2024-09": "set-24",
		"unknown": "unknown",
		"2025-13": "2025-13",
	}
	for in, want := range cases {
		if got := FormatMonthLabel(in); got != want {
			t.Fatalf("FormatMonthLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildAlarmDigest(t *testing.T) {
	alarms := []audit.Alarm{
		{SiteID: "LIM001", Month: "2025-07", Total: 3},
		{SiteID: "LIM001", Month: "2025-08", Total: 1, Delta: -2, Message: audit.AlarmMessage(-2)},
	}
	got := BuildAlarmDigest(DigestDetails{
		RunID:       "run-1",
		Tier:        "P_1",
		Alarms:      alarms,
		GeneratedAt: time.Date(2025, time.September, 1, 8, 30, 0, 0, time.UTC),
	})
	want := "🚨 Auditoría de mantenimiento – 1 alarma (P_1)\n\n" +
		"📉 LIM001 – ago-25: total 1 (-2)\n\n" +
		"🕒 Corrida: 2025-09-01 08:30:00\n" +
		"🔖 ID: run-1"
	if got != want {
		t.Fatalf("BuildAlarmDigest mismatch.\nwant:\n%s\n\ngot:\n%s", want, got)
	}
}

func TestBuildAlarmDigestTruncates(t *testing.T) {
	var alarms []audit.Alarm
	for i := 0; i < maxDigestLines+3; i++ {
		alarms = append(alarms, audit.Alarm{SiteID: "S", Month: "2025-08", Delta: -1, Message: audit.AlarmMessage(-1)})
	}
	got := BuildAlarmDigest(DigestDetails{Tier: "P_1", Alarms: alarms})
	if !strings.Contains(got, "… y 3 más") {
		t.Fatalf("expected truncation marker, got:\n%s", got)
	}
	if BuildAlarmDigest(DigestDetails{Alarms: alarms[:0]}) != "" {
		t.Fatalf("expected empty digest without alarms")
	}
}

func TestFormatRatioAndDelta(t *testing.T) {
	if FormatRatio(0.33) != "33%" {
		t.Fatalf("unexpected ratio %s", FormatRatio(0.33))
	}
	if FormatDelta(2) != "+2" || FormatDelta(-2) != "-2" || FormatDelta(0) != "0" {
		t.Fatalf("unexpected delta formatting")
	}
}
