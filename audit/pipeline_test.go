package audit

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testOptions() Options {
	return Options{Vocabulary: Vocabulary{"AA", "IE"}, CancelStatus: "Cancelado", AlarmTier: "P1"}
}

func visits(site, month, tier string, n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{SiteID: site, MonthToken: month, Specialty: "AA", Priority: tier, Status: "Done", Contractor: "ACME", OfficeUnit: "NORTE"}
	}
	return out
}

func TestRunStableCoverageRaisesNothing(t *testing.T) {
	records := append(visits("A", "jul-25", "P1", 1), visits("A", "ago-25", "P1", 1)...)
	rep := Run(records, testOptions())
	if len(rep.Coverage) != 2 {
		t.Fatalf("expected 2 coverage rows, got %d", len(rep.Coverage))
	}
	for _, row := range rep.Coverage {
		if row.Total != 1 || row.Delta != 0 {
			t.Fatalf("unexpected row %+v", row)
		}
	}
	if rep.RaisedCount() != 0 {
		t.Fatalf("expected no alarms, got %d", rep.RaisedCount())
	}
}

func TestRunDeclineRaisesAlarm(t *testing.T) {
	records := append(visits("B", "jul-25", "P1", 3), visits("B", "ago-25", "P1", 1)...)
	rep := Run(records, testOptions())
	if rep.Coverage[1].Delta != -2 {
		t.Fatalf("expected delta -2, got %d", rep.Coverage[1].Delta)
	}
	var raised []Alarm
	for _, a := range rep.Alarms {
		if a.Raised() {
			raised = append(raised, a)
		}
	}
	if len(raised) != 1 || raised[0].SiteID != "B" || raised[0].Month != "2025-08" {
		t.Fatalf("unexpected alarms %+v", raised)
	}
	if !strings.Contains(raised[0].Message, "-2") {
		t.Fatalf("message should embed delta: %q", raised[0].Message)
	}
	if diff := cmp.Diff([]string{"B"}, AlarmSites(rep.Alarms)); diff != "" {
		t.Fatalf("alarm sites (-want +got):\n%s", diff)
	}
}

func TestRunOtherTierDoesNotAlarm(t *testing.T) {
	records := append(visits("C", "jul-25", "P2", 3), visits("C", "ago-25", "P2", 1)...)
	rep := Run(records, testOptions())
	if rep.RaisedCount() != 0 {
		t.Fatalf("P2 decline must not fire the P1 predicate")
	}
	series, ok := rep.Series("P2")
	if !ok {
		t.Fatalf("expected a P2 series")
	}
	if series.Label != "ALARMA_P2" || AlarmSites(series.Alarms)[0] != "C" {
		t.Fatalf("unexpected P2 series %+v", series)
	}
}

func TestRaiseAlarmsLookupMiss(t *testing.T) {
	rows := []CoverageRow{{SiteID: "X", Month: "2025-08", Total: 0, Delta: -5}}
	alarms := RaiseAlarms(rows, PriorityLookup{"Y": "P1"}, TierDecline("P1"))
	if len(alarms) != 1 || alarms[0].Raised() || alarms[0].Priority != "" {
		t.Fatalf("lookup miss must not raise: %+v", alarms)
	}
}

func TestEvaluateAlarm(t *testing.T) {
	pred := TierDecline("P1")
	if EvaluateAlarm(pred, "P1", 0) != "" {
		t.Fatalf("no drop, no alarm")
	}
	if EvaluateAlarm(pred, "P1", -1) == "" {
		t.Fatalf("drop on P1 must alarm")
	}
	if EvaluateAlarm(nil, "P1", -1) != "" {
		t.Fatalf("nil predicate never fires")
	}
	if TierDecline("")("", -3) {
		t.Fatalf("empty target tier never fires")
	}
}

func TestBuildPriorityLookupFirstSeenWins(t *testing.T) {
	records := []Record{
		{SiteID: "A", Priority: "P1"},
		{SiteID: "A", Priority: "P2"},
		{SiteID: "A", Priority: "P2"},
		{SiteID: "B", Priority: "P3"},
	}
	lookup, conflicts := BuildPriorityLookup(records)
	if lookup["A"] != "P1" || lookup["B"] != "P3" {
		t.Fatalf("unexpected lookup %+v", lookup)
	}
	want := []PriorityConflict{{SiteID: "A", Kept: "P1", Ignored: "P2"}}
	if diff := cmp.Diff(want, conflicts); diff != "" {
		t.Fatalf("conflicts (-want +got):\n%s", diff)
	}
}

func TestBuildPriorityLookupSkipsEmptyTier(t *testing.T) {
	records := []Record{
		{SiteID: "C", Priority: ""},
		{SiteID: "C", Priority: "P1"},
		{SiteID: "D", Priority: ""},
	}
	lookup, conflicts := BuildPriorityLookup(records)
	if lookup["C"] != "P1" {
		t.Fatalf("expected first non-empty tier, got %q", lookup["C"])
	}
	if _, ok := lookup["D"]; ok {
		t.Fatalf("site without a tier should be absent: %+v", lookup)
	}
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts %+v", conflicts)
	}
}

func TestRunRaisesAlarmWhenFirstTierIsBlank(t *testing.T) {
	records := visits("C", "jul-25", "P1", 3)
	records[0].Priority = ""
	records = append(records, visits("C", "ago-25", "P1", 1)...)

	rep := Run(records, testOptions())
	if len(rep.PriorityConflicts) != 0 {
		t.Fatalf("blank tier should not conflict: %+v", rep.PriorityConflicts)
	}
	if rep.RaisedCount() != 1 {
		t.Fatalf("expected one raised alarm, got %d", rep.RaisedCount())
	}
}

func TestRunPrefilter(t *testing.T) {
	records := append(visits("A", "jul-25", "P1", 2), Record{SiteID: "A", MonthToken: "jul-25", Specialty: "RADIO", Priority: "P1", Status: "Done"})
	opts := testOptions()

	rep := Run(records, opts)
	if rep.Coverage[0].Unlisted != 1 || rep.Status.Rows[len(rep.Status.Rows)-1].Specialty != "RADIO" {
		t.Fatalf("without prefilter RADIO stays in status and unlisted: %+v", rep.Coverage[0])
	}

	opts.Prefilter = true
	rep = Run(records, opts)
	if rep.FilteredOut != 1 || rep.Coverage[0].Unlisted != 0 {
		t.Fatalf("prefilter should drop RADIO: %+v", rep)
	}
	for _, row := range rep.Status.Rows {
		if row.Specialty == "RADIO" {
			t.Fatalf("prefiltered specialty leaked into status table")
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	records := append(visits("B", "jul-25", "P1", 3), visits("A", "ago-25", "P2", 1)...)
	records = append(records, Record{SiteID: "A", MonthToken: "bad", Specialty: "IE", Priority: "P2", Status: "Cancelado"})
	before := append([]Record(nil), records...)
	first := Run(records, testOptions())
	second := Run(records, testOptions())
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("runs differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(before, records); diff != "" {
		t.Fatalf("records were mutated:\n%s", diff)
	}
}

func TestRunEmptyInput(t *testing.T) {
	rep := Run(nil, testOptions())
	if len(rep.Coverage) != 0 || len(rep.Status.Rows) != 0 || len(rep.Contractors) != 0 || len(rep.Offices) != 0 || len(rep.Alarms) != 0 {
		t.Fatalf("expected empty tables, got %+v", rep)
	}
}

func TestSiteHistory(t *testing.T) {
	records := append(visits("A", "ago-25", "P1", 1), visits("A", "jul-25", "P1", 2)...)
	records = append(records, visits("B", "jul-25", "P1", 1)...)
	hist := Run(records, testOptions()).SiteHistory("A")
	if len(hist) != 2 || hist[0].Month != "2025-07" || hist[1].Delta != -1 {
		t.Fatalf("unexpected history %+v", hist)
	}
}
