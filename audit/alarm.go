package audit

import "fmt"

// PriorityLookup maps a site to its declared priority tier.
type PriorityLookup map[string]string

// BuildPriorityLookup takes the first non-empty tier seen for every site. Later
// records with a different non-empty tier are reported as conflicts and ignored.
// Sites that never declare a tier are left out.
func BuildPriorityLookup(records []Record) (PriorityLookup, []PriorityConflict) {
	lookup := make(PriorityLookup)
	var conflicts []PriorityConflict
	reported := make(map[[2]string]bool)
	for _, r := range records {
		if r.Priority == "" {
			continue
		}
		kept, ok := lookup[r.SiteID]
		if !ok {
			lookup[r.SiteID] = r.Priority
			continue
		}
		if r.Priority == kept {
			continue
		}
		k := [2]string{r.SiteID, r.Priority}
		if reported[k] {
			continue
		}
		reported[k] = true
		conflicts = append(conflicts, PriorityConflict{SiteID: r.SiteID, Kept: kept, Ignored: r.Priority})
	}
	return lookup, conflicts
}

// Predicate decides whether a coverage change at a site of the given tier
// warrants an alarm.
type Predicate func(tier string, delta int) bool

// TierDecline fires when the site belongs to target and its coverage dropped.
func TierDecline(target string) Predicate {
	return func(tier string, delta int) bool {
		return target != "" && tier == target && delta < 0
	}
}

// AlarmMessage is the text raised for a coverage drop of delta.
func AlarmMessage(delta int) string {
	return fmt.Sprintf("⚠️ Disminución de especialidades (%d) respecto al mes anterior", delta)
}

// EvaluateAlarm returns the alarm text for one row, or "" when pred does not
// fire.
func EvaluateAlarm(pred Predicate, tier string, delta int) string {
	if pred == nil || !pred(tier, delta) {
		return ""
	}
	return AlarmMessage(delta)
}

// RaiseAlarms evaluates pred against every coverage row. Rows are expected to
// carry deltas (see WithDelta). Sites missing from lookup have an empty tier.
func RaiseAlarms(rows []CoverageRow, lookup PriorityLookup, pred Predicate) []Alarm {
	out := make([]Alarm, 0, len(rows))
	for _, row := range rows {
		tier := lookup[row.SiteID]
		out = append(out, Alarm{
			SiteID:   row.SiteID,
			Month:    row.Month,
			Priority: tier,
			Total:    row.Total,
			Delta:    row.Delta,
			Message:  EvaluateAlarm(pred, tier, row.Delta),
		})
	}
	return out
}

// RaiseTierAlarms runs the engine once per tier, each producing its own
// labelled series.
func RaiseTierAlarms(rows []CoverageRow, lookup PriorityLookup, tiers []string) []AlarmSeries {
	out := make([]AlarmSeries, 0, len(tiers))
	for _, tier := range tiers {
		out = append(out, AlarmSeries{
			Label:  SeriesLabel(tier),
			Tier:   tier,
			Alarms: RaiseAlarms(rows, lookup, TierDecline(tier)),
		})
	}
	return out
}

// SeriesLabel is the column label used for a tier's alarm series.
func SeriesLabel(tier string) string {
	if tier == "" {
		return "ALARMA"
	}
	return "ALARMA_" + tier
}
