package audit

import "sort"

// Options configures one audit run.
type Options struct {
	Vocabulary Vocabulary
	// MonthTable defaults to DefaultMonthTable when nil.
	MonthTable MonthTable
	// CancelStatus is the status label counted by StatusRow.CancelRatio.
	CancelStatus string
	// Prefilter drops records whose specialty is outside Vocabulary before any
	// aggregation runs.
	Prefilter bool
	// AlarmTier is the tier checked by the global alarm series.
	AlarmTier string
	// TabTiers get one alarm series each. Empty means every tier in the data.
	TabTiers []string
}

// Report holds every derived table of a run, fully materialized.
type Report struct {
	Vocabulary        Vocabulary         `json:"vocabulary"`
	RecordCount       int                `json:"record_count"`
	FilteredOut       int                `json:"filtered_out"`
	Coverage          []CoverageRow      `json:"coverage"`
	Status            StatusTable        `json:"status"`
	Contractors       []RosterRow        `json:"contractors"`
	Offices           []RosterRow        `json:"offices"`
	AlarmTier         string             `json:"alarm_tier"`
	Alarms            []Alarm            `json:"alarms"`
	TierAlarms        []AlarmSeries      `json:"tier_alarms"`
	PriorityConflicts []PriorityConflict `json:"priority_conflicts"`
}

// Run executes the full aggregation pipeline over records. It never mutates
// records and keeps no state between calls.
func Run(records []Record, opts Options) Report {
	vocab := append(Vocabulary(nil), opts.Vocabulary...)
	rep := Report{Vocabulary: vocab, RecordCount: len(records), AlarmTier: opts.AlarmTier}

	rows := annotate(records, opts.MonthTable)
	if opts.Prefilter {
		kept := rows[:0:0]
		for _, r := range rows {
			if vocab.Contains(r.Specialty) {
				kept = append(kept, r)
			}
		}
		rep.FilteredOut = len(rows) - len(kept)
		rows = kept
	}

	plain := make([]Record, len(rows))
	for i, r := range rows {
		plain[i] = r.Record
	}
	lookup, conflicts := BuildPriorityLookup(plain)
	rep.PriorityConflicts = conflicts

	rep.Coverage = WithDelta(aggregateCoverage(rows, vocab))
	rep.Status = aggregateStatus(rows, opts.CancelStatus)
	rep.Contractors = aggregateRoster(rows, ByContractor)
	rep.Offices = aggregateRoster(rows, ByOfficeUnit)
	rep.Alarms = RaiseAlarms(rep.Coverage, lookup, TierDecline(opts.AlarmTier))

	tiers := opts.TabTiers
	if len(tiers) == 0 {
		tiers = lookup.Tiers()
	}
	rep.TierAlarms = RaiseTierAlarms(rep.Coverage, lookup, tiers)
	return rep
}

// Tiers lists the distinct non-empty tiers in the lookup, sorted.
func (l PriorityLookup) Tiers() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range l {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// AlarmSites lists the sites with at least one raised alarm in alarms, in
// first-raised order.
func AlarmSites(alarms []Alarm) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range alarms {
		if !a.Raised() || seen[a.SiteID] {
			continue
		}
		seen[a.SiteID] = true
		out = append(out, a.SiteID)
	}
	return out
}

// SiteHistory returns the coverage rows of one site in chronological order.
func (r Report) SiteHistory(site string) []CoverageRow {
	var out []CoverageRow
	for _, row := range r.Coverage {
		if row.SiteID == site {
			out = append(out, row)
		}
	}
	return out
}

// SiteAlarms returns the raised alarms of one site in the global series.
func (r Report) SiteAlarms(site string) []Alarm {
	var out []Alarm
	for _, a := range r.Alarms {
		if a.SiteID == site && a.Raised() {
			out = append(out, a)
		}
	}
	return out
}

// Series returns the tier series with the given tier, if any.
func (r Report) Series(tier string) (AlarmSeries, bool) {
	for _, s := range r.TierAlarms {
		if s.Tier == tier {
			return s, true
		}
	}
	return AlarmSeries{}, false
}

// RaisedCount counts raised alarms in the global series.
func (r Report) RaisedCount() int {
	n := 0
	for _, a := range r.Alarms {
		if a.Raised() {
			n++
		}
	}
	return n
}
