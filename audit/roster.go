package audit

import "sort"

// RosterKey selects the entity a roster is grouped by.
type RosterKey struct {
	Name  string
	Field func(Record) string
}

var (
	// ByContractor groups visits by the contractor responsible for the site.
	ByContractor = RosterKey{Name: "contractor", Field: func(r Record) string { return r.Contractor }}
	// ByOfficeUnit groups visits by the supervising office unit.
	ByOfficeUnit = RosterKey{Name: "office_unit", Field: func(r Record) string { return r.OfficeUnit }}
)

type rosterKey struct {
	entity string
	site   string
	month  Month
}

// AggregateRoster counts records per (entity, site, month). Combinations
// without records are absent.
func AggregateRoster(records []Record, key RosterKey) []RosterRow {
	return aggregateRoster(annotate(records, nil), key)
}

func aggregateRoster(records []annotated, key RosterKey) []RosterRow {
	counts := make(map[rosterKey]int)
	for _, r := range records {
		counts[rosterKey{entity: key.Field(r.Record), site: r.SiteID, month: r.month}]++
	}
	out := make([]RosterRow, 0, len(counts))
	for k, n := range counts {
		out = append(out, RosterRow{Entity: k.entity, SiteID: k.site, Month: k.month, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		if a.SiteID != b.SiteID {
			return a.SiteID < b.SiteID
		}
		return a.Month < b.Month
	})
	return out
}
