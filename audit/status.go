package audit

import (
	"math"
	"sort"
)

type statusKey struct {
	site      string
	month     Month
	specialty string
}

// AggregateStatus pivots record counts by status for every
// (site, month, specialty) group. Every row carries a count for each status
// seen anywhere in the dataset. CancelRatio is the share of cancelStatus in
// the row rounded to two decimals, or 0 for every row when cancelStatus never
// occurs.
func AggregateStatus(records []Record, cancelStatus string) StatusTable {
	return aggregateStatus(annotate(records, nil), cancelStatus)
}

func aggregateStatus(records []annotated, cancelStatus string) StatusTable {
	table := StatusTable{CancelStatus: cancelStatus, Statuses: []string{}, Rows: []StatusRow{}}
	if len(records) == 0 {
		return table
	}

	seen := make(map[string]struct{})
	for _, r := range records {
		if _, ok := seen[r.Status]; !ok {
			seen[r.Status] = struct{}{}
			table.Statuses = append(table.Statuses, r.Status)
		}
	}
	sort.Strings(table.Statuses)
	column := make(map[string]int, len(table.Statuses))
	for i, s := range table.Statuses {
		column[s] = i
	}
	cancelIdx, hasCancel := column[cancelStatus]
	table.HasCancelStatus = hasCancel

	groups := make(map[statusKey]*StatusRow)
	for _, r := range records {
		key := statusKey{site: r.SiteID, month: r.month, specialty: r.Specialty}
		row, ok := groups[key]
		if !ok {
			row = &StatusRow{SiteID: r.SiteID, Month: r.month, Specialty: r.Specialty, Counts: make([]int, len(table.Statuses))}
			groups[key] = row
		}
		row.Counts[column[r.Status]]++
		row.Total++
	}

	for _, row := range groups {
		if hasCancel && row.Total > 0 {
			row.CancelRatio = round2(float64(row.Counts[cancelIdx]) / float64(row.Total))
		}
		table.Rows = append(table.Rows, *row)
	}
	sort.Slice(table.Rows, func(i, j int) bool {
		a, b := table.Rows[i], table.Rows[j]
		if a.SiteID != b.SiteID {
			return a.SiteID < b.SiteID
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Specialty < b.Specialty
	})
	return table
}

// Count returns the number of records with the given status in row, or 0 when
// the status is not a column of the table.
func (t StatusTable) Count(row StatusRow, status string) int {
	for i, s := range t.Statuses {
		if s == status && i < len(row.Counts) {
			return row.Counts[i]
		}
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
