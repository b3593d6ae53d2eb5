package audit

import "sort"

type siteMonth struct {
	site  string
	month Month
}

// annotated pairs a record with its canonical month.
type annotated struct {
	Record
	month Month
}

func annotate(records []Record, table MonthTable) []annotated {
	if table == nil {
		table = defaultMonths
	}
	out := make([]annotated, 0, len(records))
	for _, r := range records {
		out = append(out, annotated{Record: r, month: table.Normalize(r.MonthToken)})
	}
	return out
}

// AggregateCoverage counts records per (site, month) and pivots the
// specialties onto the vocabulary, in vocabulary order. Records whose
// specialty is not in the vocabulary still create their (site, month) row but
// only contribute to Unlisted. Months use the default table.
func AggregateCoverage(records []Record, vocab Vocabulary) []CoverageRow {
	return aggregateCoverage(annotate(records, nil), vocab)
}

func aggregateCoverage(records []annotated, vocab Vocabulary) []CoverageRow {
	if len(records) == 0 {
		return []CoverageRow{}
	}
	rows := make(map[siteMonth]*CoverageRow)
	for _, r := range records {
		key := siteMonth{site: r.SiteID, month: r.month}
		row, ok := rows[key]
		if !ok {
			row = &CoverageRow{SiteID: r.SiteID, Month: r.month, Counts: make([]int, len(vocab))}
			rows[key] = row
		}
		idx := vocab.index(r.Specialty)
		if idx < 0 {
			row.Unlisted++
			continue
		}
		row.Counts[idx]++
		row.Total++
	}

	out := make([]CoverageRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sortCoverage(out)
	return out
}

func sortCoverage(rows []CoverageRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SiteID != rows[j].SiteID {
			return rows[i].SiteID < rows[j].SiteID
		}
		return rows[i].Month < rows[j].Month
	})
}
