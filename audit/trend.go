package audit

// WithDelta returns a copy of rows ordered by (site, month) where Delta is the
// change in Total against the same site's previous month. The first month of
// every site gets 0. The input slice is not modified.
func WithDelta(rows []CoverageRow) []CoverageRow {
	out := make([]CoverageRow, len(rows))
	for i, r := range rows {
		r.Counts = append([]int(nil), r.Counts...)
		out[i] = r
	}
	sortCoverage(out)
	for i := range out {
		if i == 0 || out[i-1].SiteID != out[i].SiteID {
			out[i].Delta = 0
			continue
		}
		out[i].Delta = out[i].Total - out[i-1].Total
	}
	return out
}
