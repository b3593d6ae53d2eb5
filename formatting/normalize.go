package formatting

import (
	"regexp"
	"strings"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// NormalizeLabel trims a spreadsheet cell and collapses inner whitespace so
// that "Site  A " and "Site A" group together.
func NormalizeLabel(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	return whitespacePattern.ReplaceAllString(text, " ")
}

// NormalizeHeader cleans a header cell. Headers are matched after trimming,
// inner spacing is kept as typed.
func NormalizeHeader(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
}

var monthNames = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "set", "oct", "nov", "dic"}

// FormatMonthLabel renders a canonical "YYYY-MM" key as the "mon-yy" token
// used in the source workbook. Other values are returned unchanged.
func FormatMonthLabel(month string) string {
	if len(month) != 7 || month[4] != '-' || month[:2] != "20" {
		return month
	}
	m := (int(month[5]-'0'))*10 + int(month[6]-'0')
	if m < 1 || m > 12 {
		return month
	}
	return monthNames[m-1] + "-" + month[2:4]
}
