package audit

import (
	"strings"
)

// MonthTable maps lower-case month abbreviations to a two-digit month number.
type MonthTable map[string]string

var defaultMonths = MonthTable{
	"ene": "01", "feb": "02", "mar": "03", "abr": "04", "may": "05", "jun": "06",
	"jul": "07", "ago": "08", "set": "09", "oct": "10", "nov": "11", "dic": "12",
}

// DefaultMonthTable returns a copy of the built-in abbreviation table.
func DefaultMonthTable() MonthTable {
	return defaultMonths.With(nil)
}

// With returns a copy of t extended with aliases. Alias keys are lower-cased;
// values that are not a valid two-digit month are ignored.
func (t MonthTable) With(aliases map[string]string) MonthTable {
	out := make(MonthTable, len(t)+len(aliases))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range aliases {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || !validMonthNumber(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// NormalizeMonth converts a "mon-yy" token such as "jul-25" into "2025-07"
// using the default table.
func NormalizeMonth(token string) Month {
	return defaultMonths.Normalize(token)
}

// Normalize converts a "mon-yy" token into a canonical month. Tokens without
// exactly one '-', with an unknown abbreviation, or with a year part that is
// not one or two digits yield UnknownMonth.
func (t MonthTable) Normalize(token string) Month {
	token = strings.ToLower(strings.TrimSpace(token))
	parts := strings.Split(token, "-")
	if len(parts) != 2 {
		return UnknownMonth
	}
	month, ok := t[strings.TrimSpace(parts[0])]
	if !ok {
		return UnknownMonth
	}
	year := strings.TrimSpace(parts[1])
	if len(year) == 0 || len(year) > 2 || !allDigits(year) {
		return UnknownMonth
	}
	if len(year) == 1 {
		year = "0" + year
	}
	return Month("20" + year + "-" + month)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func validMonthNumber(v string) bool {
	if len(v) != 2 || !allDigits(v) {
		return false
	}
	return v >= "01" && v <= "12"
}
