package audit

// Month is a canonical "YYYY-MM" period key, or UnknownMonth.
type Month string

// UnknownMonth marks a scheduling token that could not be parsed.
// It sorts after every "YYYY-MM" key.
const UnknownMonth Month = "unknown"

// Record is one maintenance visit as read from the source sheet.
type Record struct {
	SiteID     string `json:"site_id"`
	Specialty  string `json:"specialty"`
	Priority   string `json:"priority"`
	Contractor string `json:"contractor"`
	OfficeUnit string `json:"office_unit"`
	Status     string `json:"status"`
	MonthToken string `json:"month_token"`
}

// Vocabulary is the ordered list of specialties reported as coverage columns.
type Vocabulary []string

// Contains reports whether specialty is part of the vocabulary.
func (v Vocabulary) Contains(specialty string) bool {
	return v.index(specialty) >= 0
}

func (v Vocabulary) index(specialty string) int {
	for i, s := range v {
		if s == specialty {
			return i
		}
	}
	return -1
}

// CoverageRow is the specialty count matrix for one site in one month.
type CoverageRow struct {
	SiteID string `json:"site_id"`
	Month  Month  `json:"month"`
	// Counts is aligned with the vocabulary used to build the row.
	Counts []int `json:"counts"`
	Total  int   `json:"total"`
	Delta  int   `json:"delta"`
	// Unlisted counts records whose specialty is outside the vocabulary.
	// They are not part of Total.
	Unlisted int `json:"unlisted"`
}

// StatusRow holds status counts for one (site, month, specialty) group.
type StatusRow struct {
	SiteID    string `json:"site_id"`
	Month     Month  `json:"month"`
	Specialty string `json:"specialty"`
	// Counts is aligned with StatusTable.Statuses.
	Counts      []int   `json:"counts"`
	Total       int     `json:"total"`
	CancelRatio float64 `json:"cancel_ratio"`
}

// StatusTable is the status pivot over the whole dataset.
type StatusTable struct {
	Statuses        []string    `json:"statuses"`
	CancelStatus    string      `json:"cancel_status"`
	HasCancelStatus bool        `json:"has_cancel_status"`
	Rows            []StatusRow `json:"rows"`
}

// RosterRow counts visits attributed to one entity at a site in a month.
type RosterRow struct {
	Entity string `json:"entity"`
	SiteID string `json:"site_id"`
	Month  Month  `json:"month"`
	Count  int    `json:"count"`
}

// Alarm is the alarm evaluation for one coverage row. Message is empty when
// the predicate did not fire.
type Alarm struct {
	SiteID   string `json:"site_id"`
	Month    Month  `json:"month"`
	Priority string `json:"priority"`
	Total    int    `json:"total"`
	Delta    int    `json:"delta"`
	Message  string `json:"message"`
}

// Raised reports whether the alarm fired.
func (a Alarm) Raised() bool { return a.Message != "" }

// AlarmSeries is one independently labelled alarm column, e.g. one per tier tab.
type AlarmSeries struct {
	Label  string  `json:"label"`
	Tier   string  `json:"tier"`
	Alarms []Alarm `json:"alarms"`
}

// PriorityConflict records a site whose records disagree on the priority tier.
type PriorityConflict struct {
	SiteID  string `json:"site_id"`
	Kept    string `json:"kept"`
	Ignored string `json:"ignored"`
}
