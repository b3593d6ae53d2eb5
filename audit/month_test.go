package audit

import "testing"

func TestNormalizeMonthKnownTokens(t *testing.T) {
	cases := map[string]Month{
		"jul-25":    "2025-07",
		"ENE-24 ":   "2024-01",
		" ago - 25": "2025-08",
		"set-3":     "2003-09",
		"dic-99":    "2099-12",
		"Feb-00":    "2000-02",
	}
	for in, want := range cases {
		if got := NormalizeMonth(in); got != want {
			t.Fatalf("NormalizeMonth(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeMonthMalformedTokens(t *testing.T) {
	for _, in := range []string{"", "jul25", "jul-25-01", "xyz-25", "jul-", "jul-2025", "jul-ab", "-25", "2025-07-01 00:00:00"} {
		if got := NormalizeMonth(in); got != UnknownMonth {
			t.Fatalf("NormalizeMonth(%q) = %q, want unknown", in, got)
		}
	}
}

func TestDefaultTableIsBijective(t *testing.T) {
	table := DefaultMonthTable()
	seen := make(map[Month]string)
	for abbr := range table {
		got := table.Normalize(abbr + "-25")
		if got == UnknownMonth {
			t.Fatalf("abbreviation %q not recognized", abbr)
		}
		if prev, ok := seen[got]; ok {
			t.Fatalf("%q and %q both map to %s", prev, abbr, got)
		}
		seen[got] = abbr
	}
	if len(seen) != 12 {
		t.Fatalf("expected 12 months, got %d", len(seen))
	}
}

func TestMonthTableAliases(t *testing.T) {
	table := DefaultMonthTable().With(map[string]string{"AUG": "08", "sep": "09", "bad": "13"})
	if got := table.Normalize("aug-25"); got != "2025-08" {
		t.Fatalf("alias aug: got %q", got)
	}
	if got := table.Normalize("bad-25"); got != UnknownMonth {
		t.Fatalf("invalid alias should be ignored, got %q", got)
	}
	if got := NormalizeMonth("aug-25"); got != UnknownMonth {
		t.Fatalf("default table must not be extended, got %q", got)
	}
}
