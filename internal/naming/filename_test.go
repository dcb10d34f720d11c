package naming

import "testing"

func intPtr(v int) *int { return &v }

func TestBaseFilename(t *testing.T) {
	tests := []struct {
		name    string
		authors []string
		year    *int
		stem    string
		want    string
	}{
		{"no authors falls back to stem", nil, nil, "paper_draft", "paper_draft"},
		{"no authors ignores year", []string{}, intPtr(2020), "scan 001", "scan 001"},
		{"single author with year", []string{"Erik Loeffler"}, intPtr(2019), "x", "Loeffler-2019"},
		{"single author without year", []string{"Paul"}, nil, "x", "Paul"},
		{"two authors", []string{"Erik Loeffler", "Jan Aasly"}, intPtr(2019), "x", "Loeffler-Aasly-2019"},
		{"three authors keep first two", []string{"A B", "C D", "E F"}, intPtr(2020), "x", "B-D-2020"},
		{"two authors without year", []string{"Maria Morais", "Andrew Boktor"}, nil, "x", "Morais-Boktor"},
		{"diacritics are stripped", []string{"José Muñoz"}, intPtr(2021), "x", "Muoz-2021"},
		{"punctuation is stripped", []string{"Mary O'Neil-Smith,"}, nil, "x", "ONeil-Smith"},
		{"placeholder author is ignored", []string{"unknown"}, intPtr(2022), "stem", "stem"},
		{"placeholder first author skipped", []string{"Not specified", "Ada Lovelace"}, intPtr(1843), "stem", "Lovelace-1843"},
		{"blank names are ignored", []string{"  ", ""}, nil, "stem", "stem"},
		{"non-ascii surname falls back to earlier token", []string{"Wei 李"}, nil, "stem", "Wei"},
		{"zero year treated as absent", []string{"Erik Loeffler"}, intPtr(0), "x", "Loeffler"},
		{"empty stem", nil, nil, "", "untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BaseFilename(tt.authors, tt.year, tt.stem)
			if got != tt.want {
				t.Errorf("BaseFilename(%q, %v, %q) = %q, want %q", tt.authors, tt.year, tt.stem, got, tt.want)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize("--Ab_c 9!--"); got != "Abc9" {
		t.Errorf("Sanitize = %q, want %q", got, "Abc9")
	}
	if got := Sanitize("李"); got != "" {
		t.Errorf("Sanitize(non-ascii) = %q, want empty", got)
	}
}
