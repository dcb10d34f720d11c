package summarize

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ppiankov/papersift/internal/model"
)

var (
	stringFieldPattern = func(field string) *regexp.Regexp {
		return regexp.MustCompile(`(?i)"` + regexp.QuoteMeta(field) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	}
	titlePattern      = stringFieldPattern(FieldTitle)
	journalPattern    = stringFieldPattern(FieldJournal)
	typePattern       = stringFieldPattern(FieldType)
	methodPattern     = stringFieldPattern(FieldMethod)
	samplePattern     = stringFieldPattern(FieldSampleSize)
	takeawaysPattern  = stringFieldPattern(FieldKeyTakeaways)
	bibtexPattern     = stringFieldPattern(FieldBibTeX)
	authorsPattern    = regexp.MustCompile(`(?i)"Author\(s\)"\s*:\s*(\[[^\]]*\]|"(?:[^"\\]|\\.)*")`)
	yearFieldPattern  = regexp.MustCompile(`(?i)"Year Published"\s*:\s*"?(\d{4})`)
	findingsPattern   = regexp.MustCompile(`(?s)"Key Findings"\s*:\s*(\{[^{}]*\})`)
	predictionPattern = regexp.MustCompile(`(?i)"Prediction Model"\s*:\s*"?(true|yes)`)
)

// salvage builds a best-effort summary from a response that never parsed.
// Fields recovered from the text override draft; the draft fills the rest.
// Prose without any recognizable field becomes the key takeaways.
func salvage(response string, draft *model.StructuredSummary) *model.StructuredSummary {
	s := &model.StructuredSummary{}
	if draft != nil {
		copied := *draft
		copied.Authors = append([]string(nil), draft.Authors...)
		copied.Categories = append([]string(nil), draft.Categories...)
		copied.KeyFindings = append(model.KeyFindings(nil), draft.KeyFindings...)
		s = &copied
	}

	found := false
	for _, f := range []struct {
		re  *regexp.Regexp
		dst *string
	}{
		{titlePattern, &s.Title},
		{journalPattern, &s.Journal},
		{typePattern, &s.DocumentType},
		{methodPattern, &s.Method},
		{samplePattern, &s.SampleSize},
		{takeawaysPattern, &s.KeyTakeaways},
		{bibtexPattern, &s.BibTeX},
	} {
		if m := f.re.FindStringSubmatch(response); m != nil {
			if v := unescape(m[1]); v != "" {
				*f.dst = v
				found = true
			}
		}
	}

	if m := authorsPattern.FindStringSubmatch(response); m != nil {
		if authors := asAuthors(json.RawMessage(m[1])); len(authors) > 0 {
			s.Authors = authors
			found = true
		}
	}
	if m := yearFieldPattern.FindStringSubmatch(response); m != nil {
		s.Year = asYear(json.RawMessage(m[1]))
		found = true
	}
	if m := findingsPattern.FindStringSubmatch(response); m != nil {
		var kf model.KeyFindings
		if err := json.Unmarshal([]byte(m[1]), &kf); err == nil && len(kf) > 0 {
			s.KeyFindings = kf
			found = true
		}
	}
	if predictionPattern.MatchString(response) {
		s.PredictionModel = true
	}

	if !found {
		if prose := strings.TrimSpace(response); prose != "" && !strings.HasPrefix(prose, "{") {
			s.KeyTakeaways = clip(prose, 2000)
		}
	}

	s.ParseDegraded = true
	s.Normalize()
	return s
}

func unescape(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}
