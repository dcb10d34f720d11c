package summarize

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/papersift/internal/model"
)

const validResponse = `{
  "Title": "Alpha-synuclein in transgenic mice",
  "Author(s)": ["Maria Morais", "Andrew Boktor"],
  "Year Published": 2024,
  "Journal": "Neurobiology of Disease",
  "BibTeX Citation": "",
  "Type": "preclinical study",
  "Categories": ["neuroscience"],
  "Sample Size": "24 mice",
  "Method": "Transgenic mouse model with behavioral testing",
  "Key Findings": {"Motor deficits": "Mice developed deficits by 6 months", "Aggregation": "Aggregates doubled"},
  "Prediction Model": "no",
  "Key Takeaways": "The model reproduces early disease features.",
  "Confidence": 0.9
}`

func TestParseSummary_Valid(t *testing.T) {
	s, err := ParseSummary(validResponse)
	if err != nil {
		t.Fatalf("ParseSummary failed: %v", err)
	}
	if s.Title != "Alpha-synuclein in transgenic mice" {
		t.Errorf("Title = %q", s.Title)
	}
	if !reflect.DeepEqual(s.Authors, []string{"Maria Morais", "Andrew Boktor"}) {
		t.Errorf("Authors = %v", s.Authors)
	}
	if s.Year == nil || *s.Year != 2024 {
		t.Errorf("Year = %v", s.Year)
	}
	if len(s.KeyFindings) != 2 || s.KeyFindings[0].Name != "Motor deficits" || s.KeyFindings[1].Name != "Aggregation" {
		t.Errorf("KeyFindings order not preserved: %+v", s.KeyFindings)
	}
	if s.PredictionModel {
		t.Error("PredictionModel should be false for \"no\"")
	}
	if s.ParseDegraded {
		t.Error("valid response must not be degraded")
	}
}

func TestParseSummary_FencesAndProse(t *testing.T) {
	resp := "Sure! Here is the summary:\n```json\n" + validResponse + "\n```\nLet me know if you need more."
	s, err := ParseSummary(resp)
	if err != nil {
		t.Fatalf("ParseSummary failed: %v", err)
	}
	if s.Journal != "Neurobiology of Disease" {
		t.Errorf("Journal = %q", s.Journal)
	}
}

func TestParseSummary_LenientTypes(t *testing.T) {
	resp := `{
	  "title": "T",
	  "Authors": "Erik Loeffler and Jan Aasly",
	  "year": "published in 2019",
	  "type": "review",
	  "method": "narrative",
	  "Key Findings": ["first", {"name": "Second", "description": "two"}],
	  "Prediction Model": "Yes",
	  "Key Takeaways": ["a", "b"],
	  "Sample Size": 120
	}`
	s, err := ParseSummary(resp)
	if err != nil {
		t.Fatalf("ParseSummary failed: %v", err)
	}
	if !reflect.DeepEqual(s.Authors, []string{"Erik Loeffler", "Jan Aasly"}) {
		t.Errorf("Authors = %v", s.Authors)
	}
	if s.Year == nil || *s.Year != 2019 {
		t.Errorf("Year = %v", s.Year)
	}
	if !s.PredictionModel {
		t.Error("PredictionModel should be true for \"Yes\"")
	}
	if s.SampleSize != "120" {
		t.Errorf("SampleSize = %q", s.SampleSize)
	}
	if s.KeyTakeaways != "a; b" {
		t.Errorf("KeyTakeaways = %q", s.KeyTakeaways)
	}
	if d, _ := s.KeyFindings.Get("Second"); d != "two" {
		t.Errorf("KeyFindings = %+v", s.KeyFindings)
	}
	if s.Journal != model.Unknown {
		t.Errorf("missing optional field should be a placeholder, got %q", s.Journal)
	}
}

func TestParseSummary_Errors(t *testing.T) {
	tests := []struct {
		name        string
		resp        string
		wantMissing []string
	}{
		{"not json", "I cannot summarize this document.", nil},
		{"broken json", `{"Title": "x",`, nil},
		{"missing fields", `{"Title": "x", "Author(s)": [], "Year Published": null, "Type": "t"}`,
			[]string{FieldMethod, FieldKeyFindings, FieldKeyTakeaways}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSummary(tt.resp)
			var mre *model.ModelResponseError
			if !errors.As(err, &mre) {
				t.Fatalf("expected ModelResponseError, got %v", err)
			}
			if tt.wantMissing != nil && !reflect.DeepEqual(mre.Missing, tt.wantMissing) {
				t.Errorf("Missing = %v, want %v", mre.Missing, tt.wantMissing)
			}
		})
	}
}

func TestAsAuthors(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`["A B", " ", "unknown"]`, []string{"A B"}},
		{`"Smith, J."`, []string{"Smith, J."}},
		{`"Maria Morais, Andrew Boktor"`, []string{"Maria Morais", "Andrew Boktor"}},
		{`"A B; C D & E F"`, []string{"A B", "C D", "E F"}},
		{`null`, nil},
	}
	for _, tt := range tests {
		got := asAuthors([]byte(tt.in))
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("asAuthors(%s) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBibTeX(t *testing.T) {
	year := 2019
	s := &model.StructuredSummary{
		Title:   "Parkinson {genetics}",
		Authors: []string{"Erik Loeffler", "Jan Aasly"},
		Year:    &year,
		Journal: "Neurology",
	}
	got := BibTeX(s)
	want := "@article{Loeffler2019,\n  title = {Parkinson genetics},\n  author = {Erik Loeffler and Jan Aasly},\n  journal = {Neurology},\n  year = {2019}\n}"
	if got != want {
		t.Errorf("BibTeX =\n%s\nwant\n%s", got, want)
	}

	anon := BibTeX(&model.StructuredSummary{Title: "Untitled note", Journal: model.Unknown})
	if !strings.HasPrefix(anon, "@misc{unknown,") {
		t.Errorf("unexpected anonymous citation: %s", anon)
	}
}

func TestSalvage(t *testing.T) {
	partial := `{"Title": "Organoid \"screens\"", "Author(s)": ["A B"], "Year Published": "2021", "Key Findings": {"Growth": "fast"}, "Method": "in vitro`
	s := salvage(partial, nil)
	if !s.ParseDegraded {
		t.Error("salvaged summary must be degraded")
	}
	if s.Title != `Organoid "screens"` {
		t.Errorf("Title = %q", s.Title)
	}
	if len(s.Authors) != 1 || s.Year == nil || *s.Year != 2021 {
		t.Errorf("Authors = %v, Year = %v", s.Authors, s.Year)
	}
	if d, _ := s.KeyFindings.Get("Growth"); d != "fast" {
		t.Errorf("KeyFindings = %+v", s.KeyFindings)
	}
	if s.Method != model.Unknown {
		t.Errorf("unterminated field should stay a placeholder, got %q", s.Method)
	}
}

func TestSalvage_ProseKeepsDraft(t *testing.T) {
	draft := &model.StructuredSummary{Title: "Draft title", Authors: []string{"A B"}}
	s := salvage("The study shows that cells grow faster.", draft)
	if s.Title != "Draft title" {
		t.Errorf("draft title lost: %q", s.Title)
	}
	if s.KeyTakeaways != "The study shows that cells grow faster." {
		t.Errorf("KeyTakeaways = %q", s.KeyTakeaways)
	}
	if draft.ParseDegraded {
		t.Error("draft must not be mutated")
	}
}
