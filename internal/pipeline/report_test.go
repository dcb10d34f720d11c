package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/papersift/internal/model"
	"github.com/ppiankov/papersift/internal/record"
)

func reportRecord(file, primary string, keywords ...string) *model.OutputRecord {
	year := 2019
	return &model.OutputRecord{
		SourceFile:   file,
		BaseFilename: strings.TrimSuffix(file, ".pdf"),
		Metadata:     model.DocumentMetadata{Filename: file, Pages: 3},
		Summary: model.StructuredSummary{
			Title:        "Study of " + file,
			Authors:      []string{"Erik Loeffler", "Jan Aasly"},
			Year:         &year,
			Journal:      "Movement Disorders",
			BibTeX:       "@article{Loeffler2019,}",
			DocumentType: "trial",
			Method:       "randomized",
			KeyFindings:  model.KeyFindings{{Name: "Outcome", Description: "Improved"}},
			KeyTakeaways: "Works.",
		},
		Keywords:        keywords,
		PrimaryCategory: primary,
		WordCount:       1500,
	}
}

func TestReportFilename(t *testing.T) {
	got := ReportFilename(time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC))
	if got != "summary_report_20240309_070501.md" {
		t.Errorf("ReportFilename = %q", got)
	}
}

func TestRenderCategoryReport(t *testing.T) {
	records := []*model.OutputRecord{
		reportRecord("b.pdf", "preclinical_models", "mice"),
		reportRecord("a.pdf", "clinical_trial", "k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8", "k9"),
		reportRecord("c.pdf", "preclinical_models"),
	}
	records[1].Metadata.Title = "Info Dict Title"

	var buf bytes.Buffer
	RenderCategoryReport(&buf, records, time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC))
	out := buf.String()

	for _, want := range []string{
		"# PDF Summary Report\n\nGenerated on: 2024-03-09 07:05:01\n\nTotal PDFs processed: 3\n\n",
		"## Clinical Trial (1 PDFs)",
		"## Preclinical Models (2 PDFs)",
		"### Info Dict Title",
		"### b.pdf",
		"**Keywords:** k1, k2, k3, k4, k5, k6, k7, k8\n",
		"**Author(s):** Erik Loeffler, Jan Aasly",
		"**Year:** 2019",
		"**BibTeX Citation:**\n```\n@article{Loeffler2019,}\n```",
		"- Outcome: Improved",
		"---\n\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}

	if strings.Index(out, "## Clinical Trial") > strings.Index(out, "## Preclinical Models") {
		t.Error("categories should appear in name order")
	}
	if strings.Index(out, "### b.pdf") > strings.Index(out, "### c.pdf") {
		t.Error("documents should keep batch order within a category")
	}
}

func TestWriteCategoryReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	now := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)

	path, err := WriteCategoryReport(dir, []*model.OutputRecord{reportRecord("a.pdf", "meta_analysis")}, now)
	if err != nil {
		t.Fatalf("WriteCategoryReport failed: %v", err)
	}
	if path != filepath.Join(dir, "summary_report_20240309_070501.md") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "## Meta Analysis (1 PDFs)") {
		t.Errorf("unexpected report:\n%s", data)
	}

	if _, err := WriteCategoryReport(dir, nil, now); err == nil {
		t.Error("expected error for an empty batch")
	}
}

func TestCategoryDistribution(t *testing.T) {
	records := []*model.OutputRecord{
		reportRecord("a.pdf", "review_article"),
		reportRecord("b.pdf", "clinical_trial"),
		reportRecord("c.pdf", "review_article"),
		reportRecord("d.pdf", model.Uncategorized),
	}
	got := CategoryDistribution(records)
	want := []model.Count{
		{Label: "review_article", Count: 2},
		{Label: "clinical_trial", Count: 1},
		{Label: model.Uncategorized, Count: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("CategoryDistribution = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRenderResultsTable(t *testing.T) {
	var buf bytes.Buffer
	RenderResultsTable(&buf, []*model.OutputRecord{
		reportRecord("a.pdf", "clinical_trial", "one", "two", "three", "four", "five", "six"),
	})
	out := buf.String()
	if !strings.Contains(out, "FILE") || !strings.Contains(out, "a.pdf") {
		t.Errorf("table missing rows:\n%s", out)
	}
	if !strings.Contains(out, "one, two, three, four, five") || strings.Contains(out, "six") {
		t.Errorf("table should show the top five keywords:\n%s", out)
	}
	if !strings.Contains(out, "clinical_trial: 1") {
		t.Errorf("distribution missing:\n%s", out)
	}

	buf.Reset()
	RenderResultsTable(&buf, nil)
	if !strings.Contains(buf.String(), "No results") {
		t.Errorf("empty table output = %q", buf.String())
	}
}

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir)
	rec := reportRecord("Loeffler.pdf", "clinical_trial", "mice")
	rec.Categories = map[string]float64{"clinical_trial": 1}

	paths, err := w.Write(rec)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if paths != w.Paths("Loeffler") {
		t.Errorf("paths = %+v", paths)
	}

	full, err := os.ReadFile(paths.Full)
	if err != nil {
		t.Fatal(err)
	}
	simple, err := os.ReadFile(paths.Simple)
	if err != nil {
		t.Fatal(err)
	}
	derived, err := record.SimplifyArtifact(full)
	if err != nil {
		t.Fatalf("SimplifyArtifact: %v", err)
	}
	if !bytes.Equal(derived, simple) {
		t.Errorf("simple artifact differs from its derivation:\n%s\n---\n%s", simple, derived)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected only the two artifacts, found %d entries", len(entries))
	}
}

func TestWriter_Write_SharedBaseName(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	a := reportRecord("paper-a.pdf", "clinical_trial")
	a.BaseFilename = "Loeffler-2019"
	b := reportRecord("paper-b.pdf", "review_article")
	b.BaseFilename = "Loeffler-2019"

	pathsA, err := w.Write(a)
	if err != nil {
		t.Fatalf("Write a: %v", err)
	}
	pathsB, err := w.Write(b)
	if err != nil {
		t.Fatalf("Write b: %v", err)
	}
	if pathsA != w.Paths("Loeffler-2019") {
		t.Errorf("first document paths = %+v", pathsA)
	}
	if pathsB != w.Paths("Loeffler-2019-2") {
		t.Errorf("second document paths = %+v", pathsB)
	}
	if b.BaseFilename != "Loeffler-2019-2" {
		t.Errorf("expected disambiguated base name in record, got %s", b.BaseFilename)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 4 {
		t.Errorf("expected four artifacts, found %d entries", len(entries))
	}

	for path, source := range map[string]string{pathsA.Full: "paper-a.pdf", pathsB.Full: "paper-b.pdf"} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		rec, err := record.ParseFull(data)
		if err != nil {
			t.Fatalf("ParseFull %s: %v", path, err)
		}
		if rec.SourceFile != source {
			t.Errorf("%s holds %s, want %s", path, rec.SourceFile, source)
		}
	}

	// Re-processing a document replaces its own artifacts
	again := reportRecord("paper-b.pdf", "meta_analysis")
	again.BaseFilename = "Loeffler-2019"
	pathsAgain, err := w.Write(again)
	if err != nil {
		t.Fatalf("Write again: %v", err)
	}
	if pathsAgain != pathsB {
		t.Errorf("re-run paths = %+v, want %+v", pathsAgain, pathsB)
	}
	entries, _ = os.ReadDir(dir)
	if len(entries) != 4 {
		t.Errorf("re-run must not add artifacts, found %d entries", len(entries))
	}
}
