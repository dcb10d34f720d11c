package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/papersift/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	s, err := Open(context.Background(), "sqlite", ":memory:", log)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(source string, year int, keywords ...string) *model.OutputRecord {
	y := year
	return &model.OutputRecord{
		SourceFile:   source,
		BaseFilename: "Morais-Boktor-2024",
		Metadata:     model.DocumentMetadata{Title: "pdf title", Author: "pdf author", Filename: source, Pages: 3},
		Summary: model.StructuredSummary{
			Title:        "Alpha-synuclein in transgenic mice",
			Authors:      []string{"Maria Morais", "Andrew Boktor"},
			Year:         &y,
			Journal:      "Neurobiology of Disease",
			BibTeX:       "@article{Morais2024}",
			DocumentType: "preclinical study",
			Categories:   []string{"preclinical_models"},
			SampleSize:   "24 mice",
			Method:       "Transgenic mouse model",
			KeyFindings: model.KeyFindings{
				{Name: "Motor deficits", Description: "By 6 months"},
				{Name: "Aggregation", Description: "Doubled"},
			},
			KeyTakeaways: "The model reproduces early disease features.",
		},
		Keywords: keywords,
		Categories: map[string]float64{
			"clinical_trial":     0,
			"meta_analysis":      0,
			"preclinical_models": 1,
			"cellular_studies":   0.5,
			"review_article":     0,
		},
		PrimaryCategory: "preclinical_models",
		WordCount:       1200,
		ProcessedAt:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x", nil)
	var cfgErr *model.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Upsert(ctx, testRecord("a.pdf", 2024, "mice", "alpha-synuclein", "motor"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if first.Replaced {
		t.Error("first upsert should not replace")
	}

	latest := testRecord("a.pdf", 2024, "mice")
	latest.Summary.KeyFindings = latest.Summary.KeyFindings[:1]
	second, err := s.Upsert(ctx, latest)
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if !second.Replaced {
		t.Error("second upsert should replace")
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	want := map[string]int{"documents": 1, "keywords": 1, "key_findings": 1, "category_scores": 5}
	for table, n := range want {
		if counts[table] != n {
			t.Errorf("%s rows = %d, want %d", table, counts[table], n)
		}
	}
}

func TestUpsert_PreservesCreatedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := s.Upsert(ctx, testRecord("a.pdf", 2024)); err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := s.Upsert(ctx, testRecord("a.pdf", 2024)); err != nil {
		t.Fatal(err)
	}

	doc, err := s.GetBySource(ctx, "a.pdf")
	if err != nil {
		t.Fatalf("GetBySource failed: %v", err)
	}
	if !strings.HasPrefix(doc.CreatedAt, "2024-01-01") || !strings.HasPrefix(doc.UpdatedAt, "2024-02-01") {
		t.Errorf("created_at=%s updated_at=%s", doc.CreatedAt, doc.UpdatedAt)
	}
}

func TestUpsert_FailureKeepsPriorState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, testRecord("a.pdf", 2024, "mice", "motor")); err != nil {
		t.Fatal(err)
	}

	bad := testRecord("a.pdf", 2025, "other")
	bad.Categories["clinical_trial"] = 1.5
	_, err := s.Upsert(ctx, bad)
	var perr *model.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if perr.SourceFile != "a.pdf" {
		t.Errorf("SourceFile = %q", perr.SourceFile)
	}

	doc, err := s.GetBySource(ctx, "a.pdf")
	if err != nil {
		t.Fatalf("prior document lost: %v", err)
	}
	if *doc.Year != 2024 || strings.Join(doc.Keywords, ",") != "mice,motor" {
		t.Errorf("prior state not intact: year=%d keywords=%v", *doc.Year, doc.Keywords)
	}
	counts, _ := s.Counts(ctx)
	if counts["category_scores"] != 5 {
		t.Errorf("category_scores rows = %d, want 5", counts["category_scores"])
	}
}

func TestUpsert_NoSourceFile(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Upsert(context.Background(), testRecord("", 2024)); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res, err := s.Upsert(ctx, testRecord("a.pdf", 2024, "mice", "alpha-synuclein"))
	if err != nil {
		t.Fatal(err)
	}

	doc, err := s.Get(ctx, res.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.Authors != "Maria Morais; Andrew Boktor" {
		t.Errorf("Authors = %q", doc.Authors)
	}
	if doc.PDFPages != 3 || doc.BaseFilename != "Morais-Boktor-2024" {
		t.Errorf("metadata = %+v", doc)
	}
	if len(doc.KeyFindings) != 2 || doc.KeyFindings[0].Name != "Motor deficits" {
		t.Errorf("KeyFindings = %+v", doc.KeyFindings)
	}
	if len(doc.CategoryScores) != 5 || doc.CategoryScores[0].Category != "preclinical_models" {
		t.Errorf("CategoryScores = %+v", doc.CategoryScores)
	}
	if strings.Join(doc.Keywords, ",") != "mice,alpha-synuclein" {
		t.Errorf("Keywords = %v", doc.Keywords)
	}
	if !doc.ProcessedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("ProcessedAt = %v", doc.ProcessedAt)
	}

	if _, err := s.Get(ctx, res.ID+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := testRecord("a.pdf", 2019, "mice")
	b := testRecord("b.pdf", 2022, "organoids")
	b.Summary.Title = "Organoid drug screening"
	b.Summary.Authors = []string{"Jan Aasly"}
	b.Summary.Journal = "Cell Reports"
	b.PrimaryCategory = "cellular_studies"
	b.ProcessedAt = a.ProcessedAt.Add(time.Hour)
	c := testRecord("c.pdf", 2024, "trial")
	c.Summary.Year = nil
	c.Summary.Title = "Untitled"
	c.ProcessedAt = a.ProcessedAt.Add(2 * time.Hour)

	for _, r := range []*model.OutputRecord{a, b, c} {
		if _, err := s.Upsert(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		query model.SearchQuery
		want  []string
	}{
		{"all newest first", model.SearchQuery{}, []string{"c.pdf", "b.pdf", "a.pdf"}},
		{"text in title", model.SearchQuery{Text: "organoid"}, []string{"b.pdf"}},
		{"text matches keyword", model.SearchQuery{Text: "Trial"}, []string{"c.pdf"}},
		{"category", model.SearchQuery{Category: "cellular_studies"}, []string{"b.pdf"}},
		{"year range", model.SearchQuery{YearFrom: 2020, YearTo: 2023}, []string{"b.pdf"}},
		{"year from excludes unknown", model.SearchQuery{YearFrom: 2010}, []string{"b.pdf", "a.pdf"}},
		{"author", model.SearchQuery{Author: "aasly"}, []string{"b.pdf"}},
		{"journal", model.SearchQuery{Journal: "neurobiology"}, []string{"c.pdf", "a.pdf"}},
		{"limit", model.SearchQuery{Limit: 1}, []string{"c.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.Search(ctx, tt.query)
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			var got []string
			for _, r := range rows {
				got = append(got, r.SourceFile)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	rows, err := s.Search(ctx, model.SearchQuery{Text: "organoid"})
	if err != nil || len(rows) != 1 {
		t.Fatalf("Search failed: %v", err)
	}
	if strings.Join(rows[0].Keywords, ",") != "organoids" {
		t.Errorf("keywords not attached: %v", rows[0].Keywords)
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := testRecord("a.pdf", 2019, "mice", "motor")
	b := testRecord("b.pdf", 2019, "cells")
	b.PrimaryCategory = "cellular_studies"
	b.ParseDegraded = true
	b.Summary.Journal = model.Unknown
	c := testRecord("c.pdf", 2024)

	for _, r := range []*model.OutputRecord{a, b, c} {
		if _, err := s.Upsert(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.TotalDocuments != 3 || st.TotalKeywords != 3 || st.Degraded != 1 {
		t.Errorf("totals = %+v", st)
	}
	if len(st.ByCategory) != 2 || st.ByCategory[0] != (model.Count{Label: "preclinical_models", Count: 2}) {
		t.Errorf("ByCategory = %+v", st.ByCategory)
	}
	if len(st.ByYear) != 2 || st.ByYear[0] != (model.Count{Label: "2024", Count: 1}) {
		t.Errorf("ByYear = %+v", st.ByYear)
	}
	if len(st.TopJournals) != 1 || st.TopJournals[0].Count != 2 {
		t.Errorf("TopJournals = %+v", st.TopJournals)
	}
}

func TestOverview(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, testRecord("a.pdf", 2024, "mice", "motor")); err != nil {
		t.Fatal(err)
	}

	rows, err := s.Overview(ctx, 10)
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Keywords != "mice, motor" {
		t.Errorf("Keywords = %q", rows[0].Keywords)
	}
	if rows[0].CategoryScores != "preclinical_models:1.000, cellular_studies:0.500" {
		t.Errorf("CategoryScores = %q", rows[0].CategoryScores)
	}
}
