package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ppiankov/papersift/internal/model"
)

const (
	reportKeywords = 8
	tableKeywords  = 5
)

// ReportFilename returns the category report name for t
func ReportFilename(t time.Time) string {
	return "summary_report_" + t.Format("20060102_150405") + ".md"
}

// WriteCategoryReport renders records grouped by primary category into dir
// and returns the report path
func WriteCategoryReport(dir string, records []*model.OutputRecord, now time.Time) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("no records to report")
	}
	var buf bytes.Buffer
	RenderCategoryReport(&buf, records, now)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, ReportFilename(now))
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// RenderCategoryReport writes the markdown report. Categories appear in name
// order and documents keep their batch order within a category.
func RenderCategoryReport(w io.Writer, records []*model.OutputRecord, now time.Time) {
	byCategory := make(map[string][]*model.OutputRecord)
	for _, rec := range records {
		byCategory[rec.PrimaryCategory] = append(byCategory[rec.PrimaryCategory], rec)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	fmt.Fprintf(w, "# PDF Summary Report\n\n")
	fmt.Fprintf(w, "Generated on: %s\n\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Total PDFs processed: %d\n\n", len(records))

	for _, category := range categories {
		recs := byCategory[category]
		fmt.Fprintf(w, "## %s (%d PDFs)\n\n", CategoryLabel(category), len(recs))
		for _, rec := range recs {
			renderEntry(w, rec)
		}
	}
}

func renderEntry(w io.Writer, rec *model.OutputRecord) {
	s := rec.Summary

	heading := rec.Metadata.Title
	if strings.TrimSpace(heading) == "" {
		heading = rec.Metadata.Filename
	}
	fmt.Fprintf(w, "### %s\n\n", heading)
	fmt.Fprintf(w, "**Keywords:** %s\n\n", strings.Join(head(rec.Keywords, reportKeywords), ", "))

	fmt.Fprintf(w, "**Title:** %s\n\n", s.Title)
	fmt.Fprintf(w, "**Author(s):** %s\n\n", authorList(s.Authors))
	fmt.Fprintf(w, "**Year:** %s\n\n", yearText(s.Year))
	fmt.Fprintf(w, "**Journal:** %s\n\n", s.Journal)
	fmt.Fprintf(w, "**BibTeX Citation:**\n```\n%s\n```\n\n", s.BibTeX)
	fmt.Fprintf(w, "**Type:** %s\n\n", s.DocumentType)
	fmt.Fprintf(w, "**Method:** %s\n\n", s.Method)
	if len(s.KeyFindings) > 0 {
		fmt.Fprintf(w, "**Key Findings:**\n")
		for _, f := range s.KeyFindings {
			fmt.Fprintf(w, "- %s: %s\n", f.Name, f.Description)
		}
		fmt.Fprintf(w, "\n")
	}
	fmt.Fprintf(w, "**Key Takeaways:** %s\n\n", s.KeyTakeaways)
	if rec.ParseDegraded {
		fmt.Fprintf(w, "_Summary is incomplete: the model never returned a valid response._\n\n")
	}
	fmt.Fprintf(w, "---\n\n")
}

// RenderResultsTable prints one row per record followed by the category distribution
func RenderResultsTable(w io.Writer, records []*model.OutputRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No results to display")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tPRIMARY CATEGORY\tWORDS\tTOP KEYWORDS")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			rec.Metadata.Filename,
			rec.PrimaryCategory,
			rec.WordCount,
			strings.Join(head(rec.Keywords, tableKeywords), ", "),
		)
	}
	_ = tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Category distribution:")
	for _, c := range CategoryDistribution(records) {
		fmt.Fprintf(w, "  %s: %d\n", c.Label, c.Count)
	}
}

// CategoryDistribution counts records per primary category, most frequent first
func CategoryDistribution(records []*model.OutputRecord) []model.Count {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.PrimaryCategory]++
	}
	out := make([]model.Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, model.Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// CategoryLabel turns a category identifier into a heading, e.g. "Clinical Trial"
func CategoryLabel(category string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(category, "_", " "))
}

func authorList(authors []string) string {
	if len(authors) == 0 {
		return model.Unknown
	}
	return strings.Join(authors, ", ")
}

func yearText(year *int) string {
	if year == nil {
		return model.Unknown
	}
	return strconv.Itoa(*year)
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
