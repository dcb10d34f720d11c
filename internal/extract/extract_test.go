package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ppiankov/papersift/internal/model"
)

func TestClean(t *testing.T) {
	in := "  Title\tof   paper \r\n\r\n\r\n\nFirst\x00 line\x07\nsecond line  \n\n  \nNext paragraph"
	want := "Title of paper\n\nFirst line\nsecond line\n\nNext paragraph"
	if got := Clean(in); got != want {
		t.Errorf("Clean = %q, want %q", got, want)
	}
	if got := Clean(" \n\t\n "); got != "" {
		t.Errorf("whitespace-only input should clean to empty, got %q", got)
	}
}

func TestTextFromStream(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n72 720 Td\n(Hello \\(big\\) world) Tj\nT*\n[(Sec) -120 (ond)] TJ\n(line\\040three) '\nET")
	got := textFromStream(stream)
	want := "Hello (big) world\nSecond\nline three"
	if got != want {
		t.Errorf("textFromStream = %q, want %q", got, want)
	}
}

func TestDecodePDFString(t *testing.T) {
	tests := map[string]string{
		`plain`:        "plain",
		`a\nb`:         "a\nb",
		`\(x\)`:        "(x)",
		`back\\slash`:  `back\slash`,
		`oct\101\1012`: "octAA2",
		`trailing\`:    `trailing\`,
		`unknown\q`:    "unknownq",
	}
	for in, want := range tests {
		if got := decodePDFString([]byte(in)); got != want {
			t.Errorf("decodePDFString(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTextExtractor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	content := "# Organoid screening\n\nWe grew   organoids.\n\n\nThey responded."
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := NewRegistry().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if doc.Metadata.Title != "Organoid screening" {
		t.Errorf("Title = %q", doc.Metadata.Title)
	}
	if doc.Metadata.Filename != "notes.md" || !filepath.IsAbs(doc.Metadata.Filepath) {
		t.Errorf("file metadata = %+v", doc.Metadata)
	}
	if doc.RawText != "# Organoid screening\n\nWe grew organoids.\n\nThey responded." {
		t.Errorf("RawText = %q", doc.RawText)
	}
	if doc.WordCount != 8 {
		t.Errorf("WordCount = %d, want 8", doc.WordCount)
	}
	if doc.SourceFile() != "notes.md" || doc.Stem() != "notes" {
		t.Errorf("SourceFile/Stem = %q/%q", doc.SourceFile(), doc.Stem())
	}
}

func TestTextExtractor_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("  \n\n "), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := NewTextExtractor().Extract(context.Background(), path)
	var extractErr *model.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()
	if r.Supported("paper.docx") {
		t.Error("docx should not be supported")
	}
	if !r.Supported("Paper.PDF") || !r.Supported("a.txt") {
		t.Error("pdf and txt should be supported")
	}
	_, err := r.Extract(context.Background(), "paper.docx")
	var extractErr *model.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestPDFExtractor_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\nthis is not a pdf"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := NewPDFExtractor().Extract(context.Background(), path)
	var extractErr *model.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extractErr.Path != path {
		t.Errorf("Path = %q", extractErr.Path)
	}
}

func TestPDFExtractor_Missing(t *testing.T) {
	_, err := NewPDFExtractor().Extract(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	var extractErr *model.ExtractionError
	if !errors.As(err, &extractErr) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
}

func TestPDFExtractor_Simple(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.pdf")
	if err := os.WriteFile(path, buildTextPDF("Alpha-synuclein in transgenic mice"), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := NewPDFExtractor().Extract(context.Background(), path)
	if err != nil {
		// Minimal hand-built PDFs may carry no extractable text for some pdfcpu versions
		var extractErr *model.ExtractionError
		if !errors.As(err, &extractErr) {
			t.Fatalf("unexpected error type: %v", err)
		}
		t.Logf("no text extracted: %v", err)
		return
	}
	if doc.Metadata.Pages != 1 {
		t.Errorf("Pages = %d, want 1", doc.Metadata.Pages)
	}
	if !strings.Contains(doc.RawText, "transgenic mice") {
		t.Errorf("RawText = %q", doc.RawText)
	}
	if doc.Metadata.Title == "" {
		t.Error("title should fall back to the first line")
	}
}

// buildTextPDF writes a one-page PDF showing text in Helvetica
func buildTextPDF(text string) []byte {
	escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(text)
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"

	var b strings.Builder
	offsets := make([]int, 6)
	b.WriteString("%PDF-1.4\n")

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")
	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Length " + strconv.Itoa(len(stream)) + " >>\nstream\n" + stream + "\nendstream\nendobj\n")
	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xref := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		b.WriteString(padOffset(offsets[i]) + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n" + strconv.Itoa(xref) + "\n%%EOF\n")
	return []byte(b.String())
}

func padOffset(n int) string {
	s := strconv.Itoa(n)
	return strings.Repeat("0", 10-len(s)) + s
}
