package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ppiankov/papersift/internal/model"
)

// PDFExtractor reads PDF files page by page with pdfcpu
type PDFExtractor struct {
	conf *pdfmodel.Configuration
}

// NewPDFExtractor creates a PDF extractor with the default pdfcpu configuration
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{conf: pdfmodel.NewDefaultConfiguration()}
}

// Name returns the extractor name
func (e *PDFExtractor) Name() string {
	return "pdf"
}

// CanHandle accepts .pdf files
func (e *PDFExtractor) CanHandle(path string) bool {
	return hasExt(path, ".pdf")
}

// Extract reads all pages of a PDF. Pages are separated by a blank line.
// Title and author come from the info dictionary when present; otherwise
// the first non-empty line stands in for the title.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*model.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	pdfCtx, err := api.ReadValidateAndOptimize(f, e.conf)
	if err != nil {
		return nil, &model.ExtractionError{Path: path, Err: fmt.Errorf("pdfcpu read: %w", err)}
	}

	var pages []string
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if text := extractPageText(pdfCtx, pageNr); text != "" {
			pages = append(pages, text)
		}
	}

	text := strings.Join(pages, "\n\n")
	meta := model.DocumentMetadata{
		Title:  strings.TrimSpace(pdfCtx.Title),
		Author: strings.TrimSpace(pdfCtx.Author),
		Pages:  pdfCtx.PageCount,
	}
	if meta.Title == "" {
		meta.Title = firstLine(text)
	}
	return newDocument(path, text, meta)
}

// extractPageText extracts text from a single page content stream
func extractPageText(ctx *pdfmodel.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromStream(data)
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)

// textFromStream collects the operands of text-showing operators.
// Positioning operators become spaces and line moves become newlines.
func textFromStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")), bytes.Equal(line, []byte("ET")):
			sb.WriteByte('\n')
		}
	}

	return Clean(sb.String())
}

// decodePDFString handles PDF literal string escapes
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			// Octal escape, up to three digits
			val := int(raw[i] - '0')
			for n := 1; n < 3 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return firstRunes(line, 200)
		}
	}
	return ""
}
