package extract

import (
	"context"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/papersift/internal/model"
)

// TextExtractor reads plain-text and markdown sources
type TextExtractor struct{}

// NewTextExtractor creates a plain-text extractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Name returns the extractor name
func (e *TextExtractor) Name() string {
	return "text"
}

// CanHandle accepts .txt and .md files
func (e *TextExtractor) CanHandle(path string) bool {
	return hasExt(path, ".txt", ".md")
}

// Extract reads the file as UTF-8 text. The first non-empty line becomes the title.
func (e *TextExtractor) Extract(ctx context.Context, path string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ExtractionError{Path: path, Err: err}
	}
	if !utf8.Valid(data) {
		data = []byte(strings.ToValidUTF8(string(data), ""))
	}

	text := string(data)
	meta := model.DocumentMetadata{Pages: 1}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			meta.Title = firstRunes(line, 200)
			break
		}
	}
	return newDocument(path, text, meta)
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
