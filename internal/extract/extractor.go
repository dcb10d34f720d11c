package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/papersift/internal/model"
)

// Extractor turns one source file into a Document
type Extractor interface {
	// Name returns the extractor name
	Name() string

	// CanHandle checks if this extractor reads the given file
	CanHandle(path string) bool

	// Extract reads the file and returns its cleaned text and metadata
	Extract(ctx context.Context, path string) (*model.Document, error)
}

// Registry manages source extractors
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a registry with the built-in PDF and plain-text extractors
func NewRegistry() *Registry {
	registry := &Registry{
		extractors: make([]Extractor, 0),
	}

	registry.Register(NewPDFExtractor())
	registry.Register(NewTextExtractor())

	return registry
}

// Register registers a new extractor
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Find returns the first extractor that handles path, or nil
func (r *Registry) Find(path string) Extractor {
	for _, e := range r.extractors {
		if e.CanHandle(path) {
			return e
		}
	}
	return nil
}

// Supported reports whether any registered extractor handles path
func (r *Registry) Supported(path string) bool {
	return r.Find(path) != nil
}

// Extract reads path with the matching extractor
func (r *Registry) Extract(ctx context.Context, path string) (*model.Document, error) {
	e := r.Find(path)
	if e == nil {
		return nil, &model.ExtractionError{
			Path: path,
			Err:  fmt.Errorf("unsupported file type %q", filepath.Ext(path)),
		}
	}
	return e.Extract(ctx, path)
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// newDocument builds a Document from cleaned text, rejecting empty text
func newDocument(path, text string, meta model.DocumentMetadata) (*model.Document, error) {
	text = Clean(text)
	if text == "" {
		return nil, &model.ExtractionError{Path: path, Err: fmt.Errorf("no text content found")}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	meta.Filename = filepath.Base(path)
	meta.Filepath = abs

	return &model.Document{
		SourcePath: path,
		Metadata:   meta,
		RawText:    text,
		WordCount:  len(strings.Fields(text)),
	}, nil
}
