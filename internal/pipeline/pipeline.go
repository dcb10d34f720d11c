// Package pipeline orchestrates per-document processing: extract, chunk,
// summarize, extract keywords, categorize, assemble, write artifacts and
// optionally persist. Batches run one document at a time.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/papersift/internal/categorize"
	"github.com/ppiankov/papersift/internal/chunk"
	"github.com/ppiankov/papersift/internal/extract"
	"github.com/ppiankov/papersift/internal/keywords"
	"github.com/ppiankov/papersift/internal/llm"
	"github.com/ppiankov/papersift/internal/model"
	"github.com/ppiankov/papersift/internal/record"
	"github.com/ppiankov/papersift/internal/store"
	"github.com/ppiankov/papersift/internal/summarize"
)

// Store persists assembled records
type Store interface {
	Upsert(ctx context.Context, rec *model.OutputRecord) (store.UpsertResult, error)
}

// Pipeline orchestrates the complete processing of one document
type Pipeline struct {
	extractors  *extract.Registry
	chunkOpts   chunk.Options
	summarizer  *summarize.Generator
	keywords    *keywords.Extractor
	classifier  *categorize.Classifier
	writer      *Writer
	fetcher     *Fetcher // Optional, nil rejects remote sources
	downloadDir string
	store       Store // Optional, nil skips persistence
	log         logrus.FieldLogger
	now         func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithStore persists every assembled record
func WithStore(s Store) Option {
	return func(p *Pipeline) {
		p.store = s
	}
}

// WithFetcher enables http(s) sources, downloaded into dir before extraction
func WithFetcher(f *Fetcher, dir string) Option {
	return func(p *Pipeline) {
		p.fetcher = f
		p.downloadDir = dir
	}
}

// WithExtractors replaces the built-in extractor registry
func WithExtractors(r *extract.Registry) Option {
	return func(p *Pipeline) {
		p.extractors = r
	}
}

// WithClock overrides the processing timestamp source
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline creates a pipeline over an LLM client and a classifier.
// Keyword elicitation follows cfg.Keywords.LLMEnabled.
func NewPipeline(cfg *model.Config, client *llm.Client, classifier *categorize.Classifier, log logrus.FieldLogger, opts ...Option) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}

	p := &Pipeline{
		extractors: extract.NewRegistry(),
		chunkOpts: chunk.Options{
			MaxSize:  cfg.Chunk.MaxSize,
			Lookback: cfg.Chunk.Lookback,
		},
		summarizer: summarize.NewGenerator(client, summarize.Options{
			MaxRetries:  cfg.Summary.MaxRetries,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}, log),
		keywords: keywords.NewExtractor(client, keywords.Options{
			LLMEnabled:       cfg.Keywords.LLMEnabled,
			LLMCount:         cfg.Keywords.LLMCount,
			StatisticalCount: cfg.Keywords.StatisticalCount,
		}, log),
		classifier: classifier,
		writer:     NewWriter(cfg.Output.Dir),
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Writer returns the artifact writer
func (p *Pipeline) Writer() *Writer {
	return p.writer
}

// Result is the outcome of processing one document
type Result struct {
	Source     string // Path or URL as given
	Path       string // Local file that was extracted
	Record     *model.OutputRecord
	Artifacts  Artifacts
	Chunks     int
	LLMKeys    int // Keywords contributed by the model
	Stored     bool
	DocumentID int64
	Replaced   bool
}

// ProcessFile runs the full pipeline for one source. Artifacts are written
// before persistence, so a PersistenceError is returned together with a
// non-nil Result.
func (p *Pipeline) ProcessFile(ctx context.Context, source string) (*Result, error) {
	log := p.log.WithField("file", source)
	res := &Result{Source: source, Path: source}

	// 1. Resolve remote sources
	if IsRemote(source) {
		if p.fetcher == nil {
			return nil, &model.ExtractionError{Path: source, Err: fmt.Errorf("remote sources are not enabled")}
		}
		local, err := p.fetcher.Download(ctx, source, p.downloadDir)
		if err != nil {
			return nil, &model.ExtractionError{Path: source, Err: fmt.Errorf("download: %w", err)}
		}
		log.WithField("path", local).Debug("Downloaded remote source")
		res.Path = local
	}

	// 2. Extract text
	doc, err := p.extractors.Extract(ctx, res.Path)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"pages": doc.Metadata.Pages,
		"words": doc.WordCount,
	}).Debug("Extracted text")

	// 3. Chunk
	chunks := chunk.Texts(chunk.Split(doc.RawText, p.chunkOpts))
	res.Chunks = len(chunks)

	// 4. Summarize
	summary, err := p.summarizer.Generate(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", filepath.Base(res.Path), err)
	}
	if summary.ParseDegraded {
		log.Warn("Summary degraded after exhausting parse retries")
	}

	// 5. Keywords
	kw := p.keywords.Extract(ctx, doc.RawText, summary.Text())
	res.LLMKeys = len(kw.LLM)

	// 6. Categorize on summary and keywords
	cat := p.classifier.Classify(categorize.CombinedText(summary, kw.Keywords))

	// 7. Assemble
	rec := record.Assemble(doc, summary, kw.Keywords, cat, p.now())
	res.Record = rec

	// 8. Write artifacts
	artifacts, err := p.writer.Write(rec)
	if err != nil {
		return nil, err
	}
	res.Artifacts = artifacts

	log.WithFields(logrus.Fields{
		"base":     rec.BaseFilename,
		"primary":  rec.PrimaryCategory,
		"keywords": len(rec.Keywords),
		"chunks":   res.Chunks,
	}).Info("Processed document")

	// 9. Persist
	if p.store != nil {
		up, err := p.store.Upsert(ctx, rec)
		if err != nil {
			return res, err
		}
		res.Stored = true
		res.DocumentID = up.ID
		res.Replaced = up.Replaced
	}

	return res, nil
}
