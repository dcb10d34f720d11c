// Package record assembles the persisted output of one processing run.
//
// The full record carries everything the pipeline derived for a document.
// The simple record is a projection of the full record and nothing else, so
// it can always be re-derived from a full artifact on disk.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/papersift/internal/categorize"
	"github.com/ppiankov/papersift/internal/model"
	"github.com/ppiankov/papersift/internal/naming"
)

// Assemble combines the results of one run into an OutputRecord.
// The summary is copied; the caller's value is left untouched.
func Assemble(doc *model.Document, summary *model.StructuredSummary, keywords []string, cat categorize.Result, processedAt time.Time) *model.OutputRecord {
	s := *summary
	s.Authors = append([]string{}, summary.Authors...)
	s.KeyFindings = append(model.KeyFindings{}, summary.KeyFindings...)
	s.Categories = append([]string{}, cat.Secondary...)
	s.Normalize()

	scores := make(map[string]float64, len(cat.Scores))
	for name, v := range cat.Scores {
		scores[name] = v
	}

	primary := cat.Primary
	if primary == "" {
		primary = model.Uncategorized
	}

	return &model.OutputRecord{
		SourceFile:      doc.SourceFile(),
		BaseFilename:    naming.BaseFilename(s.Authors, s.Year, doc.Stem()),
		Metadata:        doc.Metadata,
		Summary:         s,
		Keywords:        append([]string{}, keywords...),
		Categories:      scores,
		PrimaryCategory: primary,
		WordCount:       doc.WordCount,
		ProcessedAt:     processedAt.UTC(),
		ParseDegraded:   summary.ParseDegraded,
	}
}

// Simplify projects a full record onto the fields used by report generation
func Simplify(full *model.OutputRecord) *model.SimpleRecord {
	return &model.SimpleRecord{
		Title:           full.Summary.Title,
		Authors:         nonNil(full.Summary.Authors),
		BibTeX:          full.Summary.BibTeX,
		KeyFindings:     append(model.KeyFindings{}, full.Summary.KeyFindings...),
		Categories:      nonNil(full.Summary.Categories),
		PrimaryCategory: full.PrimaryCategory,
	}
}

// MarshalFull encodes a full record as indented JSON
func MarshalFull(r *model.OutputRecord) ([]byte, error) {
	return marshal(r)
}

// MarshalSimple encodes a simple record as indented JSON
func MarshalSimple(r *model.SimpleRecord) ([]byte, error) {
	return marshal(r)
}

// ParseFull decodes a full artifact
func ParseFull(data []byte) (*model.OutputRecord, error) {
	var r model.OutputRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode summary record: %w", err)
	}
	if r.SourceFile == "" {
		r.SourceFile = r.Metadata.Filename
	}
	if r.SourceFile == "" {
		return nil, fmt.Errorf("decode summary record: no source file")
	}
	r.Summary.Normalize()
	if r.Keywords == nil {
		r.Keywords = []string{}
	}
	if r.Categories == nil {
		r.Categories = map[string]float64{}
	}
	if r.PrimaryCategory == "" {
		r.PrimaryCategory = model.Uncategorized
	}
	return &r, nil
}

// SimplifyArtifact derives the simple artifact bytes from full artifact bytes
func SimplifyArtifact(full []byte) ([]byte, error) {
	r, err := ParseFull(full)
	if err != nil {
		return nil, err
	}
	return MarshalSimple(Simplify(r))
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}
