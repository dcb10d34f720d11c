package model

import "time"

// Uncategorized is the primary category of a document with no category evidence
const Uncategorized = "uncategorized"

// OutputRecord is the persisted unit of one processing run. Its JSON form is
// the full summary artifact; it is never mutated after assembly.
type OutputRecord struct {
	SourceFile      string             `json:"source_file"`
	BaseFilename    string             `json:"base_filename"`
	Metadata        DocumentMetadata   `json:"metadata"`
	Summary         StructuredSummary  `json:"summary"`
	Keywords        []string           `json:"keywords"`
	Categories      map[string]float64 `json:"categories"`
	PrimaryCategory string             `json:"primary_category"`
	WordCount       int                `json:"word_count"`
	ProcessedAt     time.Time          `json:"processed_at"`
	ParseDegraded   bool               `json:"parse_degraded"`
}

// SimpleRecord is the projection of an OutputRecord consumed by report generation
type SimpleRecord struct {
	Title           string      `json:"Title"`
	Authors         []string    `json:"Author(s)"`
	BibTeX          string      `json:"BibTeX Citation"`
	KeyFindings     KeyFindings `json:"Key Findings"`
	Categories      []string    `json:"Categories"`
	PrimaryCategory string      `json:"Primary Category"`
}
