package model

import "time"

// SearchQuery filters stored documents. Zero values disable a filter.
type SearchQuery struct {
	Text     string
	Category string
	YearFrom int
	YearTo   int
	Author   string
	Journal  string
	Limit    int
}

// DocumentRow is one search hit
type DocumentRow struct {
	ID              int64
	SourceFile      string
	Title           string
	Authors         string
	Year            *int
	Journal         string
	PrimaryCategory string
	KeyTakeaways    string
	WordCount       int
	ProcessedAt     time.Time
	Keywords        []string
}

// StoredDocument is a document row with all of its dependent rows
type StoredDocument struct {
	DocumentRow
	BaseFilename    string
	PDFTitle        string
	PDFAuthor       string
	PDFPages        int
	BibTeX          string
	DocumentType    string
	SampleSize      string
	Method          string
	PredictionModel bool
	ParseDegraded   bool
	CreatedAt       string
	UpdatedAt       string
	KeyFindings     KeyFindings
	CategoryScores  []CategoryScore
}

// CategoryScore is one category_scores row
type CategoryScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Stats summarizes the store contents
type Stats struct {
	TotalDocuments int
	TotalKeywords  int
	Degraded       int
	ByCategory     []Count
	ByYear         []Count
	TopJournals    []Count
}

// Count is a labelled tally used by Stats
type Count struct {
	Label string
	Count int
}
