package model

import "path/filepath"

// Document is one extracted source file. It is never modified after extraction.
type Document struct {
	SourcePath string           // Path the document was read from
	Metadata   DocumentMetadata // Info-dictionary and file metadata
	RawText    string           // Cleaned extracted text
	WordCount  int              // Whitespace-separated token count of RawText
}

// DocumentMetadata is the file-level metadata written into the full artifact
type DocumentMetadata struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
	Filepath string `json:"filepath,omitempty"`
}

// SourceFile returns the key that identifies the document in storage
func (d *Document) SourceFile() string {
	if d.Metadata.Filename != "" {
		return d.Metadata.Filename
	}
	return filepath.Base(d.SourcePath)
}

// Stem returns the source filename without its extension
func (d *Document) Stem() string {
	name := d.SourceFile()
	return name[:len(name)-len(filepath.Ext(name))]
}
