package model

import "fmt"

// ExtractionError reports an unreadable or empty source document
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ModelResponseError reports LLM output that does not satisfy the summary schema
type ModelResponseError struct {
	Missing []string // Required fields absent from the response
	Err     error    // Underlying decode error, if any
}

func (e *ModelResponseError) Error() string {
	switch {
	case e.Err != nil && len(e.Missing) > 0:
		return fmt.Sprintf("malformed model response: %v (missing %v)", e.Err, e.Missing)
	case e.Err != nil:
		return fmt.Sprintf("malformed model response: %v", e.Err)
	default:
		return fmt.Sprintf("malformed model response: missing required fields %v", e.Missing)
	}
}

func (e *ModelResponseError) Unwrap() error { return e.Err }

// PersistenceError reports a storage failure for one document
type PersistenceError struct {
	SourceFile string
	Op         string
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.SourceFile == "" {
		return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.SourceFile, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing or invalid option detected at startup
type ConfigurationError struct {
	Option string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Option, e.Reason)
}
