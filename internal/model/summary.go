package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Unknown is the placeholder used for summary fields the model could not determine
const Unknown = "unknown"

// StructuredSummary is the fixed-schema summary produced for a document.
// Every field is always serialized, using Unknown or an empty value as placeholder.
type StructuredSummary struct {
	Title           string      `json:"Title"`
	Authors         []string    `json:"Author(s)"`
	Year            *int        `json:"Year Published"`
	Journal         string      `json:"Journal"`
	BibTeX          string      `json:"BibTeX Citation"`
	DocumentType    string      `json:"Type"`
	Categories      []string    `json:"Categories"`
	SampleSize      string      `json:"Sample Size"`
	Method          string      `json:"Method"`
	KeyFindings     KeyFindings `json:"Key Findings"`
	PredictionModel bool        `json:"Prediction Model"`
	KeyTakeaways    string      `json:"Key Takeaways"`

	// ParseDegraded marks a summary salvaged after the model never returned valid output
	ParseDegraded bool `json:"-"`
}

// Normalize fills placeholders so that no field is left empty or nil
func (s *StructuredSummary) Normalize() {
	if strings.TrimSpace(s.Title) == "" {
		s.Title = Unknown
	}
	if s.Authors == nil {
		s.Authors = []string{}
	}
	if strings.TrimSpace(s.Journal) == "" {
		s.Journal = Unknown
	}
	if strings.TrimSpace(s.DocumentType) == "" {
		s.DocumentType = Unknown
	}
	if s.Categories == nil {
		s.Categories = []string{}
	}
	if strings.TrimSpace(s.SampleSize) == "" {
		s.SampleSize = Unknown
	}
	if strings.TrimSpace(s.Method) == "" {
		s.Method = Unknown
	}
	if s.KeyFindings == nil {
		s.KeyFindings = KeyFindings{}
	}
}

// Text flattens the summary into prose used for keyword and category analysis
func (s *StructuredSummary) Text() string {
	var sb strings.Builder
	for _, part := range []string{s.Title, s.DocumentType, s.Method, s.SampleSize, s.KeyTakeaways} {
		if part == "" || part == Unknown {
			continue
		}
		sb.WriteString(part)
		sb.WriteString("\n")
	}
	for _, f := range s.KeyFindings {
		sb.WriteString(f.Name)
		sb.WriteString(": ")
		sb.WriteString(f.Description)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// Finding is one named entry of the key findings
type Finding struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// KeyFindings is an ordered name→description mapping. It serializes as a
// JSON object whose keys keep the order the model produced them in.
type KeyFindings []Finding

// MarshalJSON writes the findings as a JSON object in slice order
func (k KeyFindings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range k {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		desc, err := json.Marshal(f.Description)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(desc)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts an object (order preserved), an array of strings or
// {name, description} objects, or a single string.
func (k *KeyFindings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*k = nil
		return nil
	}

	switch data[0] {
	case '{':
		findings, err := decodeFindingObject(data)
		if err != nil {
			return err
		}
		*k = findings
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		findings := make(KeyFindings, 0, len(items))
		for i, item := range items {
			var named Finding
			if err := json.Unmarshal(item, &named); err == nil && named.Name != "" {
				findings = findings.with(named.Name, named.Description)
				continue
			}
			findings = findings.with(fmt.Sprintf("Finding %d", i+1), rawText(item))
		}
		*k = findings
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = KeyFindings{{Name: "Finding 1", Description: s}}
	default:
		return fmt.Errorf("key findings: unexpected JSON value %q", truncate(string(data), 40))
	}
	return nil
}

// Get returns the description for name
func (k KeyFindings) Get(name string) (string, bool) {
	for _, f := range k {
		if f.Name == name {
			return f.Description, true
		}
	}
	return "", false
}

// with adds or replaces a finding, keeping the position of the first occurrence
func (k KeyFindings) with(name, description string) KeyFindings {
	for i := range k {
		if k[i].Name == name {
			k[i].Description = description
			return k
		}
	}
	return append(k, Finding{Name: name, Description: description})
}

func decodeFindingObject(data []byte) (KeyFindings, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil { // opening brace
		return nil, err
	}

	findings := KeyFindings{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("key findings: non-string key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		findings = findings.with(name, rawText(raw))
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return nil, err
	}
	return findings, nil
}

// rawText renders a JSON value as plain text: strings are unquoted, anything else compacted
func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
