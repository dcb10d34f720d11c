package summarize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ppiankov/papersift/internal/model"
)

// Summary field names as they appear in model output and artifacts
const (
	FieldTitle           = "Title"
	FieldAuthors         = "Author(s)"
	FieldYear            = "Year Published"
	FieldJournal         = "Journal"
	FieldBibTeX          = "BibTeX Citation"
	FieldType            = "Type"
	FieldCategories      = "Categories"
	FieldSampleSize      = "Sample Size"
	FieldMethod          = "Method"
	FieldKeyFindings     = "Key Findings"
	FieldPredictionModel = "Prediction Model"
	FieldKeyTakeaways    = "Key Takeaways"
)

// Fields lists every summary field in artifact order
var Fields = []string{
	FieldTitle, FieldAuthors, FieldYear, FieldJournal, FieldBibTeX, FieldType,
	FieldCategories, FieldSampleSize, FieldMethod, FieldKeyFindings,
	FieldPredictionModel, FieldKeyTakeaways,
}

// RequiredFields must be present in a model response for it to be accepted
var RequiredFields = []string{
	FieldTitle, FieldAuthors, FieldYear, FieldType, FieldMethod, FieldKeyFindings, FieldKeyTakeaways,
}

// aliases maps folded key spellings to canonical field names
var aliases = map[string]string{
	"authors":         FieldAuthors,
	"author":          FieldAuthors,
	"year":            FieldYear,
	"publicationyear": FieldYear,
	"bibtex":          FieldBibTeX,
	"citation":        FieldBibTeX,
	"documenttype":    FieldType,
	"studytype":       FieldType,
	"findings":        FieldKeyFindings,
	"takeaways":       FieldKeyTakeaways,
	"keytakeaway":     FieldKeyTakeaways,
}

var yearPattern = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)

// ParseSummary decodes a model response into a StructuredSummary. Code fences
// and prose around the outermost JSON object are ignored, key spelling is
// matched loosely, and unknown keys are dropped. A response that is not a JSON
// object or lacks a required field yields a *model.ModelResponseError.
func ParseSummary(text string) (*model.StructuredSummary, error) {
	obj, err := extractObject(text)
	if err != nil {
		return nil, &model.ModelResponseError{Err: err}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(obj, &raw); err != nil {
		return nil, &model.ModelResponseError{Err: err}
	}

	fields := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		if name := canonicalField(k); name != "" {
			if _, dup := fields[name]; !dup {
				fields[name] = v
			}
		}
	}

	var missing []string
	for _, name := range RequiredFields {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &model.ModelResponseError{Missing: missing}
	}

	s := &model.StructuredSummary{
		Title:           asString(fields[FieldTitle]),
		Authors:         asAuthors(fields[FieldAuthors]),
		Year:            asYear(fields[FieldYear]),
		Journal:         asString(fields[FieldJournal]),
		BibTeX:          asString(fields[FieldBibTeX]),
		DocumentType:    asString(fields[FieldType]),
		Categories:      asList(fields[FieldCategories]),
		SampleSize:      asString(fields[FieldSampleSize]),
		Method:          asString(fields[FieldMethod]),
		PredictionModel: asBool(fields[FieldPredictionModel]),
		KeyTakeaways:    asString(fields[FieldKeyTakeaways]),
	}
	if kf := fields[FieldKeyFindings]; len(kf) > 0 {
		if err := json.Unmarshal(kf, &s.KeyFindings); err != nil {
			return nil, &model.ModelResponseError{Err: fmt.Errorf("key findings: %w", err)}
		}
	}
	s.Normalize()
	return s, nil
}

// extractObject strips code fences and returns the text between the first '{' and the last '}'
func extractObject(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in response")
	}
	return []byte(text[start : end+1]), nil
}

// canonicalField maps a response key to its field name, or "" if unknown
func canonicalField(key string) string {
	folded := fold(key)
	for _, name := range Fields {
		if fold(name) == folded {
			return name
		}
	}
	return aliases[folded]
}

func fold(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func asString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func asList(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanList(list)
	}
	s := asString(raw)
	if s == "" {
		return nil
	}
	return cleanList(strings.Split(s, ","))
}

// asAuthors accepts an array or a string separated by semicolons, " and ",
// or commas between full names
func asAuthors(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return dropPlaceholders(cleanList(list))
	}

	s := asString(raw)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, " and ", ";")
	s = strings.ReplaceAll(s, " & ", ";")
	parts := strings.Split(s, ";")
	if len(parts) == 1 && strings.Contains(s, ",") {
		commaParts := strings.Split(s, ",")
		fullNames := true
		for _, p := range commaParts {
			if len(strings.Fields(p)) < 2 {
				fullNames = false
				break
			}
		}
		if fullNames {
			parts = commaParts
		}
	}
	return dropPlaceholders(cleanList(parts))
}

func asYear(raw json.RawMessage) *int {
	raw = bytes.TrimSpace(raw)
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil && v > 0 {
			y := int(v)
			return &y
		}
	}
	if m := yearPattern.FindString(asString(raw)); m != "" {
		y, _ := strconv.Atoi(m)
		return &y
	}
	return nil
}

func asBool(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	switch strings.ToLower(asString(raw)) {
	case "yes", "y", "true":
		return true
	}
	return false
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}

func dropPlaceholders(items []string) []string {
	out := items[:0]
	for _, it := range items {
		switch strings.ToLower(it) {
		case model.Unknown, "not specified", "n/a", "none":
			continue
		}
		out = append(out, it)
	}
	return out
}
