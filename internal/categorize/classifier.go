// Package categorize scores documents against a weighted category dictionary.
//
// Raw category scores are trigger-term occurrence weights divided by the
// document word count. Reported scores rescale raw scores by the document's
// maximum so the best category scores 1 and all others fall within [0,1].
package categorize

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ppiankov/papersift/internal/model"
)

// Result is the categorization of one document
type Result struct {
	Scores    map[string]float64 // Every declared category, normalized to [0,1]
	Raw       map[string]float64 // Length-normalized raw scores
	Primary   string             // Argmax under priority tie-break, or model.Uncategorized
	Secondary []string           // Categories at or above the threshold, best first
}

// Classifier scores text against an immutable dictionary
type Classifier struct {
	dict      *Dictionary
	threshold float64
	terms     map[string][]compiledTerm
}

type compiledTerm struct {
	tokens []string
	weight float64
}

// New builds a classifier from a validated copy of dict; later changes to
// dict do not affect the classifier.
func New(dict *Dictionary, threshold float64) (*Classifier, error) {
	if dict == nil {
		dict = DefaultDictionary()
	}
	if err := dict.Validate(); err != nil {
		return nil, err
	}
	dict = dict.clone()

	c := &Classifier{
		dict:      dict,
		threshold: threshold,
		terms:     make(map[string][]compiledTerm, len(dict.Priority)),
	}
	for _, name := range dict.Priority {
		for _, t := range dict.Terms[name] {
			c.terms[name] = append(c.terms[name], compiledTerm{tokens: tokenize(t.Term), weight: t.Weight})
		}
	}
	return c, nil
}

// Version returns the dictionary version in use
func (c *Classifier) Version() string {
	return c.dict.Version
}

// Categories returns the declared categories in priority order
func (c *Classifier) Categories() []string {
	return c.dict.Categories()
}

// Classify scores text and selects primary and secondary categories
func (c *Classifier) Classify(text string) Result {
	raw := c.RawScores(text)
	scores := Normalize(raw)
	return Result{
		Scores:    scores,
		Raw:       raw,
		Primary:   c.Primary(scores),
		Secondary: c.Secondary(scores),
	}
}

// RawScores returns Σ weight·occurrences / word count for every category
func (c *Classifier) RawScores(text string) map[string]float64 {
	raw := make(map[string]float64, len(c.dict.Priority))
	for _, name := range c.dict.Priority {
		raw[name] = 0
	}

	words := tokenize(text)
	if len(words) == 0 {
		return raw
	}

	index := make(map[string][]int)
	for i, w := range words {
		index[w] = append(index[w], i)
	}

	for _, name := range c.dict.Priority {
		var sum float64
		for _, t := range c.terms[name] {
			if n := countPhrase(words, index, t.tokens); n > 0 {
				sum += t.weight * float64(n)
			}
		}
		raw[name] = sum / float64(len(words))
	}
	return raw
}

// Normalize divides every score by the maximum. An all-zero input stays all zero.
func Normalize(raw map[string]float64) map[string]float64 {
	var peak float64
	for _, v := range raw {
		if v > peak {
			peak = v
		}
	}

	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		switch {
		case peak == 0 || v <= 0:
			out[k] = 0
		case v == peak:
			out[k] = 1
		default:
			out[k] = v / peak
		}
	}
	return out
}

// Primary returns the highest scoring category, preferring earlier priority on ties
func (c *Classifier) Primary(scores map[string]float64) string {
	best := model.Uncategorized
	var bestScore float64
	for _, name := range c.dict.Priority {
		if s := scores[name]; s > bestScore {
			best, bestScore = name, s
		}
	}
	return best
}

// Secondary lists non-zero categories scoring at least the threshold,
// ordered by score descending then priority.
func (c *Classifier) Secondary(scores map[string]float64) []string {
	var out []string
	for _, name := range c.dict.Priority {
		if s := scores[name]; s > 0 && s >= c.threshold {
			out = append(out, name)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return scores[out[i]] > scores[out[j]]
	})
	return out
}

// CombinedText joins the summary and keywords into the classifier input
func CombinedText(summary *model.StructuredSummary, keywords []string) string {
	var b strings.Builder
	if summary != nil {
		b.WriteString(summary.Text())
	}
	if len(keywords) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(keywords, ". "))
	}
	return b.String()
}

func countPhrase(words []string, index map[string][]int, phrase []string) int {
	if len(phrase) == 0 {
		return 0
	}
	count := 0
	for _, start := range index[phrase[0]] {
		if start+len(phrase) > len(words) {
			continue
		}
		match := true
		for k := 1; k < len(phrase); k++ {
			if words[start+k] != phrase[k] {
				match = false
				break
			}
		}
		if match {
			count++
		}
	}
	return count
}

// tokenize lowercases text and splits it on anything that is not a letter or digit
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
