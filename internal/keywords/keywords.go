// Package keywords builds a document's keyword list from model suggestions
// and statistical term ranking.
package keywords

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/papersift/internal/llm"
)

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// Options tunes keyword extraction
type Options struct {
	LLMEnabled       bool
	LLMCount         int
	StatisticalCount int
}

// Result holds both source lists and their merge
type Result struct {
	Keywords    []string // Merged: model keywords first, then statistical
	LLM         []string
	Statistical []string
}

// Extractor produces keyword lists
type Extractor struct {
	client *llm.Client
	opts   Options
	log    logrus.FieldLogger
}

// NewExtractor creates an extractor. client may be nil when model keywords are disabled.
func NewExtractor(client *llm.Client, opts Options, log logrus.FieldLogger) *Extractor {
	if opts.LLMCount <= 0 {
		opts.LLMCount = 10
	}
	if opts.StatisticalCount <= 0 {
		opts.StatisticalCount = 15
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Extractor{client: client, opts: opts, log: log}
}

// Extract ranks rawText statistically and, when enabled, asks the model for
// keywords of summaryText. A failed model call degrades to statistical keywords only.
func (e *Extractor) Extract(ctx context.Context, rawText, summaryText string) Result {
	res := Result{Statistical: Statistical(rawText, e.opts.StatisticalCount)}

	if e.opts.LLMEnabled && e.client != nil {
		source := summaryText
		if strings.TrimSpace(source) == "" {
			source = rawText
		}
		kws, err := e.suggest(ctx, source)
		if err != nil {
			e.log.WithError(err).Warn("model keyword extraction failed, using statistical keywords only")
		} else {
			res.LLM = kws
		}
	}

	res.Keywords = Merge(res.LLM, res.Statistical)
	return res
}

func (e *Extractor) suggest(ctx context.Context, text string) ([]string, error) {
	req := llm.GenerateRequest{
		Prompt:      BuildPrompt(text, e.opts.LLMCount),
		Temperature: 0.3,
	}
	resp, err := e.client.Complete(ctx, req, func(s string) bool {
		return len(ParseLLMKeywords(s, e.opts.LLMCount)) > 0
	})
	if err != nil {
		return nil, err
	}
	return ParseLLMKeywords(resp, e.opts.LLMCount), nil
}

// BuildPrompt asks for count comma-separated keywords
func BuildPrompt(text string, count int) string {
	return fmt.Sprintf(`Extract the %d most important keywords or key phrases from the following text.
Return only the keywords, separated by commas, without any additional text or explanation.
Focus on topics, concepts, methods and main themes.

Text:
%s`, count, truncate(text, 2000))
}

// ParseLLMKeywords splits a comma or newline separated model reply into at most
// limit normalized keywords longer than two characters.
func ParseLLMKeywords(resp string, limit int) []string {
	fields := strings.FieldsFunc(resp, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})

	var out []string
	seen := make(map[string]bool)
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if i := strings.Index(f, ":"); i >= 0 && i < 12 && strings.EqualFold(strings.TrimSpace(f[:i]), "keywords") {
			f = f[i+1:]
		}
		f = listMarker.ReplaceAllString(f, "")
		f = strings.Trim(f, `"'.`+"`")
		kw := Normalize(f)
		if len(kw) <= 2 || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Merge normalizes both lists, drops duplicates, and keeps model keywords first
func Merge(fromLLM, statistical []string) []string {
	out := make([]string, 0, len(fromLLM)+len(statistical))
	seen := make(map[string]bool)
	for _, list := range [][]string{fromLLM, statistical} {
		for _, kw := range list {
			kw = Normalize(kw)
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			out = append(out, kw)
		}
	}
	return out
}

// Normalize lowercases, trims, and collapses inner whitespace
func Normalize(kw string) string {
	return strings.Join(strings.Fields(strings.ToLower(kw)), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
