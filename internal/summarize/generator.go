// Package summarize turns chunked document text into one StructuredSummary.
//
// Chunks are summarized incrementally: the first chunk yields a draft and each
// later chunk is submitted together with the draft, which the model extends
// and corrects. A response that fails to parse is retried with a corrective
// prompt up to a fixed bound; after that a degraded summary is salvaged from
// the partial text instead of failing the document. Transport errors are
// returned unchanged.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/papersift/internal/llm"
	"github.com/ppiankov/papersift/internal/model"
)

// Generator produces structured summaries through an LLM client
type Generator struct {
	client      *llm.Client
	maxRetries  int
	maxTokens   int
	temperature float64
	log         logrus.FieldLogger
}

// Options tunes a Generator
type Options struct {
	MaxRetries  int // Corrective retries per chunk after the first attempt
	MaxTokens   int
	Temperature float64
}

// NewGenerator creates a summary generator
func NewGenerator(client *llm.Client, opts Options, log logrus.FieldLogger) *Generator {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{
		client:      client,
		maxRetries:  opts.MaxRetries,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		log:         log,
	}
}

// Generate summarizes chunks in order and returns exactly one summary.
// The result has ParseDegraded set if any chunk exhausted its retries.
func (g *Generator) Generate(ctx context.Context, chunks []string) (*model.StructuredSummary, error) {
	var parts []string
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return nil, errors.New("no text to summarize")
	}

	var draft *model.StructuredSummary
	degraded := false

	for i, part := range parts {
		var prompt string
		if draft == nil {
			prompt = initialPrompt(part, i+1, len(parts))
		} else {
			prompt = refinePrompt(draft, part, i+1, len(parts))
		}

		next, ok, err := g.attempt(ctx, prompt, draft)
		if err != nil {
			return nil, fmt.Errorf("summarize part %d/%d: %w", i+1, len(parts), err)
		}
		if !ok {
			degraded = true
			g.log.WithField("part", i+1).Warn("model output never parsed, keeping a degraded summary")
		}
		draft = next
	}

	draft.ParseDegraded = degraded
	if !known(draft.BibTeX) {
		draft.BibTeX = BibTeX(draft)
	}
	draft.Normalize()
	return draft, nil
}

// attempt runs one chunk through the model with bounded corrective retries.
// ok is false when the returned summary was salvaged.
func (g *Generator) attempt(ctx context.Context, prompt string, draft *model.StructuredSummary) (*model.StructuredSummary, bool, error) {
	current := prompt
	var last string

	for try := 0; try <= g.maxRetries; try++ {
		req := llm.GenerateRequest{
			Prompt:      current,
			System:      systemPrompt,
			MaxTokens:   g.maxTokens,
			Temperature: g.temperature,
			JSON:        true,
		}
		resp, err := g.client.Complete(ctx, req, func(s string) bool {
			_, perr := ParseSummary(s)
			return perr == nil
		})
		if err != nil {
			return nil, false, err
		}

		summary, perr := ParseSummary(resp)
		if perr == nil {
			return summary, true, nil
		}

		last = resp
		g.log.WithFields(logrus.Fields{
			"attempt": try + 1,
			"of":      g.maxRetries + 1,
		}).WithError(perr).Debug("rejected model response")
		current = correctivePrompt(prompt, resp, perr)
	}

	return salvage(last, draft), false, nil
}
