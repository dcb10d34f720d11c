package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/papersift/internal/cache"
	"github.com/ppiankov/papersift/internal/llm"
)

// scriptedProvider returns its responses in order, repeating the last one
type scriptedProvider struct {
	responses []string
	err       error
	prompts   []string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	p.prompts = append(p.prompts, req.Prompt)
	if p.err != nil {
		return nil, p.err
	}
	i := len(p.prompts) - 1
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	return &llm.GenerateResponse{Text: p.responses[i], Model: "scripted"}, nil
}

func (p *scriptedProvider) IsAvailable(ctx context.Context) bool { return true }

func newGenerator(p llm.Provider, retries int) *Generator {
	return NewGenerator(llm.NewClient(p, llm.Config{Model: "m"}), Options{MaxRetries: retries}, nil)
}

func TestGenerate_SingleChunk(t *testing.T) {
	p := &scriptedProvider{responses: []string{validResponse}}
	s, err := newGenerator(p, 2).Generate(context.Background(), []string{"document text"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(p.prompts) != 1 {
		t.Errorf("expected 1 call, got %d", len(p.prompts))
	}
	if s.ParseDegraded {
		t.Error("summary should not be degraded")
	}
	if !strings.HasPrefix(s.BibTeX, "@article{Morais2024,") {
		t.Errorf("expected synthesized citation, got %q", s.BibTeX)
	}
}

func TestGenerate_IncrementalRefinement(t *testing.T) {
	second := strings.Replace(validResponse, `"Aggregation": "Aggregates doubled"`, `"Aggregation": "Aggregates tripled"`, 1)
	p := &scriptedProvider{responses: []string{validResponse, second}}

	s, err := newGenerator(p, 0).Generate(context.Background(), []string{"part one", "   ", "part two"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(p.prompts) != 2 {
		t.Fatalf("blank chunks must be skipped, got %d calls", len(p.prompts))
	}
	if !strings.Contains(p.prompts[1], "Current draft:") || !strings.Contains(p.prompts[1], "Aggregates doubled") {
		t.Error("second prompt must carry the running draft")
	}
	if !strings.Contains(p.prompts[1], "part 2 of 2") {
		t.Error("second prompt must name its part")
	}
	if d, _ := s.KeyFindings.Get("Aggregation"); d != "Aggregates tripled" {
		t.Errorf("final summary should reflect the refined draft, got %q", d)
	}
}

func TestGenerate_RetryThenSuccess(t *testing.T) {
	p := &scriptedProvider{responses: []string{"not json at all", `{"Title": "only"}`, validResponse}}
	s, err := newGenerator(p, 2).Generate(context.Background(), []string{"text"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(p.prompts) != 3 {
		t.Errorf("expected 3 calls, got %d", len(p.prompts))
	}
	if !strings.Contains(p.prompts[1], "could not be used") {
		t.Error("retry prompt must be corrective")
	}
	if !strings.Contains(p.prompts[2], "missing required fields") {
		t.Error("retry prompt must name the missing fields")
	}
	if s.ParseDegraded {
		t.Error("summary should not be degraded after a successful retry")
	}
}

func TestGenerate_DegradedAfterRetries(t *testing.T) {
	p := &scriptedProvider{responses: []string{`{"Title": "Partial study", "Author(s)": ["Erik Loeffler"], "Year Published": 2019`}}
	s, err := newGenerator(p, 2).Generate(context.Background(), []string{"text"})
	if err != nil {
		t.Fatalf("degraded output must not fail the document: %v", err)
	}
	if len(p.prompts) != 3 {
		t.Errorf("expected 1 attempt plus 2 retries, got %d calls", len(p.prompts))
	}
	if !s.ParseDegraded {
		t.Error("expected ParseDegraded")
	}
	if s.Title != "Partial study" || len(s.Authors) != 1 {
		t.Errorf("expected salvaged fields, got %+v", s)
	}
	if s.Method == "" || s.KeyFindings == nil {
		t.Error("every field must be populated")
	}
}

func TestGenerate_TransportErrorFails(t *testing.T) {
	p := &scriptedProvider{err: errors.New("connection refused")}
	_, err := newGenerator(p, 2).Generate(context.Background(), []string{"text"})
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(p.prompts) != 1 {
		t.Errorf("transport errors must not be retried, got %d calls", len(p.prompts))
	}
}

func TestGenerate_NoText(t *testing.T) {
	p := &scriptedProvider{responses: []string{validResponse}}
	if _, err := newGenerator(p, 2).Generate(context.Background(), []string{"", "  \n"}); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestGenerate_CachesOnlyValidResponses(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	p := &scriptedProvider{responses: []string{validResponse}}
	client := llm.NewClient(p, llm.Config{Model: "m"}, llm.WithCache(c, time.Minute))
	g := NewGenerator(client, Options{MaxRetries: 1}, nil)

	for i := 0; i < 2; i++ {
		if _, err := g.Generate(context.Background(), []string{"same text"}); err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
	}
	if len(p.prompts) != 1 {
		t.Errorf("second run should be served from cache, got %d calls", len(p.prompts))
	}
}
