package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/papersift/internal/cache"
	"github.com/ppiankov/papersift/internal/worker"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	responses []string
	err       error
	calls     int
	requests  []GenerateRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	m.calls++
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	text := ""
	if len(m.responses) > 0 {
		idx := m.calls - 1
		if idx >= len(m.responses) {
			idx = len(m.responses) - 1
		}
		text = m.responses[idx]
	}
	return &GenerateResponse{Text: text, Model: "mock"}, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func TestClient_Complete_NoCache(t *testing.T) {
	mock := &MockProvider{name: "mock", responses: []string{"one", "two"}}
	client := NewClient(mock, Config{Model: "m"})

	for _, want := range []string{"one", "two"} {
		got, err := client.Complete(context.Background(), GenerateRequest{Prompt: "p"}, nil)
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
	if mock.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", mock.calls)
	}
}

func TestClient_Complete_CachesAcceptedResponses(t *testing.T) {
	mock := &MockProvider{name: "mock", responses: []string{"valid"}}
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	client := NewClient(mock, Config{Model: "m"}, WithCache(c, time.Minute))

	req := GenerateRequest{Prompt: "same prompt", JSON: true}
	for i := 0; i < 3; i++ {
		got, err := client.Complete(context.Background(), req, func(s string) bool { return s == "valid" })
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		if got != "valid" {
			t.Errorf("got %q", got)
		}
	}
	if mock.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", mock.calls)
	}

	// A different prompt misses the cache
	if _, err := client.Complete(context.Background(), GenerateRequest{Prompt: "other", JSON: true}, nil); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if mock.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", mock.calls)
	}
}

func TestClient_Complete_RejectedNotCached(t *testing.T) {
	mock := &MockProvider{name: "mock", responses: []string{"garbage"}}
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	client := NewClient(mock, Config{Model: "m"}, WithCache(c, time.Minute))

	reject := func(string) bool { return false }
	for i := 0; i < 2; i++ {
		if _, err := client.Complete(context.Background(), GenerateRequest{Prompt: "p"}, reject); err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
	}
	if mock.calls != 2 {
		t.Errorf("rejected responses must not be served from cache, got %d calls", mock.calls)
	}
}

func TestClient_Complete_EvictsRejectedCacheEntry(t *testing.T) {
	mock := &MockProvider{name: "mock", responses: []string{"still garbage"}}
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	client := NewClient(mock, Config{Model: "m"}, WithCache(c, time.Minute))

	key := cache.PromptKey("mock", "m", "", "p", "false")
	if err := c.Set(key, []byte("stale"), 0); err != nil {
		t.Fatal(err)
	}

	reject := func(string) bool { return false }
	got, err := client.Complete(context.Background(), GenerateRequest{Prompt: "p"}, reject)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "still garbage" {
		t.Errorf("expected a fresh response, got %q", got)
	}
	if mock.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", mock.calls)
	}
	if _, ok := c.Get(key); ok {
		t.Error("rejected cache entry should be evicted")
	}
}

func TestClient_Complete_ProviderError(t *testing.T) {
	mock := &MockProvider{name: "mock", err: errors.New("connection refused")}
	client := NewClient(mock, Config{Model: "m"}, WithLimiter(worker.NewLimiter(0, 1)))

	_, err := client.Complete(context.Background(), GenerateRequest{Prompt: "p"}, nil)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestClient_Complete_LimiterCancelled(t *testing.T) {
	mock := &MockProvider{name: "mock", responses: []string{"x"}}
	limiter := worker.NewLimiter(0.001, 1)
	client := NewClient(mock, Config{Model: "m", BaseURL: "http://localhost:11434"}, WithLimiter(limiter))

	if _, err := client.Complete(context.Background(), GenerateRequest{Prompt: "p"}, nil); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Complete(ctx, GenerateRequest{Prompt: "p"}, nil); err == nil {
		t.Fatal("expected rate limit error with cancelled context")
	}
	if mock.calls != 1 {
		t.Errorf("provider must not be called when pacing fails, got %d calls", mock.calls)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  bool
	}{
		{"ollama", Config{Provider: "ollama"}, "ollama", false},
		{"default", Config{}, "ollama", false},
		{"openai", Config{Provider: "openai", APIKey: "k"}, "openai", false},
		{"openai no key", Config{Provider: "OpenAI"}, "", true},
		{"claude alias", Config{Provider: "claude", APIKey: "k"}, "anthropic", false},
		{"unknown", Config{Provider: "bard"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("name = %s, want %s", p.Name(), tt.wantName)
			}
		})
	}
}

func TestConfigEndpoint(t *testing.T) {
	tests := []struct {
		config Config
		want   string
	}{
		{Config{Provider: "ollama"}, "http://localhost:11434"},
		{Config{Provider: "openai"}, "https://api.openai.com/v1"},
		{Config{Provider: "anthropic"}, "https://api.anthropic.com"},
		{Config{Provider: "ollama", BaseURL: "http://gpu:11434"}, "http://gpu:11434"},
	}
	for _, tt := range tests {
		if got := tt.config.Endpoint(); got != tt.want {
			t.Errorf("Endpoint(%+v) = %s, want %s", tt.config, got, tt.want)
		}
	}
}
