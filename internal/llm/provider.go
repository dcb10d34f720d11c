package llm

import (
	"context"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate sends one prompt and returns the model's complete response
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is reachable and the configured model can be used
	IsAvailable(ctx context.Context) bool
}

// ModelLister is implemented by providers that can enumerate installed models
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ModelInfo describes one model known to the backend
type ModelInfo struct {
	Name string
	Size int64 // bytes, zero when the backend does not report it
}

// GenerateRequest contains the input for one completion
type GenerateRequest struct {
	// Prompt is the user prompt
	Prompt string

	// System is an optional system instruction
	System string

	// Model overrides the configured model when set
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature overrides the configured temperature when positive
	Temperature float64

	// JSON asks the backend to constrain output to a JSON object where supported
	JSON bool
}

// GenerateResponse contains the model output
type GenerateResponse struct {
	// Text is the generated text, trimmed
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "ollama", "openai", "anthropic"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for response generation
	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "ollama",
		Model:       "mistral:latest",
		Timeout:     300,
		MaxTokens:   2000,
		Temperature: 0.2,
	}
}

// Endpoint returns the backend base URL used for request pacing
func (c Config) Endpoint() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	switch c.Provider {
	case "openai":
		return "https://api.openai.com/v1"
	case "anthropic", "claude":
		return "https://api.anthropic.com"
	default:
		return "http://localhost:11434"
	}
}

func (c Config) maxTokens(req GenerateRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1000
}

func (c Config) temperature(req GenerateRequest) float64 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return c.Temperature
}
