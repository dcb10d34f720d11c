package model

import (
	"strings"
	"time"
)

// Config is the complete papersift configuration
type Config struct {
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Chunk      ChunkConfig      `yaml:"chunk" mapstructure:"chunk"`
	Summary    SummaryConfig    `yaml:"summary" mapstructure:"summary"`
	Keywords   KeywordsConfig   `yaml:"keywords" mapstructure:"keywords"`
	Categories CategoriesConfig `yaml:"categories" mapstructure:"categories"`
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// LLMConfig selects and tunes the language model backend
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // ollama, openai, anthropic
	Model             string  `yaml:"model" mapstructure:"model"`
	Host              string  `yaml:"host,omitempty" mapstructure:"host"` // Backend base URL, empty selects the provider default
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	HTTPProxy         string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// OutputConfig controls artifact output
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ChunkConfig bounds the text submitted per model call
type ChunkConfig struct {
	MaxSize  int `yaml:"max_size" mapstructure:"max_size"` // characters
	Lookback int `yaml:"lookback" mapstructure:"lookback"` // characters searched backwards for a boundary
}

// SummaryConfig tunes structured summary generation
type SummaryConfig struct {
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
}

// KeywordsConfig tunes keyword extraction
type KeywordsConfig struct {
	LLMEnabled       bool `yaml:"llm_enabled" mapstructure:"llm_enabled"`
	LLMCount         int  `yaml:"llm_count" mapstructure:"llm_count"`
	StatisticalCount int  `yaml:"statistical_count" mapstructure:"statistical_count"`
}

// CategoriesConfig tunes categorization
type CategoriesConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"` // Minimum score for the secondary categories list
	File      string  `yaml:"file,omitempty" mapstructure:"file"`  // Optional YAML dictionary replacing the built-in one
}

// DatabaseConfig locates the relational store
type DatabaseConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // postgres or sqlite
	URL    string `yaml:"url" mapstructure:"url"`
}

// CacheConfig controls the LLM response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// FetchConfig controls downloading of remote PDF sources
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBytes      int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	Dir           string        `yaml:"dir,omitempty" mapstructure:"dir"` // Empty selects <output.dir>/downloads
}

// LogConfig controls diagnostic logging
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file,omitempty" mapstructure:"file"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "mistral:latest",
			Timeout:     300,
			MaxTokens:   2000,
			Temperature: 0.2,
			Burst:       1,
		},
		Output: OutputConfig{
			Dir: "./summaries",
		},
		Chunk: ChunkConfig{
			MaxSize:  4000,
			Lookback: 400,
		},
		Summary: SummaryConfig{
			MaxRetries: 2,
		},
		Keywords: KeywordsConfig{
			LLMEnabled:       true,
			LLMCount:         10,
			StatisticalCount: 15,
		},
		Categories: CategoriesConfig{
			Threshold: 0.3,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".papersift-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Fetch: FetchConfig{
			Timeout:       60 * time.Second,
			UserAgent:     "papersift/1.0 (+https://github.com/ppiankov/papersift)",
			MaxBytes:      100 << 20,
			RespectRobots: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks required options. needDatabase is set by commands that touch storage.
func (c *Config) Validate(needDatabase bool) error {
	switch strings.ToLower(c.LLM.Provider) {
	case "ollama", "openai", "anthropic", "claude":
	default:
		return &ConfigurationError{Option: "llm.provider", Reason: "unknown provider " + c.LLM.Provider + " (supported: ollama, openai, anthropic)"}
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return &ConfigurationError{Option: "llm.model", Reason: "model identifier is required"}
	}
	if c.Chunk.MaxSize <= 0 {
		return &ConfigurationError{Option: "chunk.max_size", Reason: "must be positive"}
	}
	if c.Chunk.Lookback < 0 {
		return &ConfigurationError{Option: "chunk.lookback", Reason: "must not be negative"}
	}
	if c.Summary.MaxRetries < 0 {
		return &ConfigurationError{Option: "summary.max_retries", Reason: "must not be negative"}
	}
	if c.Categories.Threshold < 0 || c.Categories.Threshold > 1 {
		return &ConfigurationError{Option: "categories.threshold", Reason: "must be within [0,1]"}
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return &ConfigurationError{Option: "output.dir", Reason: "output directory is required"}
	}
	if needDatabase {
		return c.ValidateDatabase()
	}
	return nil
}

// ValidateDatabase checks only the storage options
func (c *Config) ValidateDatabase() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return &ConfigurationError{Option: "database.driver", Reason: "unknown driver " + c.Database.Driver + " (supported: postgres, sqlite)"}
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		return &ConfigurationError{Option: "database.url", Reason: "database connection string is required for storage commands"}
	}
	return nil
}
