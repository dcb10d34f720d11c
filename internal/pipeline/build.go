package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/papersift/internal/cache"
	"github.com/ppiankov/papersift/internal/categorize"
	"github.com/ppiankov/papersift/internal/llm"
	"github.com/ppiankov/papersift/internal/model"
	"github.com/ppiankov/papersift/internal/worker"
)

// NewClient builds the LLM client described by cfg: provider, request
// pacing and, unless disabled, the layered response cache
func NewClient(cfg *model.Config, log logrus.FieldLogger) (*llm.Client, error) {
	llmConfig := llm.ConfigFromModel(cfg.LLM)
	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}

	opts := []llm.ClientOption{
		llm.WithLogger(log),
		llm.WithLimiter(worker.NewLimiter(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst)),
	}
	if cfg.Cache.Enabled {
		ttl := cfg.Cache.DiskTTL
		if cfg.Cache.Dir == "" || ttl <= 0 {
			ttl = cfg.Cache.MemoryTTL
		}
		opts = append(opts, llm.WithCache(cache.New(cfg.Cache.Dir, cfg.Cache.MemoryTTL, cfg.Cache.DiskTTL), ttl))
	}
	return llm.NewClient(provider, llmConfig, opts...), nil
}

// NewClassifier builds the classifier from the configured dictionary file,
// or the built-in dictionary when none is set
func NewClassifier(cfg *model.Config) (*categorize.Classifier, error) {
	dict := categorize.DefaultDictionary()
	if cfg.Categories.File != "" {
		loaded, err := categorize.LoadDictionary(cfg.Categories.File)
		if err != nil {
			return nil, &model.ConfigurationError{Option: "categories.file", Reason: err.Error()}
		}
		dict = loaded
	}
	return categorize.New(dict, cfg.Categories.Threshold)
}

// NewFetcherFromConfig builds the remote source fetcher and its download directory
func NewFetcherFromConfig(cfg *model.Config) (*Fetcher, string) {
	timeout := cfg.Fetch.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	f := NewFetcher(timeout, cfg.Fetch.UserAgent, cfg.Fetch.MaxBytes, cfg.Fetch.RespectRobots,
		cfg.LLM.HTTPProxy, cfg.LLM.HTTPSProxy, cfg.LLM.NoProxy)

	dir := cfg.Fetch.Dir
	if dir == "" {
		dir = filepath.Join(cfg.Output.Dir, "downloads")
	}
	return f, dir
}
