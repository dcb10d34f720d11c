package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/papersift/internal/llm"
	"github.com/ppiankov/papersift/internal/model"
	"github.com/ppiankov/papersift/internal/pipeline"
	"github.com/ppiankov/papersift/internal/store"
)

// runEnv is the shared setup of the processing commands
type runEnv struct {
	cfg    *model.Config
	log    *logrus.Logger
	client *llm.Client
	store  *store.Store // nil unless persistence was requested
	p      *pipeline.Pipeline
}

func (e *runEnv) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

// setupOptions selects the optional parts of a processing run
type setupOptions struct {
	sync          bool
	noLLMKeywords bool
	checkBackend  bool
}

// setupRun loads and validates configuration, checks the backend and builds
// the pipeline. Every error returned here is fatal for the command.
func setupRun(ctx context.Context, opts setupOptions) (*runEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.noLLMKeywords {
		cfg.Keywords.LLMEnabled = false
	}
	if err := cfg.Validate(opts.sync); err != nil {
		return nil, err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	client, err := pipeline.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	if opts.checkBackend {
		if err := checkBackend(ctx, client, cfg); err != nil {
			return nil, err
		}
	}

	classifier, err := pipeline.NewClassifier(cfg)
	if err != nil {
		return nil, err
	}

	env := &runEnv{cfg: cfg, log: log, client: client}

	fetcher, downloadDir := pipeline.NewFetcherFromConfig(cfg)
	pipeOpts := []pipeline.Option{pipeline.WithFetcher(fetcher, downloadDir)}
	if opts.sync {
		s, err := openStore(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		env.store = s
		pipeOpts = append(pipeOpts, pipeline.WithStore(s))
	}

	env.p = pipeline.NewPipeline(cfg, client, classifier, log, pipeOpts...)
	return env, nil
}

// checkBackend verifies the backend is reachable and the model is installed
func checkBackend(ctx context.Context, client *llm.Client, cfg *model.Config) error {
	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if !client.Provider().IsAvailable(checkCtx) {
		hint := ""
		if client.Provider().Name() == "ollama" {
			hint = fmt.Sprintf(" (start it with 'ollama serve' and install the model with 'ollama pull %s')", cfg.LLM.Model)
		}
		return fmt.Errorf("LLM backend %s is not available for model %q%s", client.Provider().Name(), cfg.LLM.Model, hint)
	}
	return nil
}

// openStore validates the storage options and connects
func openStore(ctx context.Context, cfg *model.Config, log logrus.FieldLogger) (*store.Store, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	s, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.URL, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return s, nil
}

// openStoreFromConfig is used by the read-only storage commands
func openStoreFromConfig(ctx context.Context) (*store.Store, *model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	s, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

// printSummary prints the structured summary of one record to stdout
func printSummary(rec *model.OutputRecord) {
	s := rec.Summary
	fmt.Printf("Title:            %s\n", s.Title)
	fmt.Printf("Author(s):        %s\n", joinOr(s.Authors, model.Unknown))
	fmt.Printf("Year Published:   %s\n", yearString(s.Year))
	fmt.Printf("Journal:          %s\n", s.Journal)
	fmt.Printf("Type:             %s\n", s.DocumentType)
	fmt.Printf("Sample Size:      %s\n", s.SampleSize)
	fmt.Printf("Method:           %s\n", s.Method)
	fmt.Printf("Prediction Model: %v\n", s.PredictionModel)
	if len(s.KeyFindings) > 0 {
		fmt.Printf("Key Findings:\n")
		for _, f := range s.KeyFindings {
			fmt.Printf("  • %s: %s\n", f.Name, f.Description)
		}
	}
	fmt.Printf("Key Takeaways:    %s\n", s.KeyTakeaways)
	fmt.Printf("Categories:       %s\n", joinOr(s.Categories, "-"))
	fmt.Printf("Primary Category: %s\n", rec.PrimaryCategory)
	fmt.Printf("Keywords:         %s\n", joinOr(rec.Keywords, "-"))
	if s.BibTeX != "" {
		fmt.Printf("\nBibTeX Citation:\n%s\n", s.BibTeX)
	}
	if rec.ParseDegraded {
		fmt.Fprintf(os.Stderr, "\n⚠️  The model never returned a valid summary; fields were salvaged from partial output\n")
	}
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func yearString(year *int) string {
	if year == nil {
		return model.Unknown
	}
	return strconv.Itoa(*year)
}
