package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/papersift/internal/model"
)

var (
	noLLMKeywords  bool
	syncDB         bool
	processTimeout time.Duration
	skipCheck      bool
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process <file|url>",
	Short: "Summarize and categorize a single PDF",
	Long: `Process runs the full pipeline on one document:
- Extract text and metadata from the PDF (or a .txt/.md file)
- Summarize it chunk by chunk into a structured summary
- Extract keywords (model suggestions plus TF-IDF ranking)
- Score it against the category dictionary
- Write <Author-Author-Year>_summary.json and _simple.json
- Optionally store the record in the database (--sync)

http(s) URLs are downloaded first, honouring robots.txt.

Example:
  papersift process paper.pdf
  papersift process paper.pdf --model llama3 --no-llm-keywords
  papersift process https://example.org/paper.pdf --sync`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&noLLMKeywords, "no-llm-keywords", false, "use statistical keywords only")
	processCmd.Flags().BoolVar(&syncDB, "sync", false, "store the record in the database")
	processCmd.Flags().DurationVar(&processTimeout, "timeout", 30*time.Minute, "overall processing timeout")
	processCmd.Flags().BoolVar(&skipCheck, "skip-check", false, "skip the LLM backend availability check")
}

func runProcess(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	env, err := setupRun(ctx, setupOptions{sync: syncDB, noLLMKeywords: noLLMKeywords, checkBackend: !skipCheck})
	if err != nil {
		return err
	}
	defer env.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "Processing: %s\n", source)
		fmt.Fprintf(os.Stderr, "Model: %s/%s\n", env.cfg.LLM.Provider, env.cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Output: %s\n", env.cfg.Output.Dir)
		fmt.Fprintln(os.Stderr)
	}

	start := time.Now()
	res, err := env.p.ProcessFile(ctx, source)
	if res != nil {
		fmt.Fprintf(os.Stderr, "✓ Full summary:   %s\n", res.Artifacts.Full)
		fmt.Fprintf(os.Stderr, "✓ Simple summary: %s\n", res.Artifacts.Simple)
	}
	if err != nil {
		var persistErr *model.PersistenceError
		if errors.As(err, &persistErr) {
			return fmt.Errorf("summary written but not stored: %w", err)
		}
		return fmt.Errorf("process failed: %w", err)
	}

	if res.Stored {
		action := "Stored"
		if res.Replaced {
			action = "Replaced"
		}
		fmt.Fprintf(os.Stderr, "✓ %s in database (id %d)\n", action, res.DocumentID)
	}
	fmt.Fprintf(os.Stderr, "✓ Done in %v (%d chunks)\n\n", time.Since(start).Round(time.Millisecond), res.Chunks)

	printSummary(res.Record)
	return nil
}
