package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/papersift/internal/pipeline"
	"github.com/ppiankov/papersift/internal/worker"
)

var (
	listFile     string
	withReport   bool
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [directory]",
	Short: "Process every PDF in a directory",
	Long: `Batch processes documents one at a time:
- Every .pdf directly inside the directory, in name order
- Or the paths and URLs listed in a file (--list), one per line
- A failing document is reported and skipped, the batch continues
- Prints a results table and the category distribution
- Optionally writes a category-grouped markdown report (--report)

The exit status is non-zero if any document failed; outputs of the
documents that succeeded are kept.

Example:
  papersift batch ./pdfs
  papersift batch ./pdfs --report --sync
  papersift batch --list sources.txt --no-llm-keywords`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&listFile, "list", "", "file listing sources (paths or URLs), one per line")
	batchCmd.Flags().BoolVar(&withReport, "report", false, "write a category-grouped markdown report")
	batchCmd.Flags().BoolVar(&syncDB, "sync", false, "store every record in the database")
	batchCmd.Flags().BoolVar(&noLLMKeywords, "no-llm-keywords", false, "use statistical keywords only")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 12*time.Hour, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&skipCheck, "skip-check", false, "skip the LLM backend availability check")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (listFile == "") {
		return fmt.Errorf("specify either a directory or --list")
	}

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	var (
		sources []string
		input   string
		err     error
	)
	if listFile != "" {
		input = listFile
		sources, err = worker.ReadListFile(listFile)
	} else {
		input = args[0]
		sources, err = pipeline.CollectPDFs(args[0])
	}
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no PDF files found in %s", input)
	}

	env, err := setupRun(ctx, setupOptions{sync: syncDB, noLLMKeywords: noLLMKeywords, checkBackend: !skipCheck})
	if err != nil {
		return err
	}
	defer env.Close()

	banner("Papersift Batch Processing")
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", input)
	fmt.Fprintf(os.Stderr, "  Documents:    %d\n", len(sources))
	fmt.Fprintf(os.Stderr, "  Model:        %s/%s\n", env.cfg.LLM.Provider, env.cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", env.cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "  Database:     %v\n", syncDB)
	fmt.Fprintf(os.Stderr, "\n")

	report := env.p.ProcessAll(ctx, sources, func(n, total int, o pipeline.FileOutcome) {
		if o.OK() {
			fmt.Fprintf(os.Stderr, "✓ [%d/%d] %s → %s (%s, %v)\n", n, total, o.Source,
				o.Result.Record.BaseFilename, o.Result.Record.PrimaryCategory, o.Duration.Round(time.Second))
			return
		}
		fmt.Fprintf(os.Stderr, "✗ [%d/%d] %s: %v\n", n, total, o.Source, o.Err)
	})

	records := report.Records()
	if len(records) > 0 {
		fmt.Println()
		pipeline.RenderResultsTable(os.Stdout, records)
	}

	if withReport {
		if len(records) == 0 {
			fmt.Fprintf(os.Stderr, "\nNo documents were processed, skipping report\n")
		} else {
			path, err := pipeline.WriteCategoryReport(env.cfg.Output.Dir, records, time.Now())
			if err != nil {
				fmt.Fprintf(os.Stderr, "✗ Report: %v\n", err)
			} else {
				fmt.Fprintf(os.Stderr, "\n✓ Report created: %s\n", path)
			}
		}
	}

	failed := report.Failed()

	// Summary
	banner("Batch Complete")
	fmt.Fprintf(os.Stderr, "  Run:       %s\n", report.RunID)
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(report.Outcomes))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", len(report.Succeeded()))
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", len(failed))
	fmt.Fprintf(os.Stderr, "  Duration:  %v\n", report.Duration().Round(time.Second))
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", env.cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	if len(failed) > 0 {
		for _, o := range failed {
			fmt.Fprintf(os.Stderr, "  ✗ %s: %v\n", o.Source, o.Err)
		}
		fmt.Fprintf(os.Stderr, "\n")
		return fmt.Errorf("%d of %d documents failed", len(failed), len(report.Outcomes))
	}
	return nil
}
