package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/papersift/internal/model"
	"github.com/ppiankov/papersift/internal/store"
)

var (
	searchQuery   model.SearchQuery
	overviewLimit int
	showBySource  bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search stored documents",
	Long: `Search the database by text, category, year range, author or journal.
Filters combine with AND. Text matches titles, takeaways and methods, or an
exact keyword.

Example:
  papersift search --query "alpha-synuclein"
  papersift search --category preclinical_models --year-from 2020
  papersift search --author Morais --limit 5`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored document",
	Long: `Display a stored document with its findings, keywords and category scores.

Example:
  papersift show 12
  papersift show Loeffler-2019.pdf --source`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

// overviewCmd represents the overview command
var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "List documents with aggregated keywords and category scores",
	Args:  cobra.NoArgs,
	RunE:  runOverview,
}

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync [directory]",
	Short: "Import summary artifacts into the database",
	Long: `Sync imports every *_summary.json in the output directory (or the given
directory). A file already stored with the same processed_at timestamp is
skipped; any other file replaces the stored state of its source document.
Failures are reported per file and do not stop the sync; the exit status is
non-zero if any file failed.

Example:
  papersift sync
  papersift sync ./summaries --database-url postgres://localhost/papers`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(searchCmd, showCmd, statsCmd, overviewCmd, syncCmd)

	searchCmd.Flags().StringVarP(&searchQuery.Text, "query", "q", "", "text to search for")
	searchCmd.Flags().StringVarP(&searchQuery.Category, "category", "c", "", "primary category")
	searchCmd.Flags().IntVar(&searchQuery.YearFrom, "year-from", 0, "earliest publication year")
	searchCmd.Flags().IntVar(&searchQuery.YearTo, "year-to", 0, "latest publication year")
	searchCmd.Flags().StringVarP(&searchQuery.Author, "author", "a", "", "author name (substring)")
	searchCmd.Flags().StringVarP(&searchQuery.Journal, "journal", "j", "", "journal name (substring)")
	searchCmd.Flags().IntVarP(&searchQuery.Limit, "limit", "l", 20, "maximum results")

	showCmd.Flags().BoolVar(&showBySource, "source", false, "look up by source file instead of id")

	overviewCmd.Flags().IntVarP(&overviewLimit, "limit", "l", 50, "maximum rows")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	s, _, err := openStoreFromConfig(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	rows, err := s.Search(ctx, searchQuery)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "No documents found")
		return nil
	}

	fmt.Fprintf(os.Stderr, "Found %d documents\n\n", len(rows))
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHORS\tYEAR\tCATEGORY\tKEYWORDS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, truncate(r.Title, 60), truncate(r.Authors, 40), yearString(r.Year),
			r.PrimaryCategory, truncate(strings.Join(r.Keywords, ", "), 50))
	}
	return tw.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	s, _, err := openStoreFromConfig(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var doc *model.StoredDocument
	if showBySource {
		doc, err = s.GetBySource(ctx, args[0])
	} else {
		id, perr := strconv.ParseInt(args[0], 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid document id %q (use --source to look up by file name)", args[0])
		}
		doc, err = s.Get(ctx, id)
	}
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("document %s not found", args[0])
	}
	if err != nil {
		return err
	}

	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", doc.Title)
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("ID:               %d\n", doc.ID)
	fmt.Printf("Source file:      %s\n", doc.SourceFile)
	fmt.Printf("Base filename:    %s\n", doc.BaseFilename)
	fmt.Printf("Author(s):        %s\n", doc.Authors)
	fmt.Printf("Year Published:   %s\n", yearString(doc.Year))
	fmt.Printf("Journal:          %s\n", doc.Journal)
	fmt.Printf("Type:             %s\n", doc.DocumentType)
	fmt.Printf("Sample Size:      %s\n", doc.SampleSize)
	fmt.Printf("Method:           %s\n", doc.Method)
	fmt.Printf("Prediction Model: %v\n", doc.PredictionModel)
	fmt.Printf("Pages / words:    %d / %d\n", doc.PDFPages, doc.WordCount)
	fmt.Printf("Primary category: %s\n", doc.PrimaryCategory)
	fmt.Printf("Processed at:     %s\n", doc.ProcessedAt.Format("2006-01-02 15:04:05 MST"))
	if doc.ParseDegraded {
		fmt.Printf("Degraded:         yes (salvaged from invalid model output)\n")
	}
	fmt.Println()

	if len(doc.KeyFindings) > 0 {
		fmt.Println("Key Findings:")
		for _, f := range doc.KeyFindings {
			fmt.Printf("  • %s: %s\n", f.Name, f.Description)
		}
		fmt.Println()
	}
	fmt.Printf("Key Takeaways:\n  %s\n\n", doc.KeyTakeaways)
	fmt.Printf("Keywords:\n  %s\n\n", joinOr(doc.Keywords, "-"))

	fmt.Println("Category scores:")
	for _, c := range doc.CategoryScores {
		fmt.Printf("  %-22s %.3f\n", c.Category, c.Score)
	}
	if doc.BibTeX != "" {
		fmt.Printf("\nBibTeX Citation:\n%s\n", doc.BibTeX)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	s, cfg, err := openStoreFromConfig(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("  Database Statistics")
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("  Driver:            %s\n", cfg.Database.Driver)
	fmt.Printf("  Documents:         %d\n", st.TotalDocuments)
	fmt.Printf("  Keywords:          %d\n", st.TotalKeywords)
	fmt.Printf("  Degraded records:  %d\n", st.Degraded)
	printCounts("By primary category", st.ByCategory)
	printCounts("By year", st.ByYear)
	printCounts("Top journals", st.TopJournals)
	fmt.Println()
	return nil
}

func printCounts(title string, counts []model.Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Printf("\n  %s:\n", title)
	for _, c := range counts {
		fmt.Printf("    %-40s %d\n", truncate(c.Label, 40), c.Count)
	}
}

func runOverview(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	s, _, err := openStoreFromConfig(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	rows, err := s.Overview(ctx, overviewLimit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "No documents stored")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tYEAR\tCATEGORY\tSCORES\tKEYWORDS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, truncate(r.SourceFile, 40), yearString(r.Year), r.PrimaryCategory,
			truncate(r.CategoryScores, 60), truncate(r.Keywords, 50))
	}
	return tw.Flush()
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	s, cfg, err := openStoreFromConfig(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	dir := cfg.Output.Dir
	if len(args) == 1 {
		dir = args[0]
	}

	banner("Papersift Database Sync")
	fmt.Fprintf(os.Stderr, "  Directory:  %s\n", dir)
	fmt.Fprintf(os.Stderr, "  Driver:     %s\n", cfg.Database.Driver)
	fmt.Fprintf(os.Stderr, "\n")

	report, err := s.SyncDirectory(ctx, dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "  Examined:  %d artifacts\n", report.Total())
	fmt.Fprintf(os.Stderr, "  Imported:  %d\n", report.Imported)
	fmt.Fprintf(os.Stderr, "  Replaced:  %d\n", report.Replaced)
	fmt.Fprintf(os.Stderr, "  Skipped:   %d (unchanged)\n", report.Skipped)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", len(report.Failed))
	fmt.Fprintf(os.Stderr, "\n")

	if len(report.Failed) > 0 {
		for _, f := range report.Failed {
			fmt.Fprintf(os.Stderr, "  ✗ %v\n", f)
		}
		fmt.Fprintf(os.Stderr, "\n")
		return fmt.Errorf("%d of %d artifacts failed to sync", len(report.Failed), report.Total())
	}
	return nil
}

// truncate shortens s to n runes with an ellipsis
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
