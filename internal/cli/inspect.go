package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ppiankov/papersift/internal/record"
	"github.com/ppiankov/papersift/internal/store"
)

var inspectFull bool

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <summary.json|directory>",
	Short: "Show summary artifacts",
	Long: `Inspect prints the simplified view of full summary artifacts, derived
the same way the _simple.json files are. Given a directory, every
*_summary.json inside it is shown.

Example:
  papersift inspect summaries/Loeffler-2019_summary.json
  papersift inspect summaries --full`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectFull, "full", false, "print the full artifact instead of the simplified view")
}

func runInspect(cmd *cobra.Command, args []string) error {
	paths, err := artifactPaths(args[0])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no summary files found in %s", args[0])
	}

	fmt.Fprintf(os.Stderr, "Found %d summary files\n", len(paths))
	failed := 0
	for _, path := range paths {
		fmt.Printf("\n── %s ──\n", filepath.Base(path))
		data, err := os.ReadFile(path)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ Error reading %s: %v\n", path, err)
			continue
		}
		if inspectFull {
			rec, err := record.ParseFull(data)
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", path, err)
				continue
			}
			printSummary(rec)
			continue
		}
		simple, err := record.SimplifyArtifact(data)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", path, err)
			continue
		}
		fmt.Print(string(simple))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be read", failed, len(paths))
	}
	return nil
}

func artifactPaths(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{target}, nil
	}
	matches, err := filepath.Glob(filepath.Join(target, "*"+store.SummarySuffix))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

