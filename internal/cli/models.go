package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/papersift/internal/llm"
)

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models installed in the LLM backend",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

// setupCmd represents the setup command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Check the backend, the model and the output directory",
	Long: `Setup verifies that everything needed for processing is in place:
- The LLM backend is reachable
- The configured model is installed
- The output directory exists (it is created if missing)
- The database is reachable, when a database URL is configured`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(modelsCmd, setupCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return err
	}
	lister, ok := provider.(llm.ModelLister)
	if !ok {
		return fmt.Errorf("provider %s cannot list models", provider.Name())
	}

	models, err := lister.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("error listing models: %w", err)
	}
	if len(models) == 0 {
		fmt.Fprintln(os.Stderr, "No models installed")
		if provider.Name() == "ollama" {
			fmt.Fprintln(os.Stderr, "Install a model: ollama pull mistral")
		}
		return nil
	}

	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	fmt.Printf("Available %s models:\n", provider.Name())
	for _, m := range models {
		marker := " "
		if m.Name == cfg.LLM.Model {
			marker = "*"
		}
		if m.Size > 0 {
			fmt.Printf(" %s %s (%.1fGB)\n", marker, m.Name, float64(m.Size)/(1<<30))
		} else {
			fmt.Printf(" %s %s\n", marker, m.Name)
		}
	}
	return nil
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	banner("Papersift Setup")
	problems := 0

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Checking %s backend...\n", provider.Name())
	if lister, ok := provider.(llm.ModelLister); ok {
		models, err := lister.ListModels(ctx)
		if err != nil {
			problems++
			fmt.Fprintf(os.Stderr, "✗ Backend is not reachable: %v\n", err)
			if provider.Name() == "ollama" {
				fmt.Fprintf(os.Stderr, "  Start it with: ollama serve\n")
			}
		} else {
			fmt.Fprintf(os.Stderr, "✓ Backend is running\n")
			if llm.HasModel(models, cfg.LLM.Model) {
				fmt.Fprintf(os.Stderr, "✓ Model '%s' is available\n", cfg.LLM.Model)
			} else {
				problems++
				fmt.Fprintf(os.Stderr, "! Model '%s' not found\n", cfg.LLM.Model)
				if provider.Name() == "ollama" {
					fmt.Fprintf(os.Stderr, "  Install with: ollama pull %s\n", cfg.LLM.Model)
				}
			}
		}
	} else if provider.IsAvailable(ctx) {
		fmt.Fprintf(os.Stderr, "✓ Backend is reachable\n")
	} else {
		problems++
		fmt.Fprintf(os.Stderr, "✗ Backend is not reachable\n")
	}

	if _, err := os.Stat(cfg.Output.Dir); err == nil {
		fmt.Fprintf(os.Stderr, "✓ Output directory: %s\n", cfg.Output.Dir)
	} else if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		problems++
		fmt.Fprintf(os.Stderr, "✗ Cannot create output directory %s: %v\n", cfg.Output.Dir, err)
	} else {
		fmt.Fprintf(os.Stderr, "! Created output directory: %s\n", cfg.Output.Dir)
	}

	if cfg.Database.URL != "" {
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		s, err := openStore(ctx, cfg, log)
		if err != nil {
			problems++
			fmt.Fprintf(os.Stderr, "✗ Database: %v\n", err)
		} else {
			_ = s.Close()
			fmt.Fprintf(os.Stderr, "✓ Database (%s) is reachable and migrated\n", cfg.Database.Driver)
		}
	} else {
		fmt.Fprintf(os.Stderr, "- No database configured (set DATABASE_URL to enable --sync)\n")
	}

	fmt.Fprintf(os.Stderr, "\n")
	if problems > 0 {
		return fmt.Errorf("setup found %d problem(s)", problems)
	}
	fmt.Fprintf(os.Stderr, "Setup complete!\n\n")
	fmt.Fprintf(os.Stderr, "Example usage:\n")
	fmt.Fprintf(os.Stderr, "  papersift process document.pdf\n")
	fmt.Fprintf(os.Stderr, "  papersift batch ./pdfs --report\n\n")
	return nil
}
