package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/papersift/internal/logging"
	"github.com/ppiankov/papersift/internal/model"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "papersift",
	Short: "Papersift - PDF research summaries, keywords and categories",
	Long: `Papersift turns research PDFs into structured, searchable summary records.

For every document it extracts the text, asks a language model for a
structured summary, derives keywords and a topical category, writes two
JSON artifacts named after the authors and year, and optionally stores the
result in a PostgreSQL or SQLite database.

Examples:
  papersift process paper.pdf
  papersift batch ./pdfs --report --sync
  papersift search --query "alpha-synuclein" --year-from 2020`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Papersift.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("papersift %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.papersift/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.String("provider", "", "LLM provider (ollama, openai, anthropic)")
	flags.StringP("model", "m", "", "LLM model identifier")
	flags.String("host", "", "LLM backend base URL")
	flags.StringP("output-dir", "o", "", "directory for summary artifacts")
	flags.String("database-url", "", "database connection string")
	flags.String("database-driver", "", "database driver (postgres, sqlite)")
	flags.Bool("no-cache", false, "disable the LLM response cache")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "also append logs to this file")

	// Bind flags to viper
	bindFlag("llm.provider", "provider")
	bindFlag("llm.model", "model")
	bindFlag("llm.host", "host")
	bindFlag("output.dir", "output-dir")
	bindFlag("database.url", "database-url")
	bindFlag("database.driver", "database-driver")
	bindFlag("log.level", "log-level")
	bindFlag("log.file", "log-file")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

func bindFlag(key, flag string) {
	_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
}

// legacyEnv maps config keys to the environment variable names used before
// the PAPERSIFT_ prefix existed. PAPERSIFT_* names take precedence.
var legacyEnv = map[string][]string{
	"llm.model":       {"OLLAMA_MODEL"},
	"llm.host":        {"OLLAMA_HOST", "OLLAMA_BASE_URL"},
	"output.dir":      {"OUTPUT_DIR"},
	"chunk.max_size":  {"MAX_CHUNK_SIZE"},
	"database.url":    {"DATABASE_URL"},
	"llm.http_proxy":  {"HTTP_PROXY"},
	"llm.https_proxy": {"HTTPS_PROXY"},
	"llm.no_proxy":    {"NO_PROXY"},
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".papersift"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match PAPERSIFT_* (llm.model -> PAPERSIFT_LLM_MODEL)
	viper.SetEnvPrefix("PAPERSIFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for key, names := range legacyEnv {
		envKey := "PAPERSIFT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = viper.BindEnv(append([]string{key, envKey}, names...)...)
	}

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every option of the default configuration so that
// environment variables can override keys absent from the config file
func setDefaults() {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	setDefaultTree("", tree)

	// Keys omitted from the marshalled defaults
	for _, key := range []string{"llm.host", "llm.api_key", "llm.http_proxy", "llm.https_proxy", "llm.no_proxy", "categories.file", "fetch.dir", "log.file"} {
		viper.SetDefault(key, "")
	}
}

func setDefaultTree(prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			setDefaultTree(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// loadConfig resolves the effective configuration: flags, environment,
// config file, defaults. API keys fall back to the provider's usual variable.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, &model.ConfigurationError{Option: "config", Reason: err.Error()}
	}

	if noCache, _ := rootCmd.PersistentFlags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}

	if strings.HasPrefix(cfg.Database.URL, "sqlite://") {
		cfg.Database.Driver = "sqlite"
	}

	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	return cfg, nil
}

// newLogger builds the diagnostic logger for cfg; --verbose forces debug level
func newLogger(cfg *model.Config) (*logrus.Logger, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.New(level, cfg.Log.File, os.Stderr)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func banner(title string) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  %s\n", title)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
}
