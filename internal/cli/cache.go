package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/papersift/internal/cache"
	"github.com/ppiankov/papersift/internal/model"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the LLM response cache",
	Long: `Validated model responses are cached in memory and under cache.dir so that
re-processing a document does not repeat model calls. Clear the cache after
changing prompts or models outside the config, or to reclaim disk space.`,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the cache location and size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Cache.Dir == "" {
			fmt.Println("Disk cache disabled (cache.dir is empty)")
			return nil
		}
		fmt.Printf("Directory:  %s\n", cfg.Cache.Dir)
		fmt.Printf("Entries:    %d\n", cache.NewDiskCache(cfg.Cache.Dir, cfg.Cache.DiskTTL).Len())
		fmt.Printf("Enabled:    %v\n", cfg.Cache.Enabled)
		fmt.Printf("Disk TTL:   %v\n", cfg.Cache.DiskTTL)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached responses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		n, err := clearCache(cfg)
		if err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Removed %d cached responses from %s\n", n, cfg.Cache.Dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// clearCache empties the configured cache and returns the number of disk
// entries removed
func clearCache(cfg *model.Config) (int, error) {
	if cfg.Cache.Dir == "" {
		return 0, nil
	}
	n := cache.NewDiskCache(cfg.Cache.Dir, cfg.Cache.DiskTTL).Len()
	if err := cache.New(cfg.Cache.Dir, cfg.Cache.MemoryTTL, cfg.Cache.DiskTTL).Clear(); err != nil {
		return 0, err
	}
	return n, nil
}
