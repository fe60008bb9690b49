package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/panbanda/clasp/internal/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the extraction cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show extraction cache size",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached extraction",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// openCache opens the configured cache directory even when caching is
// disabled for analysis runs.
func openCache() (*cache.Cache, string, error) {
	cfg := loadConfig()
	c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
	return c, cfg.Cache.Dir, err
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	c, dir, err := openCache()
	if err != nil {
		return err
	}
	stats, err := c.GetStats()
	if err != nil {
		return fmt.Errorf("reading cache %s: %w", dir, err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Cache directory: %s\n", dir)
	fmt.Fprintf(w, "Entries:         %d\n", stats.Entries)
	fmt.Fprintf(w, "Size:            %s\n", humanize.Bytes(uint64(stats.TotalSize)))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	c, dir, err := openCache()
	if err != nil {
		return err
	}
	if err := c.Clear(); err != nil {
		return fmt.Errorf("clearing cache %s: %w", dir, err)
	}
	color.Green("Cleared %s", dir)
	return nil
}
