package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the offline archive cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show archive cache usage",
	Args:  cobra.NoArgs,
	RunE:  runCacheStatus,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached archives",
	Long: `Delete every cached archive blob and its metadata.

Archives are re-downloaded on the next sync pass, so clearing only
costs bandwidth, never saved links.`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	stash, err := openApp()
	if err != nil {
		return trackCLIError("cache", err)
	}
	defer stash.Close()

	metas, err := stash.database.ListArchiveMetasByAge()
	if err != nil {
		return trackCLIError("cache", fmt.Errorf("list cache entries: %w", err))
	}
	total, err := stash.database.TotalArchiveBytes()
	if err != nil {
		return trackCLIError("cache", fmt.Errorf("sum cache size: %w", err))
	}

	fmt.Printf("Archive cache: %s in %d entries (quota %d MB)\n",
		formatBytes(total), len(metas), stash.cfg.Archive.QuotaMB)

	if len(metas) > 0 {
		oldest := metas[0]
		newest := metas[len(metas)-1]
		fmt.Printf("  oldest access: %s\n", formatTimeSince(oldest.LastAccessed))
		fmt.Printf("  newest access: %s\n", formatTimeSince(newest.LastAccessed))
	}

	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	stash, err := openApp()
	if err != nil {
		return trackCLIError("cache", err)
	}
	defer stash.Close()

	removed, err := stash.cache.Clear()
	if err != nil {
		return trackCLIError("cache", fmt.Errorf("clear cache: %w", err))
	}

	fmt.Printf("Cleared %d cached archive(s).\n", removed)
	return nil
}
