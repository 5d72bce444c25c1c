package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show stash status",
	Long: `Display database statistics, sync cursor state, and archive
cache usage.`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	stash, err := openApp()
	if err != nil {
		return trackCLIError("info", err)
	}
	defer stash.Close()

	stats, err := stash.database.GetStats()
	if err != nil {
		return trackCLIError("info", fmt.Errorf("read stats: %w", err))
	}

	fmt.Printf("Database: %s\n\n", stash.database.Path())
	fmt.Printf("Links: %d total\n", stats.TotalLinks)
	fmt.Printf("  queued: %d\n", stats.QueuedLinks)
	fmt.Printf("  synced: %d\n", stats.SyncedLinks)
	fmt.Printf("  failed: %d\n", stats.FailedLinks)
	fmt.Printf("Tags: %d\n", stats.TotalTags)

	cursor, err := stash.database.GetSyncCursor()
	if err == nil {
		fmt.Println()
		if cursor.LastFullSyncAt != nil {
			fmt.Printf("Last sync: %s\n", formatTimeSince(*cursor.LastFullSyncAt))
		} else {
			fmt.Println("Last sync: never")
		}
	}

	fmt.Println()
	fmt.Printf("Archive cache: %s used of %d MB quota\n",
		formatBytes(stats.CacheSizeBytes), stash.cfg.Archive.QuotaMB)

	return nil
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
