package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/asteroid-belt/stash/internal/models"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a sync pass now",
	Long: `Run a full sync pass and wait for it to finish.

Pushes queued links to the link service, pulls enrichment updates
made on other devices, and refreshes the offline archive cache.
If a background pass is already running this waits for it to finish
before starting.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var syncReason string

func init() {
	syncCmd.Flags().StringVar(&syncReason, "reason", "manual", "reason recorded with the pass")
}

func runSync(cmd *cobra.Command, args []string) error {
	stash, err := openApp()
	if err != nil {
		return trackCLIError("sync", err)
	}
	defer stash.Close()

	fmt.Println("Syncing...")

	stats, err := stash.engine.RunSyncNow(cmd.Context(), syncReason)
	if err != nil {
		if stats != nil {
			printSyncStats(stats.Pushed, stats.PushFailed, stats.Merged, stats.Created, stats.Downloaded, stats.Evicted)
		}
		return trackCLIError("sync", fmt.Errorf("sync pass: %w", err))
	}

	printSyncStats(stats.Pushed, stats.PushFailed, stats.Merged, stats.Created, stats.Downloaded, stats.Evicted)

	// Surface links that ran out of retries so the user can act.
	failed, err := stash.database.ListLinksByStatus(models.StatusFailed)
	if err == nil && len(failed) > 0 {
		warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
		fmt.Printf("\n%s %d link(s) failed permanently. Retry with:\n", warnStyle.Render("WARN"), len(failed))
		fmt.Println("  stash retry --all")
	}

	return nil
}

func printSyncStats(pushed, pushFailed, merged, created, downloaded, evicted int) {
	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)

	fmt.Printf("%s pushed=%d merged=%d new=%d\n", successStyle.Render("SYNCED"), pushed, merged, created)
	if pushFailed > 0 {
		fmt.Printf("  %d push(es) failed; they stay queued for the next pass\n", pushFailed)
	}
	if downloaded > 0 || evicted > 0 {
		fmt.Printf("  archive cache: %d downloaded, %d evicted\n", downloaded, evicted)
	}
}
