package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var retryAll bool

var retryCmd = &cobra.Command{
	Use:   "retry [link-id]",
	Short: "Requeue failed links",
	Long: `Requeue a link that failed to sync permanently.

A link fails after its push attempts are exhausted. Retrying resets
its attempt count and returns it to the queue, then runs a sync pass.

Examples:
  stash retry 4f1c2d3e-...
  stash retry --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRetry,
}

func init() {
	retryCmd.Flags().BoolVar(&retryAll, "all", false, "retry every failed link")
}

func runRetry(cmd *cobra.Command, args []string) error {
	if retryAll == (len(args) == 1) {
		return trackCLIError("retry", fmt.Errorf("invalid arguments: pass a link id or --all"))
	}

	stash, err := openApp()
	if err != nil {
		return trackCLIError("retry", err)
	}
	defer stash.Close()

	var count int64
	if retryAll {
		count, err = stash.database.ResetAllFailedLinks()
		if err != nil {
			return trackCLIError("retry", fmt.Errorf("reset failed links: %w", err))
		}
	} else {
		if err := stash.database.ResetFailedLink(args[0]); err != nil {
			return trackCLIError("retry", err)
		}
		count = 1
	}

	telemetryClient.TrackLinkRetried(int(count))

	if count == 0 {
		fmt.Println("No failed links to retry.")
		return nil
	}
	fmt.Printf("Requeued %d link(s).\n", count)

	stats, err := stash.engine.RunSyncNow(cmd.Context(), "retry")
	if err != nil {
		fmt.Printf("  requeued; sync failed: %v\n", err)
		return nil
	}
	printSyncStats(stats.Pushed, stats.PushFailed, stats.Merged, stats.Created, stats.Downloaded, stats.Evicted)
	return nil
}
