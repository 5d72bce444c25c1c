package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over saved links",
	Long: `Search titles, summaries, and URLs of saved links.

Search runs entirely against the local database, so it works offline
and covers whatever enrichment has synced so far.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 20, "maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	stash, err := openApp()
	if err != nil {
		return trackCLIError("search", err)
	}
	defer stash.Close()

	results, err := stash.database.SearchLinks(query, searchLimit)
	if err != nil {
		return trackCLIError("search", fmt.Errorf("search links: %w", err))
	}

	if len(results) == 0 {
		fmt.Printf("No links matching %q.\n", query)
		return nil
	}

	fmt.Printf("RESULTS (%d)\n", len(results))
	fmt.Println("──────────────────────────────────────────────────")

	for _, result := range results {
		title := result.Title
		if title == "" {
			title = result.CanonicalURL
		}
		fmt.Printf("  %s %s\n", statusBadge(result.Status), title)
		fmt.Printf("    %s\n", result.CanonicalURL)
		if result.SummaryShort != "" {
			fmt.Printf("    %s\n", result.SummaryShort)
		}
		fmt.Println()
	}

	return nil
}
