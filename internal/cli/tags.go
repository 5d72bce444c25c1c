package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags across saved links",
	Long: `List the tags the link service has assigned to your links,
with the number of links carrying each tag.`,
	Args: cobra.NoArgs,
	RunE: runTags,
}

func runTags(cmd *cobra.Command, args []string) error {
	stash, err := openApp()
	if err != nil {
		return trackCLIError("tags", err)
	}
	defer stash.Close()

	tags, err := stash.database.ListTags()
	if err != nil {
		return trackCLIError("tags", fmt.Errorf("list tags: %w", err))
	}

	if len(tags) == 0 {
		fmt.Println("No tags yet. Tags arrive with enrichment after a sync.")
		return nil
	}

	fmt.Printf("TAGS (%d)\n", len(tags))
	fmt.Println("──────────────────────────────────────────────────")
	for _, tag := range tags {
		fmt.Printf("  %-30s %d link(s)\n", tag.Name, tag.Count)
	}

	return nil
}
