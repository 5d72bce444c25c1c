package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/asteroid-belt/stash/internal/models"
)

var listStatus string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved links",
	Long: `List saved links, newest first.

Shows the sync status of each link alongside its enrichment. Filter
by status with --status (queued, syncing, synced, failed).`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "filter by sync status")
}

func runList(cmd *cobra.Command, args []string) error {
	stash, err := openApp()
	if err != nil {
		return trackCLIError("list", err)
	}
	defer stash.Close()

	var links []models.Link
	if listStatus != "" {
		links, err = stash.database.ListLinksByStatus(models.LinkStatus(listStatus))
	} else {
		links, err = stash.database.ListLinks()
	}
	if err != nil {
		return trackCLIError("list", fmt.Errorf("list links: %w", err))
	}

	if len(links) == 0 {
		fmt.Println("No links saved yet.")
		fmt.Println("\nUse 'stash save <url>' to save one.")
		return nil
	}

	fmt.Printf("LINKS (%d)\n", len(links))
	fmt.Println("──────────────────────────────────────────────────")

	for _, link := range links {
		title := link.Title
		if title == "" {
			title = link.CanonicalURL
		}
		fmt.Printf("  %s %s\n", statusBadge(link.Status), title)
		fmt.Printf("    %s\n", link.CanonicalURL)

		details := []string{fmt.Sprintf("saved %s", formatTimeSince(link.LastSavedAt))}
		if link.SaveCount > 1 {
			details = append(details, fmt.Sprintf("%d saves", link.SaveCount))
		}
		if len(link.Tags) > 0 {
			names := make([]string, len(link.Tags))
			for i, tag := range link.Tags {
				names[i] = tag.Name
			}
			details = append(details, strings.Join(names, ", "))
		}
		if link.Status == models.StatusFailed && link.LastError != "" {
			details = append(details, "error: "+link.LastError)
		}
		fmt.Printf("    %s\n\n", strings.Join(details, " · "))
	}

	return nil
}

var (
	queuedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	syncedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func statusBadge(status models.LinkStatus) string {
	switch status {
	case models.StatusSynced:
		return syncedStyle.Render("✓")
	case models.StatusFailed:
		return failedStyle.Render("✗")
	default:
		return queuedStyle.Render("…")
	}
}

// formatTimeSince formats a duration since a time in a human-readable way.
func formatTimeSince(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}
