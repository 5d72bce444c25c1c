package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/asteroid-belt/stash/internal/models"
)

var (
	saveTitle  string
	saveNote   string
	saveSource string
	saveNoSync bool
)

var saveCmd = &cobra.Command{
	Use:   "save <url>",
	Short: "Save a link to your stash",
	Long: `Save a link to your local stash queue.

The URL is canonicalized (tracking parameters stripped, host
normalized) before it is stored, so saving the same article from
different share sheets lands on one entry. The save succeeds even
when offline; a sync pass pushes it to the link service afterwards.

Examples:
  stash save https://example.com/article?utm_source=newsletter
  stash save https://example.com/article --title "Read later" --no-sync`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

func init() {
	saveCmd.Flags().StringVarP(&saveTitle, "title", "t", "", "title hint for the link")
	saveCmd.Flags().StringVarP(&saveNote, "note", "n", "", "note or shared text to keep with the link")
	saveCmd.Flags().StringVar(&saveSource, "app", "cli", "name of the app the link was shared from")
	saveCmd.Flags().BoolVar(&saveNoSync, "no-sync", false, "queue only; do not run a sync pass")
}

func runSave(cmd *cobra.Command, args []string) error {
	rawURL := args[0]

	stash, err := openApp()
	if err != nil {
		return trackCLIError("save", err)
	}
	defer stash.Close()

	canonicalURL, err := stash.canon.Canonicalize(rawURL)
	if err != nil {
		return trackCLIError("save", fmt.Errorf("invalid url %q: %w", rawURL, err))
	}

	link := &models.Link{
		LocalID:      uuid.NewString(),
		OriginalURL:  rawURL,
		CanonicalURL: canonicalURL,
		Status:       models.StatusQueued,
		Title:        saveTitle,
		SharedText:   saveNote,
		SourceApp:    saveSource,
		SaveCount:    1,
		LastSavedAt:  time.Now(),
	}

	saved, created, err := stash.database.RecordSave(link)
	if err != nil {
		return trackCLIError("save", fmt.Errorf("save link: %w", err))
	}

	telemetryClient.TrackLinkSaved(!created, saved.SourceApp)

	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	urlStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("141"))

	if created {
		fmt.Printf("%s %s\n", successStyle.Render("SAVED"), urlStyle.Render(saved.CanonicalURL))
	} else {
		fmt.Printf("%s %s (saved %d times)\n",
			successStyle.Render("AGAIN"), urlStyle.Render(saved.CanonicalURL), saved.SaveCount)
	}

	if saveNoSync {
		return nil
	}

	stats, err := stash.engine.RunSyncNow(cmd.Context(), "save")
	if err != nil {
		// The link is safely queued; the next pass retries.
		fmt.Printf("  queued locally; sync failed: %v\n", err)
		return nil
	}
	if stats.Pushed > 0 {
		fmt.Printf("  synced (%d pushed)\n", stats.Pushed)
	}
	return nil
}
