package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/syncfm/internal/config"
	"github.com/jfmyers9/syncfm/internal/journal"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently emitted scrobbles",
	Long: `Show the scrobbles emitted by past sync runs, newest first.

Dry-run entries are included and marked; they were journaled but never
submitted to Last.fm.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to show (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	jnl, err := journal.Open(config.JournalPath())
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer jnl.Close()

	entries, err := jnl.History(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No scrobbles journaled yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tARTIST\tTITLE\tSCROBBLED AT\tMODE")
	for _, e := range entries {
		mode := "live"
		if e.DryRun {
			mode = "dry-run"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Artist,
			e.Title,
			e.Timestamp.Format("2006-01-02 15:04:05"),
			mode,
		)
	}
	return w.Flush()
}
