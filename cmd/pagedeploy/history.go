package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/history"
	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View deploy and import history",
	Long: `View past deploy and import runs.

Examples:
  pagedeploy history                 # List recent runs
  pagedeploy history -l 5            # List last 5 runs
  pagedeploy history show <id>       # Show steps and images for a run
  pagedeploy history clean --days 7  # Remove runs older than a week`,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old history entries",
	Long: `Remove history entries older than the retention period.

Uses history.retention_days from the configuration unless --days is given.`,
	RunE: runHistoryClean,
}

var (
	historyLimit int
	cleanDays    int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum entries to show")
	historyCleanCmd.Flags().IntVar(&cleanDays, "days", 0, "remove entries older than this many days")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadHistory opens the history store, failing when it is disabled.
func loadHistory() (*history.History, error) {
	cfg, err := requireConfig()
	if err != nil {
		return nil, err
	}
	h, err := openHistory(cfg)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("history is disabled (history.enabled: false)")
	}
	return h, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	h, err := loadHistory()
	if err != nil {
		return err
	}

	entries, err := h.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	return render(cmd, output.FromHistory(entries))
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	h, err := loadHistory()
	if err != nil {
		return err
	}

	entry, err := h.Get(args[0])
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no history entry %q", args[0])
	}
	if err != nil {
		return err
	}
	return render(cmd, output.FromEntry(entry))
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	h, err := loadHistory()
	if err != nil {
		return err
	}

	days := appConfig.History.RetentionDays
	if cmd.Flags().Changed("days") {
		days = cleanDays
	}
	if days <= 0 {
		printInfo("Retention is disabled; nothing removed")
		return nil
	}

	removed, err := h.Cleanup(days)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo("Removed %d entries older than %d days", removed, days)
	return nil
}
