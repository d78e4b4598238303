package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of entries to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit N]",
	Short: "Lists recently fetched recipes, newest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit < 0 {
			return errors.New("--limit must not be negative")
		}

		env, err := openEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		if env.history == nil {
			return errors.New("history is disabled (RECIPYS_HISTORY_DSN=off)")
		}

		entries, err := env.history.List(historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}

		printHistoryTable(entries)
		return nil
	},
}
