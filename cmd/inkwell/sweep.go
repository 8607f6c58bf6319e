package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/inkwell/internal/database"
	"github.com/dukerupert/inkwell/internal/notes"
)

var sweepDays int

var sweepCmd = &cobra.Command{
	Use:   "sweep-history",
	Short: "Delete note history older than the retention window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days := cfg.RetentionDays
		if cmd.Flags().Changed("days") {
			days = sweepDays
		}

		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		deleted, err := notes.NewEngine(db).SweepHistory(cmd.Context(), days)
		if err != nil {
			return err
		}
		logger.Info("history sweep complete", "deleted", deleted, "max_age_days", days)
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d history entries older than %d days\n", deleted, days)
		return nil
	},
}

func init() {
	sweepCmd.Flags().IntVar(&sweepDays, "days", 0, "retention window in days (defaults to INKWELL_HISTORY_RETENTION_DAYS)")
	rootCmd.AddCommand(sweepCmd)
}
