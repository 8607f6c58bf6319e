package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/inkwell/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and print the schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		version, err := database.Version(db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is at schema version %d\n", cfg.DBPath, version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
