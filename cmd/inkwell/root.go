package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/inkwell/internal/config"
	"github.com/dukerupert/inkwell/internal/logging"
)

var (
	cfg      config.Config
	logger   *slog.Logger
	logLevel string
	dbPath   string
)

var rootCmd = &cobra.Command{
	Use:   "inkwell",
	Short: "Multi-tenant note service with history, restore and voting",
	Long: `Inkwell serves company notes over a JSON API. Notes keep a history of
their previous versions, can be restored from it, and public notes collect
votes from users and companies.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if dbPath != "" {
			cfg.DBPath = dbPath
		}
		logger = logging.Setup(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides INKWELL_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides INKWELL_DB_PATH)")
}
