package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/inkwell/internal/database"
	"github.com/dukerupert/inkwell/internal/retention"
	"github.com/dukerupert/inkwell/internal/server"
)

const cleanupInterval = time.Hour

var allowedOrigins []string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the history retention scheduler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		srv := server.New(db, server.Config{
			SessionTTL:     cfg.SessionTTL,
			OriginPatterns: allowedOrigins,
		}, logger)

		httpServer := &http.Server{
			Addr:              cfg.Addr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sweeper := retention.NewScheduler(srv.Engine(), cfg.RetentionDays, cfg.SweepInterval, logger.With("component", "retention"))
		sweeper.Start(ctx)
		defer sweeper.Stop()

		// Background cleanup of expired sessions and rate limiter entries.
		go func() {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if n, err := srv.SessionStore().DeleteExpired(ctx); err != nil {
						logger.Error("cleanup expired sessions", "error", err)
					} else if n > 0 {
						logger.Info("cleaned up expired sessions", "count", n)
					}
					if n := srv.RateLimiter().Cleanup(); n > 0 {
						logger.Debug("cleaned up rate limit buckets", "count", n)
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("inkwell starting", "addr", cfg.Addr, "db", cfg.DBPath, "retention_days", cfg.RetentionDays)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringSliceVar(&allowedOrigins, "allow-origin", nil, "extra websocket origin patterns, e.g. app.example.com")
	rootCmd.AddCommand(serveCmd)
}
