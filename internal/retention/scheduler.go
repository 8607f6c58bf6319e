// Package retention periodically prunes note history older than the
// configured retention window.
package retention

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper deletes history entries older than maxAgeDays.
type Sweeper interface {
	SweepHistory(ctx context.Context, maxAgeDays int) (int64, error)
}

// Scheduler runs a sweep once on Start and then on every interval.
type Scheduler struct {
	mu       sync.RWMutex
	sweeper  Sweeper
	days     int
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a retention scheduler. A non-positive interval means
// daily.
func NewScheduler(sweeper Sweeper, maxAgeDays int, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		sweeper:  sweeper,
		days:     maxAgeDays,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		s.tick(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	deleted, err := s.sweeper.SweepHistory(ctx, s.days)
	if err != nil {
		s.logger.Error("history sweep failed", "max_age_days", s.days, "error", err)
		return
	}
	s.logger.Info("history sweep complete",
		"deleted", deleted,
		"max_age_days", s.days,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
