// Package sweeper periodically removes expired cache entries and ledger rows.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/papercomputeco/eduverse/pkg/logger"
)

// DefaultInterval is how often the sweep runs when no interval is set.
const DefaultInterval = time.Hour

// Target removes expired material and reports how much it removed.
// *learning.Service satisfies it.
type Target interface {
	Sweep(ctx context.Context) (int, error)
}

// Config configures a Sweeper.
type Config struct {
	Target   Target
	Interval time.Duration

	// Timeout bounds one sweep. Defaults to Interval.
	Timeout time.Duration

	Logger *slog.Logger
}

// Sweeper runs Target.Sweep on a schedule.
type Sweeper struct {
	target    Target
	interval  time.Duration
	timeout   time.Duration
	scheduler *gocron.Scheduler
	logger    *slog.Logger

	runs    atomic.Int64
	removed atomic.Int64
}

// New creates a Sweeper. Call Start to begin sweeping.
func New(cfg Config) (*Sweeper, error) {
	if cfg.Target == nil {
		return nil, errors.New("sweeper requires a target")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}

	return &Sweeper{
		target:    cfg.Target,
		interval:  cfg.Interval,
		timeout:   cfg.Timeout,
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger.OrNop(cfg.Logger),
	}, nil
}

// Start schedules the sweep, running it once immediately, and returns without
// blocking.
func (s *Sweeper) Start() error {
	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.run)
	if err != nil {
		return fmt.Errorf("scheduling cache sweep: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("cache sweeper started", "interval", s.interval)
	return nil
}

// Stop halts the schedule. A sweep in progress is allowed to finish.
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
	s.logger.Info("cache sweeper stopped",
		"runs", s.runs.Load(),
		"removed", s.removed.Load(),
	)
}

// RunOnce sweeps immediately.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	removed, err := s.target.Sweep(ctx)
	s.runs.Add(1)
	s.removed.Add(int64(removed))
	if err != nil {
		return removed, fmt.Errorf("sweeping cache: %w", err)
	}
	return removed, nil
}

// Runs returns how many sweeps have completed.
func (s *Sweeper) Runs() int64 {
	return s.runs.Load()
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	removed, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("cache sweep failed", "removed", removed, "error", err)
		return
	}
	s.logger.Debug("cache sweep finished", "removed", removed)
}
