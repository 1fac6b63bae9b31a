// Package services wires the storage, cache, progress, planning, generation
// and event components into a learning.Service for the eduverse commands.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/eduverse/pkg/cache"
	"github.com/papercomputeco/eduverse/pkg/config"
	"github.com/papercomputeco/eduverse/pkg/credentials"
	"github.com/papercomputeco/eduverse/pkg/eventstream"
	"github.com/papercomputeco/eduverse/pkg/eventstream/kafka"
	"github.com/papercomputeco/eduverse/pkg/eventstream/nop"
	"github.com/papercomputeco/eduverse/pkg/eventstream/worker"
	"github.com/papercomputeco/eduverse/pkg/generator"
	generatorutils "github.com/papercomputeco/eduverse/pkg/generator/utils"
	"github.com/papercomputeco/eduverse/pkg/learning"
	"github.com/papercomputeco/eduverse/pkg/logger"
	"github.com/papercomputeco/eduverse/pkg/planner"
	"github.com/papercomputeco/eduverse/pkg/progress"
	"github.com/papercomputeco/eduverse/pkg/storage"
)

// Options configures New.
type Options struct {
	Config    *config.Config
	ConfigDir string

	// Generator replaces the configured generation provider.
	Generator generator.Generator

	// Driver replaces the configured storage driver. It is still closed by
	// Services.Close.
	Driver storage.Driver

	Logger *slog.Logger
}

// Services holds the wired components.
type Services struct {
	Driver   storage.Driver
	Cache    *cache.Store
	Tracker  *progress.Tracker
	Planner  *planner.Planner
	Events   eventstream.Publisher
	Learning *learning.Service

	logger *slog.Logger
}

// New builds every component from opts.Config.
func New(ctx context.Context, opts Options) (*Services, error) {
	if opts.Config == nil {
		return nil, errors.New("services require a config")
	}
	cfg := opts.Config
	log := logger.OrNop(opts.Logger)

	s := &Services{logger: log}

	var err error
	s.Driver = opts.Driver
	if s.Driver == nil {
		s.Driver, err = OpenDriver(ctx, cfg.Storage, opts.ConfigDir, log)
		if err != nil {
			return nil, err
		}
	}

	if err := s.build(ctx, opts); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

func (s *Services) build(ctx context.Context, opts Options) error {
	cfg := opts.Config

	var err error
	s.Cache, err = cache.New(cache.Config{
		Driver:        s.Driver,
		EnableLocal:   cfg.Cache.LocalEnabled,
		EnableDurable: cfg.Cache.DurableEnabled,
		LocalSize:     cfg.Cache.LocalSize,
		LocalTTL:      cfg.Cache.LocalTTL.Std(),
		TTL:           cfg.Cache.TTL.Std(),
		Logger:        s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating cache: %w", err)
	}

	s.Tracker = progress.NewTracker(progress.Config{
		Driver: s.Driver,
		Logger: s.logger,
	})

	difficulty, err := planner.ParseDifficulty(cfg.Adaptive.Difficulty)
	if err != nil {
		return err
	}
	s.Planner = planner.New(s.Tracker, planner.Config{
		FocusOnWeakTopics: cfg.Adaptive.FocusOnWeakTopics,
		Difficulty:        difficulty,
		QuestionCount:     cfg.Adaptive.QuestionCount,
		IncludeReview:     cfg.Adaptive.IncludeReview,
	}, s.logger)

	gen := opts.Generator
	if gen == nil {
		gen, err = newGenerator(ctx, cfg.Generator, opts.ConfigDir, s.logger)
		if err != nil {
			return err
		}
	}

	s.Events, err = NewPublisher(cfg.Events, s.logger)
	if err != nil {
		return err
	}

	s.Learning, err = learning.New(learning.Config{
		Cache:     s.Cache,
		Tracker:   s.Tracker,
		Planner:   s.Planner,
		Generator: gen,
		Events:    s.Events,
		Logger:    s.logger,
	})
	return err
}

// NewPublisher returns a Kafka publisher behind a worker pool when events are
// enabled, and a nop publisher otherwise.
func NewPublisher(cfg config.EventsConfig, log *slog.Logger) (eventstream.Publisher, error) {
	if !cfg.Enabled {
		return nop.NewPublisher(log), nil
	}

	kp, err := kafka.NewPublisher(kafka.Config{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	pool, err := worker.NewPool(&worker.Config{
		Publisher:  kp,
		NumWorkers: cfg.Workers,
		QueueSize:  cfg.QueueSize,
		Logger:     log,
	})
	if err != nil {
		_ = kp.Close()
		return nil, fmt.Errorf("creating event worker pool: %w", err)
	}

	log.Info("publishing study events",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"workers", cfg.Workers,
	)
	return pool, nil
}

func newGenerator(ctx context.Context, cfg config.GeneratorConfig, configDir string, log *slog.Logger) (generator.Generator, error) {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	provider := cfg.Provider
	if provider == "" {
		provider = "gemini"
	}

	key, err := mgr.ResolveKey(provider)
	if err != nil {
		return nil, fmt.Errorf("resolving %s API key: %w", provider, err)
	}
	if key == "" {
		return nil, fmt.Errorf("no %s API key: run 'eduverse auth %s' or set %s",
			provider, provider, credentials.EnvVarForProvider(provider))
	}

	return generatorutils.NewGenerator(ctx, &generatorutils.NewGeneratorOpts{
		ProviderType: provider,
		APIKey:       key,
		Model:        cfg.Model,
		Logger:       log,
	})
}

// Close drains pending events and closes the storage driver.
func (s *Services) Close() error {
	var errs []error
	if s.Events != nil {
		if err := s.Events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing event publisher: %w", err))
		}
	}
	if s.Driver != nil {
		if err := s.Driver.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
