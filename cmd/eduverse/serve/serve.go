// Package servecmder provides the serve command, which runs the EduVerse API
// server and the cache sweeper.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/eduverse/api"
	"github.com/papercomputeco/eduverse/cmd/eduverse/services"
	"github.com/papercomputeco/eduverse/pkg/config"
	"github.com/papercomputeco/eduverse/pkg/logger"
	"github.com/papercomputeco/eduverse/pkg/sweeper"
)

type ServeCommander struct {
	flags config.FlagSet

	listen        string
	storageDriver string
	sqlitePath    string
	postgresDSN   string
	libsqlURL     string
	localCache    bool
	sweepInterval string
	generator     string
	model         string
	events        bool
	eventBrokers  string
	eventTopic    string
	eventWorkers  uint
	disableMCP    bool
	logFile       string

	debug     bool
	configDir string
	viper     *viper.Viper
	logger    *slog.Logger
}

var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagLibSQLURL,
	config.FlagLocalCache,
	config.FlagSweepInterval,
	config.FlagGenerator,
	config.FlagGeneratorModel,
	config.FlagEvents,
	config.FlagEventBrokers,
	config.FlagEventTopic,
	config.FlagEventWorkers,
}

const serveLongDesc string = `Run the EduVerse API server.

The server generates and caches study material per content fingerprint,
records assessments and serves progress and adaptive test plans. The MCP
endpoint is mounted at /mcp unless --no-mcp is set.

Settings come from flags, then EDUVERSE_* environment variables, then
config.toml in the .eduverse directory, then defaults.`

const serveShortDesc string = "Run the EduVerse API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{flags: config.Flags}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %w", err)
			}

			cmder.viper, err = config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(cmder.viper, cmd, cmder.flags, serveFlags)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLibSQLURL, &cmder.libsqlURL)
	config.AddBoolFlag(cmd, cmder.flags, config.FlagLocalCache, &cmder.localCache)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSweepInterval, &cmder.sweepInterval)
	config.AddStringFlag(cmd, cmder.flags, config.FlagGenerator, &cmder.generator)
	config.AddStringFlag(cmd, cmder.flags, config.FlagGeneratorModel, &cmder.model)
	config.AddBoolFlag(cmd, cmder.flags, config.FlagEvents, &cmder.events)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventBrokers, &cmder.eventBrokers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventTopic, &cmder.eventTopic)
	config.AddUintFlag(cmd, cmder.flags, config.FlagEventWorkers, &cmder.eventWorkers)
	cmd.Flags().BoolVar(&cmder.disableMCP, "no-mcp", false, "Do not mount the MCP endpoint")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

// initLogger logs pretty to stderr and, with --log-file, JSON to that file.
func (c *ServeCommander) initLogger() (func(), error) {
	terminal := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)
	if c.logFile == "" {
		c.logger = terminal
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(terminal, logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))
	return func() { _ = f.Close() }, nil
}

func (c *ServeCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	closeLog, err := c.initLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := config.FromViper(c.viper)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	svcs, err := services.New(ctx, services.Options{
		Config:    cfg,
		ConfigDir: c.configDir,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := svcs.Close(); err != nil {
			c.logger.Error("closing services", "error", err)
		}
	}()

	sw, err := sweeper.New(sweeper.Config{
		Target:   svcs.Learning,
		Interval: cfg.Cache.SweepInterval.Std(),
		Logger:   c.logger,
	})
	if err != nil {
		return err
	}
	if err := sw.Start(); err != nil {
		return err
	}
	defer sw.Stop()

	server, err := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
		DisableMCP: c.disableMCP,
	}, svcs.Learning, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("starting eduverse",
		"api_addr", cfg.API.Listen,
		"storage", cfg.Storage.Driver,
		"generator", cfg.Generator.Provider,
		"events", cfg.Events.Enabled,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		c.logger.Info("context cancelled, shutting down")
	}

	if err := server.Shutdown(); err != nil {
		c.logger.Error("shutting down API server", "error", err)
	}
	return nil
}
