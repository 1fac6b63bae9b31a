// Package sweepcmder provides the sweep command, a one-shot removal of expired
// cached material from the durable store.
package sweepcmder

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/eduverse/cmd/eduverse/services"
	"github.com/papercomputeco/eduverse/pkg/cache"
	"github.com/papercomputeco/eduverse/pkg/cliui"
	"github.com/papercomputeco/eduverse/pkg/config"
	"github.com/papercomputeco/eduverse/pkg/logger"
)

const sweepLongDesc string = `Remove expired study material and ledger rows from storage.

"eduverse serve" sweeps on a schedule; use this command against a store no
server is running on.

Examples:
  eduverse sweep
  eduverse sweep --sqlite ./eduverse.sqlite
  eduverse sweep --storage postgres --postgres postgres://localhost/eduverse`

const sweepShortDesc string = "Remove expired cached material"

type sweepCommander struct {
	flags config.FlagSet

	storageDriver string
	sqlitePath    string
	postgresDSN   string
	libsqlURL     string

	debug     bool
	configDir string
	viper     *viper.Viper
	now       func() time.Time
}

var sweepFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagLibSQLURL,
}

func NewSweepCmd() *cobra.Command {
	cmder := &sweepCommander{
		flags: config.Flags,
		now:   time.Now,
	}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: sweepShortDesc,
		Long:  sweepLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %w", err)
			}
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.viper, err = config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(cmder.viper, cmd, cmder.flags, sweepFlags)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLibSQLURL, &cmder.libsqlURL)

	return cmd
}

func (c *sweepCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.FromViper(c.viper)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.Nop()
	if c.debug {
		log = logger.New(logger.WithDebug(true), logger.WithWriter(cmd.ErrOrStderr()))
	}

	driver, err := services.OpenDriver(ctx, cfg.Storage, c.configDir, log)
	if err != nil {
		return err
	}
	defer driver.Close()

	w := cmd.OutOrStdout()
	ledger := cache.NewLedger(driver, c.now, log)

	var removed int
	if err := cliui.Step(w, "Sweeping expired material", func() error {
		var sweepErr error
		removed, sweepErr = ledger.SweepExpired(ctx, c.now())
		return sweepErr
	}); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n  %s Removed %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(strconv.Itoa(removed)),
		cliui.DimStyle.Render("expired entries and ledger rows"),
	)
	return nil
}
