// Package configcmder provides the config command for managing persistent
// eduverse configuration stored in the .eduverse/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/eduverse/pkg/cliui"
	"github.com/papercomputeco/eduverse/pkg/config"
)

const configLongDesc string = `Manage persistent eduverse configuration.

Configuration is stored as config.toml in the .eduverse/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_dsn, storage.libsql_url,
  cache.local_enabled, cache.local_size, cache.local_ttl,
  cache.durable_enabled, cache.ttl, cache.sweep_interval,
  adaptive.focus_on_weak_topics, adaptive.difficulty,
  adaptive.question_count, adaptive.include_review,
  generator.provider, generator.model,
  events.enabled, events.brokers, events.topic, events.workers, events.queue_size,
  api.listen, client.api_target

Use subcommands to get, set, or list configuration values:
  eduverse config set <key> <value>    Set a configuration value
  eduverse config get <key>            Get a configuration value
  eduverse config list [section]       List configuration values

Examples:
  eduverse config set storage.driver postgres
  eduverse config set cache.ttl 72h
  eduverse config get adaptive.difficulty
  eduverse config list cache`

const configShortDesc string = "Manage persistent eduverse configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func checkKey(key string) error {
	if config.IsValidConfigKey(key) {
		return nil
	}
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func openConfiger(cmd *cobra.Command) (*config.Configer, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfger, nil
}

// printTarget names the config file in use, or notes that defaults apply.
func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

func renderValue(value string) string {
	if value == "" {
		return cliui.DimStyle.Render("<not set>")
	}
	return cliui.ValueStyle.Render(value)
}
