package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/eduverse/pkg/cliui"
)

const getLongDesc string = `Get a configuration value.

Reads the value for the given key from config.toml in the .eduverse/
directory, falling back to the default. Use --raw to print only the value,
for scripts.

Examples:
  eduverse config get storage.driver
  eduverse config get cache.ttl --raw`

const getShortDesc string = "Get a configuration value"

type getCommander struct {
	raw bool
}

func newGetCmd() *cobra.Command {
	cmder := &getCommander{}

	cmd := &cobra.Command{
		Use:               "get <key>",
		Short:             getShortDesc,
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print only the value")

	return cmd
}

func (c *getCommander) run(cmd *cobra.Command, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	cfger, err := openConfiger(cmd)
	if err != nil {
		return err
	}

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if c.raw {
		fmt.Fprintln(w, value)
		return nil
	}

	printTarget(w, cfger)
	fmt.Fprintf(w, "  %s  %s\n\n", cliui.KeyStyle.Render(key), renderValue(value))
	return nil
}
