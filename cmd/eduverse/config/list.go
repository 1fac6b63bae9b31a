package configcmder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/eduverse/pkg/cliui"
	"github.com/papercomputeco/eduverse/pkg/config"
)

const listLongDesc string = `List configuration values, grouped by section.

Pass a section name (storage, cache, adaptive, generator, events, api or
client) to list only that section.

Examples:
  eduverse config list
  eduverse config list cache`

const listShortDesc string = "List configuration values"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [section]",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.MaximumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return sections(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			section := ""
			if len(args) == 1 {
				section = args[0]
			}
			return runList(cmd, section)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command, section string) error {
	if section != "" && !slices.Contains(sections(), section) {
		return fmt.Errorf("unknown config section: %q (available: %s)",
			section, strings.Join(sections(), ", "))
	}

	cfger, err := openConfiger(cmd)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printTarget(w, cfger)

	current := ""
	for _, key := range config.ValidConfigKeys() {
		name, field, _ := strings.Cut(key, ".")
		if section != "" && name != section {
			continue
		}

		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		if name != current {
			if current != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "  %s\n", cliui.HeaderStyle.Render("["+name+"]"))
			current = name
		}
		fmt.Fprintf(w, "    %-22s %s\n", cliui.KeyStyle.Render(field), renderValue(value))
	}
	fmt.Fprintln(w)

	return nil
}

// sections returns the config sections in key order.
func sections() []string {
	var out []string
	for _, key := range config.ValidConfigKeys() {
		name, _, _ := strings.Cut(key, ".")
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}
