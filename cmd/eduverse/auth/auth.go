// Package authcmder provides the auth command for storing API credentials.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/eduverse/pkg/cliui"
	"github.com/papercomputeco/eduverse/pkg/credentials"
)

const authLongDesc string = `Store API credentials for content generation providers.

Keys are written to credentials.toml in the .eduverse directory. A stored key
is used by "eduverse serve" before the provider's environment variable.

Examples:
  eduverse auth gemini              Prompt for a Gemini API key
  echo $KEY | eduverse auth gemini  Read the key from stdin
  eduverse auth --list              Show where each provider's key comes from
  eduverse auth --remove gemini     Forget the stored Gemini key`

const authShortDesc string = "Store API credentials for content generation providers"

type authCommander struct {
	list   bool
	remove string

	configDir string
	in        io.Reader
	out       io.Writer
}

func NewAuthCmd() *cobra.Command {
	cmder := &authCommander{}

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %w", err)
			}
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()

			switch {
			case cmder.list:
				return cmder.runList()
			case cmder.remove != "":
				return cmder.runRemove(cmder.remove)
			case len(args) == 0:
				return fmt.Errorf("provider argument required\n\nSupported providers: %s", supported())
			default:
				return cmder.runStore(args[0])
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&cmder.list, "list", false, "Show the key source for each provider")
	cmd.Flags().StringVar(&cmder.remove, "remove", "", "Remove stored credentials for a provider")

	return cmd
}

func supported() string {
	return strings.Join(credentials.SupportedProviders(), ", ")
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func (c *authCommander) runStore(provider string) error {
	provider = normalize(provider)
	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s", provider, supported())
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	fmt.Fprintf(c.out, "Enter API key for %s (%s): ", provider, credentials.EnvVarForProvider(provider))
	apiKey, err := readAPIKey(c.in)
	fmt.Fprintln(c.out)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	if err := mgr.SetKey(provider, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Stored %s key %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render(credentials.Mask(apiKey)),
	)
	return nil
}

func (c *authCommander) runList() error {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("Credentials"))
	for _, p := range credentials.SupportedProviders() {
		r, err := mgr.Lookup(p)
		if err != nil {
			return err
		}

		switch r.Source {
		case credentials.SourceNone:
			fmt.Fprintf(c.out, "  %s  %s  %s\n",
				cliui.DimStyle.Render("●"),
				cliui.NameStyle.Render(p),
				cliui.DimStyle.Render("not set (eduverse auth "+p+" or "+r.EnvVar+")"),
			)
		default:
			fmt.Fprintf(c.out, "  %s  %s  %s  %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(p),
				credentials.Mask(r.Key),
				cliui.DimStyle.Render(describeSource(r)),
			)
		}
	}
	fmt.Fprintln(c.out)
	return nil
}

func describeSource(r credentials.Resolved) string {
	if r.Source == credentials.SourceEnv {
		return "from " + r.EnvVar
	}
	if r.UpdatedAt.IsZero() {
		return "stored"
	}
	return "stored " + r.UpdatedAt.Format("2006-01-02")
}

func (c *authCommander) runRemove(provider string) error {
	provider = normalize(provider)

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))
	return nil
}

// readAPIKey reads the key with hidden input when in is a terminal and the
// first line otherwise.
func readAPIKey(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		keyBytes, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
