// Package initcmder provides the init command for initializing a local
// .eduverse directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/eduverse/pkg/config"
)

const (
	dirName = ".eduverse"

	remoteTimeout = 10 * time.Second
)

const initLongDesc string = `Initialize a new .eduverse/ directory in the current working directory.

Creates a local .eduverse/ directory that takes precedence over the default
~/.eduverse/ directory for configuration, credentials, the learner profile
and the SQLite database.

A config.toml is written with default values unless one already exists.
Use --preset to write a storage preset instead, or a remote config.toml
fetched over HTTP(S). A preset always overwrites the existing config.toml.

Presets: memory, sqlite, postgres, turso

Examples:
  eduverse init
  eduverse init --preset postgres
  eduverse init --preset https://example.com/eduverse/config.toml`

const initShortDesc string = "Initialize a local .eduverse/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Storage preset name or URL of a remote config.toml")

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	cfg, err := c.presetConfig(ctx)
	if err != nil {
		return err
	}

	info, err := os.Stat(dir)
	alreadyInitialized := err == nil && info.IsDir()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .eduverse directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, statErr := os.Stat(cfger.GetTarget())
	configExists := statErr == nil

	if cfg == nil && !configExists {
		cfg = config.NewDefaultConfig()
	}

	if cfg != nil {
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
	}

	if alreadyInitialized {
		fmt.Printf("Already initialized: %s\n", dir)
	} else {
		fmt.Printf("Initialized .eduverse directory: %s\n", dir)
	}
	if cfg != nil {
		fmt.Printf("Wrote %s\n", cfger.GetTarget())
	}

	return nil
}

// presetConfig returns nil when no preset was requested.
func (c *initCommander) presetConfig(ctx context.Context) (*config.Config, error) {
	switch {
	case c.preset == "":
		return nil, nil
	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		return fetchRemoteConfig(ctx, c.preset)
	default:
		return config.PresetConfig(c.preset)
	}
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	cfg, err := config.ParseConfigTOMLOverDefaults(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Join(errors.New("remote config is invalid"), err)
	}

	return cfg, nil
}
