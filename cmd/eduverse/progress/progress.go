// Package progresscmder provides the progress command, which shows a learner's
// progress on a piece of source material via the EduVerse API.
package progresscmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/eduverse/pkg/cliui"
	"github.com/papercomputeco/eduverse/pkg/config"
	"github.com/papercomputeco/eduverse/pkg/dotdir"
	"github.com/papercomputeco/eduverse/pkg/study"
	"github.com/papercomputeco/eduverse/pkg/utils"
)

const progressLongDesc string = `Show progress for a learner on one piece of source material.

The material is identified by its fingerprint, or by --title and --file from
which the fingerprint is computed. The learner and fingerprint used last are
remembered in the profile, so later calls can omit them.

Requires a running EduVerse API server ("eduverse serve").

Examples:
  eduverse progress --user alice --title "Recursion" --file notes/recursion.md
  eduverse progress --fingerprint 3f2a...
  eduverse progress --api-target http://localhost:8081 --plain`

const progressShortDesc string = "Show learner progress"

const (
	requestTimeout = 10 * time.Second
	maxTitleLen    = 60
)

type progressCommander struct {
	flags config.FlagSet

	userID      string
	fingerprint string
	title       string
	file        string
	plain       bool

	apiTarget string
	configDir string
	viper     *viper.Viper
}

var progressFlags = []string{
	config.FlagAPITarget,
}

func NewProgressCmd() *cobra.Command {
	cmder := &progressCommander{flags: config.Flags}

	cmd := &cobra.Command{
		Use:   "progress",
		Short: progressShortDesc,
		Long:  progressLongDesc,
		Args:  cobra.NoArgs,
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
			config.BindRegisteredFlags(cmder.viper, cmd, cmder.flags, progressFlags)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.userID, "user", "u", "", "Learner ID (default: the profile's user)")
	cmd.Flags().StringVarP(&cmder.fingerprint, "fingerprint", "f", "", "Content fingerprint")
	cmd.Flags().StringVarP(&cmder.title, "title", "t", "", "Source title, used with --file")
	cmd.Flags().StringVar(&cmder.file, "file", "", "Source content file to fingerprint")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print markdown without terminal styling")
	config.AddStringFlag(cmd, cmder.flags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *progressCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ddm := dotdir.NewManager()
	profile, err := ddm.LoadProfile(c.configDir)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}
	if profile == nil {
		profile = &dotdir.Profile{}
	}

	userID := strings.TrimSpace(c.userID)
	if userID == "" {
		userID = profile.UserID
	}
	if userID == "" {
		return errors.New("no learner: pass --user or set one with a previous call")
	}

	fp, err := c.resolveFingerprint(profile)
	if err != nil {
		return err
	}

	apiTarget := c.viper.GetString("client.api_target")
	client := NewClient(apiTarget)

	snapshot, err := client.Progress(ctx, userID, fp)
	if err != nil {
		return err
	}

	var recs []string
	if snapshot != nil {
		recs, err = client.Recommendations(ctx, userID, fp)
		if err != nil {
			return err
		}
	}

	profile.UserID = userID
	profile.LastFingerprint = fp
	if err := ddm.SaveProfile(profile, c.configDir); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}

	md := cliui.ProgressMarkdown(c.heading(userID), snapshot, recs)
	w := cmd.OutOrStdout()
	if c.plain {
		fmt.Fprint(w, md)
		return nil
	}

	rendered, err := cliui.RenderMarkdown(md)
	if err != nil {
		fmt.Fprint(w, md)
		return nil //nolint:nilerr // fall back to raw markdown
	}
	fmt.Fprint(w, rendered)
	return nil
}

func (c *progressCommander) heading(userID string) string {
	if c.title != "" {
		return fmt.Sprintf("%s: %s", userID, utils.Truncate(c.title, maxTitleLen))
	}
	return "Progress for " + userID
}

// resolveFingerprint prefers --fingerprint, then --file (with --title), then
// the profile's last fingerprint.
func (c *progressCommander) resolveFingerprint(profile *dotdir.Profile) (string, error) {
	if fp := strings.TrimSpace(c.fingerprint); fp != "" {
		return fp, nil
	}

	if c.file != "" {
		content, err := os.ReadFile(c.file)
		if err != nil {
			return "", fmt.Errorf("reading source file: %w", err)
		}
		title := c.title
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(c.file), filepath.Ext(c.file))
			c.title = title
		}
		return study.Source{Title: title, Content: string(content)}.Fingerprint(), nil
	}

	if profile.LastFingerprint != "" {
		return profile.LastFingerprint, nil
	}

	return "", errors.New("no source: pass --fingerprint or --file")
}

// Client reads progress from an EduVerse API server.
type Client struct {
	target string
	http   *http.Client
}

// NewClient creates a Client for the API at target.
func NewClient(target string) *Client {
	return &Client{
		target: strings.TrimRight(target, "/"),
		http:   &http.Client{Timeout: requestTimeout},
	}
}

// Progress returns the snapshot for (userID, fp), or nil if no assessment has
// been recorded.
func (c *Client) Progress(ctx context.Context, userID, fp string) (*study.ProgressSnapshot, error) {
	var snapshot study.ProgressSnapshot
	found, err := c.get(ctx, &snapshot, "progress", userID, fp)
	if err != nil || !found {
		return nil, err
	}
	return &snapshot, nil
}

// Recommendations returns study advice for (userID, fp).
func (c *Client) Recommendations(ctx context.Context, userID, fp string) ([]string, error) {
	var out struct {
		Recommendations []string `json:"recommendations"`
	}
	if _, err := c.get(ctx, &out, "progress", userID, fp, "recommendations"); err != nil {
		return nil, err
	}
	return out.Recommendations, nil
}

// get decodes the JSON body at the joined path into v. A 404 reports false
// with no error.
func (c *Client) get(ctx context.Context, v any, segments ...string) (bool, error) {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}

	endpoint, err := url.JoinPath(c.target, escaped...)
	if err != nil {
		return false, fmt.Errorf("invalid API target URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to connect to EduVerse API at %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("failed to parse response: %w", err)
	}
	return true, nil
}
