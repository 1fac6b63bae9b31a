// Package eduversecmder
package eduversecmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/eduverse/cmd/eduverse/auth"
	configcmder "github.com/papercomputeco/eduverse/cmd/eduverse/config"
	initcmder "github.com/papercomputeco/eduverse/cmd/eduverse/init"
	progresscmder "github.com/papercomputeco/eduverse/cmd/eduverse/progress"
	servecmder "github.com/papercomputeco/eduverse/cmd/eduverse/serve"
	sweepcmder "github.com/papercomputeco/eduverse/cmd/eduverse/sweep"
	versioncmder "github.com/papercomputeco/eduverse/cmd/version"
)

const eduverseLongDesc string = `EduVerse generates study material from your notes, caches it per content
fingerprint and adapts assessments to how each learner is doing.

Get started:
  eduverse init              Create a local .eduverse directory
  eduverse auth gemini       Store a Gemini API key
  eduverse serve             Run the API server
  eduverse progress          Show a learner's progress`

const eduverseShortDesc string = "EduVerse - adaptive study material"

func NewEduverseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "eduverse",
		Short:        eduverseShortDesc,
		Long:         eduverseLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .eduverse directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(sweepcmder.NewSweepCmd())
	cmd.AddCommand(progresscmder.NewProgressCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
