package commands

import (
	"github.com/spf13/cobra"

	"github.com/ghost-build/ghost/internal/tooling/build"
)

var generateProfile string

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write build.ninja and compile_commands.json without building",
		Long: `Run every step of ghost build except ninja itself. The after_build hook
is not called.`,
		Example: `  ghost generate
  ghost generate --profile profiles/release.toml`,
		Aliases: []string{"gen"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystem(cmd, build.ModeGenerate, generateProfile)
		},
	}

	cmd.Flags().StringVarP(&generateProfile, "profile", "p", "", "Toolchain profile file (TOML)")

	return cmd
}
