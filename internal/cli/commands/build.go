package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ghost-build/ghost/internal/cli/ui"
	"github.com/ghost-build/ghost/internal/tooling/build"
)

var (
	buildProfile string
	buildNoRun   bool
)

// NewBuildCommand creates the build command
func NewBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the build description and run ninja",
		Long: `Resolve the toolchain profile, run the build.lua hooks, compile the
workspace into a ninja build file and compilation database, then run ninja.

The profile is taken from --profile, then GHOST_PROFILE, then the built-in
clang debug profile. Entries in the profile's [env] table are passed to ninja.`,
		Example: `  # Build with the default profile
  ghost build

  # Build with a profile file
  ghost build --profile profiles/release.toml

  # Only write build.ninja and compile_commands.json
  ghost build --no-run`,
		RunE: runBuild,
	}

	cmd.Flags().StringVarP(&buildProfile, "profile", "p", "", "Toolchain profile file (TOML)")
	cmd.Flags().BoolVar(&buildNoRun, "no-run", false, "Stop after writing the build description")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	mode := build.ModeBuild
	if buildNoRun {
		mode = build.ModeGenerate
	}
	return runSystem(cmd, mode, buildProfile)
}

func runSystem(cmd *cobra.Command, mode build.Mode, profile string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	system, err := s.system(cmd, mode, profile)
	if err != nil {
		return err
	}
	result, err := system.Build(cmd.Context())
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), s, result)
	return nil
}

func printResult(w io.Writer, s *session, result *build.BuildResult) {
	for _, warn := range result.Warnings {
		fmt.Fprint(w, ui.Warning(warn.String(), []string{
			fmt.Sprintf("Declare %s before %s in [workspace] members", warn.Dependency, warn.Package),
		}, rootNoColor))
	}

	info := color.New(color.FgCyan)
	if rootNoColor {
		info.DisableColor()
	}
	info.Fprintf(w, "Profile %s, %d package(s), %d edge(s)\n",
		result.Context.Profile.Name, len(result.Graph.Packages), len(result.Graph.Description.Edges))

	ui.WriteSuccess(w, fmt.Sprintf("Wrote %s and %s", s.relative(result.NinjaPath), s.relative(result.CompileCommandsPath)), rootNoColor)
	if result.Executed {
		ui.WriteSuccess(w, fmt.Sprintf("Build completed in %s", result.Duration.Round(time.Millisecond)), rootNoColor)
	}
}
