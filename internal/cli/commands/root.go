// Package commands implements the ghost command line.
package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ghost-build/ghost/internal/cli/ui"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// Flags shared by every command.
var (
	rootDir     string
	rootVerbose bool
	rootNoColor bool
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ghost",
		Short: "Generate ninja build files for C and C++ workspaces",
		Long: color.CyanString(`ghost - manifest-driven build graphs for C and C++

ghost reads the ghost.build manifests of a workspace, resolves a toolchain
profile, runs the optional build.lua hooks and writes a ninja build file
together with a compile_commands.json compilation database.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&rootDir, "directory", "C", ".", "Run as if ghost was started in this directory")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Show debug logging")
	rootCmd.PersistentFlags().BoolVar(&rootNoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewGenerateCommand())
	rootCmd.AddCommand(NewDiscoverCommand())
	rootCmd.AddCommand(NewGraphCommand())
	rootCmd.AddCommand(NewWatchCommand())
	rootCmd.AddCommand(NewNewCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the ghost version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			t := ui.NewKeyValueTable(cmd.OutOrStdout(), rootNoColor)
			t.AddRow("ghost version", Version)
			t.AddRow("Git commit", GitCommit)
			t.AddRow("Build date", BuildDate)
			t.AddRow("Go version", goVer)
			t.Render()
		},
	}
}

// Execute runs the root command and renders any error on stderr.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(rootCmd.ErrOrStderr(), RenderError(err, rootNoColor))
		return err
	}
	return nil
}

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}
