package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ghost-build/ghost/internal/cli/ui"
	"github.com/ghost-build/ghost/internal/tooling/build"
)

// NewDiscoverCommand creates the discover command
func NewDiscoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Check every package's sources against the filesystem",
		Long: `List each workspace member with its total and compilable file counts.

Packages with explicit [sources] files are checked for missing files; every
missing file of every package is reported and ghost exits with status 2.
Packages that declare [sources] roots run source discovery instead.`,
		RunE: runDiscover,
	}
}

func runDiscover(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	system, err := s.system(cmd, build.ModeGenerate, "")
	if err != nil {
		return err
	}
	report, err := system.Discover(cmd.Context())
	if report != nil {
		printDiscoverReport(cmd, report)
	}
	if err != nil {
		return err
	}

	ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("%d package(s), all sources present", len(report.Packages)), rootNoColor)
	return nil
}

func printDiscoverReport(cmd *cobra.Command, report *build.DiscoverReport) {
	t := ui.NewTable(cmd.OutOrStdout(), []string{"PACKAGE", "SOURCES", "FILES", "COMPILABLE", "STATUS"}, &ui.TableOptions{
		Align:   []ui.Align{ui.AlignLeft, ui.AlignLeft, ui.AlignRight, ui.AlignRight, ui.AlignLeft},
		NoColor: rootNoColor,
	})
	for _, p := range report.Packages {
		mode := "explicit"
		if p.Discovered {
			mode = "discovered"
		}
		status := "ok"
		if len(p.Missing) > 0 {
			status = fmt.Sprintf("%d missing", len(p.Missing))
		}
		t.AddRow(p.Name, mode, strconv.Itoa(p.Total), strconv.Itoa(p.Compilable), status)
	}
	t.Render()
}
