package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ghost-build/ghost/internal/cli/ui"
	"github.com/ghost-build/ghost/internal/tooling/build"
)

// NewGraphCommand creates the graph command
func NewGraphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Show the package dependency graph",
		Long: `Print the members in declaration order, their dependencies and a
topological order.

Packages are built and linked in declaration order. A member declared before
one of its dependencies is reported as a warning; a dependency cycle is an
error.`,
		RunE: runGraph,
	}
}

func runGraph(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.logger.Sync()

	system, err := s.system(cmd, build.ModeGenerate, "")
	if err != nil {
		return err
	}
	report, err := system.Graph(cmd.Context())
	if report != nil {
		printGraphReport(cmd, report)
	}
	return err
}

func printGraphReport(cmd *cobra.Command, report *build.GraphReport) {
	w := cmd.OutOrStdout()

	declared := ui.NewSection(w, "Declaration order", rootNoColor)
	for i, name := range report.Declared {
		declared.AddLine("%d. %s", i+1, name)
	}
	declared.Render()

	deps := ui.NewSection(w, "Dependencies", rootNoColor)
	for _, name := range report.Declared {
		if d := report.Dependencies[name]; len(d) > 0 {
			deps.AddLine("%s -> %s", name, strings.Join(d, ", "))
		}
	}
	deps.Render()

	if report.Topological != nil {
		topo := ui.NewSection(w, "Topological order", rootNoColor)
		for i, name := range report.Topological {
			topo.AddLine("%d. %s", i+1, name)
		}
		topo.Render()
	}

	warnings := ui.NewSection(w, "Warnings", rootNoColor)
	for _, warn := range report.Warnings {
		warnings.AddLine("%s", warn.String())
	}
	warnings.Render()
}
