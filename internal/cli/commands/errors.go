package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ghost-build/ghost/internal/cli/ui"
	"github.com/ghost-build/ghost/internal/hooks"
	"github.com/ghost-build/ghost/internal/manifest"
	"github.com/ghost-build/ghost/internal/tooling/build"
)

// RenderError formats err for the terminal, choosing the message layout by
// error type.
func RenderError(err error, noColor bool) string {
	var (
		mismatch   *build.MismatchError
		validation *manifest.ValidationError
		parse      *manifest.ParseError
		script     *hooks.ScriptError
		executor   *build.ExecutorError
	)

	switch {
	case errors.As(err, &mismatch):
		var b strings.Builder
		for _, m := range mismatch.Packages {
			b.WriteString(ui.SourceMismatchError(m.Package, m.Files, noColor))
		}
		return b.String()

	case errors.As(err, &validation):
		suggestions, hint := validationHelp(validation)
		return ui.FormatError(ui.ErrorOptions{
			Level:        ui.ErrorLevelError,
			Context:      "invalid manifest",
			Problem:      validation.Error(),
			Consequence:  hint,
			Suggestions:  suggestions,
			HelpCommands: []string{"Show the dependency graph: ghost graph"},
			NoColor:      noColor,
		})

	case errors.As(err, &parse):
		return ui.ManifestError(parse.Error(), nil, noColor)

	case errors.As(err, &script):
		return ui.HookError(script.Error(), noColor)

	case errors.As(err, &executor):
		return ui.BuildError(executor.Error(), noColor)

	default:
		return ui.FormatError(ui.ErrorOptions{
			Level:   ui.ErrorLevelError,
			Problem: err.Error(),
			NoColor: noColor,
		})
	}
}

// validationHelp returns close matches for a bad value and a hint on how to
// fix the manifest.
func validationHelp(err *manifest.ValidationError) ([]string, string) {
	switch err.Kind {
	case manifest.UnsupportedKind:
		names := kindNames()
		if near := ui.Suggest(err.Detail, names, ui.DefaultMaxDistance); len(near) > 0 {
			return []string{fmt.Sprintf("package.type = %q", near[0])}, ""
		}
		return nil, "package.type must be one of: " + strings.Join(names, ", ")
	case manifest.EmptySources:
		return nil, "List files under [sources] files, or set [sources] roots to discover them."
	case manifest.NoCompileUnits:
		return nil, "Add at least one .c, .cc, .cpp or .cxx file to [sources]."
	case manifest.DependencyCycle:
		return nil, "Remove one of the [deps] entries on the cycle."
	}
	return nil, ""
}

func kindNames() []string {
	names := make([]string, len(manifest.Kinds))
	for i, k := range manifest.Kinds {
		names[i] = string(k)
	}
	return names
}
