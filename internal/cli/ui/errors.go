package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of a message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level   ErrorLevel
	Context string
	Problem string
	// Details are printed one per line under the problem, such as the
	// missing files of a package
	Details      []string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError renders a message as a header line followed by indented
// details, suggestions and help commands.
//
// Example output:
//
//	❌ SOURCE MISMATCH: core: missing 1 file(s)
//	   - src/gone.c
//
//	   → Inspect sources: ghost discover
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	var headerColor, bodyColor *color.Color
	var symbol string
	switch opts.Level {
	case ErrorLevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "⚠️"
	case ErrorLevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "ℹ️"
	default:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "❌"
	}
	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	for _, d := range opts.Details {
		bodyColor.Fprintf(&b, "   %s\n", d)
	}

	if opts.Consequence != "" {
		b.WriteString("\n")
		bodyColor.Fprintf(&b, "   %s\n", opts.Consequence)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to w
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to w
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// SourceMismatchError renders the missing files of one package.
func SourceMismatchError(pkg string, files []string, noColor bool) string {
	details := make([]string, len(files))
	for i, f := range files {
		details[i] = "- " + f
	}
	return FormatError(ErrorOptions{
		Level:   ErrorLevelError,
		Context: "source mismatch",
		Problem: fmt.Sprintf("%s: missing %d file(s)", pkg, len(files)),
		Details: details,
		HelpCommands: []string{
			"Inspect sources: ghost discover",
		},
		NoColor: noColor,
	})
}

// ManifestError renders a manifest parse or validation failure.
func ManifestError(message string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "invalid manifest",
		Problem:     message,
		Suggestions: suggestions,
		HelpCommands: []string{
			"Show the dependency graph: ghost graph",
		},
		NoColor: noColor,
	})
}

// HookError renders a failing hook script.
func HookError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "hook failed",
		Problem:     message,
		Consequence: "The build description was not written.",
		NoColor:     noColor,
	})
}

// BuildError renders a failure of the build executor.
func BuildError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelError,
		Context: "build failed",
		Problem: message,
		HelpCommands: []string{
			"Regenerate without building: ghost generate",
			"Get help: ghost build --help",
		},
		NoColor: noColor,
	})
}

// Warning creates a warning message
func Warning(message string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelWarning,
		Problem:     message,
		Suggestions: suggestions,
		NoColor:     noColor,
	})
}

// Info creates an informational message
func Info(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelInfo,
		Problem: message,
		NoColor: noColor,
	})
}
