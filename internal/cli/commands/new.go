package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ghost-build/ghost/internal/cli/ui"
	"github.com/ghost-build/ghost/internal/manifest"
)

var (
	newKind        string
	newInteractive bool
)

var packageNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validatePackageName checks that name is usable as a directory, a package
// name and a library file name.
func validatePackageName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) == 0 || len(name) > 100 {
		return fmt.Errorf("package name must be 1-100 characters")
	}
	if filepath.IsAbs(name) {
		return fmt.Errorf("package name cannot be an absolute path")
	}
	if !packageNamePattern.MatchString(name) {
		return fmt.Errorf("package name can only contain letters, numbers, dashes, and underscores")
	}
	return nil
}

// validateKind parses a package kind, suggesting the closest known kind on
// a typo.
func validateKind(s string) (manifest.Kind, error) {
	k := manifest.Kind(s)
	if k.Valid() {
		return k, nil
	}
	names := kindNames()
	if near := ui.Suggest(s, names, ui.DefaultMaxDistance); len(near) > 0 {
		return "", fmt.Errorf("unknown package type %q, did you mean %q?", s, near[0])
	}
	return "", fmt.Errorf("unknown package type %q (expected one of: %s)", s, strings.Join(names, ", "))
}

// NewNewCommand creates the new command
func NewNewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new [package-name]",
		Short: "Create a new package",
		Long: `Create a package directory with a ghost.build manifest and a starter
source file. Add the directory to [workspace] members to build it.

Package types:
  static     - static library (.a / .lib)
  exe        - executable
  shared     - shared library
  interface  - header-only library
  test       - test executable`,
		Example: `  ghost new core --type static
  ghost new app
  ghost new --interactive`,
		Args: cobra.MaximumNArgs(1),
		RunE: runNew,
	}

	cmd.Flags().StringVarP(&newKind, "type", "t", string(manifest.KindExe), "Package type")
	cmd.Flags().BoolVarP(&newInteractive, "interactive", "i", false, "Prompt for the package name and type")

	return cmd
}

func runNew(cmd *cobra.Command, args []string) error {
	var name string
	if len(args) > 0 {
		name = args[0]
	}
	kind := newKind

	if newInteractive {
		var err error
		if name, kind, err = promptPackage(name, kind); err != nil {
			return err
		}
	}
	if name == "" {
		return fmt.Errorf("package name is required")
	}
	if err := validatePackageName(name); err != nil {
		return err
	}
	k, err := validateKind(kind)
	if err != nil {
		return err
	}

	dir := filepath.Join(rootDir, name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("directory %s already exists", dir)
	}

	files, err := scaffoldPackage(name, k)
	if err != nil {
		return err
	}
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	w := cmd.OutOrStdout()
	ui.WriteSuccess(w, fmt.Sprintf("Created %s package %s", k, name), rootNoColor)
	hint := color.New(color.FgCyan)
	if rootNoColor {
		hint.DisableColor()
	}
	hint.Fprintf(w, "Add %q to [workspace] members in %s\n", name, manifest.FileName)
	return nil
}

func promptPackage(name, kind string) (string, string, error) {
	if name == "" {
		prompt := &survey.Input{Message: "Package name:"}
		if err := survey.AskOne(prompt, &name, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return validatePackageName(s)
		})); err != nil {
			return "", "", err
		}
	}

	prompt := &survey.Select{
		Message: "Package type:",
		Options: kindNames(),
		Default: kind,
	}
	if err := survey.AskOne(prompt, &kind); err != nil {
		return "", "", err
	}
	return name, kind, nil
}

var manifestTemplate = template.Must(template.New("manifest").Parse(`[package]
name = "{{.Name}}"
version = "0.1.0"
type = "{{.Kind}}"

[sources]
files = [{{range $i, $f := .Sources}}{{if $i}}, {{end}}"{{$f}}"{{end}}]
{{- if .Public}}

[public]
include_dirs = ["include"]
{{- end}}

[deps]
direct = []
`))

var libraryHeader = template.Must(template.New("header").Parse(`#pragma once

int {{.Ident}}_answer(void);
`))

var librarySource = template.Must(template.New("source").Parse(`#include "{{.Name}}.h"

int {{.Ident}}_answer(void) { return 42; }
`))

const mainSource = `#include <cstdio>

int main() {
    std::puts("hello from ghost");
    return 0;
}
`

type scaffold struct {
	Name    string
	Ident   string
	Kind    manifest.Kind
	Sources []string
	Public  bool
}

// scaffoldPackage returns the files of a new package keyed by path
// relative to the package directory.
func scaffoldPackage(name string, kind manifest.Kind) (map[string]string, error) {
	data := scaffold{
		Name:  name,
		Ident: strings.ReplaceAll(name, "-", "_"),
		Kind:  kind,
	}
	files := make(map[string]string)

	switch kind {
	case manifest.KindExe, manifest.KindTest:
		data.Sources = []string{"src/main.cpp"}
		files["src/main.cpp"] = mainSource
	default:
		data.Public = true
		data.Sources = []string{fmt.Sprintf("src/%s.c", name)}
		header, err := render(libraryHeader, data)
		if err != nil {
			return nil, err
		}
		source, err := render(librarySource, data)
		if err != nil {
			return nil, err
		}
		files[filepath.Join("include", name+".h")] = header
		files[data.Sources[0]] = source
	}

	m, err := render(manifestTemplate, data)
	if err != nil {
		return nil, err
	}
	files[manifest.FileName] = m
	return files, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
