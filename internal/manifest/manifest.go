// Package manifest defines the workspace and package manifest model read from
// ghost.build files, and the validation applied before any graph work.
package manifest

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the conventional manifest file name for both the workspace
// root and every member package.
const FileName = "ghost.build"

// DefaultBuildDir is used when the workspace does not declare [build_dir].
const DefaultBuildDir = "build"

// Workspace is the root project descriptor.
type Workspace struct {
	Project  *ProjectMeta               `toml:"project"`
	Layout   *Layout                    `toml:"workspace"`
	Profiles map[string]ProfileFragment `toml:"profile"`
	Output   *Output                    `toml:"build_dir"`
}

// ProjectMeta is the [project] section.
type ProjectMeta struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Layout is the [workspace] section.
type Layout struct {
	Members []string `toml:"members"`
}

// Output is the [build_dir] section.
type Output struct {
	Dir string `toml:"dir"`
}

// ProfileFragment is a named [profile.<name>] block merged into the resolved
// profile of the same name.
type ProfileFragment struct {
	Defines []string `toml:"defines"`
	Exclude []string `toml:"exclude"`
}

// Name returns the project name, or an empty string when [project] is absent.
func (w *Workspace) Name() string {
	if w.Project == nil {
		return ""
	}
	return w.Project.Name
}

// MemberPaths returns the declared member paths in declaration order.
func (w *Workspace) MemberPaths() []string {
	if w.Layout == nil {
		return nil
	}
	return w.Layout.Members
}

// BuildDir returns the configured build-output directory or DefaultBuildDir.
func (w *Workspace) BuildDir() string {
	if w.Output == nil || w.Output.Dir == "" {
		return DefaultBuildDir
	}
	return w.Output.Dir
}

// Package is one buildable unit.
type Package struct {
	Package Identity    `toml:"package"`
	Sources Sources     `toml:"sources"`
	Public  *Visibility `toml:"public"`
	Private *Visibility `toml:"private"`
	Deps    *Deps       `toml:"deps"`
}

// Identity is the [package] section.
type Identity struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Kind    Kind   `toml:"type"`
}

// Sources is the [sources] section. Files is the explicit list; Roots or
// Include, when set, ask the discovery engine to expand directories with
// Include and Exclude glob patterns instead. Include without Roots walks the
// context's discovery roots.
type Sources struct {
	Files   []string `toml:"files"`
	Roots   []string `toml:"roots"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// Discovered reports whether the package expands its sources by discovery.
func (s Sources) Discovered() bool {
	return len(s.Files) == 0 && (len(s.Roots) > 0 || len(s.Include) > 0)
}

// Visibility holds the [public] or [private] declarations.
type Visibility struct {
	IncludeDirs []string `toml:"include_dirs"`
	Defines     []string `toml:"defines"`
	LinkLibs    []string `toml:"link_libs"`
	LinkDirs    []string `toml:"link_dirs"`
}

// Deps is the [deps] section.
type Deps struct {
	Direct  []string `toml:"direct"`
	Private []string `toml:"private"`
}

// Name returns the package name.
func (p *Package) Name() string { return p.Package.Name }

// Kind returns the declared package kind.
func (p *Package) Kind() Kind { return p.Package.Kind }

// PublicIncludeDirs returns [public].include_dirs.
func (p *Package) PublicIncludeDirs() []string {
	if p.Public == nil {
		return nil
	}
	return p.Public.IncludeDirs
}

// PrivateIncludeDirs returns [private].include_dirs.
func (p *Package) PrivateIncludeDirs() []string {
	if p.Private == nil {
		return nil
	}
	return p.Private.IncludeDirs
}

// DirectDeps returns [deps].direct.
func (p *Package) DirectDeps() []string {
	if p.Deps == nil {
		return nil
	}
	return p.Deps.Direct
}

// PrivateDeps returns [deps].private.
func (p *Package) PrivateDeps() []string {
	if p.Deps == nil {
		return nil
	}
	return p.Deps.Private
}

// Defines returns public then private preprocessor defines.
func (p *Package) Defines() []string {
	var out []string
	if p.Public != nil {
		out = append(out, p.Public.Defines...)
	}
	if p.Private != nil {
		out = append(out, p.Private.Defines...)
	}
	return out
}

// LinkLibs returns public then private link libraries.
func (p *Package) LinkLibs() []string {
	var out []string
	if p.Public != nil {
		out = append(out, p.Public.LinkLibs...)
	}
	if p.Private != nil {
		out = append(out, p.Private.LinkLibs...)
	}
	return out
}

// LinkDirs returns public then private link directories.
func (p *Package) LinkDirs() []string {
	var out []string
	if p.Public != nil {
		out = append(out, p.Public.LinkDirs...)
	}
	if p.Private != nil {
		out = append(out, p.Private.LinkDirs...)
	}
	return out
}

// LoadWorkspace reads and parses the root manifest at path.
func LoadWorkspace(path string) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	var ws Workspace
	if err := decode(data, &ws); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if len(ws.MemberPaths()) == 0 {
		return nil, &ParseError{Path: path, Err: ErrNoMembers}
	}
	return &ws, nil
}

// LoadPackage reads and parses a package manifest at path. It does not
// validate; call Validate before using the result for graph work.
func LoadPackage(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	var pkg Package
	if err := decode(data, &pkg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if pkg.Package.Name == "" {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("package.name missing")}
	}
	return &pkg, nil
}

func decode(data []byte, v any) error {
	return toml.NewDecoder(bytes.NewReader(data)).Decode(v)
}
