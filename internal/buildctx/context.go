// Package buildctx assembles the hook-visible build context from host facts,
// the resolved toolchain and profile, and workspace profile fragments.
package buildctx

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ghost-build/ghost/internal/toolchain"
)

// DefaultEnv is recorded when no environment tag is configured.
const DefaultEnv = "dev"

// Context is the aggregated state handed to hook scripts as the global ctx
// value. Hooks return a full replacement; the JSON field names are the
// script-visible names.
type Context struct {
	OS              string              `json:"os"`
	Env             string              `json:"env"`
	ProjectRoot     string              `json:"project_root"`
	WorkspaceRoot   string              `json:"workspace_root"`
	Toolchain       toolchain.Toolchain `json:"toolchain"`
	Profile         toolchain.Profile   `json:"profile"`
	// DiscoverRoots are walked for packages that set [sources] include
	// without roots
	DiscoverRoots   []string            `json:"discover_roots"`
	DiscoverInclude []string            `json:"discover_include"`
	DiscoverExclude []string            `json:"discover_exclude"`
	Log             []string            `json:"log"`
}

// Default discovery patterns used by packages that declare roots without
// include patterns.
var (
	DefaultDiscoverRoots   = []string{"src"}
	DefaultDiscoverInclude = []string{"**/*.c", "**/*.cc", "**/*.cpp", "**/*.cxx"}
)

// HostOS maps GOOS to the OS tag exposed to hooks.
func HostOS() string {
	switch runtime.GOOS {
	case "windows":
		return "windows"
	case "darwin":
		return "macos"
	default:
		return "linux"
	}
}

// Assemble builds the initial context for root. root is canonicalized and
// used for both the project and workspace roots.
func Assemble(root, env string, res *toolchain.Resolved) (*Context, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if env == "" {
		env = DefaultEnv
	}

	ctx := &Context{
		OS:              HostOS(),
		Env:             env,
		ProjectRoot:     abs,
		WorkspaceRoot:   abs,
		DiscoverRoots:   append([]string{}, DefaultDiscoverRoots...),
		DiscoverInclude: append([]string{}, DefaultDiscoverInclude...),
		DiscoverExclude: []string{},
		Log:             []string{},
	}
	if res != nil {
		ctx.Toolchain = res.Toolchain
		ctx.Profile = res.Profile
		ctx.Logf("toolchain from %s", res.Source)
	}
	return ctx, nil
}

// Logf appends a formatted entry to the context log.
func (c *Context) Logf(format string, args ...any) {
	c.Log = append(c.Log, fmt.Sprintf(format, args...))
}

// ApplyFragments merges the workspace [profile.<name>] fragment whose name
// matches the current profile. It runs after hooks so a hook that renames
// the profile selects a different fragment.
func (c *Context) ApplyFragments(fragments map[string]Fragment) {
	frag, ok := fragments[c.Profile.Name]
	if !ok {
		return
	}
	c.Profile = c.Profile.Merge(frag.Defines, frag.Exclude)
	c.Logf("merged workspace profile fragment %q", c.Profile.Name)
}

// Fragment is the subset of a workspace profile fragment merged into the
// context profile.
type Fragment struct {
	Defines []string
	Exclude []string
}
