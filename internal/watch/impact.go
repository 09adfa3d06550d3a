package watch

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Scope is how much work a batch of changes requires.
type Scope int

const (
	// ScopeNone needs no action
	ScopeNone Scope = iota
	// ScopeRebuild changed source contents only; the build description is
	// still valid and only the executor needs to run
	ScopeRebuild
	// ScopeRegenerate changed the source set or a manifest, profile or hook
	// script; the build description must be regenerated
	ScopeRegenerate
)

func (s Scope) String() string {
	switch s {
	case ScopeNone:
		return "none"
	case ScopeRebuild:
		return "rebuild"
	case ScopeRegenerate:
		return "regenerate"
	default:
		return "unknown"
	}
}

// Impact summarizes a batch of changes.
type Impact struct {
	Scope Scope
	// Inputs are changed manifests, profile files and hook scripts
	Inputs []string
	// Added and Removed are created and deleted or renamed sources
	Added   []string
	Removed []string
	// Modified are sources whose contents changed
	Modified []string
}

// AnalyzeImpact classifies changes. manifestName is the manifest file name
// used by the workspace.
func AnalyzeImpact(changes []Change, manifestName string) *Impact {
	impact := &Impact{}
	raise := func(s Scope) {
		if s > impact.Scope {
			impact.Scope = s
		}
	}

	for _, c := range changes {
		base := filepath.Base(c.Path)
		switch {
		case base == manifestName, strings.HasSuffix(base, ".toml"), strings.HasSuffix(base, ".lua"):
			impact.Inputs = append(impact.Inputs, c.Path)
			raise(ScopeRegenerate)

		case c.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
			impact.Removed = append(impact.Removed, c.Path)
			raise(ScopeRegenerate)

		case c.Op&fsnotify.Create != 0:
			impact.Added = append(impact.Added, c.Path)
			raise(ScopeRegenerate)

		case c.Op&fsnotify.Write != 0:
			impact.Modified = append(impact.Modified, c.Path)
			raise(ScopeRebuild)
		}
	}
	return impact
}
