package build

import (
	"fmt"

	"github.com/ghost-build/ghost/internal/manifest"
)

// DependencyMeta is what other packages may see of a workspace member:
// its canonical root and its public declarations.
type DependencyMeta struct {
	Name           string
	Root           string
	PublicIncludes []string
	PublicDefines  []string
	PublicLinkLibs []string
	PublicLinkDirs []string
}

// CollectMetadata loads every member and returns a name-keyed lookup table.
// It performs no ordering; lookups that miss contribute nothing.
func CollectMetadata(loader *manifest.Loader, members []string) (map[string]*DependencyMeta, error) {
	out := make(map[string]*DependencyMeta, len(members))
	for _, path := range members {
		m, err := loader.Member(path)
		if err != nil {
			return nil, fmt.Errorf("collect metadata for %s: %w", path, err)
		}
		out[m.Manifest.Name()] = metaFor(m)
	}
	return out, nil
}

func metaFor(m *manifest.Member) *DependencyMeta {
	meta := &DependencyMeta{Name: m.Manifest.Name(), Root: m.Root}
	if pub := m.Manifest.Public; pub != nil {
		meta.PublicIncludes = pub.IncludeDirs
		meta.PublicDefines = pub.Defines
		meta.PublicLinkLibs = pub.LinkLibs
		meta.PublicLinkDirs = pub.LinkDirs
	}
	return meta
}
