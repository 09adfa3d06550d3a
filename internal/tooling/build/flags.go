package build

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ghost-build/ghost/internal/manifest"
	"github.com/ghost-build/ghost/internal/toolchain"
)

// GeneratedDir holds generated sources inside a package root. Like include/
// it is exported to dependents when present.
const GeneratedDir = ".gen"

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func resolve(root, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(root, dir)
}

// sortedUnique returns a sorted copy of items without duplicates.
func sortedUnique(items []string) []string {
	sorted := append([]string{}, items...)
	sort.Strings(sorted)
	out := make([]string, 0, len(sorted))
	for i, s := range sorted {
		if i > 0 && s == sorted[i-1] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// IncludeFlags returns the sorted, deduplicated -I flags for a package:
// its own include/, src/ and generated dirs when present, its public then
// private include dirs, then for each direct dependency found in deps the
// dependency's public include dirs and its include/ and generated dirs when
// present. Private include dirs of other packages are never visible.
func IncludeFlags(root string, pkg *manifest.Package, deps map[string]*DependencyMeta) []string {
	var dirs []string

	for _, d := range []string{"include", "src", GeneratedDir} {
		if p := filepath.Join(root, d); exists(p) {
			dirs = append(dirs, p)
		}
	}
	for _, d := range pkg.PublicIncludeDirs() {
		dirs = append(dirs, resolve(root, d))
	}
	for _, d := range pkg.PrivateIncludeDirs() {
		dirs = append(dirs, resolve(root, d))
	}

	for _, name := range pkg.DirectDeps() {
		meta, ok := deps[name]
		if !ok {
			continue
		}
		for _, d := range meta.PublicIncludes {
			dirs = append(dirs, resolve(meta.Root, d))
		}
		if p := filepath.Join(meta.Root, "include"); exists(p) {
			dirs = append(dirs, p)
		}
		if p := filepath.Join(meta.Root, GeneratedDir); exists(p) {
			dirs = append(dirs, p)
		}
	}

	flags := make([]string, len(dirs))
	for i, d := range dirs {
		flags[i] = "-I" + d
	}
	return sortedUnique(flags)
}

// DefineFlags returns the sorted, deduplicated -D flags: profile defines,
// the package's own defines and the public defines of its direct
// dependencies.
func DefineFlags(profile toolchain.Profile, pkg *manifest.Package, deps map[string]*DependencyMeta) []string {
	var defs []string
	defs = append(defs, profile.Defines...)
	defs = append(defs, pkg.Defines()...)
	for _, name := range pkg.DirectDeps() {
		if meta, ok := deps[name]; ok {
			defs = append(defs, meta.PublicDefines...)
		}
	}

	flags := make([]string, 0, len(defs))
	for _, d := range defs {
		flags = append(flags, "-D"+strings.TrimPrefix(d, "-D"))
	}
	return sortedUnique(flags)
}

// LinkInputs holds the library search directories and libraries of one
// executable link edge, unformatted and in first-seen order.
type LinkInputs struct {
	Dirs []string
	Libs []string
}

// CollectLinkInputs gathers toolchain, build-output, package and direct
// dependency link declarations.
func CollectLinkInputs(tc toolchain.Toolchain, libDir, root string, pkg *manifest.Package, deps map[string]*DependencyMeta) LinkInputs {
	var in LinkInputs
	in.Dirs = append(in.Dirs, tc.LibDirs...)
	in.Dirs = append(in.Dirs, libDir)
	for _, d := range pkg.LinkDirs() {
		in.Dirs = append(in.Dirs, resolve(root, d))
	}
	in.Libs = append(in.Libs, tc.Libs...)
	in.Libs = append(in.Libs, pkg.LinkLibs()...)

	for _, name := range pkg.DirectDeps() {
		meta, ok := deps[name]
		if !ok {
			continue
		}
		for _, d := range meta.PublicLinkDirs {
			in.Dirs = append(in.Dirs, resolve(meta.Root, d))
		}
		in.Libs = append(in.Libs, meta.PublicLinkLibs...)
	}

	in.Dirs = firstSeen(in.Dirs)
	in.Libs = firstSeen(in.Libs)
	return in
}

func firstSeen(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// LibDirFlags formats search directories for the linker variant.
func LibDirFlags(l toolchain.Linker, dirs []string) []string {
	out := make([]string, len(dirs))
	for i, d := range dirs {
		if _, msvc := l.(toolchain.MSVCLinker); msvc {
			out[i] = "/LIBPATH:" + d
		} else {
			out[i] = "-L" + d
		}
	}
	return out
}

// LibFlags formats libraries for the linker variant. Entries already in
// flag form, or naming a file, are passed through.
func LibFlags(l toolchain.Linker, libs []string) []string {
	_, msvc := l.(toolchain.MSVCLinker)
	out := make([]string, len(libs))
	for i, lib := range libs {
		switch {
		case msvc && strings.HasSuffix(lib, ".lib"):
			out[i] = lib
		case msvc:
			out[i] = strings.TrimPrefix(lib, "-l") + ".lib"
		case strings.HasPrefix(lib, "-"), strings.Contains(lib, "/"), strings.HasSuffix(lib, ".a"):
			out[i] = lib
		default:
			out[i] = "-l" + lib
		}
	}
	return out
}
