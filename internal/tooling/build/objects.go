package build

import (
	"path"
	"path/filepath"
	"strings"
)

// Language of a translation unit.
type Language int

const (
	LangC Language = iota
	LangCXX
)

// compileExts maps translation-unit extensions to their language.
var compileExts = map[string]Language{
	".c":   LangC,
	".cc":  LangCXX,
	".cpp": LangCXX,
	".cxx": LangCXX,
}

// SourceLanguage reports whether rel is a C or C++ translation unit and
// which one.
func SourceLanguage(rel string) (Language, bool) {
	lang, ok := compileExts[filepath.Ext(rel)]
	return lang, ok
}

// IsCompileSource reports whether rel is a C or C++ translation unit.
func IsCompileSource(rel string) bool {
	_, ok := SourceLanguage(rel)
	return ok
}

var objectReplacer = strings.NewReplacer("/", "_", "\\", "_", ".", "_")

// ObjectPath returns the object file for a package-relative source. The
// full relative path is kept in the encoded name so distinct sources never
// collide.
func ObjectPath(buildDir, pkg, rel string) string {
	return path.Join(filepath.ToSlash(buildDir), "obj", pkg, objectReplacer.Replace(rel)+".o")
}

// ArchivePath returns the static library produced for pkg.
func ArchivePath(buildDir, pkg string) string {
	return path.Join(filepath.ToSlash(buildDir), "lib", "lib"+pkg+".a")
}

// ExecutablePath returns the linked executable produced for pkg.
func ExecutablePath(buildDir, pkg string, windows bool) string {
	name := pkg
	if windows {
		name += ".exe"
	}
	return path.Join(filepath.ToSlash(buildDir), "bin", name)
}
