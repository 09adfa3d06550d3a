package manifest

import (
	"fmt"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultLoaderSize = 256

// Member is a loaded workspace member: its canonical root and its manifest.
type Member struct {
	Root     string
	Manifest *Package
}

// Loader loads package manifests at most once per canonical root. A single
// Loader is shared by the metadata collector and the graph compiler during
// one invocation.
type Loader struct {
	base  string
	cache *lru.Cache[string, *Package]
}

// NewLoader creates a loader that resolves relative member paths against base.
func NewLoader(base string) *Loader {
	cache, err := lru.New[string, *Package](defaultLoaderSize)
	if err != nil {
		// only fails on a non-positive size
		panic(err)
	}
	return &Loader{base: base, cache: cache}
}

// Member canonicalizes the member path and loads its manifest.
func (l *Loader) Member(path string) (*Member, error) {
	root, err := Canonical(l.base, path)
	if err != nil {
		return nil, err
	}
	if pkg, ok := l.cache.Get(root); ok {
		return &Member{Root: root, Manifest: pkg}, nil
	}
	pkg, err := LoadPackage(filepath.Join(root, FileName))
	if err != nil {
		return nil, err
	}
	l.cache.Add(root, pkg)
	return &Member{Root: root, Manifest: pkg}, nil
}

// Canonical resolves path against base, makes it absolute and resolves
// symlinks. The directory must exist.
func Canonical(base, path string) (string, error) {
	p := path
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve member %s: %w", path, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve member %s: %w", path, err)
	}
	return real, nil
}
