// Package discover expands package source roots into a sorted file list
// using include/exclude glob patterns.
package discover

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// CacheDir is the per-package hidden directory holding debug artifacts.
const CacheDir = ".ghost"

// CacheFile is the file list written under CacheDir after every discovery.
const CacheFile = "files.json"

// FileList is a discovery result: package-relative, forward-slash paths,
// sorted and deduplicated.
type FileList struct {
	Files []string `json:"files"`
}

// Options configures one discovery call.
type Options struct {
	Roots   []string
	Include []string
	Exclude []string
	// BuildDir is excluded in addition to Exclude. Defaults to "build".
	BuildDir string
}

// Matcher matches package-relative paths against a set of doublestar
// patterns.
type Matcher struct {
	patterns []string
}

// NewMatcher validates every pattern.
func NewMatcher(patterns ...string) (*Matcher, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return &Matcher{patterns: patterns}, nil
}

// Match reports whether rel matches any pattern.
func (m *Matcher) Match(rel string) bool {
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Empty reports whether the matcher has no patterns.
func (m *Matcher) Empty() bool { return len(m.patterns) == 0 }

// infraExcludes are always excluded: version control, build output and the
// discovery cache itself.
func infraExcludes(buildDir string) []string {
	if buildDir == "" {
		buildDir = "build"
	}
	return []string{
		"**/.git/**",
		"**/" + filepath.ToSlash(filepath.Clean(buildDir)) + "/**",
		"**/" + CacheDir + "/**",
	}
}

// Discover walks every root under pkgRoot and returns the files that match
// an include pattern and no exclude pattern. Exclusion wins over inclusion.
// Roots that do not exist are skipped. The result is also written to
// <pkgRoot>/.ghost/files.json; that file is never read back.
func Discover(pkgRoot string, opts Options) (*FileList, error) {
	inc, err := NewMatcher(opts.Include...)
	if err != nil {
		return nil, err
	}
	exc, err := NewMatcher(append(append([]string{}, opts.Exclude...), infraExcludes(opts.BuildDir)...)...)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	files := make([]string, 0)

	for _, r := range opts.Roots {
		base := filepath.Join(pkgRoot, r)
		if _, err := os.Stat(base); err != nil {
			continue
		}
		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(pkgRoot, path)
			if err != nil {
				rel = path
			}
			rel = filepath.ToSlash(rel)

			if exc.Match(rel) || !inc.Match(rel) {
				return nil
			}
			if _, dup := seen[rel]; !dup {
				seen[rel] = struct{}{}
				files = append(files, rel)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", base, err)
		}
	}

	sort.Strings(files)
	list := &FileList{Files: files}

	if err := writeCache(pkgRoot, list); err != nil {
		return nil, err
	}
	return list, nil
}

func writeCache(pkgRoot string, list *FileList) error {
	dir := filepath.Join(pkgRoot, CacheDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, CacheFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write file list cache: %w", err)
	}
	return nil
}
