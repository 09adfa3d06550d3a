// Package watch regenerates the build description when manifests, profile
// files, hook scripts or C/C++ sources change.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ghost-build/ghost/internal/discover"
)

// DefaultDebounce is the quiet period before a batch of changes is handled.
const DefaultDebounce = 100 * time.Millisecond

// DefaultPatterns are the workspace-relative globs that trigger a batch.
var DefaultPatterns = []string{
	"**/ghost.build",
	"**/*.toml",
	"**/*.lua",
	"**/*.{c,cc,cpp,cxx}",
	"**/*.{h,hh,hpp,hxx,inl}",
}

// Change is one debounced filesystem event. Op accumulates every operation
// seen for Path within the batch.
type Change struct {
	Path string
	Op   fsnotify.Op
}

// Options configures a FileWatcher.
type Options struct {
	Root     string
	Patterns []string
	// Skip lists workspace-relative directories that are never watched,
	// such as the build directory
	Skip     []string
	Debounce time.Duration
	Logger   *zap.Logger
}

// FileWatcher monitors a workspace tree and reports debounced batches of
// changes to onChange.
type FileWatcher struct {
	root      string
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	matcher   *discover.Matcher
	skip      map[string]struct{}
	logger    *zap.Logger
	onChange  func([]Change) error
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewFileWatcher creates a watcher; call Start to begin delivering events.
func NewFileWatcher(opts Options, onChange func([]Change) error) (*FileWatcher, error) {
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	matcher, err := discover.NewMatcher(patterns...)
	if err != nil {
		return nil, err
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw := &FileWatcher{
		root:      root,
		watcher:   watcher,
		debouncer: NewDebouncer(debounce),
		matcher:   matcher,
		skip:      map[string]struct{}{".git": {}, ".ghost": {}},
		logger:    logger,
		onChange:  onChange,
		stopChan:  make(chan struct{}),
	}
	for _, s := range opts.Skip {
		fw.skip[filepath.ToSlash(filepath.Clean(s))] = struct{}{}
	}

	fw.debouncer.SetCallback(func(changes []Change) {
		if err := fw.onChange(changes); err != nil {
			fw.logger.Error("handling file changes", zap.Error(err))
		}
	})
	return fw, nil
}

// Start adds every directory under the root and begins watching in the
// background.
func (fw *FileWatcher) Start() error {
	if err := fw.addTree(fw.root); err != nil {
		return err
	}
	fw.wg.Add(1)
	go fw.watch()
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	select {
	case <-fw.stopChan:
		return nil
	default:
		close(fw.stopChan)
	}

	fw.wg.Wait()
	fw.debouncer.Stop()
	return fw.watcher.Close()
}

// Watched returns the watched directories, sorted.
func (fw *FileWatcher) Watched() []string {
	dirs := fw.watcher.WatchList()
	sort.Strings(dirs)
	return dirs
}

func (fw *FileWatcher) watch() {
	defer fw.wg.Done()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handle(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("watch error", zap.Error(err))

		case <-fw.stopChan:
			return
		}
	}
}

func (fw *FileWatcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	rel, ok := fw.relative(event.Name)
	if !ok || fw.skipped(rel) || ignoredName(filepath.Base(event.Name)) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.addTree(event.Name); err != nil {
				fw.logger.Warn("watching new directory", zap.String("dir", rel), zap.Error(err))
			}
			return
		}
	}

	if !fw.matcher.Match(rel) {
		return
	}
	fw.logger.Debug("file changed", zap.String("path", rel), zap.String("op", event.Op.String()))
	fw.debouncer.Add(event.Name, event.Op)
}

func (fw *FileWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := fw.relative(path); ok && rel != "." && (fw.skipped(rel) || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
}

func (fw *FileWatcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(fw.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// skipped reports whether rel is, or lies under, a skipped directory.
func (fw *FileWatcher) skipped(rel string) bool {
	for dir := range fw.skip {
		if rel == dir || strings.HasPrefix(rel, dir+"/") {
			return true
		}
	}
	return false
}

// ignoredName filters editor swap and backup files.
func ignoredName(base string) bool {
	return strings.HasPrefix(base, ".#") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swo") ||
		base == ".DS_Store"
}
