package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]Change
}

func (r *recorder) record(changes []Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, changes)
	return nil
}

func (r *recorder) all() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Change
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	done := make(chan []Change, 4)
	d.SetCallback(func(c []Change) { done <- c })

	d.Add("b.cpp", fsnotify.Write)
	d.Add("a.cpp", fsnotify.Create)
	d.Add("a.cpp", fsnotify.Write)

	select {
	case got := <-done:
		assert.Equal(t, []Change{
			{Path: "a.cpp", Op: fsnotify.Create | fsnotify.Write},
			{Path: "b.cpp", Op: fsnotify.Write},
		}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never flushed")
	}

	select {
	case extra := <-done:
		t.Fatalf("unexpected second batch: %v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_StopDropsPending(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	called := make(chan struct{}, 1)
	d.SetCallback(func([]Change) { called <- struct{}{} })

	d.Add("a.cpp", fsnotify.Write)
	d.Stop()
	d.Add("b.cpp", fsnotify.Write)

	select {
	case <-called:
		t.Fatal("callback ran after Stop")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAnalyzeImpact(t *testing.T) {
	tests := []struct {
		name    string
		changes []Change
		scope   Scope
	}{
		{"empty", nil, ScopeNone},
		{"source write", []Change{{Path: "/w/src/a.cpp", Op: fsnotify.Write}}, ScopeRebuild},
		{"source created", []Change{{Path: "/w/src/b.cpp", Op: fsnotify.Create}}, ScopeRegenerate},
		{"source removed", []Change{{Path: "/w/src/a.cpp", Op: fsnotify.Remove}}, ScopeRegenerate},
		{"source renamed", []Change{{Path: "/w/src/a.cpp", Op: fsnotify.Rename}}, ScopeRegenerate},
		{"manifest write", []Change{{Path: "/w/ghost.build", Op: fsnotify.Write}}, ScopeRegenerate},
		{"profile write", []Change{{Path: "/w/release.toml", Op: fsnotify.Write}}, ScopeRegenerate},
		{"hook write", []Change{{Path: "/w/build.lua", Op: fsnotify.Write}}, ScopeRegenerate},
		{"mixed", []Change{
			{Path: "/w/src/a.cpp", Op: fsnotify.Write},
			{Path: "/w/ghost.build", Op: fsnotify.Write},
		}, ScopeRegenerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.scope, AnalyzeImpact(tt.changes, "ghost.build").Scope)
		})
	}
}

func TestAnalyzeImpact_Buckets(t *testing.T) {
	impact := AnalyzeImpact([]Change{
		{Path: "/w/a.cpp", Op: fsnotify.Write},
		{Path: "/w/b.cpp", Op: fsnotify.Create | fsnotify.Write},
		{Path: "/w/c.cpp", Op: fsnotify.Remove},
		{Path: "/w/lib/ghost.build", Op: fsnotify.Write},
	}, "ghost.build")

	assert.Equal(t, []string{"/w/a.cpp"}, impact.Modified)
	assert.Equal(t, []string{"/w/b.cpp"}, impact.Added)
	assert.Equal(t, []string{"/w/c.cpp"}, impact.Removed)
	assert.Equal(t, []string{"/w/lib/ghost.build"}, impact.Inputs)
}

func TestScope_String(t *testing.T) {
	assert.Equal(t, "none", ScopeNone.String())
	assert.Equal(t, "rebuild", ScopeRebuild.String())
	assert.Equal(t, "regenerate", ScopeRegenerate.String())
	assert.Equal(t, "unknown", Scope(42).String())
}

func TestIgnoredName(t *testing.T) {
	for _, name := range []string{".#main.cpp", "main.cpp~", ".main.cpp.swp", ".main.cpp.swo", ".DS_Store"} {
		assert.True(t, ignoredName(name), name)
	}
	assert.False(t, ignoredName("main.cpp"))
}

func newWatcher(t *testing.T, root string, rec *recorder) *FileWatcher {
	t.Helper()
	w, err := NewFileWatcher(Options{
		Root:     root,
		Skip:     []string{"build"},
		Debounce: 50 * time.Millisecond,
	}, rec.record)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestFileWatcher_SkipsBuildAndHiddenDirs(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"src", "build/obj", ".git/objects"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0755))
	}

	w := newWatcher(t, root, &recorder{})
	require.NoError(t, w.Start())

	watched := w.Watched()
	assert.Contains(t, watched, filepath.Join(root, "src"))
	assert.NotContains(t, watched, filepath.Join(root, "build"))
	assert.NotContains(t, watched, filepath.Join(root, "build", "obj"))
	assert.NotContains(t, watched, filepath.Join(root, ".git"))
}

func TestFileWatcher_ReportsMatchingChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	source := filepath.Join(root, "src", "main.cpp")
	require.NoError(t, os.WriteFile(source, []byte("int main() {}\n"), 0644))

	rec := &recorder{}
	w := newWatcher(t, root, rec)
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(source, []byte("int main() { return 0; }\n"), 0644))

	require.Eventually(t, func() bool { return rec.count() > 0 }, 2*time.Second, 20*time.Millisecond)

	for _, c := range rec.all() {
		assert.NotEqual(t, "notes.txt", filepath.Base(c.Path))
	}
	var paths []string
	for _, c := range rec.all() {
		paths = append(paths, c.Path)
	}
	assert.Contains(t, paths, source)
}

func TestFileWatcher_StopIsIdempotent(t *testing.T) {
	w := newWatcher(t, t.TempDir(), &recorder{})
	require.NoError(t, w.Start())
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

type fakeHandler struct {
	mu          sync.Mutex
	regenerated []*Impact
	rebuilds    int
	changed     bool
}

func (h *fakeHandler) Regenerate(_ context.Context, impact *Impact) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.regenerated = append(h.regenerated, impact)
	return h.changed, nil
}

func (h *fakeHandler) Rebuild(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rebuilds++
	return nil
}

func newSession(t *testing.T, h Handler, run bool) *Session {
	t.Helper()
	s, err := NewSession(SessionOptions{
		Watch:    Options{Root: t.TempDir()},
		Manifest: "ghost.build",
		Run:      run,
	}, h)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.watcher.Stop() })
	return s
}

func TestSession_SourceWriteRebuildsOnlyWhenRunning(t *testing.T) {
	write := []Change{{Path: "/w/a.cpp", Op: fsnotify.Write}}

	h := &fakeHandler{}
	require.NoError(t, newSession(t, h, false).HandleChanges(write))
	assert.Empty(t, h.regenerated)
	assert.Equal(t, 0, h.rebuilds)

	h = &fakeHandler{}
	require.NoError(t, newSession(t, h, true).HandleChanges(write))
	assert.Empty(t, h.regenerated)
	assert.Equal(t, 1, h.rebuilds)
}

func TestSession_ManifestChangeRegenerates(t *testing.T) {
	h := &fakeHandler{changed: true}
	s := newSession(t, h, true)

	require.NoError(t, s.HandleChanges([]Change{{Path: "/w/ghost.build", Op: fsnotify.Write}}))
	require.Len(t, h.regenerated, 1)
	assert.Equal(t, ScopeRegenerate, h.regenerated[0].Scope)
	assert.Equal(t, 1, h.rebuilds)
}

func TestSession_UnchangedRegenerationSkipsRebuild(t *testing.T) {
	h := &fakeHandler{changed: false}
	s := newSession(t, h, true)

	require.NoError(t, s.HandleChanges([]Change{{Path: "/w/build.lua", Op: fsnotify.Write}}))
	assert.Len(t, h.regenerated, 1)
	assert.Equal(t, 0, h.rebuilds)
}
