package watch

import (
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debouncer collects changes and hands them to the callback once no new
// change arrived for the configured duration.
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	changes  map[string]fsnotify.Op
	mutex    sync.Mutex
	callback func([]Change)
	stopped  bool
}

// NewDebouncer creates a new debouncer instance
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		changes:  make(map[string]fsnotify.Op),
	}
}

// Add records op for path and restarts the quiet period.
func (d *Debouncer) Add(path string, op fsnotify.Op) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}

	d.changes[path] |= op
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

// flush delivers the accumulated changes sorted by path. The callback runs
// outside the lock.
func (d *Debouncer) flush() {
	d.mutex.Lock()
	if len(d.changes) == 0 || d.stopped {
		d.mutex.Unlock()
		return
	}
	changes := make([]Change, 0, len(d.changes))
	for path, op := range d.changes {
		changes = append(changes, Change{Path: path, Op: op})
	}
	d.changes = make(map[string]fsnotify.Op)
	callback := d.callback
	d.mutex.Unlock()

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	if callback != nil {
		callback(changes)
	}
}

// SetCallback sets the callback function
func (d *Debouncer) SetCallback(callback func([]Change)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

// Stop cancels a pending flush; later Adds are ignored.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
}
