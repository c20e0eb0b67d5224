// Package watcher emits debounced filesystem events for the daemon's
// rebuild path: file created or modified means re-extract, file deleted
// means remove from the graph.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/anchorhq/anchor/internal/build"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	Create EventOp = iota
	Write
	Remove
	Rename
)

// String returns the string representation of EventOp.
func (op EventOp) String() string {
	switch op {
	case Create:
		return "Create"
	case Write:
		return "Write"
	case Remove:
		return "Remove"
	case Rename:
		return "Rename"
	default:
		return "Unknown"
	}
}

// Event represents a debounced file system change.
type Event struct {
	Path string
	Op   EventOp
	Time time.Time
}

// DefaultDebounce is the coalescing window for rapid consecutive writes to
// the same path.
const DefaultDebounce = 200 * time.Millisecond

// Config holds configuration for the file system watcher.
type Config struct {
	Paths    []string
	Ignore   *build.IgnoreMatcher
	Debounce time.Duration // 0 means DefaultDebounce
}

// Watcher watches file system paths for changes and emits debounced events.
type Watcher struct {
	cfg      Config
	debounce time.Duration
	fsw      *fsnotify.Watcher
	mu       sync.Mutex
	closed   bool
}

// New creates a watcher over cfg.Paths, skipping anything cfg.Ignore
// matches.
func New(cfg Config) (*Watcher, error) {
	if cfg.Ignore == nil {
		m := build.NewIgnoreMatcher(cfg.Paths, nil)
		if err := m.LoadPatterns(); err != nil {
			return nil, err
		}
		cfg.Ignore = m
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{cfg: cfg, debounce: debounce}, nil
}

// Start begins watching configured paths and returns a channel of debounced
// events. The channel closes when ctx is cancelled or the underlying
// watcher dies.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	for _, root := range w.cfg.Paths {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	out := make(chan Event, 100)
	go w.eventLoop(ctx, fsw, out)
	return out, nil
}

// Close shuts down the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if !info.IsDir() {
			return nil
		}
		if w.cfg.Ignore.Match(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) {
	defer close(out)

	// Debounce state: map from path to pending event and timer.
	type pending struct {
		event Event
		timer *time.Timer
	}
	pendingEvents := make(map[string]*pending)
	var mu sync.Mutex

	emit := func(evt Event) {
		select {
		case out <- evt:
		case <-ctx.Done():
		}
	}

	flushLater := func(path string) *time.Timer {
		return time.AfterFunc(w.debounce, func() {
			mu.Lock()
			e := pendingEvents[path]
			delete(pendingEvents, path)
			mu.Unlock()
			if e != nil {
				emit(e.event)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, p := range pendingEvents {
				p.timer.Stop()
			}
			mu.Unlock()
			return

		case fsEvent, ok := <-fsw.Events:
			if !ok {
				return
			}

			if w.cfg.Ignore.Match(fsEvent.Name) {
				continue
			}

			op, valid := convertOp(fsEvent.Op)
			if !valid {
				continue
			}

			evt := Event{
				Path: fsEvent.Name,
				Op:   op,
				Time: time.Now(),
			}

			// A freshly created directory must itself be watched.
			if op == Create {
				if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(fsEvent.Name)
				}
			}

			mu.Lock()
			if p, exists := pendingEvents[fsEvent.Name]; exists {
				p.timer.Stop()
				p.event = evt
				p.timer = flushLater(fsEvent.Name)
			} else {
				pendingEvents[fsEvent.Name] = &pending{event: evt, timer: flushLater(fsEvent.Name)}
			}
			mu.Unlock()

		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}
			// Keep watching through transient errors.
		}
	}
}

func convertOp(op fsnotify.Op) (EventOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Create, true
	case op.Has(fsnotify.Write):
		return Write, true
	case op.Has(fsnotify.Remove):
		return Remove, true
	case op.Has(fsnotify.Rename):
		return Rename, true
	default:
		return 0, false
	}
}
