package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newTestWatcher(t *testing.T, paths []string) *Watcher {
	t.Helper()
	w, err := New(Config{Paths: paths, Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func collect(events <-chan Event, window time.Duration) []Event {
	var collected []Event
	timeout := time.After(window)
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return collected
			}
			collected = append(collected, evt)
		case <-timeout:
			return collected
		}
	}
}

func TestEventDebouncing(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("initial"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t, []string{tmpDir})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := w.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// Give the watcher time to initialize.
	time.Sleep(100 * time.Millisecond)

	// Write to the file multiple times in rapid succession.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(testFile, []byte("content "+string(rune('0'+i))), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Wait for the debounce window to pass.
	time.Sleep(150 * time.Millisecond)

	collected := collect(events, 300*time.Millisecond)

	// Debouncing collapses the rapid writes to one or two events.
	if len(collected) == 0 {
		t.Error("expected at least one debounced event, got none")
	}
	if len(collected) >= 5 {
		t.Errorf("expected debouncing to reduce events, got %d events for 5 writes", len(collected))
	}
	for _, evt := range collected {
		if evt.Path != testFile {
			t.Errorf("unexpected event path: %s", evt.Path)
		}
	}
}

func TestWatcherNewDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, []string{tmpDir})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := w.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(tmpDir, "subdir")
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	// Wait for the directory to be added to the watcher.
	time.Sleep(200 * time.Millisecond)

	newFile := filepath.Join(subDir, "new.txt")
	if err := os.WriteFile(newFile, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(150 * time.Millisecond)

	collected := collect(events, 300*time.Millisecond)
	if len(collected) == 0 {
		t.Error("expected events for new directory/file creation, got none")
	}
}

func TestWatcherExcludedPath(t *testing.T) {
	tmpDir := t.TempDir()

	nmDir := filepath.Join(tmpDir, "node_modules")
	if err := os.MkdirAll(nmDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nmDir, "pkg.js"), []byte("module"), 0644); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t, []string{tmpDir})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := w.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)

	// Write to the denylisted directory and to a normal file.
	if err := os.WriteFile(filepath.Join(nmDir, "pkg.js"), []byte("updated"), 0644); err != nil {
		t.Fatal(err)
	}
	srcFile := filepath.Join(tmpDir, "main.go")
	if err := os.WriteFile(srcFile, []byte("package main"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(150 * time.Millisecond)

	collected := collect(events, 300*time.Millisecond)
	for _, evt := range collected {
		if filepath.Dir(evt.Path) == nmDir || evt.Path == nmDir {
			t.Errorf("got event from excluded directory: %s", evt.Path)
		}
	}
}

type recordingApplier struct {
	mu      sync.Mutex
	updated []string
	removed []string
}

func (a *recordingApplier) UpdateFile(_ context.Context, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updated = append(a.updated, path)
	return nil
}

func (a *recordingApplier) RemoveFile(_ context.Context, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removed = append(a.removed, path)
	return nil
}

func TestRunMapsEventsToApplier(t *testing.T) {
	events := make(chan Event, 4)
	events <- Event{Path: "a.go", Op: Create}
	events <- Event{Path: "a.go", Op: Write}
	events <- Event{Path: "b.go", Op: Remove}
	events <- Event{Path: "c.go", Op: Rename}
	close(events)

	applier := &recordingApplier{}
	Run(context.Background(), events, applier, nil)

	if got := len(applier.updated); got != 2 {
		t.Errorf("want 2 updates, got %d (%v)", got, applier.updated)
	}
	if got := len(applier.removed); got != 2 {
		t.Errorf("want 2 removals, got %d (%v)", got, applier.removed)
	}
}

func TestConvertOp(t *testing.T) {
	tests := []struct {
		name   string
		op     fsnotify.Op
		want   EventOp
		wantOk bool
	}{
		{"create", fsnotify.Create, Create, true},
		{"write", fsnotify.Write, Write, true},
		{"remove", fsnotify.Remove, Remove, true},
		{"rename", fsnotify.Rename, Rename, true},
		{"chmod only", fsnotify.Chmod, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := convertOp(tt.op)
			if ok != tt.wantOk {
				t.Errorf("convertOp(%v) ok = %v, want %v", tt.op, ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("convertOp(%v) = %v, want %v", tt.op, got, tt.want)
			}
		})
	}
}

func TestEventOpString(t *testing.T) {
	tests := []struct {
		op   EventOp
		want string
	}{
		{Create, "Create"},
		{Write, "Write"},
		{Remove, "Remove"},
		{Rename, "Rename"},
		{EventOp(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.op.String(); got != tt.want {
				t.Errorf("EventOp(%d).String() = %q, want %q", tt.op, got, tt.want)
			}
		})
	}
}
