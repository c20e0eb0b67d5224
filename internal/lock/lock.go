// Package lock implements the dependency-cone symbol lock manager: a
// single mutex guarding a {key -> primary} table, with timeout-bounded
// waits instead of an unbounded sync.Cond.Wait.
package lock

import (
	"sort"
	"sync"
	"time"

	"github.com/anchorhq/anchor/internal/graph"
)

// FileLockName is the distinguished symbol name standing for a whole-file
// lock: acquiring it locks every caller of every symbol defined in the
// file.
const FileLockName = "__file__"

// Key identifies one lockable unit: a symbol within a file, or — when Name
// is FileLockName — the whole file.
type Key struct {
	File string
	Name string
}

// Status is the outcome of an Acquire call.
type Status int

const (
	Acquired Status = iota
	AcquiredAfterWait
	Blocked
)

// Reason explains a Blocked result.
type Reason string

const (
	ReasonHeld    Reason = "held"
	ReasonTimeout Reason = "timeout"
)

// AcquireResult is the outcome of one Acquire call.
type AcquireResult struct {
	Status     Status
	Primary    Key
	Dependents []Key // cone members other than Primary itself
	Blocker    Key
	Reason     Reason
	WaitedMS   int64
}

type entry struct {
	primary    Key
	acquiredAt time.Time
}

// Manager grants mutually exclusive access to a symbol's dependency cone.
// It is the only synchronization point for writes; the graph it reads is
// expected to be held under the caller's own read lock for the duration of
// Acquire/Release (the daemon takes the graph's reader-writer lock on the
// read side while consulting the manager).
type Manager struct {
	g *graph.Graph

	mu    sync.Mutex
	locks map[Key]entry
	gen   chan struct{}
}

// New returns a Manager reading cones from g.
func New(g *graph.Graph) *Manager {
	return &Manager{
		g:     g,
		locks: make(map[Key]entry),
		gen:   make(chan struct{}),
	}
}

// SetGraph swaps the graph cones are computed from. The daemon calls this
// after a full rebuild replaces its graph handle; lock keys are name-based,
// so held locks stay valid across the swap.
func (m *Manager) SetGraph(g *graph.Graph) {
	m.mu.Lock()
	m.g = g
	m.mu.Unlock()
}

// Acquire attempts to lock key's dependency cone within timeout. A
// zero timeout never waits: it either succeeds immediately or returns
// Blocked with ReasonHeld.
func (m *Manager) Acquire(key Key, timeout time.Duration) AcquireResult {
	start := time.Now()
	deadline := start.Add(timeout)
	waited := false

	for {
		m.mu.Lock()
		cone := m.coneFor(key)
		blocker, blocked := m.checkBlocked(cone, key)
		if !blocked {
			m.grant(cone, key)
			m.mu.Unlock()
			return m.acquiredResult(key, cone, waited, start)
		}
		genCh := m.gen
		m.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			reason := ReasonHeld
			if waited {
				reason = ReasonTimeout
			}
			return AcquireResult{Status: Blocked, Blocker: blocker, Reason: reason}
		}

		waited = true
		select {
		case <-genCh:
			// A release happened; loop and recheck.
		case <-time.After(remaining):
			m.mu.Lock()
			cone = m.coneFor(key)
			blocker, blocked = m.checkBlocked(cone, key)
			if !blocked {
				m.grant(cone, key)
				m.mu.Unlock()
				return m.acquiredResult(key, cone, true, start)
			}
			m.mu.Unlock()
			return AcquireResult{Status: Blocked, Blocker: blocker, Reason: ReasonTimeout}
		}
	}
}

func (m *Manager) acquiredResult(key Key, cone []Key, waited bool, start time.Time) AcquireResult {
	deps := make([]Key, 0, len(cone))
	for _, k := range cone {
		if k != key {
			deps = append(deps, k)
		}
	}
	status := Acquired
	var waitedMS int64
	if waited {
		status = AcquiredAfterWait
		waitedMS = time.Since(start).Milliseconds()
	}
	return AcquireResult{Status: status, Primary: key, Dependents: deps, WaitedMS: waitedMS}
}

// ReleaseSignal returns a channel closed by the next Release. Callers that
// must not hold other locks while waiting (the daemon holds the graph read
// lock only for the acquire attempt itself) fetch the channel, retry a
// zero-timeout Acquire, and select on the channel between attempts.
func (m *Manager) ReleaseSignal() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Release removes every lock entry owned by key. For a file-level key it
// removes every entry whose primary belongs to that file, regardless of
// which symbol-level key acquired it.
func (m *Manager) Release(key Key) {
	m.mu.Lock()
	if key.Name == FileLockName {
		for k, e := range m.locks {
			if e.primary.File == key.File {
				delete(m.locks, k)
			}
		}
	} else {
		for k, e := range m.locks {
			if e.primary == key {
				delete(m.locks, k)
			}
		}
	}
	old := m.gen
	m.gen = make(chan struct{})
	m.mu.Unlock()
	close(old)
}

// coneFor computes {key} ∪ dependents(key), where dependents are the
// one-hop Calls-edge callers of every symbol the key reaches: a single
// symbol for a normal key, or every symbol defined in the file for a
// file-level key. Must be called with mu held.
func (m *Manager) coneFor(key Key) []Key {
	seen := map[Key]bool{key: true}
	cone := []Key{key}

	addCallersOf := func(symID graph.NodeID) {
		for _, e := range m.g.Edges(symID, graph.Incoming, graph.EdgeCalls) {
			caller := m.g.LiveNode(e.Source)
			if caller == nil {
				continue
			}
			k := Key{File: caller.FilePath, Name: caller.Name}
			if !seen[k] {
				seen[k] = true
				cone = append(cone, k)
			}
		}
	}

	if key.Name == FileLockName {
		fileID, ok := m.g.FindFile(key.File)
		if !ok {
			return cone
		}
		for _, sym := range m.g.DefinedSymbols(fileID) {
			addCallersOf(sym.ID)
		}
		return cone
	}

	symID, ok := m.g.FindQualified(key.File, key.Name)
	if !ok {
		return cone
	}
	addCallersOf(symID)
	return cone
}

// checkBlocked reports the first cone member already held by a different
// primary, if any. Must be called with mu held.
func (m *Manager) checkBlocked(cone []Key, key Key) (Key, bool) {
	for _, k := range cone {
		if e, ok := m.locks[k]; ok && e.primary != key {
			return e.primary, true
		}
	}
	return Key{}, false
}

// grant records key as the primary for every cone member. Must be called
// with mu held.
func (m *Manager) grant(cone []Key, key Key) {
	now := time.Now()
	for _, k := range cone {
		m.locks[k] = entry{primary: key, acquiredAt: now}
	}
}

// FileStatus is the result of Status(file).
type FileStatus struct {
	Locked  bool
	Primary Key
	AgeMS   int64
}

// Status reports whether any lock is held on file, symbol-level or
// whole-file. The oldest matching entry's primary is reported.
func (m *Manager) Status(file string) FileStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		found  bool
		oldest entry
	)
	for k, e := range m.locks {
		if k.File != file {
			continue
		}
		if !found || e.acquiredAt.Before(oldest.acquiredAt) {
			found = true
			oldest = e
		}
	}
	if !found {
		return FileStatus{}
	}
	return FileStatus{Locked: true, Primary: oldest.primary, AgeMS: time.Since(oldest.acquiredAt).Milliseconds()}
}

// ActiveLock is one primary's full locked set, for ActiveLocks.
type ActiveLock struct {
	Primary Key
	Locked  []Key
	AgeMS   int64
}

// ActiveLocks returns one entry per distinct primary currently holding at
// least one lock.
func (m *Manager) ActiveLocks() []ActiveLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	byPrimary := make(map[Key]*ActiveLock)
	for k, e := range m.locks {
		al, ok := byPrimary[e.primary]
		if !ok {
			al = &ActiveLock{Primary: e.primary, AgeMS: time.Since(e.acquiredAt).Milliseconds()}
			byPrimary[e.primary] = al
		}
		al.Locked = append(al.Locked, k)
	}

	out := make([]ActiveLock, 0, len(byPrimary))
	for _, al := range byPrimary {
		sort.Slice(al.Locked, func(i, j int) bool {
			if al.Locked[i].File != al.Locked[j].File {
				return al.Locked[i].File < al.Locked[j].File
			}
			return al.Locked[i].Name < al.Locked[j].Name
		})
		out = append(out, *al)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Primary.File != out[j].Primary.File {
			return out[i].Primary.File < out[j].Primary.File
		}
		return out[i].Primary.Name < out[j].Primary.Name
	})
	return out
}
