// Package daemon serves the line-delimited JSON protocol over a local
// stream socket: one request line per connection, one response line back.
// Reads run against a reader-writer-protected graph handle; writes acquire
// symbol locks and take the write side briefly for index updates.
package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anchorhq/anchor/internal/build"
	"github.com/anchorhq/anchor/internal/extract"
	"github.com/anchorhq/anchor/internal/graph"
	"github.com/anchorhq/anchor/internal/lock"
	"github.com/anchorhq/anchor/internal/logging"
	"github.com/anchorhq/anchor/internal/mutate"
	"github.com/anchorhq/anchor/internal/persist"
	"github.com/anchorhq/anchor/internal/write"
)

// DefaultLockTimeout bounds how long a write request waits on a contended
// dependency cone before failing with a blocked-by error.
const DefaultLockTimeout = 30 * time.Second

// Paths locates the daemon's project-local state directory.
type Paths struct {
	Dir string // the .anchor directory
}

// Socket is the stream socket clients dial.
func (p Paths) Socket() string { return filepath.Join(p.Dir, "anchor.sock") }

// Snapshot is the persisted graph location.
func (p Paths) Snapshot() string { return filepath.Join(p.Dir, "graph.bin") }

// PIDFile records the server process id for liveness checks.
func (p Paths) PIDFile() string { return filepath.Join(p.Dir, "daemon.pid") }

// Config wires a Server.
type Config struct {
	Graph       *graph.Graph
	Registry    *extract.Registry
	Roots       []string
	Paths       Paths
	LockTimeout time.Duration
	Logger      *logging.Logger
	Builder     *build.Builder // used by Rebuild; optional for query-only servers
}

// Server owns the graph handle and its reader-writer lock, the lock
// manager, and the write service.
type Server struct {
	mu sync.RWMutex
	g  *graph.Graph

	locks       *lock.Manager
	writes      *write.Service
	registry    *extract.Registry
	builder     *build.Builder
	roots       []string
	paths       Paths
	lockTimeout time.Duration
	log         *logging.Logger

	shuttingDown atomic.Bool
}

// New creates a Server over an already-built graph.
func New(cfg Config) *Server {
	timeout := cfg.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New()
	}
	return &Server{
		g:           cfg.Graph,
		locks:       lock.New(cfg.Graph),
		writes:      write.New(),
		registry:    cfg.Registry,
		builder:     cfg.Builder,
		roots:       cfg.Roots,
		paths:       cfg.Paths,
		lockTimeout: timeout,
		log:         logger,
	}
}

// ListenAndServe accepts connections until Shutdown or ctx cancellation.
// Each connection carries exactly one request.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.MkdirAll(s.paths.Dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	_ = os.Remove(s.paths.Socket())

	ln, err := net.Listen("unix", s.paths.Socket())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.paths.Socket(), err)
	}

	if err := os.WriteFile(s.paths.PIDFile(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		ln.Close()
		return fmt.Errorf("write pid file: %w", err)
	}

	defer func() {
		ln.Close()
		os.Remove(s.paths.Socket())
		os.Remove(s.paths.PIDFile())
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	s.log.Infof("daemon: listening on %s", s.paths.Socket())
	for {
		conn, err := ln.Accept()
		if s.shuttingDown.Load() {
			if err == nil {
				conn.Close()
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go s.serveConn(ctx, conn)
	}
}

// Shutdown stores the shutdown flag and dials one self-loopback connection
// to unblock the accepting goroutine.
func (s *Server) Shutdown() {
	if !s.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	if conn, err := net.DialTimeout("unix", s.paths.Socket(), time.Second); err == nil {
		conn.Close()
	}
}

// serveConn reads one request line, dispatches it, writes one response
// line, and closes.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	if !scanner.Scan() {
		return
	}
	line := scanner.Bytes()
	if len(line) == 0 {
		return
	}

	req, err := decodeRequest(line)
	var resp Response
	if err != nil {
		resp = errResponse("malformed request: " + err.Error())
	} else {
		resp = s.Handle(ctx, req)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(errResponse("encode response: " + err.Error()))
	}
	fmt.Fprintf(conn, "%s\n", data)
}

// UpdateFile re-reads and re-extracts path under the graph write lock. It
// is the watcher's rebuild-file entry point and the tail of every client
// write.
func (s *Server) UpdateFile(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	fe, err := s.registry.ExtractFile(path, content)
	if err != nil {
		return fmt.Errorf("extract %s: %w", path, err)
	}

	s.mu.Lock()
	mutate.UpdateFileIncremental(s.g, fe)
	s.mu.Unlock()
	return nil
}

// RemoveFile drops path's symbols from the graph.
func (s *Server) RemoveFile(_ context.Context, path string) error {
	s.mu.Lock()
	mutate.RemoveFile(s.g, path)
	s.mu.Unlock()
	return nil
}

// Rebuild runs a full Builder walk and swaps in the freshly built graph.
func (s *Server) Rebuild(ctx context.Context) (StatsResult, error) {
	if s.builder == nil {
		return StatsResult{}, fmt.Errorf("no builder configured")
	}
	res, err := s.builder.Walk(ctx)
	if err != nil {
		return StatsResult{}, err
	}

	fresh := graph.New()
	mutate.BuildFromExtractions(fresh, res.Extractions)

	s.mu.Lock()
	s.g = fresh
	s.mu.Unlock()
	s.locks.SetGraph(fresh)

	if err := persist.Save(fresh, s.paths.Snapshot()); err != nil {
		s.log.Warnf("daemon: snapshot save failed: %v", err)
	}

	stats := fresh.Stats()
	return StatsResult{
		Files:       stats.LiveFiles,
		Symbols:     stats.LiveSymbols,
		Edges:       stats.TotalEdges,
		UniqueNames: stats.UniqueNames,
	}, nil
}

// SaveSnapshot persists the current graph, for shutdown paths.
func (s *Server) SaveSnapshot() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return persist.Save(s.g, s.paths.Snapshot())
}
