// Package persist stores whole-graph snapshots in an embedded BadgerDB
// directory. A snapshot is staged into a sibling temp directory and
// atomically renamed over the target once the write batch is flushed, so a
// crash mid-save never corrupts the previous snapshot.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/minio/highwayhash"

	"github.com/anchorhq/anchor/internal/extract"
	"github.com/anchorhq/anchor/internal/graph"
)

// Key scheme. Node ids are zero-padded so the default key-ordered iterator
// yields nodes in id order, which Load relies on.
const (
	keyMeta    = "meta"
	prefixNode = "n:"
	prefixEdge = "e:"

	schemaVersion = 1
)

// ErrSnapshotMismatch is returned by Load when the snapshot's schema
// version or grammar-set hash does not match this binary. Callers fall back
// to a full rebuild via the Builder.
var ErrSnapshotMismatch = errors.New("snapshot version mismatch")

// hashKey seeds the grammar-set hash. The value is arbitrary but must be
// stable across releases, or every upgrade would invalidate snapshots.
var hashKey = []byte("anchor-graph-snapshot-v1-hash-ky")

type meta struct {
	Version     int    `json:"version"`
	GrammarHash uint64 `json:"grammar_hash"`
	NodeCount   int    `json:"node_count"`
	EdgeCount   int    `json:"edge_count"`
}

type storedNode struct {
	ID          graph.NodeID   `json:"id"`
	Kind        graph.NodeKind `json:"kind"`
	Name        string         `json:"name"`
	FilePath    string         `json:"file_path"`
	LineStart   int            `json:"line_start"`
	LineEnd     int            `json:"line_end"`
	CodeSnippet string         `json:"code_snippet,omitempty"`
	Features    []string       `json:"features,omitempty"`
	CallLines   []int          `json:"call_lines,omitempty"`
	Removed     bool           `json:"removed,omitempty"`
}

type storedEdge struct {
	Source graph.NodeID   `json:"source"`
	Target graph.NodeID   `json:"target"`
	Kind   graph.EdgeKind `json:"kind"`
}

func nodeKey(id graph.NodeID) []byte { return []byte(fmt.Sprintf("%s%020d", prefixNode, id)) }
func edgeKey(seq int) []byte         { return []byte(fmt.Sprintf("%s%012d", prefixEdge, seq)) }

// grammarHash fingerprints the supported language set. A grammar added or
// dropped between releases changes the hash, which forces a full rebuild
// instead of serving stale extractions.
func grammarHash() uint64 {
	langs := make([]string, 0, len(extract.FileExtensions))
	for lang := range extract.FileExtensions {
		langs = append(langs, string(lang))
	}
	sort.Strings(langs)
	return highwayhash.Sum64([]byte(strings.Join(langs, ",")), hashKey)
}

// Save writes a snapshot of g to dir, staging into dir+".tmp" and renaming
// once the batch is committed.
func Save(g *graph.Graph, dir string) error {
	tmp := dir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("clear snapshot staging dir: %w", err)
	}

	opts := badger.DefaultOptions(tmp)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("open snapshot staging db: %w", err)
	}

	if err := writeSnapshot(db, g); err != nil {
		db.Close()
		os.RemoveAll(tmp)
		return err
	}
	if err := db.Close(); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("close snapshot db: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove previous snapshot: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return fmt.Errorf("install snapshot: %w", err)
	}
	return nil
}

func writeSnapshot(db *badger.DB, g *graph.Graph) error {
	wb := db.NewWriteBatch()
	defer wb.Cancel()

	nodes := collectNodes(g)
	for _, n := range nodes {
		sn := storedNode{
			ID:          n.ID,
			Kind:        n.Kind,
			Name:        n.Name,
			FilePath:    n.FilePath,
			LineStart:   n.LineStart,
			LineEnd:     n.LineEnd,
			CodeSnippet: n.CodeSnippet,
			Features:    n.Features,
			CallLines:   n.CallLines,
			Removed:     n.Removed,
		}
		data, err := json.Marshal(sn)
		if err != nil {
			return fmt.Errorf("marshal node %d: %w", n.ID, err)
		}
		if err := wb.Set(nodeKey(n.ID), data); err != nil {
			return err
		}
	}

	edges := g.AllEdges()
	for i, e := range edges {
		data, err := json.Marshal(storedEdge{Source: e.Source, Target: e.Target, Kind: e.Kind})
		if err != nil {
			return fmt.Errorf("marshal edge %d: %w", i, err)
		}
		if err := wb.Set(edgeKey(i), data); err != nil {
			return err
		}
	}

	m := meta{
		Version:     schemaVersion,
		GrammarHash: grammarHash(),
		NodeCount:   len(nodes),
		EdgeCount:   len(edges),
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal snapshot meta: %w", err)
	}
	if err := wb.Set([]byte(keyMeta), data); err != nil {
		return err
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush snapshot batch: %w", err)
	}
	return nil
}

// collectNodes returns every node, removed ones included, sorted by id.
// Removed nodes must survive a round trip because edges may still reference
// them until the next compaction.
func collectNodes(g *graph.Graph) []*graph.Node {
	seen := make(map[graph.NodeID]*graph.Node)
	add := func(n *graph.Node) { seen[n.ID] = n }

	for _, n := range g.AllFiles() {
		add(n)
	}
	for _, n := range g.AllSymbols() {
		add(n)
	}
	for _, file := range g.AllFiles() {
		for _, n := range g.ImportNodes(file.ID) {
			add(n)
		}
	}
	// Removed nodes are reachable only through edges.
	for _, e := range g.AllEdges() {
		for _, id := range []graph.NodeID{e.Source, e.Target} {
			if _, ok := seen[id]; ok {
				continue
			}
			if n := g.Node(id); n != nil {
				add(n)
			}
		}
	}

	out := make([]*graph.Node, 0, len(seen))
	for _, n := range seen {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Load reads the snapshot at dir into a fresh graph: nodes materialize in
// id order, indexes rebuild from live nodes, then edges attach. Any
// failure — missing directory, corrupt value, version mismatch — is an
// error; the caller falls back to a full rebuild.
func Load(dir string) (*graph.Graph, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("snapshot dir: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.ReadOnly = true
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	defer db.Close()

	g := graph.New()
	err = db.View(func(txn *badger.Txn) error {
		if err := checkMeta(txn); err != nil {
			return err
		}
		if err := loadNodes(txn, g); err != nil {
			return err
		}
		return loadEdges(txn, g)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func checkMeta(txn *badger.Txn) error {
	item, err := txn.Get([]byte(keyMeta))
	if err != nil {
		return fmt.Errorf("read snapshot meta: %w", err)
	}
	var m meta
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &m)
	}); err != nil {
		return fmt.Errorf("parse snapshot meta: %w", err)
	}
	if m.Version != schemaVersion || m.GrammarHash != grammarHash() {
		return ErrSnapshotMismatch
	}
	return nil
}

func loadNodes(txn *badger.Txn, g *graph.Graph) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	prefix := []byte(prefixNode)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var sn storedNode
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &sn)
		}); err != nil {
			return fmt.Errorf("parse node %s: %w", it.Item().Key(), err)
		}
		g.RestoreNode(&graph.Node{
			ID:          sn.ID,
			Kind:        sn.Kind,
			Name:        sn.Name,
			FilePath:    sn.FilePath,
			LineStart:   sn.LineStart,
			LineEnd:     sn.LineEnd,
			CodeSnippet: sn.CodeSnippet,
			Features:    sn.Features,
			CallLines:   sn.CallLines,
			Removed:     sn.Removed,
		})
	}
	return nil
}

func loadEdges(txn *badger.Txn, g *graph.Graph) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	prefix := []byte(prefixEdge)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var se storedEdge
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &se)
		}); err != nil {
			return fmt.Errorf("parse edge %s: %w", it.Item().Key(), err)
		}
		g.AddEdge(se.Source, se.Target, se.Kind)
	}
	return nil
}
