package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anchorhq/anchor/internal/extract"
	"github.com/anchorhq/anchor/internal/logging"
)

// Config configures a Builder run.
type Config struct {
	Registry        *extract.Registry
	Roots           []string
	IgnorePatterns  []string // extra globs beyond .gitignore/.anchorignore, from anchor config
	Concurrency     int      // parallel file parses; 0 defaults to 8
	Logger          logging.Func
}

// Result is everything a full or partial build run produced.
type Result struct {
	Extractions  []*extract.FileExtraction
	FilesScanned int
	Errors       []string
	Elapsed      time.Duration
}

// Builder walks a set of repository roots, skips ignored paths, and runs
// the extraction pipeline over every recognized file in parallel.
type Builder struct {
	registry    *extract.Registry
	roots       []string
	ignore      *IgnoreMatcher
	concurrency int
	log         logging.Func
}

// New creates a Builder. The ignore matcher's patterns are loaded eagerly so
// that a single Builder can be reused across repeated Walk calls.
func New(cfg Config) (*Builder, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	logFn := cfg.Logger
	if logFn == nil {
		logFn = logging.New().Infof
	}

	ignore := NewIgnoreMatcher(cfg.Roots, cfg.IgnorePatterns)
	if err := ignore.LoadPatterns(); err != nil {
		return nil, fmt.Errorf("load ignore patterns: %w", err)
	}

	return &Builder{
		registry:    cfg.Registry,
		roots:       cfg.Roots,
		ignore:      ignore,
		concurrency: concurrency,
		log:         logFn,
	}, nil
}

// Walk scans every configured root, extracting every file the registry
// recognizes. Extraction runs with up to Concurrency files in flight at
// once; a parse failure on one file is recorded in Result.Errors and does
// not stop the rest of the walk.
func (b *Builder) Walk(ctx context.Context) (*Result, error) {
	start := time.Now()
	paths, err := b.collectPaths()
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		result = &Result{FilesScanned: len(paths)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			content, err := os.ReadFile(path)
			if err != nil {
				mu.Lock()
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
				mu.Unlock()
				return nil
			}

			fe, err := b.registry.ExtractFile(path, content)
			if err != nil {
				mu.Lock()
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
				mu.Unlock()
				return nil
			}

			mu.Lock()
			result.Extractions = append(result.Extractions, fe)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Elapsed = time.Since(start)
	b.log("build: scanned %d files, extracted %d, %d errors in %s",
		result.FilesScanned, len(result.Extractions), len(result.Errors), result.Elapsed)
	return result, nil
}

// collectPaths walks every root and returns the files worth extracting:
// not ignored, and recognized by the registry's extension index.
func (b *Builder) collectPaths() ([]string, error) {
	exts := make(map[string]bool)
	for _, e := range b.registry.SupportedExtensions() {
		exts[e] = true
	}

	var paths []string
	for _, root := range b.roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if b.ignore.Match(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if b.ignore.Match(path) {
				return nil
			}
			if exts[strings.ToLower(filepath.Ext(path))] {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return paths, nil
}
