package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anchorhq/anchor/internal/build"
	"github.com/anchorhq/anchor/internal/config"
	"github.com/anchorhq/anchor/internal/extract"
	"github.com/anchorhq/anchor/internal/graph"
	"github.com/anchorhq/anchor/internal/logging"
	"github.com/anchorhq/anchor/internal/mutate"
	"github.com/anchorhq/anchor/internal/persist"
)

// loadConfig loads and validates the project config, requiring a
// discovered or explicit .anchor directory unless allowImplicit is set.
func loadConfig(allowImplicit bool) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.ConfigDir == "" {
		if !allowImplicit {
			return nil, fmt.Errorf("no .anchor directory found; run 'anchord init' first")
		}
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		cfg.ConfigDir = filepath.Join(cwd, config.ProjectDirName)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger() *logging.Logger {
	logger := logging.New()
	if verbose {
		logger = logger.WithLevel(logging.LevelDebug)
	}
	return logger
}

func newBuilder(cfg *config.Config, registry *extract.Registry, logger *logging.Logger) (*build.Builder, error) {
	return build.New(build.Config{
		Registry:       registry,
		Roots:          cfg.Roots,
		IgnorePatterns: cfg.Watch.Exclude,
		Concurrency:    cfg.Build.Concurrency,
		Logger:         logger.Debugf,
	})
}

// fullBuild walks the roots and ingests everything into a fresh graph.
func fullBuild(ctx context.Context, builder *build.Builder) (*graph.Graph, *build.Result, error) {
	res, err := builder.Walk(ctx)
	if err != nil {
		return nil, nil, err
	}
	g := graph.New()
	mutate.BuildFromExtractions(g, res.Extractions)
	return g, res, nil
}

// loadOrBuild restores the snapshot, falling back to a full rebuild when
// the snapshot is missing, corrupt, or from another grammar set.
func loadOrBuild(ctx context.Context, cfg *config.Config, builder *build.Builder, logger *logging.Logger) (*graph.Graph, error) {
	g, err := persist.Load(cfg.SnapshotPath())
	if err == nil {
		logger.Infof("loaded snapshot from %s", cfg.SnapshotPath())
		return g, nil
	}
	logger.Infof("snapshot unavailable (%v); rebuilding", err)

	g, res, err := fullBuild(ctx, builder)
	if err != nil {
		return nil, err
	}
	logger.Infof("built graph from %d files (%d errors) in %s",
		res.FilesScanned, len(res.Errors), res.Elapsed)

	if err := os.MkdirAll(cfg.ConfigDir, 0o755); err != nil {
		return nil, err
	}
	if err := persist.Save(g, cfg.SnapshotPath()); err != nil {
		logger.Warnf("snapshot save failed: %v", err)
	}
	return g, nil
}
