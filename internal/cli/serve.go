package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anchorhq/anchor/internal/build"
	"github.com/anchorhq/anchor/internal/daemon"
	"github.com/anchorhq/anchor/internal/extract"
	"github.com/anchorhq/anchor/internal/watcher"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the daemon: build, watch, and accept connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			logger := newLogger()
			registry := extract.NewRegistry()

			builder, err := newBuilder(cfg, registry, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			g, err := loadOrBuild(ctx, cfg, builder, logger)
			if err != nil {
				return fmt.Errorf("initial build: %w", err)
			}

			srv := daemon.New(daemon.Config{
				Graph:       g,
				Registry:    registry,
				Roots:       cfg.Roots,
				Paths:       daemon.Paths{Dir: cfg.ConfigDir},
				LockTimeout: time.Duration(cfg.Lock.TimeoutSeconds) * time.Second,
				Logger:      logger,
				Builder:     builder,
			})

			ignore := build.NewIgnoreMatcher(cfg.Roots, cfg.Watch.Exclude)
			if err := ignore.LoadPatterns(); err != nil {
				return fmt.Errorf("load ignore patterns: %w", err)
			}
			w, err := watcher.New(watcher.Config{
				Paths:    cfg.Roots,
				Ignore:   ignore,
				Debounce: time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
			})
			if err != nil {
				return fmt.Errorf("watcher: %w", err)
			}
			defer w.Close()

			events, err := w.Start(ctx)
			if err != nil {
				return fmt.Errorf("watcher start: %w", err)
			}
			go watcher.Run(ctx, events, srv, logger.Debugf)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				logger.Infof("shutting down...")
				cancel()
			}()

			err = srv.ListenAndServe(ctx)
			if saveErr := srv.SaveSnapshot(); saveErr != nil {
				logger.Warnf("snapshot save on shutdown failed: %v", saveErr)
			}
			return err
		},
	}
	return cmd
}
