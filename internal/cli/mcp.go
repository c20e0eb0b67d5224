package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anchorhq/anchor/internal/daemon"
	"github.com/anchorhq/anchor/internal/extract"
	"github.com/anchorhq/anchor/internal/mcpbridge"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Expose the graph tools over a stdio adapter",
		Long: `Start a JSON-RPC 2.0 server over stdin/stdout exposing the five graph
tools (context, search, map, impact, write) against an in-process graph
handle. Typically invoked by an agent runtime, not run directly.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
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

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				cancel()
			}()

			// Keep stdout clean for JSON-RPC.
			fmt.Fprintln(os.Stderr, "anchor stdio adapter started")

			bridge := mcpbridge.NewServer(srv)
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("stdio adapter: %w", err)
			}
			return nil
		},
	}
	return cmd
}
