package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anchorhq/anchor/internal/extract"
	"github.com/anchorhq/anchor/internal/persist"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "One-shot graph build with snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			logger := newLogger()

			builder, err := newBuilder(cfg, extract.NewRegistry(), logger)
			if err != nil {
				return err
			}

			g, res, err := fullBuild(cmd.Context(), builder)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}

			if err := os.MkdirAll(cfg.ConfigDir, 0o755); err != nil {
				return err
			}
			if err := persist.Save(g, cfg.SnapshotPath()); err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}

			stats := g.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanned %d files in %s (%d skipped with errors)\n",
				res.FilesScanned, res.Elapsed, len(res.Errors))
			fmt.Fprintf(out, "  Files:         %d\n", stats.LiveFiles)
			fmt.Fprintf(out, "  Symbols:       %d\n", stats.LiveSymbols)
			fmt.Fprintf(out, "  Edges:         %d\n", stats.TotalEdges)
			fmt.Fprintf(out, "  Unique names:  %d\n", stats.UniqueNames)
			fmt.Fprintf(out, "Snapshot written to %s\n", cfg.SnapshotPath())
			return nil
		},
	}
	return cmd
}
