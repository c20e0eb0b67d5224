package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anchorhq/anchor/internal/config"
)

func newInitCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Initialize a .anchor/ project directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			absRoot, err := filepath.Abs(root)
			if err != nil {
				return err
			}

			projectDir := filepath.Join(absRoot, config.ProjectDirName)
			if _, err := os.Stat(filepath.Join(projectDir, config.ProjectConfigFile)); err == nil {
				return fmt.Errorf("%s already exists", filepath.Join(projectDir, config.ProjectConfigFile))
			}
			if err := os.MkdirAll(projectDir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", projectDir, err)
			}

			if name == "" {
				name = filepath.Base(absRoot)
			}
			cfg := &config.Config{
				Project: config.ProjectConfig{Name: name},
				Roots:   []string{absRoot},
				Watch:   config.WatchConfig{DebounceMS: 200},
				Lock:    config.LockConfig{TimeoutSeconds: 30},
				Build:   config.BuildConfig{Concurrency: 8},
			}
			configPath := filepath.Join(projectDir, config.ProjectConfigFile)
			if err := config.WriteConfig(cfg, configPath); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", configPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Next: run 'anchord build' from %s\n", root)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "project name (defaults to the directory name)")
	return cmd
}
