// Package cli implements the command-line interface for Anchor.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "anchord",
	Short: "Anchor - code intelligence daemon for AI coding agents",
	Long: `Anchor ingests source trees in multiple languages, extracts symbols and
call relationships into a persistent code graph, and serves queries
(symbol lookup, callers/callees, impact analysis, codebase map) and
dependency-locked writes over a local socket daemon.

Commands:
  init       Initialize a .anchor/ project directory
  build      One-shot graph build with snapshot
  serve      Start the daemon: build, watch, and accept connections
  status     Show daemon liveness and graph stats
  mcp        Expose the graph tools over a stdio adapter`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .anchor/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	if err := viper.BindPFlag("config_file", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		panic(fmt.Sprintf("failed to bind config flag: %v", err))
	}

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}
