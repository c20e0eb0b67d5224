// Package config handles configuration loading and validation for Anchor.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ProjectDirName is the per-project state directory name.
	ProjectDirName = ".anchor"
	// ProjectConfigFile is the config filename inside the project dir.
	ProjectConfigFile = "config.yaml"
	// DefaultSnapshotDir is the graph snapshot directory name inside the
	// project dir.
	DefaultSnapshotDir = "graph.bin"
	// DefaultSocketFile is the daemon socket name inside the project dir.
	DefaultSocketFile = "anchor.sock"
)

// Config holds all configuration for Anchor.
type Config struct {
	// Project contains project metadata.
	Project ProjectConfig `mapstructure:"project" yaml:"project"`
	// Roots lists the source trees to ingest.
	Roots []string `mapstructure:"roots" yaml:"roots"`
	// Watch contains file watching configuration.
	Watch WatchConfig `mapstructure:"watch" yaml:"watch"`
	// Lock contains symbol lock configuration.
	Lock LockConfig `mapstructure:"lock" yaml:"lock"`
	// Build contains extraction pipeline configuration.
	Build BuildConfig `mapstructure:"build" yaml:"build"`
	// Daemon contains socket and snapshot path overrides.
	Daemon DaemonConfig `mapstructure:"daemon" yaml:"daemon"`
	// ConfigDir is the resolved .anchor directory path (not persisted).
	ConfigDir string `mapstructure:"-" yaml:"-"`
}

// ProjectConfig holds project metadata.
type ProjectConfig struct {
	// Name is the project name.
	Name string `mapstructure:"name" yaml:"name"`
}

// WatchConfig holds file watching configuration.
type WatchConfig struct {
	// Exclude lists glob patterns to exclude, on top of ignore files.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
	// DebounceMS is the event coalescing window in milliseconds.
	DebounceMS int `mapstructure:"debounce_ms" yaml:"debounce_ms"`
}

// LockConfig holds symbol lock configuration.
type LockConfig struct {
	// TimeoutSeconds bounds how long a write waits on a contended cone.
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// BuildConfig holds extraction pipeline configuration.
type BuildConfig struct {
	// Concurrency is the number of parallel file parses.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// DaemonConfig holds socket and snapshot path overrides.
type DaemonConfig struct {
	// SocketPath replaces <ConfigDir>/anchor.sock in Config.SocketPath.
	// The daemon and the status command do not read it: they always
	// listen on and dial <ConfigDir>/anchor.sock.
	SocketPath string `mapstructure:"socket_path" yaml:"socket_path"`
	// SnapshotPath overrides <ConfigDir>/graph.bin.
	SnapshotPath string `mapstructure:"snapshot_path" yaml:"snapshot_path"`
}

// DiscoverProjectDir walks up from startDir looking for a .anchor/
// directory. Returns its full path, or empty string if not found.
func DiscoverProjectDir(startDir string) string {
	dir := startDir
	for {
		candidate := filepath.Join(dir, ProjectDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return ""
}

// SocketPath resolves the daemon socket location.
func (c *Config) SocketPath() string {
	if c.Daemon.SocketPath != "" {
		return c.Daemon.SocketPath
	}
	return filepath.Join(c.ConfigDir, DefaultSocketFile)
}

// SnapshotPath resolves the graph snapshot location.
func (c *Config) SnapshotPath() string {
	if c.Daemon.SnapshotPath != "" {
		return c.Daemon.SnapshotPath
	}
	return filepath.Join(c.ConfigDir, DefaultSnapshotDir)
}

// Load loads configuration from file, environment variables, and defaults.
// Search order:
//  1. --config flag (explicit path via global viper)
//  2. Walk up from CWD for .anchor/config.yaml
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("ANCHOR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var configDir string

	globalViper := viper.GetViper()
	if configFile := globalViper.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
		// Derive configDir from the config file's directory if it's inside
		// a .anchor dir.
		cfgParent := filepath.Dir(configFile)
		if filepath.Base(cfgParent) == ProjectDirName {
			configDir = cfgParent
		}
	} else {
		cwd, err := os.Getwd()
		if err == nil {
			if projDir := DiscoverProjectDir(cwd); projDir != "" {
				configDir = projDir
				configFile := filepath.Join(projDir, ProjectConfigFile)
				if _, err := os.Stat(configFile); err == nil {
					v.SetConfigFile(configFile)
				}
			}
		}
	}

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Load .env from the discovered .anchor/ directory.
	if configDir != "" {
		loadEnvFile(filepath.Join(configDir, ".env"))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.ConfigDir = configDir

	// With no config file, default the roots to the project containing
	// the .anchor dir, or the CWD.
	if len(cfg.Roots) == 0 {
		if configDir != "" {
			cfg.Roots = []string{filepath.Dir(configDir)}
		} else if cwd, err := os.Getwd(); err == nil {
			cfg.Roots = []string{cwd}
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 {
		return fmt.Errorf("at least one source root must be configured")
	}
	for i, root := range c.Roots {
		if root == "" {
			return fmt.Errorf("root %d: path is required", i)
		}
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must be non-negative, got %d", c.Watch.DebounceMS)
	}
	if c.Lock.TimeoutSeconds < 0 {
		return fmt.Errorf("lock.timeout_seconds must be non-negative, got %d", c.Lock.TimeoutSeconds)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("project.name", "")

	v.SetDefault("watch.exclude", []string{
		"**/node_modules/**",
		"**/.git/**",
		"**/vendor/**",
		"**/__pycache__/**",
		"**/dist/**",
		"**/build/**",
	})
	v.SetDefault("watch.debounce_ms", 200)

	v.SetDefault("lock.timeout_seconds", 30)
	v.SetDefault("build.concurrency", 8)
}

// loadEnvFile reads a .env file and sets environment variables from it.
// Each line should be in KEY=VALUE format. Lines starting with # and blank
// lines are skipped. Values are not overridden if the environment variable
// is already set.
func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return // file doesn't exist or can't be read; silently skip
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
