// Package gitutil provides the small git interactions the ignore pipeline
// needs: resolving the user's global excludes file and locating a
// repository root.
package gitutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GlobalExcludesFile resolves the user's global git ignore file: the
// configured core.excludesFile if set, otherwise the XDG default
// ($XDG_CONFIG_HOME/git/ignore, falling back to ~/.config/git/ignore).
// Returns empty string when neither exists.
func GlobalExcludesFile() string {
	if out, err := runGit("", "config", "--get", "core.excludesFile"); err == nil && out != "" {
		return expandHome(out)
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	candidate := filepath.Join(configHome, "git", "ignore")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// RepoRoot returns the top-level directory of the repository containing
// dir, or empty string when dir is not inside a git work tree.
func RepoRoot(dir string) string {
	out, err := runGit(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return ""
	}
	return out
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// runGit executes a git command in the given directory and returns trimmed
// stdout.
func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(output)), nil
}
