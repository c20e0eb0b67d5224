package gitutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandHome("~/ignore"); got != filepath.Join(home, "ignore") {
		t.Errorf("expandHome(~/ignore) = %q", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("expandHome(/abs/path) = %q", got)
	}
}

func TestGlobalExcludesFileXDGFallback(t *testing.T) {
	tmp := t.TempDir()
	gitDir := filepath.Join(tmp, "git")
	if err := os.MkdirAll(gitDir, 0755); err != nil {
		t.Fatal(err)
	}
	ignorePath := filepath.Join(gitDir, "ignore")
	if err := os.WriteFile(ignorePath, []byte("*.swp\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("XDG_CONFIG_HOME", tmp)
	// Point HOME somewhere empty so a real ~/.gitconfig core.excludesFile
	// cannot shadow the XDG fallback under test.
	t.Setenv("HOME", t.TempDir())

	if got := GlobalExcludesFile(); got != ignorePath {
		t.Errorf("GlobalExcludesFile() = %q, want %q", got, ignorePath)
	}
}

func TestRepoRootOutsideRepository(t *testing.T) {
	dir := t.TempDir()
	if got := RepoRoot(dir); got != "" {
		t.Errorf("RepoRoot(%q) = %q, want empty", dir, got)
	}
}
