package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(origDir); err != nil {
			t.Errorf("failed to restore working directory: %v", err)
		}
	})
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	projectDir := filepath.Join(tmpDir, ProjectDirName)
	if err := os.Mkdir(projectDir, 0755); err != nil {
		t.Fatalf("failed to create .anchor dir: %v", err)
	}

	configContent := `project:
  name: "test-project"

roots:
  - /tmp/test-repo
  - /tmp/shared-lib

watch:
  exclude:
    - "**/node_modules/**"
    - "**/.git/**"
  debounce_ms: 150

lock:
  timeout_seconds: 10

build:
  concurrency: 4
`
	configPath := filepath.Join(projectDir, ProjectConfigFile)
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	chdir(t, tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Project.Name != "test-project" {
		t.Errorf("project name = %q, want test-project", cfg.Project.Name)
	}
	if len(cfg.Roots) != 2 || cfg.Roots[0] != "/tmp/test-repo" {
		t.Errorf("roots = %v", cfg.Roots)
	}
	if cfg.Watch.DebounceMS != 150 {
		t.Errorf("debounce_ms = %d, want 150", cfg.Watch.DebounceMS)
	}
	if cfg.Lock.TimeoutSeconds != 10 {
		t.Errorf("timeout_seconds = %d, want 10", cfg.Lock.TimeoutSeconds)
	}
	if cfg.Build.Concurrency != 4 {
		t.Errorf("concurrency = %d, want 4", cfg.Build.Concurrency)
	}
	if cfg.ConfigDir != projectDir {
		t.Errorf("ConfigDir = %q, want %q", cfg.ConfigDir, projectDir)
	}
}

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Watch.DebounceMS != 200 {
		t.Errorf("default debounce_ms = %d, want 200", cfg.Watch.DebounceMS)
	}
	if cfg.Lock.TimeoutSeconds != 30 {
		t.Errorf("default timeout_seconds = %d, want 30", cfg.Lock.TimeoutSeconds)
	}
	if len(cfg.Roots) != 1 {
		t.Fatalf("expected CWD fallback root, got %v", cfg.Roots)
	}
}

func TestLoadDiscoversProjectDirFromSubdirectory(t *testing.T) {
	tmpDir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	projectDir := filepath.Join(tmpDir, ProjectDirName)
	if err := os.Mkdir(projectDir, 0755); err != nil {
		t.Fatal(err)
	}
	subDir := filepath.Join(tmpDir, "src", "deep")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	chdir(t, subDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ConfigDir != projectDir {
		t.Errorf("ConfigDir = %q, want %q", cfg.ConfigDir, projectDir)
	}
	// Roots default to the directory containing .anchor.
	if len(cfg.Roots) != 1 || cfg.Roots[0] != tmpDir {
		t.Errorf("roots = %v, want [%s]", cfg.Roots, tmpDir)
	}
}

func TestSocketAndSnapshotPathResolution(t *testing.T) {
	cfg := &Config{ConfigDir: "/proj/.anchor"}
	if got := cfg.SocketPath(); got != filepath.Join("/proj/.anchor", DefaultSocketFile) {
		t.Errorf("SocketPath() = %q", got)
	}
	if got := cfg.SnapshotPath(); got != filepath.Join("/proj/.anchor", DefaultSnapshotDir) {
		t.Errorf("SnapshotPath() = %q", got)
	}

	cfg.Daemon.SocketPath = "/custom/sock"
	cfg.Daemon.SnapshotPath = "/custom/graph"
	if got := cfg.SocketPath(); got != "/custom/sock" {
		t.Errorf("SocketPath() override = %q", got)
	}
	if got := cfg.SnapshotPath(); got != "/custom/graph" {
		t.Errorf("SnapshotPath() override = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "no roots",
			cfg:     Config{},
			wantErr: "at least one source root",
		},
		{
			name:    "empty root",
			cfg:     Config{Roots: []string{""}},
			wantErr: "path is required",
		},
		{
			name:    "negative debounce",
			cfg:     Config{Roots: []string{"/tmp"}, Watch: WatchConfig{DebounceMS: -1}},
			wantErr: "debounce_ms",
		},
		{
			name:    "negative lock timeout",
			cfg:     Config{Roots: []string{"/tmp"}, Lock: LockConfig{TimeoutSeconds: -5}},
			wantErr: "timeout_seconds",
		},
		{
			name: "valid",
			cfg:  Config{Roots: []string{"/tmp"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	projectDir := filepath.Join(tmpDir, ProjectDirName)
	if err := os.Mkdir(projectDir, 0755); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{
		Project: ProjectConfig{Name: "written"},
		Roots:   []string{tmpDir},
		Watch:   WatchConfig{DebounceMS: 250},
		Lock:    LockConfig{TimeoutSeconds: 5},
	}
	path := filepath.Join(projectDir, ProjectConfigFile)
	if err := WriteConfig(cfg, path); err != nil {
		t.Fatalf("WriteConfig() error: %v", err)
	}

	chdir(t, tmpDir)
	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Project.Name != "written" {
		t.Errorf("round-tripped name = %q", loaded.Project.Name)
	}
	if loaded.Watch.DebounceMS != 250 {
		t.Errorf("round-tripped debounce = %d", loaded.Watch.DebounceMS)
	}
}

func TestLoadEnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env")
	content := "ANCHOR_TEST_KEY=from_env_file\n# comment\n\nBADLINE\n"
	if err := os.WriteFile(envPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ANCHOR_TEST_KEY", "")
	os.Unsetenv("ANCHOR_TEST_KEY")

	loadEnvFile(envPath)
	if got := os.Getenv("ANCHOR_TEST_KEY"); got != "from_env_file" {
		t.Errorf("ANCHOR_TEST_KEY = %q, want from_env_file", got)
	}
}
