package build

import (
	"os"
	"path/filepath"
	"testing"
)

func matcherWithRules(patterns []string) *IgnoreMatcher {
	m := NewIgnoreMatcher(nil, nil)
	for _, p := range patterns {
		m.rules = append(m.rules, parsePattern(p, ""))
	}
	return m
}

func TestIgnoreMatcherBasicPatterns(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{
			name:     "match wildcard extension",
			patterns: []string{"*.log"},
			path:     "/project/app.log",
			want:     true,
		},
		{
			name:     "no match different extension",
			patterns: []string{"*.log"},
			path:     "/project/app.go",
			want:     false,
		},
		{
			name:     "match directory name",
			patterns: []string{"generated"},
			path:     "/project/generated/package/index.js",
			want:     true,
		},
		{
			name:     "match double star pattern",
			patterns: []string{"**/*.pyc"},
			path:     "/project/deep/nested/module.pyc",
			want:     true,
		},
		{
			name:     "match double star directory",
			patterns: []string{"**/target/**"},
			path:     "/project/service/target/lib/code.go",
			want:     true,
		},
		{
			name:     "match __pycache__",
			patterns: []string{"__pycache__"},
			path:     "/project/app/__pycache__/module.cpython-39.pyc",
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := matcherWithRules(tt.patterns)
			if got := m.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestIgnoreMatcherBuiltinDenylist(t *testing.T) {
	m := NewIgnoreMatcher(nil, nil)
	if !m.Match("/project/node_modules") {
		t.Error("expected node_modules to match without any ignore file")
	}
	if !m.Match("/project/.git") {
		t.Error("expected .git to match without any ignore file")
	}
	if m.Match("/project/src") {
		t.Error("expected src to NOT match")
	}
}

func TestIgnoreMatcherNegation(t *testing.T) {
	m := NewIgnoreMatcher(nil, nil)
	m.rules = []ignoreRule{
		parsePattern("*.log", ""),
		parsePattern("!important.log", ""),
	}

	if !m.Match("/project/debug.log") {
		t.Error("expected debug.log to be ignored")
	}
	if m.Match("/project/important.log") {
		t.Error("expected important.log to NOT be ignored (negation)")
	}
}

func TestIgnoreMatcherDirOnlyPattern(t *testing.T) {
	m := NewIgnoreMatcher(nil, nil)
	m.rules = []ignoreRule{
		parsePattern("build/", ""),
	}

	if !m.Match("/project/build/output.js") {
		t.Error("expected build directory path to be ignored")
	}
}

func TestIgnoreMatcherRelativePattern(t *testing.T) {
	m := NewIgnoreMatcher(nil, nil)
	m.rules = []ignoreRule{
		parsePattern("src/*.tmp", "/project"),
	}

	if !m.Match("/project/src/file.tmp") {
		t.Error("expected /project/src/file.tmp to be matched by src/*.tmp")
	}
	if m.Match("/project/other/file.tmp") {
		t.Error("expected /project/other/file.tmp to NOT be matched by src/*.tmp")
	}
}

func TestIgnoreLoadFromFiles(t *testing.T) {
	tmpDir := t.TempDir()

	gitignore := "*.log\nbuild/\n# comment\n\n!keep.log\n"
	if err := os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte(gitignore), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".anchorignore"), []byte("*.generated.go\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, ".git", "info"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".git", "info", "exclude"), []byte("scratch/\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewIgnoreMatcher([]string{tmpDir}, nil)
	if err := m.LoadPatterns(); err != nil {
		t.Fatal(err)
	}

	if !m.Match(filepath.Join(tmpDir, "app.log")) {
		t.Error("expected app.log to be ignored")
	}
	if m.Match(filepath.Join(tmpDir, "keep.log")) {
		t.Error("expected keep.log to NOT be ignored (negation)")
	}
	if !m.Match(filepath.Join(tmpDir, "build", "output.js")) {
		t.Error("expected build/output.js to be ignored")
	}
	if !m.Match(filepath.Join(tmpDir, "api.generated.go")) {
		t.Error("expected .anchorignore pattern to apply")
	}
	if !m.Match(filepath.Join(tmpDir, "scratch", "notes.go")) {
		t.Error("expected .git/info/exclude pattern to apply")
	}
	if m.Match(filepath.Join(tmpDir, "main.go")) {
		t.Error("expected main.go to NOT be ignored")
	}
}

func TestIgnoreExtraPatterns(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{
			name:     "exclude dist",
			patterns: []string{"**/dist/**"},
			path:     "/project/frontend/dist/bundle.js",
			want:     true,
		},
		{
			name:     "exclude coverage",
			patterns: []string{"**/coverage/**"},
			path:     "/project/coverage/lcov.info",
			want:     true,
		},
		{
			name:     "do not exclude source",
			patterns: []string{"**/dist/**", "**/coverage/**"},
			path:     "/project/frontend/src/App.tsx",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := matcherWithRules(tt.patterns)
			if got := m.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
