// Package build walks a repository tree, honors ignore rules, and runs the
// extraction pipeline over every file the registry recognizes.
package build

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/anchorhq/anchor/internal/gitutil"
)

// builtinDenylist names directories that are never descended into,
// regardless of ignore files.
var builtinDenylist = map[string]bool{
	".git":         true,
	".anchor":      true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"env":          true,
	".env":         true,
	".next":        true,
	".nuxt":        true,
	"coverage":     true,
	".cache":       true,
	".turbo":       true,
	".output":      true,
	"pkg":          true,
	"bin":          true,
	".svn":         true,
	".hg":          true,
	".tox":         true,
}

// IgnoreMatcher matches file paths against .gitignore-style patterns
// gathered from .gitignore, .git/info/exclude, and .anchorignore files
// found under the scanned roots, plus any patterns supplied by config.
type IgnoreMatcher struct {
	roots         []string
	extraPatterns []string
	rules         []ignoreRule
}

type ignoreRule struct {
	pattern  string
	negation bool
	dirOnly  bool
	basePath string
}

// NewIgnoreMatcher creates a matcher for the given roots. extraPatterns are
// additional globs supplied by the anchor config file.
func NewIgnoreMatcher(roots []string, extraPatterns []string) *IgnoreMatcher {
	return &IgnoreMatcher{roots: roots, extraPatterns: extraPatterns}
}

// LoadPatterns walks each root collecting .gitignore, .git/info/exclude, and
// .anchorignore rules. It never fails on an unreadable ignore file; it just
// skips it.
func (m *IgnoreMatcher) LoadPatterns() error {
	m.rules = nil
	for _, p := range m.extraPatterns {
		m.rules = append(m.rules, parsePattern(p, ""))
	}

	// The user's global excludes apply everywhere, with no base path.
	if global := gitutil.GlobalExcludesFile(); global != "" {
		if rules, err := loadIgnoreFile(global); err == nil {
			for _, r := range rules {
				r.basePath = ""
				m.rules = append(m.rules, r)
			}
		}
	}

	for _, root := range m.roots {
		// .git/info/exclude patterns are relative to the work-tree root,
		// not to the file's own directory.
		if rules, err := loadIgnoreFile(filepath.Join(root, ".git", "info", "exclude")); err == nil {
			for _, r := range rules {
				r.basePath = root
				m.rules = append(m.rules, r)
			}
		}

		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if builtinDenylist[info.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			switch info.Name() {
			case ".gitignore", ".anchorignore":
				if rules, loadErr := loadIgnoreFile(path); loadErr == nil {
					m.rules = append(m.rules, rules...)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Match returns true if path should be skipped. Built-in denylist entries
// always match, independent of any ignore file; every path component is
// checked so file events under a denied directory are also skipped.
func (m *IgnoreMatcher) Match(path string) bool {
	for _, part := range splitPath(path) {
		if builtinDenylist[part] {
			return true
		}
	}
	matched := false
	for _, rule := range m.rules {
		if matchRule(rule, path) {
			matched = !rule.negation
		}
	}
	return matched
}

func loadIgnoreFile(path string) ([]ignoreRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	basePath := filepath.Dir(path)
	var rules []ignoreRule
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, parsePattern(line, basePath))
	}
	return rules, scanner.Err()
}

func parsePattern(pattern string, basePath string) ignoreRule {
	rule := ignoreRule{basePath: basePath}
	if strings.HasPrefix(pattern, "!") {
		rule.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		rule.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	rule.pattern = pattern
	return rule
}

func matchRule(rule ignoreRule, path string) bool {
	return matchPattern(rule.pattern, rule.basePath, path)
}

func matchPattern(pattern string, basePath string, path string) bool {
	if strings.Contains(pattern, "/") {
		return matchRelativePattern(pattern, basePath, path)
	}

	if basePath != "" {
		relPath, err := filepath.Rel(basePath, path)
		if err != nil || strings.HasPrefix(relPath, "..") {
			return false
		}
	}

	base := filepath.Base(path)
	if matched, _ := filepath.Match(pattern, base); matched {
		return true
	}
	for _, part := range splitPath(path) {
		if matched, _ := filepath.Match(pattern, part); matched {
			return true
		}
	}
	return false
}

func matchRelativePattern(pattern string, basePath string, path string) bool {
	if strings.Contains(pattern, "**") {
		return matchDoubleStarPattern(pattern, basePath, path)
	}

	relPath := path
	if basePath != "" {
		var err error
		relPath, err = filepath.Rel(basePath, path)
		if err != nil || strings.HasPrefix(relPath, "..") {
			return false
		}
	}
	matched, _ := filepath.Match(pattern, relPath)
	return matched
}

func matchDoubleStarPattern(pattern string, basePath string, path string) bool {
	relPath := path
	if basePath != "" {
		var err error
		relPath, err = filepath.Rel(basePath, path)
		if err != nil || strings.HasPrefix(relPath, "..") {
			return false
		}
	}
	return matchParts(splitPath(pattern), splitPath(relPath))
}

func matchParts(patternParts, pathParts []string) bool {
	if len(patternParts) == 0 {
		return len(pathParts) == 0
	}
	if patternParts[0] == "**" {
		rest := patternParts[1:]
		for i := 0; i <= len(pathParts); i++ {
			if matchParts(rest, pathParts[i:]) {
				return true
			}
		}
		return false
	}
	if len(pathParts) == 0 {
		return false
	}
	matched, _ := filepath.Match(patternParts[0], pathParts[0])
	if !matched {
		return false
	}
	return matchParts(patternParts[1:], pathParts[1:])
}

func splitPath(path string) []string {
	path = filepath.ToSlash(path)
	var result []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
