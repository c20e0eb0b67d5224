// Package write implements the file-content primitives behind the daemon's
// write requests: atomic file creation, literal-substring splices and
// replacements, 1-indexed line-range rewrites, and graph-ordered multi-file
// writes.
package write

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/viant/afs"

	"github.com/anchorhq/anchor/internal/anchorerr"
)

// Service performs file writes through an abstract filesystem, so tests can
// swap the local scheme for an in-memory one.
type Service struct {
	fs afs.Service
}

// New returns a Service over the local filesystem.
func New() *Service {
	return &Service{fs: afs.New()}
}

// CreateFile writes a new file (or overwrites an existing one) with content.
func (s *Service) CreateFile(ctx context.Context, path string, content string) error {
	if err := s.fs.Upload(ctx, path, os.FileMode(0644), strings.NewReader(content)); err != nil {
		return anchorerr.Wrap(anchorerr.IO, "create "+path, err)
	}
	return nil
}

func (s *Service) read(ctx context.Context, path string) (string, error) {
	data, err := s.fs.DownloadWithURL(ctx, path)
	if err != nil {
		return "", anchorerr.Wrap(anchorerr.IO, "read "+path, err)
	}
	return string(data), nil
}

func (s *Service) write(ctx context.Context, path, content string) error {
	if err := s.fs.Upload(ctx, path, os.FileMode(0644), strings.NewReader(content)); err != nil {
		return anchorerr.Wrap(anchorerr.IO, "write "+path, err)
	}
	return nil
}

// InsertAfter splices content immediately after the first occurrence of
// pattern (a literal substring, not a regex).
func (s *Service) InsertAfter(ctx context.Context, path, pattern, content string) error {
	return s.insert(ctx, path, pattern, content, true)
}

// InsertBefore splices content immediately before the first occurrence of
// pattern.
func (s *Service) InsertBefore(ctx context.Context, path, pattern, content string) error {
	return s.insert(ctx, path, pattern, content, false)
}

func (s *Service) insert(ctx context.Context, path, pattern, content string, after bool) error {
	text, err := s.read(ctx, path)
	if err != nil {
		return err
	}
	idx := strings.Index(text, pattern)
	if idx < 0 {
		return anchorerr.New(anchorerr.PatternNotFound, fmt.Sprintf("pattern %q not found in %s", pattern, path))
	}
	at := idx
	if after {
		at = idx + len(pattern)
	}
	return s.write(ctx, path, text[:at]+content+text[at:])
}

// ReplaceFirst replaces the first occurrence of old with new, erroring when
// old is absent.
func (s *Service) ReplaceFirst(ctx context.Context, path, old, new string) error {
	text, err := s.read(ctx, path)
	if err != nil {
		return err
	}
	idx := strings.Index(text, old)
	if idx < 0 {
		return anchorerr.New(anchorerr.PatternNotFound, fmt.Sprintf("pattern %q not found in %s", old, path))
	}
	return s.write(ctx, path, text[:idx]+new+text[idx+len(old):])
}

// ReplaceAll replaces every occurrence of old with new and reports the
// match count. Zero matches is an error, consistent with ReplaceFirst.
func (s *Service) ReplaceAll(ctx context.Context, path, old, new string) (int, error) {
	text, err := s.read(ctx, path)
	if err != nil {
		return 0, err
	}
	count := strings.Count(text, old)
	if count == 0 {
		return 0, anchorerr.New(anchorerr.PatternNotFound, fmt.Sprintf("pattern %q not found in %s", old, path))
	}
	return count, s.write(ctx, path, strings.ReplaceAll(text, old, new))
}

// ReplaceRange replaces the 1-indexed inclusive line range
// [startLine, endLine] with newContent. endLine is clamped to the file
// length; the original's trailing-newline state is preserved.
func (s *Service) ReplaceRange(ctx context.Context, path string, startLine, endLine int, newContent string) error {
	if startLine == 0 || endLine < startLine {
		return anchorerr.New(anchorerr.InvalidInput,
			fmt.Sprintf("invalid line range %d-%d", startLine, endLine))
	}
	text, err := s.read(ctx, path)
	if err != nil {
		return err
	}

	hadTrailing := strings.HasSuffix(text, "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if text == "" {
		lines = nil
	}
	if startLine > len(lines) {
		return anchorerr.New(anchorerr.InvalidInput,
			fmt.Sprintf("start line %d exceeds file length %d", startLine, len(lines)))
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}

	replacement := strings.Split(strings.TrimSuffix(newContent, "\n"), "\n")
	if newContent == "" {
		replacement = nil
	}

	var out []string
	out = append(out, lines[:startLine-1]...)
	out = append(out, replacement...)
	out = append(out, lines[endLine:]...)

	joined := strings.Join(out, "\n")
	if hadTrailing && joined != "" {
		joined += "\n"
	}
	return s.write(ctx, path, joined)
}

