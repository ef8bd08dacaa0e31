// Package output persists analyzer artifacts under the session's output
// directory. Writes are atomic so readers never observe partial files.
package output

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Sink stores analyzer output and returns the path it was written to. The
// returned path is informational only; result classification never inspects
// its structure.
type Sink interface {
	Save(content []byte, pathHint string) (string, error)
}

// DirSink writes artifacts beneath a root directory.
type DirSink struct {
	root string
}

// NewDirSink creates the root directory if needed.
func NewDirSink(root string) (*DirSink, error) {
	if root == "" {
		return nil, fmt.Errorf("output root cannot be empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", root, err)
	}
	return &DirSink{root: root}, nil
}

// Root returns the sink's base directory.
func (s *DirSink) Root() string { return s.root }

// Save writes content to root/pathHint using a temp file and rename so the
// final file appears atomically.
func (s *DirSink) Save(content []byte, pathHint string) (string, error) {
	cleaned := filepath.Clean(pathHint)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid path hint %q", pathHint)
	}

	dest := filepath.Join(s.root, cleaned)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", dest, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".sitecheck-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename into place: %w", err)
	}

	return dest, nil
}

// Slug converts a URL into a filesystem-friendly directory name, e.g.
// "https://example.com/docs/intro" -> "example.com-docs-intro".
func Slug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return sanitize(rawURL)
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return sanitize(u.Host)
	}
	return sanitize(u.Host + "-" + strings.ReplaceAll(path, "/", "-"))
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "page"
	}
	return out
}
