// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrNameEmpty         = errors.New("file name cannot be empty")
	ErrNamePathTraversal = errors.New("file name contains path separator or null byte")
)

// dirPermissions is used for work directories: rwxr-x---.
const dirPermissions = 0o750

// MakeWorkDir creates a fresh hidden directory under parent for intermediate
// files. Returns the path and a cleanup function that removes it.
func MakeWorkDir(parent, prefix string) (path string, cleanup func(), err error) {
	if err := ValidateName(prefix); err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(parent, dirPermissions); err != nil {
		return "", nil, fmt.Errorf("creating parent directory: %w", err)
	}

	path, err = os.MkdirTemp(parent, "."+prefix+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating work directory: %w", err)
	}
	cleanup = func() { _ = os.RemoveAll(path) }
	return path, cleanup, nil
}

// WriteFile writes content to dir/name, refusing names that would escape dir.
func WriteFile(dir, name, content string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	// #nosec G306 -- intermediate document, same audience as the PDF
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return path, nil
}

// ValidateName checks that name is a single path element safe to join.
func ValidateName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if strings.ContainsAny(name, "/\\\x00") || name == "." || name == ".." {
		return ErrNamePathTraversal
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsFilePath returns true if the string looks like a file path rather than a name.
// A string containing path separators (/, \) is treated as a path.
//
// Examples:
//   - "pandoc" -> false (name)
//   - "./bin/typst" -> true (relative path)
//   - "/usr/local/bin/pandoc" -> true (absolute)
//   - "C:\Program Files\Pandoc\pandoc.exe" -> true (Windows)
//   - "typst-nightly" -> false (hyphenated name)
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// IsURL returns true if the string looks like a remote URL.
func IsURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// RelSlash returns target relative to base using forward slashes, which every
// tool accepts on every platform.
func RelSlash(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", fmt.Errorf("relative path from %s to %s: %w", base, target, err)
	}
	return filepath.ToSlash(rel), nil
}
