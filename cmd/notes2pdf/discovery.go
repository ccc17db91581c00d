package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Sentinel errors for note discovery.
var (
	ErrInvalidExtension = errors.New("file must have .md or .markdown extension")
	ErrNoInput          = errors.New("no notes found")
)

// discoverNotes expands inputs into a sorted, de-duplicated list of absolute
// Markdown paths. Directories are walked recursively; hidden directories and
// skipDir (the export output) are not entered.
func discoverNotes(inputs []string, skipDir string) ([]string, error) {
	seen := make(map[string]bool)
	var notes []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			notes = append(notes, path)
		}
	}

	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", input, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if err := validateMarkdownExtension(abs); err != nil {
				return nil, fmt.Errorf("%s: %w", input, err)
			}
			add(abs)
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("scanning %s: %w", path, err)
			}
			if d.IsDir() {
				if path != abs && (isHidden(d.Name()) || samePath(path, skipDir)) {
					return filepath.SkipDir
				}
				return nil
			}
			if isMarkdown(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(notes) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInput, strings.Join(inputs, ", "))
	}
	slices.Sort(notes)
	return notes, nil
}

// validateMarkdownExtension checks that the file has a .md or .markdown extension.
func validateMarkdownExtension(path string) error {
	if !isMarkdown(path) {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, filepath.Ext(path))
	}
	return nil
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func samePath(a, b string) bool {
	if b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
