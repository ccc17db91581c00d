package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-notes2pdf/internal/testutil"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Environment and fake toolchain
// ---------------------------------------------------------------------------

// syncBuffer is a bytes.Buffer safe for concurrent writers and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newTestEnv returns an Environment writing to buffers, with environ as the
// process environment and no terminal.
func newTestEnv(environ ...string) (*Environment, *syncBuffer, *syncBuffer) {
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	return &Environment{
		Now:        func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
		Stdout:     stdout,
		Stderr:     stderr,
		Environ:    func() []string { return environ },
		IsTerminal: func() bool { return false },
	}, stdout, stderr
}

// fakeToolchain holds paths of fake tools. Rasterizer never exists.
type fakeToolchain struct {
	pandoc     string
	typst      string
	pdftocairo string
}

// flags returns the CLI flags pointing at the fake tools.
func (f fakeToolchain) flags() []string {
	return []string{"--pandoc", f.pandoc, "--typst", f.typst, "--pdftocairo", f.pdftocairo}
}

// writeFakeToolchain writes a pandoc that copies its input to -o and a typst
// that writes a minimal PDF to its last argument.
func writeFakeToolchain(t *testing.T) fakeToolchain {
	t.Helper()
	testutil.RequireUnixShell(t)

	bin := t.TempDir()
	return fakeToolchain{
		pandoc: testutil.WriteScript(t, bin, "pandoc", `if [ "$1" = "--version" ]; then echo "pandoc 3.1.2"; exit 0; fi
out=""; prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
cp "$1" "$out"`),
		typst: testutil.WriteScript(t, bin, "typst", `if [ "$1" = "--version" ]; then echo "typst 0.13.1 (8ace67d9)"; exit 0; fi
for a in "$@"; do last="$a"; done
printf '%%PDF-1.4\n' > "$last"`),
		pdftocairo: filepath.Join(bin, "pdftocairo"),
	}
}

// writeFile creates dir/rel with content, creating parent directories.
func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// args builds an os.Args-like slice.
func args(parts ...string) []string {
	return append([]string{"notes2pdf"}, parts...)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

// countOf counts occurrences of sub in s.
func countOf(s, sub string) int {
	return strings.Count(s, sub)
}
