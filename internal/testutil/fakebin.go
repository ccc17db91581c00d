// Package testutil provides helpers shared by package tests: fake tool
// executables written as shell scripts.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
)

// RequireUnixShell skips the test on platforms without /bin/sh.
func RequireUnixShell(t testing.TB) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake executables are shell scripts; skipping on windows")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

// WriteScript writes an executable /bin/sh script named name into dir and
// returns its absolute path. body is everything after the shebang line.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	RequireUnixShell(t)

	path := filepath.Join(dir, name)
	content := "#!/bin/sh\n" + body + "\n"
	// #nosec G306 -- test executable must be runnable
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("writing fake executable %s: %v", name, err)
	}
	return path
}

// FakeTool writes a script that prints stdout, writes stderr and exits with
// code. Quoting uses a heredoc so arbitrary text survives unchanged.
func FakeTool(t testing.TB, dir, name, stdout, stderr string, code int) string {
	t.Helper()

	body := ""
	if stdout != "" {
		body += "cat <<'__STDOUT__'\n" + stdout + "\n__STDOUT__\n"
	}
	if stderr != "" {
		body += "cat >&2 <<'__STDERR__'\n" + stderr + "\n__STDERR__\n"
	}
	body += "exit " + strconv.Itoa(code)
	return WriteScript(t, dir, name, body)
}

// HangingTool writes a script that never exits on its own. It forks a child
// sleep so tests also cover killing the whole process group.
func HangingTool(t testing.TB, dir, name string) string {
	t.Helper()
	return WriteScript(t, dir, name, "sleep 300 &\nwait")
}
