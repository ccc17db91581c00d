package resolver

// Notes:
// - Unit tests replace the locator with mockRunner and a fixed environ so no
//   subprocess is spawned and the host PATH does not matter.
// - TestResolve_RealLocator runs the platform "which" against a fake tool in
//   an extra directory; it is skipped when "which" is unavailable.

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-notes2pdf/internal/cliexec"
	"github.com/alnah/go-notes2pdf/internal/envbuild"
	"github.com/alnah/go-notes2pdf/internal/testutil"
)

// ---------------------------------------------------------------------------
// Mock Implementations
// ---------------------------------------------------------------------------

type mockRunner struct {
	result *cliexec.Result
	calls  []mockCall
}

type mockCall struct {
	program string
	args    []string
	opts    cliexec.Options
}

func (m *mockRunner) Execute(_ context.Context, program string, args []string, opts cliexec.Options) *cliexec.Result {
	m.calls = append(m.calls, mockCall{program: program, args: args, opts: opts})
	if m.result == nil {
		return &cliexec.Result{Err: errors.New("not found"), State: cliexec.StateFailedExitCode}
	}
	return m.result
}

func newTestResolver(runner Runner, goos string) *Resolver {
	r := New(runner, envbuild.Builder{GOOS: goos, Home: "/home/test"})
	r.environ = func() []string { return []string{"PATH=/usr/bin", "HOME=/home/test"} }
	return r
}

// ---------------------------------------------------------------------------
// TestResolve - Explicit paths
// ---------------------------------------------------------------------------

func TestResolve_ExplicitPathSkipsSearch(t *testing.T) {
	t.Parallel()

	tests := []string{
		"/abs/path/tool",
		"./bin/typst",
		`C:\Program Files\Pandoc\pandoc.exe`,
		"tools/pandoc",
	}

	for _, userPath := range tests {
		runner := &mockRunner{}
		got := newTestResolver(runner, "linux").Resolve(context.Background(), userPath, "tool", nil)

		if got.Path != userPath || got.Via != ViaUserPath {
			t.Errorf("Resolve(%q) = %+v, want unchanged user path", userPath, got)
		}
		if len(runner.calls) != 0 {
			t.Errorf("Resolve(%q) invoked the locator", userPath)
		}
	}
}

// ---------------------------------------------------------------------------
// TestResolve - Search and fallback
// ---------------------------------------------------------------------------

func TestResolve_SearchPath(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{result: &cliexec.Result{
		Success: true,
		State:   cliexec.StateSucceeded,
		Stdout:  "\n  /opt/homebrew/bin/pandoc  \n/usr/bin/pandoc\n",
	}}

	got := newTestResolver(runner, "darwin").Resolve(context.Background(), "", "pandoc", []string{"/custom/bin"})

	want := Resolved{Name: "pandoc", Path: "/opt/homebrew/bin/pandoc", Via: ViaSearchPath}
	if got != want {
		t.Errorf("Resolve = %+v, want %+v", got, want)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("locator calls = %d, want 1", len(runner.calls))
	}

	call := runner.calls[0]
	if call.program != "which" || len(call.args) != 1 || call.args[0] != "pandoc" {
		t.Errorf("locator invoked as %s %v", call.program, call.args)
	}
	path := call.opts.Env["PATH"]
	if !strings.Contains(path, "/custom/bin") || !strings.Contains(path, "/opt/homebrew/bin") {
		t.Errorf("search PATH not augmented: %q", path)
	}
	if !strings.Contains(path, "/usr/bin") {
		t.Errorf("inherited PATH missing: %q", path)
	}
	if call.opts.Timeout != lookupTimeout {
		t.Errorf("lookup timeout = %s", call.opts.Timeout)
	}
}

func TestResolve_UserBareNameIsTrimmed(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{result: &cliexec.Result{Success: true, Stdout: "/home/test/.cargo/bin/typst-nightly\n"}}

	got := newTestResolver(runner, "linux").Resolve(context.Background(), "  typst-nightly ", "typst", nil)

	if got.Name != "typst-nightly" || got.Path != "/home/test/.cargo/bin/typst-nightly" {
		t.Errorf("Resolve = %+v", got)
	}
}

func TestResolve_Fallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		userPath  string
		result    *cliexec.Result
		wantName  string
		wantCalls int
	}{
		{
			name:      "locator fails",
			result:    nil,
			wantName:  "typst",
			wantCalls: 1,
		},
		{
			name:      "locator prints nothing",
			result:    &cliexec.Result{Success: true, Stdout: "  \n"},
			wantName:  "typst",
			wantCalls: 1,
		},
		{
			name:      "locator times out",
			result:    &cliexec.Result{State: cliexec.StateTimedOut, Err: cliexec.ErrTimeout},
			wantName:  "typst",
			wantCalls: 1,
		},
		{
			name:      "metacharacters never reach the locator",
			userPath:  "typst;reboot",
			wantName:  "typst;reboot",
			wantCalls: 0,
		},
		{
			name:      "flag-like names never reach the locator",
			userPath:  "--help",
			wantName:  "--help",
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := &mockRunner{result: tt.result}
			got := newTestResolver(runner, "linux").Resolve(context.Background(), tt.userPath, "typst", nil)

			if got.Via != ViaFallbackName || got.Path != tt.wantName || got.Name != tt.wantName {
				t.Errorf("Resolve = %+v, want fallback to %q", got, tt.wantName)
			}
			if len(runner.calls) != tt.wantCalls {
				t.Errorf("locator calls = %d, want %d", len(runner.calls), tt.wantCalls)
			}
		})
	}
}

func TestResolve_WindowsUsesWhere(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{result: &cliexec.Result{
		Success: true,
		Stdout:  "C:\\Program Files\\Pandoc\\pandoc.exe\r\nC:\\other\\pandoc.exe\r\n",
	}}

	got := newTestResolver(runner, "windows").Resolve(context.Background(), "", "pandoc", nil)

	if runner.calls[0].program != "where" {
		t.Errorf("locator = %q, want where", runner.calls[0].program)
	}
	if got.Path != `C:\Program Files\Pandoc\pandoc.exe` {
		t.Errorf("Path = %q", got.Path)
	}
}

// ---------------------------------------------------------------------------
// TestResolve_RealLocator - Integration with which
// ---------------------------------------------------------------------------

func TestResolve_RealLocator(t *testing.T) {
	t.Parallel()
	testutil.RequireUnixShell(t)
	if _, err := exec.LookPath("which"); err != nil {
		t.Skip("which not available")
	}

	dir := t.TempDir()
	tool := testutil.FakeTool(t, dir, "notes2pdf-fake-tool", "fake 1.0.0", "", 0)

	r := New(cliexec.New(), envbuild.NewBuilder())
	got := r.Resolve(context.Background(), "", "notes2pdf-fake-tool", []string{dir})

	if got.Via != ViaSearchPath {
		t.Fatalf("Resolve = %+v, want search-path", got)
	}
	gotPath, _ := filepath.EvalSymlinks(got.Path)
	wantPath, _ := filepath.EvalSymlinks(tool)
	if gotPath != wantPath {
		t.Errorf("Path = %q, want %q", got.Path, tool)
	}
}
