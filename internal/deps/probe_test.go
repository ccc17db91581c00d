package deps_test

// Notes:
// - Probes run real subprocesses: fake tools are /bin/sh scripts written to
//   t.TempDir() (skipped on windows).

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-notes2pdf/internal/cliexec"
	"github.com/alnah/go-notes2pdf/internal/deps"
	"github.com/alnah/go-notes2pdf/internal/pathsec"
	"github.com/alnah/go-notes2pdf/internal/testutil"
)

func probe(t *testing.T, tool deps.Tool, path string, opts deps.ProbeOptions) deps.Result {
	t.Helper()
	spec := deps.SpecFor(tool)
	if opts.MinVersion == "" {
		opts.MinVersion = spec.MinimumVersion
	}
	return deps.CheckDependency(context.Background(), cliexec.New(), spec.Name, path, spec.VersionArgs, spec.VersionPattern, opts)
}

// ---------------------------------------------------------------------------
// TestCheckDependency - Outcome classification
// ---------------------------------------------------------------------------

func TestCheckDependency_Available(t *testing.T) {
	t.Parallel()

	tool := testutil.FakeTool(t, t.TempDir(), "pandoc", "pandoc 3.1.2\nFeatures: +server +lua", "", 0)

	res := probe(t, deps.ToolPandoc, tool, deps.ProbeOptions{})

	if !res.Available || res.Version != "3.1.2" {
		t.Fatalf("got %+v, want available 3.1.2", res)
	}
	if res.Error != "" || res.Warning != "" || res.Kind != deps.KindNone {
		t.Errorf("unexpected failure fields: %+v", res)
	}
	if res.ExecutablePath != tool {
		t.Errorf("ExecutablePath = %q, want %q", res.ExecutablePath, tool)
	}
}

func TestCheckDependency_ExitCodeReflectsStderr(t *testing.T) {
	t.Parallel()

	tool := testutil.FakeTool(t, t.TempDir(), "pandoc", "", "error while loading shared libraries: libgmp.so.10", 1)

	res := probe(t, deps.ToolPandoc, tool, deps.ProbeOptions{})

	if res.Available || res.Version != "" {
		t.Fatalf("got %+v, want unavailable", res)
	}
	if !strings.Contains(res.Error, "libgmp.so.10") {
		t.Errorf("Error = %q, should carry stderr", res.Error)
	}
	if res.Kind != deps.KindExitCode || !errors.Is(res.Err, cliexec.ErrExitCode) {
		t.Errorf("Kind = %q, Err = %v", res.Kind, res.Err)
	}
}

func TestCheckDependency_Timeout(t *testing.T) {
	t.Parallel()

	tool := testutil.HangingTool(t, t.TempDir(), "typst")

	start := time.Now()
	res := probe(t, deps.ToolTypst, tool, deps.ProbeOptions{Timeout: 300 * time.Millisecond})

	if res.Available || res.Kind != deps.KindTimeout {
		t.Fatalf("got %+v, want timeout", res)
	}
	if !errors.Is(res.Err, cliexec.ErrTimeout) {
		t.Errorf("Err = %v, want ErrTimeout", res.Err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("probe did not honor its timeout")
	}
}

func TestCheckDependency_VersionOnStderr(t *testing.T) {
	t.Parallel()

	out := "pdftocairo version 22.02.0\nCopyright 2005-2022 The Poppler Developers"
	tool := testutil.FakeTool(t, t.TempDir(), "pdftocairo", "", out, 0)

	res := probe(t, deps.ToolRasterizer, tool, deps.ProbeOptions{})

	if !res.Available || res.Version != "22.02.0" {
		t.Fatalf("got %+v, want available 22.02.0", res)
	}
}

func TestCheckDependency_VersionParse(t *testing.T) {
	t.Parallel()

	tool := testutil.FakeTool(t, t.TempDir(), "typst", "usage: typst <command>", "", 0)

	res := probe(t, deps.ToolTypst, tool, deps.ProbeOptions{})

	if res.Available || res.Kind != deps.KindVersionParse {
		t.Fatalf("got %+v, want version-parse failure", res)
	}
	if !errors.Is(res.Err, deps.ErrVersionParse) {
		t.Errorf("Err = %v", res.Err)
	}
	if errors.Is(res.Err, deps.ErrBelowMinimum) {
		t.Error("parse failure must be distinct from an outdated tool")
	}
}

func TestCheckDependency_BelowMinimum(t *testing.T) {
	t.Parallel()

	tool := testutil.FakeTool(t, t.TempDir(), "typst", "typst 0.12.0 (737895d7)", "", 0)

	tests := []struct {
		name          string
		policy        deps.Policy
		wantAvailable bool
	}{
		{"strict fails", deps.PolicyStrict, false},
		{"warn passes", deps.PolicyWarn, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := probe(t, deps.ToolTypst, tool, deps.ProbeOptions{Policy: tt.policy})

			if res.Available != tt.wantAvailable {
				t.Fatalf("Available = %v, want %v (%+v)", res.Available, tt.wantAvailable, res)
			}
			if res.Version != "0.12.0" {
				t.Errorf("Version = %q", res.Version)
			}
			msg := res.Error + res.Warning
			if !strings.Contains(msg, "0.13.0") || !strings.Contains(msg, "upgrade") {
				t.Errorf("message %q should name the minimum and suggest upgrading", msg)
			}
			if tt.policy == deps.PolicyWarn && (res.Error != "" || res.Warning == "") {
				t.Errorf("warn policy must use Warning only: %+v", res)
			}
			if tt.policy == deps.PolicyStrict && (res.Kind != deps.KindBelowMinimum || res.Warning != "") {
				t.Errorf("strict policy must use Error only: %+v", res)
			}
		})
	}
}

func TestCheckDependency_NotFound(t *testing.T) {
	t.Parallel()
	testutil.RequireUnixShell(t)

	missing := filepath.Join(t.TempDir(), "bin", "pandoc")
	res := probe(t, deps.ToolPandoc, missing, deps.ProbeOptions{})

	if res.Available || res.Kind != deps.KindNotFound {
		t.Fatalf("got %+v, want not-found", res)
	}
	if !errors.Is(res.Err, deps.ErrNotFound) || !errors.Is(res.Err, cliexec.ErrSpawn) {
		t.Errorf("Err = %v", res.Err)
	}
	// Callers label the message with the tool; it must not repeat it up front.
	if !strings.HasPrefix(res.Error, "executable not found: failed to start process: pandoc: ") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestCheckDependency_RejectsUnsafePath(t *testing.T) {
	t.Parallel()

	res := probe(t, deps.ToolPandoc, "pandoc$(reboot)", deps.ProbeOptions{})

	if res.Available || res.Kind != deps.KindValidation {
		t.Fatalf("got %+v, want validation failure", res)
	}
	if !errors.Is(res.Err, pathsec.ErrShellMetachar) {
		t.Errorf("Err = %v", res.Err)
	}
}

// ---------------------------------------------------------------------------
// TestTool - Names and parsing
// ---------------------------------------------------------------------------

func TestParseTool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    deps.Tool
		wantErr bool
	}{
		{"pandoc", deps.ToolPandoc, false},
		{" Typst ", deps.ToolTypst, false},
		{"pdftocairo", deps.ToolRasterizer, false},
		{"rasterizer", deps.ToolRasterizer, false},
		{"latex", 0, true},
	}

	for _, tt := range tests {
		got, err := deps.ParseTool(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTool(%q) error = %v", tt.in, err)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseTool(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if tt.wantErr && !errors.Is(err, deps.ErrUnknownTool) {
			t.Errorf("ParseTool(%q) error = %v, want ErrUnknownTool", tt.in, err)
		}
	}
}

func TestSpecs(t *testing.T) {
	t.Parallel()

	for _, tool := range deps.Tools() {
		spec := deps.SpecFor(tool)
		if spec.Tool != tool || spec.Name != tool.String() {
			t.Errorf("spec for %v is keyed wrong: %+v", tool, spec)
		}
		if len(spec.VersionArgs) == 0 || spec.VersionPattern == nil || spec.MinimumVersion == "" {
			t.Errorf("spec for %v is incomplete", tool)
		}
	}
	if !deps.SpecFor(deps.ToolRasterizer).Optional || deps.SpecFor(deps.ToolPandoc).Optional {
		t.Error("only the rasterizer is optional")
	}
}

// ---------------------------------------------------------------------------
// TestInstallGuidance
// ---------------------------------------------------------------------------

func TestInstallGuidance(t *testing.T) {
	t.Parallel()

	for _, tool := range deps.Tools() {
		for _, goos := range []string{"windows", "darwin", "linux", "freebsd"} {
			g := deps.InstallGuidance(tool, goos)
			if g.Instructions == "" || len(g.Commands) == 0 || g.URL == "" {
				t.Errorf("incomplete guidance for %v on %s: %+v", tool, goos, g)
			}
			if goos == "freebsd" && g.OS != "linux" {
				t.Errorf("freebsd should use linux guidance, got %q", g.OS)
			}
		}
	}

	if g := deps.InstallGuidance(deps.ToolPandoc, "darwin"); !strings.Contains(strings.Join(g.Commands, " "), "brew") {
		t.Errorf("macOS pandoc guidance should suggest brew: %v", g.Commands)
	}
}
