package notes2pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/alnah/go-notes2pdf/internal/cliexec"
	"github.com/alnah/go-notes2pdf/internal/deps"
)

// Mock implementations for testing.

// fakeChecker reports every tool available unless listed in missing.
type fakeChecker struct {
	mu       sync.Mutex
	missing  map[deps.Tool]bool
	calls    int
	settings map[deps.Tool]deps.Settings
}

func (c *fakeChecker) CheckAll(ctx context.Context, settings map[deps.Tool]deps.Settings) *deps.Report {
	c.mu.Lock()
	c.calls++
	c.settings = settings
	c.mu.Unlock()

	rep := &deps.Report{Results: make(map[deps.Tool]deps.Result), AllAvailable: true, RequiredAvailable: true}
	for _, tool := range deps.Tools() {
		spec := deps.SpecFor(tool)
		res := deps.Result{Tool: tool, Optional: spec.Optional, MinVersion: spec.MinimumVersion}
		if c.missing[tool] {
			res.Error = "executable not found"
			res.Kind = deps.KindNotFound
			rep.AllAvailable = false
			if !spec.Optional {
				rep.RequiredAvailable = false
			}
		} else {
			res.Available = true
			res.ExecutablePath = "/fake/bin/" + spec.Name
			res.Version = spec.MinimumVersion
		}
		rep.Results[tool] = res
	}
	return rep
}

// fakeCall records one Execute call.
type fakeCall struct {
	program string
	args    []string
	opts    cliexec.Options
}

// fakeRunner emulates pandoc, typst and pdftocairo by writing the files
// they would produce. pandoc copies its Markdown input to its output so
// tests can inspect the rewritten document.
type fakeRunner struct {
	mu    sync.Mutex
	calls []fakeCall
	fail  map[string]error // keyed by tool base name
}

func (f *fakeRunner) Execute(ctx context.Context, program string, args []string, opts cliexec.Options) *cliexec.Result {
	name := filepath.Base(program)

	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{program: program, args: slices.Clone(args), opts: opts})
	failErr := f.fail[name]
	f.mu.Unlock()

	res := &cliexec.Result{Program: program, Args: args}
	if err := ctx.Err(); err != nil {
		res.State = cliexec.StateCanceled
		res.Err = fmt.Errorf("%w: %s", cliexec.ErrCanceled, name)
		return res
	}
	if failErr != nil {
		res.State = cliexec.StateFailedExitCode
		res.ExitCode = 1
		res.Stderr = failErr.Error()
		res.Err = fmt.Errorf("%w: %s exited with code 1: %w", cliexec.ErrExitCode, name, failErr)
		return res
	}

	var err error
	switch name {
	case "pandoc":
		var content []byte
		content, err = os.ReadFile(filepath.Join(opts.Dir, args[0]))
		if err == nil {
			err = os.WriteFile(filepath.Join(opts.Dir, argAfter(args, "-o")), content, 0o600)
		}
	case "typst":
		out := filepath.Join(opts.Dir, filepath.FromSlash(args[len(args)-1]))
		err = os.WriteFile(out, []byte("%PDF-1.4 fake"), 0o600)
	case "pdftocairo":
		pages := 1
		if last := argAfter(args, "-l"); last != "" {
			pages, _ = strconv.Atoi(last)
		}
		prefix := args[len(args)-1]
		for i := 1; i <= pages && err == nil; i++ {
			err = os.WriteFile(filepath.Join(opts.Dir, fmt.Sprintf("%s-%d.png", prefix, i)), []byte("png"), 0o600)
		}
	}
	if err != nil {
		res.State = cliexec.StateFailedSpawn
		res.Err = fmt.Errorf("%w: %w", cliexec.ErrSpawn, err)
		return res
	}

	res.Success = true
	res.State = cliexec.StateSucceeded
	res.ExitCode = 0
	return res
}

// callsTo returns the recorded calls whose program base name is name.
func (f *fakeRunner) callsTo(name string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if filepath.Base(c.program) == name {
			out = append(out, c)
		}
	}
	return out
}

func argAfter(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

// writeNote writes a Markdown note at rel inside vault.
func writeNote(t *testing.T, vault, rel, content string) string {
	t.Helper()
	path := filepath.Join(vault, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// writePDF writes a real PDF with the given number of pages.
func writePDF(t *testing.T, path string, pages int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	doc := gofpdf.New("P", "mm", "A4", "")
	for i := 1; i <= pages; i++ {
		doc.AddPage()
		doc.SetFont("Arial", "", 12)
		doc.Cell(40, 10, fmt.Sprintf("Page %d", i))
	}
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("writing PDF fixture: %v", err)
	}
}

// newTestExporter builds an Exporter over a fresh vault with fake tools.
func newTestExporter(t *testing.T, checker *fakeChecker, runner *fakeRunner, opts ...Option) (*Exporter, string) {
	t.Helper()
	vault := t.TempDir()
	all := append([]Option{WithVault(vault), WithChecker(checker), WithRunner(runner)}, opts...)
	exp, err := NewExporter(all...)
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	return exp, exp.Vault()
}

// intermediateMarkdown returns the doc.md of the only kept work directory.
func intermediateMarkdown(t *testing.T, exp *Exporter) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(exp.OutputDir(), "."+workDirPrefix+"-*", markdownFile))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one kept work directory, got %v (err %v)", matches, err)
	}
	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	return string(content)
}
