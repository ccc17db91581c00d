// Package resolver turns a configured tool path or bare name into the path
// that will actually be spawned.
//
// Explicit paths are trusted as given. Bare names are looked up with the
// platform's locator ("which", or "where" on Windows) under the augmented
// PATH from envbuild, because the exporter's own PATH is often missing
// package-manager directories. Resolution never fails: when nothing is found
// the bare name comes back and the spawn attempt reports "not found".
package resolver

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/alnah/go-notes2pdf/internal/cliexec"
	"github.com/alnah/go-notes2pdf/internal/envbuild"
	"github.com/alnah/go-notes2pdf/internal/fileutil"
	"github.com/alnah/go-notes2pdf/internal/pathsec"
)

// How a path was obtained.
const (
	ViaUserPath     = "user-path"
	ViaSearchPath   = "search-path"
	ViaFallbackName = "fallback-name"
)

// lookupTimeout bounds the locator subprocess.
const lookupTimeout = 5 * time.Second

// Resolved is the outcome of a resolution.
type Resolved struct {
	Name string `json:"name"`        // name that was searched for
	Path string `json:"path"`        // program to spawn
	Via  string `json:"resolvedVia"` // ViaUserPath, ViaSearchPath or ViaFallbackName
}

// Runner executes the locator. *cliexec.Executor implements it.
type Runner interface {
	Execute(ctx context.Context, program string, args []string, opts cliexec.Options) *cliexec.Result
}

// Resolver looks up executables.
type Resolver struct {
	runner  Runner
	builder envbuild.Builder
	environ func() []string
}

// New creates a Resolver that runs the locator through runner and builds
// the search environment with builder.
func New(runner Runner, builder envbuild.Builder) *Resolver {
	return &Resolver{runner: runner, builder: builder, environ: os.Environ}
}

// Resolve returns the program to spawn for a tool.
//
// A userPath containing a path separator is returned unchanged; the caller
// validates it with pathsec before use. Otherwise the trimmed userPath (or
// defaultName when empty) is searched on the augmented PATH with extraDirs.
func (r *Resolver) Resolve(ctx context.Context, userPath, defaultName string, extraDirs []string) Resolved {
	trimmed := strings.TrimSpace(userPath)
	if trimmed != "" && fileutil.IsFilePath(trimmed) {
		return Resolved{Name: userPath, Path: userPath, Via: ViaUserPath}
	}

	name := trimmed
	if name == "" {
		name = defaultName
	}
	fallback := Resolved{Name: name, Path: name, Via: ViaFallbackName}

	if !searchable(name) {
		return fallback
	}

	env := r.builder.Build(envbuild.FromEnviron(r.environ()), extraDirs, nil)
	res := r.runner.Execute(ctx, r.locator(), []string{name}, cliexec.Options{
		Env:     env,
		Timeout: lookupTimeout,
	})
	if res == nil || !res.Success {
		return fallback
	}

	if found := firstLine(res.Stdout); found != "" {
		return Resolved{Name: name, Path: found, Via: ViaSearchPath}
	}
	return fallback
}

func (r *Resolver) locator() string {
	if r.builder.GOOS == "windows" {
		return "where"
	}
	return "which"
}

// searchable rejects names that must not reach the locator's argv: invalid
// executable paths and names the locator would parse as flags.
func searchable(name string) bool {
	if strings.TrimSpace(name) == "" || strings.HasPrefix(name, "-") {
		return false
	}
	return pathsec.ValidateExecutablePath(name)
}

func firstLine(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
