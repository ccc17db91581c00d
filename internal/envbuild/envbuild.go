// Package envbuild constructs the environment handed to every external tool.
//
// GUI-launched and service processes often inherit a minimal PATH that
// misses package-manager and toolchain directories, so tools installed with
// Homebrew, cargo, scoop or a TeX distribution are not found. Build prepends
// the well-known installation directories, appends user-configured ones,
// keeps the inherited PATH last, pins a UTF-8 locale and finally applies
// user-defined variables.
//
// Build is pure: it reads nothing from the process or filesystem, so the same
// inputs always give the same environment. Callers rebuild it for every
// invocation because settings may change between exports.
package envbuild

import (
	"os"
	"runtime"
	"sort"
	"strings"
)

// DefaultLocale is set for LANG and LC_ALL when the base environment has none.
const DefaultLocale = "en_US.UTF-8"

// Env maps variable names to values.
type Env map[string]string

// FromEnviron converts os.Environ-style KEY=VALUE entries into an Env.
// Entries without "=" are ignored; later duplicates win.
func FromEnviron(entries []string) Env {
	env := make(Env, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// List returns the environment as sorted KEY=VALUE entries for exec.Cmd.Env.
func (e Env) List() []string {
	out := make([]string, 0, len(e))
	for k, v := range e {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (e Env) Clone() Env {
	out := make(Env, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Builder holds the platform facts Build depends on.
type Builder struct {
	GOOS string // target OS family ("windows", "darwin", anything else is Unix)
	Home string // user home directory, empty when unknown
}

// NewBuilder returns a Builder for the running platform.
func NewBuilder() Builder {
	home, _ := os.UserHomeDir()
	return Builder{GOOS: runtime.GOOS, Home: home}
}

// Build returns base augmented with candidate directories, extraDirs and
// custom variables. base is not modified.
func (b Builder) Build(base Env, extraDirs []string, custom map[string]string) Env {
	env := base.Clone()

	pathKey := b.pathKey(env)
	original := env[pathKey]

	dirs := make([]string, 0, 32)
	dirs = append(dirs, b.CandidateDirs()...)
	for _, d := range extraDirs {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	if original != "" {
		dirs = append(dirs, strings.Split(original, b.ListSeparator())...)
	}
	env[pathKey] = strings.Join(dedupe(dirs), b.ListSeparator())

	if b.GOOS != "windows" {
		if env["LANG"] == "" {
			env["LANG"] = DefaultLocale
		}
		if env["LC_ALL"] == "" {
			env["LC_ALL"] = DefaultLocale
		}
	}

	for k, v := range custom {
		if !validKey(k) {
			continue
		}
		if strings.EqualFold(k, "PATH") {
			env[pathKey] = v
			continue
		}
		env[k] = v
	}

	return env
}

// ListSeparator is the PATH list separator for the builder's OS.
func (b Builder) ListSeparator() string {
	if b.GOOS == "windows" {
		return ";"
	}
	return ":"
}

// CandidateDirs lists the common tool installation directories prepended to
// PATH, home-relative ones first.
func (b Builder) CandidateDirs() []string {
	switch b.GOOS {
	case "windows":
		return b.windowsDirs()
	case "darwin":
		return append(b.homeDirs(), darwinDirs...)
	default:
		return append(b.homeDirs(), linuxDirs...)
	}
}

var darwinDirs = []string{
	"/opt/homebrew/bin",
	"/opt/homebrew/sbin",
	"/usr/local/bin",
	"/opt/local/bin",
	"/Library/TeX/texbin",
	"/usr/bin",
	"/bin",
	"/usr/sbin",
	"/sbin",
}

var linuxDirs = []string{
	"/usr/local/bin",
	"/home/linuxbrew/.linuxbrew/bin",
	"/snap/bin",
	"/usr/bin",
	"/bin",
	"/usr/sbin",
	"/sbin",
}

func (b Builder) homeDirs() []string {
	if b.Home == "" {
		return nil
	}
	return []string{
		b.Home + "/.local/bin",
		b.Home + "/bin",
		b.Home + "/.cargo/bin",
		b.Home + "/.cabal/bin",
		b.Home + "/.ghcup/bin",
	}
}

func (b Builder) windowsDirs() []string {
	dirs := []string{
		`C:\Program Files\Pandoc`,
		`C:\ProgramData\chocolatey\bin`,
		`C:\Program Files\poppler\Library\bin`,
	}
	if b.Home != "" {
		dirs = append([]string{
			b.Home + `\AppData\Local\Pandoc`,
			b.Home + `\AppData\Local\Microsoft\WinGet\Links`,
			b.Home + `\scoop\shims`,
			b.Home + `\.cargo\bin`,
		}, dirs...)
	}
	return dirs
}

// pathKey finds the existing PATH key. Windows environments spell it "Path".
func (b Builder) pathKey(env Env) string {
	if b.GOOS != "windows" {
		return "PATH"
	}
	for k := range env {
		if strings.EqualFold(k, "PATH") {
			return k
		}
	}
	return "Path"
}

func dedupe(dirs []string) []string {
	seen := make(map[string]bool, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

func validKey(k string) bool {
	return strings.TrimSpace(k) != "" && !strings.ContainsAny(k, "=\x00")
}
