// Package hints builds the "hint:" suffixes appended to CLI error messages.
// Every hint renders as "\n  hint: <text>", several hints share one line
// separated by "; ".
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-notes2pdf/internal/fileutil"
)

// IsInContainer reports whether /.dockerenv exists. Tests replace it.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForNotFound returns hints for a tool that could not be started because it
// is not installed or not on PATH. flag is the CLI flag that overrides its path.
func ForNotFound(tool, flag string) string {
	hints := []string{"run 'notes2pdf doctor' for install instructions"}

	if IsInContainer() {
		hints = append(hints, "install "+tool+" in the container image")
	}
	if flag != "" {
		hints = append(hints, "or pass "+flag+" /path/to/"+tool)
	}

	// GUI launchers on macOS start with a minimal PATH.
	if !strings.Contains(os.Getenv("PATH"), "/usr/local/bin") {
		hints = append(hints, "add its directory to additionalPaths in the config")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint for a tool that did not finish in time.
func ForTimeout() string {
	return format("tool may be hung; for large documents, use --timeout flag")
}

// ForExitCode returns a hint for a tool that ran and rejected its input.
func ForExitCode() string {
	return format("tool rejected its input; rerun with --verbose to see the command and its output")
}

// ForVersionParse returns a hint for an executable whose version output was
// not recognized.
func ForVersionParse(tool string) string {
	return format("the configured executable does not look like " + tool + "; check customPath")
}

// ForBelowMinimum returns a hint for an outdated tool.
func ForBelowMinimum(tool string) string {
	return format("upgrade " + tool + ", or lower minVersion in the config at your own risk")
}

// ForInvalidPath returns a hint for an output path rejected by validation.
func ForInvalidPath() string {
	return format("output folders are relative to the vault, e.g. exports/pdf")
}

// ForConfigNotFound suggests --config and, when one of searchedPaths is in
// the user config directory, creating the file there.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepathSlash(p), "/notes2pdf/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns a hint for an output folder that could not be created.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// format renders one hint; empty input renders nothing.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}

func filepathSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
