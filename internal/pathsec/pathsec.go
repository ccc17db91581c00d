// Package pathsec validates user-supplied paths before they reach the
// filesystem or a subprocess.
//
// Two families of rules exist. Output paths are relative folders inside the
// vault (the managed root) and are rejected on traversal, absolute forms,
// null bytes, forbidden characters and reserved device names. Executable
// paths are what users type into tool settings; they may be absolute but must
// not carry null bytes, newlines or shell metacharacters.
//
// Validators never sanitize or escape: they reject and say why. Each rule has
// a sentinel error wrapping ErrValidation so callers can test either the
// family or the exact rule with errors.Is.
package pathsec

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrValidation is wrapped by every rule error in this package.
var ErrValidation = errors.New("validation failed")

// Rule errors. Messages are shown to users verbatim.
var (
	ErrOutputRequired    = ruleError("Output folder is required")
	ErrPathTraversal     = ruleError("Path traversal attempts (..) are not allowed")
	ErrAbsolutePath      = ruleError("Absolute paths are not allowed")
	ErrNullByte          = ruleError("Null bytes are not allowed in paths")
	ErrInvalidCharacters = ruleError("Invalid characters found in path")
	ErrReservedName      = ruleError("Reserved system names are not allowed")
	ErrNewline           = ruleError("Newlines are not allowed in paths")
	ErrShellMetachar     = ruleError("Shell metacharacters are not allowed in executable paths")
	ErrInvalidEnvKey     = ruleError("Invalid environment variable name")
	ErrOutsideRoot       = ruleError("Path escapes the managed root")
)

// validationError keeps the user-facing message while matching ErrValidation.
type validationError struct {
	msg string
}

func ruleError(msg string) error { return &validationError{msg: msg} }

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

const (
	// forbiddenOutputChars are rejected anywhere in an output path.
	forbiddenOutputChars = `<>:"|?*`

	// shellMetachars are rejected anywhere in an executable path. The set
	// covers command chaining, pipes, substitution and grouping.
	shellMetachars = ";&|`$(){}[]"
)

var driveLetter = regexp.MustCompile(`^[A-Za-z]:`)

// reservedNames are Windows device names, compared case-insensitively.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Verdict is the outcome of a validation. Reason is nil when Valid is true.
type Verdict struct {
	Valid  bool
	Reason error
}

// CheckOutputPath runs the output-path rules and returns a Verdict.
func CheckOutputPath(path string) Verdict {
	if err := OutputPathError(path); err != nil {
		return Verdict{Valid: false, Reason: err}
	}
	return Verdict{Valid: true}
}

// ValidateOutputPath reports whether path is an acceptable output folder.
func ValidateOutputPath(path string) bool {
	return OutputPathError(path) == nil
}

// OutputPathError returns the first output-path rule that path violates, or
// nil. Leading and trailing whitespace is ignored. The path is never resolved
// against the filesystem.
func OutputPathError(path string) error {
	p := strings.TrimSpace(path)
	if p == "" {
		return ErrOutputRequired
	}
	if hasTraversal(p) {
		return ErrPathTraversal
	}
	if isAbsolute(p) {
		return ErrAbsolutePath
	}
	if strings.ContainsRune(p, 0) {
		return ErrNullByte
	}
	if strings.ContainsAny(p, forbiddenOutputChars) {
		return ErrInvalidCharacters
	}
	if isReserved(p) {
		return ErrReservedName
	}
	return nil
}

// CheckExecutablePath runs the executable-path rules and returns a Verdict.
func CheckExecutablePath(path string) Verdict {
	if err := ExecutablePathError(path); err != nil {
		return Verdict{Valid: false, Reason: err}
	}
	return Verdict{Valid: true}
}

// ValidateExecutablePath reports whether path may be used as a program.
// Empty and whitespace-only input is valid and means "search the PATH".
func ValidateExecutablePath(path string) bool {
	return ExecutablePathError(path) == nil
}

// ExecutablePathError returns the first executable-path rule that path
// violates, or nil. Bare names, absolute Unix paths and Windows drive paths
// with spaces are all accepted.
func ExecutablePathError(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if strings.ContainsRune(path, 0) {
		return ErrNullByte
	}
	if strings.ContainsAny(path, "\r\n") {
		return ErrNewline
	}
	if strings.ContainsAny(path, shellMetachars) {
		return ErrShellMetachar
	}
	return nil
}

// ValidateArgument rejects argument values that no tool should ever receive:
// null bytes truncate C strings and newlines break line-oriented parsers.
func ValidateArgument(arg string) error {
	if strings.ContainsRune(arg, 0) {
		return ErrNullByte
	}
	if strings.ContainsAny(arg, "\r\n") {
		return ErrNewline
	}
	return nil
}

// ValidateEnvKey rejects environment variable names that would corrupt a
// KEY=VALUE environment entry.
func ValidateEnvKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, "=\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidEnvKey, key)
	}
	return nil
}

// SafeJoin joins a relative output path under root after validating it, and
// checks the cleaned result still lives inside root.
func SafeJoin(root, rel string) (string, error) {
	if err := OutputPathError(rel); err != nil {
		return "", err
	}
	cleanRoot := filepath.Clean(root)
	joined := filepath.Join(cleanRoot, filepath.FromSlash(strings.TrimSpace(rel)))

	relToRoot, err := filepath.Rel(cleanRoot, joined)
	if err != nil || relToRoot == ".." || strings.HasPrefix(relToRoot, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return joined, nil
}

func hasTraversal(p string) bool {
	if p == ".." || strings.Contains(p, "../") || strings.Contains(p, `..\`) {
		return true
	}
	for _, seg := range splitSegments(p) {
		if seg == ".." {
			return true
		}
	}
	return false
}

func isAbsolute(p string) bool {
	return strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) || driveLetter.MatchString(p)
}

// isReserved matches the whole path, then every segment without extension,
// so "exports/con" and "nul.txt" are caught as well as "NUL".
func isReserved(p string) bool {
	if reservedNames[strings.ToUpper(p)] {
		return true
	}
	for _, seg := range splitSegments(p) {
		base := seg
		if i := strings.IndexByte(base, '.'); i > 0 {
			base = base[:i]
		}
		if reservedNames[strings.ToUpper(strings.TrimSpace(base))] {
			return true
		}
	}
	return false
}

func splitSegments(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
}
