package deps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/alnah/go-notes2pdf/internal/cliexec"
	"github.com/alnah/go-notes2pdf/internal/envbuild"
	"github.com/alnah/go-notes2pdf/internal/pathsec"
	"github.com/alnah/go-notes2pdf/internal/version"
)

// Policy decides what a version below the minimum means.
type Policy int

const (
	// PolicyStrict reports an outdated tool as unavailable.
	PolicyStrict Policy = iota
	// PolicyWarn reports an outdated tool as available with a warning.
	PolicyWarn
)

func (p Policy) String() string {
	if p == PolicyWarn {
		return "warn"
	}
	return "strict"
}

// Runner executes a tool. *cliexec.Executor implements it.
type Runner interface {
	Execute(ctx context.Context, program string, args []string, opts cliexec.Options) *cliexec.Result
}

// ProbeOptions control a single version probe.
type ProbeOptions struct {
	Env        envbuild.Env
	Timeout    time.Duration
	MinVersion string
	Policy     Policy
}

// CheckDependency runs resolvedPath with versionArgs and decides whether the
// tool is usable. name is only used in messages. pattern may be nil, in which
// case only the generic version patterns apply.
//
// The version is looked for on stdout first, then on stderr.
func CheckDependency(ctx context.Context, runner Runner, name, resolvedPath string, versionArgs []string, pattern *regexp.Regexp, opts ProbeOptions) Result {
	res := Result{ExecutablePath: resolvedPath, MinVersion: opts.MinVersion}

	if err := pathsec.ExecutablePathError(resolvedPath); err != nil {
		res.fail(fmt.Errorf("executable path: %w", err))
		return res
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	run := runner.Execute(ctx, resolvedPath, versionArgs, cliexec.Options{Env: opts.Env, Timeout: timeout})
	if !run.Success {
		err := run.Err
		if isNotFound(err) {
			err = fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		res.fail(err)
		return res
	}

	v, ok := version.Extract(run.Stdout, pattern)
	if !ok {
		v, ok = version.Extract(run.Stderr, pattern)
	}
	if !ok {
		res.fail(fmt.Errorf("%w from %q", ErrVersionParse, firstLine(run.Stdout, run.Stderr)))
		return res
	}
	res.Version = v

	if !version.IsAtLeast(v, opts.MinVersion) {
		err := fmt.Errorf("%w: %s %s is older than required %s; please upgrade", ErrBelowMinimum, name, v, opts.MinVersion)
		if opts.Policy == PolicyWarn {
			res.Available = true
			res.Warning = err.Error()
			return res
		}
		res.fail(err)
		return res
	}

	res.Available = true
	return res
}

// isNotFound reports whether a spawn failed because the program is missing.
func isNotFound(err error) bool {
	if !errors.Is(err, cliexec.ErrSpawn) {
		return false
	}
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func kindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, pathsec.ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, cliexec.ErrTimeout):
		return KindTimeout
	case errors.Is(err, cliexec.ErrCanceled):
		return KindCanceled
	case errors.Is(err, cliexec.ErrExitCode):
		return KindExitCode
	case errors.Is(err, ErrVersionParse):
		return KindVersionParse
	case errors.Is(err, ErrBelowMinimum):
		return KindBelowMinimum
	default:
		return KindSpawn
	}
}

// firstLine returns the first non-empty output line, for error messages.
func firstLine(outputs ...string) string {
	for _, out := range outputs {
		for _, line := range strings.Split(out, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				return line
			}
		}
	}
	return ""
}
