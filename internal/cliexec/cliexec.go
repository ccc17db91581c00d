// Package cliexec runs external tools and classifies how each run ended.
//
// A tool is always started directly with a discrete argument vector; no shell
// ever parses the command line. Every run ends in exactly one terminal State
// and produces one Result, so callers never have to interpret raw exec
// errors.
package cliexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/alnah/go-notes2pdf/internal/envbuild"
	"github.com/alnah/go-notes2pdf/internal/pathsec"
	"github.com/alnah/go-notes2pdf/internal/process"
)

// Sentinel errors for run outcomes.
var (
	ErrSpawn    = errors.New("failed to start process")
	ErrExitCode = errors.New("process exited with non-zero status")
	ErrTimeout  = errors.New("process timed out")
	ErrCanceled = errors.New("process canceled")
)

// DefaultTimeout applies when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// waitDelay bounds how long Wait blocks on output pipes held open by
// grandchildren after the tool itself exited or was killed.
const waitDelay = 2 * time.Second

// State is a step of a single invocation.
type State int

// Invocation states. Idle, Spawning and Running are transient; the others
// are terminal and mutually exclusive.
const (
	StateIdle State = iota
	StateSpawning
	StateRunning
	StateSucceeded
	StateFailedExitCode
	StateFailedSpawn
	StateTimedOut
	StateCanceled
)

var stateNames = map[State]string{
	StateIdle:           "idle",
	StateSpawning:       "spawning",
	StateRunning:        "running",
	StateSucceeded:      "succeeded",
	StateFailedExitCode: "failed-exit-code",
	StateFailedSpawn:    "failed-spawn",
	StateTimedOut:       "timed-out",
	StateCanceled:       "canceled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether s ends an invocation.
func (s State) Terminal() bool {
	return s >= StateSucceeded
}

// Options control a single invocation.
type Options struct {
	Dir     string        // working directory, empty = current
	Env     envbuild.Env  // full child environment, nil = inherit
	Timeout time.Duration // zero = DefaultTimeout
	Stdin   io.Reader     // nil = null device
}

// Result describes one finished invocation.
type Result struct {
	Program  string        `json:"program"`
	Args     []string      `json:"args,omitempty"`
	Success  bool          `json:"success"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	Err      error         `json:"-"`
	State    State         `json:"-"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"durationNs"`
}

// ErrorMessage returns Err as text, or "" on success.
func (r *Result) ErrorMessage() string {
	if r == nil || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Executor spawns tools. The zero value is not usable; call New.
type Executor struct {
	logger hclog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for stderr warnings and debug traces.
func WithLogger(l hclog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Executor. Without WithLogger nothing is logged.
func New(opts ...Option) *Executor {
	e := &Executor{logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs program with args and waits for it to finish, time out or be
// canceled through ctx. It never returns nil.
func (e *Executor) Execute(ctx context.Context, program string, args []string, opts Options) *Result {
	start := time.Now()
	res := &Result{Program: program, Args: args, State: StateIdle, ExitCode: -1}
	finish := func(state State, err error) *Result {
		res.State = state
		res.Err = err
		res.Success = state == StateSucceeded
		res.Duration = time.Since(start)
		return res
	}

	if err := checkInvocation(program, args); err != nil {
		return finish(StateFailedSpawn, fmt.Errorf("%w: %w", ErrSpawn, err))
	}
	if err := ctx.Err(); err != nil {
		return finish(StateCanceled, fmt.Errorf("%w: %w", ErrCanceled, err))
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res.State = StateSpawning
	cmd := exec.CommandContext(runCtx, program, args...) // #nosec G204 -- argv spawn, program validated above
	cmd.Dir = opts.Dir
	if opts.Env != nil {
		cmd.Env = opts.Env.List()
	}
	cmd.Stdin = opts.Stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	process.ConfigureGroup(cmd)
	cmd.Cancel = func() error {
		process.KillProcessGroup(cmd.Process.Pid)
		return cmd.Process.Kill()
	}

	name := filepath.Base(program)
	e.logger.Debug("starting tool", "program", program, "args", args, "dir", opts.Dir, "timeout", timeout)

	if err := cmd.Start(); err != nil {
		e.logger.Debug("tool failed to start", "program", program, "error", err)
		return finish(StateFailedSpawn, fmt.Errorf("%w: %s: %w", ErrSpawn, name, err))
	}
	res.State = StateRunning

	waitErr := cmd.Wait()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	state, err := classify(ctx, runCtx, cmd, waitErr, name, timeout, res.Stderr)
	if state == StateSucceeded {
		if msg := strings.TrimSpace(res.Stderr); msg != "" {
			e.logger.Warn("tool wrote to stderr", "program", name, "stderr", msg)
		}
		if waitErr != nil {
			e.logger.Warn("tool left output pipes open", "program", name, "error", waitErr)
		}
	}
	e.logger.Debug("tool finished", "program", name, "state", state, "exit_code", res.ExitCode, "duration", time.Since(start))
	return finish(state, err)
}

// classify maps the outcome of Wait to a terminal state.
func classify(parent, runCtx context.Context, cmd *exec.Cmd, waitErr error, name string, timeout time.Duration, stderr string) (State, error) {
	if waitErr == nil {
		return StateSucceeded, nil
	}
	// Output pipes held by a grandchild after a clean exit.
	if errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() && runCtx.Err() == nil {
		return StateSucceeded, nil
	}
	if errors.Is(parent.Err(), context.Canceled) {
		return StateCanceled, fmt.Errorf("%w: %s", ErrCanceled, name)
	}
	if runCtx.Err() != nil {
		return StateTimedOut, fmt.Errorf("%w: %s did not finish within %s", ErrTimeout, name, timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			return StateFailedExitCode, fmt.Errorf("%w: %s exited with code %d", ErrExitCode, name, exitErr.ExitCode())
		}
		return StateFailedExitCode, fmt.Errorf("%w: %s exited with code %d: %s", ErrExitCode, name, exitErr.ExitCode(), msg)
	}
	return StateFailedSpawn, fmt.Errorf("%w: %s: %w", ErrSpawn, name, waitErr)
}

func checkInvocation(program string, args []string) error {
	if strings.TrimSpace(program) == "" {
		return errors.New("program path is empty")
	}
	if err := pathsec.ExecutablePathError(program); err != nil {
		return err
	}
	for _, a := range args {
		if err := pathsec.ValidateArgument(a); err != nil {
			return fmt.Errorf("argument %q: %w", a, err)
		}
	}
	return nil
}
