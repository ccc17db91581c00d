package main

import (
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-notes2pdf/internal/hints"
	"github.com/alnah/go-notes2pdf/internal/pathsec"
)

// runCheckPathCmd validates one path and prints the verdict.
// Exit codes: 0 = valid, 2 = invalid or bad usage.
func runCheckPathCmd(args []string, env *Environment) int {
	flags, path, err := parseCheckPathFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}

	kind := "output folder"
	verdict := pathsec.CheckOutputPath(path)
	if flags.executable {
		kind = "executable path"
		verdict = pathsec.CheckExecutablePath(path)
	}

	if verdict.Valid {
		fmt.Fprintf(env.Stdout, "valid %s: %q\n", kind, path)
		return ExitSuccess
	}

	hint := ""
	if !flags.executable {
		hint = hints.ForInvalidPath()
	}
	fmt.Fprintf(env.Stdout, "invalid %s: %q: %v%s\n", kind, path, verdict.Reason, hint)
	return exitCodeFor(verdict.Reason)
}
