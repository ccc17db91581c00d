package main

import (
	"io"

	"github.com/hashicorp/go-hclog"
)

// newLogger builds the CLI logger: warnings by default, debug traces
// (commands, timings) with --verbose, errors only with --quiet.
func newLogger(w io.Writer, quiet, verbose bool) hclog.Logger {
	level := hclog.Warn
	switch {
	case verbose:
		level = hclog.Debug
	case quiet:
		level = hclog.Error
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "notes2pdf",
		Level:  level,
		Output: w,
	})
}
