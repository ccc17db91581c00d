package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
)

// ErrUsage wraps flag parsing errors.
var ErrUsage = errors.New("invalid usage")

// unsetInt marks an integer flag that was not given. 0 is a valid value
// for --workers (auto), so the default has to be out of range.
const unsetInt = -1

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// toolFlags holds per-tool executable overrides.
type toolFlags struct {
	pandoc     string
	typst      string
	pdftocairo string
}

// exportFlags holds all flags for the export command.
type exportFlags struct {
	common           commonFlags
	tools            toolFlags
	vault            string
	output           string
	pageSize         string
	workers          int
	timeout          string
	rasterDPI        int
	failFast         bool
	keepIntermediate bool
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	common commonFlags
	tools  toolFlags
	json   bool
	watch  bool
}

// checkPathFlags holds flags for the check-path command.
type checkPathFlags struct {
	executable bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show commands and timings")
}

// addToolFlags adds executable override flags to a FlagSet.
func addToolFlags(fs *flag.FlagSet, f *toolFlags) {
	fs.StringVar(&f.pandoc, "pandoc", "", "pandoc executable path or name")
	fs.StringVar(&f.typst, "typst", "", "typst executable path or name")
	fs.StringVar(&f.pdftocairo, "pdftocairo", "", "pdftocairo executable path or name")
}

// newFlagSet creates a FlagSet that reports errors instead of exiting and
// prints usage to w.
func newFlagSet(name string, w io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() { usage(w) }
	return fs
}

// parseExportFlags parses export command flags and returns positional args.
func parseExportFlags(args []string, w io.Writer) (*exportFlags, []string, error) {
	fs := newFlagSet("export", w, printExportUsage)
	f := &exportFlags{}

	fs.StringVar(&f.vault, "vault", "", "vault root directory")
	fs.StringVarP(&f.output, "output", "o", "", "output folder, relative to the vault")
	fs.StringVarP(&f.pageSize, "page-size", "p", "", "page size: a4, letter, legal, ...")
	fs.IntVarP(&f.workers, "workers", "w", unsetInt, "parallel documents (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "timeout per tool run (e.g., 90s, 2m)")
	fs.IntVar(&f.rasterDPI, "dpi", unsetInt, "resolution of embedded PDF pages")
	fs.BoolVar(&f.failFast, "fail-fast", false, "stop at the first failed document")
	fs.BoolVar(&f.keepIntermediate, "keep-intermediate", false, "keep work files for debugging")

	addCommonFlags(fs, &f.common)
	addToolFlags(fs, &f.tools)

	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return f, fs.Args(), nil
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string, w io.Writer) (*doctorFlags, error) {
	fs := newFlagSet("doctor", w, printDoctorUsage)
	f := &doctorFlags{}

	fs.BoolVar(&f.json, "json", false, "print the report as JSON")
	fs.BoolVar(&f.watch, "watch", false, "re-run when the config file changes")
	addCommonFlags(fs, &f.common)
	addToolFlags(fs, &f.tools)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: doctor takes no arguments, got %q", ErrUsage, fs.Args())
	}
	return f, nil
}

// parseCheckPathFlags parses check-path flags and returns the path to check.
func parseCheckPathFlags(args []string, w io.Writer) (*checkPathFlags, string, error) {
	fs := newFlagSet("check-path", w, printCheckPathUsage)
	f := &checkPathFlags{}

	fs.BoolVar(&f.executable, "executable", false, "validate as an executable path instead of an output folder")

	if err := fs.Parse(args); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() != 1 {
		return nil, "", fmt.Errorf("%w: check-path takes exactly one path", ErrUsage)
	}
	return f, fs.Arg(0), nil
}

// parseTimeout accepts a Go duration ("90s", "2m") or bare seconds ("90").
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("%w: timeout must be positive, got %q", ErrUsage, s)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: invalid timeout %q (use e.g. 90s or 2m)", ErrUsage, s)
	}
	return d, nil
}
