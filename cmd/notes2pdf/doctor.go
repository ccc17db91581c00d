package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-notes2pdf/internal/cliexec"
	"github.com/alnah/go-notes2pdf/internal/config"
	"github.com/alnah/go-notes2pdf/internal/deps"
	"github.com/alnah/go-notes2pdf/internal/hints"
)

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// errWatchNeedsConfig is returned for --watch without a config file.
var errWatchNeedsConfig = fmt.Errorf("%w: --watch needs a config file (-c or NOTES2PDF_CONFIG)", ErrUsage)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string          `json:"status"` // "ready", "warnings", "errors"
	Tools    []deps.Result   `json:"tools"`
	Guidance []deps.Guidance `json:"guidance,omitempty"`
	System   systemInfo      `json:"system"`
	Warnings []string        `json:"warnings,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
}

// systemInfo holds platform detection results.
type systemInfo struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	Container bool   `json:"container"`
}

// doctorChecker is the part of *deps.Checker the doctor uses.
type doctorChecker interface {
	CheckAll(ctx context.Context, settings map[deps.Tool]deps.Settings) *deps.Report
	Invalidate()
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = a required tool is unusable.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	flags, err := parseDoctorFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}

	logger := newLogger(env.Stderr, flags.common.quiet, flags.common.verbose)
	checker, err := deps.NewChecker(
		cliexec.New(cliexec.WithLogger(logger.Named("exec"))),
		deps.WithLogger(logger.Named("deps")),
		deps.WithPolicy(deps.PolicyWarn),
	)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return ExitGeneral
	}

	code, err := runDoctor(ctx, flags, checker, logger, env)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}
	return code
}

// runDoctor prints one report, then with --watch one more per config change
// until ctx is done.
func runDoctor(ctx context.Context, flags *doctorFlags, checker doctorChecker, logger hclog.Logger, env *Environment) (int, error) {
	environ := env.Environ()
	envCfg := loadEnvConfig(environ)

	name := flags.common.config
	if name == "" {
		name = envCfg.ConfigPath
	}
	if flags.watch && name == "" {
		return ExitUsage, errWatchNeedsConfig
	}

	cfg, err := loadConfig(flags.common.config, envCfg)
	if err != nil {
		return ExitUsage, err
	}
	report := func(cfg *config.Config) int {
		applyEnvConfig(envCfg, cfg)
		applyToolFlags(&flags.tools, cfg)
		result := diagnose(ctx, checker, cfg.DependencySettings(), runtime.GOOS)
		printDoctor(env.Stdout, result, flags.json)
		if result.Status == statusErrors {
			return ExitGeneral
		}
		return ExitSuccess
	}

	code := report(cfg)
	if !flags.watch {
		return code, nil
	}

	path, err := config.Locate(name)
	if err != nil {
		return ExitUsage, err
	}
	watcher, err := config.NewWatcher(path, logger.Named("watch"))
	if err != nil {
		return ExitGeneral, err
	}
	if !flags.json {
		fmt.Fprintf(env.Stderr, "watching %s for changes (Ctrl+C to stop)\n", path)
	}

	err = watcher.Run(ctx, func(newCfg *config.Config, err error) {
		if err != nil {
			fmt.Fprintf(env.Stderr, "error: reloading config: %v\n", err)
			return
		}
		checker.Invalidate()
		code = report(newCfg)
	})
	return code, err
}

// applyToolFlags overrides tool paths with the --pandoc/--typst/--pdftocairo flags.
func applyToolFlags(f *toolFlags, cfg *config.Config) {
	if f.pandoc != "" {
		cfg.Tools.Pandoc.CustomPath = f.pandoc
	}
	if f.typst != "" {
		cfg.Tools.Typst.CustomPath = f.typst
	}
	if f.pdftocairo != "" {
		cfg.Tools.Pdftocairo.CustomPath = f.pdftocairo
	}
}

// diagnose checks every tool and collects guidance for the unavailable ones.
func diagnose(ctx context.Context, checker doctorChecker, settings map[deps.Tool]deps.Settings, goos string) *doctorResult {
	report := checker.CheckAll(ctx, settings)
	result := &doctorResult{
		Status: statusReady,
		Tools:  report.Ordered(),
		System: systemInfo{
			OS:        goos,
			Arch:      runtime.GOARCH,
			Container: hints.IsInContainer(),
		},
	}

	for _, r := range result.Tools {
		switch {
		case !r.Available && !r.Optional:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", r.Tool, r.Error))
			result.Guidance = append(result.Guidance, deps.InstallGuidance(r.Tool, goos))
		case !r.Available:
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s (optional): %s; embedded PDFs will be kept as links", r.Tool, r.Error))
			result.Guidance = append(result.Guidance, deps.InstallGuidance(r.Tool, goos))
		case r.Warning != "":
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", r.Tool, r.Warning))
		}
	}

	if len(result.Errors) > 0 {
		result.Status = statusErrors
	} else if len(result.Warnings) > 0 {
		result.Status = statusWarnings
	}
	return result
}

// printDoctor writes the result as indented JSON or as colored text.
func printDoctor(w io.Writer, r *doctorResult, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(r)
		return
	}
	printDoctorResult(w, r, newPalette(!color.NoColor))
}

// palette holds the status markers, colored or plain.
type palette struct {
	ok, warn, fail, dim func(a ...interface{}) string
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		ok:   mk(color.FgGreen),
		warn: mk(color.FgYellow),
		fail: mk(color.FgRed, color.Bold),
		dim:  mk(color.Faint),
	}
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult, p palette) {
	fmt.Fprintln(w, "notes2pdf doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Tools")
	for _, t := range r.Tools {
		label := t.Tool.String()
		if t.Optional {
			label += " (optional)"
		}
		switch {
		case t.Available && t.Warning != "":
			fmt.Fprintf(w, "  %s %s %s at %s\n", p.warn("[WARN]"), label, t.Version, t.ExecutablePath)
		case t.Available:
			fmt.Fprintf(w, "  %s %s %s at %s\n", p.ok("[OK]"), label, t.Version, t.ExecutablePath)
		case t.Optional:
			fmt.Fprintf(w, "  %s %s: %s\n", p.warn("[WARN]"), label, t.Error)
		default:
			fmt.Fprintf(w, "  %s %s: %s\n", p.fail("[ERROR]"), label, t.Error)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  %s Platform: %s/%s\n", p.ok("[OK]"), r.System.OS, r.System.Arch)
	if r.System.Container {
		fmt.Fprintf(w, "  %s Container: detected\n", p.ok("[OK]"))
	}
	fmt.Fprintln(w)

	if len(r.Guidance) > 0 {
		fmt.Fprintln(w, "Install")
		for _, g := range r.Guidance {
			fmt.Fprintf(w, "  %s: %s\n", g.Tool, g.Instructions)
			for _, c := range g.Commands {
				fmt.Fprintf(w, "    $ %s\n", c)
			}
			for _, tip := range g.Tips {
				fmt.Fprintf(w, "    %s\n", p.dim("- "+tip))
			}
			if g.URL != "" {
				fmt.Fprintf(w, "    %s\n", p.dim(g.URL))
			}
		}
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  %s %s\n", p.warn("[WARN]"), warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  %s %s\n", p.fail("[ERROR]"), err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to export")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

var _ doctorChecker = (*deps.Checker)(nil)
