package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/hashicorp/go-hclog"
	flag "github.com/spf13/pflag"

	notes2pdf "github.com/alnah/go-notes2pdf"
	"github.com/alnah/go-notes2pdf/internal/cliexec"
	"github.com/alnah/go-notes2pdf/internal/config"
	"github.com/alnah/go-notes2pdf/internal/deps"
	"github.com/alnah/go-notes2pdf/internal/hints"
	"github.com/alnah/go-notes2pdf/internal/pathsec"
	"github.com/alnah/go-notes2pdf/internal/yamlutil"
)

// spinnerCharset is the braille spinner; spinnerInterval its frame delay.
const (
	spinnerCharset  = 14
	spinnerInterval = 100 * time.Millisecond
)

// runExportCmd parses export flags, runs the export and returns an exit code.
func runExportCmd(ctx context.Context, args []string, env *Environment) int {
	flags, inputs, err := parseExportFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}

	if err := runExport(ctx, inputs, flags, env); err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// runExport orchestrates the export: config, discovery, export, report.
func runExport(ctx context.Context, inputs []string, flags *exportFlags, env *Environment) error {
	logger := newLogger(env.Stderr, flags.common.quiet, flags.common.verbose)

	environ := env.Environ()
	if !flags.common.quiet {
		warnUnknownEnvVars(env.Stderr, environ)
	}

	envCfg := loadEnvConfig(environ)
	cfg, err := loadConfig(flags.common.config, envCfg)
	if err != nil {
		return err
	}
	applyEnvConfig(envCfg, cfg)
	if err := mergeExportFlags(flags, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ui := newExportUI(env, flags.common.quiet)
	exporter, err := notes2pdf.NewExporter(exporterOptions(cfg, logger, ui.update)...)
	if err != nil {
		return err
	}

	if len(inputs) == 0 {
		inputs = []string{exporter.Vault()}
	}
	notes, err := discoverNotes(inputs, exporter.OutputDir())
	if err != nil {
		return fmt.Errorf("discovering notes: %w", err)
	}
	docs := make([]notes2pdf.Document, len(notes))
	for i, n := range notes {
		docs[i] = notes2pdf.Document{Path: n}
	}

	ui.start(len(docs))
	batch, err := exporter.Export(ctx, docs)
	ui.stop()

	if batch != nil && batch.Report != nil && err == nil {
		printDependencyWarnings(env.Stderr, batch.Report, flags.common.quiet)
	}
	if errors.Is(err, notes2pdf.ErrDependencyUnavailable) && batch != nil && batch.Report != nil {
		return fmt.Errorf("%w%s", err, missingToolHints(batch.Report))
	}
	if batch != nil && len(batch.Results) > 0 {
		if firstErr := printResults(batch.Results, flags.common.quiet, flags.common.verbose, env); firstErr != nil && err == nil {
			err = fmt.Errorf("%d export(s) failed: %w", batch.Failed(), firstErr)
		}
	}
	return err
}

// loadConfig loads the config named by the flag, or by NOTES2PDF_CONFIG, or
// returns the defaults.
func loadConfig(name string, envCfg *envConfig) (*config.Config, error) {
	if name == "" {
		name = envCfg.ConfigPath
	}
	if name == "" {
		return config.DefaultConfig(), nil
	}

	cfg, err := config.LoadConfig(name)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(config.SearchPaths(name)))
		}
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mergeExportFlags merges CLI flags into config. CLI values override config values.
func mergeExportFlags(flags *exportFlags, cfg *config.Config) error {
	if flags.vault != "" {
		cfg.Vault = flags.vault
	}
	if flags.output != "" {
		cfg.Output.Folder = flags.output
	}
	if flags.pageSize != "" {
		cfg.Page.Size = flags.pageSize
	}
	if flags.workers != unsetInt {
		cfg.Export.Workers = flags.workers
	}
	if flags.timeout != "" {
		d, err := parseTimeout(flags.timeout)
		if err != nil {
			return err
		}
		cfg.Export.Timeout = yamlutil.Duration(d)
	}
	if flags.rasterDPI != unsetInt {
		cfg.Export.RasterDPI = flags.rasterDPI
	}
	if flags.failFast {
		cfg.Export.FailFast = true
	}
	if flags.keepIntermediate {
		cfg.Output.KeepIntermediate = true
	}

	if flags.tools.pandoc != "" {
		cfg.Tools.Pandoc.CustomPath = flags.tools.pandoc
	}
	if flags.tools.typst != "" {
		cfg.Tools.Typst.CustomPath = flags.tools.typst
	}
	if flags.tools.pdftocairo != "" {
		cfg.Tools.Pdftocairo.CustomPath = flags.tools.pdftocairo
	}
	return nil
}

// exporterOptions translates the merged config into exporter options.
// Zero values keep the exporter defaults.
func exporterOptions(cfg *config.Config, logger hclog.Logger, progress func(notes2pdf.Progress)) []notes2pdf.Option {
	vault := cfg.Vault
	if vault == "" {
		vault = "."
	}

	opts := []notes2pdf.Option{
		notes2pdf.WithVault(vault),
		notes2pdf.WithLogger(logger),
		notes2pdf.WithWorkers(cfg.Export.Workers),
		notes2pdf.WithFailFast(cfg.Export.FailFast),
		notes2pdf.WithKeepIntermediate(cfg.Output.KeepIntermediate),
		notes2pdf.WithToolSettings(cfg.DependencySettings()),
		notes2pdf.WithProgress(progress),
	}
	if cfg.Output.Folder != "" {
		opts = append(opts, notes2pdf.WithOutputFolder(cfg.Output.Folder))
	}
	if cfg.Page.Size != "" {
		opts = append(opts, notes2pdf.WithPageSize(cfg.Page.Size))
	}
	if d := cfg.Export.Timeout.Std(); d > 0 {
		opts = append(opts, notes2pdf.WithTimeout(d))
	}
	if cfg.Export.RasterDPI > 0 {
		opts = append(opts, notes2pdf.WithRasterDPI(cfg.Export.RasterDPI))
	}
	return opts
}

// printResults outputs export results and returns the first real failure.
// Documents skipped after a fail-fast stop do not count as the cause.
func printResults(results []notes2pdf.DocumentResult, quiet, verbose bool, env *Environment) error {
	var firstErr error
	var succeeded, failed int

	for _, r := range results {
		if !quiet {
			for _, w := range r.Warnings {
				fmt.Fprintf(env.Stderr, "warning: %s: %s\n", r.Input, w)
			}
		}

		if r.Err != nil {
			failed++
			if errors.Is(r.Err, notes2pdf.ErrSkipped) {
				if !quiet {
					fmt.Fprintf(env.Stderr, "SKIPPED %s\n", r.Input)
				}
				continue
			}
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.Input, r.Err, hintFor(r.Err))
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}

		succeeded++
		if quiet {
			continue
		}
		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", r.Input, r.Output, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.Output)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", succeeded, failed)
	}
	return firstErr
}

// printDependencyWarnings reports tools that are usable with caveats, and
// the optional rasterizer when it is missing.
func printDependencyWarnings(w io.Writer, report *deps.Report, quiet bool) {
	if quiet {
		return
	}
	for _, r := range report.Ordered() {
		switch {
		case r.Warning != "":
			fmt.Fprintf(w, "warning: %s: %s\n", r.Tool, r.Warning)
		case !r.Available && r.Optional:
			fmt.Fprintf(w, "warning: %s unavailable, embedded PDFs are kept as links: %s\n", r.Tool, r.Error)
		}
	}
}

// missingToolHints returns one hint per unavailable required tool.
func missingToolHints(report *deps.Report) string {
	var out string
	for _, tool := range report.MissingRequired() {
		out += toolHint(report.Results[tool])
	}
	return out
}

// toolHint picks the hint matching why a tool check failed.
func toolHint(r deps.Result) string {
	name := r.Tool.String()
	switch r.Kind {
	case deps.KindNotFound, deps.KindSpawn:
		return hints.ForNotFound(name, "--"+name)
	case deps.KindTimeout:
		return hints.ForTimeout()
	case deps.KindVersionParse:
		return hints.ForVersionParse(name)
	case deps.KindBelowMinimum:
		return hints.ForBelowMinimum(name)
	case deps.KindExitCode:
		return hints.ForExitCode()
	}
	return ""
}

// hintFor returns an actionable hint for an export error, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, cliexec.ErrTimeout):
		return hints.ForTimeout()
	case errors.Is(err, cliexec.ErrSpawn) && errors.Is(err, notes2pdf.ErrConversion):
		return hints.ForNotFound("pandoc", "--pandoc")
	case errors.Is(err, cliexec.ErrSpawn) && errors.Is(err, notes2pdf.ErrTypesetting):
		return hints.ForNotFound("typst", "--typst")
	case errors.Is(err, cliexec.ErrExitCode):
		return hints.ForExitCode()
	case errors.Is(err, pathsec.ErrValidation):
		return hints.ForInvalidPath()
	case errors.Is(err, notes2pdf.ErrOutputDirectory):
		return hints.ForOutputDirectory()
	}
	return ""
}

// exportUI shows a spinner on interactive terminals. Its update method is
// safe to call from the exporter's workers.
type exportUI struct {
	spin *spinner.Spinner
	mu   sync.Mutex
	done int
}

// newExportUI returns a UI with a spinner only when stderr is a terminal and
// output is not quiet.
func newExportUI(env *Environment, quiet bool) *exportUI {
	ui := &exportUI{}
	if quiet || env.IsTerminal == nil || !env.IsTerminal() {
		return ui
	}
	ui.spin = spinner.New(spinner.CharSets[spinnerCharset], spinnerInterval,
		spinner.WithWriter(env.Stderr),
		spinner.WithHiddenCursor(true),
	)
	return ui
}

func (u *exportUI) start(total int) {
	if u.spin == nil {
		return
	}
	u.spin.Suffix = fmt.Sprintf(" exporting 0/%d", total)
	u.spin.Start()
}

func (u *exportUI) stop() {
	if u.spin != nil {
		u.spin.Stop()
	}
}

// update receives exporter progress and refreshes the spinner suffix.
func (u *exportUI) update(p notes2pdf.Progress) {
	u.mu.Lock()
	if p.Stage == notes2pdf.StageDone || p.Stage == notes2pdf.StageFailed {
		u.done++
	}
	suffix := fmt.Sprintf(" exporting %d/%d: %s %s", u.done, p.Total, p.Stage, p.Document)
	u.mu.Unlock()

	if u.spin == nil {
		return
	}
	u.spin.Lock()
	u.spin.Suffix = suffix
	u.spin.Unlock()
}
