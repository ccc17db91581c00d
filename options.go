package notes2pdf

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/alnah/go-notes2pdf/internal/cliexec"
	"github.com/alnah/go-notes2pdf/internal/deps"
)

// Defaults applied by NewExporter.
const (
	DefaultOutputFolder = "exports"
	DefaultPageSize     = "a4"
	DefaultTimeout      = 2 * time.Minute
	DefaultRasterDPI    = 150
)

// Raster DPI bounds.
const (
	MinRasterDPI = 36
	MaxRasterDPI = 600
)

// MaxWorkers caps WithWorkers.
const MaxWorkers = 32

// DependencyChecker reports which external tools are usable.
// *deps.Checker implements it.
type DependencyChecker interface {
	CheckAll(ctx context.Context, settings map[deps.Tool]deps.Settings) *deps.Report
}

// Runner spawns external tools. *cliexec.Executor implements it.
type Runner interface {
	Execute(ctx context.Context, program string, args []string, opts cliexec.Options) *cliexec.Result
}

// Compile-time interface implementation checks.
var (
	_ DependencyChecker = (*deps.Checker)(nil)
	_ Runner            = (*cliexec.Executor)(nil)
)

// exporterConfig holds the settings collected from options.
type exporterConfig struct {
	vault            string
	outputFolder     string
	pageSize         string
	workers          int
	timeout          time.Duration
	rasterDPI        int
	failFast         bool
	keepIntermediate bool
	progress         func(Progress)
	tools            map[deps.Tool]deps.Settings
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithVault sets the vault root. Typst resolves images against it and every
// exported document must live inside it.
func WithVault(dir string) Option {
	return func(e *Exporter) {
		e.cfg.vault = dir
	}
}

// WithOutputFolder sets the output folder, relative to the vault.
func WithOutputFolder(folder string) Option {
	return func(e *Exporter) {
		e.cfg.outputFolder = folder
	}
}

// WithPageSize sets the paper size ("a4", "letter", ...).
// Unknown sizes fall back to a4 with a warning.
func WithPageSize(size string) Option {
	return func(e *Exporter) {
		e.cfg.pageSize = size
	}
}

// WithWorkers sets the number of documents exported concurrently.
// Zero picks a value from GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Exporter) {
		e.cfg.workers = n
	}
}

// WithTimeout bounds each pandoc, typst and pdftocairo run.
func WithTimeout(d time.Duration) Option {
	return func(e *Exporter) {
		e.cfg.timeout = d
	}
}

// WithRasterDPI sets the resolution of rasterized PDF pages.
func WithRasterDPI(dpi int) Option {
	return func(e *Exporter) {
		e.cfg.rasterDPI = dpi
	}
}

// WithFailFast stops the batch at the first failed document.
func WithFailFast(enabled bool) Option {
	return func(e *Exporter) {
		e.cfg.failFast = enabled
	}
}

// WithKeepIntermediate keeps the work directories (Markdown, typst source,
// rasterized pages) for debugging.
func WithKeepIntermediate(enabled bool) Option {
	return func(e *Exporter) {
		e.cfg.keepIntermediate = enabled
	}
}

// WithProgress registers a callback for stage changes. Calls are serialized.
func WithProgress(fn func(Progress)) Option {
	return func(e *Exporter) {
		e.cfg.progress = fn
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l hclog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithToolSettings sets the per-tool settings (custom path, minimum version,
// search directories, environment).
func WithToolSettings(settings map[deps.Tool]deps.Settings) Option {
	return func(e *Exporter) {
		e.cfg.tools = settings
	}
}

// WithChecker replaces the dependency checker.
func WithChecker(c DependencyChecker) Option {
	return func(e *Exporter) {
		e.checker = c
	}
}

// WithRunner replaces the process runner used for conversions.
func WithRunner(r Runner) Option {
	return func(e *Exporter) {
		e.runner = r
	}
}
