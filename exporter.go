package notes2pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/alnah/go-notes2pdf/internal/cliexec"
	"github.com/alnah/go-notes2pdf/internal/deps"
	"github.com/alnah/go-notes2pdf/internal/envbuild"
	"github.com/alnah/go-notes2pdf/internal/fileutil"
	"github.com/alnah/go-notes2pdf/internal/pathsec"
	"github.com/alnah/go-notes2pdf/internal/pipeline"
)

// Names of the intermediate files inside a work directory.
const (
	workDirPrefix = "notes2pdf"
	markdownFile  = "doc.md"
	typstFile     = "doc.typ"
)

// dirPermissions is used for output subdirectories: rwxr-x---.
const dirPermissions = 0o750

// unsafeNameChars are replaced in output file names.
var unsafeNameChars = strings.NewReplacer("<", "-", ">", "-", ":", "-", `"`, "-", "|", "-", "?", "-", "*", "-")

// Exporter turns vault notes into PDFs. It is safe for concurrent use once
// created; each Export call is independent.
type Exporter struct {
	cfg          exporterConfig
	outDir       string
	logger       hclog.Logger
	checker      DependencyChecker
	runner       Runner
	builder      envbuild.Builder
	environ      func() []string
	preprocessor pipeline.MarkdownPreprocessor
}

// NewExporter creates an Exporter. WithVault is required; everything else
// has a default.
func NewExporter(opts ...Option) (*Exporter, error) {
	e := &Exporter{
		cfg: exporterConfig{
			outputFolder: DefaultOutputFolder,
			pageSize:     DefaultPageSize,
			timeout:      DefaultTimeout,
			rasterDPI:    DefaultRasterDPI,
		},
		logger:       hclog.NewNullLogger(),
		builder:      envbuild.NewBuilder(),
		environ:      os.Environ,
		preprocessor: &pipeline.NotePreprocessor{},
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.validate(); err != nil {
		return nil, err
	}

	if e.runner == nil {
		e.runner = cliexec.New(cliexec.WithLogger(e.logger.Named("exec")))
	}
	if e.checker == nil {
		checker, err := deps.NewChecker(e.runner,
			deps.WithLogger(e.logger.Named("deps")),
			deps.WithPolicy(deps.PolicyStrict),
		)
		if err != nil {
			return nil, fmt.Errorf("creating dependency checker: %w", err)
		}
		e.checker = checker
	}

	return e, nil
}

// validate checks the options and normalizes the vault path.
func (e *Exporter) validate() error {
	vault := strings.TrimSpace(e.cfg.vault)
	if vault == "" {
		return ErrVaultRequired
	}
	abs, err := filepath.Abs(vault)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVaultNotFound, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrVaultNotFound, vault)
	}
	e.cfg.vault = abs

	outDir, err := pathsec.SafeJoin(abs, e.cfg.outputFolder)
	if err != nil {
		return fmt.Errorf("output folder %q: %w", e.cfg.outputFolder, err)
	}
	e.outDir = outDir

	if e.cfg.workers < 0 || e.cfg.workers > MaxWorkers {
		return fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidWorkers, e.cfg.workers, MaxWorkers)
	}
	if e.cfg.timeout <= 0 {
		return fmt.Errorf("%w: %s (must be positive)", ErrInvalidTimeout, e.cfg.timeout)
	}
	if e.cfg.rasterDPI < MinRasterDPI || e.cfg.rasterDPI > MaxRasterDPI {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidRasterDPI, e.cfg.rasterDPI, MinRasterDPI, MaxRasterDPI)
	}
	return nil
}

// Vault returns the absolute vault path.
func (e *Exporter) Vault() string { return e.cfg.vault }

// OutputDir returns the absolute output directory.
func (e *Exporter) OutputDir() string { return e.outDir }

// Export converts docs to PDF.
//
// The returned error covers the batch as a whole: no documents, a required
// tool missing (ErrDependencyUnavailable) or ctx canceled. Per-document
// failures are reported in BatchResult.Results.
func (e *Exporter) Export(ctx context.Context, docs []Document) (*BatchResult, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	report := e.checker.CheckAll(ctx, e.toolSettings())
	batch := &BatchResult{Report: report}
	if missing := report.MissingRequired(); len(missing) > 0 {
		return batch, fmt.Errorf("%w: %s", ErrDependencyUnavailable, describeMissing(report, missing))
	}
	if err := ctx.Err(); err != nil {
		return batch, err
	}

	raster := report.Results[deps.ToolRasterizer]
	batch.Rasterize = raster.Available
	if !raster.Available {
		e.logger.Warn("rasterizer unavailable, embedded PDFs will be linked", "tool", raster.Tool, "error", raster.Error)
	}
	batch.PaperSize = MapToTypstPaperSize(e.cfg.pageSize, e.logger)

	run := &exportRun{
		e:                e,
		logger:           e.logger,
		total:            len(docs),
		paper:            batch.PaperSize,
		rasterizeEnabled: batch.Rasterize,
		programs:         make(map[deps.Tool]string, len(report.Results)),
	}
	for tool, res := range report.Results {
		run.programs[tool] = res.ExecutablePath
	}

	workers := ResolvePoolSize(e.cfg.workers)
	e.logger.Info("exporting documents", "documents", len(docs), "workers", workers, "paper", batch.PaperSize, "output", e.outDir)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stopped atomic.Bool
	batch.Results = make([]DocumentResult, len(docs))
	runPool(runCtx, workers, len(docs), func(ctx context.Context, idx int) {
		if err := ctx.Err(); err != nil {
			if stopped.Load() {
				err = ErrSkipped
			}
			batch.Results[idx] = DocumentResult{Input: docs[idx].Path, Err: err, Stage: StagePending}
			run.progress(idx, docs[idx].Path, StageFailed, err)
			return
		}

		res := run.exportOne(ctx, idx, docs[idx])
		batch.Results[idx] = res
		if res.Err != nil && e.cfg.failFast && stopped.CompareAndSwap(false, true) {
			e.logger.Warn("stopping batch after failure", "document", res.Input, "error", res.Err)
			cancel()
		}
	})

	if err := ctx.Err(); err != nil {
		return batch, err
	}
	return batch, nil
}

// toolSettings returns the configured settings for every tool.
func (e *Exporter) toolSettings() map[deps.Tool]deps.Settings {
	out := make(map[deps.Tool]deps.Settings, len(deps.Tools()))
	for _, tool := range deps.Tools() {
		out[tool] = e.cfg.tools[tool]
	}
	return out
}

func describeMissing(report *deps.Report, missing []deps.Tool) string {
	parts := make([]string, 0, len(missing))
	for _, tool := range missing {
		res := report.Results[tool]
		if res.Error != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", tool, res.Error))
		} else {
			parts = append(parts, tool.String())
		}
	}
	return strings.Join(parts, ", ")
}

// exportRun holds the state shared by the documents of one Export call.
type exportRun struct {
	e                *Exporter
	logger           hclog.Logger
	total            int
	paper            string
	rasterizeEnabled bool
	programs         map[deps.Tool]string

	mu sync.Mutex // serializes progress callbacks
}

func (r *exportRun) progress(idx int, doc string, stage Stage, err error) {
	fn := r.e.cfg.progress
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(Progress{Index: idx, Total: r.total, Document: doc, Stage: stage, Err: err})
}

// runTool spawns tool with a freshly built environment.
func (r *exportRun) runTool(ctx context.Context, tool deps.Tool, dir string, args []string) *cliexec.Result {
	settings := r.e.cfg.tools[tool]
	env := r.e.builder.Build(envbuild.FromEnviron(r.e.environ()), settings.AdditionalPaths, settings.CustomEnv)
	return r.e.runner.Execute(ctx, r.programs[tool], args, cliexec.Options{
		Dir:     dir,
		Env:     env,
		Timeout: r.e.cfg.timeout,
	})
}

// exportOne runs every stage for one document.
func (r *exportRun) exportOne(ctx context.Context, idx int, doc Document) DocumentResult {
	start := time.Now()
	res := DocumentResult{Input: doc.Path, Stage: StagePending}

	enter := func(stage Stage) {
		res.Stage = stage
		r.progress(idx, doc.Path, stage, nil)
	}
	fail := func(err error) DocumentResult {
		res.Err = err
		res.Duration = time.Since(start)
		r.logger.Debug("document failed", "document", doc.Path, "stage", res.Stage, "error", err)
		r.progress(idx, doc.Path, StageFailed, err)
		return res
	}

	enter(StagePreparing)

	src, err := r.sourcePath(doc.Path)
	if err != nil {
		return fail(err)
	}
	outPath, err := r.outputPath(src)
	if err != nil {
		return fail(err)
	}
	res.Output = outPath

	content, err := os.ReadFile(src) // #nosec G304 -- checked to be inside the vault
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrReadDocument, err))
	}

	workDir, cleanup, err := fileutil.MakeWorkDir(r.e.outDir, workDirPrefix)
	if err != nil {
		return fail(err)
	}
	if r.e.cfg.keepIntermediate {
		r.logger.Info("keeping intermediate files", "document", doc.Path, "dir", workDir)
	} else {
		defer cleanup()
	}

	md := r.e.preprocessor.PreprocessMarkdown(ctx, string(content))
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	md, res.Warnings = r.rewriteImages(ctx, idx, doc.Path, md, filepath.Dir(src), workDir)
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	enter(StageConverting)
	if _, err := fileutil.WriteFile(workDir, markdownFile, md); err != nil {
		return fail(err)
	}
	conv := r.runTool(ctx, deps.ToolPandoc, workDir, pandocArgs(r.paper))
	if !conv.Success {
		return fail(fmt.Errorf("%w: pandoc: %w", ErrConversion, conv.Err))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	enter(StageTypesetting)
	if err := os.MkdirAll(filepath.Dir(outPath), dirPermissions); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrOutputDirectory, err))
	}
	relOut, err := fileutil.RelSlash(workDir, outPath)
	if err != nil {
		return fail(err)
	}
	typeset := r.runTool(ctx, deps.ToolTypst, workDir, typstArgs(r.e.cfg.vault, relOut))
	if !typeset.Success {
		return fail(fmt.Errorf("%w: typst: %w", ErrTypesetting, typeset.Err))
	}

	enter(StageDone)
	res.Duration = time.Since(start)
	r.logger.Debug("document exported", "document", doc.Path, "output", outPath, "duration", res.Duration)
	return res
}

// sourcePath returns the absolute path of a document inside the vault.
func (r *exportRun) sourcePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadDocument, err)
	}
	rel, err := filepath.Rel(r.e.cfg.vault, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrDocumentOutsideVault, path)
	}
	return abs, nil
}

// outputPath mirrors the document's place in the vault under the output
// directory, with a .pdf extension.
func (r *exportRun) outputPath(src string) (string, error) {
	rel, err := filepath.Rel(r.e.cfg.vault, src)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDocumentOutsideVault, src)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ".pdf"
	rel = unsafeNameChars.Replace(filepath.ToSlash(rel))

	out, err := pathsec.SafeJoin(r.e.outDir, rel)
	if err != nil {
		return "", fmt.Errorf("output name for %s: %w", filepath.Base(src), err)
	}
	return out, nil
}

// pandocArgs converts the work directory's Markdown file to typst.
func pandocArgs(paper string) []string {
	return []string{
		markdownFile,
		"-f", "markdown",
		"-t", "typst",
		"--standalone",
		"-V", "papersize=" + paper,
		"-o", typstFile,
	}
}

// typstArgs compiles the work directory's typst file to relOut.
func typstArgs(vault, relOut string) []string {
	return []string{"compile", "--root", vault, typstFile, relOut}
}
