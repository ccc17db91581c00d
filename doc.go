// Package notes2pdf exports Markdown notes from a vault to PDF.
//
// The heavy lifting is done by external tools: pandoc converts Markdown to
// typst markup and typst typesets the PDF. Embedded PDFs (![](scan.pdf)) are
// rasterized to page images with pdftocairo when it is installed, and turned
// into links otherwise.
//
// # Quick Start
//
//	exp, err := notes2pdf.NewExporter(
//	    notes2pdf.WithVault("/home/me/notes"),
//	    notes2pdf.WithOutputFolder("exports"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	batch, err := exp.Export(ctx, []notes2pdf.Document{
//	    {Path: "/home/me/notes/ideas.md"},
//	})
//	if err != nil {
//	    log.Fatal(err) // tool missing, invalid output folder, ...
//	}
//	for _, r := range batch.Results {
//	    fmt.Println(r.Output, r.Err)
//	}
//
// # Export Pipeline
//
// Once per export the output folder is validated and every tool is checked
// with internal/deps. Export stops with ErrDependencyUnavailable when pandoc
// or typst is missing. Then each document goes through these stages:
//
//  1. Preparing: read the note, rewrite note syntax, resolve local images
//  2. Rasterizing: turn embedded PDFs into PNG pages (pdftocairo)
//  3. Converting: Markdown to typst (pandoc)
//  4. Typesetting: typst to PDF (typst compile --root <vault>)
//
// Intermediate files live in a hidden work directory inside the output
// folder and are removed afterwards unless WithKeepIntermediate is set.
//
// # Parallel Processing
//
// Documents are exported by a bounded worker pool (see ResolvePoolSize).
// One failing document does not stop the others unless WithFailFast is set.
// Cancelling the context kills in-flight tools and skips pending documents.
//
// # Security
//
// Tools are always spawned with a discrete argument vector, never through a
// shell. Executable paths, the output folder and derived file names are
// validated by internal/pathsec before they reach a subprocess.
package notes2pdf
