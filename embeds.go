package notes2pdf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/alnah/go-notes2pdf/internal/deps"
	"github.com/alnah/go-notes2pdf/internal/fileutil"
	"github.com/alnah/go-notes2pdf/internal/pipeline"
)

// MaxEmbedPages caps the pages rasterized from one embedded PDF.
const MaxEmbedPages = 50

const pdfMIME = "application/pdf"

var errNoPages = errors.New("rasterizer produced no pages")

// isPDFFile reports whether path has a .pdf extension and PDF content.
func isPDFFile(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return false
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	return mtype.Is(pdfMIME)
}

// countPages returns the page count of a PDF file.
func countPages(path string) (n int, err error) {
	// pdf.Open panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("reading %s: %v", filepath.Base(path), r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return r.NumPage(), nil
}

// rasterArgs builds the pdftocairo argument vector. in and prefix are
// relative to the work directory; pages <= 0 renders every page.
func rasterArgs(dpi, pages int, in, prefix string) []string {
	args := []string{"-png", "-r", strconv.Itoa(dpi), "-f", "1"}
	if pages > 0 {
		args = append(args, "-l", strconv.Itoa(min(pages, MaxEmbedPages)))
	}
	return append(args, in, prefix)
}

// rasterize renders the PDF at abs into PNG files named prefix-N.png inside
// workDir and returns their absolute paths in page order.
func (r *exportRun) rasterize(ctx context.Context, workDir, abs, prefix string) ([]string, error) {
	pages, err := countPages(abs)
	if err != nil {
		r.logger.Debug("page count unavailable, rendering every page", "file", abs, "error", err)
		pages = 0
	}

	in, err := fileutil.RelSlash(workDir, abs)
	if err != nil {
		return nil, err
	}

	res := r.runTool(ctx, deps.ToolRasterizer, workDir, rasterArgs(r.e.cfg.rasterDPI, pages, in, prefix))
	if !res.Success {
		return nil, fmt.Errorf("pdftocairo: %w", res.Err)
	}

	matches, err := filepath.Glob(filepath.Join(workDir, prefix+"-*.png"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errNoPages
	}
	sort.Strings(matches)
	return matches, nil
}

// formatLink renders a link to a vault-rooted file, used when an embedded
// PDF cannot be shown as images.
func formatLink(alt, rootRel string) string {
	label := alt
	if strings.TrimSpace(label) == "" {
		label = filepath.Base(filepath.FromSlash(rootRel))
	}
	return "[" + label + "](<" + rootRel + ">)"
}

// rewriteImages resolves every local image of md against the vault, turns
// embedded PDFs into page images (or links) and returns the rewritten
// Markdown with the warnings collected on the way.
func (r *exportRun) rewriteImages(ctx context.Context, idx int, docPath, md, docDir, workDir string) (string, []string) {
	refs := pipeline.ScanImages(md)
	if len(refs) == 0 {
		return md, nil
	}

	vault := r.e.cfg.vault
	var warnings []string
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		warnings = append(warnings, msg)
		r.logger.Warn(msg, "document", docPath)
	}

	rasterized := make(map[string][]string)
	reported := false

	out := pipeline.RewriteImages(md, refs, func(ref pipeline.ImageRef) (string, bool) {
		if !pipeline.IsLocalPath(ref.Dest) {
			return "", false
		}

		abs, ok := pipeline.ResolveLocal(ref.Dest, docDir, vault)
		if !ok {
			warn("image %q is outside the vault, replaced by its alt text", ref.Dest)
			return ref.Alt, true
		}
		if !fileutil.FileExists(abs) {
			warn("image %q not found, replaced by its alt text", ref.Dest)
			return ref.Alt, true
		}
		rootRel, ok := pipeline.RootRelative(abs, vault)
		if !ok {
			return "", false
		}

		if !strings.EqualFold(filepath.Ext(abs), ".pdf") {
			return pipeline.FormatImage(ref.Alt, rootRel, ref.Title), true
		}
		if !isPDFFile(abs) {
			warn("embedded file %q is not a valid PDF, kept as a link", ref.Dest)
			return formatLink(ref.Alt, rootRel), true
		}
		if !r.rasterizeEnabled {
			warn("rasterizer unavailable, embedded PDF %q kept as a link", ref.Dest)
			return formatLink(ref.Alt, rootRel), true
		}

		pages, seen := rasterized[abs]
		if !seen {
			if !reported {
				r.progress(idx, docPath, StageRasterizing, nil)
				reported = true
			}
			var err error
			pages, err = r.rasterize(ctx, workDir, abs, "embed-"+strconv.Itoa(len(rasterized)+1))
			if err != nil {
				warn("rasterizing %q failed, kept as a link: %v", ref.Dest, err)
			}
			rasterized[abs] = pages
		}
		if len(pages) == 0 {
			return formatLink(ref.Alt, rootRel), true
		}

		images := make([]string, 0, len(pages))
		for _, page := range pages {
			pageRel, ok := pipeline.RootRelative(page, vault)
			if !ok {
				return formatLink(ref.Alt, rootRel), true
			}
			images = append(images, pipeline.FormatImage(ref.Alt, pageRel, ref.Title))
		}
		return strings.Join(images, "\n\n"), true
	})

	return out, warnings
}
