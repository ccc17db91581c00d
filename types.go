package notes2pdf

import (
	"fmt"
	"time"

	"github.com/alnah/go-notes2pdf/internal/deps"
)

// Document is one note to export.
type Document struct {
	Path string // Markdown file, absolute or relative to the working directory
}

// Stage is a step of a document's export.
type Stage int

// Export stages in the order a document goes through them.
const (
	StagePending Stage = iota
	StagePreparing
	StageRasterizing
	StageConverting
	StageTypesetting
	StageDone
	StageFailed
)

var stageNames = map[Stage]string{
	StagePending:     "pending",
	StagePreparing:   "preparing",
	StageRasterizing: "rasterizing",
	StageConverting:  "converting",
	StageTypesetting: "typesetting",
	StageDone:        "done",
	StageFailed:      "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// DocumentResult is the outcome of exporting one document.
type DocumentResult struct {
	Input    string        // Markdown path as given
	Output   string        // PDF path, set once the output path is known
	Err      error         // nil on success
	Stage    Stage         // last stage reached
	Duration time.Duration // wall time for this document
	Warnings []string      // degraded embeds, missing images, ...
}

// BatchResult is the outcome of one Export call.
type BatchResult struct {
	Results   []DocumentResult // in input order
	Report    *deps.Report     // dependency check done before the export
	Rasterize bool             // whether embedded PDFs were rasterized
	PaperSize string           // typst paper name used for every document
}

// Succeeded returns the number of documents exported.
func (b *BatchResult) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of documents not exported.
func (b *BatchResult) Failed() int {
	return len(b.Results) - b.Succeeded()
}

// Progress is reported each time a document changes stage.
type Progress struct {
	Index    int    // position of the document in the input slice
	Total    int    // number of documents in the batch
	Document string // Markdown path
	Stage    Stage
	Err      error // set with StageFailed
}
