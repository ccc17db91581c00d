package notes2pdf

import (
	"strings"

	"github.com/hashicorp/go-hclog"
)

// fallbackPaper is used for sizes typst does not know.
const fallbackPaper = "a4"

// paperAliases maps common page size names to typst paper names.
var paperAliases = map[string]string{
	"letter":    "us-letter",
	"legal":     "us-legal",
	"tabloid":   "us-tabloid",
	"ledger":    "us-ledger",
	"executive": "us-executive",
	"b4":        "iso-b4",
	"b5":        "iso-b5",
	"b6":        "iso-b6",
}

// typstPapers are typst paper names accepted as is.
var typstPapers = map[string]bool{
	"a0": true, "a1": true, "a2": true, "a3": true, "a4": true, "a5": true, "a6": true, "a7": true,
	"iso-b4": true, "iso-b5": true, "iso-b6": true,
	"us-letter": true, "us-legal": true, "us-tabloid": true, "us-ledger": true, "us-executive": true,
	"us-statement": true, "us-trade": true,
	"presentation-16-9": true, "presentation-4-3": true,
}

// MapToTypstPaperSize returns the typst paper name for size. Matching is
// case-insensitive. An unknown or empty size maps to "a4" and logs one
// warning through logger (which may be nil).
func MapToTypstPaperSize(size string, logger hclog.Logger) string {
	key := strings.ToLower(strings.TrimSpace(size))
	if paper, ok := paperAliases[key]; ok {
		return paper
	}
	if typstPapers[key] {
		return key
	}

	if logger != nil {
		logger.Warn("unknown page size, using fallback", "size", size, "fallback", fallbackPaper)
	}
	return fallbackPaper
}
