package notes2pdf

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
)

func TestMapToTypstPaperSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		size string
		want string
	}{
		{"letter", "us-letter"},
		{"Letter", "us-letter"},
		{" legal ", "us-legal"},
		{"tabloid", "us-tabloid"},
		{"executive", "us-executive"},
		{"a4", "a4"},
		{"A3", "a3"},
		{"a5", "a5"},
		{"b5", "iso-b5"},
		{"us-letter", "us-letter"},
		{"presentation-16-9", "presentation-16-9"},
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer
			logger := hclog.New(&hclog.LoggerOptions{Output: &logs, Level: hclog.Warn})

			if got := MapToTypstPaperSize(tt.size, logger); got != tt.want {
				t.Errorf("MapToTypstPaperSize(%q) = %q, want %q", tt.size, got, tt.want)
			}
			if logs.Len() != 0 {
				t.Errorf("known size logged a warning: %s", logs.String())
			}
		})
	}
}

func TestMapToTypstPaperSize_Fallback(t *testing.T) {
	t.Parallel()

	for _, size := range []string{"", "quarto", "a4; rm -rf /"} {
		var logs bytes.Buffer
		logger := hclog.New(&hclog.LoggerOptions{Output: &logs, Level: hclog.Warn})

		if got := MapToTypstPaperSize(size, logger); got != "a4" {
			t.Errorf("MapToTypstPaperSize(%q) = %q, want a4", size, got)
		}
		if n := strings.Count(logs.String(), "unknown page size"); n != 1 {
			t.Errorf("size %q logged %d warnings, want exactly 1", size, n)
		}
	}

	if got := MapToTypstPaperSize("nope", nil); got != "a4" {
		t.Errorf("nil logger: got %q", got)
	}
}

func TestExport_UnknownPageSizeWarnsOnce(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &logs, Level: hclog.Warn})
	runner := &fakeRunner{}
	exp, vault := newTestExporter(t, &fakeChecker{}, runner, WithPageSize("quarto"), WithLogger(logger), WithWorkers(3))

	var docs []Document
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		docs = append(docs, Document{Path: writeNote(t, vault, name, "# x")})
	}

	batch, err := exp.Export(t.Context(), docs)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if batch.PaperSize != "a4" {
		t.Errorf("PaperSize = %q", batch.PaperSize)
	}
	if n := strings.Count(logs.String(), "unknown page size"); n != 1 {
		t.Errorf("logged %d page size warnings for one export, want 1", n)
	}
}
