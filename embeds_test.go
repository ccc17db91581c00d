package notes2pdf

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestCountPages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, pages := range []int{1, 4} {
		path := filepath.Join(dir, "doc.pdf")
		writePDF(t, path, pages)

		got, err := countPages(path)
		if err != nil {
			t.Fatalf("countPages: %v", err)
		}
		if got != pages {
			t.Errorf("countPages = %d, want %d", got, pages)
		}
	}
}

func TestCountPages_Invalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\nnot really a pdf"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := countPages(path); err == nil {
		t.Error("expected an error for a truncated PDF")
	}
}

func TestIsPDFFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	genuine := filepath.Join(dir, "real.pdf")
	writePDF(t, genuine, 1)
	upper := filepath.Join(dir, "UPPER.PDF")
	writePDF(t, upper, 1)
	fake := filepath.Join(dir, "fake.pdf")
	if err := os.WriteFile(fake, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}
	renamed := filepath.Join(dir, "real.png")
	writePDF(t, renamed, 1)

	tests := []struct {
		path string
		want bool
	}{
		{genuine, true},
		{upper, true},
		{fake, false},
		{renamed, false},
		{filepath.Join(dir, "missing.pdf"), false},
	}
	for _, tt := range tests {
		if got := isPDFFile(tt.path); got != tt.want {
			t.Errorf("isPDFFile(%s) = %v, want %v", filepath.Base(tt.path), got, tt.want)
		}
	}
}

func TestRasterArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		pages int
		want  []string
	}{
		{"known pages", 3, []string{"-png", "-r", "150", "-f", "1", "-l", "3", "../in.pdf", "embed-1"}},
		{"capped pages", MaxEmbedPages + 10, []string{"-png", "-r", "150", "-f", "1", "-l", "50", "../in.pdf", "embed-1"}},
		{"unknown pages", 0, []string{"-png", "-r", "150", "-f", "1", "../in.pdf", "embed-1"}},
	}
	for _, tt := range tests {
		if got := rasterArgs(150, tt.pages, "../in.pdf", "embed-1"); !slices.Equal(got, tt.want) {
			t.Errorf("%s: rasterArgs = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFormatLink(t *testing.T) {
	t.Parallel()

	if got := formatLink("Scan", "/a/scan.pdf"); got != "[Scan](</a/scan.pdf>)" {
		t.Errorf("formatLink = %q", got)
	}
	if got := formatLink(" ", "/a/scan.pdf"); got != "[scan.pdf](</a/scan.pdf>)" {
		t.Errorf("formatLink without alt = %q", got)
	}
}
