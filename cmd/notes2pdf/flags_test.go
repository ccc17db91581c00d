package main

import (
	"errors"
	"io"
	"testing"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-notes2pdf/internal/config"
	"github.com/alnah/go-notes2pdf/internal/yamlutil"
)

// ---------------------------------------------------------------------------
// TestParseExportFlags
// ---------------------------------------------------------------------------

func TestParseExportFlags(t *testing.T) {
	t.Parallel()

	f, rest, err := parseExportFlags([]string{
		"notes", "--vault", "/vault", "-o", "pdf", "-p", "letter", "-w", "0",
		"-t", "90s", "--dpi", "300", "--fail-fast", "--keep-intermediate",
		"--pandoc", "/opt/pandoc", "-c", "work", "-v", "todo.md",
	}, io.Discard)
	if err != nil {
		t.Fatalf("parseExportFlags: %v", err)
	}

	if len(rest) != 2 || rest[0] != "notes" || rest[1] != "todo.md" {
		t.Errorf("positional args = %v", rest)
	}
	if f.vault != "/vault" || f.output != "pdf" || f.pageSize != "letter" {
		t.Errorf("string flags = %+v", f)
	}
	if f.workers != 0 || f.rasterDPI != 300 || f.timeout != "90s" {
		t.Errorf("numeric flags: workers=%d dpi=%d timeout=%q", f.workers, f.rasterDPI, f.timeout)
	}
	if !f.failFast || !f.keepIntermediate || !f.common.verbose || f.common.config != "work" {
		t.Errorf("bool/common flags = %+v", f)
	}
	if f.tools.pandoc != "/opt/pandoc" || f.tools.typst != "" {
		t.Errorf("tool flags = %+v", f.tools)
	}
}

func TestParseExportFlags_Unset(t *testing.T) {
	t.Parallel()

	f, _, err := parseExportFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("parseExportFlags: %v", err)
	}
	if f.workers != unsetInt || f.rasterDPI != unsetInt {
		t.Errorf("unset ints = %d, %d, want %d", f.workers, f.rasterDPI, unsetInt)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		parse func() error
	}{
		{"export unknown flag", func() error { _, _, err := parseExportFlags([]string{"--bogus"}, io.Discard); return err }},
		{"export bad int", func() error { _, _, err := parseExportFlags([]string{"-w", "many"}, io.Discard); return err }},
		{"doctor positional", func() error { _, err := parseDoctorFlags([]string{"extra"}, io.Discard); return err }},
		{"check-path no arg", func() error { _, _, err := parseCheckPathFlags(nil, io.Discard); return err }},
		{"check-path two args", func() error { _, _, err := parseCheckPathFlags([]string{"a", "b"}, io.Discard); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.parse(); !errors.Is(err, ErrUsage) {
				t.Errorf("error = %v, want ErrUsage", err)
			}
		})
	}
}

func TestParseFlags_Help(t *testing.T) {
	t.Parallel()

	_, err := parseDoctorFlags([]string{"--help"}, io.Discard)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("error = %v, want flag.ErrHelp", err)
	}
}

// ---------------------------------------------------------------------------
// TestParseTimeout
// ---------------------------------------------------------------------------

func TestParseTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"90s", 90 * time.Second, false},
		{"2m", 2 * time.Minute, false},
		{"45", 45 * time.Second, false},
		{" 1m30s ", 90 * time.Second, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"-5s", 0, true},
		{"soon", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseTimeout(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTimeout(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseTimeout(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestMergeExportFlags - CLI wins over config
// ---------------------------------------------------------------------------

func TestMergeExportFlags(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Export.Workers = 4
	cfg.Export.RasterDPI = 200

	flags := &exportFlags{
		vault:     "/vault",
		pageSize:  "legal",
		workers:   unsetInt,
		rasterDPI: 72,
		timeout:   "30s",
		failFast:  true,
		tools:     toolFlags{typst: "/opt/typst"},
	}
	if err := mergeExportFlags(flags, cfg); err != nil {
		t.Fatalf("mergeExportFlags: %v", err)
	}

	if cfg.Vault != "/vault" || cfg.Page.Size != "legal" {
		t.Errorf("strings not merged: %+v", cfg)
	}
	if cfg.Export.Workers != 4 {
		t.Errorf("Workers = %d, unset flag must keep config value", cfg.Export.Workers)
	}
	if cfg.Export.RasterDPI != 72 {
		t.Errorf("RasterDPI = %d, want 72", cfg.Export.RasterDPI)
	}
	if cfg.Export.Timeout != yamlutil.Duration(30*time.Second) {
		t.Errorf("Timeout = %v, want 30s", cfg.Export.Timeout.Std())
	}
	if !cfg.Export.FailFast {
		t.Error("FailFast not merged")
	}
	if cfg.Output.Folder != config.DefaultOutputFolder {
		t.Errorf("Output.Folder = %q, want default", cfg.Output.Folder)
	}
	if cfg.Tools.Typst.CustomPath != "/opt/typst" {
		t.Errorf("Typst.CustomPath = %q", cfg.Tools.Typst.CustomPath)
	}
}

func TestMergeExportFlags_BadTimeout(t *testing.T) {
	t.Parallel()

	err := mergeExportFlags(&exportFlags{workers: unsetInt, rasterDPI: unsetInt, timeout: "later"}, config.DefaultConfig())
	if !errors.Is(err, ErrUsage) {
		t.Errorf("error = %v, want ErrUsage", err)
	}
}
