package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-notes2pdf/internal/config"
	"github.com/alnah/go-notes2pdf/internal/yamlutil"
)

// envPrefix is shared by every recognized variable.
const envPrefix = "NOTES2PDF_"

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string        // NOTES2PDF_CONFIG: config file name or path
	Vault      string        // NOTES2PDF_VAULT: vault root
	Timeout    time.Duration // NOTES2PDF_TIMEOUT: per tool run

	// Tier 2 - Output
	OutputFolder string // NOTES2PDF_OUTPUT_FOLDER: relative to the vault
	PageSize     string // NOTES2PDF_PAGE_SIZE: a4, letter, ...
	Workers      int    // NOTES2PDF_WORKERS: parallel documents
	RasterDPI    int    // NOTES2PDF_RASTER_DPI: embedded PDF resolution

	// Tier 3 - Tools
	PandocPath     string // NOTES2PDF_PANDOC_PATH
	TypstPath      string // NOTES2PDF_TYPST_PATH
	PdftocairoPath string // NOTES2PDF_PDFTOCAIRO_PATH
}

// knownEnvVars lists valid NOTES2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"NOTES2PDF_CONFIG":  true,
	"NOTES2PDF_VAULT":   true,
	"NOTES2PDF_TIMEOUT": true,
	// Tier 2 - Output
	"NOTES2PDF_OUTPUT_FOLDER": true,
	"NOTES2PDF_PAGE_SIZE":     true,
	"NOTES2PDF_WORKERS":       true,
	"NOTES2PDF_RASTER_DPI":    true,
	// Tier 3 - Tools
	"NOTES2PDF_PANDOC_PATH":     true,
	"NOTES2PDF_TYPST_PATH":      true,
	"NOTES2PDF_PDFTOCAIRO_PATH": true,
}

// lookupEnv returns the value of key in a KEY=VALUE list. Later entries win,
// like os.Getenv on a duplicated variable.
func lookupEnv(environ []string, key string) string {
	value := ""
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k == key {
			value = v
		}
	}
	return value
}

// loadEnvConfig reads configuration from environment variables.
// Unparseable numbers and durations are ignored.
func loadEnvConfig(environ []string) *envConfig {
	get := func(key string) string {
		return strings.TrimSpace(lookupEnv(environ, envPrefix+key))
	}

	cfg := &envConfig{
		ConfigPath:     get("CONFIG"),
		Vault:          get("VAULT"),
		OutputFolder:   get("OUTPUT_FOLDER"),
		PageSize:       get("PAGE_SIZE"),
		PandocPath:     get("PANDOC_PATH"),
		TypstPath:      get("TYPST_PATH"),
		PdftocairoPath: get("PDFTOCAIRO_PATH"),
	}

	if timeout := get("TIMEOUT"); timeout != "" {
		if d, err := parseTimeout(timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if workers := get("WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}
	if dpi := get("RASTER_DPI"); dpi != "" {
		if d, err := strconv.Atoi(dpi); err == nil && d > 0 {
			cfg.RasterDPI = d
		}
	}

	return cfg
}

// warnUnknownEnvVars prints warnings for unrecognized NOTES2PDF_* variables.
// Helps catch typos like NOTES2PDF_VALT instead of NOTES2PDF_VAULT.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !knownEnvVars[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig applies environment variable values to config.
// Set variables replace config file values, so the order is:
// CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	// Tier 1
	if env.Vault != "" {
		cfg.Vault = env.Vault
	}
	if env.Timeout > 0 {
		cfg.Export.Timeout = yamlutil.Duration(env.Timeout)
	}

	// Tier 2
	if env.OutputFolder != "" {
		cfg.Output.Folder = env.OutputFolder
	}
	if env.PageSize != "" {
		cfg.Page.Size = env.PageSize
	}
	if env.Workers > 0 {
		cfg.Export.Workers = env.Workers
	}
	if env.RasterDPI > 0 {
		cfg.Export.RasterDPI = env.RasterDPI
	}

	// Tier 3
	if env.PandocPath != "" {
		cfg.Tools.Pandoc.CustomPath = env.PandocPath
	}
	if env.TypstPath != "" {
		cfg.Tools.Typst.CustomPath = env.TypstPath
	}
	if env.PdftocairoPath != "" {
		cfg.Tools.Pdftocairo.CustomPath = env.PdftocairoPath
	}
}
