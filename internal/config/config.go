package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-notes2pdf/internal/deps"
	"github.com/alnah/go-notes2pdf/internal/fileutil"
	"github.com/alnah/go-notes2pdf/internal/pathsec"
	"github.com/alnah/go-notes2pdf/internal/version"
	"github.com/alnah/go-notes2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidField    = errors.New("invalid config value")
)

// AppDir is the directory name under os.UserConfigDir() searched for configs.
const AppDir = "notes2pdf"

// Field length limits.
const (
	MaxPathLength      = 4096 // PATH_MAX on Linux
	MaxPageSizeLength  = 20   // "us-executive", "presentation-16-9"
	MaxVersionLength   = 50   // "3.1.11.1"
	MaxEnvValueLength  = 4096 // single environment value
	MaxEnvVars         = 64   // custom variables per tool
	MaxAdditionalPaths = 32   // extra search directories per tool
)

// Numeric bounds.
const (
	MaxWorkers   = 32
	MinRasterDPI = 36
	MaxRasterDPI = 600
)

// Defaults used by DefaultConfig.
const (
	DefaultOutputFolder = "exports"
	DefaultPageSize     = "a4"
	DefaultTimeout      = 2 * time.Minute
	DefaultRasterDPI    = 150
)

// Config holds all configuration for an export.
type Config struct {
	Vault  string       `yaml:"vault"`
	Output OutputConfig `yaml:"output"`
	Page   PageConfig   `yaml:"page"`
	Export ExportConfig `yaml:"export"`
	Tools  ToolsConfig  `yaml:"tools"`
}

// OutputConfig defines where PDFs are written.
type OutputConfig struct {
	Folder           string `yaml:"folder"`           // relative to the vault
	KeepIntermediate bool   `yaml:"keepIntermediate"` // keep .md/.typ/.png work files
}

// PageConfig defines PDF page settings.
type PageConfig struct {
	Size string `yaml:"size"` // "a4", "letter", "legal", ... (default: "a4")
}

// ExportConfig defines batch behavior.
type ExportConfig struct {
	Workers   int               `yaml:"workers"`   // 0 = one per CPU
	Timeout   yamlutil.Duration `yaml:"timeout"`   // per tool invocation
	FailFast  bool              `yaml:"failFast"`  // stop the batch on the first failure
	RasterDPI int               `yaml:"rasterDPI"` // embedded PDF page resolution
}

// ToolsConfig holds the per-tool settings.
type ToolsConfig struct {
	Pandoc     ToolConfig `yaml:"pandoc"`
	Typst      ToolConfig `yaml:"typst"`
	Pdftocairo ToolConfig `yaml:"pdftocairo"`
}

// ToolConfig defines how one external tool is found and run.
type ToolConfig struct {
	CustomPath                 string            `yaml:"customPath"`      // path or bare name, empty = default
	MinVersion                 string            `yaml:"minVersion"`      // empty = built-in minimum
	Timeout                    yamlutil.Duration `yaml:"timeout"`         // version probe timeout
	AdditionalPaths            []string          `yaml:"additionalPaths"` // extra search directories
	CustomEnvironmentVariables map[string]string `yaml:"customEnvironmentVariables"`
}

// Settings converts the tool config into checker settings.
func (t ToolConfig) Settings() deps.Settings {
	return deps.Settings{
		CustomPath:      strings.TrimSpace(t.CustomPath),
		MinVersion:      strings.TrimSpace(t.MinVersion),
		Timeout:         t.Timeout.Std(),
		AdditionalPaths: t.AdditionalPaths,
		CustomEnv:       t.CustomEnvironmentVariables,
	}
}

// Tool returns the config of one tool.
func (c *Config) Tool(tool deps.Tool) *ToolConfig {
	switch tool {
	case deps.ToolPandoc:
		return &c.Tools.Pandoc
	case deps.ToolTypst:
		return &c.Tools.Typst
	default:
		return &c.Tools.Pdftocairo
	}
}

// DependencySettings returns the checker settings of every tool.
func (c *Config) DependencySettings() map[deps.Tool]deps.Settings {
	out := make(map[deps.Tool]deps.Settings, len(deps.Tools()))
	for _, tool := range deps.Tools() {
		out[tool] = c.Tool(tool).Settings()
	}
	return out
}

// Validate checks every field that ends up in a path or a subprocess.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually (e.g., flag and env overrides).
func (c *Config) Validate() error {
	if err := validateFieldLength("vault", c.Vault, MaxPathLength); err != nil {
		return err
	}
	if strings.ContainsRune(c.Vault, 0) {
		return fmt.Errorf("%w: vault: %w", ErrInvalidField, pathsec.ErrNullByte)
	}

	if err := validateFieldLength("output.folder", c.Output.Folder, MaxPathLength); err != nil {
		return err
	}
	if err := pathsec.OutputPathError(c.Output.Folder); err != nil {
		return fmt.Errorf("%w: output.folder: %w", ErrInvalidField, err)
	}

	if err := validateFieldLength("page.size", c.Page.Size, MaxPageSizeLength); err != nil {
		return err
	}

	if c.Export.Workers < 0 || c.Export.Workers > MaxWorkers {
		return fmt.Errorf("%w: export.workers: must be between 0 and %d, got %d", ErrInvalidField, MaxWorkers, c.Export.Workers)
	}
	if c.Export.RasterDPI != 0 && (c.Export.RasterDPI < MinRasterDPI || c.Export.RasterDPI > MaxRasterDPI) {
		return fmt.Errorf("%w: export.rasterDPI: must be between %d and %d, got %d", ErrInvalidField, MinRasterDPI, MaxRasterDPI, c.Export.RasterDPI)
	}

	for _, tool := range deps.Tools() {
		if err := c.Tool(tool).validate("tools." + tool.String()); err != nil {
			return err
		}
	}
	return nil
}

func (t *ToolConfig) validate(prefix string) error {
	if err := validateFieldLength(prefix+".customPath", t.CustomPath, MaxPathLength); err != nil {
		return err
	}
	if err := pathsec.ExecutablePathError(t.CustomPath); err != nil {
		return fmt.Errorf("%w: %s.customPath: %w", ErrInvalidField, prefix, err)
	}

	if err := validateFieldLength(prefix+".minVersion", t.MinVersion, MaxVersionLength); err != nil {
		return err
	}
	if t.MinVersion != "" && !version.Valid(t.MinVersion) {
		return fmt.Errorf("%w: %s.minVersion: %q is not a version", ErrInvalidField, prefix, t.MinVersion)
	}

	if len(t.AdditionalPaths) > MaxAdditionalPaths {
		return fmt.Errorf("%w: %s.additionalPaths: at most %d entries", ErrInvalidField, prefix, MaxAdditionalPaths)
	}
	for i, dir := range t.AdditionalPaths {
		field := fmt.Sprintf("%s.additionalPaths[%d]", prefix, i)
		if err := validateFieldLength(field, dir, MaxPathLength); err != nil {
			return err
		}
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("%w: %s: empty directory", ErrInvalidField, field)
		}
		if err := pathsec.ValidateArgument(dir); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidField, field, err)
		}
	}

	if len(t.CustomEnvironmentVariables) > MaxEnvVars {
		return fmt.Errorf("%w: %s.customEnvironmentVariables: at most %d entries", ErrInvalidField, prefix, MaxEnvVars)
	}
	for k, v := range t.CustomEnvironmentVariables {
		field := prefix + ".customEnvironmentVariables." + k
		if err := pathsec.ValidateEnvKey(k); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidField, field, err)
		}
		if err := validateFieldLength(field, v, MaxEnvValueLength); err != nil {
			return err
		}
		if strings.ContainsRune(v, 0) {
			return fmt.Errorf("%w: %s: %w", ErrInvalidField, field, pathsec.ErrNullByte)
		}
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{Folder: DefaultOutputFolder},
		Page:   PageConfig{Size: DefaultPageSize},
		Export: ExportConfig{
			Timeout:   yamlutil.Duration(DefaultTimeout),
			RasterDPI: DefaultRasterDPI,
		},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Fields absent from the file keep their DefaultConfig values.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	path, err := Locate(nameOrPath)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yamlutil.ReadFileStrict(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Locate returns the file a config name or path refers to.
func Locate(nameOrPath string) (string, error) {
	if strings.TrimSpace(nameOrPath) == "" {
		return "", ErrEmptyConfigName
	}
	if fileutil.IsFilePath(nameOrPath) {
		return nameOrPath, nil
	}

	tried := SearchPaths(nameOrPath)
	for _, p := range tried {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

// SearchPaths lists where a config name is looked for, in order:
// current directory, then the user config directory, .yaml before .yml.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2) // 2 locations

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, AppDir, name+ext))
		}
	}
	return paths
}
