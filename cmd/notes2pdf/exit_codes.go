package main

import (
	"errors"
	"os"

	notes2pdf "github.com/alnah/go-notes2pdf"
	"github.com/alnah/go-notes2pdf/internal/cliexec"
	"github.com/alnah/go-notes2pdf/internal/config"
	"github.com/alnah/go-notes2pdf/internal/pathsec"
)

// Exit codes for the notes2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess    = 0 // Every document exported / all checks passed
	ExitGeneral    = 1 // General/unexpected error, doctor found a missing tool
	ExitUsage      = 2 // Invalid flags, config, or validation
	ExitIO         = 3 // File not found, permission denied
	ExitDependency = 4 // Tool missing, failed, or timed out
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Tool errors (exit 4)
	if errors.Is(err, notes2pdf.ErrDependencyUnavailable) ||
		errors.Is(err, notes2pdf.ErrConversion) ||
		errors.Is(err, notes2pdf.ErrTypesetting) ||
		errors.Is(err, cliexec.ErrSpawn) ||
		errors.Is(err, cliexec.ErrExitCode) ||
		errors.Is(err, cliexec.ErrTimeout) {
		return ExitDependency
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidField) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, pathsec.ErrValidation) ||
		errors.Is(err, notes2pdf.ErrVaultRequired) ||
		errors.Is(err, notes2pdf.ErrInvalidWorkers) ||
		errors.Is(err, notes2pdf.ErrInvalidTimeout) ||
		errors.Is(err, notes2pdf.ErrInvalidRasterDPI) ||
		errors.Is(err, notes2pdf.ErrDocumentOutsideVault) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, notes2pdf.ErrVaultNotFound) ||
		errors.Is(err, notes2pdf.ErrReadDocument) ||
		errors.Is(err, notes2pdf.ErrOutputDirectory) ||
		errors.Is(err, notes2pdf.ErrNoDocuments) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	return ExitGeneral
}
