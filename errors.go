package notes2pdf

import "errors"

// Sentinel errors for library operations.
var (
	ErrVaultRequired         = errors.New("vault directory is required")
	ErrVaultNotFound         = errors.New("vault directory not found")
	ErrNoDocuments           = errors.New("no documents to export")
	ErrDependencyUnavailable = errors.New("required tool unavailable")

	// Per-document errors, reported in DocumentResult.Err.
	ErrDocumentOutsideVault = errors.New("document is outside the vault")
	ErrReadDocument         = errors.New("failed to read document")
	ErrConversion           = errors.New("conversion failed")
	ErrTypesetting          = errors.New("typesetting failed")
	ErrOutputDirectory      = errors.New("cannot create output directory")
	ErrSkipped              = errors.New("skipped after an earlier failure")

	// Option validation errors.
	ErrInvalidWorkers   = errors.New("invalid worker count")
	ErrInvalidRasterDPI = errors.New("invalid raster DPI")
	ErrInvalidTimeout   = errors.New("invalid timeout")
)
