package site2pdf

import "errors"

// Sentinel errors for library operations.
var (
	// Parse-phase errors. One per broken source document; all are collected
	// and reported together so a single run surfaces every broken page.
	ErrMalformedDocument = errors.New("source document could not be parsed")

	// Site map errors, reported before any merge work begins.
	ErrAmbiguousLayout = errors.New("page appears in layout descriptions with conflicting children")
	ErrOrphanPage      = errors.New("layout references a page outside the enumerated site")

	// Merge-phase invariant violations. The first one aborts the run.
	ErrDanglingReference = errors.New("reference to an object absent from the remap table")
	ErrMergeConflict     = errors.New("object identifier collision during merge")
	ErrMissingPageRange  = errors.New("site node contributed no pages")

	// Stamper configuration errors, reported before any page is touched.
	ErrUnsupportedFont = errors.New("unsupported page number font")

	// Input validation errors.
	ErrEmptyBaseURL    = errors.New("base URL cannot be empty")
	ErrNoLayouts       = errors.New("at least one layout description is required")
	ErrEmptyOutputPath = errors.New("output path cannot be empty")
	ErrInvalidColor    = errors.New("invalid color component")
	ErrInvalidFontSize = errors.New("invalid font size")

	// Browser errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
)
