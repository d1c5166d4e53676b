package site2pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// pageRenderer abstracts URL to PDF rendering to enable testing without a
// browser.
type pageRenderer interface {
	RenderPage(ctx context.Context, url string, settings *RenderSettings) ([]byte, error)
	Close() error
}

// Compile-time interface check
var _ pageRenderer = (*rodRenderer)(nil)

// rodRenderer implements pageRenderer using go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodRenderer struct {
	browser *rod.Browser
	timeout time.Duration
	outline bool
}

// newRodRenderer creates a rodRenderer with the given timeout. outline asks
// the browser to emit a per-page document outline and tagged structure, which
// link fragment resolution depends on.
func newRodRenderer(timeout time.Duration, outline bool) *rodRenderer {
	return &rodRenderer{timeout: timeout, outline: outline}
}

// ensureBrowser lazily connects to the browser.
func (r *rodRenderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	// Configure launcher
	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	if r.outline {
		l = l.Set("generate-pdf-document-outline")
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.browser = rod.New().ControlURL(u)
	if err := r.browser.Connect(); err != nil {
		r.browser = nil
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources.
func (r *rodRenderer) Close() error {
	if r.browser != nil {
		err := r.browser.Close()
		r.browser = nil
		return err
	}
	return nil
}

// RenderPage opens url in headless Chrome and prints it to PDF.
// Returns explicit errors instead of panicking when browser operations fail.
func (r *rodRenderer) RenderPage(ctx context.Context, url string, settings *RenderSettings) ([]byte, error) {
	// Check context before starting
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	// Wait for page to load with timeout from context or default
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	// Check context after page load
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := page.PDF(buildPDFOptions(settings))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}

	return pdfBuf, nil
}

// buildPDFOptions constructs proto.PagePrintToPDF from the render settings.
func buildPDFOptions(settings *RenderSettings) *proto.PagePrintToPDF {
	if settings == nil {
		settings = DefaultRenderSettings()
	}
	opts := &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(settings.PaperWidth),
		PaperHeight:     floatPtr(settings.PaperHeight),
		MarginTop:       floatPtr(settings.Margin),
		MarginBottom:    floatPtr(settings.Margin),
		MarginLeft:      floatPtr(settings.Margin),
		MarginRight:     floatPtr(settings.Margin),
		PrintBackground: settings.PrintBackground,
	}
	if settings.DocumentOutline {
		opts.GenerateTaggedPDF = true
		opts.GenerateDocumentOutline = true
	}
	return opts
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
