package site2pdf

import (
	"fmt"
	"time"
)

// Type1 font names accepted by the page number stamper. These are the
// standard fonts every PDF viewer provides, so no font program needs to be
// embedded.
var supportedFonts = map[string]bool{
	"Times-Roman":           true,
	"Times-Bold":            true,
	"Times-Italic":          true,
	"Times-BoldItalic":      true,
	"Helvetica":             true,
	"Helvetica-Bold":        true,
	"Helvetica-Oblique":     true,
	"Helvetica-BoldOblique": true,
	"Courier":               true,
	"Courier-Bold":          true,
	"Courier-Oblique":       true,
	"Courier-BoldOblique":   true,
}

// Color is an RGB color with components in the range 0.0 to 1.0.
type Color struct {
	R float64 `yaml:"r"`
	G float64 `yaml:"g"`
	B float64 `yaml:"b"`
}

// Validate checks that every component is within range.
func (c Color) Validate() error {
	for _, comp := range []struct {
		name string
		val  float64
	}{{"r", c.R}, {"g", c.G}, {"b", c.B}} {
		if comp.val < 0.0 || comp.val > 1.0 {
			return fmt.Errorf("%w: %s=%v (must be between 0.0 and 1.0)", ErrInvalidColor, comp.name, comp.val)
		}
	}
	return nil
}

// PageNumbers configures the page number stamp painted on every merged page.
// A nil *PageNumbers disables stamping.
type PageNumbers struct {
	Color Color   `yaml:"color"`
	Font  string  `yaml:"font"` // one of the standard Type1 fonts
	Size  int     `yaml:"size"`
	X     float64 `yaml:"x"` // inches from the top left corner
	Y     float64 `yaml:"y"` // inches from the top left corner
}

// Validate checks the style against the supported font set and value ranges.
// Returns nil if p is nil (nil means no stamping).
func (p *PageNumbers) Validate() error {
	if p == nil {
		return nil
	}
	if err := p.Color.Validate(); err != nil {
		return err
	}
	if !supportedFonts[p.Font] {
		return fmt.Errorf("%w: %q (only standard Type1 fonts are supported)", ErrUnsupportedFont, p.Font)
	}
	if p.Size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFontSize, p.Size)
	}
	return nil
}

// RenderSettings configures how each site page is printed to PDF.
type RenderSettings struct {
	PaperWidth      float64 `yaml:"paperWidth"`  // inches
	PaperHeight     float64 `yaml:"paperHeight"` // inches
	Margin          float64 `yaml:"margin"`      // inches, applied to all sides
	PrintBackground bool    `yaml:"printBackground"`
	DocumentOutline bool    `yaml:"documentOutline"` // ask Chrome to emit a per-page outline
}

// DefaultRenderSettings returns US Letter with half-inch margins.
func DefaultRenderSettings() *RenderSettings {
	return &RenderSettings{
		PaperWidth:      8.5,
		PaperHeight:     11,
		Margin:          0.5,
		PrintBackground: true,
	}
}

// Input contains export parameters.
type Input struct {
	BaseURL     string          // site root, e.g. "http://localhost:5173"
	Layouts     []Layout        // layout descriptions, one per site subtree
	OutputPath  string          // where the merged PDF is placed on success
	PageNumbers *PageNumbers    // optional page number stamp
	Render      *RenderSettings // optional, nil = defaults
}

// Option configures a Service.
type Option func(*Service)

// serviceConfig holds internal configuration for Service.
type serviceConfig struct {
	timeout time.Duration
	workers int
	logf    func(format string, args ...any)
}

// defaultTimeout is used when no timeout is specified.
const defaultTimeout = 60 * time.Second

// WithTimeout sets the per-page render timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("site2pdf: WithTimeout duration must be positive")
	}
	return func(s *Service) {
		s.cfg.timeout = d
	}
}

// WithWorkers sets the parse fan-out explicitly.
// Zero (the default) derives the fan-out from GOMAXPROCS.
// Panics if n < 0 (programmer error).
func WithWorkers(n int) Option {
	if n < 0 {
		panic("site2pdf: WithWorkers count must not be negative")
	}
	return func(s *Service) {
		s.cfg.workers = n
	}
}

// WithLogf directs progress and degraded-link reports to logf.
// By default they are discarded.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(s *Service) {
		s.cfg.logf = logf
	}
}
