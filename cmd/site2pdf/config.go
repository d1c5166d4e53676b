package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/docfold/go-site2pdf"
	"github.com/docfold/go-site2pdf/internal/yamlutil"
)

// ErrReadConfig wraps config file read failures.
var ErrReadConfig = errors.New("failed to read config file")

// Config describes one export: the site to render, the layout files defining
// its navigation, and the output options.
type Config struct {
	URL         string                   `yaml:"url"`
	Layouts     []string                 `yaml:"layouts"` // paths to layout description files
	Output      string                   `yaml:"output"`
	PageNumbers *site2pdf.PageNumbers    `yaml:"pageNumbers"`
	Render      *site2pdf.RenderSettings `yaml:"render"`
}

// LoadConfig reads and strictly parses the export config; unknown fields are
// rejected to catch typos.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the -c flag
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadConfig, err)
	}
	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}
