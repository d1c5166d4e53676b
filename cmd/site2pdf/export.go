package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/docfold/go-site2pdf"
)

// Sentinel errors for CLI operations.
var (
	ErrNoConfig   = errors.New("usage: site2pdf -c config.yaml")
	ErrReadLayout = errors.New("failed to read layout file")
	ErrBadTimeout = errors.New("invalid timeout value")
)

// run loads the config and layouts and delegates to the export service.
func run(ctx context.Context, flags *exportFlags) error {
	if flags.config == "" {
		return ErrNoConfig
	}
	cfg, err := LoadConfig(flags.config)
	if err != nil {
		return err
	}

	layouts := make([]site2pdf.Layout, 0, len(cfg.Layouts))
	for _, path := range cfg.Layouts {
		data, err := os.ReadFile(path) // #nosec G304 -- paths come from the user's config
		if err != nil {
			return fmt.Errorf("%w: %v", ErrReadLayout, err)
		}
		layout, err := site2pdf.ParseLayout(data)
		if err != nil {
			return fmt.Errorf("parsing layout %s: %w", path, err)
		}
		layouts = append(layouts, layout)
	}

	var opts []site2pdf.Option
	if flags.timeout != "" {
		d, err := time.ParseDuration(flags.timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %q", ErrBadTimeout, flags.timeout)
		}
		opts = append(opts, site2pdf.WithTimeout(d))
	}
	if flags.workers > 0 {
		opts = append(opts, site2pdf.WithWorkers(flags.workers))
	}
	if flags.verbose {
		opts = append(opts, site2pdf.WithLogf(func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	}

	svc := site2pdf.New(opts...)
	defer svc.Close()

	output := cfg.Output
	if flags.output != "" {
		output = flags.output
	}

	if err := svc.Export(ctx, site2pdf.Input{
		BaseURL:     cfg.URL,
		Layouts:     layouts,
		OutputPath:  output,
		PageNumbers: cfg.PageNumbers,
		Render:      cfg.Render,
	}); err != nil {
		return err
	}

	if !flags.quiet {
		fmt.Printf("Created %s\n", output)
	}
	return nil
}
