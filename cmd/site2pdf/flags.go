package main

import (
	flag "github.com/spf13/pflag"
)

// exportFlags holds all flags for the export run.
type exportFlags struct {
	config  string
	output  string
	workers int
	timeout string
	quiet   bool
	verbose bool
	version bool
}

// parseFlags parses command line flags.
func parseFlags(args []string) (*exportFlags, error) {
	fs := flag.NewFlagSet("site2pdf", flag.ContinueOnError)
	f := &exportFlags{}

	fs.StringVarP(&f.config, "config", "c", "", "export config file path")
	fs.StringVarP(&f.output, "output", "o", "", "output file (overrides config)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel parse workers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-page render timeout (e.g., 30s, 2m)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show per-page progress")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}
