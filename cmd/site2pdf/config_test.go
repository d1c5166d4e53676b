package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// ---------------------------------------------------------------------------
// TestLoadConfig - Export config parsing
// ---------------------------------------------------------------------------

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	data := `url: http://localhost:5173
layouts:
  - sidebar.yaml
output: docs.pdf
pageNumbers:
  font: Helvetica
  size: 10
  x: 7.5
  y: 10.5
  color:
    r: 0.2
    g: 0.2
    b: 0.2
render:
  paperWidth: 8.27
  paperHeight: 11.69
  margin: 0.4
  printBackground: true
  documentOutline: true
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.URL != "http://localhost:5173" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if len(cfg.Layouts) != 1 || cfg.Layouts[0] != "sidebar.yaml" {
		t.Errorf("Layouts = %v", cfg.Layouts)
	}
	if cfg.Output != "docs.pdf" {
		t.Errorf("Output = %q", cfg.Output)
	}
	if cfg.PageNumbers == nil || cfg.PageNumbers.Font != "Helvetica" || cfg.PageNumbers.Size != 10 {
		t.Errorf("PageNumbers = %+v", cfg.PageNumbers)
	}
	if cfg.Render == nil || !cfg.Render.DocumentOutline || cfg.Render.PaperWidth != 8.27 {
		t.Errorf("Render = %+v", cfg.Render)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrReadConfig) {
			t.Errorf("LoadConfig() error = %v, want %v", err, ErrReadConfig)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("url: x\nbogus: y\n"), 0o644); err != nil {
			t.Fatalf("writing config: %v", err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Error("LoadConfig() accepted an unknown field")
		}
	})
}

// ---------------------------------------------------------------------------
// TestParseFlags - Command line parsing
// ---------------------------------------------------------------------------

func TestParseFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want exportFlags
	}{
		{
			name: "defaults",
			args: nil,
			want: exportFlags{},
		},
		{
			name: "short flags",
			args: []string{"-c", "cfg.yaml", "-o", "out.pdf", "-w", "4", "-v"},
			want: exportFlags{config: "cfg.yaml", output: "out.pdf", workers: 4, verbose: true},
		},
		{
			name: "long flags",
			args: []string{"--config", "cfg.yaml", "--timeout", "90s", "--quiet", "--version"},
			want: exportFlags{config: "cfg.yaml", timeout: "90s", quiet: true, version: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseFlags(tt.args)
			if err != nil {
				t.Fatalf("parseFlags() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("parseFlags() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestParseFlags_Unknown(t *testing.T) {
	t.Parallel()

	if _, err := parseFlags([]string{"--definitely-not-a-flag"}); err == nil {
		t.Error("parseFlags() accepted an unknown flag")
	}
}

// ---------------------------------------------------------------------------
// TestRun - CLI guard rails
// ---------------------------------------------------------------------------

func TestRun_NoConfig(t *testing.T) {
	t.Parallel()

	err := run(t.Context(), &exportFlags{})
	if !errors.Is(err, ErrNoConfig) {
		t.Errorf("run() error = %v, want %v", err, ErrNoConfig)
	}
}

func TestRun_BadTimeout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("url: http://localhost\noutput: out.pdf\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	err := run(t.Context(), &exportFlags{config: path, timeout: "soon"})
	if !errors.Is(err, ErrBadTimeout) {
		t.Errorf("run() error = %v, want %v", err, ErrBadTimeout)
	}
}

func TestRun_MissingLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := "url: http://localhost\nlayouts:\n  - " + filepath.Join(dir, "nope.yaml") + "\noutput: out.pdf\n"
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	err := run(t.Context(), &exportFlags{config: path})
	if !errors.Is(err, ErrReadLayout) {
		t.Errorf("run() error = %v, want %v", err, ErrReadLayout)
	}
}
