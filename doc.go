// Package site2pdf assembles a static documentation site into one navigable
// PDF. Every page of the site is printed to PDF by headless Chrome, the
// per-page documents are merged into a single file, and the site's
// navigation structure becomes the document outline. Internal hyperlinks are
// rewritten to jump to the right page of the merged document.
//
// # Quick Start
//
// Create a service, export the site, and close when done:
//
//	svc := site2pdf.New()
//	defer svc.Close()
//
//	layout, err := site2pdf.ParseLayout(sidebarYAML)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = svc.Export(ctx, site2pdf.Input{
//	    BaseURL:    "http://localhost:5173",
//	    Layouts:    []site2pdf.Layout{layout},
//	    OutputPath: "docs.pdf",
//	})
//
// The output file appears atomically: on any failure nothing is left at
// OutputPath.
//
// # Assembly Pipeline
//
// Export runs these stages:
//
//  1. Site map construction from the layout descriptions (YAML or JSON)
//  2. Per-page PDF rendering via headless Chrome (go-rod)
//  3. Parsing each rendered page into a PDF object graph
//  4. Merging the graphs under globally unique object identifiers
//  5. Outline construction mirroring the site hierarchy
//  6. Internal link rewriting, with #fragment targets resolved against the
//     renderer's named destinations
//  7. Optional page number stamping
//
// Pre-rendered pages can skip stages 1-2 and go straight to Assemble.
//
// # Configuration
//
// Use functional options to customize the service:
//
//	svc := site2pdf.New(
//	    site2pdf.WithTimeout(2 * time.Minute),
//	    site2pdf.WithWorkers(4),
//	    site2pdf.WithLogf(log.Printf),
//	)
//
// Per-export options are passed via Input:
//
//	err := svc.Export(ctx, site2pdf.Input{
//	    BaseURL:     "http://localhost:5173",
//	    Layouts:     layouts,
//	    OutputPath:  "docs.pdf",
//	    PageNumbers: &site2pdf.PageNumbers{Font: "Helvetica", Size: 10, X: 7.5, Y: 10.5},
//	    Render:      &site2pdf.RenderSettings{PaperWidth: 8.27, PaperHeight: 11.69, Margin: 0.4},
//	})
//
// # Browser Requirements
//
// Rendering requires Chrome/Chromium. The go-rod library automatically
// downloads a managed Chromium instance on first run (~/.cache/rod/browser/).
// Use ROD_BROWSER_BIN to specify a custom Chrome binary; in containers and
// CI environments the sandbox is disabled automatically.
package site2pdf
