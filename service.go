package site2pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/docfold/go-site2pdf/internal/fileutil"
)

// Service orchestrates the site-to-PDF pipeline: render every page of the
// site, merge the per-page documents into one, build the outline, rewrite
// internal links, and stamp page numbers.
type Service struct {
	cfg      serviceConfig
	renderer pageRenderer
}

// New creates a Service with default configuration.
// Use options to customize behavior (e.g., WithTimeout).
func New(opts ...Option) *Service {
	s := &Service{
		cfg: serviceConfig{timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cfg.logf == nil {
		s.cfg.logf = func(string, ...any) {}
	}

	return s
}

// Export runs the full pipeline and writes the merged PDF to
// input.OutputPath. The output appears atomically: on any failure nothing is
// left at the destination. The context is used for cancellation and timeout.
func (s *Service) Export(ctx context.Context, input Input) error {
	if err := s.validateInput(input); err != nil {
		return err
	}
	if input.OutputPath == "" {
		return ErrEmptyOutputPath
	}

	site, err := BuildSiteMap(input.BaseURL, input.Layouts, nil)
	if err != nil {
		return err
	}

	settings := input.Render
	if settings == nil {
		settings = DefaultRenderSettings()
	}

	// Create renderer if not injected (e.g., by tests)
	if s.renderer == nil {
		s.renderer = newRodRenderer(s.cfg.timeout, settings.DocumentOutline)
	}

	base := strings.TrimSuffix(input.BaseURL, "/")
	pages := make([]RenderedPage, 0, len(site.Order()))
	for _, node := range site.Order() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.cfg.logf("rendering %s", node.URL)
		data, err := s.renderer.RenderPage(ctx, base+node.URL, settings)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", node.URL, err)
		}
		pages = append(pages, RenderedPage{URL: node.URL, Data: data})
	}

	assembled, err := s.Assemble(ctx, input, pages)
	if err != nil {
		return err
	}

	return fileutil.WriteFileAtomic(input.OutputPath, assembled, 0o644)
}

// Assemble merges pre-rendered pages into the final PDF and returns its
// bytes. Pages may arrive in any order; the site map built from
// input.Layouts alone decides page and outline order. A layout link without
// a rendered page is an orphan error.
func (s *Service) Assemble(ctx context.Context, input Input, pages []RenderedPage) ([]byte, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	urls := make([]string, len(pages))
	for i, page := range pages {
		urls[i] = page.URL
	}
	site, err := BuildSiteMap(input.BaseURL, input.Layouts, urls)
	if err != nil {
		return nil, err
	}

	docs, err := parseSources(pages, s.cfg.workers)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Reorder the parsed documents into site map traversal order; the
	// orphan check above guarantees every site node has one.
	byURL := make(map[string]*SourceDocument, len(docs))
	for _, doc := range docs {
		byURL[normalizeURL(input.BaseURL, doc.URL)] = doc
	}
	ordered := make([]*SourceDocument, 0, len(site.Order()))
	for _, node := range site.Order() {
		doc, ok := byURL[node.URL]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingPageRange, node.URL)
		}
		ordered = append(ordered, doc)
	}

	m, err := mergeDocuments(input.BaseURL, site, ordered)
	if err != nil {
		return nil, err
	}

	roots, err := buildOutline(site, m)
	if err != nil {
		return nil, err
	}
	attachOutline(m, roots)

	if err := stampPageNumbers(m.doc, m.pageRefs, input.PageNumbers); err != nil {
		return nil, err
	}

	for _, target := range m.Problems {
		s.cfg.logf("link target not in site: %s", target)
	}
	for _, target := range m.resolver.Degraded {
		s.cfg.logf("missing anchor, linking to top of page: %s", target)
	}

	// Old catalogs and page tree nodes of the source documents are
	// unreachable now; drop them before serializing.
	m.doc.PruneUnreachable()
	if err := m.doc.CheckClosure(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	return m.doc.Bytes()
}

// Close releases resources (headless Chrome browser).
func (s *Service) Close() error {
	if s.renderer != nil {
		return s.renderer.Close()
	}
	return nil
}

// validateInput checks that required fields are present and valid.
func (s *Service) validateInput(input Input) error {
	if input.BaseURL == "" {
		return ErrEmptyBaseURL
	}
	if len(input.Layouts) == 0 {
		return ErrNoLayouts
	}
	return input.PageNumbers.Validate()
}
