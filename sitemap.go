package site2pdf

import (
	"fmt"
	"strings"

	"github.com/docfold/go-site2pdf/internal/yamlutil"
)

// Layout is one site layout description: a tree of titles and links
// describing a subtree of the site's navigation. VitePress sidebar files
// follow this shape.
type Layout struct {
	Title string   `yaml:"title"`
	Link  string   `yaml:"link"`
	Items []Layout `yaml:"items"`
}

// ParseLayout reads a layout description document (YAML or JSON).
func ParseLayout(data []byte) (Layout, error) {
	var l Layout
	if err := yamlutil.UnmarshalStrict(data, &l); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// SiteNode is one page in the site hierarchy. URL is normalized and unique
// across the tree; depth-first traversal order defines both page order in the
// merged document and outline order.
type SiteNode struct {
	Title    string
	URL      string
	Children []*SiteNode
}

// SiteMap is the assembled site hierarchy. It is built once per run and
// read-only thereafter.
type SiteMap struct {
	Roots []*SiteNode

	byURL  map[string]*SiteNode
	claims map[string]Layout
	order  []*SiteNode
}

// Order returns the site nodes in depth-first traversal order, the single
// source of truth for final page ordering.
func (m *SiteMap) Order() []*SiteNode {
	return m.order
}

// Lookup finds the node for a normalized URL.
func (m *SiteMap) Lookup(url string) (*SiteNode, bool) {
	node, ok := m.byURL[url]
	return node, ok
}

// BuildSiteMap assembles one SiteMap from layout descriptions. enumerated,
// when non-nil, is the set of page URLs known to exist upstream; a layout
// link outside that set is an OrphanPage error. A URL claimed by more than
// one description is only accepted when the claimed subtrees are identical.
func BuildSiteMap(base string, layouts []Layout, enumerated []string) (*SiteMap, error) {
	if len(layouts) == 0 {
		return nil, ErrNoLayouts
	}

	known := make(map[string]bool)
	for _, url := range enumerated {
		known[normalizeURL(base, url)] = true
	}

	m := &SiteMap{
		byURL:  make(map[string]*SiteNode),
		claims: make(map[string]Layout),
	}
	for _, layout := range layouts {
		root, err := m.addLayout(base, layout)
		if err != nil {
			return nil, err
		}
		if root != nil {
			m.Roots = append(m.Roots, root)
		}
	}

	var walk func(node *SiteNode)
	walk = func(node *SiteNode) {
		m.order = append(m.order, node)
		for _, child := range node.Children {
			walk(child)
		}
	}
	for _, root := range m.Roots {
		walk(root)
	}

	if enumerated != nil {
		for _, node := range m.order {
			if !known[node.URL] {
				return nil, fmt.Errorf("%w: %s", ErrOrphanPage, node.URL)
			}
		}
	}
	return m, nil
}

// addLayout converts one layout subtree to SiteNodes, registering each URL.
// It returns nil when the subtree duplicates an already registered one.
// Duplicates are judged against the first claimed layout, not the built node:
// a node's children may themselves have been deduplicated away, which must
// not make a later identical claim look conflicting.
func (m *SiteMap) addLayout(base string, layout Layout) (*SiteNode, error) {
	url := normalizeURL(base, layout.Link)
	if _, ok := m.byURL[url]; ok {
		if !sameLayout(m.claims[url], layout, base) {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousLayout, url)
		}
		return nil, nil
	}
	node := &SiteNode{Title: layout.Title, URL: url}
	m.byURL[url] = node
	m.claims[url] = layout
	for _, item := range layout.Items {
		child, err := m.addLayout(base, item)
		if err != nil {
			return nil, err
		}
		if child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node, nil
}

// sameLayout reports whether two layout descriptions claim the same subtree.
func sameLayout(a, b Layout, base string) bool {
	if normalizeURL(base, a.Link) != normalizeURL(base, b.Link) || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if !sameLayout(a.Items[i], b.Items[i], base) {
			return false
		}
	}
	return true
}

// normalizeURL reduces a page URL to its canonical site-relative form: the
// base prefix is stripped, directory URLs resolve to their index.html, and
// extensionless page URLs gain .html, matching how the static renderer names
// its output pages.
func normalizeURL(base, raw string) string {
	url := strings.TrimSuffix(raw, "/")
	if trimmed, ok := strings.CutPrefix(url, strings.TrimSuffix(base, "/")); ok {
		url = trimmed
	}
	if url == "" || strings.HasSuffix(raw, "/") {
		url += "/index.html"
	} else if !strings.HasSuffix(url, ".html") {
		url += ".html"
	}
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	return url
}

// splitFragment separates an optional #fragment from a link target.
func splitFragment(target string) (url, fragment string) {
	if idx := strings.IndexByte(target, '#'); idx >= 0 {
		return target[:idx], target[idx+1:]
	}
	return target, ""
}
