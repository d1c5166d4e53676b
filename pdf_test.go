package site2pdf

import (
	"testing"

	"github.com/docfold/go-site2pdf/internal/pdfobj"
)

// fakePage describes one synthetic rendered page document for tests.
type fakePage struct {
	pageCount int            // defaults to 1
	links     []string       // URI link annotations placed on the first page
	dests     map[string]int // named destination -> target page index
}

// renderFakePage builds a small but structurally complete PDF document, the
// shape headless Chrome produces: a page tree with inheritable attributes,
// content streams, link annotations, and named destinations in the catalog.
func renderFakePage(t *testing.T, p fakePage) []byte {
	t.Helper()

	if p.pageCount == 0 {
		p.pageCount = 1
	}
	doc := pdfobj.NewDocument()

	pageDicts := make([]pdfobj.Dict, p.pageCount)
	pageRefs := make([]pdfobj.Reference, p.pageCount)
	kids := make(pdfobj.Array, p.pageCount)
	for i := range pageRefs {
		content := doc.Add(pdfobj.Stream{Dict: pdfobj.Dict{}, Data: []byte("BT (p) Tj ET")})
		page := pdfobj.Dict{
			"Type":     pdfobj.Name("Page"),
			"Contents": content,
		}
		pageDicts[i] = page
		pageRefs[i] = doc.Add(page)
		kids[i] = pageRefs[i]
	}
	pagesRef := doc.Add(pdfobj.Dict{
		"Type":     pdfobj.Name("Pages"),
		"Kids":     kids,
		"Count":    p.pageCount,
		"MediaBox": pdfobj.Array{0, 0, 612, 792},
	})
	for _, page := range pageDicts {
		page["Parent"] = pagesRef
	}

	if len(p.links) > 0 {
		annots := pdfobj.Array{}
		for _, uri := range p.links {
			annots = append(annots, doc.Add(pdfobj.Dict{
				"Type":    pdfobj.Name("Annot"),
				"Subtype": pdfobj.Name("Link"),
				"Rect":    pdfobj.Array{0, 0, 100, 20},
				"A": pdfobj.Dict{
					"S":   pdfobj.Name("URI"),
					"URI": pdfobj.String(uri),
				},
			}))
		}
		pageDicts[0]["Annots"] = annots
	}

	catalog := pdfobj.Dict{
		"Type":  pdfobj.Name("Catalog"),
		"Pages": pagesRef,
	}
	if len(p.dests) > 0 {
		dests := pdfobj.Dict{}
		for name, idx := range p.dests {
			dests[pdfobj.Name(name)] = pdfobj.Array{pageRefs[idx], pdfobj.Name("XYZ"), 0, 100, nil}
		}
		catalog["Dests"] = dests
	}
	doc.Trailer["Root"] = doc.Add(catalog)

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("serializing fake page: %v", err)
	}
	return data
}

// parseFakePage parses one fake page into a SourceDocument.
func parseFakePage(t *testing.T, url string, p fakePage) *SourceDocument {
	t.Helper()

	src, err := parseSource(RenderedPage{URL: url, Data: renderFakePage(t, p)})
	if err != nil {
		t.Fatalf("parsing fake page %s: %v", url, err)
	}
	return src
}

// guideSiteMap is the base fixture used across merge and outline tests:
// a home page with a guide section holding one child page.
func guideSiteMap(t *testing.T) *SiteMap {
	t.Helper()

	site, err := BuildSiteMap(testBaseURL, []Layout{
		{
			Title: "Home",
			Link:  "/",
			Items: []Layout{
				{
					Title: "Guide",
					Link:  "/guide/",
					Items: []Layout{
						{Title: "Install", Link: "/guide/install"},
					},
				},
			},
		},
	}, nil)
	if err != nil {
		t.Fatalf("building site map: %v", err)
	}
	return site
}

const testBaseURL = "http://localhost:5173"
