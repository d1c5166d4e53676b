package site2pdf

import (
	"errors"
	"testing"

	"github.com/docfold/go-site2pdf/internal/pdfobj"
)

// ---------------------------------------------------------------------------
// TestMergeDocuments - Page sequence and object adoption
// ---------------------------------------------------------------------------

func TestMergeDocuments_PageSequence(t *testing.T) {
	t.Parallel()

	site := guideSiteMap(t)
	sources := []*SourceDocument{
		parseFakePage(t, "/index.html", fakePage{pageCount: 2}),
		parseFakePage(t, "/guide/index.html", fakePage{pageCount: 1}),
		parseFakePage(t, "/guide/install.html", fakePage{pageCount: 3}),
	}

	m, err := mergeDocuments(testBaseURL, site, sources)
	if err != nil {
		t.Fatalf("mergeDocuments() error = %v", err)
	}

	if len(m.pageRefs) != 6 {
		t.Fatalf("merged page count = %d, want 6", len(m.pageRefs))
	}
	wantStarts := []int{0, 2, 3}
	for i, src := range sources {
		if src.PageStart != wantStarts[i] {
			t.Errorf("source %d PageStart = %d, want %d", i, src.PageStart, wantStarts[i])
		}
	}

	// Every page must hang off the single rebuilt page tree node.
	pages, ok := m.doc.ResolveDict(m.pagesRef)
	if !ok || pages.Int("Count", 0) != 6 {
		t.Errorf("rebuilt Pages node Count = %d, want 6", pages.Int("Count", 0))
	}
	for i, ref := range m.pageRefs {
		page, ok := m.doc.ResolveDict(ref)
		if !ok {
			t.Fatalf("merged page %d does not resolve", i)
		}
		if page["Parent"] != pdfobj.Object(m.pagesRef) {
			t.Errorf("page %d Parent = %v, want %v", i, page["Parent"], m.pagesRef)
		}
	}

	if err := m.doc.CheckClosure(); err != nil {
		t.Errorf("CheckClosure() error = %v", err)
	}
}

func TestMergeDocuments_LinkRewrite(t *testing.T) {
	t.Parallel()

	site := guideSiteMap(t)
	links := []string{
		testBaseURL + "/guide/",       // internal, absolute
		"https://example.com/away",    // external
		"/guide/install#setup",        // internal with a known anchor
		"/guide/install#renamed",      // internal with a missing anchor
		"/missing",                    // same-site but not a page of the site
	}
	sources := []*SourceDocument{
		parseFakePage(t, "/index.html", fakePage{pageCount: 2, links: links}),
		parseFakePage(t, "/guide/index.html", fakePage{}),
		parseFakePage(t, "/guide/install.html", fakePage{pageCount: 2, dests: map[string]int{"setup": 1}}),
	}

	m, err := mergeDocuments(testBaseURL, site, sources)
	if err != nil {
		t.Fatalf("mergeDocuments() error = %v", err)
	}

	firstPage, _ := m.doc.ResolveDict(m.pageRefs[0])
	annots, ok := m.doc.ResolveArray(firstPage["Annots"])
	if !ok || len(annots) != len(links) {
		t.Fatalf("merged Annots has %d entries, want %d", len(annots), len(links))
	}
	annot := func(i int) pdfobj.Dict {
		dict, ok := m.doc.ResolveDict(annots[i])
		if !ok {
			t.Fatalf("annotation %d does not resolve", i)
		}
		return dict
	}

	// Internal absolute link: action replaced by a /Fit destination to the
	// guide page (merged index 2).
	internal := annot(0)
	if _, hasAction := internal["A"]; hasAction {
		t.Error("internal link kept its URI action")
	}
	dest, ok := internal["Dest"].(pdfobj.Array)
	if !ok || len(dest) != 2 || dest[0] != pdfobj.Object(m.pageRefs[2]) {
		t.Errorf("internal link Dest = %v, want [%v /Fit]", dest, m.pageRefs[2])
	}

	// External link untouched.
	external := annot(1)
	if _, hasAction := external["A"]; !hasAction {
		t.Error("external link lost its URI action")
	}
	if _, hasDest := external["Dest"]; hasDest {
		t.Error("external link gained a Dest")
	}

	// Known anchor: destination carries the renderer's view onto the second
	// page of the install document (merged index 4).
	anchored := annot(2)
	dest, ok = anchored["Dest"].(pdfobj.Array)
	if !ok || len(dest) != 5 {
		t.Fatalf("anchored link Dest = %v, want 5-element view", dest)
	}
	if dest[0] != pdfobj.Object(m.pageRefs[4]) {
		t.Errorf("anchored link targets %v, want page %v", dest[0], m.pageRefs[4])
	}
	if dest[1] != pdfobj.Object(pdfobj.Name("XYZ")) {
		t.Errorf("anchored link view = %v, want XYZ", dest[1])
	}

	// Missing anchor degrades to the top of the target page and is reported.
	degraded := annot(3)
	dest, ok = degraded["Dest"].(pdfobj.Array)
	if !ok || dest[0] != pdfobj.Object(m.pageRefs[3]) {
		t.Errorf("degraded link Dest = %v, want top of page %v", dest, m.pageRefs[3])
	}
	if len(m.resolver.Degraded) != 1 || m.resolver.Degraded[0] != "/guide/install#renamed" {
		t.Errorf("Degraded = %v, want the renamed anchor target", m.resolver.Degraded)
	}

	// Same-site target outside the site keeps its action and is reported.
	missing := annot(4)
	if _, hasAction := missing["A"]; !hasAction {
		t.Error("unmappable link lost its URI action")
	}
	if len(m.Problems) != 1 || m.Problems[0] != "/missing" {
		t.Errorf("Problems = %v, want [/missing]", m.Problems)
	}
}

func TestMergeDocuments_SerializesAfterPrune(t *testing.T) {
	t.Parallel()

	site := guideSiteMap(t)
	sources := []*SourceDocument{
		parseFakePage(t, "/index.html", fakePage{}),
		parseFakePage(t, "/guide/index.html", fakePage{}),
		parseFakePage(t, "/guide/install.html", fakePage{}),
	}

	m, err := mergeDocuments(testBaseURL, site, sources)
	if err != nil {
		t.Fatalf("mergeDocuments() error = %v", err)
	}
	m.doc.PruneUnreachable()

	data, err := m.doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	parsed, err := pdfobj.Parse(data)
	if err != nil {
		t.Fatalf("Parse() of merged output error = %v", err)
	}
	if len(parsed.PageRefs) != 3 {
		t.Errorf("reparsed page count = %d, want 3", len(parsed.PageRefs))
	}
}

// ---------------------------------------------------------------------------
// TestAdoptObjects - Identifier assignment guards
// ---------------------------------------------------------------------------

func TestAdoptObjects_Conflict(t *testing.T) {
	t.Parallel()

	src := parseFakePage(t, "/index.html", fakePage{})
	m := &merged{doc: pdfobj.NewDocument(), pageIndex: make(map[pdfobj.Reference]int)}
	// Plant an object the graph's counter does not know about, so the next
	// assigned number lands on an occupied slot.
	m.doc.Objects[pdfobj.Reference{Number: 1}] = pdfobj.Name("occupied")

	_, err := m.adoptObjects(src)
	if !errors.Is(err, ErrMergeConflict) {
		t.Errorf("adoptObjects() error = %v, want %v", err, ErrMergeConflict)
	}
}

// ---------------------------------------------------------------------------
// TestRemapObject - Reference rewriting guards
// ---------------------------------------------------------------------------

func TestRemapObject_Dangling(t *testing.T) {
	t.Parallel()

	remap := remapTable{
		{Number: 1}: {Number: 10},
	}
	obj := pdfobj.Dict{
		"Known":   pdfobj.Reference{Number: 1},
		"Unknown": pdfobj.Reference{Number: 2},
	}
	_, err := remapObject(obj, remap)
	if !errors.Is(err, ErrDanglingReference) {
		t.Errorf("remapObject() error = %v, want %v", err, ErrDanglingReference)
	}
}

func TestRemapObject_DeepCopy(t *testing.T) {
	t.Parallel()

	remap := remapTable{{Number: 1}: {Number: 10}}
	original := pdfobj.Array{pdfobj.Reference{Number: 1}, pdfobj.Dict{"K": pdfobj.Reference{Number: 1}}}

	rewritten, err := remapObject(original, remap)
	if err != nil {
		t.Fatalf("remapObject() error = %v", err)
	}
	arr := rewritten.(pdfobj.Array)
	if arr[0] != pdfobj.Object(pdfobj.Reference{Number: 10}) {
		t.Errorf("remapped reference = %v, want 10 0", arr[0])
	}
	// Mutating the copy must not touch the original.
	arr[1].(pdfobj.Dict)["K"] = nil
	if original[1].(pdfobj.Dict)["K"] != pdfobj.Object(pdfobj.Reference{Number: 1}) {
		t.Error("remapObject shared the nested dictionary with its input")
	}
}
