package site2pdf

import (
	"fmt"
	"sort"

	"github.com/docfold/go-site2pdf/internal/pdfobj"
)

// merged is the outcome of combining every source graph into one.
type merged struct {
	doc        *pdfobj.Document
	pageRefs   []pdfobj.Reference
	pageIndex  map[pdfobj.Reference]int
	pagesRef   pdfobj.Reference
	catalogRef pdfobj.Reference
	resolver   *Resolver

	// Same-site link targets that could not be mapped to a page.
	Problems []string
}

// mergeDocuments combines the source graphs into a single document. sources
// must already be in site map traversal order; that order alone decides final
// page order, regardless of the order the documents were parsed in.
func mergeDocuments(base string, site *SiteMap, sources []*SourceDocument) (*merged, error) {
	m := &merged{
		doc:       pdfobj.NewDocument(),
		pageIndex: make(map[pdfobj.Reference]int),
	}
	docsByURL := make(map[string]*SourceDocument, len(sources))
	remaps := make(map[string]remapTable, len(sources))

	// Phase 1+2: assign every object a fresh global identifier, in document
	// order, and copy it across with all embedded references rewritten.
	for _, src := range sources {
		remap, err := m.adoptObjects(src)
		if err != nil {
			return nil, fmt.Errorf("merging %s: %w", src.URL, err)
		}
		src.PageStart = len(m.pageRefs)
		src.PageCount = len(src.Doc.PageRefs)
		for _, pageRef := range src.Doc.PageRefs {
			newRef := remap[pageRef]
			m.pageIndex[newRef] = len(m.pageRefs)
			m.pageRefs = append(m.pageRefs, newRef)
		}
		norm := normalizeURL(base, src.URL)
		docsByURL[norm] = src
		remaps[norm] = remap
	}

	// Phase 3: one flat page tree over the concatenated page sequence.
	m.buildPageTree()

	// Phase 5 (outline attachment is deferred to the outline builder).
	m.catalogRef = m.doc.Add(pdfobj.Dict{
		"Type":  pdfobj.Name("Catalog"),
		"Pages": m.pagesRef,
	})
	m.doc.Trailer["Root"] = m.catalogRef

	// Phase 4: rewrite link actions per the resolver's verdict.
	m.resolver = &Resolver{
		base:      base,
		site:      site,
		docs:      docsByURL,
		remaps:    remaps,
		pageRefs:  m.pageRefs,
		pageIndex: m.pageIndex,
	}
	m.rewriteLinks()
	return m, nil
}

// adoptObjects copies every object of src into the merged graph under fresh
// identifiers and returns the remap table. A global identifier collision is
// a MergeConflict; it cannot occur with a correct remap table and exists to
// guard against resolver defects.
func (m *merged) adoptObjects(src *SourceDocument) (remapTable, error) {
	oldRefs := make([]pdfobj.Reference, 0, len(src.Doc.Objects))
	for ref := range src.Doc.Objects {
		oldRefs = append(oldRefs, ref)
	}
	sort.Slice(oldRefs, func(i, j int) bool {
		if oldRefs[i].Number != oldRefs[j].Number {
			return oldRefs[i].Number < oldRefs[j].Number
		}
		return oldRefs[i].Generation < oldRefs[j].Generation
	})

	next := m.doc.MaxNumber()
	remap := make(remapTable, len(oldRefs))
	for _, old := range oldRefs {
		next++
		remap[old] = pdfobj.Reference{Number: next}
	}
	for _, old := range oldRefs {
		rewritten, err := remapObject(src.Doc.Objects[old], remap)
		if err != nil {
			return nil, err
		}
		newRef := remap[old]
		if _, exists := m.doc.Get(newRef); exists {
			return nil, fmt.Errorf("%w: object %d", ErrMergeConflict, newRef.Number)
		}
		m.doc.Set(newRef, rewritten)
	}
	return remap, nil
}

// remapObject deep-copies obj, rewriting every embedded reference through
// the remap table. A reference missing from the table is a structural error.
func remapObject(obj pdfobj.Object, remap remapTable) (pdfobj.Object, error) {
	switch v := obj.(type) {
	case pdfobj.Reference:
		newRef, ok := remap[v]
		if !ok {
			return nil, fmt.Errorf("%w: %d %d", ErrDanglingReference, v.Number, v.Generation)
		}
		return newRef, nil
	case pdfobj.Array:
		out := make(pdfobj.Array, len(v))
		for i, elem := range v {
			rewritten, err := remapObject(elem, remap)
			if err != nil {
				return nil, err
			}
			out[i] = rewritten
		}
		return out, nil
	case pdfobj.Dict:
		out := make(pdfobj.Dict, len(v))
		for key, elem := range v {
			rewritten, err := remapObject(elem, remap)
			if err != nil {
				return nil, err
			}
			out[key] = rewritten
		}
		return out, nil
	case pdfobj.Stream:
		dict, err := remapObject(v.Dict, remap)
		if err != nil {
			return nil, err
		}
		return pdfobj.Stream{Dict: dict.(pdfobj.Dict), Data: v.Data}, nil
	default:
		return obj, nil
	}
}

// buildPageTree creates the single flat Pages node over the merged page
// sequence and reparents every page to it. Inherited page-tree attributes
// were materialized onto the pages at parse time, so nothing is lost by
// discarding the per-document trees.
func (m *merged) buildPageTree() {
	kids := make(pdfobj.Array, len(m.pageRefs))
	for i, ref := range m.pageRefs {
		kids[i] = ref
	}
	m.pagesRef = m.doc.Add(pdfobj.Dict{
		"Type":  pdfobj.Name("Pages"),
		"Kids":  kids,
		"Count": len(m.pageRefs),
	})
	for _, ref := range m.pageRefs {
		if page, ok := m.doc.ResolveDict(ref); ok {
			page["Parent"] = m.pagesRef
		}
	}
	m.doc.PageRefs = m.pageRefs
}

// rewriteLinks replaces the action of every link annotation the resolver can
// map with an internal go-to destination. External and unknown targets keep
// their original action untouched; same-site targets that still fail to map
// are collected for reporting.
func (m *merged) rewriteLinks() {
	for _, link := range linkAnnotations(m.doc) {
		dest, ok := m.resolver.Resolve(link.URI)
		if !ok {
			if m.resolver.sameSite(link.URI) {
				m.Problems = append(m.Problems, link.URI)
			}
			continue
		}
		annot, ok := m.doc.ResolveDict(link.Ref)
		if !ok {
			continue
		}
		delete(annot, "A")
		annot["Dest"] = dest.destArray()
	}
}
