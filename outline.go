package site2pdf

import (
	"fmt"

	"github.com/docfold/go-site2pdf/internal/pdfobj"
)

// OutlineEntry is one bookmark: a title, the destination of its site node's
// first contributed page, and its children. The tree mirrors the site map
// 1:1.
type OutlineEntry struct {
	Title    string
	Dest     Destination
	Children []*OutlineEntry
}

// buildOutline walks the site map and emits the bookmark tree. A site node
// without a contributed page range indicates an upstream enumeration bug and
// is fatal.
func buildOutline(site *SiteMap, m *merged) ([]*OutlineEntry, error) {
	var build func(node *SiteNode) (*OutlineEntry, error)
	build = func(node *SiteNode) (*OutlineEntry, error) {
		src, ok := m.resolver.docs[node.URL]
		if !ok || src.PageCount == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingPageRange, node.URL)
		}
		entry := &OutlineEntry{
			Title: node.Title,
			Dest: Destination{
				PageIndex: src.PageStart,
				PageRef:   m.pageRefs[src.PageStart],
			},
		}
		for _, child := range node.Children {
			childEntry, err := build(child)
			if err != nil {
				return nil, err
			}
			entry.Children = append(entry.Children, childEntry)
		}
		return entry, nil
	}

	var roots []*OutlineEntry
	for _, node := range site.Roots {
		entry, err := build(node)
		if err != nil {
			return nil, err
		}
		roots = append(roots, entry)
	}
	return roots, nil
}

// attachOutline materializes the bookmark tree as a chain of outline item
// objects (First/Last/Next/Prev/Parent/Count) and hangs it off the merged
// catalog as the document outline root.
func attachOutline(m *merged, roots []*OutlineEntry) {
	if len(roots) == 0 {
		return
	}

	// Allocate identifiers first; items link to siblings and parents.
	refs := make(map[*OutlineEntry]pdfobj.Reference)
	var alloc func(entry *OutlineEntry)
	alloc = func(entry *OutlineEntry) {
		refs[entry] = m.doc.Add(nil)
		for _, child := range entry.Children {
			alloc(child)
		}
	}
	for _, entry := range roots {
		alloc(entry)
	}
	outlineRef := m.doc.Add(nil)

	// linkSiblings chains the entries under one parent, records First/Last on
	// the parent's dict, and returns the total number of entries in the
	// subtree.
	var fill func(entry *OutlineEntry, parent pdfobj.Reference, prev, next *OutlineEntry) int
	linkSiblings := func(entries []*OutlineEntry, parentRef pdfobj.Reference, parentDict pdfobj.Dict) int {
		if len(entries) == 0 {
			return 0
		}
		parentDict["First"] = refs[entries[0]]
		parentDict["Last"] = refs[entries[len(entries)-1]]
		total := 0
		for i, entry := range entries {
			var prev, next *OutlineEntry
			if i > 0 {
				prev = entries[i-1]
			}
			if i < len(entries)-1 {
				next = entries[i+1]
			}
			total += fill(entry, parentRef, prev, next)
		}
		return total
	}
	fill = func(entry *OutlineEntry, parent pdfobj.Reference, prev, next *OutlineEntry) int {
		dict := pdfobj.Dict{
			"Title":  pdfobj.String(entry.Title),
			"Parent": parent,
			"Dest":   entry.Dest.destArray(),
		}
		if prev != nil {
			dict["Prev"] = refs[prev]
		}
		if next != nil {
			dict["Next"] = refs[next]
		}
		descendants := linkSiblings(entry.Children, refs[entry], dict)
		if descendants > 0 {
			// Positive count renders the entry open.
			dict["Count"] = descendants
		}
		m.doc.Set(refs[entry], dict)
		return descendants + 1
	}

	rootDict := pdfobj.Dict{"Type": pdfobj.Name("Outlines")}
	total := linkSiblings(roots, outlineRef, rootDict)
	rootDict["Count"] = total
	m.doc.Set(outlineRef, rootDict)

	catalog, _ := m.doc.ResolveDict(m.catalogRef)
	catalog["Outlines"] = outlineRef
}
