package site2pdf

import (
	"strings"

	"github.com/docfold/go-site2pdf/internal/pdfobj"
)

// Destination is a resolved internal link target inside the merged document.
type Destination struct {
	PageIndex int              // position in the merged page order
	PageRef   pdfobj.Reference // the page object in the merged graph
	View      pdfobj.Array     // explicit view (e.g. /XYZ x y z); nil means /Fit
}

// destArray renders the destination as a PDF destination array.
func (d Destination) destArray() pdfobj.Array {
	if d.View != nil {
		return append(pdfobj.Array{d.PageRef}, d.View...)
	}
	return pdfobj.Array{d.PageRef, pdfobj.Name("Fit")}
}

// remapTable maps one source document's object identifiers to the globally
// unique identifiers assigned during merge.
type remapTable map[pdfobj.Reference]pdfobj.Reference

// Resolver decides whether a link target refers to a page inside the
// assembled set and, if so, where it lands in the merged document. Fragment
// targets are looked up against the named destinations the renderer placed
// in the target page's graph; a missing fragment degrades to the top of the
// page rather than failing.
type Resolver struct {
	base      string
	site      *SiteMap
	docs      map[string]*SourceDocument // keyed by normalized URL
	remaps    map[string]remapTable      // keyed by normalized URL
	pageRefs  []pdfobj.Reference         // merged page order
	pageIndex map[pdfobj.Reference]int

	// Fragments that fell back to page-level navigation, for reporting.
	Degraded []string
}

// sameSite reports whether target points inside the assembled site.
func (r *Resolver) sameSite(target string) bool {
	return strings.HasPrefix(target, r.base) || strings.HasPrefix(target, "/")
}

// Resolve returns the merged destination for a raw link target. The second
// return is false when the target refers outside the assembled set and the
// link must keep its original external action.
func (r *Resolver) Resolve(target string) (Destination, bool) {
	url, fragment := splitFragment(target)
	if !r.sameSite(url) {
		return Destination{}, false
	}
	norm := normalizeURL(r.base, url)
	if _, ok := r.site.Lookup(norm); !ok {
		return Destination{}, false
	}
	src, ok := r.docs[norm]
	if !ok {
		return Destination{}, false
	}

	top := Destination{
		PageIndex: src.PageStart,
		PageRef:   r.pageRefs[src.PageStart],
	}
	if fragment == "" {
		return top, true
	}

	if dest, ok := r.fragmentDest(src, norm, fragment); ok {
		return dest, true
	}
	// Dangling fragments are common (renamed headings); degrade to
	// page-level navigation instead of blocking assembly.
	r.Degraded = append(r.Degraded, target)
	return top, true
}

// fragmentDest looks the fragment up among the target document's named
// destinations and translates the result into the merged graph.
func (r *Resolver) fragmentDest(src *SourceDocument, norm, fragment string) (Destination, bool) {
	arr, ok := findNamedDest(src.Doc, fragment)
	if !ok || len(arr) == 0 {
		return Destination{}, false
	}
	remapped, err := remapObject(arr, r.remaps[norm])
	if err != nil {
		return Destination{}, false
	}
	view := remapped.(pdfobj.Array)
	pageRef, ok := view[0].(pdfobj.Reference)
	if !ok {
		return Destination{}, false
	}
	idx, ok := r.pageIndex[pageRef]
	if !ok {
		return Destination{}, false
	}
	return Destination{PageIndex: idx, PageRef: pageRef, View: view[1:]}, true
}

// findNamedDest looks name up in the document's named destinations: the
// catalog's /Dests dictionary, then the /Names name tree. Within a name
// tree, the first match in tree order wins.
func findNamedDest(doc *pdfobj.Document, name string) (pdfobj.Array, bool) {
	catalog, err := doc.Catalog()
	if err != nil {
		return nil, false
	}
	if dests, ok := doc.ResolveDict(catalog["Dests"]); ok {
		if arr, ok := destValue(doc, dests[pdfobj.Name(name)]); ok {
			return arr, true
		}
	}
	if names, ok := doc.ResolveDict(catalog["Names"]); ok {
		if tree, ok := doc.ResolveDict(names["Dests"]); ok {
			return lookupNameTree(doc, tree, name)
		}
	}
	return nil, false
}

// lookupNameTree walks a name tree node depth-first looking for name.
func lookupNameTree(doc *pdfobj.Document, node pdfobj.Dict, name string) (pdfobj.Array, bool) {
	if pairs, ok := doc.ResolveArray(node["Names"]); ok {
		for i := 0; i+1 < len(pairs); i += 2 {
			if destKey(doc.Resolve(pairs[i])) == name {
				return destValue(doc, pairs[i+1])
			}
		}
	}
	if kids, ok := doc.ResolveArray(node["Kids"]); ok {
		for _, kid := range kids {
			child, ok := doc.ResolveDict(kid)
			if !ok {
				continue
			}
			if arr, ok := lookupNameTree(doc, child, name); ok {
				return arr, true
			}
		}
	}
	return nil, false
}

// destKey renders a name tree key object as a comparable string.
func destKey(obj pdfobj.Object) string {
	switch v := obj.(type) {
	case pdfobj.String:
		return string(v)
	case pdfobj.HexString:
		return string(v)
	case pdfobj.Name:
		return string(v)
	}
	return ""
}

// destValue unwraps a destination value, which is either the destination
// array itself or a dictionary holding it under /D.
func destValue(doc *pdfobj.Document, obj pdfobj.Object) (pdfobj.Array, bool) {
	switch v := doc.Resolve(obj).(type) {
	case pdfobj.Array:
		return v, true
	case pdfobj.Dict:
		return doc.ResolveArray(v["D"])
	}
	return nil, false
}
