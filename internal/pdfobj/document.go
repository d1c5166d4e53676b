package pdfobj

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph access and structure.
var (
	ErrNotPDF        = errors.New("pdfobj: missing %PDF header")
	ErrBadXRef       = errors.New("pdfobj: unreadable cross-reference table")
	ErrBadTrailer    = errors.New("pdfobj: unresolvable trailer")
	ErrMissingObject = errors.New("pdfobj: referenced object not present")
	ErrBadPageTree   = errors.New("pdfobj: malformed page tree")
)

// Document is a parsed or constructed PDF object graph: every indirect object
// keyed by reference, plus the trailer dictionary whose Root entry names the
// catalog. PageRefs is the ordered, flattened page list; it is populated by
// Parse and by FlattenPages.
type Document struct {
	Objects  map[Reference]Object
	Trailer  Dict
	PageRefs []Reference

	maxNum int
}

// NewDocument returns an empty document graph.
func NewDocument() *Document {
	return &Document{
		Objects: make(map[Reference]Object),
		Trailer: make(Dict),
	}
}

// Add inserts obj as a new indirect object and returns its reference.
func (d *Document) Add(obj Object) Reference {
	d.maxNum++
	ref := Reference{Number: d.maxNum}
	d.Objects[ref] = obj
	return ref
}

// Set inserts or replaces the object at ref.
func (d *Document) Set(ref Reference, obj Object) {
	if ref.Number > d.maxNum {
		d.maxNum = ref.Number
	}
	d.Objects[ref] = obj
}

// Get returns the object at ref.
func (d *Document) Get(ref Reference) (Object, bool) {
	obj, ok := d.Objects[ref]
	return obj, ok
}

// MaxNumber returns the highest object number present in the graph.
func (d *Document) MaxNumber() int {
	return d.maxNum
}

// Resolve follows obj through at most one level of indirection: if obj is a
// Reference, the referenced object is returned; otherwise obj itself is.
// A dangling reference resolves to nil.
func (d *Document) Resolve(obj Object) Object {
	if ref, ok := obj.(Reference); ok {
		return d.Objects[ref]
	}
	return obj
}

// ResolveDict resolves obj and asserts it is a Dict.
func (d *Document) ResolveDict(obj Object) (Dict, bool) {
	dict, ok := d.Resolve(obj).(Dict)
	return dict, ok
}

// ResolveArray resolves obj and asserts it is an Array.
func (d *Document) ResolveArray(obj Object) (Array, bool) {
	arr, ok := d.Resolve(obj).(Array)
	return arr, ok
}

// CatalogRef returns the trailer's Root reference.
func (d *Document) CatalogRef() (Reference, error) {
	ref, ok := d.Trailer["Root"].(Reference)
	if !ok {
		return Reference{}, fmt.Errorf("%w: trailer Root is %T, not Reference", ErrBadTrailer, d.Trailer["Root"])
	}
	return ref, nil
}

// Catalog returns the document catalog dictionary.
func (d *Document) Catalog() (Dict, error) {
	ref, err := d.CatalogRef()
	if err != nil {
		return nil, err
	}
	dict, ok := d.ResolveDict(ref)
	if !ok {
		return nil, fmt.Errorf("%w: catalog %d %d", ErrMissingObject, ref.Number, ref.Generation)
	}
	return dict, nil
}

// CheckClosure verifies that every reference embedded anywhere in the graph,
// including the trailer, resolves to an object present in the graph.
func (d *Document) CheckClosure() error {
	check := func(owner string, obj Object) error {
		var walk func(Object) error
		walk = func(o Object) error {
			switch v := o.(type) {
			case Reference:
				if _, ok := d.Objects[v]; !ok {
					return fmt.Errorf("%w: %d %d referenced from %s", ErrMissingObject, v.Number, v.Generation, owner)
				}
			case Array:
				for _, elem := range v {
					if err := walk(elem); err != nil {
						return err
					}
				}
			case Dict:
				for _, elem := range v {
					if err := walk(elem); err != nil {
						return err
					}
				}
			case Stream:
				return walk(v.Dict)
			}
			return nil
		}
		return walk(obj)
	}
	if err := check("trailer", d.Trailer); err != nil {
		return err
	}
	for ref, obj := range d.Objects {
		if err := check(fmt.Sprintf("object %d %d", ref.Number, ref.Generation), obj); err != nil {
			return err
		}
	}
	return nil
}

// PruneUnreachable drops every object not reachable from the trailer. After
// merging graphs and rebuilding the catalog, superseded structure (old
// catalogs, page tree nodes, outlines) lingers unreferenced; pruning keeps it
// out of the serialized file.
func (d *Document) PruneUnreachable() {
	reachable := make(map[Reference]bool)
	var mark func(Object)
	mark = func(o Object) {
		switch v := o.(type) {
		case Reference:
			if reachable[v] {
				return
			}
			if obj, ok := d.Objects[v]; ok {
				reachable[v] = true
				mark(obj)
			}
		case Array:
			for _, elem := range v {
				mark(elem)
			}
		case Dict:
			for _, elem := range v {
				mark(elem)
			}
		case Stream:
			mark(v.Dict)
		}
	}
	mark(d.Trailer)

	for ref := range d.Objects {
		if !reachable[ref] {
			delete(d.Objects, ref)
		}
	}
}

// Attributes a page inherits from its ancestors in the page tree.
var inheritablePageKeys = []Name{"Resources", "MediaBox", "CropBox", "Rotate"}

// FlattenPages walks the page tree depth-first, materializes inherited
// attributes onto each page dictionary, and records the ordered page
// references in PageRefs. The walk is cycle-guarded; a node that is neither
// a Pages nor a Page dictionary is a structural error.
func (d *Document) FlattenPages() error {
	catalog, err := d.Catalog()
	if err != nil {
		return err
	}
	rootRef, ok := catalog["Pages"].(Reference)
	if !ok {
		return fmt.Errorf("%w: catalog Pages is %T, not Reference", ErrBadPageTree, catalog["Pages"])
	}
	d.PageRefs = nil
	seen := make(map[Reference]bool)
	return d.walkPageTree(rootRef, nil, seen)
}

func (d *Document) walkPageTree(ref Reference, inherited Dict, seen map[Reference]bool) error {
	if seen[ref] {
		return fmt.Errorf("%w: cycle at %d %d", ErrBadPageTree, ref.Number, ref.Generation)
	}
	seen[ref] = true

	node, ok := d.ResolveDict(ref)
	if !ok {
		return fmt.Errorf("%w: page tree node %d %d", ErrMissingObject, ref.Number, ref.Generation)
	}

	switch node.Name("Type") {
	case "Pages":
		// Accumulate inheritable attributes for descendants.
		down := inherited
		for _, key := range inheritablePageKeys {
			if _, present := node[key]; present {
				if down == nil {
					down = make(Dict)
				} else {
					down = down.Clone()
				}
				down[key] = node[key]
			}
		}
		kids, ok := d.ResolveArray(node["Kids"])
		if !ok {
			return fmt.Errorf("%w: Pages %d %d has no Kids array", ErrBadPageTree, ref.Number, ref.Generation)
		}
		for _, kid := range kids {
			kidRef, ok := kid.(Reference)
			if !ok {
				return fmt.Errorf("%w: Kids entry is %T, not Reference", ErrBadPageTree, kid)
			}
			if err := d.walkPageTree(kidRef, down, seen); err != nil {
				return err
			}
		}
	case "Page":
		for _, key := range inheritablePageKeys {
			if _, present := node[key]; !present {
				if val, inherit := inherited[key]; inherit {
					node[key] = val
				}
			}
		}
		d.PageRefs = append(d.PageRefs, ref)
	default:
		return fmt.Errorf("%w: node %d %d has type %q", ErrBadPageTree, ref.Number, ref.Generation, node.Name("Type"))
	}
	return nil
}
