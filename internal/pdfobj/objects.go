// Package pdfobj provides the low-level PDF object model: parsing a PDF byte
// stream into an in-memory object graph, and serializing a graph back out as
// a valid PDF. It understands structure (objects, cross-references, page
// trees, streams), not document semantics.
package pdfobj

// An Object is a value as defined by the PDF specification. It is always one
// of the following concrete types:
//   - nil (the null object)
//   - bool
//   - int
//   - float64
//   - String (a literal string)
//   - HexString (a hex-encoded string)
//   - Name
//   - Array
//   - Dict
//   - Stream
//   - Reference
type Object any

// A String is a PDF literal string, already unescaped.
type String string

// A HexString is a PDF hexadecimal string, already decoded to raw bytes.
type HexString []byte

// A Name is a PDF name without the leading slash.
type Name string

// An Array is an ordered list of objects.
type Array []Object

// A Dict maps names to objects.
type Dict map[Name]Object

// A Stream is a dictionary followed by a block of raw (possibly encoded)
// data. Data holds the bytes exactly as stored in the file; use Decoded to
// remove stream filters.
type Stream struct {
	Dict Dict
	Data []byte
}

// A Reference is an indirect reference to an object in the same graph.
type Reference struct {
	Number     int
	Generation int
}

// Name returns the dictionary value for key as a Name, or "" if absent or of
// a different type.
func (d Dict) Name(key Name) Name {
	n, _ := d[key].(Name)
	return n
}

// Int returns the dictionary value for key as an int, or def if absent or of
// a different type.
func (d Dict) Int(key Name, def int) int {
	if n, ok := d[key].(int); ok {
		return n
	}
	return def
}

// Clone returns a shallow copy of the dictionary.
func (d Dict) Clone() Dict {
	out := make(Dict, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
