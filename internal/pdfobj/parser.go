package pdfobj

import (
	"bytes"
	"fmt"
)

// startxrefWindow is how far back from EOF the startxref keyword is sought.
const startxrefWindow = 2048

// xrefEntry locates one object: either directly in the file ('n'), inside an
// object stream ('s'), or on the free list ('f').
type xrefEntry struct {
	kind   byte
	offset int // kind 'n': byte offset of the object
	gen    int
	stream int // kind 's': containing object stream number
	index  int // kind 's': index within that stream
}

// Parse reads raw PDF bytes into a Document. It locates the cross-reference
// structure from the trailer, follows Prev/XRefStm chains, loads every live
// object (including members of object streams), and flattens the page tree.
func Parse(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	p := &fileParser{
		data:    data,
		entries: make(map[int]xrefEntry),
		trailer: make(Dict),
	}
	start, err := p.findStartXRef()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadXRef, err)
	}
	seen := make(map[int]bool)
	for start != 0 {
		if seen[start] {
			return nil, fmt.Errorf("%w: cross-reference loop at offset %d", ErrBadXRef, start)
		}
		seen[start] = true
		prev, err := p.readXRefSection(start)
		if err != nil {
			return nil, fmt.Errorf("%w: section at offset %d: %v", ErrBadXRef, start, err)
		}
		start = prev
	}
	if _, ok := p.trailer["Root"]; !ok {
		return nil, fmt.Errorf("%w: no Root entry", ErrBadTrailer)
	}

	doc := NewDocument()
	doc.Trailer = p.trailer
	if err := p.loadObjects(doc); err != nil {
		return nil, err
	}
	if err := doc.FlattenPages(); err != nil {
		return nil, err
	}
	return doc, nil
}

type fileParser struct {
	data    []byte
	entries map[int]xrefEntry
	trailer Dict
}

// findStartXRef locates the final startxref keyword near EOF and returns the
// offset it points at.
func (p *fileParser) findStartXRef() (int, error) {
	tail := p.data
	if len(tail) > startxrefWindow {
		tail = tail[len(tail)-startxrefWindow:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf(`no "startxref" near end of file`)
	}
	s := &scanner{data: tail, pos: idx + len("startxref")}
	s.skipSpace()
	num, isInt, err := s.readNumber()
	if err != nil || !isInt {
		return 0, fmt.Errorf(`invalid offset after "startxref"`)
	}
	off := num.(int)
	if off <= 0 || off >= len(p.data) {
		return 0, fmt.Errorf("startxref offset %d out of range", off)
	}
	return off, nil
}

// readXRefSection reads one cross-reference section (classic table or xref
// stream) and returns the offset of the previous section, zero if none.
// Entries already present are never overwritten: sections are visited newest
// first.
func (p *fileParser) readXRefSection(addr int) (prev int, err error) {
	s := &scanner{data: p.data, pos: addr}
	s.skipSpace()
	if s.hasKeyword("xref") {
		return p.readXRefTable(s)
	}
	return p.readXRefStream(addr)
}

// readXRefTable reads a classic "xref" table followed by a trailer dict.
func (p *fileParser) readXRefTable(s *scanner) (prev int, err error) {
	for {
		s.skipSpace()
		if s.hasKeyword("trailer") {
			break
		}
		// Subsection header: first object number and entry count.
		start, isInt, err := s.readNumber()
		if err != nil || !isInt {
			return 0, fmt.Errorf("invalid subsection header")
		}
		s.skipSpace()
		count, isInt, err := s.readNumber()
		if err != nil || !isInt {
			return 0, fmt.Errorf("invalid subsection header")
		}
		for i := 0; i < count.(int); i++ {
			num := start.(int) + i
			s.skipSpace()
			off, isInt, err := s.readNumber()
			if err != nil || !isInt {
				return 0, fmt.Errorf("truncated entry for object %d", num)
			}
			s.skipSpace()
			gen, isInt, err := s.readNumber()
			if err != nil || !isInt {
				return 0, fmt.Errorf("truncated entry for object %d", num)
			}
			s.skipSpace()
			var kind byte
			switch {
			case s.hasKeyword("n"):
				kind = 'n'
			case s.hasKeyword("f"):
				kind = 'f'
			default:
				return 0, fmt.Errorf("invalid entry type for object %d", num)
			}
			if _, exists := p.entries[num]; !exists {
				p.entries[num] = xrefEntry{kind: kind, offset: off.(int), gen: gen.(int)}
			}
		}
	}
	tr, err := s.readObject()
	if err != nil {
		return 0, fmt.Errorf("trailer dict: %v", err)
	}
	trailer, ok := tr.(Dict)
	if !ok {
		return 0, fmt.Errorf(`expected dict after "trailer"`)
	}
	for key, val := range trailer {
		switch key {
		case "Prev":
			if n, ok := val.(int); ok {
				prev = n
			} else {
				return 0, fmt.Errorf("trailer Prev is %T, not int", val)
			}
		case "XRefStm":
			// Hybrid files carry a parallel xref stream.
			if n, ok := val.(int); ok {
				if _, err := p.readXRefStream(n); err != nil {
					return 0, err
				}
			}
		default:
			if _, exists := p.trailer[key]; !exists {
				p.trailer[key] = val
			}
		}
	}
	return prev, nil
}

// readXRefStream reads a cross-reference stream section.
func (p *fileParser) readXRefStream(addr int) (prev int, err error) {
	s := &scanner{data: p.data, pos: addr, lengthOf: p.intAt}
	_, obj, err := s.readIndirect()
	if err != nil {
		return 0, fmt.Errorf("xref stream: %v", err)
	}
	str, ok := obj.(Stream)
	if !ok || str.Dict.Name("Type") != "XRef" {
		return 0, fmt.Errorf("expected /Type /XRef stream at offset %d", addr)
	}

	w, ok := str.Dict["W"].(Array)
	if !ok || len(w) != 3 {
		return 0, fmt.Errorf("xref stream missing /W")
	}
	var widths [3]int
	rowsize := 0
	for i, v := range w {
		n, ok := v.(int)
		if !ok {
			return 0, fmt.Errorf("xref stream /W element is %T, not int", v)
		}
		widths[i] = n
		rowsize += n
	}

	size := str.Dict.Int("Size", 0)
	var index []int
	if arr, ok := str.Dict["Index"].(Array); ok {
		for _, v := range arr {
			n, ok := v.(int)
			if !ok {
				return 0, fmt.Errorf("xref stream /Index element is %T, not int", v)
			}
			index = append(index, n)
		}
		if len(index) == 0 || len(index)%2 != 0 {
			return 0, fmt.Errorf("xref stream /Index has %d elements", len(index))
		}
	} else {
		index = []int{0, size}
	}

	data, err := str.Decoded(rowsize)
	if err != nil {
		return 0, fmt.Errorf("decoding xref stream: %v", err)
	}

	for len(index) >= 2 {
		start, count := index[0], index[1]
		index = index[2:]
		for i := start; i < start+count; i++ {
			if len(data) < rowsize {
				return 0, fmt.Errorf("xref stream data exhausted at object %d", i)
			}
			typ := 1 // default per spec when the first field is absent
			var f1, f2 int
			data, typ = readField(data, widths[0], typ)
			data, f1 = readField(data, widths[1], 0)
			data, f2 = readField(data, widths[2], 0)
			if _, exists := p.entries[i]; exists {
				continue
			}
			switch typ {
			case 0:
				p.entries[i] = xrefEntry{kind: 'f', offset: f1, gen: f2}
			case 1:
				p.entries[i] = xrefEntry{kind: 'n', offset: f1, gen: f2}
			case 2:
				p.entries[i] = xrefEntry{kind: 's', stream: f1, index: f2}
			default:
				return 0, fmt.Errorf("xref stream entry type %d for object %d", typ, i)
			}
		}
	}

	for key, val := range str.Dict {
		switch key {
		case "Prev":
			if n, ok := val.(int); ok {
				prev = n
			}
		case "Type", "Length", "Filter", "DecodeParms", "W", "Index":
			// Stream bookkeeping, not document information.
		default:
			if _, exists := p.trailer[key]; !exists {
				p.trailer[key] = val
			}
		}
	}
	return prev, nil
}

// readField consumes one fixed-width big-endian field, returning def when the
// width is zero.
func readField(data []byte, width, def int) ([]byte, int) {
	if width == 0 {
		return data, def
	}
	v := 0
	for i := 0; i < width; i++ {
		v = v<<8 | int(data[i])
	}
	return data[width:], v
}

// intAt resolves an indirect integer (used for stream /Length values).
func (p *fileParser) intAt(ref Reference) (int, bool) {
	e, ok := p.entries[ref.Number]
	if !ok || e.kind != 'n' {
		return 0, false
	}
	s := &scanner{data: p.data, pos: e.offset}
	_, obj, err := s.readIndirect()
	if err != nil {
		return 0, false
	}
	n, ok := obj.(int)
	return n, ok
}

// loadObjects materializes every live cross-reference entry into the graph.
// Direct objects are loaded first so that object streams can be unpacked.
func (p *fileParser) loadObjects(doc *Document) error {
	streamMembers := make(map[int][]int) // object stream number -> member numbers
	for num, e := range p.entries {
		switch e.kind {
		case 'f':
			continue
		case 's':
			streamMembers[e.stream] = append(streamMembers[e.stream], num)
		case 'n':
			s := &scanner{data: p.data, pos: e.offset, lengthOf: p.intAt}
			ref, obj, err := s.readIndirect()
			if err != nil {
				return fmt.Errorf("%w: object %d at offset %d: %v", ErrMissingObject, num, e.offset, err)
			}
			if ref.Number != num {
				return fmt.Errorf("%w: object at offset %d is %d, xref says %d", ErrBadXRef, e.offset, ref.Number, num)
			}
			doc.Set(ref, obj)
		}
	}
	for streamNum, members := range streamMembers {
		if err := p.unpackObjectStream(doc, streamNum, members); err != nil {
			return err
		}
	}
	return nil
}

// unpackObjectStream extracts the listed member objects from an ObjStm.
func (p *fileParser) unpackObjectStream(doc *Document, streamNum int, members []int) error {
	obj, ok := doc.Get(Reference{Number: streamNum})
	if !ok {
		return fmt.Errorf("%w: object stream %d", ErrMissingObject, streamNum)
	}
	str, ok := obj.(Stream)
	if !ok || str.Dict.Name("Type") != "ObjStm" {
		return fmt.Errorf("%w: object %d is not an object stream", ErrBadXRef, streamNum)
	}
	data, err := str.Decoded(0)
	if err != nil {
		return fmt.Errorf("%w: decoding object stream %d: %v", ErrBadXRef, streamNum, err)
	}
	n := str.Dict.Int("N", 0)
	first := str.Dict.Int("First", -1)
	if n <= 0 || first < 0 {
		return fmt.Errorf("%w: object stream %d missing N or First", ErrBadXRef, streamNum)
	}

	wanted := make(map[int]bool, len(members))
	for _, m := range members {
		wanted[m] = true
	}

	// The stream header is N pairs of integers: object number, then offset
	// relative to First.
	s := &scanner{data: data}
	for i := 0; i < n; i++ {
		s.skipSpace()
		numObj, isInt, err := s.readNumber()
		if err != nil || !isInt {
			return fmt.Errorf("%w: object stream %d header", ErrBadXRef, streamNum)
		}
		s.skipSpace()
		off, isInt, err := s.readNumber()
		if err != nil || !isInt {
			return fmt.Errorf("%w: object stream %d header", ErrBadXRef, streamNum)
		}
		num := numObj.(int)
		if !wanted[num] {
			continue
		}
		pos := first + off.(int)
		if pos < 0 || pos > len(data) {
			return fmt.Errorf("%w: object %d offset out of range in stream %d", ErrBadXRef, num, streamNum)
		}
		member := &scanner{data: data, pos: pos}
		val, err := member.readObject()
		if err != nil {
			return fmt.Errorf("%w: object %d in stream %d: %v", ErrMissingObject, num, streamNum, err)
		}
		doc.Set(Reference{Number: num}, val)
	}
	return nil
}
