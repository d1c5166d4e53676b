package pdfobj

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// Bytes serializes the document as a complete PDF file: header, every object
// in ascending number order, a classic cross-reference table covering exactly
// the objects present, and a trailer. Output is deterministic for a given
// graph (dictionary keys are written sorted).
func (d *Document) Bytes() ([]byte, error) {
	if _, err := d.CatalogRef(); err != nil {
		return nil, err
	}

	refs := make([]Reference, 0, len(d.Objects))
	for ref := range d.Objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Number < refs[j].Number })

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	buf.WriteString("%\xe2\xe3\xcf\xd3\n") // binary marker comment

	offsets := make(map[int]int, len(refs))
	gens := make(map[int]int, len(refs))
	maxNum := 0
	for _, ref := range refs {
		offsets[ref.Number] = buf.Len()
		gens[ref.Number] = ref.Generation
		if ref.Number > maxNum {
			maxNum = ref.Number
		}
		fmt.Fprintf(&buf, "%d %d obj\n", ref.Number, ref.Generation)
		writeValue(&buf, d.Objects[ref])
		buf.WriteString("\nendobj\n")
	}

	size := maxNum + 1
	xrefStart := buf.Len()
	buf.WriteString("xref\n")
	fmt.Fprintf(&buf, "0 %d\n", size)
	buf.WriteString("0000000000 65535 f\r\n")
	for num := 1; num < size; num++ {
		if off, ok := offsets[num]; ok {
			fmt.Fprintf(&buf, "%010d %05d n\r\n", off, gens[num])
		} else {
			buf.WriteString("0000000000 65535 f\r\n")
		}
	}

	trailer := make(Dict, len(d.Trailer)+1)
	for key, val := range d.Trailer {
		switch key {
		case "Prev", "XRefStm", "Size":
			// Recomputed or meaningless for a fresh file.
		default:
			trailer[key] = val
		}
	}
	trailer["Size"] = size

	buf.WriteString("trailer\n")
	writeValue(&buf, trailer)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefStart)
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int:
		buf.WriteString(strconv.Itoa(v))
	case float64:
		buf.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	case String:
		writeString(buf, string(v))
	case HexString:
		buf.WriteByte('<')
		for _, b := range v {
			fmt.Fprintf(buf, "%02x", b)
		}
		buf.WriteByte('>')
	case Name:
		writeName(buf, v)
	case Array:
		buf.WriteString("[ ")
		for _, elem := range v {
			writeValue(buf, elem)
			buf.WriteByte(' ')
		}
		buf.WriteByte(']')
	case Dict:
		writeDict(buf, v)
	case Stream:
		dict := v.Dict.Clone()
		dict["Length"] = len(v.Data)
		writeDict(buf, dict)
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	case Reference:
		fmt.Fprintf(buf, "%d %d R", v.Number, v.Generation)
	default:
		// Unreachable for graphs built through this package.
		fmt.Fprintf(buf, "null %% unsupported %T", v)
	}
}

func writeDict(buf *bytes.Buffer, dict Dict) {
	keys := make([]Name, 0, len(dict))
	for key := range dict {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	buf.WriteString("<< ")
	for _, key := range keys {
		writeName(buf, key)
		buf.WriteByte(' ')
		writeValue(buf, dict[key])
		buf.WriteByte(' ')
	}
	buf.WriteString(">>")
}

func writeName(buf *bytes.Buffer, n Name) {
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		b := n[i]
		if isRegularChar(b) && b != '#' {
			buf.WriteByte(b)
		} else {
			fmt.Fprintf(buf, "#%02X", b)
		}
	}
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('(')
	for i := 0; i < len(s); i++ {
		switch b := s[i]; b {
		case '\r':
			buf.WriteString(`\r`)
		case '\n':
			buf.WriteString(`\n`)
		case '\\', '(', ')':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(')')
}
