package pdfobj

import (
	"bytes"
	"fmt"
	"strconv"
)

const nonRegularChars = "\x00\t\n\f\r ()<>[]{}/%"

func isWhitespace(b byte) bool {
	switch b {
	case 0, 9, 10, 12, 13, 32:
		return true
	}
	return false
}

func isRegularChar(b byte) bool {
	return bytes.IndexByte([]byte(nonRegularChars), b) < 0
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// scanner reads PDF syntax from an in-memory buffer. lengthOf, when set,
// resolves indirect /Length values while reading streams; without it (or on
// a miss) the stream extent is recovered by searching for "endstream".
type scanner struct {
	data     []byte
	pos      int
	lengthOf func(Reference) (int, bool)
}

func (s *scanner) errf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", s.pos, fmt.Sprintf(format, args...))
}

func (s *scanner) rest() []byte {
	if s.pos >= len(s.data) {
		return nil
	}
	return s.data[s.pos:]
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.data) {
		b := s.data[s.pos]
		if isWhitespace(b) {
			s.pos++
			continue
		}
		if b == '%' {
			// Comment runs to end of line.
			idx := bytes.IndexAny(s.rest(), "\r\n")
			if idx < 0 {
				s.pos = len(s.data)
				return
			}
			s.pos += idx
			continue
		}
		return
	}
}

// hasKeyword reports whether the buffer at the current position starts with
// word followed by a delimiter, and consumes it if so.
func (s *scanner) hasKeyword(word string) bool {
	rest := s.rest()
	if !bytes.HasPrefix(rest, []byte(word)) {
		return false
	}
	if len(rest) > len(word) && isRegularChar(rest[len(word)]) {
		return false
	}
	s.pos += len(word)
	return true
}

// readObject reads the next object from the buffer.
func (s *scanner) readObject() (Object, error) {
	s.skipSpace()
	if s.pos >= len(s.data) {
		return nil, s.errf("unexpected end of input")
	}
	switch b := s.data[s.pos]; {
	case b == '<':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
			s.pos += 2
			return s.readDictOrStream()
		}
		s.pos++
		return s.readHexString()
	case b == '(':
		s.pos++
		return s.readString()
	case b == '/':
		s.pos++
		return s.readName()
	case b == '[':
		s.pos++
		return s.readArray()
	case b == '-' || b == '+' || b == '.' || isDigit(b):
		return s.readNumberOrReference()
	case s.hasKeyword("null"):
		return nil, nil
	case s.hasKeyword("true"):
		return true, nil
	case s.hasKeyword("false"):
		return false, nil
	default:
		return nil, s.errf("unexpected byte %q", b)
	}
}

func (s *scanner) readName() (Name, error) {
	var out []byte
	for s.pos < len(s.data) {
		b := s.data[s.pos]
		if !isRegularChar(b) {
			break
		}
		if b == '#' && s.pos+2 < len(s.data) {
			hi, err1 := hexVal(s.data[s.pos+1])
			lo, err2 := hexVal(s.data[s.pos+2])
			if err1 == nil && err2 == nil {
				out = append(out, hi<<4|lo)
				s.pos += 3
				continue
			}
		}
		out = append(out, b)
		s.pos++
	}
	return Name(out), nil
}

func hexVal(b byte) (byte, error) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', nil
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, nil
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, nil
	}
	return 0, fmt.Errorf("invalid hex digit %q", b)
}

func (s *scanner) readHexString() (HexString, error) {
	var out []byte
	var hi byte
	var half bool
	for s.pos < len(s.data) {
		b := s.data[s.pos]
		s.pos++
		if b == '>' {
			if half {
				out = append(out, hi<<4)
			}
			return out, nil
		}
		if isWhitespace(b) {
			continue
		}
		v, err := hexVal(b)
		if err != nil {
			return nil, s.errf("hex string: %v", err)
		}
		if half {
			out = append(out, hi<<4|v)
			half = false
		} else {
			hi, half = v, true
		}
	}
	return nil, s.errf("unterminated hex string")
}

func (s *scanner) readString() (String, error) {
	var out []byte
	depth := 1
	for s.pos < len(s.data) {
		b := s.data[s.pos]
		s.pos++
		switch b {
		case '(':
			depth++
			out = append(out, b)
		case ')':
			depth--
			if depth == 0 {
				return String(out), nil
			}
			out = append(out, b)
		case '\\':
			if s.pos >= len(s.data) {
				return "", s.errf("unterminated string escape")
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\n':
				// Line continuation.
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := e - '0'
				for i := 0; i < 2 && s.pos < len(s.data); i++ {
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					v = v*8 + d - '0'
					s.pos++
				}
				out = append(out, v)
			default:
				out = append(out, e)
			}
		case '\r':
			if s.pos < len(s.data) && s.data[s.pos] == '\n' {
				s.pos++
			}
			out = append(out, '\n')
		default:
			out = append(out, b)
		}
	}
	return "", s.errf("unterminated string")
}

func (s *scanner) readArray() (Array, error) {
	var arr Array
	for {
		s.skipSpace()
		if s.pos >= len(s.data) {
			return nil, s.errf("unterminated array")
		}
		if s.data[s.pos] == ']' {
			s.pos++
			return arr, nil
		}
		obj, err := s.readObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

// readNumberOrReference reads an integer, a real, or an indirect reference
// of the form "n g R".
func (s *scanner) readNumberOrReference() (Object, error) {
	num, isInt, err := s.readNumber()
	if err != nil {
		return nil, err
	}
	if !isInt {
		return num, nil
	}
	// Lookahead for "gen R".
	save := s.pos
	s.skipSpace()
	if s.pos < len(s.data) && isDigit(s.data[s.pos]) {
		gen, genInt, err := s.readNumber()
		if err == nil && genInt {
			s.skipSpace()
			if s.hasKeyword("R") {
				return Reference{Number: num.(int), Generation: gen.(int)}, nil
			}
		}
	}
	s.pos = save
	return num, nil
}

func (s *scanner) readNumber() (Object, bool, error) {
	start := s.pos
	if s.pos < len(s.data) && (s.data[s.pos] == '-' || s.data[s.pos] == '+') {
		s.pos++
	}
	for s.pos < len(s.data) && (isDigit(s.data[s.pos]) || s.data[s.pos] == '.') {
		s.pos++
	}
	tok := string(s.data[start:s.pos])
	if n, err := strconv.Atoi(tok); err == nil {
		return n, true, nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f, false, nil
	}
	return nil, false, s.errf("invalid number %q", tok)
}

func (s *scanner) readDictOrStream() (Object, error) {
	dict := make(Dict)
	for {
		s.skipSpace()
		if bytes.HasPrefix(s.rest(), []byte(">>")) {
			s.pos += 2
			break
		}
		if s.pos >= len(s.data) {
			return nil, s.errf("unterminated dictionary")
		}
		if s.data[s.pos] != '/' {
			return nil, s.errf("expected /Name key in dictionary, got %q", s.data[s.pos])
		}
		s.pos++
		key, err := s.readName()
		if err != nil {
			return nil, err
		}
		val, err := s.readObject()
		if err != nil {
			return nil, fmt.Errorf("value for /%s: %w", key, err)
		}
		dict[key] = val
	}

	// A dict followed by the "stream" keyword is a stream object.
	save := s.pos
	s.skipSpace()
	if !s.hasKeyword("stream") {
		s.pos = save
		return dict, nil
	}
	// Keyword is followed by CRLF or LF.
	if bytes.HasPrefix(s.rest(), []byte("\r\n")) {
		s.pos += 2
	} else if s.pos < len(s.data) && s.data[s.pos] == '\n' {
		s.pos++
	}

	length := -1
	switch v := dict["Length"].(type) {
	case int:
		length = v
	case Reference:
		if s.lengthOf != nil {
			if n, ok := s.lengthOf(v); ok {
				length = n
			}
		}
	}
	if length < 0 || s.pos+length > len(s.data) {
		// Recover the extent by searching for the terminator.
		idx := bytes.Index(s.rest(), []byte("endstream"))
		if idx < 0 {
			return nil, s.errf("stream with unknown length and no endstream")
		}
		length = idx
		for length > 0 && (s.data[s.pos+length-1] == '\n' || s.data[s.pos+length-1] == '\r') {
			length--
		}
		dict["Length"] = length
	}

	data := s.data[s.pos : s.pos+length]
	s.pos += length
	s.skipSpace()
	if !s.hasKeyword("endstream") {
		return nil, s.errf(`expected "endstream"`)
	}
	return Stream{Dict: dict, Data: data}, nil
}

// readIndirect reads an indirect object definition: "n g obj ... endobj".
func (s *scanner) readIndirect() (Reference, Object, error) {
	s.skipSpace()
	num, isInt, err := s.readNumber()
	if err != nil || !isInt {
		return Reference{}, nil, s.errf("expected object number")
	}
	s.skipSpace()
	gen, isInt, err := s.readNumber()
	if err != nil || !isInt {
		return Reference{}, nil, s.errf("expected generation number")
	}
	s.skipSpace()
	if !s.hasKeyword("obj") {
		return Reference{}, nil, s.errf(`expected "obj"`)
	}
	obj, err := s.readObject()
	if err != nil {
		return Reference{}, nil, err
	}
	s.skipSpace()
	if !s.hasKeyword("endobj") {
		return Reference{}, nil, s.errf(`expected "endobj"`)
	}
	return Reference{Number: num.(int), Generation: gen.(int)}, obj, nil
}
