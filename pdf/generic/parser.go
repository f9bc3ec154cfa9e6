package generic

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var (
	ErrInvalidObject     = errors.New("invalid PDF object")
	ErrInvalidString     = errors.New("invalid PDF string")
	ErrInvalidName       = errors.New("invalid PDF name")
	ErrInvalidNumber     = errors.New("invalid PDF number")
	ErrInvalidArray      = errors.New("invalid PDF array")
	ErrInvalidDictionary = errors.New("invalid PDF dictionary")
)

// Parser reads PDF objects out of an in-memory byte slice. Parsing is
// positional: each call consumes input from the current offset, and
// reference detection backtracks by restoring the offset.
type Parser struct {
	data []byte
	pos  int
}

func NewParserFromBytes(data []byte) *Parser {
	return &Parser{data: data}
}

func (p *Parser) next() (byte, error) {
	if p.pos >= len(p.data) {
		return 0, io.EOF
	}
	b := p.data[p.pos]
	p.pos++
	return b, nil
}

func (p *Parser) back() {
	if p.pos > 0 {
		p.pos--
	}
}

func (p *Parser) peek() (byte, error) {
	if p.pos >= len(p.data) {
		return 0, io.EOF
	}
	return p.data[p.pos], nil
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == 0 || b == '\f'
}

func isDelimiter(b byte) bool {
	return bytes.IndexByte([]byte("()<>[]{}/%"), b) >= 0
}

// skipWhitespace advances past whitespace and comments.
func (p *Parser) skipWhitespace() {
	for p.pos < len(p.data) {
		b := p.data[p.pos]
		if isWhitespace(b) {
			p.pos++
			continue
		}
		if b == '%' {
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
			continue
		}
		return
	}
}

// token reads a bare keyword such as obj, stream, or true.
func (p *Parser) token() string {
	p.skipWhitespace()
	start := p.pos
	for p.pos < len(p.data) && !isWhitespace(p.data[p.pos]) && !isDelimiter(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// ParseObject parses the next direct object.
func (p *Parser) ParseObject() (PdfObject, error) {
	p.skipWhitespace()

	b, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch {
	case b == '(':
		return p.literalString()
	case b == '<':
		return p.hexStringOrDict()
	case b == '[':
		return p.array()
	case b == '/':
		return p.name()
	case b == 't' || b == 'f':
		return p.boolean()
	case b == 'n':
		return p.null()
	case b == '-' || b == '+' || b == '.' || (b >= '0' && b <= '9'):
		return p.number()
	default:
		return nil, fmt.Errorf("%w: unexpected character %q", ErrInvalidObject, b)
	}
}

// ParseObjectOrReference parses the next object, resolving the
// "n g R" form to a Reference. A bare number followed by anything else
// backtracks and returns the number.
func (p *Parser) ParseObjectOrReference() (PdfObject, error) {
	p.skipWhitespace()
	mark := p.pos

	b, err := p.peek()
	if err != nil {
		return nil, err
	}
	if b < '0' || b > '9' {
		return p.ParseObject()
	}

	first, err := p.number()
	if err != nil {
		return nil, err
	}
	objNum, ok := first.(IntegerObject)
	if !ok {
		return first, nil
	}

	p.skipWhitespace()
	if b, err = p.peek(); err != nil || b < '0' || b > '9' {
		return first, nil
	}

	second, err := p.number()
	if err != nil {
		p.pos = mark
		return p.number()
	}
	genNum, ok := second.(IntegerObject)
	if !ok {
		p.pos = mark
		return p.number()
	}

	p.skipWhitespace()
	if b, err = p.next(); err == nil && b == 'R' {
		return Reference{ObjectNumber: int(objNum), GenerationNumber: int(genNum)}, nil
	}

	p.pos = mark
	return p.number()
}

// ParseIndirectObject parses an "n g obj ... endobj" definition,
// including stream payloads.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	objNum, err := p.objectNumber("object number")
	if err != nil {
		return nil, err
	}
	genNum, err := p.objectNumber("generation number")
	if err != nil {
		return nil, err
	}

	if tok := p.token(); tok != "obj" {
		return nil, fmt.Errorf("%w: expected 'obj', got %q", ErrInvalidObject, tok)
	}

	obj, err := p.ParseObjectOrReference()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()
	if dict, ok := obj.(*DictionaryObject); ok {
		if b, err := p.peek(); err == nil && b == 's' {
			if tok := p.token(); tok == "stream" {
				obj = p.streamBody(dict)
			}
		}
	}

	// Some producers omit endobj; consume it when present.
	p.skipWhitespace()
	p.token()

	return NewIndirectObject(objNum, genNum, obj), nil
}

func (p *Parser) objectNumber(what string) (int, error) {
	p.skipWhitespace()
	obj, err := p.number()
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s: %v", ErrInvalidObject, what, err)
	}
	n, ok := obj.(IntegerObject)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidObject, what)
	}
	return int(n), nil
}

// streamBody consumes stream data after the stream keyword. The byte
// count comes from the dictionary's Length entry, clamped to the
// remaining input.
func (p *Parser) streamBody(dict *DictionaryObject) *StreamObject {
	// The keyword is followed by CRLF or LF.
	if b, err := p.next(); err == nil && b == '\r' {
		if b, err := p.peek(); err == nil && b == '\n' {
			p.pos++
		}
	}

	length := 0
	if l, ok := dict.GetInt("Length"); ok {
		length = int(l)
	}
	if length > len(p.data)-p.pos {
		length = len(p.data) - p.pos
	}

	data := bytes.Clone(p.data[p.pos : p.pos+length])
	p.pos += length

	p.token() // endstream
	return NewStream(dict, data)
}

func (p *Parser) literalString() (*StringObject, error) {
	p.pos++ // opening paren, verified by the caller

	var buf bytes.Buffer
	depth := 1

	for depth > 0 {
		b, err := p.next()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated string", ErrInvalidString)
		}

		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(b)
			}
		case '\\':
			if err := p.stringEscape(&buf); err != nil {
				return nil, err
			}
		default:
			buf.WriteByte(b)
		}
	}

	return &StringObject{Value: buf.Bytes()}, nil
}

func (p *Parser) stringEscape(buf *bytes.Buffer) error {
	b, err := p.next()
	if err != nil {
		return fmt.Errorf("%w: unterminated escape", ErrInvalidString)
	}

	switch b {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '\n':
		// Line continuation.
	case '\r':
		if next, err := p.peek(); err == nil && next == '\n' {
			p.pos++
		}
	default:
		if b >= '0' && b <= '7' {
			val := int(b - '0')
			for i := 0; i < 2; i++ {
				next, err := p.peek()
				if err != nil || next < '0' || next > '7' {
					break
				}
				p.pos++
				val = val<<3 | int(next-'0')
			}
			buf.WriteByte(byte(val))
		} else {
			buf.WriteByte(b)
		}
	}
	return nil
}

func (p *Parser) hexStringOrDict() (PdfObject, error) {
	p.pos++ // opening angle bracket

	if b, err := p.peek(); err == nil && b == '<' {
		p.pos++
		return p.dictionary()
	}
	return p.hexString()
}

func (p *Parser) hexString() (*StringObject, error) {
	var buf bytes.Buffer

	for {
		b, err := p.next()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated hex string", ErrInvalidString)
		}
		if b == '>' {
			break
		}
		if !isWhitespace(b) {
			buf.WriteByte(b)
		}
	}

	s := buf.String()
	if len(s)%2 != 0 {
		s += "0"
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad hex digits: %v", ErrInvalidString, err)
	}
	return &StringObject{Value: data, IsHex: true}, nil
}

func (p *Parser) dictionary() (*DictionaryObject, error) {
	dict := NewDictionary()

	for {
		p.skipWhitespace()

		b, err := p.peek()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated dictionary", ErrInvalidDictionary)
		}

		if b == '>' {
			p.pos++
			if b, err := p.next(); err != nil || b != '>' {
				return nil, fmt.Errorf("%w: expected '>>'", ErrInvalidDictionary)
			}
			return dict, nil
		}

		key, err := p.name()
		if err != nil {
			return nil, fmt.Errorf("%w: bad key: %v", ErrInvalidDictionary, err)
		}
		value, err := p.ParseObjectOrReference()
		if err != nil {
			return nil, fmt.Errorf("%w: bad value for /%s: %v", ErrInvalidDictionary, key, err)
		}
		dict.Set(string(key), value)
	}
}

func (p *Parser) array() (ArrayObject, error) {
	p.pos++ // opening bracket

	var arr ArrayObject
	for {
		p.skipWhitespace()

		b, err := p.peek()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated array", ErrInvalidArray)
		}
		if b == ']' {
			p.pos++
			return arr, nil
		}

		obj, err := p.ParseObjectOrReference()
		if err != nil {
			return nil, fmt.Errorf("%w: bad element: %v", ErrInvalidArray, err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) name() (NameObject, error) {
	b, err := p.next()
	if err != nil || b != '/' {
		return "", ErrInvalidName
	}

	var buf bytes.Buffer
	for {
		b, err := p.next()
		if err != nil {
			break
		}
		if isWhitespace(b) || isDelimiter(b) {
			p.back()
			break
		}

		if b == '#' {
			h1, err1 := p.next()
			h2, err2 := p.next()
			if err1 != nil || err2 != nil {
				return "", fmt.Errorf("%w: truncated hex escape", ErrInvalidName)
			}
			val, err := strconv.ParseUint(string([]byte{h1, h2}), 16, 8)
			if err != nil {
				return "", fmt.Errorf("%w: bad hex escape", ErrInvalidName)
			}
			buf.WriteByte(byte(val))
			continue
		}
		buf.WriteByte(b)
	}

	return NameObject(buf.String()), nil
}

func (p *Parser) boolean() (BooleanObject, error) {
	switch tok := p.token(); tok {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w: expected boolean, got %q", ErrInvalidObject, tok)
	}
}

func (p *Parser) null() (NullObject, error) {
	if tok := p.token(); tok != "null" {
		return NullObject{}, fmt.Errorf("%w: expected 'null', got %q", ErrInvalidObject, tok)
	}
	return NullObject{}, nil
}

func (p *Parser) number() (PdfObject, error) {
	start := p.pos
	hasDecimal := false

	for p.pos < len(p.data) {
		b := p.data[p.pos]
		switch {
		case b >= '0' && b <= '9':
			p.pos++
		case b == '.' && !hasDecimal:
			hasDecimal = true
			p.pos++
		case (b == '-' || b == '+') && p.pos == start:
			p.pos++
		default:
			goto done
		}
	}
done:

	s := string(p.data[start:p.pos])
	if s == "" || s == "-" || s == "+" || s == "." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}

	if hasDecimal {
		val, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidNumber, err)
		}
		return RealObject(val), nil
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNumber, err)
	}
	return IntegerObject(val), nil
}
