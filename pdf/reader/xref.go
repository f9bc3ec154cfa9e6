package reader

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/penginsign/sigpdf/pdf/generic"
)

// XRefEntry locates one object in the file. Regular objects carry a byte
// offset; compressed objects carry the number of their object stream and
// their index within it.
type XRefEntry struct {
	Offset     int64
	Generation int
	InUse      bool

	ObjectStreamRef int
	IndexInStream   int
}

// xrefScan accumulates the cross-reference state of a document while
// walking the xref chain from newest section to oldest. Entries from newer
// sections shadow older ones, so an object number is recorded only the
// first time it is seen.
type xrefScan struct {
	entries   map[int]*XRefEntry
	trailer   *generic.TrailerDictionary
	offsets   []int64
	hasStream bool
}

// scanXRef locates the startxref pointer at the end of the file and follows
// the chain of xref sections through their Prev links.
func scanXRef(data []byte) (*xrefScan, error) {
	startxref := bytes.LastIndex(data, []byte("startxref"))
	if startxref == -1 {
		return nil, ErrNoXRef
	}

	offset, _, err := readInt64(data, startxref+len("startxref"))
	if err != nil {
		return nil, fmt.Errorf("%w: bad startxref: %v", ErrInvalidXRef, err)
	}

	s := &xrefScan{entries: make(map[int]*XRefEntry)}

	visited := make(map[int64]bool)
	for offset > 0 && !visited[offset] {
		visited[offset] = true

		if offset >= int64(len(data)) {
			return nil, fmt.Errorf("%w: offset %d out of bounds", ErrInvalidXRef, offset)
		}
		s.offsets = append(s.offsets, offset)

		pos := skipSpace(data, int(offset))

		var trailer *generic.TrailerDictionary
		if bytes.HasPrefix(data[pos:], []byte("xref")) {
			trailer, err = s.readTable(data, pos)
		} else {
			trailer, err = s.readStream(data, pos)
			s.hasStream = true
		}
		if err != nil {
			return nil, err
		}

		if s.trailer == nil {
			s.trailer = trailer
		}

		offset = 0
		if prev, ok := trailer.GetPrev(); ok {
			offset = prev
		}
	}

	if s.trailer == nil {
		return nil, ErrNoXRef
	}
	return s, nil
}

// readTable reads a classic xref table: subsections of fixed 20-byte
// entries followed by a trailer dictionary.
func (s *xrefScan) readTable(data []byte, pos int) (*generic.TrailerDictionary, error) {
	pos = skipSpace(data, pos+len("xref"))

	for !bytes.HasPrefix(data[pos:], []byte("trailer")) {
		start, next, err := readInt64(data, pos)
		if err != nil {
			return nil, fmt.Errorf("%w: subsection start: %v", ErrInvalidXRef, err)
		}
		count, next, err := readInt64(data, next)
		if err != nil {
			return nil, fmt.Errorf("%w: subsection count: %v", ErrInvalidXRef, err)
		}
		pos = skipSpace(data, next)

		for i := int64(0); i < count; i++ {
			if pos+20 > len(data) {
				return nil, fmt.Errorf("%w: truncated entry", ErrInvalidXRef)
			}
			entry, err := parseTableEntry(data[pos : pos+20])
			if err != nil {
				return nil, err
			}
			s.record(int(start+i), entry)
			pos = skipSpace(data, pos+20)
		}
	}

	pos = skipSpace(data, pos+len("trailer"))
	parser := generic.NewParserFromBytes(data[pos:])
	obj, err := parser.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("trailer: %w", err)
	}
	dict, ok := obj.(*generic.DictionaryObject)
	if !ok {
		return nil, fmt.Errorf("%w: trailer is not a dictionary", ErrInvalidXRef)
	}
	return &generic.TrailerDictionary{DictionaryObject: dict}, nil
}

// parseTableEntry decodes one "nnnnnnnnnn ggggg n" record.
func parseTableEntry(rec []byte) (*XRefEntry, error) {
	offset, err := strconv.ParseInt(string(bytes.TrimSpace(rec[0:10])), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: entry offset %q", ErrInvalidXRef, rec[0:10])
	}
	gen, err := strconv.Atoi(string(bytes.TrimSpace(rec[11:16])))
	if err != nil {
		return nil, fmt.Errorf("%w: entry generation %q", ErrInvalidXRef, rec[11:16])
	}
	return &XRefEntry{
		Offset:     offset,
		Generation: gen,
		InUse:      rec[17] == 'n',
	}, nil
}

// readStream reads a cross-reference stream (PDF 1.5+): a stream object
// whose dictionary doubles as the trailer, with binary entries of the
// widths given by the W array.
func (s *xrefScan) readStream(data []byte, pos int) (*generic.TrailerDictionary, error) {
	parser := generic.NewParserFromBytes(data[pos:])
	indirect, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}
	stream, ok := indirect.Object.(*generic.StreamObject)
	if !ok {
		return nil, fmt.Errorf("%w: expected stream object", ErrInvalidXRef)
	}
	dict := stream.Dictionary

	body, err := decodeStream(stream)
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}

	var w [3]int
	wArray := dict.GetArray("W")
	if len(wArray) != 3 {
		return nil, fmt.Errorf("%w: bad W array", ErrInvalidXRef)
	}
	for i, v := range wArray {
		if n, ok := v.(generic.IntegerObject); ok {
			w[i] = int(n)
		}
	}
	entrySize := w[0] + w[1] + w[2]
	if entrySize == 0 {
		return nil, fmt.Errorf("%w: zero-width entries", ErrInvalidXRef)
	}

	index := intPairs(dict.GetArray("Index"))
	if index == nil {
		size, _ := dict.GetInt("Size")
		index = [][2]int{{0, int(size)}}
	}

	pos = 0
	for _, sub := range index {
		for i := 0; i < sub[1]; i++ {
			if pos+entrySize > len(body) {
				break
			}
			s.record(sub[0]+i, parseStreamEntry(body[pos:pos+entrySize], w))
			pos += entrySize
		}
	}

	return &generic.TrailerDictionary{DictionaryObject: dict}, nil
}

// parseStreamEntry decodes one binary xref stream entry.
func parseStreamEntry(rec []byte, w [3]int) *XRefEntry {
	field := func(start, width int) int64 {
		var v int64
		for i := 0; i < width; i++ {
			v = v<<8 | int64(rec[start+i])
		}
		return v
	}

	typ := field(0, w[0])
	if w[0] == 0 {
		typ = 1
	}
	second := field(w[0], w[1])
	third := field(w[0]+w[1], w[2])

	switch typ {
	case 1:
		return &XRefEntry{Offset: second, Generation: int(third), InUse: true}
	case 2:
		return &XRefEntry{
			ObjectStreamRef: int(second),
			IndexInStream:   int(third),
			InUse:           true,
		}
	default:
		// Type 0 marks a free object; unknown types are treated the same.
		return &XRefEntry{Offset: second, Generation: int(third)}
	}
}

func (s *xrefScan) record(objNum int, entry *XRefEntry) {
	if _, seen := s.entries[objNum]; !seen {
		s.entries[objNum] = entry
	}
}

func intPairs(arr generic.ArrayObject) [][2]int {
	if len(arr) < 2 {
		return nil
	}
	var pairs [][2]int
	for i := 0; i+1 < len(arr); i += 2 {
		a, _ := arr[i].(generic.IntegerObject)
		b, _ := arr[i+1].(generic.IntegerObject)
		pairs = append(pairs, [2]int{int(a), int(b)})
	}
	return pairs
}

func skipSpace(data []byte, pos int) int {
	for pos < len(data) {
		switch data[pos] {
		case ' ', '\t', '\r', '\n', '\x00', '\x0c':
			pos++
		default:
			return pos
		}
	}
	return pos
}

// readInt64 reads a decimal integer after optional whitespace, returning
// the value and the position just past its last digit.
func readInt64(data []byte, pos int) (int64, int, error) {
	pos = skipSpace(data, pos)
	start := pos
	for pos < len(data) && data[pos] >= '0' && data[pos] <= '9' {
		pos++
	}
	if start == pos {
		return 0, pos, fmt.Errorf("expected integer at offset %d", start)
	}
	v, err := strconv.ParseInt(string(data[start:pos]), 10, 64)
	if err != nil {
		return 0, pos, err
	}
	return v, pos, nil
}
