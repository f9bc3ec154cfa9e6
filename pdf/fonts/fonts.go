// Package fonts provides the faces used to draw signature appearances:
// the standard Type 1 faces every PDF viewer ships, and TrueType faces
// downloaded at runtime for handwriting-style signatures.
package fonts

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

var (
	ErrInvalidFont       = errors.New("invalid font data")
	ErrUnsupportedFormat = errors.New("unsupported font format")
)

// FontType identifies how a font is written into the PDF.
type FontType string

const (
	FontTypeType1    FontType = "Type1"
	FontTypeTrueType FontType = "TrueType"
)

// StandardFont names one of the built-in Type 1 faces.
type StandardFont string

const (
	Helvetica     StandardFont = "Helvetica"
	HelveticaBold StandardFont = "Helvetica-Bold"
	Times         StandardFont = "Times-Roman"
)

// FontMetrics holds the measurements needed for text layout and the
// font descriptor.
type FontMetrics struct {
	Ascender     float64
	Descender    float64
	LineGap      float64
	UnitsPerEm   float64
	Widths       map[rune]float64
	DefaultWidth float64
	BBox         [4]float64
	ItalicAngle  float64
	CapHeight    float64
	XHeight      float64
	StemV        float64
}

// GetWidth returns the advance width of a character in font units.
func (m *FontMetrics) GetWidth(r rune) float64 {
	if w, ok := m.Widths[r]; ok {
		return w
	}
	return m.DefaultWidth
}

// GetStringWidth measures a string at the given size, in points.
func (m *FontMetrics) GetStringWidth(s string, fontSize float64) float64 {
	var width float64
	for _, r := range s {
		width += m.GetWidth(r)
	}
	return width * fontSize / m.UnitsPerEm
}

// GetLineHeight returns the line height at the given size, in points.
func (m *FontMetrics) GetLineHeight(fontSize float64) float64 {
	return (m.Ascender - m.Descender + m.LineGap) * fontSize / m.UnitsPerEm
}

// Font is a face usable in an appearance stream.
type Font interface {
	Name() string
	Type() FontType
	Metrics() *FontMetrics
	// Encode converts a string to the byte form the content stream
	// expects: WinAnsi bytes for Type 1, big-endian glyph IDs for
	// TrueType.
	Encode(s string) []byte
	// EncodeToGlyphs maps a string to glyph IDs.
	EncodeToGlyphs(s string) []uint16
}

// StandardType1Font is one of the built-in faces. Nothing is embedded;
// the viewer supplies the font program.
type StandardType1Font struct {
	name    StandardFont
	metrics *FontMetrics
}

// NewStandardFont creates a standard font with its AFM metrics.
func NewStandardFont(name StandardFont) *StandardType1Font {
	return &StandardType1Font{name: name, metrics: standardMetrics(name)}
}

func (f *StandardType1Font) Name() string          { return string(f.name) }
func (f *StandardType1Font) Type() FontType        { return FontTypeType1 }
func (f *StandardType1Font) Metrics() *FontMetrics { return f.metrics }

func (f *StandardType1Font) Encode(s string) []byte {
	return encodeWinAnsi(s)
}

func (f *StandardType1Font) EncodeToGlyphs(s string) []uint16 {
	glyphs := make([]uint16, 0, len(s))
	for _, r := range s {
		if r < 256 {
			glyphs = append(glyphs, uint16(r))
		} else {
			glyphs = append(glyphs, 0)
		}
	}
	return glyphs
}

// Advance widths from the Adobe AFM files, ASCII range. Digits are
// uniform per face and filled in separately.
var helveticaWidths = map[rune]float64{
	' ': 278, '!': 278, '"': 355, '#': 556, '$': 556, '%': 889, '&': 667, '\'': 191,
	'(': 333, ')': 333, '*': 389, '+': 584, ',': 278, '-': 333, '.': 278, '/': 278,
	':': 278, ';': 278, '<': 584, '=': 584, '>': 584, '?': 556, '@': 1015,
	'A': 667, 'B': 667, 'C': 722, 'D': 722, 'E': 667, 'F': 611, 'G': 778, 'H': 722,
	'I': 278, 'J': 500, 'K': 667, 'L': 556, 'M': 833, 'N': 722, 'O': 778, 'P': 667,
	'Q': 778, 'R': 722, 'S': 667, 'T': 611, 'U': 722, 'V': 667, 'W': 944, 'X': 667,
	'Y': 667, 'Z': 611,
	'a': 556, 'b': 556, 'c': 500, 'd': 556, 'e': 556, 'f': 278, 'g': 556, 'h': 556,
	'i': 222, 'j': 222, 'k': 500, 'l': 222, 'm': 833, 'n': 556, 'o': 556, 'p': 556,
	'q': 556, 'r': 333, 's': 500, 't': 278, 'u': 556, 'v': 500, 'w': 722, 'x': 500,
	'y': 500, 'z': 500,
}

var helveticaBoldWidths = map[rune]float64{
	' ': 278, '!': 333, '"': 474, '#': 556, '$': 556, '%': 889, '&': 722, '\'': 238,
	'(': 333, ')': 333, '*': 389, '+': 584, ',': 278, '-': 333, '.': 278, '/': 278,
	':': 333, ';': 333, '<': 584, '=': 584, '>': 584, '?': 611, '@': 975,
	'A': 722, 'B': 722, 'C': 722, 'D': 722, 'E': 667, 'F': 611, 'G': 778, 'H': 722,
	'I': 278, 'J': 556, 'K': 722, 'L': 611, 'M': 833, 'N': 722, 'O': 778, 'P': 667,
	'Q': 778, 'R': 722, 'S': 667, 'T': 611, 'U': 722, 'V': 667, 'W': 944, 'X': 667,
	'Y': 667, 'Z': 611,
	'a': 556, 'b': 611, 'c': 556, 'd': 611, 'e': 556, 'f': 333, 'g': 611, 'h': 611,
	'i': 278, 'j': 278, 'k': 556, 'l': 278, 'm': 889, 'n': 611, 'o': 611, 'p': 611,
	'q': 611, 'r': 389, 's': 556, 't': 333, 'u': 611, 'v': 556, 'w': 778, 'x': 556,
	'y': 556, 'z': 500,
}

var timesWidths = map[rune]float64{
	' ': 250, '!': 333, '"': 408, '#': 500, '$': 500, '%': 833, '&': 778, '\'': 180,
	'(': 333, ')': 333, '*': 500, '+': 564, ',': 250, '-': 333, '.': 250, '/': 278,
	':': 278, ';': 278, '<': 564, '=': 564, '>': 564, '?': 444, '@': 921,
	'A': 722, 'B': 667, 'C': 667, 'D': 722, 'E': 611, 'F': 556, 'G': 722, 'H': 722,
	'I': 333, 'J': 389, 'K': 722, 'L': 611, 'M': 889, 'N': 722, 'O': 722, 'P': 556,
	'Q': 722, 'R': 667, 'S': 556, 'T': 611, 'U': 722, 'V': 722, 'W': 944, 'X': 722,
	'Y': 722, 'Z': 611,
	'a': 444, 'b': 500, 'c': 444, 'd': 500, 'e': 444, 'f': 333, 'g': 500, 'h': 500,
	'i': 278, 'j': 278, 'k': 500, 'l': 278, 'm': 778, 'n': 500, 'o': 500, 'p': 500,
	'q': 500, 'r': 333, 's': 389, 't': 278, 'u': 500, 'v': 500, 'w': 722, 'x': 500,
	'y': 500, 'z': 444,
}

func standardMetrics(name StandardFont) *FontMetrics {
	m := &FontMetrics{
		UnitsPerEm:   1000,
		DefaultWidth: 600,
		Widths:       make(map[rune]float64),
	}

	table := helveticaWidths
	digitWidth := 556.0
	switch name {
	case HelveticaBold:
		table = helveticaBoldWidths
		m.StemV = 140
	case Times:
		table = timesWidths
		digitWidth = 500
	default:
		m.StemV = 88
	}

	if name == Times {
		m.Ascender, m.Descender = 683, -217
		m.BBox = [4]float64{-168, -218, 1000, 898}
		m.CapHeight, m.XHeight, m.StemV = 662, 450, 84
	} else {
		m.Ascender, m.Descender = 718, -207
		m.BBox = [4]float64{-166, -225, 1000, 931}
		m.CapHeight, m.XHeight = 718, 523
	}

	for r, w := range table {
		m.Widths[r] = w
	}
	for d := '0'; d <= '9'; d++ {
		m.Widths[d] = digitWidth
	}
	return m
}

// winAnsiMap maps code points outside Latin-1 to their Windows-1252
// byte values.
var winAnsiMap = map[rune]byte{
	0x20AC: 0x80, 0x201A: 0x82, 0x0192: 0x83, 0x201E: 0x84, 0x2026: 0x85,
	0x2020: 0x86, 0x2021: 0x87, 0x02C6: 0x88, 0x2030: 0x89, 0x0160: 0x8A,
	0x2039: 0x8B, 0x0152: 0x8C, 0x017D: 0x8E, 0x2018: 0x91, 0x2019: 0x92,
	0x201C: 0x93, 0x201D: 0x94, 0x2022: 0x95, 0x2013: 0x96, 0x2014: 0x97,
	0x02DC: 0x98, 0x2122: 0x99, 0x0161: 0x9A, 0x203A: 0x9B, 0x0153: 0x9C,
	0x017E: 0x9E, 0x0178: 0x9F,
}

func encodeWinAnsi(s string) []byte {
	var buf bytes.Buffer
	for _, r := range s {
		switch {
		case r < 128:
			buf.WriteByte(byte(r))
		case winAnsiMap[r] != 0:
			buf.WriteByte(winAnsiMap[r])
		case r >= 0xA0 && r <= 0xFF:
			buf.WriteByte(byte(r))
		default:
			buf.WriteByte('?')
		}
	}
	return buf.Bytes()
}

// TrueTypeFont is a downloaded face whose program gets embedded into
// the document.
type TrueTypeFont struct {
	name        string
	data        []byte
	metrics     *FontMetrics
	cmap        map[rune]uint16
	glyphWidths map[uint16]float64
}

// LoadFont reads a font program and parses it. Only sfnt containers
// (TrueType, OpenType) are accepted.
func LoadFont(name string, r io.Reader) (Font, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return LoadTrueTypeFont(name, data)
}

// LoadTrueTypeFont parses an sfnt font from raw bytes.
func LoadTrueTypeFont(name string, data []byte) (*TrueTypeFont, error) {
	if len(data) < 12 {
		return nil, ErrInvalidFont
	}
	switch string(data[0:4]) {
	case "\x00\x01\x00\x00", "true", "OTTO":
	default:
		return nil, ErrUnsupportedFormat
	}

	f := &TrueTypeFont{
		name: name,
		data: data,
		metrics: &FontMetrics{
			Ascender:     800,
			Descender:    -200,
			UnitsPerEm:   1000,
			Widths:       make(map[rune]float64),
			DefaultWidth: 600,
			BBox:         [4]float64{0, -200, 1000, 800},
			CapHeight:    700,
			XHeight:      500,
			StemV:        80,
		},
		cmap:        make(map[rune]uint16),
		glyphWidths: make(map[uint16]float64),
	}
	f.parse()
	return f, nil
}

func be16(d []byte, off int) uint16 { return binary.BigEndian.Uint16(d[off : off+2]) }
func be32(d []byte, off int) uint32 { return binary.BigEndian.Uint32(d[off : off+4]) }

// parse walks the sfnt table directory and pulls the metrics and the
// character map. Truncated or missing tables are skipped; the defaults
// stand in for whatever could not be read.
func (f *TrueTypeFont) parse() {
	tables := make(map[string][]byte)
	numTables := int(be16(f.data, 4))
	for i := 0; i < numTables; i++ {
		rec := 12 + i*16
		if rec+16 > len(f.data) {
			break
		}
		tag := string(f.data[rec : rec+4])
		off := int(be32(f.data, rec+8))
		length := int(be32(f.data, rec+12))
		if off < 0 || length < 0 || off+length > len(f.data) {
			continue
		}
		tables[tag] = f.data[off : off+length]
	}

	if head := tables["head"]; len(head) >= 54 {
		f.metrics.UnitsPerEm = float64(be16(head, 18))
		f.metrics.BBox = [4]float64{
			float64(int16(be16(head, 36))),
			float64(int16(be16(head, 38))),
			float64(int16(be16(head, 40))),
			float64(int16(be16(head, 42))),
		}
	}

	numHMetrics := 0
	if hhea := tables["hhea"]; len(hhea) >= 36 {
		f.metrics.Ascender = float64(int16(be16(hhea, 4)))
		f.metrics.Descender = float64(int16(be16(hhea, 6)))
		f.metrics.LineGap = float64(int16(be16(hhea, 8)))
		numHMetrics = int(be16(hhea, 34))
	}

	if cmap := tables["cmap"]; len(cmap) >= 4 {
		f.parseCmap(cmap)
	}

	numGlyphs := 0
	if maxp := tables["maxp"]; len(maxp) >= 6 {
		numGlyphs = int(be16(maxp, 4))
	}
	if hmtx := tables["hmtx"]; len(hmtx) > 0 {
		f.parseHmtx(hmtx, numGlyphs, numHMetrics)
	}

	if os2 := tables["OS/2"]; len(os2) > 0 {
		f.parseOS2(os2)
	}

	for r, gid := range f.cmap {
		if w, ok := f.glyphWidths[gid]; ok {
			f.metrics.Widths[r] = w
		}
	}
}

func (f *TrueTypeFont) parseCmap(cmap []byte) {
	numSubtables := int(be16(cmap, 2))

	// Prefer Windows Unicode BMP (3,1) or full Unicode (0,3); fall
	// back to any Unicode subtable.
	sub := 0
	for i := 0; i < numSubtables; i++ {
		rec := 4 + i*8
		if rec+8 > len(cmap) {
			break
		}
		platform := be16(cmap, rec)
		encoding := be16(cmap, rec+2)
		off := int(be32(cmap, rec+4))

		if (platform == 3 && encoding == 1) || (platform == 0 && encoding == 3) {
			sub = off
			break
		}
		if platform == 0 {
			sub = off
		}
	}
	if sub == 0 || sub+2 > len(cmap) {
		return
	}

	switch be16(cmap, sub) {
	case 4:
		f.parseCmapFormat4(cmap[sub:])
	case 12:
		f.parseCmapFormat12(cmap[sub:])
	}
}

func (f *TrueTypeFont) parseCmapFormat4(d []byte) {
	if len(d) < 14 {
		return
	}
	segCount := int(be16(d, 6)) / 2
	if len(d) < 16+segCount*8 {
		return
	}

	for i := 0; i < segCount; i++ {
		end := int(be16(d, 14+i*2))
		start := int(be16(d, 16+segCount*2+i*2))
		delta := int(int16(be16(d, 16+segCount*4+i*2)))
		rangeOff := int(be16(d, 16+segCount*6+i*2))

		if start == 0xFFFF {
			break
		}

		for c := start; c <= end; c++ {
			var gid uint16
			if rangeOff == 0 {
				gid = uint16((c + delta) & 0xFFFF)
			} else {
				// The range offset is relative to its own slot in the
				// idRangeOffset array.
				p := 16 + segCount*6 + i*2 + rangeOff + (c-start)*2
				if p+2 <= len(d) {
					gid = be16(d, p)
					if gid != 0 {
						gid = uint16((int(gid) + delta) & 0xFFFF)
					}
				}
			}
			f.cmap[rune(c)] = gid
		}
	}
}

func (f *TrueTypeFont) parseCmapFormat12(d []byte) {
	if len(d) < 16 {
		return
	}
	numGroups := int(be32(d, 12))
	for i := 0; i < numGroups; i++ {
		rec := 16 + i*12
		if rec+12 > len(d) {
			break
		}
		start := be32(d, rec)
		end := be32(d, rec+4)
		startGID := be32(d, rec+8)
		for c := start; c <= end; c++ {
			f.cmap[rune(c)] = uint16(startGID + (c - start))
		}
	}
}

func (f *TrueTypeFont) parseHmtx(d []byte, numGlyphs, numHMetrics int) {
	last := 0.0
	for i := 0; i < numHMetrics && i*4+2 <= len(d); i++ {
		last = float64(be16(d, i*4))
		f.glyphWidths[uint16(i)] = last
	}
	// Glyphs past the metrics array reuse the last advance width.
	for i := numHMetrics; i > 0 && i < numGlyphs; i++ {
		f.glyphWidths[uint16(i)] = last
	}
}

func (f *TrueTypeFont) parseOS2(d []byte) {
	if len(d) >= 72 {
		if a := float64(int16(be16(d, 68))); a != 0 {
			f.metrics.Ascender = a
		}
		if desc := float64(int16(be16(d, 70))); desc != 0 {
			f.metrics.Descender = desc
		}
	}
	if len(d) >= 88 {
		f.metrics.CapHeight = float64(int16(be16(d, 86)))
	}
	if len(d) >= 90 {
		f.metrics.XHeight = float64(int16(be16(d, 88)))
	}
}

func (f *TrueTypeFont) Name() string          { return f.name }
func (f *TrueTypeFont) Type() FontType        { return FontTypeTrueType }
func (f *TrueTypeFont) Metrics() *FontMetrics { return f.metrics }

// Encode maps each rune to its big-endian glyph ID. Unmapped runes
// become glyph 0.
func (f *TrueTypeFont) Encode(s string) []byte {
	var buf bytes.Buffer
	for _, gid := range f.EncodeToGlyphs(s) {
		buf.WriteByte(byte(gid >> 8))
		buf.WriteByte(byte(gid & 0xFF))
	}
	return buf.Bytes()
}

func (f *TrueTypeFont) EncodeToGlyphs(s string) []uint16 {
	glyphs := make([]uint16, 0, len(s))
	for _, r := range s {
		glyphs = append(glyphs, f.cmap[r])
	}
	return glyphs
}

// Data returns the raw font program for embedding as FontFile2.
func (f *TrueTypeFont) Data() []byte {
	return f.data
}

// FontDescriptor returns the descriptor values, scaled to a 1000-unit
// em as the PDF font descriptor requires.
func (f *TrueTypeFont) FontDescriptor() map[string]interface{} {
	m := f.metrics
	s := 1000 / m.UnitsPerEm
	return map[string]interface{}{
		"Type":        "FontDescriptor",
		"FontName":    f.name,
		"Flags":       32,
		"FontBBox":    [4]float64{m.BBox[0] * s, m.BBox[1] * s, m.BBox[2] * s, m.BBox[3] * s},
		"ItalicAngle": m.ItalicAngle,
		"Ascent":      m.Ascender * 1000 / m.UnitsPerEm,
		"Descent":     m.Descender * 1000 / m.UnitsPerEm,
		"CapHeight":   m.CapHeight * 1000 / m.UnitsPerEm,
		"XHeight":     m.XHeight * 1000 / m.UnitsPerEm,
		"StemV":       m.StemV,
	}
}
