package fonts

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestStandardFontFaces(t *testing.T) {
	tests := []struct {
		face      StandardFont
		widthA    float64
		widthI    float64
		capHeight float64
	}{
		{Helvetica, 667, 222, 718},
		{HelveticaBold, 722, 278, 718},
		{Times, 722, 278, 662},
	}

	for _, tt := range tests {
		t.Run(string(tt.face), func(t *testing.T) {
			f := NewStandardFont(tt.face)
			if f.Name() != string(tt.face) {
				t.Errorf("Name() = %s, want %s", f.Name(), tt.face)
			}
			if f.Type() != FontTypeType1 {
				t.Errorf("Type() = %s, want Type1", f.Type())
			}
			m := f.Metrics()
			if m.GetWidth('A') != tt.widthA {
				t.Errorf("width of 'A' = %v, want %v", m.GetWidth('A'), tt.widthA)
			}
			if m.GetWidth('i') != tt.widthI {
				t.Errorf("width of 'i' = %v, want %v", m.GetWidth('i'), tt.widthI)
			}
			if m.CapHeight != tt.capHeight {
				t.Errorf("CapHeight = %v, want %v", m.CapHeight, tt.capHeight)
			}
		})
	}
}

func TestStandardFontDigitWidths(t *testing.T) {
	helv := NewStandardFont(Helvetica).Metrics()
	times := NewStandardFont(Times).Metrics()
	for d := '0'; d <= '9'; d++ {
		if helv.GetWidth(d) != 556 {
			t.Errorf("Helvetica width of %c = %v, want 556", d, helv.GetWidth(d))
		}
		if times.GetWidth(d) != 500 {
			t.Errorf("Times width of %c = %v, want 500", d, times.GetWidth(d))
		}
	}
}

func TestGetWidthDefault(t *testing.T) {
	m := NewStandardFont(Helvetica).Metrics()
	if m.GetWidth('中') != m.DefaultWidth {
		t.Errorf("unmapped rune width = %v, want default %v", m.GetWidth('中'), m.DefaultWidth)
	}
}

func TestGetStringWidth(t *testing.T) {
	m := NewStandardFont(Helvetica).Metrics()

	// H=722, i=222 at 10pt on a 1000-unit em.
	want := (722.0 + 222.0) * 10 / 1000
	if got := m.GetStringWidth("Hi", 10); got != want {
		t.Errorf("GetStringWidth = %v, want %v", got, want)
	}
}

func TestGetLineHeight(t *testing.T) {
	m := NewStandardFont(Helvetica).Metrics()
	want := (718.0 + 207.0) * 12 / 1000
	if got := m.GetLineHeight(12); got != want {
		t.Errorf("GetLineHeight = %v, want %v", got, want)
	}
}

func TestStandardFontEncode(t *testing.T) {
	f := NewStandardFont(Helvetica)

	if got := f.Encode("Hello"); !bytes.Equal(got, []byte("Hello")) {
		t.Errorf("Encode ASCII = %q, want %q", got, "Hello")
	}
	// Right single quote maps to its Windows-1252 slot.
	if got := f.Encode("’"); !bytes.Equal(got, []byte{0x92}) {
		t.Errorf("Encode quote = %v, want [0x92]", got)
	}
	// Unmappable runes degrade to a question mark.
	if got := f.Encode("Ā"); !bytes.Equal(got, []byte{'?'}) {
		t.Errorf("Encode unmappable = %v, want [?]", got)
	}
}

func TestStandardFontEncodeToGlyphs(t *testing.T) {
	f := NewStandardFont(Helvetica)
	glyphs := f.EncodeToGlyphs("AB")
	if len(glyphs) != 2 || glyphs[0] != 'A' || glyphs[1] != 'B' {
		t.Errorf("EncodeToGlyphs = %v, want [65 66]", glyphs)
	}
}

// minimalTTF builds a tiny 1000-upem sfnt with head, hhea, maxp, hmtx
// and a format 4 cmap mapping 'A' to glyph 1.
func minimalTTF() []byte {
	return minimalTTFWithUPM(1000)
}

func minimalTTFWithUPM(unitsPerEm uint16) []byte {
	const (
		headOff = 96
		hheaOff = headOff + 54
		maxpOff = hheaOff + 36
		hmtxOff = maxpOff + 6
		cmapOff = hmtxOff + 8
	)
	buf := make([]byte, cmapOff+44)

	copy(buf[0:4], []byte{0x00, 0x01, 0x00, 0x00})
	binary.BigEndian.PutUint16(buf[4:6], 5) // numTables

	dir := func(idx int, tag string, off, length int) {
		rec := 12 + idx*16
		copy(buf[rec:rec+4], tag)
		binary.BigEndian.PutUint32(buf[rec+8:rec+12], uint32(off))
		binary.BigEndian.PutUint32(buf[rec+12:rec+16], uint32(length))
	}
	dir(0, "head", headOff, 54)
	dir(1, "hhea", hheaOff, 36)
	dir(2, "maxp", maxpOff, 6)
	dir(3, "hmtx", hmtxOff, 8)
	dir(4, "cmap", cmapOff, 44)

	putS16 := func(b []byte, v int16) {
		binary.BigEndian.PutUint16(b, uint16(v))
	}

	// head: unitsPerEm and bbox.
	binary.BigEndian.PutUint16(buf[headOff+18:], unitsPerEm)
	putS16(buf[headOff+36:], -50)
	putS16(buf[headOff+38:], -200)
	binary.BigEndian.PutUint16(buf[headOff+40:], 1000)
	binary.BigEndian.PutUint16(buf[headOff+42:], 900)

	// hhea: ascender, descender, line gap, numHMetrics.
	binary.BigEndian.PutUint16(buf[hheaOff+4:], 800)
	putS16(buf[hheaOff+6:], -200)
	binary.BigEndian.PutUint16(buf[hheaOff+8:], 0)
	binary.BigEndian.PutUint16(buf[hheaOff+34:], 2)

	// maxp: numGlyphs.
	binary.BigEndian.PutUint16(buf[maxpOff+4:], 2)

	// hmtx: advance widths for glyphs 0 and 1.
	binary.BigEndian.PutUint16(buf[hmtxOff:], 500)
	binary.BigEndian.PutUint16(buf[hmtxOff+4:], 600)

	// cmap header with one Windows Unicode BMP subtable at +12.
	binary.BigEndian.PutUint16(buf[cmapOff+2:], 1)
	binary.BigEndian.PutUint16(buf[cmapOff+4:], 3)
	binary.BigEndian.PutUint16(buf[cmapOff+6:], 1)
	binary.BigEndian.PutUint32(buf[cmapOff+8:], 12)

	// Format 4 subtable: segments ['A','A'] -> glyph 1 and the 0xFFFF
	// terminator.
	sub := cmapOff + 12
	binary.BigEndian.PutUint16(buf[sub:], 4)      // format
	binary.BigEndian.PutUint16(buf[sub+2:], 32)   // length
	binary.BigEndian.PutUint16(buf[sub+6:], 4)    // segCountX2
	binary.BigEndian.PutUint16(buf[sub+14:], 'A') // endCodes
	binary.BigEndian.PutUint16(buf[sub+16:], 0xFFFF)
	binary.BigEndian.PutUint16(buf[sub+20:], 'A') // startCodes
	binary.BigEndian.PutUint16(buf[sub+22:], 0xFFFF)
	putS16(buf[sub+24:], 1-'A') // idDelta
	binary.BigEndian.PutUint16(buf[sub+26:], 1)
	// idRangeOffsets stay zero.

	return buf
}

func TestLoadTrueTypeFont(t *testing.T) {
	font, err := LoadTrueTypeFont("Satisfy", minimalTTF())
	if err != nil {
		t.Fatalf("LoadTrueTypeFont failed: %v", err)
	}

	if font.Name() != "Satisfy" {
		t.Errorf("Name() = %s, want Satisfy", font.Name())
	}
	if font.Type() != FontTypeTrueType {
		t.Errorf("Type() = %s, want TrueType", font.Type())
	}

	m := font.Metrics()
	if m.UnitsPerEm != 1000 {
		t.Errorf("UnitsPerEm = %v, want 1000", m.UnitsPerEm)
	}
	if m.Ascender != 800 || m.Descender != -200 {
		t.Errorf("ascender/descender = %v/%v, want 800/-200", m.Ascender, m.Descender)
	}
	if m.BBox != [4]float64{-50, -200, 1000, 900} {
		t.Errorf("BBox = %v", m.BBox)
	}
}

func TestTrueTypeFontCmap(t *testing.T) {
	font, err := LoadTrueTypeFont("Satisfy", minimalTTF())
	if err != nil {
		t.Fatalf("LoadTrueTypeFont failed: %v", err)
	}

	glyphs := font.EncodeToGlyphs("A")
	if len(glyphs) != 1 || glyphs[0] != 1 {
		t.Errorf("EncodeToGlyphs(A) = %v, want [1]", glyphs)
	}
	if encoded := font.Encode("A"); !bytes.Equal(encoded, []byte{0x00, 0x01}) {
		t.Errorf("Encode(A) = %v, want [0 1]", encoded)
	}

	// Unmapped runes resolve to glyph 0.
	glyphs = font.EncodeToGlyphs("B")
	if len(glyphs) != 1 || glyphs[0] != 0 {
		t.Errorf("EncodeToGlyphs(B) = %v, want [0]", glyphs)
	}

	// Glyph 1 advance width flows through the cmap into the metrics.
	if w := font.Metrics().GetWidth('A'); w != 600 {
		t.Errorf("width of 'A' = %v, want 600", w)
	}
}

func TestLoadTrueTypeFontErrors(t *testing.T) {
	if _, err := LoadTrueTypeFont("x", []byte{1, 2, 3}); err != ErrInvalidFont {
		t.Errorf("short data: got %v, want ErrInvalidFont", err)
	}

	junk := append([]byte("xxxx"), make([]byte, 20)...)
	if _, err := LoadTrueTypeFont("x", junk); err != ErrUnsupportedFormat {
		t.Errorf("bad signature: got %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadFont(t *testing.T) {
	font, err := LoadFont("Satisfy", bytes.NewReader(minimalTTF()))
	if err != nil {
		t.Fatalf("LoadFont failed: %v", err)
	}
	if font.Name() != "Satisfy" {
		t.Errorf("Name() = %s, want Satisfy", font.Name())
	}

	if _, err := LoadFont("x", bytes.NewReader([]byte("not a font at all"))); err == nil {
		t.Error("expected error for junk input")
	}
}

func TestTrueTypeFontData(t *testing.T) {
	data := minimalTTF()
	font, err := LoadTrueTypeFont("Satisfy", data)
	if err != nil {
		t.Fatalf("LoadTrueTypeFont failed: %v", err)
	}
	if !bytes.Equal(font.Data(), data) {
		t.Error("Data() should return the original font program")
	}
}

func TestTrueTypeFontDescriptor(t *testing.T) {
	font, err := LoadTrueTypeFont("Satisfy", minimalTTF())
	if err != nil {
		t.Fatalf("LoadTrueTypeFont failed: %v", err)
	}

	desc := font.FontDescriptor()
	if desc["Type"] != "FontDescriptor" {
		t.Error("expected Type=FontDescriptor")
	}
	if desc["FontName"] != "Satisfy" {
		t.Errorf("FontName = %v, want Satisfy", desc["FontName"])
	}
	if desc["Ascent"] != 800.0 {
		t.Errorf("Ascent = %v, want 800", desc["Ascent"])
	}
	if desc["Descent"] != -200.0 {
		t.Errorf("Descent = %v, want -200", desc["Descent"])
	}
	if bbox := desc["FontBBox"].([4]float64); bbox != [4]float64{-50, -200, 1000, 900} {
		t.Errorf("FontBBox = %v, want [-50 -200 1000 900]", bbox)
	}
}

func TestTrueTypeFontDescriptorScalesToThousandEm(t *testing.T) {
	font, err := LoadTrueTypeFont("Satisfy", minimalTTFWithUPM(2000))
	if err != nil {
		t.Fatalf("LoadTrueTypeFont failed: %v", err)
	}

	desc := font.FontDescriptor()
	if desc["Ascent"] != 400.0 {
		t.Errorf("Ascent = %v, want 400", desc["Ascent"])
	}
	if desc["Descent"] != -100.0 {
		t.Errorf("Descent = %v, want -100", desc["Descent"])
	}
	// The bbox must use the same 1000-unit em as the other metrics.
	if bbox := desc["FontBBox"].([4]float64); bbox != [4]float64{-25, -100, 500, 450} {
		t.Errorf("FontBBox = %v, want [-25 -100 500 450]", bbox)
	}
}
