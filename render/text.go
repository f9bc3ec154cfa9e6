package render

import (
	"fmt"
	"strings"

	"github.com/penginsign/sigpdf/pdf/fonts"
	"github.com/penginsign/sigpdf/pdf/generic"
	"github.com/penginsign/sigpdf/pdf/writer"
)

// TextAppearance renders a line of text inside a field box: a typed
// signature (centered, inked dark blue) or a plain text field (fixed
// offset, black).
type TextAppearance struct {
	Width  float64
	Height float64

	Text  string
	Font  fonts.Font
	Size  float64
	Color [3]float64

	// Centered positions the baseline horizontally centered with a fixed
	// leftward bias, the way signatures are laid out. When false the text
	// is drawn at (OffsetX, OffsetY).
	Centered bool
	Bias     float64

	OffsetX float64
	OffsetY float64
}

// Dimensions returns the field box dimensions.
func (t *TextAppearance) Dimensions() (width, height float64) {
	return t.Width, t.Height
}

// textOrigin returns the baseline origin inside the field box.
func (t *TextAppearance) textOrigin() (x, y float64) {
	if t.Centered {
		textWidth := t.Font.Metrics().GetStringWidth(t.Text, t.Size)
		return (t.Width-textWidth)/2 - t.Bias, t.Size * 0.2
	}
	return t.OffsetX, t.OffsetY
}

// Render produces the appearance content stream. TrueType faces are
// written as Identity-H glyph runs, standard fonts as literal strings.
func (t *TextAppearance) Render() []byte {
	x, y := t.textOrigin()

	var b strings.Builder
	b.WriteString("q\n")
	fmt.Fprintf(&b, "%f %f %f rg\n", t.Color[0], t.Color[1], t.Color[2])
	b.WriteString("BT\n")
	fmt.Fprintf(&b, "/F1 %f Tf\n", t.Size)
	fmt.Fprintf(&b, "%f %f Td\n", x, y)
	if t.Font.Type() == fonts.FontTypeTrueType {
		fmt.Fprintf(&b, "<%X> Tj\n", t.Font.Encode(t.Text))
	} else {
		fmt.Fprintf(&b, "(%s) Tj\n", escapeString(string(t.Font.Encode(t.Text))))
	}
	b.WriteString("ET\n")
	b.WriteString("Q\n")
	return []byte(b.String())
}

// Build registers the font objects and returns the appearance stream.
func (t *TextAppearance) Build(w *writer.IncrementalPdfFileWriter) (*generic.StreamObject, error) {
	var fontObj generic.PdfObject

	switch f := t.Font.(type) {
	case *fonts.TrueTypeFont:
		ref, err := embedTrueTypeFont(w, f, t.Text)
		if err != nil {
			return nil, err
		}
		fontObj = ref
	default:
		fontDict := generic.NewDictionary()
		fontDict.Set("Type", generic.NameObject("Font"))
		fontDict.Set("Subtype", generic.NameObject("Type1"))
		fontDict.Set("BaseFont", generic.NameObject(t.Font.Name()))
		fontDict.Set("Encoding", generic.NameObject("WinAnsiEncoding"))
		fontObj = fontDict
	}

	// Pad generously: centering bias and descenders may leave the box.
	pad := t.Size
	if pad < 25 {
		pad = 25
	}
	dict := newFormDict(t.Width, t.Height, pad)

	resources := generic.NewDictionary()
	fontRes := generic.NewDictionary()
	fontRes.Set("F1", fontObj)
	resources.Set("Font", fontRes)
	dict.Set("Resources", resources)

	return generic.NewStream(dict, t.Render()), nil
}

// embedTrueTypeFont writes a Type0/Identity-H composite font with the
// full font program and returns the font dictionary reference.
func embedTrueTypeFont(w *writer.IncrementalPdfFileWriter, f *fonts.TrueTypeFont, text string) (generic.Reference, error) {
	baseName := strings.ReplaceAll(f.Name(), " ", "")
	if baseName == "" {
		baseName = "Embedded"
	}

	data := f.Data()
	fileDict := generic.NewDictionary()
	fileDict.Set("Length1", generic.IntegerObject(len(data)))
	fileRef := w.AddObject(generic.NewStream(fileDict, data))

	desc := f.FontDescriptor()
	descDict := generic.NewDictionary()
	descDict.Set("Type", generic.NameObject("FontDescriptor"))
	descDict.Set("FontName", generic.NameObject(baseName))
	if flags, ok := desc["Flags"].(int); ok {
		descDict.Set("Flags", generic.IntegerObject(flags))
	}
	if bbox, ok := desc["FontBBox"].([4]float64); ok {
		descDict.Set("FontBBox", generic.ArrayObject{
			generic.RealObject(bbox[0]),
			generic.RealObject(bbox[1]),
			generic.RealObject(bbox[2]),
			generic.RealObject(bbox[3]),
		})
	}
	for _, key := range []string{"ItalicAngle", "Ascent", "Descent", "CapHeight", "XHeight", "StemV"} {
		if v, ok := desc[key].(float64); ok {
			descDict.Set(key, generic.RealObject(v))
		}
	}
	descDict.Set("FontFile2", fileRef)
	descRef := w.AddObject(descDict)

	metrics := f.Metrics()
	scale := 1000.0 / metrics.UnitsPerEm

	// Width entries only for the glyphs this appearance uses.
	seen := make(map[uint16]bool)
	var widths generic.ArrayObject
	for _, r := range text {
		gids := f.EncodeToGlyphs(string(r))
		if len(gids) == 0 {
			continue
		}
		gid := gids[0]
		if gid == 0 || seen[gid] {
			continue
		}
		seen[gid] = true
		widths = append(widths,
			generic.IntegerObject(gid),
			generic.ArrayObject{generic.RealObject(metrics.GetWidth(r) * scale)},
		)
	}

	sysInfo := generic.NewDictionary()
	sysInfo.Set("Registry", generic.NewLiteralString("Adobe"))
	sysInfo.Set("Ordering", generic.NewLiteralString("Identity"))
	sysInfo.Set("Supplement", generic.IntegerObject(0))

	cidDict := generic.NewDictionary()
	cidDict.Set("Type", generic.NameObject("Font"))
	cidDict.Set("Subtype", generic.NameObject("CIDFontType2"))
	cidDict.Set("BaseFont", generic.NameObject(baseName))
	cidDict.Set("CIDSystemInfo", sysInfo)
	cidDict.Set("FontDescriptor", descRef)
	cidDict.Set("DW", generic.RealObject(metrics.DefaultWidth*scale))
	if len(widths) > 0 {
		cidDict.Set("W", widths)
	}
	cidDict.Set("CIDToGIDMap", generic.NameObject("Identity"))
	cidRef := w.AddObject(cidDict)

	fontDict := generic.NewDictionary()
	fontDict.Set("Type", generic.NameObject("Font"))
	fontDict.Set("Subtype", generic.NameObject("Type0"))
	fontDict.Set("BaseFont", generic.NameObject(baseName))
	fontDict.Set("Encoding", generic.NameObject("Identity-H"))
	fontDict.Set("DescendantFonts", generic.ArrayObject{cidRef})

	return w.AddObject(fontDict), nil
}
