// Package generic implements the PDF object model: the primitive value
// types, dictionaries, streams, and indirect references that documents
// are assembled from, plus a parser for reading them back.
package generic

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// PdfObject is any value that can appear in a PDF document body.
type PdfObject interface {
	Write(w io.Writer) error
	Clone() PdfObject
}

// NullObject is the PDF null value.
type NullObject struct{}

func (NullObject) Write(w io.Writer) error {
	_, err := io.WriteString(w, "null")
	return err
}

func (NullObject) Clone() PdfObject { return NullObject{} }

// BooleanObject is a PDF boolean.
type BooleanObject bool

func (b BooleanObject) Write(w io.Writer) error {
	_, err := io.WriteString(w, strconv.FormatBool(bool(b)))
	return err
}

func (b BooleanObject) Clone() PdfObject { return b }

// IntegerObject is a PDF integer.
type IntegerObject int64

func (i IntegerObject) Write(w io.Writer) error {
	_, err := io.WriteString(w, strconv.FormatInt(int64(i), 10))
	return err
}

func (i IntegerObject) Clone() PdfObject { return i }

// RealObject is a PDF real number.
type RealObject float64

func (r RealObject) Write(w io.Writer) error {
	_, err := io.WriteString(w, strconv.FormatFloat(float64(r), 'f', -1, 64))
	return err
}

func (r RealObject) Clone() PdfObject { return r }

// NameObject is a PDF name such as /Type or /Annots.
type NameObject string

// Write serializes the name, hex-escaping bytes outside the regular
// printable range and the delimiter characters.
func (n NameObject) Write(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		b := n[i]
		if b < '!' || b > '~' || strings.IndexByte("#%/[]()<>{}", b) >= 0 {
			fmt.Fprintf(&buf, "#%02X", b)
		} else {
			buf.WriteByte(b)
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func (n NameObject) Clone() PdfObject { return n }

func (n NameObject) String() string { return string(n) }

// StringObject is a PDF string. Literal strings serialize in
// parentheses, hex strings in angle brackets.
type StringObject struct {
	Value []byte
	IsHex bool
}

func NewLiteralString(s string) *StringObject {
	return &StringObject{Value: []byte(s)}
}

func NewHexString(data []byte) *StringObject {
	return &StringObject{Value: data, IsHex: true}
}

// NewTextString builds a PDF text string, switching to UTF-16BE with a
// byte order mark when the value does not fit in single bytes.
func NewTextString(s string) *StringObject {
	for _, r := range s {
		if r > 0xFF {
			var buf bytes.Buffer
			buf.Write([]byte{0xFE, 0xFF})
			for _, r := range s {
				buf.WriteByte(byte(r >> 8))
				buf.WriteByte(byte(r))
			}
			return &StringObject{Value: buf.Bytes()}
		}
	}
	return &StringObject{Value: []byte(s)}
}

func (s *StringObject) Write(w io.Writer) error {
	if s.IsHex {
		_, err := fmt.Fprintf(w, "<%s>", hex.EncodeToString(s.Value))
		return err
	}

	var buf bytes.Buffer
	buf.WriteByte('(')
	for _, b := range s.Value {
		switch {
		case b == '\\' || b == '(' || b == ')':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case b == '\n':
			buf.WriteString(`\n`)
		case b == '\r':
			buf.WriteString(`\r`)
		case b == '\t':
			buf.WriteString(`\t`)
		case b < 32 || b > 126:
			fmt.Fprintf(&buf, "\\%03o", b)
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(')')
	_, err := w.Write(buf.Bytes())
	return err
}

func (s *StringObject) Clone() PdfObject {
	return &StringObject{Value: bytes.Clone(s.Value), IsHex: s.IsHex}
}

// Text decodes the string as document text, honoring a UTF-16BE byte
// order mark when present.
func (s *StringObject) Text() string {
	if len(s.Value) >= 2 && s.Value[0] == 0xFE && s.Value[1] == 0xFF {
		var sb strings.Builder
		for i := 2; i+1 < len(s.Value); i += 2 {
			sb.WriteRune(rune(s.Value[i])<<8 | rune(s.Value[i+1]))
		}
		return sb.String()
	}
	return string(s.Value)
}

// Reference points at an indirect object by number and generation.
type Reference struct {
	ObjectNumber     int
	GenerationNumber int
}

func (r Reference) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d %d R", r.ObjectNumber, r.GenerationNumber)
	return err
}

func (r Reference) Clone() PdfObject { return r }

// IndirectObject is a numbered top-level object in the document body.
type IndirectObject struct {
	ObjectNumber     int
	GenerationNumber int
	Object           PdfObject
}

func NewIndirectObject(objNum, genNum int, obj PdfObject) *IndirectObject {
	return &IndirectObject{ObjectNumber: objNum, GenerationNumber: genNum, Object: obj}
}

func (i *IndirectObject) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%d %d obj\n", i.ObjectNumber, i.GenerationNumber); err != nil {
		return err
	}
	if i.Object != nil {
		if err := i.Object.Write(w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\nendobj\n")
	return err
}

func (i *IndirectObject) Clone() PdfObject {
	clone := &IndirectObject{ObjectNumber: i.ObjectNumber, GenerationNumber: i.GenerationNumber}
	if i.Object != nil {
		clone.Object = i.Object.Clone()
	}
	return clone
}

// ArrayObject is a PDF array.
type ArrayObject []PdfObject

func (a ArrayObject) Write(w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for i, item := range a {
		if i > 0 {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}
		if err := item.Write(w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]")
	return err
}

func (a ArrayObject) Clone() PdfObject {
	clone := make(ArrayObject, len(a))
	for i, item := range a {
		clone[i] = item.Clone()
	}
	return clone
}

// DictionaryObject is a PDF dictionary. Keys keep insertion order so
// rewritten documents stay byte-stable.
type DictionaryObject struct {
	entries map[string]PdfObject
	order   []string
}

func NewDictionary() *DictionaryObject {
	return &DictionaryObject{entries: make(map[string]PdfObject)}
}

func (d *DictionaryObject) Write(w io.Writer) error {
	if _, err := io.WriteString(w, "<<"); err != nil {
		return err
	}
	for _, key := range d.order {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		if err := NameObject(key).Write(w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
		if err := d.entries[key].Write(w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n>>")
	return err
}

func (d *DictionaryObject) Clone() PdfObject {
	clone := NewDictionary()
	for _, key := range d.order {
		clone.Set(key, d.entries[key].Clone())
	}
	return clone
}

func (d *DictionaryObject) Set(key string, value PdfObject) {
	if _, ok := d.entries[key]; !ok {
		d.order = append(d.order, key)
	}
	d.entries[key] = value
}

func (d *DictionaryObject) Get(key string) PdfObject {
	return d.entries[key]
}

func (d *DictionaryObject) Delete(key string) {
	if _, ok := d.entries[key]; !ok {
		return
	}
	delete(d.entries, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *DictionaryObject) Has(key string) bool {
	_, ok := d.entries[key]
	return ok
}

func (d *DictionaryObject) Keys() []string { return d.order }

func (d *DictionaryObject) Len() int { return len(d.entries) }

// GetName returns the value for key as a name, or "" if absent or not
// a name.
func (d *DictionaryObject) GetName(key string) string {
	if name, ok := d.entries[key].(NameObject); ok {
		return string(name)
	}
	return ""
}

// GetInt returns the value for key as an integer.
func (d *DictionaryObject) GetInt(key string) (int64, bool) {
	if i, ok := d.entries[key].(IntegerObject); ok {
		return int64(i), true
	}
	return 0, false
}

// GetArray returns the value for key as an array, or nil.
func (d *DictionaryObject) GetArray(key string) ArrayObject {
	if arr, ok := d.entries[key].(ArrayObject); ok {
		return arr
	}
	return nil
}

// GetDict returns the value for key as a dictionary, or nil.
func (d *DictionaryObject) GetDict(key string) *DictionaryObject {
	if dict, ok := d.entries[key].(*DictionaryObject); ok {
		return dict
	}
	return nil
}

// StreamObject pairs a dictionary with binary stream data. Data holds
// the bytes as read from the file, Decoded the unfiltered form, and
// EncodedData the filtered form staged for writing.
type StreamObject struct {
	Dictionary  *DictionaryObject
	Data        []byte
	Decoded     []byte
	EncodedData []byte
}

func NewStream(dict *DictionaryObject, data []byte) *StreamObject {
	if dict == nil {
		dict = NewDictionary()
	}
	return &StreamObject{Dictionary: dict, Data: data, Decoded: data}
}

func (s *StreamObject) Write(w io.Writer) error {
	data := s.Data
	if len(s.EncodedData) > 0 {
		data = s.EncodedData
	}

	s.Dictionary.Set("Length", IntegerObject(len(data)))
	if err := s.Dictionary.Write(w); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\nstream\n"); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\nendstream")
	return err
}

func (s *StreamObject) Clone() PdfObject {
	return &StreamObject{
		Dictionary: s.Dictionary.Clone().(*DictionaryObject),
		Data:       bytes.Clone(s.Data),
		Decoded:    bytes.Clone(s.Decoded),
	}
}

// GetDecodedData returns the unfiltered stream bytes, falling back to
// the raw data for streams that were never filtered.
func (s *StreamObject) GetDecodedData() []byte {
	if len(s.Decoded) > 0 {
		return s.Decoded
	}
	return s.Data
}

// Rectangle is a PDF rectangle given by its lower-left and upper-right
// corners.
type Rectangle struct {
	LLX, LLY float64
	URX, URY float64
}

// NewRectangle builds a rectangle from a four-element numeric array.
func NewRectangle(arr ArrayObject) (*Rectangle, error) {
	if len(arr) != 4 {
		return nil, fmt.Errorf("rectangle must have 4 elements, got %d", len(arr))
	}

	var v [4]float64
	for i, obj := range arr {
		switch n := obj.(type) {
		case IntegerObject:
			v[i] = float64(n)
		case RealObject:
			v[i] = float64(n)
		default:
			return nil, fmt.Errorf("rectangle element %d must be numeric", i)
		}
	}
	return &Rectangle{LLX: v[0], LLY: v[1], URX: v[2], URY: v[3]}, nil
}

func (r *Rectangle) ToArray() ArrayObject {
	return ArrayObject{RealObject(r.LLX), RealObject(r.LLY), RealObject(r.URX), RealObject(r.URY)}
}

func (r *Rectangle) Width() float64 { return r.URX - r.LLX }

func (r *Rectangle) Height() float64 { return r.URY - r.LLY }

// TrailerDictionary is the file trailer, with typed accessors for the
// entries the reader needs.
type TrailerDictionary struct {
	*DictionaryObject
}

func NewTrailer() *TrailerDictionary {
	return &TrailerDictionary{DictionaryObject: NewDictionary()}
}

// GetRoot returns the document catalog reference, or nil.
func (t *TrailerDictionary) GetRoot() *Reference {
	if ref, ok := t.Get("Root").(Reference); ok {
		return &ref
	}
	return nil
}

// GetInfo returns the document info reference, or nil.
func (t *TrailerDictionary) GetInfo() *Reference {
	if ref, ok := t.Get("Info").(Reference); ok {
		return &ref
	}
	return nil
}

// GetPrev returns the offset of the previous cross-reference section.
func (t *TrailerDictionary) GetPrev() (int64, bool) {
	return t.GetInt("Prev")
}

// ComputeFileID derives a file identifier from document parameters.
// Keys are hashed in sorted order so equal input yields an equal ID.
func ComputeFileID(info map[string]string) []byte {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := md5.New()
	for _, k := range keys {
		io.WriteString(h, k)
		io.WriteString(h, info[k])
	}
	return h.Sum(nil)
}
