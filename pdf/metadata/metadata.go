// Package metadata builds PDF document metadata: the classic info
// dictionary and the XMP packet embedded in a /Metadata stream.
package metadata

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// Vendor is written as the producer of signed documents.
const Vendor = "PenginSign sigpdf 1.0"

// XML namespaces used in XMP packets.
const (
	NSRDF = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSXMP = "http://ns.adobe.com/xap/1.0/"
	NSDC  = "http://purl.org/dc/elements/1.1/"
	NSPDF = "http://ns.adobe.com/pdf/1.3/"
	NSX   = "adobe:ns:meta/"
)

// ExpandedName is a namespace-qualified XML name.
type ExpandedName struct {
	NS        string
	LocalName string
}

// Properties emitted into the XMP packet.
var (
	DCTitle        = ExpandedName{NS: NSDC, LocalName: "title"}
	DCCreator      = ExpandedName{NS: NSDC, LocalName: "creator"}
	DCDescription  = ExpandedName{NS: NSDC, LocalName: "description"}
	PDFKeywords    = ExpandedName{NS: NSPDF, LocalName: "keywords"}
	PDFProducer    = ExpandedName{NS: NSPDF, LocalName: "Producer"}
	XMPCreatorTool = ExpandedName{NS: NSXMP, LocalName: "CreatorTool"}
	XMPCreateDate  = ExpandedName{NS: NSXMP, LocalName: "CreateDate"}
	XMPModifyDate  = ExpandedName{NS: NSXMP, LocalName: "ModifyDate"}
)

// DocumentMetadata describes a document for both the info dictionary
// and the XMP packet.
type DocumentMetadata struct {
	Title       string
	TitleLang   string
	Author      string
	Subject     string
	SubjectLang string
	Keywords    []string

	// Creator is the authoring application, Producer the software
	// that wrote the PDF.
	Creator  string
	Producer string

	Created      *time.Time
	LastModified *time.Time
}

// NewDocumentMetadata returns metadata stamped with this library as
// producer and the current time as modification date.
func NewDocumentMetadata() *DocumentMetadata {
	now := time.Now()
	return &DocumentMetadata{
		Producer:     Vendor,
		LastModified: &now,
	}
}

// XmpArrayType selects the RDF container element for an array.
type XmpArrayType int

const (
	XmpArrayOrdered XmpArrayType = iota
	XmpArrayAlternative
)

func (t XmpArrayType) String() string {
	if t == XmpArrayAlternative {
		return "Alt"
	}
	return "Seq"
}

// XmpValue is a single XMP property value: a string, an *XmpArray, or
// a nested *XmpStructure.
type XmpValue struct {
	Value    interface{}
	Language string
}

func NewXmpValue(value string) *XmpValue {
	return &XmpValue{Value: value}
}

func NewXmpValueWithLang(value, lang string) *XmpValue {
	return &XmpValue{Value: value, Language: lang}
}

// XmpArray is an ordered or alternative RDF container.
type XmpArray struct {
	ArrayType XmpArrayType
	Entries   []*XmpValue
}

func NewXmpOrderedArray(entries ...*XmpValue) *XmpArray {
	return &XmpArray{ArrayType: XmpArrayOrdered, Entries: entries}
}

func NewXmpAlternativeArray(entries ...*XmpValue) *XmpArray {
	return &XmpArray{ArrayType: XmpArrayAlternative, Entries: entries}
}

type xmpField struct {
	name  ExpandedName
	value *XmpValue
}

// XmpStructure is an rdf:Description block. Fields serialize in the
// order they were set, so packets are reproducible.
type XmpStructure struct {
	fields []xmpField
}

func NewXmpStructure() *XmpStructure {
	return &XmpStructure{}
}

// Set sets a field, replacing an earlier value in place.
func (s *XmpStructure) Set(name ExpandedName, value *XmpValue) {
	for i, f := range s.fields {
		if f.name == name {
			s.fields[i].value = value
			return
		}
	}
	s.fields = append(s.fields, xmpField{name: name, value: value})
}

// Get returns the value for name, or nil.
func (s *XmpStructure) Get(name ExpandedName) *XmpValue {
	for _, f := range s.fields {
		if f.name == name {
			return f.value
		}
	}
	return nil
}

// SerializeXMP renders structures as a complete XMP packet.
func SerializeXMP(roots []*XmpStructure) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("<?xpacket begin=\"\uFEFF\" id=\"W5M0MpCehiHzreSzNTczkc9d\"?>\n")
	fmt.Fprintf(&buf, "<x:xmpmeta xmlns:x=%q x:xmptk=%q>\n", NSX, Vendor)
	fmt.Fprintf(&buf, "<rdf:RDF xmlns:rdf=%q>\n", NSRDF)

	for _, root := range roots {
		if err := writeDescription(&buf, root); err != nil {
			return nil, err
		}
	}

	buf.WriteString("</rdf:RDF>\n")
	buf.WriteString("</x:xmpmeta>\n")
	buf.WriteString("<?xpacket end=\"r\"?>")

	return buf.Bytes(), nil
}

func writeDescription(buf *bytes.Buffer, s *XmpStructure) error {
	buf.WriteString(`<rdf:Description rdf:about=""`)

	seen := make(map[string]bool)
	for _, f := range s.fields {
		prefix := nsPrefix(f.name.NS)
		if prefix != "rdf" && !seen[prefix] {
			seen[prefix] = true
			fmt.Fprintf(buf, " xmlns:%s=%q", prefix, f.name.NS)
		}
	}
	buf.WriteString(">\n")

	for _, f := range s.fields {
		if err := writeValue(buf, nsPrefix(f.name.NS), f.name.LocalName, f.value); err != nil {
			return err
		}
	}

	buf.WriteString("</rdf:Description>\n")
	return nil
}

func writeValue(buf *bytes.Buffer, prefix, localName string, value *XmpValue) error {
	tag := prefix + ":" + localName

	switch v := value.Value.(type) {
	case string:
		buf.WriteString("<" + tag)
		writeLang(buf, value.Language)
		buf.WriteString(">")
		buf.WriteString(escapeXML(v))
		buf.WriteString("</" + tag + ">\n")

	case *XmpArray:
		fmt.Fprintf(buf, "<%s>\n<rdf:%s>\n", tag, v.ArrayType)
		for _, entry := range v.Entries {
			buf.WriteString("<rdf:li")
			writeLang(buf, entry.Language)
			buf.WriteString(">")
			if str, ok := entry.Value.(string); ok {
				buf.WriteString(escapeXML(str))
			}
			buf.WriteString("</rdf:li>\n")
		}
		fmt.Fprintf(buf, "</rdf:%s>\n</%s>\n", v.ArrayType, tag)

	case *XmpStructure:
		fmt.Fprintf(buf, "<%s rdf:parseType=\"Resource\">\n", tag)
		for _, f := range v.fields {
			if err := writeValue(buf, nsPrefix(f.name.NS), f.name.LocalName, f.value); err != nil {
				return err
			}
		}
		fmt.Fprintf(buf, "</%s>\n", tag)

	default:
		return fmt.Errorf("unsupported XMP value type %T", value.Value)
	}

	return nil
}

func writeLang(buf *bytes.Buffer, lang string) {
	if lang != "" {
		fmt.Fprintf(buf, " xml:lang=%q", escapeXML(lang))
	}
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func nsPrefix(ns string) string {
	switch ns {
	case NSRDF:
		return "rdf"
	case NSDC:
		return "dc"
	case NSPDF:
		return "pdf"
	case NSXMP:
		return "xmp"
	default:
		return "ns"
	}
}

// DocumentMetadataToXMP maps metadata onto the dc, pdf, and xmp
// property sets.
func DocumentMetadataToXMP(meta *DocumentMetadata) []*XmpStructure {
	root := NewXmpStructure()

	if meta.Title != "" {
		root.Set(DCTitle, &XmpValue{Value: NewXmpAlternativeArray(langEntry(meta.Title, meta.TitleLang))})
	}
	if meta.Author != "" {
		root.Set(DCCreator, &XmpValue{Value: NewXmpOrderedArray(NewXmpValue(meta.Author))})
	}
	if meta.Subject != "" {
		root.Set(DCDescription, &XmpValue{Value: NewXmpAlternativeArray(langEntry(meta.Subject, meta.SubjectLang))})
	}
	if len(meta.Keywords) > 0 {
		root.Set(PDFKeywords, NewXmpValue(strings.Join(meta.Keywords, ", ")))
	}
	if meta.Creator != "" {
		root.Set(XMPCreatorTool, NewXmpValue(meta.Creator))
	}
	if meta.Producer != "" {
		root.Set(PDFProducer, NewXmpValue(meta.Producer))
	}
	if meta.Created != nil {
		root.Set(XMPCreateDate, NewXmpValue(meta.Created.Format(time.RFC3339)))
	}
	if meta.LastModified != nil {
		root.Set(XMPModifyDate, NewXmpValue(meta.LastModified.Format(time.RFC3339)))
	}

	return []*XmpStructure{root}
}

// langEntry builds an alternative-array entry, defaulting the language
// qualifier to x-default as XMP requires for dc:title and friends.
func langEntry(value, lang string) *XmpValue {
	if lang == "" {
		lang = "x-default"
	}
	return NewXmpValueWithLang(value, lang)
}

// InfoDictEntry is one key of the document information dictionary.
type InfoDictEntry struct {
	Key   string
	Value string
}

// DocumentMetadataToInfoDict maps metadata onto info dictionary keys,
// omitting empty values.
func DocumentMetadataToInfoDict(meta *DocumentMetadata) []InfoDictEntry {
	var entries []InfoDictEntry
	add := func(key, value string) {
		if value != "" {
			entries = append(entries, InfoDictEntry{Key: key, Value: value})
		}
	}

	add("Title", meta.Title)
	add("Author", meta.Author)
	add("Subject", meta.Subject)
	add("Keywords", strings.Join(meta.Keywords, ", "))
	add("Creator", meta.Creator)
	add("Producer", meta.Producer)
	if meta.Created != nil {
		add("CreationDate", FormatPDFDate(*meta.Created))
	}
	if meta.LastModified != nil {
		add("ModDate", FormatPDFDate(*meta.LastModified))
	}

	return entries
}

// FormatPDFDate renders a time in the D:YYYYMMDDHHmmSSOHH'mm' form.
func FormatPDFDate(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}

	return fmt.Sprintf("D:%04d%02d%02d%02d%02d%02d%s%02d'%02d'",
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
		sign, offset/3600, (offset%3600)/60)
}

// ParsePDFDate parses a PDF date string back into a time.
func ParsePDFDate(s string) (*time.Time, error) {
	if !strings.HasPrefix(s, "D:") {
		return nil, fmt.Errorf("invalid PDF date: missing D: prefix")
	}
	s = strings.ReplaceAll(s[2:], "'", "")

	formats := []string{
		"20060102150405-0700",
		"20060102150405Z",
		"20060102150405",
		"200601021504",
		"2006010215",
		"20060102",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unable to parse PDF date: %s", s)
}
