// Package reader parses existing PDF files: the xref chain, the document
// catalog and page tree, and individual objects on demand. It is the input
// side of incremental updates; the writer package appends to the byte
// ranges this package maps out.
package reader

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/penginsign/sigpdf/pdf/filters"
	"github.com/penginsign/sigpdf/pdf/generic"
)

var (
	ErrInvalidPDF     = errors.New("invalid PDF file")
	ErrNoXRef         = errors.New("no xref found")
	ErrInvalidXRef    = errors.New("invalid xref")
	ErrObjectNotFound = errors.New("object not found")
)

// PdfFileReader holds a parsed PDF document. Objects are loaded lazily
// through GetObject and cached; the page tree is resolved eagerly so page
// lookups by index are cheap.
type PdfFileReader struct {
	data    []byte
	Version string
	Trailer *generic.TrailerDictionary
	XRef    map[int]*XRefEntry
	Objects map[int]generic.PdfObject

	Root *generic.DictionaryObject
	Info *generic.DictionaryObject

	// Pages lists every leaf page dictionary in document order. PageRefs
	// holds the matching indirect references, and PagesRoot the page tree
	// root's reference.
	Pages     []*generic.DictionaryObject
	PageRefs  []generic.Reference
	PagesRoot generic.Reference

	// XRefOffsets records the byte offset of each xref section, newest
	// first. HasXRefStream is set when the newest section is a stream,
	// which decides the style of xref appended on incremental update.
	XRefOffsets   []int64
	HasXRefStream bool

	Encrypted       bool
	SecurityHandler interface{}
}

// NewPdfFileReaderFromBytes parses a PDF document held in memory.
func NewPdfFileReaderFromBytes(data []byte) (*PdfFileReader, error) {
	r := &PdfFileReader{
		data:    data,
		Objects: make(map[int]generic.PdfObject),
	}

	var err error
	if r.Version, err = parseHeader(data); err != nil {
		return nil, err
	}

	scan, err := scanXRef(data)
	if err != nil {
		return nil, err
	}
	r.XRef = scan.entries
	r.Trailer = scan.trailer
	r.XRefOffsets = scan.offsets
	r.HasXRefStream = scan.hasStream

	if r.Trailer.Has("Encrypt") {
		r.Encrypted = true
	}

	if err := r.loadCatalog(); err != nil {
		return nil, err
	}
	return r, nil
}

// parseHeader extracts the version from the %PDF-M.N header comment.
func parseHeader(data []byte) (string, error) {
	limit := min(len(data), 1024)
	i := bytes.Index(data[:limit], []byte("%PDF-"))
	if i == -1 {
		return "", fmt.Errorf("%w: missing header", ErrInvalidPDF)
	}

	start := i + len("%PDF-")
	end := start
	for end < len(data) && (data[end] == '.' || (data[end] >= '0' && data[end] <= '9')) {
		end++
	}
	if end == start {
		return "", fmt.Errorf("%w: malformed header", ErrInvalidPDF)
	}
	return string(data[start:end]), nil
}

// loadCatalog resolves the document catalog, the info dictionary and the
// page tree.
func (r *PdfFileReader) loadCatalog() error {
	rootRef := r.Trailer.GetRoot()
	if rootRef == nil {
		return fmt.Errorf("%w: trailer has no Root", ErrInvalidPDF)
	}

	root, err := r.getDict(rootRef.ObjectNumber)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	r.Root = root

	if infoRef := r.Trailer.GetInfo(); infoRef != nil {
		if info, err := r.getDict(infoRef.ObjectNumber); err == nil {
			r.Info = info
		}
	}

	pagesRef, ok := r.Root.Get("Pages").(generic.Reference)
	if !ok {
		return fmt.Errorf("%w: catalog has no Pages reference", ErrInvalidPDF)
	}
	pagesDict, err := r.getDict(pagesRef.ObjectNumber)
	if err != nil {
		return fmt.Errorf("page tree: %w", err)
	}
	r.PagesRoot = pagesRef
	r.collectPages(pagesDict, pagesRef, map[int]bool{pagesRef.ObjectNumber: true})

	return nil
}

// collectPages walks the page tree depth-first, appending each leaf page
// together with its indirect reference. Visited nodes are tracked so a
// malformed tree with a Kids cycle cannot recurse forever.
func (r *PdfFileReader) collectPages(node *generic.DictionaryObject, nodeRef generic.Reference, visited map[int]bool) {
	if node.GetName("Type") == "Page" {
		r.Pages = append(r.Pages, node)
		r.PageRefs = append(r.PageRefs, nodeRef)
		return
	}

	for _, kid := range node.GetArray("Kids") {
		ref, ok := kid.(generic.Reference)
		if !ok || visited[ref.ObjectNumber] {
			continue
		}
		visited[ref.ObjectNumber] = true
		kidDict, err := r.getDict(ref.ObjectNumber)
		if err != nil {
			continue
		}
		r.collectPages(kidDict, ref, visited)
	}
}

// GetObject retrieves the object with the given number, consulting the
// cache first. Streams come back with their decoded data populated.
func (r *PdfFileReader) GetObject(objNum int) (generic.PdfObject, error) {
	if obj, ok := r.Objects[objNum]; ok {
		return obj, nil
	}

	entry, ok := r.XRef[objNum]
	if !ok {
		return nil, fmt.Errorf("%w: object %d", ErrObjectNotFound, objNum)
	}
	if !entry.InUse {
		return nil, fmt.Errorf("%w: object %d is free", ErrObjectNotFound, objNum)
	}

	var obj generic.PdfObject
	var err error
	if entry.ObjectStreamRef > 0 {
		obj, err = r.objectFromStream(entry.ObjectStreamRef, entry.IndexInStream)
	} else {
		obj, err = r.objectAt(entry.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", objNum, err)
	}

	r.Objects[objNum] = obj
	return obj, nil
}

func (r *PdfFileReader) getDict(objNum int) (*generic.DictionaryObject, error) {
	obj, err := r.GetObject(objNum)
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(*generic.DictionaryObject)
	if !ok {
		return nil, fmt.Errorf("object %d is not a dictionary", objNum)
	}
	return dict, nil
}

func (r *PdfFileReader) objectAt(offset int64) (generic.PdfObject, error) {
	if offset < 0 || offset >= int64(len(r.data)) {
		return nil, fmt.Errorf("%w: offset %d out of bounds", ErrObjectNotFound, offset)
	}

	parser := generic.NewParserFromBytes(r.data[offset:])
	indirect, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, err
	}

	if stream, ok := indirect.Object.(*generic.StreamObject); ok {
		if decoded, err := decodeStream(stream); err == nil {
			stream.Decoded = decoded
		}
	}
	return indirect.Object, nil
}

// objectFromStream pulls a compressed object out of an object stream. The
// stream body starts with N pairs of "objNum offset" integers; offsets are
// relative to the First byte.
func (r *PdfFileReader) objectFromStream(streamObjNum, index int) (generic.PdfObject, error) {
	container, err := r.GetObject(streamObjNum)
	if err != nil {
		return nil, err
	}
	stream, ok := container.(*generic.StreamObject)
	if !ok {
		return nil, fmt.Errorf("object stream %d is not a stream", streamObjNum)
	}

	body := stream.GetDecodedData()
	if len(body) == 0 {
		if body, err = decodeStream(stream); err != nil {
			return nil, err
		}
	}

	n, _ := stream.Dictionary.GetInt("N")
	first, _ := stream.Dictionary.GetInt("First")
	if first <= 0 || first > int64(len(body)) {
		return nil, fmt.Errorf("object stream %d: bad First offset", streamObjNum)
	}

	pos := 0
	var offset int64
	found := false
	for i := int64(0); i < n; i++ {
		_, next, err := readInt64(body[:first], pos)
		if err != nil {
			break
		}
		off, next, err := readInt64(body[:first], next)
		if err != nil {
			break
		}
		pos = next
		if int(i) == index {
			offset = off
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("object stream %d: no entry at index %d", streamObjNum, index)
	}

	at := first + offset
	if at < 0 || at >= int64(len(body)) {
		return nil, fmt.Errorf("object stream %d: entry %d out of bounds", streamObjNum, index)
	}
	parser := generic.NewParserFromBytes(body[at:])
	return parser.ParseObjectOrReference()
}

// decodeStream runs a stream's data through its declared filter chain.
func decodeStream(stream *generic.StreamObject) ([]byte, error) {
	var names []string
	switch f := stream.Dictionary.Get("Filter").(type) {
	case generic.NameObject:
		names = []string{string(f)}
	case generic.ArrayObject:
		for _, item := range f {
			if name, ok := item.(generic.NameObject); ok {
				names = append(names, string(name))
			}
		}
	}
	if len(names) == 0 {
		return stream.Data, nil
	}

	var parms []map[string]interface{}
	switch dp := stream.Dictionary.Get("DecodeParms").(type) {
	case *generic.DictionaryObject:
		parms = append(parms, plainDict(dp))
	case generic.ArrayObject:
		for _, item := range dp {
			if dict, ok := item.(*generic.DictionaryObject); ok {
				parms = append(parms, plainDict(dict))
			} else {
				parms = append(parms, nil)
			}
		}
	}

	return filters.DecodeStream(stream.Data, names, parms)
}

// plainDict flattens a PDF dictionary of scalars into a Go map, the form
// the filters package takes its parameters in.
func plainDict(dict *generic.DictionaryObject) map[string]interface{} {
	result := make(map[string]interface{}, dict.Len())
	for _, key := range dict.Keys() {
		switch v := dict.Get(key).(type) {
		case generic.IntegerObject:
			result[key] = int(v)
		case generic.RealObject:
			result[key] = float64(v)
		case generic.BooleanObject:
			result[key] = bool(v)
		case generic.NameObject:
			result[key] = string(v)
		case *generic.StringObject:
			result[key] = v.Text()
		}
	}
	return result
}

// GetPageCount returns the number of pages.
func (r *PdfFileReader) GetPageCount() int {
	return len(r.Pages)
}

// GetPage returns a page dictionary by zero-based index.
func (r *PdfFileReader) GetPage(index int) (*generic.DictionaryObject, error) {
	if index < 0 || index >= len(r.Pages) {
		return nil, fmt.Errorf("page index %d out of bounds", index)
	}
	return r.Pages[index], nil
}

// GetPageRef returns the indirect reference of a page by zero-based index.
func (r *PdfFileReader) GetPageRef(index int) (generic.Reference, error) {
	if index < 0 || index >= len(r.PageRefs) {
		return generic.Reference{}, fmt.Errorf("page index %d out of bounds", index)
	}
	return r.PageRefs[index], nil
}

// GetPageSize returns the MediaBox dimensions of a page, walking up the
// page tree for an inherited MediaBox when the page has none of its own.
func (r *PdfFileReader) GetPageSize(index int) (width, height float64, err error) {
	page, err := r.GetPage(index)
	if err != nil {
		return 0, 0, err
	}

	mediaBox := r.inheritedArray(page, "MediaBox")
	if mediaBox == nil {
		return 0, 0, fmt.Errorf("%w: page %d has no MediaBox", ErrInvalidPDF, index)
	}

	rect, err := generic.NewRectangle(mediaBox)
	if err != nil {
		return 0, 0, err
	}
	return rect.Width(), rect.Height(), nil
}

// inheritedArray looks up an inheritable page attribute, following Parent
// links toward the page tree root.
func (r *PdfFileReader) inheritedArray(node *generic.DictionaryObject, key string) generic.ArrayObject {
	for node != nil {
		if arr := node.GetArray(key); arr != nil {
			return arr
		}
		parentRef, ok := node.Get("Parent").(generic.Reference)
		if !ok {
			return nil
		}
		parent, err := r.getDict(parentRef.ObjectNumber)
		if err != nil {
			return nil
		}
		node = parent
	}
	return nil
}

// Data returns the raw bytes of the document.
func (r *PdfFileReader) Data() []byte {
	return r.data
}

// Decrypt prepares an encrypted document for reading. Only documents that
// open with an empty user password are supported.
func (r *PdfFileReader) Decrypt(password string) error {
	if !r.Encrypted || password == "" {
		return nil
	}
	return errors.New("password-protected documents are not supported")
}
