package writer

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/penginsign/sigpdf/pdf/generic"
	"github.com/penginsign/sigpdf/pdf/metadata"
	"github.com/penginsign/sigpdf/pdf/reader"
)

// IncrementalPdfFileWriter appends an update section to an existing
// document. The original bytes are copied through untouched and every
// modification lands after them, followed by a cross-reference section
// whose Prev entry links back to the original one. Viewers that only
// read the last xref still see the full document.
type IncrementalPdfFileWriter struct {
	// Reader is the parsed original document.
	Reader *reader.PdfFileReader

	// Objects holds the new and replaced objects for the update section.
	Objects map[ObjectKey]*generic.IndirectObject

	nextObjNum   int
	originalData []byte
	trailer      *generic.TrailerDictionary
	rootRef      generic.Reference
	infoRef      *generic.Reference
	documentID   generic.ArrayObject

	// streamXRefs selects cross-reference streams over classic tables.
	// Defaults to whatever the original document uses.
	streamXRefs bool

	// forceWriteWhenEmpty emits an update section even without changes.
	forceWriteWhenEmpty bool
}

// ObjectKey identifies an object by number and generation.
type ObjectKey struct {
	ObjectNumber int
	Generation   int
}

// NewIncrementalPdfFileWriter prepares an update section on top of the
// document held by r.
func NewIncrementalPdfFileWriter(r *reader.PdfFileReader) *IncrementalPdfFileWriter {
	maxObjNum := 0
	for objNum := range r.XRef {
		if objNum > maxObjNum {
			maxObjNum = objNum
		}
	}

	var rootRef generic.Reference
	var infoRef *generic.Reference
	if r.Trailer != nil {
		if root := r.Trailer.GetRoot(); root != nil {
			rootRef = *root
		}
		infoRef = r.Trailer.GetInfo()
	}

	return &IncrementalPdfFileWriter{
		Reader:       r,
		Objects:      make(map[ObjectKey]*generic.IndirectObject),
		nextObjNum:   maxObjNum + 1,
		originalData: r.Data(),
		trailer:      r.Trailer,
		rootRef:      rootRef,
		infoRef:      infoRef,
		documentID:   refreshDocumentID(r),
		streamXRefs:  r.HasXRefStream,
	}
}

// refreshDocumentID keeps the first half of the file identifier, which
// must stay stable across revisions, and regenerates the second half to
// mark this revision as distinct.
func refreshDocumentID(r *reader.PdfFileReader) generic.ArrayObject {
	var id1 []byte
	if r.Trailer != nil {
		if idArray := r.Trailer.GetArray("ID"); len(idArray) >= 1 {
			if str, ok := idArray[0].(*generic.StringObject); ok {
				id1 = str.Value
			}
		}
	}
	if id1 == nil {
		id1 = make([]byte, 16)
		rand.Read(id1)
	}

	id2 := make([]byte, 16)
	rand.Read(id2)

	return generic.ArrayObject{
		generic.NewHexString(id1),
		generic.NewHexString(id2),
	}
}

// readerGeneration returns the generation the original document assigns
// to objNum, or zero for objects it does not know.
func (w *IncrementalPdfFileWriter) readerGeneration(objNum int) int {
	if entry := w.Reader.XRef[objNum]; entry != nil {
		return entry.Generation
	}
	return 0
}

// GetObject returns an object by number, preferring the pending update
// over the original document.
func (w *IncrementalPdfFileWriter) GetObject(objNum int) (generic.PdfObject, error) {
	key := ObjectKey{ObjectNumber: objNum, Generation: w.readerGeneration(objNum)}
	if indObj, ok := w.Objects[key]; ok {
		return indObj.Object, nil
	}
	return w.Reader.GetObject(objNum)
}

// GetRoot returns the document catalog, including pending changes.
func (w *IncrementalPdfFileWriter) GetRoot() (*generic.DictionaryObject, error) {
	if w.rootRef.ObjectNumber == 0 {
		return nil, errors.New("no root reference")
	}
	obj, err := w.GetObject(w.rootRef.ObjectNumber)
	if err != nil {
		return nil, err
	}
	if dict, ok := obj.(*generic.DictionaryObject); ok {
		return dict, nil
	}
	return nil, errors.New("root is not a dictionary")
}

// AddObject allocates a fresh object number for obj and returns its
// reference.
func (w *IncrementalPdfFileWriter) AddObject(obj generic.PdfObject) generic.Reference {
	objNum := w.nextObjNum
	w.nextObjNum++

	key := ObjectKey{ObjectNumber: objNum, Generation: 0}
	w.Objects[key] = generic.NewIndirectObject(objNum, 0, obj)

	return generic.Reference{ObjectNumber: objNum, GenerationNumber: 0}
}

// UpdateObject replaces an existing object in the update section. The
// generation number is carried over from the original document.
func (w *IncrementalPdfFileWriter) UpdateObject(objNum int, obj generic.PdfObject) {
	gen := w.readerGeneration(objNum)
	key := ObjectKey{ObjectNumber: objNum, Generation: gen}
	w.Objects[key] = generic.NewIndirectObject(objNum, gen, obj)
}

// SetInfo replaces the document info dictionary. A nil info removes the
// trailer entry instead.
func (w *IncrementalPdfFileWriter) SetInfo(info *generic.DictionaryObject) generic.Reference {
	var ref generic.Reference

	if info == nil {
		if w.infoRef != nil {
			w.trailer.Delete("Info")
			w.infoRef = nil
		}
		return ref
	}

	if w.infoRef != nil {
		w.UpdateObject(w.infoRef.ObjectNumber, info)
		ref = *w.infoRef
	} else {
		ref = w.AddObject(info)
		w.infoRef = &ref
	}

	w.trailer.Set("Info", ref)
	return ref
}

// UpdateMetadata refreshes the document /Info dictionary and the XMP
// metadata stream referenced from the catalog. Both representations are
// derived from the same DocumentMetadata so they stay consistent.
func (w *IncrementalPdfFileWriter) UpdateMetadata(meta *metadata.DocumentMetadata) error {
	if meta == nil {
		return errors.New("nil document metadata")
	}

	info := generic.NewDictionary()
	for _, entry := range metadata.DocumentMetadataToInfoDict(meta) {
		info.Set(entry.Key, generic.NewLiteralString(entry.Value))
	}
	w.SetInfo(info)

	xmp, err := metadata.SerializeXMP(metadata.DocumentMetadataToXMP(meta))
	if err != nil {
		return fmt.Errorf("failed to serialize XMP metadata: %w", err)
	}

	// Metadata streams are left uncompressed so text-based tools can
	// still locate the XMP packet.
	xmpDict := generic.NewDictionary()
	xmpDict.Set("Type", generic.NameObject("Metadata"))
	xmpDict.Set("Subtype", generic.NameObject("XML"))
	xmpRef := w.AddObject(generic.NewStream(xmpDict, xmp))

	root, err := w.GetRoot()
	if err != nil {
		return fmt.Errorf("failed to load document catalog: %w", err)
	}
	rootCopy := root.Clone().(*generic.DictionaryObject)
	rootCopy.Set("Metadata", xmpRef)
	w.UpdateObject(w.rootRef.ObjectNumber, rootCopy)

	return nil
}

// pageRef returns the reference of a page in the original document.
func (w *IncrementalPdfFileWriter) pageRef(pageNum int) (generic.Reference, error) {
	ref, err := w.Reader.GetPageRef(pageNum)
	if err != nil {
		return generic.Reference{}, fmt.Errorf("failed to locate page %d: %w", pageNum, err)
	}
	return ref, nil
}

// AddStreamToPage attaches an already-registered content stream to a
// page, either before or after the existing content. Resources, when
// given, are merged category by category into the page's resource
// dictionary. Returns the page's reference.
func (w *IncrementalPdfFileWriter) AddStreamToPage(pageNum int, streamRef generic.Reference, resources *generic.DictionaryObject, prepend bool) (generic.Reference, error) {
	ref, err := w.pageRef(pageNum)
	if err != nil {
		return generic.Reference{}, err
	}

	// Load through the writer so pending updates to the page are seen,
	// otherwise a second stream added to the same page would discard
	// the first one.
	pageObj, err := w.GetObject(ref.ObjectNumber)
	if err != nil {
		return generic.Reference{}, fmt.Errorf("failed to get page %d: %w", pageNum, err)
	}
	page, ok := pageObj.(*generic.DictionaryObject)
	if !ok {
		return generic.Reference{}, fmt.Errorf("page %d is not a dictionary", pageNum)
	}

	pageCopy := page.Clone().(*generic.DictionaryObject)

	var contentArray generic.ArrayObject
	switch c := pageCopy.Get("Contents").(type) {
	case *generic.ArrayObject:
		contentArray = *c
	case generic.ArrayObject:
		contentArray = c
	case nil:
		contentArray = generic.ArrayObject{}
	default:
		// A single stream reference becomes a one-element array.
		contentArray = generic.ArrayObject{c}
	}

	if prepend {
		contentArray = append(generic.ArrayObject{streamRef}, contentArray...)
	} else {
		contentArray = append(contentArray, streamRef)
	}
	pageCopy.Set("Contents", contentArray)

	if resources != nil {
		pageResources := pageCopy.GetDict("Resources")
		if pageResources == nil {
			pageResources = generic.NewDictionary()
		} else {
			pageResources = pageResources.Clone().(*generic.DictionaryObject)
		}

		for _, key := range resources.Keys() {
			resVal := resources.Get(key)
			resDict, ok := resVal.(*generic.DictionaryObject)
			if !ok {
				pageResources.Set(key, resVal)
				continue
			}
			existing := pageResources.GetDict(key)
			if existing == nil {
				existing = generic.NewDictionary()
			} else {
				existing = existing.Clone().(*generic.DictionaryObject)
			}
			for _, k := range resDict.Keys() {
				existing.Set(k, resDict.Get(k))
			}
			pageResources.Set(key, existing)
		}
		pageCopy.Set("Resources", pageResources)
	}

	w.UpdateObject(ref.ObjectNumber, pageCopy)
	return ref, nil
}

// AddBlankPage appends a new page to the end of the document's page tree.
// The page carries the given media box, content stream, and resources.
// Returns the new page's reference.
func (w *IncrementalPdfFileWriter) AddBlankPage(mediaBox *generic.Rectangle, content []byte, resources *generic.DictionaryObject) (generic.Reference, error) {
	pagesRef := w.Reader.PagesRoot
	if pagesRef.ObjectNumber == 0 {
		return generic.Reference{}, fmt.Errorf("document has no page tree root")
	}

	pagesObj, err := w.GetObject(pagesRef.ObjectNumber)
	if err != nil {
		return generic.Reference{}, fmt.Errorf("failed to load page tree root: %w", err)
	}
	pagesDict, ok := pagesObj.(*generic.DictionaryObject)
	if !ok {
		return generic.Reference{}, fmt.Errorf("page tree root is not a dictionary")
	}

	contentRef := w.AddObject(generic.NewStream(nil, content))

	page := generic.NewDictionary()
	page.Set("Type", generic.NameObject("Page"))
	page.Set("Parent", pagesRef)
	page.Set("MediaBox", mediaBox.ToArray())
	if resources != nil {
		page.Set("Resources", resources)
	} else {
		page.Set("Resources", generic.NewDictionary())
	}
	page.Set("Contents", contentRef)
	pageRef := w.AddObject(page)

	pagesCopy := pagesDict.Clone().(*generic.DictionaryObject)

	kids := pagesCopy.GetArray("Kids")
	kids = append(kids, pageRef)
	pagesCopy.Set("Kids", kids)

	count, _ := pagesCopy.GetInt("Count")
	pagesCopy.Set("Count", generic.IntegerObject(count+1))

	w.UpdateObject(pagesRef.ObjectNumber, pagesCopy)

	return pageRef, nil
}

// populateTrailer fills in the trailer for the update section: the
// original trailer's entries carried over, then Size, Prev, ID, Root
// and Info for this revision.
func (w *IncrementalPdfFileWriter) populateTrailer(trailer *generic.DictionaryObject) {
	if w.trailer != nil && w.trailer.DictionaryObject != nil {
		for _, key := range w.trailer.Keys() {
			// When the original trailer is an xref stream dictionary it
			// carries stream-structure keys that describe that stream,
			// not this section.
			switch key {
			case "Type", "W", "Index", "Length", "Filter", "DecodeParms", "XRefStm":
				continue
			}
			if val := w.trailer.Get(key); val != nil {
				trailer.Set(key, val)
			}
		}
	}

	trailer.Set("Size", generic.IntegerObject(w.nextObjNum))
	if len(w.Reader.XRefOffsets) > 0 {
		trailer.Set("Prev", generic.IntegerObject(w.Reader.XRefOffsets[0]))
	}
	trailer.Set("ID", w.documentID)
	trailer.Set("Root", w.rootRef)
	if w.infoRef != nil {
		trailer.Set("Info", *w.infoRef)
	}
}

// Write writes the original document followed by the update section.
// Without pending changes the original bytes pass through unchanged,
// unless SetForceWrite was used.
func (w *IncrementalPdfFileWriter) Write(out io.Writer) error {
	if len(w.Objects) == 0 && !w.forceWriteWhenEmpty {
		_, err := out.Write(w.originalData)
		return err
	}

	var buf bytes.Buffer
	buf.Write(w.originalData)

	keys := make([]ObjectKey, 0, len(w.Objects))
	for k := range w.Objects {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ObjectNumber != keys[j].ObjectNumber {
			return keys[i].ObjectNumber < keys[j].ObjectNumber
		}
		return keys[i].Generation < keys[j].Generation
	})

	offsets := make(map[ObjectKey]int64, len(keys))
	for _, key := range keys {
		offsets[key] = int64(buf.Len())
		if err := w.Objects[key].Write(&buf); err != nil {
			return err
		}
		buf.WriteByte('\n')
	}

	xrefOffset := int64(buf.Len())

	var err error
	if w.streamXRefs {
		err = w.writeXRefStream(&buf, keys, offsets, xrefOffset)
	} else {
		err = w.writeXRefTable(&buf, keys, offsets, xrefOffset)
	}
	if err != nil {
		return err
	}

	_, err = out.Write(buf.Bytes())
	return err
}

// writeXRefTable writes a classic cross-reference table for the update
// section, grouping consecutive object numbers into subsections.
func (w *IncrementalPdfFileWriter) writeXRefTable(buf *bytes.Buffer, keys []ObjectKey, offsets map[ObjectKey]int64, xrefOffset int64) error {
	buf.WriteString("xref\n")

	for _, run := range consecutiveRuns(keys) {
		fmt.Fprintf(buf, "%d %d\n", run[0].ObjectNumber, len(run))
		for _, key := range run {
			fmt.Fprintf(buf, "%010d %05d n \n", offsets[key], key.Generation)
		}
	}

	trailer := generic.NewDictionary()
	w.populateTrailer(trailer)

	buf.WriteString("trailer\n")
	if err := trailer.Write(buf); err != nil {
		return err
	}
	fmt.Fprintf(buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	return nil
}

// xrefStreamWidths is the W array used for cross-reference streams:
// a one-byte entry type, a four-byte offset and a two-byte generation.
var xrefStreamWidths = [3]int{1, 4, 2}

// writeXRefStream writes the update section's cross reference as a
// stream object. The trailer entries move into the stream dictionary
// and the stream itself gets the last entry, so the section stays
// self-describing.
func (w *IncrementalPdfFileWriter) writeXRefStream(buf *bytes.Buffer, keys []ObjectKey, offsets map[ObjectKey]int64, xrefOffset int64) error {
	xrefObjNum := w.nextObjNum
	w.nextObjNum++

	all := make([]ObjectKey, 0, len(keys)+1)
	all = append(all, keys...)
	all = append(all, ObjectKey{ObjectNumber: xrefObjNum})

	var index generic.ArrayObject
	var data bytes.Buffer
	entry := make([]byte, xrefStreamWidths[0]+xrefStreamWidths[1]+xrefStreamWidths[2])
	for _, run := range consecutiveRuns(all) {
		index = append(index,
			generic.IntegerObject(run[0].ObjectNumber),
			generic.IntegerObject(len(run)))
		for _, key := range run {
			offset := offsets[key]
			if key.ObjectNumber == xrefObjNum {
				offset = xrefOffset
			}
			entry[0] = 1
			binary.BigEndian.PutUint32(entry[1:5], uint32(offset))
			binary.BigEndian.PutUint16(entry[5:7], uint16(key.Generation))
			data.Write(entry)
		}
	}

	dict := generic.NewDictionary()
	w.populateTrailer(dict)
	dict.Set("Type", generic.NameObject("XRef"))
	dict.Set("W", generic.ArrayObject{
		generic.IntegerObject(xrefStreamWidths[0]),
		generic.IntegerObject(xrefStreamWidths[1]),
		generic.IntegerObject(xrefStreamWidths[2]),
	})
	dict.Set("Index", index)

	stream := generic.NewStream(dict, data.Bytes())
	if err := generic.NewIndirectObject(xrefObjNum, 0, stream).Write(buf); err != nil {
		return err
	}
	fmt.Fprintf(buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	return nil
}

// consecutiveRuns splits sorted keys into runs of consecutive object
// numbers.
func consecutiveRuns(keys []ObjectKey) [][]ObjectKey {
	var runs [][]ObjectKey
	for i := 0; i < len(keys); {
		j := i + 1
		for j < len(keys) && keys[j].ObjectNumber == keys[j-1].ObjectNumber+1 {
			j++
		}
		runs = append(runs, keys[i:j])
		i = j
	}
	return runs
}

// DocumentID returns both halves of the file identifier.
func (w *IncrementalPdfFileWriter) DocumentID() ([]byte, []byte) {
	if len(w.documentID) < 2 {
		return nil, nil
	}

	var id1, id2 []byte
	if str, ok := w.documentID[0].(*generic.StringObject); ok {
		id1 = str.Value
	}
	if str, ok := w.documentID[1].(*generic.StringObject); ok {
		id2 = str.Value
	}
	return id1, id2
}

// RootRef returns the document catalog reference.
func (w *IncrementalPdfFileWriter) RootRef() generic.Reference {
	return w.rootRef
}

// NextObjectNumber returns the next object number to be allocated.
func (w *IncrementalPdfFileWriter) NextObjectNumber() int {
	return w.nextObjNum
}

// HasChanges reports whether the update section has any objects.
func (w *IncrementalPdfFileWriter) HasChanges() bool {
	return len(w.Objects) > 0
}

// SetForceWrite makes Write emit an update section even when no
// objects changed.
func (w *IncrementalPdfFileWriter) SetForceWrite(force bool) {
	w.forceWriteWhenEmpty = force
}

// StreamXRefs reports whether cross-reference streams are used.
func (w *IncrementalPdfFileWriter) StreamXRefs() bool {
	return w.streamXRefs
}

// SetStreamXRefs switches between cross-reference streams and tables.
func (w *IncrementalPdfFileWriter) SetStreamXRefs(use bool) {
	w.streamXRefs = use
}
