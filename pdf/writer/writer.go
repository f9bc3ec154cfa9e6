// Package writer builds PDF files. PdfFileWriter writes complete documents
// from scratch; IncrementalPdfFileWriter appends update sections to
// documents opened through the reader package, which is how signed output
// is assembled without touching the original bytes.
package writer

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/penginsign/sigpdf/pdf/filters"
	"github.com/penginsign/sigpdf/pdf/generic"
	"github.com/penginsign/sigpdf/pdf/metadata"
)

// PdfFileWriter assembles a complete PDF document in memory. The catalog,
// page tree root and info dictionary are created up front; pages and other
// objects are added afterwards and serialized by Write.
type PdfFileWriter struct {
	Version string
	Objects map[int]*generic.IndirectObject
	Root    *generic.DictionaryObject
	Info    *generic.DictionaryObject
	Pages   *generic.DictionaryObject
	FileID  []byte

	nextObjNum int
	pagesRef   generic.Reference
	rootRef    generic.Reference
	infoRef    generic.Reference
	pageCount  int
}

// NewPdfFileWriter creates a writer for a new document.
func NewPdfFileWriter(version string) *PdfFileWriter {
	if version == "" {
		version = "1.7"
	}

	w := &PdfFileWriter{
		Version:    version,
		Objects:    make(map[int]*generic.IndirectObject),
		nextObjNum: 1,
	}

	w.Pages = generic.NewDictionary()
	w.Pages.Set("Type", generic.NameObject("Pages"))
	w.Pages.Set("Kids", generic.ArrayObject{})
	w.Pages.Set("Count", generic.IntegerObject(0))
	w.pagesRef = w.AddObject(w.Pages)

	w.Root = generic.NewDictionary()
	w.Root.Set("Type", generic.NameObject("Catalog"))
	w.Root.Set("Pages", w.pagesRef)
	w.rootRef = w.AddObject(w.Root)

	w.Info = generic.NewDictionary()
	w.Info.Set("Producer", generic.NewTextString(metadata.Vendor))
	w.Info.Set("CreationDate", generic.NewTextString(metadata.FormatPDFDate(time.Now())))
	w.infoRef = w.AddObject(w.Info)

	return w
}

// AddObject registers an object and returns its indirect reference.
func (w *PdfFileWriter) AddObject(obj generic.PdfObject) generic.Reference {
	objNum := w.nextObjNum
	w.nextObjNum++

	w.Objects[objNum] = generic.NewIndirectObject(objNum, 0, obj)
	return generic.Reference{ObjectNumber: objNum, GenerationNumber: 0}
}

// AddPage appends a page with the given MediaBox. A non-nil contents
// buffer becomes the page's content stream, Flate-compressed.
func (w *PdfFileWriter) AddPage(mediaBox *generic.Rectangle, contents []byte) generic.Reference {
	page := generic.NewDictionary()
	page.Set("Type", generic.NameObject("Page"))
	page.Set("Parent", w.pagesRef)
	page.Set("MediaBox", mediaBox.ToArray())

	if contents != nil {
		stream := generic.NewStream(nil, contents)
		stream.Dictionary.Set("Filter", generic.NameObject("FlateDecode"))
		if encoded, err := filters.EncodeStream(contents, []string{"FlateDecode"}, nil); err == nil {
			stream.EncodedData = encoded
		}
		page.Set("Contents", w.AddObject(stream))
	}

	pageRef := w.AddObject(page)
	w.pageCount++

	kids := w.Pages.GetArray("Kids")
	w.Pages.Set("Kids", append(kids, pageRef))
	w.Pages.Set("Count", generic.IntegerObject(w.pageCount))

	return pageRef
}

// Write serializes the document: header, body objects in numeric order,
// xref table and trailer.
func (w *PdfFileWriter) Write(out io.Writer) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%%PDF-%s\n", w.Version)
	// Binary marker comment so transfer tools treat the file as binary.
	buf.Write([]byte{0x25, 0xE2, 0xE3, 0xCF, 0xD3, 0x0A})

	offsets := make([]int64, w.nextObjNum)
	for objNum := 1; objNum < w.nextObjNum; objNum++ {
		obj := w.Objects[objNum]
		if obj == nil {
			continue
		}
		offsets[objNum] = int64(buf.Len())
		if err := obj.Write(&buf); err != nil {
			return err
		}
		buf.WriteByte('\n')
	}

	if w.FileID == nil {
		w.FileID = generic.ComputeFileID(map[string]string{
			"producer": metadata.Vendor,
			"nonce":    uuid.NewString(),
			"version":  w.Version,
		})
	}

	xrefOffset := int64(buf.Len())
	fmt.Fprintf(&buf, "xref\n0 %d\n", w.nextObjNum)
	fmt.Fprintf(&buf, "0000000000 65535 f \n")
	for objNum := 1; objNum < w.nextObjNum; objNum++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[objNum])
	}

	trailer := generic.NewDictionary()
	trailer.Set("Size", generic.IntegerObject(w.nextObjNum))
	trailer.Set("Root", w.rootRef)
	trailer.Set("Info", w.infoRef)
	trailer.Set("ID", generic.ArrayObject{
		generic.NewHexString(w.FileID),
		generic.NewHexString(w.FileID),
	})

	buf.WriteString("trailer\n")
	if err := trailer.Write(&buf); err != nil {
		return err
	}
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err := out.Write(buf.Bytes())
	return err
}
