package reader

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/penginsign/sigpdf/pdf/generic"
)

// createTwoPagePDF builds a two-page PDF where the second page inherits
// its MediaBox from the page tree root.
func createTwoPagePDF() []byte {
	var buf bytes.Buffer

	buf.WriteString("%PDF-1.7\n")
	buf.Write([]byte{0x25, 0xE2, 0xE3, 0xCF, 0xD3, 0x0A})

	offsets := make([]int, 0, 4)
	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	addObj("2 0 obj\n<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 /MediaBox [0 0 595 842] >>\nendobj\n")
	addObj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n")
	addObj("4 0 obj\n<< /Type /Page /Parent 2 0 R >>\nendobj\n")

	xrefOffset := buf.Len()
	buf.WriteString("xref\n0 5\n")
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	buf.WriteString("trailer\n<< /Size 5 /Root 1 0 R >>\nstartxref\n")
	fmt.Fprintf(&buf, "%d", xrefOffset)
	buf.WriteString("\n%%EOF\n")

	return buf.Bytes()
}

// createXRefStreamPDF builds a PDF 1.5 file with a cross-reference stream
// and an info dictionary compressed into an object stream.
func createXRefStreamPDF() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")

	offsets := make(map[int]int)
	addObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	addObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	addObj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	addObj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")

	// Object 5 lives inside object stream 4, uncompressed.
	objStmBody := "5 0 << /Title (Compressed) >>"
	first := len("5 0 ")
	offsets[4] = buf.Len()
	fmt.Fprintf(&buf, "4 0 obj\n<< /Type /ObjStm /N 1 /First %d /Length %d >>\nstream\n%s\nendstream\nendobj\n",
		first, len(objStmBody), objStmBody)

	// Cross-reference stream, W [1 2 1], entries for objects 0 through 6.
	xrefOffset := buf.Len()
	var entries bytes.Buffer
	writeEntry := func(typ, second, third int) {
		entries.Write([]byte{byte(typ), byte(second >> 8), byte(second), byte(third)})
	}
	writeEntry(0, 0, 0)
	for num := 1; num <= 4; num++ {
		writeEntry(1, offsets[num], 0)
	}
	writeEntry(2, 4, 0) // object 5: index 0 in object stream 4
	writeEntry(1, xrefOffset, 0)

	fmt.Fprintf(&buf, "6 0 obj\n<< /Type /XRef /Size 7 /W [1 2 1] /Root 1 0 R /Info 5 0 R /Length %d >>\nstream\n",
		entries.Len())
	buf.Write(entries.Bytes())
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	return buf.Bytes()
}

func TestReader_PageEnumeration(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(createTwoPagePDF())
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}

	if got := r.GetPageCount(); got != 2 {
		t.Fatalf("GetPageCount() = %d, want 2", got)
	}

	for i := 0; i < 2; i++ {
		page, err := r.GetPage(i)
		if err != nil {
			t.Fatalf("GetPage(%d) failed: %v", i, err)
		}
		if name := page.GetName("Type"); name != "Page" {
			t.Errorf("Page %d Type = %q", i, name)
		}
	}

	if _, err := r.GetPage(2); err == nil {
		t.Error("Expected error for out-of-bounds page index")
	}
	if _, err := r.GetPage(-1); err == nil {
		t.Error("Expected error for negative page index")
	}
}

func TestReader_GetPageRef(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(createTwoPagePDF())
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}

	ref0, err := r.GetPageRef(0)
	if err != nil {
		t.Fatalf("GetPageRef(0) failed: %v", err)
	}
	if ref0.ObjectNumber != 3 {
		t.Errorf("Page 0 object number = %d, want 3", ref0.ObjectNumber)
	}

	ref1, err := r.GetPageRef(1)
	if err != nil {
		t.Fatalf("GetPageRef(1) failed: %v", err)
	}
	if ref1.ObjectNumber != 4 {
		t.Errorf("Page 1 object number = %d, want 4", ref1.ObjectNumber)
	}

	if _, err := r.GetPageRef(5); err == nil {
		t.Error("Expected error for out-of-bounds page index")
	}
}

func TestReader_GetPageSize(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(createTwoPagePDF())
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}

	w, h, err := r.GetPageSize(0)
	if err != nil {
		t.Fatalf("GetPageSize(0) failed: %v", err)
	}
	if w != 612 || h != 792 {
		t.Errorf("Page 0 size = %vx%v, want 612x792", w, h)
	}

	// Page 1 has no MediaBox of its own and inherits from the tree root.
	w, h, err = r.GetPageSize(1)
	if err != nil {
		t.Fatalf("GetPageSize(1) failed: %v", err)
	}
	if w != 595 || h != 842 {
		t.Errorf("Page 1 size = %vx%v, want 595x842", w, h)
	}
}

func TestReader_ObjectCache(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(createTwoPagePDF())
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}

	first, err := r.GetObject(3)
	if err != nil {
		t.Fatalf("GetObject(3) failed: %v", err)
	}
	second, err := r.GetObject(3)
	if err != nil {
		t.Fatalf("GetObject(3) failed on second call: %v", err)
	}
	if first != second {
		t.Error("GetObject should return the cached object")
	}

	if _, err := r.GetObject(99); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("GetObject(99) err = %v, want ErrObjectNotFound", err)
	}
	if _, err := r.GetObject(0); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("GetObject(0) err = %v, want ErrObjectNotFound for a free object", err)
	}
}

func TestReader_XRefStream(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(createXRefStreamPDF())
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}

	if !r.HasXRefStream {
		t.Error("HasXRefStream = false for a stream-based file")
	}
	if r.Version != "1.5" {
		t.Errorf("Version = %q, want 1.5", r.Version)
	}

	if got := r.GetPageCount(); got != 1 {
		t.Fatalf("GetPageCount() = %d, want 1", got)
	}
	w, h, err := r.GetPageSize(0)
	if err != nil {
		t.Fatalf("GetPageSize failed: %v", err)
	}
	if w != 612 || h != 792 {
		t.Errorf("Page size = %vx%v, want 612x792", w, h)
	}
}

func TestReader_ObjectInObjectStream(t *testing.T) {
	r, err := NewPdfFileReaderFromBytes(createXRefStreamPDF())
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}

	// The info dictionary is object 5, stored inside object stream 4.
	if r.Info == nil {
		t.Fatal("Info dictionary was not loaded")
	}
	title, ok := r.Info.Get("Title").(*generic.StringObject)
	if !ok {
		t.Fatalf("Info Title = %T, want string", r.Info.Get("Title"))
	}
	if title.Text() != "Compressed" {
		t.Errorf("Info Title = %q, want Compressed", title.Text())
	}

	obj, err := r.GetObject(5)
	if err != nil {
		t.Fatalf("GetObject(5) failed: %v", err)
	}
	if _, ok := obj.(*generic.DictionaryObject); !ok {
		t.Errorf("object 5 = %T, want dictionary", obj)
	}
}

func TestReader_PageTreeCycle(t *testing.T) {
	// An intermediate node pointing back at the page tree root must not
	// send the walk into an endless loop; the one real page survives.
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	buf.Write([]byte{0x25, 0xE2, 0xE3, 0xCF, 0xD3, 0x0A})

	offsets := make([]int, 0, 4)
	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	addObj("2 0 obj\n<< /Type /Pages /Kids [3 0 R 4 0 R 2 0 R] /Count 1 >>\nendobj\n")
	addObj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n")
	addObj("4 0 obj\n<< /Type /Pages /Kids [2 0 R] /Count 0 >>\nendobj\n")

	xrefOffset := buf.Len()
	buf.WriteString("xref\n0 5\n")
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	buf.WriteString("trailer\n<< /Size 5 /Root 1 0 R >>\nstartxref\n")
	fmt.Fprintf(&buf, "%d", xrefOffset)
	buf.WriteString("\n%%EOF\n")

	r, err := NewPdfFileReaderFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	if r.GetPageCount() != 1 {
		t.Errorf("Page count = %d, want 1", r.GetPageCount())
	}
}

func TestReader_InvalidInput(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		_, err := NewPdfFileReaderFromBytes([]byte("not a pdf at all"))
		if !errors.Is(err, ErrInvalidPDF) {
			t.Errorf("err = %v, want ErrInvalidPDF", err)
		}
	})

	t.Run("missing xref", func(t *testing.T) {
		_, err := NewPdfFileReaderFromBytes([]byte("%PDF-1.7\nsome content\n%%EOF\n"))
		if !errors.Is(err, ErrNoXRef) {
			t.Errorf("err = %v, want ErrNoXRef", err)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if _, err := NewPdfFileReaderFromBytes(nil); err == nil {
			t.Error("expected error for empty input")
		}
	})
}
