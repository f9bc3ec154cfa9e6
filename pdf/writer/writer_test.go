package writer

import (
	"bytes"
	"testing"

	"github.com/penginsign/sigpdf/pdf/generic"
	"github.com/penginsign/sigpdf/pdf/metadata"
	"github.com/penginsign/sigpdf/pdf/reader"
)

func TestPdfFileWriter_RoundTrip(t *testing.T) {
	w := NewPdfFileWriter("1.7")

	letter := &generic.Rectangle{URX: 612, URY: 792}
	a4 := &generic.Rectangle{URX: 595, URY: 842}
	w.AddPage(letter, []byte("BT /F1 24 Tf 72 720 Td (Hello) Tj ET"))
	w.AddPage(a4, nil)

	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	r, err := reader.NewPdfFileReaderFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}

	if r.Version != "1.7" {
		t.Errorf("Version = %q, want %q", r.Version, "1.7")
	}
	if r.GetPageCount() != 2 {
		t.Fatalf("Page count = %d, want 2", r.GetPageCount())
	}

	width, height, err := r.GetPageSize(1)
	if err != nil {
		t.Fatalf("GetPageSize failed: %v", err)
	}
	if width != 595 || height != 842 {
		t.Errorf("Page 1 size = %vx%v, want 595x842", width, height)
	}

	if r.Info == nil {
		t.Fatal("Info dictionary missing")
	}
	producer, ok := r.Info.Get("Producer").(*generic.StringObject)
	if !ok || producer.Text() != metadata.Vendor {
		t.Errorf("Producer = %v, want %q", r.Info.Get("Producer"), metadata.Vendor)
	}

	if r.Trailer.GetArray("ID") == nil {
		t.Error("Trailer has no file ID")
	}
	if !bytes.Contains(buf.Bytes(), []byte("/FlateDecode")) {
		t.Error("Page content stream should be Flate-compressed")
	}
}

func TestPdfFileWriter_WriteIdempotent(t *testing.T) {
	w := NewPdfFileWriter("1.7")
	w.AddPage(&generic.Rectangle{URX: 612, URY: 792}, []byte("q Q"))

	var first, second bytes.Buffer
	if err := w.Write(&first); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if err := w.Write(&second); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("Writing twice should produce identical output")
	}

	r, err := reader.NewPdfFileReaderFromBytes(second.Bytes())
	if err != nil {
		t.Fatalf("Failed to read second output: %v", err)
	}
	if r.GetPageCount() != 1 {
		t.Errorf("Page count = %d, want 1", r.GetPageCount())
	}
}

func TestPdfFileWriter_DefaultVersion(t *testing.T) {
	w := NewPdfFileWriter("")
	if w.Version != "1.7" {
		t.Errorf("Version = %q, want %q", w.Version, "1.7")
	}

	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-1.7\n")) {
		t.Error("Output should start with a PDF 1.7 header")
	}
}
