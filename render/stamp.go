package render

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/penginsign/sigpdf/pdf/generic"
	"github.com/penginsign/sigpdf/pdf/writer"
)

// Stamp is a renderable field appearance. Build registers any subsidiary
// objects (images, font programs) on the writer and returns the finished
// Form XObject appearance stream.
type Stamp interface {
	Build(w *writer.IncrementalPdfFileWriter) (*generic.StreamObject, error)
	// Dimensions returns the appearance width and height in page units.
	Dimensions() (width, height float64)
}

// ApplyOptions configures how an appearance is applied to a page.
type ApplyOptions struct {
	// WrapExistingContent wraps the page's existing content in q/Q once,
	// isolating its graphics state from the appearance. Default true.
	WrapExistingContent bool
}

// DefaultApplyOptions returns the default apply options.
func DefaultApplyOptions() *ApplyOptions {
	return &ApplyOptions{
		WrapExistingContent: true,
	}
}

// Apply places a stamp at (x, y) on the 0-based pageNum through the
// incremental writer. The appearance is painted by a small wrapper
// stream appended to the page's content array.
func Apply(w *writer.IncrementalPdfFileWriter, stamp Stamp, pageNum int, x, y float64, opts *ApplyOptions) error {
	if opts == nil {
		opts = DefaultApplyOptions()
	}

	appearance, err := stamp.Build(w)
	if err != nil {
		return err
	}
	stampRef := w.AddObject(appearance)

	randBytes := make([]byte, 8)
	rand.Read(randBytes)
	resourceName := "/Fld" + hex.EncodeToString(randBytes)

	stampPaint := fmt.Sprintf("q 1 0 0 1 %f %f cm %s Do Q", x, y, resourceName)
	wrapperStream := generic.NewStream(nil, []byte(stampPaint))

	resources := generic.NewDictionary()
	xobjects := generic.NewDictionary()
	xobjects.Set(resourceName[1:], stampRef)
	resources.Set("XObject", xobjects)

	if opts.WrapExistingContent {
		qStream := generic.NewStream(nil, []byte("q"))
		qRef := w.AddObject(qStream)
		if _, err := w.AddStreamToPage(pageNum, qRef, nil, true); err != nil {
			return err
		}

		bigQStream := generic.NewStream(nil, []byte("Q"))
		bigQRef := w.AddObject(bigQStream)
		if _, err := w.AddStreamToPage(pageNum, bigQRef, nil, false); err != nil {
			return err
		}
	}

	wrapperRef := w.AddObject(wrapperStream)
	if _, err := w.AddStreamToPage(pageNum, wrapperRef, resources, false); err != nil {
		return err
	}

	return nil
}

// newFormDict builds the dictionary shared by all appearance streams.
// The BBox is padded so descenders and centering bias are never clipped.
func newFormDict(width, height, pad float64) *generic.DictionaryObject {
	dict := generic.NewDictionary()
	dict.Set("Type", generic.NameObject("XObject"))
	dict.Set("Subtype", generic.NameObject("Form"))
	dict.Set("FormType", generic.IntegerObject(1))
	dict.Set("BBox", generic.ArrayObject{
		generic.RealObject(-pad),
		generic.RealObject(-pad),
		generic.RealObject(width + pad),
		generic.RealObject(height + pad),
	})
	return dict
}

// escapeString escapes a string for use in a PDF literal string.
func escapeString(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', ')', '\\':
			out = append(out, '\\', s[i])
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
