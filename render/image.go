package render

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/penginsign/sigpdf/pdf/generic"
	"github.com/penginsign/sigpdf/pdf/images"
	"github.com/penginsign/sigpdf/pdf/writer"
)

// ImageSignature renders a hand-drawn signature captured as an image
// data-URL. The image is scaled to fit the field box without ever being
// enlarged, and centered on both axes.
type ImageSignature struct {
	Width  float64
	Height float64

	pdfImage   *images.PDFImage
	alphaImage *images.PDFImage

	// Placement of the image inside the field box.
	imageWidth  float64
	imageHeight float64
	imageX      float64
	imageY      float64
}

// DecodeDataURL extracts the raw image bytes from a data-URL. The
// subtype is not trusted: decoding sniffs the real format, matching the
// frontend's habit of labelling everything PNG.
func DecodeDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, "data:image/") {
		return nil, fmt.Errorf("%w: not an image data-URL", ErrInvalidImage)
	}
	comma := strings.IndexByte(dataURL, ',')
	if comma < 0 {
		return nil, fmt.Errorf("%w: missing payload", ErrInvalidImage)
	}
	data, err := base64.StdEncoding.DecodeString(dataURL[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	return data, nil
}

// NewImageSignature decodes a data-URL and lays the image out inside a
// field box of the given page-space dimensions.
func NewImageSignature(dataURL string, width, height float64) (*ImageSignature, error) {
	data, err := DecodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}

	pdfImg, err := images.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	s := &ImageSignature{
		Width:    width,
		Height:   height,
		pdfImage: pdfImg,
	}
	if pdfImg.HasAlpha() {
		s.alphaImage = pdfImg.GetAlphaMask()
	}

	s.calculateLayout()
	return s, nil
}

// calculateLayout fits the image into the field box. Scale never exceeds
// 1: a small drawing stays at its captured size.
func (s *ImageSignature) calculateLayout() {
	imgW := float64(s.pdfImage.Width)
	imgH := float64(s.pdfImage.Height)
	if imgW <= 0 || imgH <= 0 {
		return
	}

	scale := s.Width / imgW
	if sy := s.Height / imgH; sy < scale {
		scale = sy
	}
	if scale > 1 {
		scale = 1
	}

	s.imageWidth = imgW * scale
	s.imageHeight = imgH * scale
	s.imageX = (s.Width - s.imageWidth) / 2
	s.imageY = (s.Height - s.imageHeight) / 2
}

// Scale returns the applied image scale factor.
func (s *ImageSignature) Scale() float64 {
	if s.pdfImage.Width == 0 {
		return 0
	}
	return s.imageWidth / float64(s.pdfImage.Width)
}

// Placement returns the image box inside the field box.
func (s *ImageSignature) Placement() (w, h, x, y float64) {
	return s.imageWidth, s.imageHeight, s.imageX, s.imageY
}

// Dimensions returns the field box dimensions.
func (s *ImageSignature) Dimensions() (width, height float64) {
	return s.Width, s.Height
}

// Render produces the appearance content stream.
func (s *ImageSignature) Render() []byte {
	var b strings.Builder
	b.WriteString("q\n")
	fmt.Fprintf(&b, "%f 0 0 %f %f %f cm\n", s.imageWidth, s.imageHeight, s.imageX, s.imageY)
	b.WriteString("/Im1 Do\n")
	b.WriteString("Q\n")
	return []byte(b.String())
}

// Build registers the image XObject (and soft mask, when the source had
// an alpha channel) and returns the appearance stream referencing them.
func (s *ImageSignature) Build(w *writer.IncrementalPdfFileWriter) (*generic.StreamObject, error) {
	imgDict := generic.NewDictionary()
	imgDict.Set("Type", generic.NameObject("XObject"))
	imgDict.Set("Subtype", generic.NameObject("Image"))
	imgDict.Set("Width", generic.IntegerObject(s.pdfImage.Width))
	imgDict.Set("Height", generic.IntegerObject(s.pdfImage.Height))
	imgDict.Set("ColorSpace", generic.NameObject(string(s.pdfImage.ColorSpace)))
	imgDict.Set("BitsPerComponent", generic.IntegerObject(s.pdfImage.BitsPerComponent))
	if s.pdfImage.Filter != "" {
		imgDict.Set("Filter", generic.NameObject(s.pdfImage.Filter))
	}

	if s.alphaImage != nil {
		maskDict := generic.NewDictionary()
		maskDict.Set("Type", generic.NameObject("XObject"))
		maskDict.Set("Subtype", generic.NameObject("Image"))
		maskDict.Set("Width", generic.IntegerObject(s.alphaImage.Width))
		maskDict.Set("Height", generic.IntegerObject(s.alphaImage.Height))
		maskDict.Set("ColorSpace", generic.NameObject("DeviceGray"))
		maskDict.Set("BitsPerComponent", generic.IntegerObject(8))
		if s.alphaImage.Filter != "" {
			maskDict.Set("Filter", generic.NameObject(s.alphaImage.Filter))
		}
		maskRef := w.AddObject(generic.NewStream(maskDict, s.alphaImage.Data))
		imgDict.Set("SMask", maskRef)
	}

	imgRef := w.AddObject(generic.NewStream(imgDict, s.pdfImage.Data))

	dict := newFormDict(s.Width, s.Height, 0)
	resources := generic.NewDictionary()
	xobjects := generic.NewDictionary()
	xobjects.Set("Im1", imgRef)
	resources.Set("XObject", xobjects)
	dict.Set("Resources", resources)

	return generic.NewStream(dict, s.Render()), nil
}
