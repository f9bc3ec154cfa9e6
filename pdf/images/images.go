// Package images decodes raster signature images into a form suitable
// for embedding as PDF image XObjects. Drawn signatures arrive as PNG
// bytes from a browser canvas; uploaded ones are usually JPEG.
package images

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

var (
	ErrDecodeFailed      = errors.New("image decode failed")
	ErrInvalidDimensions = errors.New("invalid image dimensions")
)

// ColorSpace names a PDF device color space.
type ColorSpace string

const (
	ColorSpaceGray ColorSpace = "DeviceGray"
	ColorSpaceRGB  ColorSpace = "DeviceRGB"
	ColorSpaceCMYK ColorSpace = "DeviceCMYK"
)

// PDFImage holds decoded image data ready to be written as an XObject
// stream. Data is already in its final encoded form: zlib-compressed
// samples under FlateDecode, or the untouched JPEG file under DCTDecode.
type PDFImage struct {
	Width            int
	Height           int
	BitsPerComponent int
	ColorSpace       ColorSpace
	Components       int
	Data             []byte
	Filter           string
	// Soft mask samples for images with transparency, compressed the
	// same way as Data.
	AlphaData   []byte
	AlphaFilter string
}

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Decode sniffs the image format and produces a PDFImage. JPEG input is
// kept as-is and tagged DCTDecode so viewers decompress it natively;
// everything else is decoded pixel by pixel and recompressed with zlib.
func Decode(data []byte) (*PDFImage, error) {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		return fromImage(img)
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return decodeJPEG(data)
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		return fromImage(img)
	}
}

// decodeJPEG reads only the header. The compressed scan data goes into
// the XObject untouched.
func decodeJPEG(data []byte) (*PDFImage, error) {
	config, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	colorSpace, components := ColorSpaceRGB, 3
	switch config.ColorModel {
	case color.GrayModel:
		colorSpace, components = ColorSpaceGray, 1
	case color.CMYKModel:
		colorSpace, components = ColorSpaceCMYK, 4
	}

	return &PDFImage{
		Width:            config.Width,
		Height:           config.Height,
		BitsPerComponent: 8,
		ColorSpace:       colorSpace,
		Components:       components,
		Data:             data,
		Filter:           "DCTDecode",
	}, nil
}

// fromImage flattens a decoded image into 8-bit samples. Alpha, when
// present, is split off into a separate grayscale plane for the SMask.
func fromImage(img image.Image) (*PDFImage, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}

	colorSpace, components := ColorSpaceRGB, 3
	hasAlpha := false
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		colorSpace, components = ColorSpaceGray, 1
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model:
		hasAlpha = true
	}

	pixels := make([]byte, 0, width*height*components)
	var alpha []byte
	if hasAlpha {
		alpha = make([]byte, 0, width*height)
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if colorSpace == ColorSpaceGray {
				r, g, b, _ := img.At(x, y).RGBA()
				pixels = append(pixels, byte(((r+g+b)/3)>>8))
				continue
			}
			if hasAlpha {
				// The SMask carries the alpha, so the color plane must be
				// straight (non-premultiplied) or translucent pixels come
				// out darker when the viewer multiplies again.
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				pixels = append(pixels, c.R, c.G, c.B)
				alpha = append(alpha, c.A)
				continue
			}
			r, g, b, _ := img.At(x, y).RGBA()
			pixels = append(pixels, byte(r>>8), byte(g>>8), byte(b>>8))
		}
	}

	compressed, err := compressZlib(pixels)
	if err != nil {
		return nil, err
	}

	out := &PDFImage{
		Width:            width,
		Height:           height,
		BitsPerComponent: 8,
		ColorSpace:       colorSpace,
		Components:       components,
		Data:             compressed,
		Filter:           "FlateDecode",
	}

	if hasAlpha {
		compressedAlpha, err := compressZlib(alpha)
		if err != nil {
			return nil, err
		}
		out.AlphaData = compressedAlpha
		out.AlphaFilter = "FlateDecode"
	}

	return out, nil
}

func compressZlib(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HasAlpha reports whether the image carries a transparency plane.
func (img *PDFImage) HasAlpha() bool {
	return len(img.AlphaData) > 0
}

// GetAlphaMask returns the transparency plane as a standalone grayscale
// image, shaped for use as an SMask entry. Nil when the image is opaque.
func (img *PDFImage) GetAlphaMask() *PDFImage {
	if !img.HasAlpha() {
		return nil
	}
	return &PDFImage{
		Width:            img.Width,
		Height:           img.Height,
		BitsPerComponent: 8,
		ColorSpace:       ColorSpaceGray,
		Components:       1,
		Data:             img.AlphaData,
		Filter:           img.AlphaFilter,
	}
}
