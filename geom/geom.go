// Package geom converts field placements between the web viewer's
// coordinate space and native PDF page space.
//
// The viewer renders every page at a fixed logical width with the origin
// at the top-left corner and Y growing downward. PDF pages use a
// bottom-left origin with Y growing upward and real page dimensions in
// points. Conversion scales uniformly by pageWidth/viewerWidth and flips
// the vertical axis.
package geom

import (
	"github.com/penginsign/sigpdf/pdf/layout"
)

// DefaultViewerWidth is the fixed logical width, in viewer pixels, at
// which the frontend renders every page.
const DefaultViewerWidth = 800.0

// ViewerRect is an axis-aligned box in viewer space: top-left origin,
// Y growing downward, units of viewer pixels.
type ViewerRect struct {
	X, Y float64 // top-left corner
	W, H float64
}

// Converter maps viewer-space rectangles onto PDF pages.
type Converter struct {
	// ViewerWidth is the logical viewer width. Zero means DefaultViewerWidth.
	ViewerWidth float64
}

func (c Converter) viewerWidth() float64 {
	if c.ViewerWidth <= 0 {
		return DefaultViewerWidth
	}
	return c.ViewerWidth
}

// ScaleFactor returns the uniform viewer-to-page scale for a page of the
// given width. A page exactly as wide as the viewer scales by 1.
func (c Converter) ScaleFactor(pageWidth float64) float64 {
	return pageWidth / c.viewerWidth()
}

// ToPage converts a viewer-space rectangle to page space. All four
// components scale by the same factor; the Y axis flips so the returned
// rectangle's origin is its bottom-left corner. No rounding is applied.
func (c Converter) ToPage(r ViewerRect, page layout.PageSize) layout.Rectangle {
	s := c.ScaleFactor(page.Width)

	scaledX := r.X * s
	scaledY := r.Y * s
	scaledW := r.W * s
	scaledH := r.H * s

	return layout.Rectangle{
		X:      scaledX,
		Y:      page.Height - (scaledY + scaledH),
		Width:  scaledW,
		Height: scaledH,
	}
}

// ToViewer is the exact inverse of ToPage.
func (c Converter) ToViewer(r layout.Rectangle, page layout.PageSize) ViewerRect {
	s := c.ScaleFactor(page.Width)

	return ViewerRect{
		X: r.X / s,
		Y: (page.Height - (r.Y + r.Height)) / s,
		W: r.Width / s,
		H: r.Height / s,
	}
}
