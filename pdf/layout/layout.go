// Package layout provides page-space geometry for placing signature
// fields. All values are in PDF points with a bottom-left origin.
package layout

// PageSize holds a page's media dimensions in points.
type PageSize struct {
	Width  float64
	Height float64
}

// Common page sizes.
var (
	Letter = PageSize{612, 792}
	Legal  = PageSize{612, 1008}
	A4     = PageSize{595, 842}
)

// Rectangle is an axis-aligned box. X and Y locate the bottom-left
// corner.
type Rectangle struct {
	X, Y          float64
	Width, Height float64
}

// Right returns the right edge X coordinate.
func (r Rectangle) Right() float64 {
	return r.X + r.Width
}

// Top returns the top edge Y coordinate.
func (r Rectangle) Top() float64 {
	return r.Y + r.Height
}

// IsEmpty reports whether the rectangle has no printable area.
func (r Rectangle) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersects reports whether the rectangles overlap with positive area.
func (r Rectangle) Intersects(other Rectangle) bool {
	return r.X < other.Right() && r.Right() > other.X &&
		r.Y < other.Top() && r.Top() > other.Y
}

// ClampTo constrains the rectangle to the page bounds. Oversized edges
// are trimmed to the page dimensions first, then the origin is shifted
// so the whole box lies on the page.
func (r Rectangle) ClampTo(page PageSize) Rectangle {
	out := r
	if out.Width > page.Width {
		out.Width = page.Width
	}
	if out.Height > page.Height {
		out.Height = page.Height
	}
	if out.X < 0 {
		out.X = 0
	} else if out.Right() > page.Width {
		out.X = page.Width - out.Width
	}
	if out.Y < 0 {
		out.Y = 0
	} else if out.Top() > page.Height {
		out.Y = page.Height - out.Height
	}
	return out
}
