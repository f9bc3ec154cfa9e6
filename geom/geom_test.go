package geom

import (
	"math"
	"testing"

	"github.com/penginsign/sigpdf/pdf/layout"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScaleFactor(t *testing.T) {
	tests := []struct {
		name        string
		viewerWidth float64
		pageWidth   float64
		want        float64
	}{
		{"identity at default width", 0, 800, 1.0},
		{"letter page", 0, 612, 612.0 / 800.0},
		{"a4 page", 0, 595.28, 595.28 / 800.0},
		{"custom viewer width", 1000, 612, 0.612},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Converter{ViewerWidth: tt.viewerWidth}
			got := c.ScaleFactor(tt.pageWidth)
			if !almostEqual(got, tt.want) {
				t.Errorf("ScaleFactor(%v) = %v, want %v", tt.pageWidth, got, tt.want)
			}
		})
	}
}

func TestToPage(t *testing.T) {
	c := Converter{}
	letter := layout.Letter

	// A field at viewer (100, 50) sized 200x80 on a letter page.
	r := c.ToPage(ViewerRect{X: 100, Y: 50, W: 200, H: 80}, letter)

	s := 612.0 / 800.0
	if !almostEqual(r.X, 100*s) {
		t.Errorf("X = %v, want %v", r.X, 100*s)
	}
	if !almostEqual(r.Width, 200*s) {
		t.Errorf("Width = %v, want %v", r.Width, 200*s)
	}
	if !almostEqual(r.Height, 80*s) {
		t.Errorf("Height = %v, want %v", r.Height, 80*s)
	}
	// The viewer origin is top-left, the page origin bottom-left.
	wantY := 792 - 50*s - 80*s
	if !almostEqual(r.Y, wantY) {
		t.Errorf("Y = %v, want %v", r.Y, wantY)
	}
}

func TestToPage_TopLeftMapsBelowPageTop(t *testing.T) {
	c := Converter{}
	page := layout.PageSize{Width: 800, Height: 600}

	r := c.ToPage(ViewerRect{X: 0, Y: 0, W: 100, H: 40}, page)
	if !almostEqual(r.Y, 560) {
		t.Errorf("Y = %v, want 560", r.Y)
	}
}

func TestRoundTrip(t *testing.T) {
	pages := []layout.PageSize{
		layout.Letter,
		{Width: 595.28, Height: 841.89},
		{Width: 800, Height: 800},
	}
	rects := []ViewerRect{
		{X: 0, Y: 0, W: 10, H: 10},
		{X: 100, Y: 50, W: 200, H: 80},
		{X: 750, Y: 790, W: 50, H: 10},
		{X: 33.3, Y: 66.6, W: 123.4, H: 56.7},
	}

	c := Converter{}
	for _, page := range pages {
		for _, in := range rects {
			out := c.ToViewer(c.ToPage(in, page), page)
			if !almostEqual(out.X, in.X) || !almostEqual(out.Y, in.Y) ||
				!almostEqual(out.W, in.W) || !almostEqual(out.H, in.H) {
				t.Errorf("round trip on %vx%v: got %+v, want %+v",
					page.Width, page.Height, out, in)
			}
		}
	}
}
