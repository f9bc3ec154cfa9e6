package layout

import "testing"

func TestCommonPageSizes(t *testing.T) {
	if Letter.Width != 612 || Letter.Height != 792 {
		t.Errorf("Letter = %vx%v, want 612x792", Letter.Width, Letter.Height)
	}
	if Legal.Width != 612 || Legal.Height != 1008 {
		t.Errorf("Legal = %vx%v, want 612x1008", Legal.Width, Legal.Height)
	}
	if A4.Width != 595 || A4.Height != 842 {
		t.Errorf("A4 = %vx%v, want 595x842", A4.Width, A4.Height)
	}
}

func TestRectangleEdges(t *testing.T) {
	r := Rectangle{X: 10, Y: 20, Width: 100, Height: 50}
	if r.Right() != 110 {
		t.Errorf("Right() = %v, want 110", r.Right())
	}
	if r.Top() != 70 {
		t.Errorf("Top() = %v, want 70", r.Top())
	}
}

func TestRectangleIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		rect  Rectangle
		empty bool
	}{
		{"normal", Rectangle{0, 0, 100, 50}, false},
		{"zero width", Rectangle{10, 10, 0, 50}, true},
		{"zero height", Rectangle{10, 10, 100, 0}, true},
		{"negative width", Rectangle{10, 10, -5, 50}, true},
		{"zero value", Rectangle{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rect.IsEmpty(); got != tt.empty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.empty)
			}
		})
	}
}

func TestRectangleIntersects(t *testing.T) {
	base := Rectangle{X: 100, Y: 100, Width: 200, Height: 100}

	tests := []struct {
		name     string
		other    Rectangle
		overlaps bool
	}{
		{"overlapping", Rectangle{250, 150, 200, 100}, true},
		{"contained", Rectangle{150, 120, 50, 40}, true},
		{"disjoint", Rectangle{400, 400, 50, 50}, false},
		{"edge touching", Rectangle{300, 100, 50, 50}, false},
		{"above", Rectangle{100, 250, 200, 50}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Intersects(tt.other); got != tt.overlaps {
				t.Errorf("Intersects() = %v, want %v", got, tt.overlaps)
			}
			// Intersection is symmetric.
			if got := tt.other.Intersects(base); got != tt.overlaps {
				t.Errorf("reverse Intersects() = %v, want %v", got, tt.overlaps)
			}
		})
	}
}

func TestRectangleClampTo(t *testing.T) {
	page := Letter

	tests := []struct {
		name string
		in   Rectangle
		want Rectangle
	}{
		{
			name: "already on page",
			in:   Rectangle{100, 500, 200, 60},
			want: Rectangle{100, 500, 200, 60},
		},
		{
			name: "off left edge",
			in:   Rectangle{-40, 500, 200, 60},
			want: Rectangle{0, 500, 200, 60},
		},
		{
			name: "off right edge",
			in:   Rectangle{550, 500, 200, 60},
			want: Rectangle{412, 500, 200, 60},
		},
		{
			name: "off top edge",
			in:   Rectangle{100, 780, 200, 60},
			want: Rectangle{100, 732, 200, 60},
		},
		{
			name: "below page",
			in:   Rectangle{100, -30, 200, 60},
			want: Rectangle{100, 0, 200, 60},
		},
		{
			name: "wider than page",
			in:   Rectangle{100, 500, 900, 60},
			want: Rectangle{0, 500, 612, 60},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.ClampTo(page); got != tt.want {
				t.Errorf("ClampTo() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
