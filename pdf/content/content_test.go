package content

import (
	"strings"
	"testing"

	"github.com/penginsign/sigpdf/pdf/generic"
)

func TestContentStreamRender(t *testing.T) {
	cs := NewContentStream()
	cs.AddOperation(OpSaveState)
	cs.AddOperation(OpSetFillRGB, 1.0, 0.5, 0.0)
	cs.AddOperation(OpRectangle, 10.0, 20.0, 100.0, 50.0)
	cs.AddOperation(OpFill)
	cs.AddOperation(OpRestoreState)

	want := "q\n1 0.5 0 rg\n10 20 100 50 re\nf\nQ\n"
	if got := string(cs.Render()); got != want {
		t.Errorf("Render:\ngot  %q\nwant %q", got, want)
	}
}

func TestRenderOperandTypes(t *testing.T) {
	cs := NewContentStream()
	cs.AddOperation(OpSetFont, generic.NameObject("F1"), 12.0)
	cs.AddOperation(OpShowText, "(hello)")

	got := string(cs.Render())
	if !strings.Contains(got, "/F1 12 Tf") {
		t.Errorf("name operand wrong: %q", got)
	}
	if !strings.Contains(got, "(hello) Tj") {
		t.Errorf("string operand wrong: %q", got)
	}
}

func TestBuilderGraphicsState(t *testing.T) {
	out := string(NewContentBuilder().
		SaveState().
		SetLineWidth(2).
		SetStrokeColor(0, 0, 1).
		MoveTo(0, 0).
		LineTo(50, 50).
		Stroke().
		RestoreState().
		Render())

	want := "q\n2 w\n0 0 1 RG\n0 0 m\n50 50 l\nS\nQ\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestBuilderRectangleFillAndStroke(t *testing.T) {
	out := string(NewContentBuilder().
		SetFillColor(0.97, 0.97, 0.97).
		Rectangle(20, 30, 200, 100).
		FillAndStroke().
		Render())

	if !strings.Contains(out, "0.97 0.97 0.97 rg") {
		t.Errorf("fill color missing: %q", out)
	}
	if !strings.Contains(out, "20 30 200 100 re\nB\n") {
		t.Errorf("rectangle or paint op missing: %q", out)
	}
}

func TestBuilderText(t *testing.T) {
	out := string(NewContentBuilder().
		BeginText().
		SetFont("F2", 14).
		TextPosition(50, 700).
		ShowText("Document History").
		EndText().
		Render())

	want := "BT\n/F2 14 Tf\n50 700 Td\n(Document History) Tj\nET\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestBuilderTextEscaping(t *testing.T) {
	out := string(NewContentBuilder().ShowText(`sign (here) \now`).Render())
	if !strings.Contains(out, `(sign \(here\) \\now) Tj`) {
		t.Errorf("delimiters not escaped: %q", out)
	}
}

func TestBuilderCircle(t *testing.T) {
	cs := NewContentBuilder().Circle(100, 100, 10).Build()

	// One moveto, four curves, one closepath.
	var moves, curves, closes int
	for _, op := range cs.Operations {
		switch op.Operator {
		case OpMoveTo:
			moves++
		case OpCurveTo:
			curves++
		case OpClosePath:
			closes++
		}
	}
	if moves != 1 || curves != 4 || closes != 1 {
		t.Errorf("circle ops = %d m, %d c, %d h", moves, curves, closes)
	}

	// The path starts at the rightmost point.
	if got := cs.Operations[0].Operands[0].(float64); got != 110 {
		t.Errorf("start x = %v, want 110", got)
	}
}

func TestBuilderEmptyStream(t *testing.T) {
	if out := NewContentBuilder().Render(); len(out) != 0 {
		t.Errorf("empty builder rendered %q", out)
	}
}
