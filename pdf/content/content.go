// Package content builds PDF content streams. The audit page and
// appearance drawing code compose operations through ContentBuilder
// and serialize them with Render.
package content

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/penginsign/sigpdf/pdf/generic"
)

// Operator is a content stream operator name.
type Operator string

const (
	OpSaveState    Operator = "q"
	OpRestoreState Operator = "Q"
	OpSetLineWidth Operator = "w"

	OpMoveTo    Operator = "m"
	OpLineTo    Operator = "l"
	OpCurveTo   Operator = "c"
	OpClosePath Operator = "h"
	OpRectangle Operator = "re"

	OpStroke        Operator = "S"
	OpFill          Operator = "f"
	OpFillAndStroke Operator = "B"

	OpBeginText    Operator = "BT"
	OpEndText      Operator = "ET"
	OpSetFont      Operator = "Tf"
	OpTextMove     Operator = "Td"
	OpShowText     Operator = "Tj"
	OpSetStrokeRGB Operator = "RG"
	OpSetFillRGB   Operator = "rg"
)

// Operation is one operator with its operands.
type Operation struct {
	Operator Operator
	Operands []interface{}
}

// ContentStream is an ordered list of operations.
type ContentStream struct {
	Operations []Operation
}

func NewContentStream() *ContentStream {
	return &ContentStream{}
}

func (cs *ContentStream) AddOperation(op Operator, operands ...interface{}) {
	cs.Operations = append(cs.Operations, Operation{Operator: op, Operands: operands})
}

// Render serializes the stream, one operation per line.
func (cs *ContentStream) Render() []byte {
	var buf bytes.Buffer
	for _, op := range cs.Operations {
		for _, operand := range op.Operands {
			writeOperand(&buf, operand)
			buf.WriteByte(' ')
		}
		buf.WriteString(string(op.Operator))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func writeOperand(buf *bytes.Buffer, v interface{}) {
	switch val := v.(type) {
	case float64:
		buf.WriteString(strconv.FormatFloat(val, 'f', -1, 64))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case generic.NameObject:
		buf.WriteByte('/')
		buf.WriteString(string(val))
	case string:
		buf.WriteString(val)
	default:
		fmt.Fprintf(buf, "%v", val)
	}
}

// ContentBuilder composes a content stream through chained calls.
type ContentBuilder struct {
	stream *ContentStream
}

func NewContentBuilder() *ContentBuilder {
	return &ContentBuilder{stream: NewContentStream()}
}

func (cb *ContentBuilder) SaveState() *ContentBuilder {
	cb.stream.AddOperation(OpSaveState)
	return cb
}

func (cb *ContentBuilder) RestoreState() *ContentBuilder {
	cb.stream.AddOperation(OpRestoreState)
	return cb
}

func (cb *ContentBuilder) SetLineWidth(width float64) *ContentBuilder {
	cb.stream.AddOperation(OpSetLineWidth, width)
	return cb
}

func (cb *ContentBuilder) MoveTo(x, y float64) *ContentBuilder {
	cb.stream.AddOperation(OpMoveTo, x, y)
	return cb
}

func (cb *ContentBuilder) LineTo(x, y float64) *ContentBuilder {
	cb.stream.AddOperation(OpLineTo, x, y)
	return cb
}

// CurveTo appends a cubic Bezier segment ending at (x3, y3).
func (cb *ContentBuilder) CurveTo(x1, y1, x2, y2, x3, y3 float64) *ContentBuilder {
	cb.stream.AddOperation(OpCurveTo, x1, y1, x2, y2, x3, y3)
	return cb
}

func (cb *ContentBuilder) ClosePath() *ContentBuilder {
	cb.stream.AddOperation(OpClosePath)
	return cb
}

func (cb *ContentBuilder) Rectangle(x, y, width, height float64) *ContentBuilder {
	cb.stream.AddOperation(OpRectangle, x, y, width, height)
	return cb
}

// Circle approximates a circle with four Bezier arcs.
func (cb *ContentBuilder) Circle(cx, cy, radius float64) *ContentBuilder {
	// Control point distance for a quarter-circle arc.
	k := radius * 0.5523
	cb.MoveTo(cx+radius, cy).
		CurveTo(cx+radius, cy+k, cx+k, cy+radius, cx, cy+radius).
		CurveTo(cx-k, cy+radius, cx-radius, cy+k, cx-radius, cy).
		CurveTo(cx-radius, cy-k, cx-k, cy-radius, cx, cy-radius).
		CurveTo(cx+k, cy-radius, cx+radius, cy-k, cx+radius, cy)
	return cb.ClosePath()
}

func (cb *ContentBuilder) Stroke() *ContentBuilder {
	cb.stream.AddOperation(OpStroke)
	return cb
}

func (cb *ContentBuilder) Fill() *ContentBuilder {
	cb.stream.AddOperation(OpFill)
	return cb
}

func (cb *ContentBuilder) FillAndStroke() *ContentBuilder {
	cb.stream.AddOperation(OpFillAndStroke)
	return cb
}

func (cb *ContentBuilder) SetStrokeColor(r, g, b float64) *ContentBuilder {
	cb.stream.AddOperation(OpSetStrokeRGB, r, g, b)
	return cb
}

func (cb *ContentBuilder) SetFillColor(r, g, b float64) *ContentBuilder {
	cb.stream.AddOperation(OpSetFillRGB, r, g, b)
	return cb
}

func (cb *ContentBuilder) BeginText() *ContentBuilder {
	cb.stream.AddOperation(OpBeginText)
	return cb
}

func (cb *ContentBuilder) EndText() *ContentBuilder {
	cb.stream.AddOperation(OpEndText)
	return cb
}

// SetFont selects a font resource by name at the given size.
func (cb *ContentBuilder) SetFont(font string, size float64) *ContentBuilder {
	cb.stream.AddOperation(OpSetFont, generic.NameObject(font), size)
	return cb
}

func (cb *ContentBuilder) TextPosition(x, y float64) *ContentBuilder {
	cb.stream.AddOperation(OpTextMove, x, y)
	return cb
}

// ShowText draws a string at the current text position, escaping the
// literal-string delimiters.
func (cb *ContentBuilder) ShowText(text string) *ContentBuilder {
	cb.stream.AddOperation(OpShowText, "("+escapeString(text)+")")
	return cb
}

// Build returns the assembled stream.
func (cb *ContentBuilder) Build() *ContentStream {
	return cb.stream
}

// Render serializes the assembled stream.
func (cb *ContentBuilder) Render() []byte {
	return cb.stream.Render()
}

func escapeString(s string) string {
	var buf bytes.Buffer
	for _, c := range s {
		if c == '(' || c == ')' || c == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteRune(c)
	}
	return buf.String()
}
