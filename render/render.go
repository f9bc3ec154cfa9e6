// Package render draws form-field values onto PDF pages.
//
// Every rendered value becomes a Form XObject appearance placed at the
// field's position through an incremental update, so the original page
// content is never rewritten. Signature fields accept either an image
// data-URL (hand-drawn) or plain text (typed, styled by font tag); all
// other field types render as text.
package render

import (
	"errors"
	"strings"

	"github.com/penginsign/sigpdf/geom"
)

// Common errors
var (
	ErrEmptyValue   = errors.New("field value is empty")
	ErrInvalidImage = errors.New("invalid signature image")
)

// FieldType classifies a form field placed on the document.
type FieldType string

const (
	FieldSignature FieldType = "SIGNATURE"
	FieldFullName  FieldType = "FULLNAME"
	FieldInitials  FieldType = "INITIALS"
	FieldTitle     FieldType = "TITLE"
	FieldDate      FieldType = "DATE"
	FieldEmail     FieldType = "EMAIL"
)

// ParseFieldType normalizes a field type string. Unrecognized types are
// kept as-is (uppercased) and render as plain text.
func ParseFieldType(s string) FieldType {
	return FieldType(strings.ToUpper(strings.TrimSpace(s)))
}

// Field is a form field as placed in the viewer.
type Field struct {
	ID   string
	Type FieldType
	// Page is 1-based.
	Page int
	Rect geom.ViewerRect
}

// Value carries what the recipient entered for one field. Raw is either
// plain text or an image data-URL; FontTag selects the typed-signature
// style.
type Value struct {
	FieldID string
	Raw     string
	FontTag string
}

// IsImage reports whether the raw value is an image data-URL.
func (v Value) IsImage() bool {
	return strings.HasPrefix(v.Raw, "data:image/")
}

// IsEmpty reports whether the value has no usable content.
func (v Value) IsEmpty() bool {
	return strings.TrimSpace(v.Raw) == ""
}

// signatureBlue is the ink color for signature marks.
var signatureBlue = [3]float64{0, 0, 0.8}

// black is the ink color for plain text fields.
var black = [3]float64{0, 0, 0}
