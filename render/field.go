package render

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/penginsign/sigpdf/pdf/fonts"
	"github.com/penginsign/sigpdf/sigfont"
)

// minSize is the smallest font size any field renders at.
const minSize = 8.0

func clampSize(size float64) float64 {
	if size < minSize {
		return minSize
	}
	return size
}

// NewFieldStamp turns a field value into its appearance for a field box
// of the given page-space dimensions. Signature fields with an image
// data-URL become an ImageSignature; everything else becomes text.
//
// An undecodable signature image degrades to a text marker rather than
// failing the field.
func NewFieldStamp(field Field, value Value, width, height float64, set *sigfont.Set) (Stamp, error) {
	if value.IsEmpty() {
		return nil, ErrEmptyValue
	}

	if field.Type == FieldSignature {
		if value.IsImage() {
			stamp, err := NewImageSignature(value.Raw, width, height)
			if err == nil {
				return stamp, nil
			}
			return drawnSignatureMarker(width, height, set), nil
		}
		return typedSignature(value, width, height, set), nil
	}

	return textField(field.Type, value.Raw, width, height, set), nil
}

// drawnSignatureMarker is the fallback when a signature image cannot be
// decoded: a visible placeholder so the signed output never silently
// loses the field.
func drawnSignatureMarker(width, height float64, set *sigfont.Set) *TextAppearance {
	return &TextAppearance{
		Width:   width,
		Height:  height,
		Text:    "[Drawn Signature]",
		Font:    set.HelveticaBold,
		Size:    clampSize(minFloat(12, height*0.4)),
		Color:   signatureBlue,
		OffsetX: 0,
		OffsetY: height * 0.3,
	}
}

// typedSignature styles a typed signature by its font tag. Each tier has
// a remote face with its own size curve; when the face degraded, the
// fallback compensates with a larger, more flowing standard font.
func typedSignature(value Value, width, height float64, set *sigfont.Set) *TextAppearance {
	text := norm.NFC.String(value.Raw)

	var font fonts.Font
	var size float64

	if strings.ToLower(strings.TrimSpace(value.FontTag)) == "drawn" {
		font = set.HelveticaBold
		size = minFloat(16, height*0.7)
	} else {
		switch sigfont.ParseTier(value.FontTag) {
		case sigfont.TierSignatura:
			if remote := set.Remote(sigfont.TierSignatura); remote != nil {
				font = remote
				size = minFloat(18, height*0.8)
			} else {
				font = set.TimesRoman
				size = minFloat(20, height*0.85)
			}
		case sigfont.TierSignaturia:
			if remote := set.Remote(sigfont.TierSignaturia); remote != nil {
				font = remote
				size = minFloat(22, height*0.9)
			} else {
				font = set.TimesRoman
				size = minFloat(24, height*0.95)
			}
		default:
			// "signature" and unrecognized tags share the upright style.
			if remote := set.Remote(sigfont.TierSignature); remote != nil {
				font = remote
			} else {
				font = set.Helvetica
			}
			size = minFloat(16, height*0.7)
		}
	}

	return &TextAppearance{
		Width:    width,
		Height:   height,
		Text:     text,
		Font:     font,
		Size:     clampSize(size),
		Color:    signatureBlue,
		Centered: true,
		Bias:     20,
	}
}

// textField renders the non-signature field types.
func textField(fieldType FieldType, raw string, width, height float64, set *sigfont.Set) *TextAppearance {
	text := norm.NFC.String(raw)
	size := clampSize(minFloat(12, height*0.6))

	var font fonts.Font
	switch fieldType {
	case FieldTitle, FieldInitials:
		font = set.HelveticaBold
	case FieldFullName:
		if remote := set.Remote(sigfont.TierSignature); remote != nil {
			font = remote
		} else {
			font = set.TimesRoman
		}
	default:
		if remote := set.Remote(sigfont.TierSignature); remote != nil {
			font = remote
		} else {
			font = set.Helvetica
		}
	}

	return &TextAppearance{
		Width:   width,
		Height:  height,
		Text:    text,
		Font:    font,
		Size:    size,
		Color:   black,
		OffsetX: 5,
		OffsetY: -1,
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
