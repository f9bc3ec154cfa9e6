// Package signer drives the signing pipeline: it places field values
// onto an existing PDF as incremental updates, refreshes document
// metadata, and appends the audit trail page.
package signer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/penginsign/sigpdf/audit"
	"github.com/penginsign/sigpdf/geom"
	"github.com/penginsign/sigpdf/observability"
	"github.com/penginsign/sigpdf/pdf/layout"
	"github.com/penginsign/sigpdf/pdf/metadata"
	"github.com/penginsign/sigpdf/pdf/reader"
	"github.com/penginsign/sigpdf/pdf/writer"
	"github.com/penginsign/sigpdf/render"
	"github.com/penginsign/sigpdf/sigfont"
)

// Common errors.
var (
	ErrNoDocument = errors.New("document has no PDF content")
	ErrNoFields   = errors.New("document has no fields")
)

// Recipient identifies who signs the document.
type Recipient struct {
	Name  string
	Email string
}

// Document is a signing request: the original PDF plus the fields
// placed on it in the viewer.
type Document struct {
	ID        string
	Name      string
	FileName  string
	CreatedAt time.Time
	Recipient Recipient
	Fields    []render.Field
	PDF       []byte
}

// Options configures the signing pipeline.
type Options struct {
	// Fonts is a preloaded signature font set. When nil, Loader is
	// consulted; when that is also nil, standard fonts are used.
	Fonts *sigfont.Set

	// Loader fetches signature fonts when Fonts is nil.
	Loader *sigfont.Loader

	// ViewerWidth is the width the field coordinates were captured
	// against. Zero means the default viewer width.
	ViewerWidth float64

	// Audit composes the appended audit trail page. When nil a default
	// composer with a synthetic timeline is used.
	Audit *audit.Composer

	// SkipAudit leaves the audit trail page off entirely.
	SkipAudit bool

	// Logger receives per-field progress. Defaults to a no-op logger.
	Logger observability.Logger
}

func (o Options) logger() observability.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return observability.NopLogger{}
}

func (o Options) fontSet(ctx context.Context) *sigfont.Set {
	if o.Fonts != nil {
		return o.Fonts
	}
	if o.Loader != nil {
		return o.Loader.Load(ctx)
	}
	return sigfont.NewDegradedSet()
}

// CreateSignedPDF embeds the given field values into the document's PDF
// and returns the signed bytes, audit trail page included. Fields whose
// values are missing, empty, or fail to render are skipped so one bad
// field never blocks the rest of the document.
//
// Field boxes that extend past the page edge are clamped back onto the
// page before rendering, and a box left with no printable area is
// skipped with a warning. Stale viewer coordinates thus move a field to
// the nearest page edge instead of drawing it off the visible page.
func CreateSignedPDF(ctx context.Context, doc Document, values []render.Value, opts Options) ([]byte, error) {
	log := opts.logger()

	if len(doc.PDF) == 0 {
		return nil, ErrNoDocument
	}
	if len(doc.Fields) == 0 {
		return nil, ErrNoFields
	}

	r, err := reader.NewPdfFileReaderFromBytes(doc.PDF)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	pageCount := len(r.Pages)

	set := opts.fontSet(ctx)
	w := writer.NewIncrementalPdfFileWriter(r)
	conv := geom.Converter{ViewerWidth: opts.ViewerWidth}

	byField := make(map[string]render.Value, len(values))
	for _, v := range values {
		byField[v.FieldID] = v
	}

	// The first stamp on each page wraps the existing content in q/Q so
	// its graphics state cannot leak into the appearances.
	wrapped := make(map[int]bool)
	placedRects := make(map[int][]layout.Rectangle)
	placed := 0

	for _, field := range doc.Fields {
		value, ok := byField[field.ID]
		if !ok || value.IsEmpty() {
			log.Debug("skipping field without value",
				observability.String("field_id", field.ID),
				observability.String("field_type", string(field.Type)))
			continue
		}

		if field.Page < 1 || field.Page > pageCount {
			log.Warn("field references missing page",
				observability.String("field_id", field.ID),
				observability.Int("page", field.Page),
				observability.Int("page_count", pageCount))
			continue
		}
		pageIndex := field.Page - 1

		pageWidth, pageHeight, err := r.GetPageSize(pageIndex)
		if err != nil {
			log.Warn("failed to read page size",
				observability.String("field_id", field.ID),
				observability.Int("page", field.Page),
				observability.Error("err", err))
			continue
		}

		page := layout.PageSize{Width: pageWidth, Height: pageHeight}
		rect := conv.ToPage(field.Rect, page).ClampTo(page)
		if rect.IsEmpty() {
			log.Warn("field has no printable area",
				observability.String("field_id", field.ID),
				observability.Int("page", field.Page))
			continue
		}
		for _, prev := range placedRects[pageIndex] {
			if rect.Intersects(prev) {
				log.Debug("field overlaps an earlier placement",
					observability.String("field_id", field.ID),
					observability.Int("page", field.Page))
				break
			}
		}

		stamp, err := render.NewFieldStamp(field, value, rect.Width, rect.Height, set)
		if err != nil {
			log.Warn("failed to build field appearance",
				observability.String("field_id", field.ID),
				observability.String("field_type", string(field.Type)),
				observability.Error("err", err))
			continue
		}

		applyOpts := &render.ApplyOptions{WrapExistingContent: !wrapped[pageIndex]}
		if err := render.Apply(w, stamp, pageIndex, rect.X, rect.Y, applyOpts); err != nil {
			log.Warn("failed to place field appearance",
				observability.String("field_id", field.ID),
				observability.Int("page", field.Page),
				observability.Error("err", err))
			continue
		}
		wrapped[pageIndex] = true
		placedRects[pageIndex] = append(placedRects[pageIndex], rect)
		placed++

		log.Debug("placed field",
			observability.String("field_id", field.ID),
			observability.String("field_type", string(field.Type)),
			observability.Int("page", field.Page))
	}

	if err := w.UpdateMetadata(signedMetadata(doc)); err != nil {
		log.Warn("failed to refresh document metadata", observability.Error("err", err))
	}

	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write signed document: %w", err)
	}
	signed := buf.Bytes()

	log.Info("signed document assembled",
		observability.String("document_id", doc.ID),
		observability.Int("fields_placed", placed),
		observability.Int("fields_total", len(doc.Fields)))

	if opts.SkipAudit {
		return signed, nil
	}

	composer := opts.Audit
	if composer == nil {
		composer = &audit.Composer{Logger: opts.Logger}
	}

	final, err := composer.AppendPage(ctx, signed, auditInfo(doc), signatureValues(doc, byField))
	if err != nil {
		// Deliver the signed document even when the summary page fails.
		log.Warn("audit trail page skipped", observability.Error("err", err))
		return signed, nil
	}
	return final, nil
}

// signedMetadata builds the refreshed document metadata for the signed
// output.
func signedMetadata(doc Document) *metadata.DocumentMetadata {
	meta := metadata.NewDocumentMetadata()
	meta.Title = doc.Name
	meta.Creator = "PenginSign"
	if !doc.CreatedAt.IsZero() {
		created := doc.CreatedAt
		meta.Created = &created
	}
	return meta
}

func auditInfo(doc Document) audit.DocumentInfo {
	return audit.DocumentInfo{
		ID:             doc.ID,
		Name:           doc.Name,
		FileName:       doc.FileName,
		CreatedAt:      doc.CreatedAt,
		RecipientName:  doc.Recipient.Name,
		RecipientEmail: doc.Recipient.Email,
	}
}

// signatureValues returns the values applied to signature fields, in
// field order, for the audit page's signature analysis section.
func signatureValues(doc Document, byField map[string]render.Value) []render.Value {
	var out []render.Value
	for _, field := range doc.Fields {
		if field.Type != render.FieldSignature {
			continue
		}
		if v, ok := byField[field.ID]; ok && !v.IsEmpty() {
			out = append(out, v)
		}
	}
	return out
}
