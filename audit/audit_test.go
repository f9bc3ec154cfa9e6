package audit

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/penginsign/sigpdf/pdf/generic"
	"github.com/penginsign/sigpdf/pdf/reader"
	"github.com/penginsign/sigpdf/pdf/writer"
	"github.com/penginsign/sigpdf/render"
)

// createTestPDF builds a single Letter-sized page with some content.
func createTestPDF() []byte {
	w := writer.NewPdfFileWriter("1.7")
	w.AddPage(&generic.Rectangle{LLX: 0, LLY: 0, URX: 612, URY: 792},
		[]byte("BT /F1 12 Tf 72 720 Td (Original) Tj ET"))

	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func testDoc() DocumentInfo {
	return DocumentInfo{
		ID:             "doc-2b3c4d5e6f7a8b9c",
		Name:           "Lease Agreement",
		FileName:       "lease.pdf",
		CreatedAt:      time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		RecipientName:  "Jane Roe",
		RecipientEmail: "jane@example.com",
	}
}

func TestDocumentInfo_ShortID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"doc-2b3c4d5e6f7a8b9c", "6F7A8B9C"},
		{"abc", "ABC"},
		{"", ""},
	}

	for _, tt := range tests {
		d := DocumentInfo{ID: tt.id}
		if got := d.ShortID(); got != tt.want {
			t.Errorf("ShortID(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestSyntheticTimeline(t *testing.T) {
	doc := testDoc()
	activities := SyntheticTimeline(doc)

	if len(activities) != 6 {
		t.Fatalf("Expected 6 activities, got %d", len(activities))
	}

	wantOffsets := []time.Duration{
		0,
		5 * time.Minute,
		2 * time.Hour,
		3 * time.Hour,
		3*time.Hour + 30*time.Second,
		4 * time.Hour,
	}
	wantActions := []Action{
		ActionCreated, ActionSent, ActionViewed,
		ActionSigned, ActionCompleted, ActionDownloaded,
	}

	for i, a := range activities {
		if a.Action != wantActions[i] {
			t.Errorf("activity %d action = %s, want %s", i, a.Action, wantActions[i])
		}
		if got := a.At.Sub(doc.CreatedAt); got != wantOffsets[i] {
			t.Errorf("activity %d offset = %v, want %v", i, got, wantOffsets[i])
		}
	}

	if activities[0].Details["fileName"] != "lease.pdf" {
		t.Errorf("CREATED details = %v", activities[0].Details)
	}
	if activities[1].Details["recipientEmail"] != "jane@example.com" {
		t.Errorf("SENT details = %v", activities[1].Details)
	}
	if activities[3].Details["signedBy"] != "Jane Roe" {
		t.Errorf("SIGNED details = %v", activities[3].Details)
	}
}

func TestDescribe(t *testing.T) {
	doc := testDoc()

	tests := []struct {
		name       string
		activity   Activity
		wantAction string
		wantDetail string
		wantColor  [3]float64
	}{
		{
			"created with creator",
			Activity{Action: ActionCreated, Details: map[string]string{"createdBy": "ops@example.com"}},
			"Document created", "Created by ops@example.com", primaryBlue,
		},
		{
			"sent falls back to document recipient",
			Activity{Action: ActionSent},
			"Document sent to jane@example.com", "", [3]float64{0.2, 0.5, 0.8},
		},
		{
			"viewed with device",
			Activity{Action: ActionViewed, Details: map[string]string{"device": "Chrome Browser"}},
			"Document viewed by recipient", "Viewed using Chrome Browser", [3]float64{0.9, 0.6, 0.1},
		},
		{
			"signed with count",
			Activity{Action: ActionSigned, Details: map[string]string{"signatureCount": "2"}},
			"Document signed by recipient", "2 signature(s) applied", successGreen,
		},
		{
			"cancelled with reason",
			Activity{Action: ActionCancelled, Details: map[string]string{"reason": "Document needs revision"}},
			"Document cancelled", "Reason: Document needs revision", [3]float64{0.8, 0.2, 0.2},
		},
		{
			"unknown action",
			Activity{Action: Action("ARCHIVED")},
			"Document archived", "", mediumGray,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, detail, color := describe(tt.activity, doc)
			if action != tt.wantAction {
				t.Errorf("action = %q, want %q", action, tt.wantAction)
			}
			if detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", detail, tt.wantDetail)
			}
			if color != tt.wantColor {
				t.Errorf("color = %v, want %v", color, tt.wantColor)
			}
		})
	}
}

func TestComposer_AppendPage(t *testing.T) {
	pdf := createTestPDF()
	composer := &Composer{
		Clock: clockwork.NewFakeClockAt(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)),
	}

	out, err := composer.AppendPage(context.Background(), pdf, testDoc(), nil)
	if err != nil {
		t.Fatalf("AppendPage failed: %v", err)
	}
	if len(out) <= len(pdf) {
		t.Errorf("Output size %d not larger than input %d", len(out), len(pdf))
	}
	if !bytes.HasPrefix(out, pdf[:50]) {
		t.Error("Incremental update must preserve the original bytes")
	}

	r, err := reader.NewPdfFileReaderFromBytes(out)
	if err != nil {
		t.Fatalf("Failed to re-read output: %v", err)
	}
	if len(r.Pages) != 2 {
		t.Fatalf("Page count = %d, want 2", len(r.Pages))
	}

	// Short pages get stretched to the minimum audit page height.
	w, h, err := r.GetPageSize(1)
	if err != nil {
		t.Fatalf("GetPageSize failed: %v", err)
	}
	if w != 612 || h != 800 {
		t.Errorf("Audit page size = %vx%v, want 612x800", w, h)
	}
}

func TestComposer_AppendPage_WithSignatures(t *testing.T) {
	composer := &Composer{Clock: clockwork.NewFakeClock()}
	signatures := []render.Value{
		{FieldID: "f1", Raw: "Jane Roe", FontTag: "signatura"},
		{FieldID: "f2", Raw: "data:image/png;base64,AAAA"},
	}

	out, err := composer.AppendPage(context.Background(), createTestPDF(), testDoc(), signatures)
	if err != nil {
		t.Fatalf("AppendPage failed: %v", err)
	}
	if !bytes.Contains(out, []byte("Typed signature")) {
		t.Error("Typed signature analysis missing from page content")
	}
	if !bytes.Contains(out, []byte("Drawn signature")) {
		t.Error("Drawn signature analysis missing from page content")
	}
}

func TestComposer_AppendPage_InvalidInputReturnsOriginal(t *testing.T) {
	garbage := []byte("definitely not a pdf")
	composer := &Composer{}

	out, err := composer.AppendPage(context.Background(), garbage, testDoc(), nil)
	if err == nil {
		t.Fatal("Expected error for invalid input")
	}
	if !bytes.Equal(out, garbage) {
		t.Error("Failed append must return the input bytes unchanged")
	}
}

type failingSource struct{}

func (failingSource) Activities(context.Context, string) ([]Activity, error) {
	return nil, errors.New("database offline")
}

type fixedSource []Activity

func (s fixedSource) Activities(context.Context, string) ([]Activity, error) {
	return s, nil
}

func TestComposer_LoadActivities(t *testing.T) {
	doc := testDoc()

	t.Run("nil source uses synthetic timeline", func(t *testing.T) {
		c := &Composer{}
		if got := c.loadActivities(context.Background(), doc); len(got) != 6 {
			t.Errorf("activities = %d, want 6", len(got))
		}
	})

	t.Run("failing source falls back", func(t *testing.T) {
		c := &Composer{Source: failingSource{}}
		if got := c.loadActivities(context.Background(), doc); len(got) != 6 {
			t.Errorf("activities = %d, want 6", len(got))
		}
	})

	t.Run("recorded history wins", func(t *testing.T) {
		recorded := fixedSource{
			{Action: ActionCreated, At: doc.CreatedAt},
			{Action: ActionCancelled, At: doc.CreatedAt.Add(time.Hour),
				Details: map[string]string{"reason": "Document needs revision"}},
		}
		c := &Composer{Source: recorded}
		got := c.loadActivities(context.Background(), doc)
		if len(got) != 2 {
			t.Fatalf("activities = %d, want 2", len(got))
		}
		if got[1].Action != ActionCancelled {
			t.Errorf("second action = %s, want CANCELLED", got[1].Action)
		}
	})

	t.Run("empty recorded history falls back", func(t *testing.T) {
		c := &Composer{Source: fixedSource{}}
		if got := c.loadActivities(context.Background(), doc); len(got) != 6 {
			t.Errorf("activities = %d, want 6", len(got))
		}
	})
}

func TestComposer_Brand(t *testing.T) {
	if got := (&Composer{}).brand(); got != "PenginSign" {
		t.Errorf("default brand = %q", got)
	}
	if got := (&Composer{Brand: "Acme Sign"}).brand(); got != "Acme Sign" {
		t.Errorf("brand = %q", got)
	}
}

func TestDrawPage_ContainsSections(t *testing.T) {
	composer := &Composer{Clock: clockwork.NewFakeClock()}
	doc := testDoc()
	body := composer.drawPage(612, 800, doc, SyntheticTimeline(doc), nil, make([]byte, 32))

	content := string(body)
	for _, want := range []string{
		"AUDIT TRAIL PAGE",
		"Document Information",
		"Document History",
		"Security & Verification",
		"Powered by PenginSign",
		"VERIFIED",
		doc.ShortID(),
		"Document created",
		"Document sent to jane@example.com",
		"Document viewed by recipient",
		"Document signed by recipient",
		"Document signing completed",
		"Signed PDF downloaded",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Page content missing %q", want)
		}
	}
}
