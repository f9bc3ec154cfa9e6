package cli

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/penginsign/sigpdf/render"
)

const validJobYAML = `
document:
  id: doc-2b3c4d5e6f7a8b9c
  name: Lease Agreement
  file-name: lease.pdf
  created-at: 2026-03-14T09:30:00Z
  recipient:
    name: Jane Roe
    email: jane@example.com
fields:
  - id: f1
    type: signature
    page: 1
    rect: {x: 100, y: 500, width: 200, height: 60}
  - id: f2
    type: date
    page: 1
    rect: {x: 320, y: 500, width: 120, height: 30}
values:
  - field-id: f1
    value: Jane Roe
    font: signatura
  - field-id: f2
    value: 03/14/2026
`

func writeTempJob(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write job file: %v", err)
	}
	return path
}

func TestLoadJob(t *testing.T) {
	job, err := LoadJob(writeTempJob(t, validJobYAML))
	if err != nil {
		t.Fatalf("LoadJob failed: %v", err)
	}

	if job.Document.ID != "doc-2b3c4d5e6f7a8b9c" {
		t.Errorf("Document.ID = %q", job.Document.ID)
	}
	if job.Document.Recipient.Email != "jane@example.com" {
		t.Errorf("Recipient.Email = %q", job.Document.Recipient.Email)
	}
	if len(job.Fields) != 2 {
		t.Fatalf("Fields = %d, want 2", len(job.Fields))
	}
	if job.Fields[0].Rect.Width != 200 {
		t.Errorf("Fields[0].Rect.Width = %v", job.Fields[0].Rect.Width)
	}
	if len(job.Values) != 2 {
		t.Fatalf("Values = %d, want 2", len(job.Values))
	}
	if job.Values[0].Font != "signatura" {
		t.Errorf("Values[0].Font = %q", job.Values[0].Font)
	}
}

func TestLoadJob_MissingFile(t *testing.T) {
	if _, err := LoadJob(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing job file")
	}
}

func TestJob_Validate(t *testing.T) {
	base := func() Job {
		return Job{
			Document: JobDocument{ID: "doc-1"},
			Fields: []JobField{
				{ID: "f1", Type: "signature", Page: 1,
					Rect: JobRect{X: 0, Y: 0, Width: 100, Height: 40}},
			},
			Values: []JobValue{{FieldID: "f1", Value: "x"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Job)
		wantErr string
	}{
		{"valid", func(j *Job) {}, ""},
		{"missing document id", func(j *Job) { j.Document.ID = "" }, "no id"},
		{"no fields", func(j *Job) { j.Fields = nil }, "no fields"},
		{"field without id", func(j *Job) { j.Fields[0].ID = "" }, "has no id"},
		{"duplicate field id", func(j *Job) {
			j.Fields = append(j.Fields, j.Fields[0])
		}, "duplicate field id"},
		{"invalid page", func(j *Job) { j.Fields[0].Page = 0 }, "invalid page"},
		{"empty rect", func(j *Job) { j.Fields[0].Rect.Height = 0 }, "empty rectangle"},
		{"value without field id", func(j *Job) { j.Values[0].FieldID = "" }, "no field-id"},
		{"value for unknown field", func(j *Job) { j.Values[0].FieldID = "nope" }, "unknown field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := base()
			tt.mutate(&job)
			err := job.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestJob_ToDocument(t *testing.T) {
	job, err := LoadJob(writeTempJob(t, validJobYAML))
	if err != nil {
		t.Fatalf("LoadJob failed: %v", err)
	}

	pdf := []byte("%PDF-1.7 content")
	doc := job.ToDocument(pdf)

	if doc.ID != job.Document.ID {
		t.Errorf("doc.ID = %q", doc.ID)
	}
	if doc.Recipient.Name != "Jane Roe" {
		t.Errorf("doc.Recipient.Name = %q", doc.Recipient.Name)
	}
	if string(doc.PDF) != string(pdf) {
		t.Error("PDF bytes not carried over")
	}
	if len(doc.Fields) != 2 {
		t.Fatalf("doc.Fields = %d, want 2", len(doc.Fields))
	}
	if doc.Fields[0].Type != render.FieldSignature {
		t.Errorf("Fields[0].Type = %q", doc.Fields[0].Type)
	}
	if doc.Fields[1].Type != render.FieldDate {
		t.Errorf("Fields[1].Type = %q", doc.Fields[1].Type)
	}
	if doc.Fields[0].Rect.W != 200 || doc.Fields[0].Rect.H != 60 {
		t.Errorf("Fields[0].Rect = %+v", doc.Fields[0].Rect)
	}
}

func TestJob_ResolveValues(t *testing.T) {
	payloadFile := filepath.Join(t.TempDir(), "sig.txt")
	if err := os.WriteFile(payloadFile, []byte("data:image/png;base64,AAAA"), 0644); err != nil {
		t.Fatalf("Failed to write payload file: %v", err)
	}

	job := Job{
		Values: []JobValue{
			{FieldID: "f1", Value: "Jane Roe", Font: "signature"},
			{FieldID: "f2", ValueFile: payloadFile},
		},
	}

	values, err := job.ResolveValues()
	if err != nil {
		t.Fatalf("ResolveValues failed: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("values = %d, want 2", len(values))
	}
	if values[0].Raw != "Jane Roe" || values[0].FontTag != "signature" {
		t.Errorf("values[0] = %+v", values[0])
	}
	if values[1].Raw != "data:image/png;base64,AAAA" {
		t.Errorf("values[1].Raw = %q", values[1].Raw)
	}
}

func TestJob_ResolveValues_MissingFile(t *testing.T) {
	job := Job{
		Values: []JobValue{
			{FieldID: "f1", ValueFile: filepath.Join(t.TempDir(), "missing.txt")},
		},
	}
	if _, err := job.ResolveValues(); err == nil {
		t.Error("Expected error for missing value file")
	}
}

func TestDefaultOutputName(t *testing.T) {
	got := defaultOutputName("/tmp/docs/lease.pdf")

	if dir := filepath.Dir(got); dir != "/tmp/docs" {
		t.Errorf("Output directory = %q", dir)
	}
	base := filepath.Base(got)
	pattern := regexp.MustCompile(`^signed_lease_[0-9a-f-]{36}\.pdf$`)
	if !pattern.MatchString(base) {
		t.Errorf("Output name %q does not match signed_<name>_<uuid>.pdf", base)
	}
}
