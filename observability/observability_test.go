package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFieldConstructors(t *testing.T) {
	err := errors.New("boom")

	tests := []struct {
		field   Field
		wantKey string
		wantVal interface{}
	}{
		{String("name", "lease.pdf"), "name", "lease.pdf"},
		{Int("pages", 3), "pages", 3},
		{Float64("scale", 0.765), "scale", 0.765},
		{Error("err", err), "err", err},
		{Duration("elapsed", 2*time.Second), "elapsed", 2 * time.Second},
	}

	for _, tt := range tests {
		if tt.field.Key() != tt.wantKey {
			t.Errorf("Key() = %q, want %q", tt.field.Key(), tt.wantKey)
		}
		if tt.field.Value() != tt.wantVal {
			t.Errorf("Value() = %v, want %v", tt.field.Value(), tt.wantVal)
		}
	}
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf)

	log.Info("document signed", String("document_id", "abc"), Int("fields", 2))
	log.Warn("font unavailable")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "INFO document signed document_id=abc fields=2" {
		t.Errorf("First line = %q", lines[0])
	}
	if lines[1] != "WARN font unavailable" {
		t.Errorf("Second line = %q", lines[1])
	}
}

func TestWriterLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf).With(String("document_id", "abc"))

	log.Debug("placed field", String("field_id", "f1"))

	got := strings.TrimRight(buf.String(), "\n")
	if got != "DEBUG placed field document_id=abc field_id=f1" {
		t.Errorf("Line = %q", got)
	}
}

func TestWriterLogger_WithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWriterLogger(&buf)
	parent.With(String("a", "1")).With(String("b", "2"))

	parent.Info("plain")

	got := strings.TrimRight(buf.String(), "\n")
	if got != "INFO plain" {
		t.Errorf("Parent logger picked up child fields: %q", got)
	}
}

func TestNopLogger(t *testing.T) {
	var log Logger = NopLogger{}
	log.Debug("ignored")
	log.Error("ignored", String("k", "v"))

	if _, ok := log.With(String("k", "v")).(NopLogger); !ok {
		t.Error("With must return a NopLogger")
	}
}
