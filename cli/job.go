package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/penginsign/sigpdf/geom"
	"github.com/penginsign/sigpdf/render"
	"github.com/penginsign/sigpdf/signer"
)

// Job describes one signing request: the document being signed, the
// fields placed on it, and the values the recipient entered.
type Job struct {
	Document JobDocument `yaml:"document"`
	Fields   []JobField  `yaml:"fields"`
	Values   []JobValue  `yaml:"values"`
}

// JobDocument identifies the document being signed.
type JobDocument struct {
	ID        string       `yaml:"id"`
	Name      string       `yaml:"name"`
	FileName  string       `yaml:"file-name"`
	CreatedAt time.Time    `yaml:"created-at"`
	Recipient JobRecipient `yaml:"recipient"`
}

// JobRecipient identifies who signs.
type JobRecipient struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// JobField is a form field placed in the viewer. Coordinates are
// viewer pixels with the origin at the top-left corner of the page.
type JobField struct {
	ID   string  `yaml:"id"`
	Type string  `yaml:"type"`
	Page int     `yaml:"page"`
	Rect JobRect `yaml:"rect"`
}

// JobRect is a field rectangle in viewer coordinates.
type JobRect struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// JobValue carries the entered value for one field. Value holds text or
// an image data-URL inline; ValueFile reads it from a file instead,
// which keeps long base64 payloads out of the job file.
type JobValue struct {
	FieldID   string `yaml:"field-id"`
	Value     string `yaml:"value"`
	ValueFile string `yaml:"value-file"`
	Font      string `yaml:"font"`
}

// LoadJob reads and validates a job file.
func LoadJob(filename string) (*Job, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job file: %w", err)
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// Validate checks the job for structural problems before signing runs.
func (j *Job) Validate() error {
	if j.Document.ID == "" {
		return fmt.Errorf("job document has no id")
	}
	if len(j.Fields) == 0 {
		return fmt.Errorf("job has no fields")
	}

	fieldIDs := make(map[string]bool, len(j.Fields))
	for i, f := range j.Fields {
		if f.ID == "" {
			return fmt.Errorf("field %d has no id", i)
		}
		if fieldIDs[f.ID] {
			return fmt.Errorf("duplicate field id %q", f.ID)
		}
		fieldIDs[f.ID] = true
		if f.Page < 1 {
			return fmt.Errorf("field %q has invalid page %d", f.ID, f.Page)
		}
		if f.Rect.Width <= 0 || f.Rect.Height <= 0 {
			return fmt.Errorf("field %q has an empty rectangle", f.ID)
		}
	}

	for i, v := range j.Values {
		if v.FieldID == "" {
			return fmt.Errorf("value %d has no field-id", i)
		}
		if !fieldIDs[v.FieldID] {
			return fmt.Errorf("value %d references unknown field %q", i, v.FieldID)
		}
	}
	return nil
}

// ToDocument converts the job into a signing request for the given PDF
// bytes.
func (j *Job) ToDocument(pdf []byte) signer.Document {
	fields := make([]render.Field, 0, len(j.Fields))
	for _, f := range j.Fields {
		fields = append(fields, render.Field{
			ID:   f.ID,
			Type: render.ParseFieldType(f.Type),
			Page: f.Page,
			Rect: geom.ViewerRect{
				X: f.Rect.X,
				Y: f.Rect.Y,
				W: f.Rect.Width,
				H: f.Rect.Height,
			},
		})
	}

	return signer.Document{
		ID:        j.Document.ID,
		Name:      j.Document.Name,
		FileName:  j.Document.FileName,
		CreatedAt: j.Document.CreatedAt,
		Recipient: signer.Recipient{
			Name:  j.Document.Recipient.Name,
			Email: j.Document.Recipient.Email,
		},
		Fields: fields,
		PDF:    pdf,
	}
}

// ResolveValues materializes the job's values, reading file-backed
// payloads from disk.
func (j *Job) ResolveValues() ([]render.Value, error) {
	values := make([]render.Value, 0, len(j.Values))
	for _, v := range j.Values {
		raw := v.Value
		if v.ValueFile != "" {
			data, err := os.ReadFile(v.ValueFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read value file for field %q: %w", v.FieldID, err)
			}
			raw = string(data)
		}
		values = append(values, render.Value{
			FieldID: v.FieldID,
			Raw:     raw,
			FontTag: v.Font,
		})
	}
	return values, nil
}
