// Package record defines the audit record data model and the decode and
// validation steps applied to raw queue messages.
package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// RequiredFields are the payload fields every record must carry to be
// accepted into the pipeline.
var RequiredFields = []string{"messageType", "project", "component"}

// RawMessage is one delivered queue message before decoding. The receipt
// handle is the deletion token proving safe removal of this delivery.
type RawMessage struct {
	Body           string
	MessageID      string
	ReceiptHandle  string
	EventSourceARN string
	QueueURL       string // set by the receiver; derived from the ARN otherwise
}

// AuditRecord is one decoded audit-log record. Known fields drive partition
// key derivation; the full payload is preserved for persistence.
type AuditRecord struct {
	MessageType string
	Project     string
	Partner     string
	Customer    string
	ClientID    string
	APIKeyID    string
	Region      string
	Country     string
	Component   string
	Environment string
	Timestamp   time.Time

	// payload is the decoded message body, kept verbatim so persistence
	// re-emits every field the producer sent.
	payload map[string]any
}

// ParsedRecord pairs a decoded record with the queue metadata needed to
// acknowledge it after its group has been written.
type ParsedRecord struct {
	Record        *AuditRecord
	MessageID     string
	ReceiptHandle string
	QueueURL      string
}

// Decode parses a raw message body into an AuditRecord. The body must be a
// JSON object; the event timestamp must parse as RFC 3339. Unknown fields
// are retained for persistence.
func Decode(body string) (*AuditRecord, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("decode message body: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("decode message body: not a JSON object")
	}

	rec := &AuditRecord{
		MessageType: stringField(payload, "messageType"),
		Project:     stringField(payload, "project"),
		Partner:     stringField(payload, "partner"),
		Customer:    stringField(payload, "customer"),
		ClientID:    stringField(payload, "clientId"),
		APIKeyID:    stringField(payload, "apiKeyId"),
		Region:      stringField(payload, "region"),
		Country:     stringField(payload, "country"),
		Component:   stringField(payload, "component"),
		Environment: stringField(payload, "environment"),
		payload:     payload,
	}

	if raw := stringField(payload, "timestamp"); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", raw, err)
		}
		rec.Timestamp = ts.UTC()
	}

	return rec, nil
}

// MarshalJSON re-emits the original payload, keeping fields the pipeline
// does not model.
func (r *AuditRecord) MarshalJSON() ([]byte, error) {
	if r.payload == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.payload)
}

// MissingFields returns the required fields absent or empty on the record.
// A nil record reports every required field missing.
func (r *AuditRecord) MissingFields() []string {
	if r == nil {
		out := make([]string, len(RequiredFields))
		copy(out, RequiredFields)
		return out
	}

	var missing []string
	for _, f := range RequiredFields {
		switch f {
		case "messageType":
			if r.MessageType == "" {
				missing = append(missing, f)
			}
		case "project":
			if r.Project == "" {
				missing = append(missing, f)
			}
		case "component":
			if r.Component == "" {
				missing = append(missing, f)
			}
		}
	}
	return missing
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
