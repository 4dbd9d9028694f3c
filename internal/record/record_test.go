package record

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

const sampleBody = `{
	"messageType": "api_call",
	"project": "gateway",
	"partner": "acme",
	"customer": "cust-1",
	"clientId": "client-9",
	"apiKeyId": "key-123",
	"region": "eu-west-1",
	"country": "NL",
	"component": "auth",
	"environment": "prod",
	"timestamp": "2026-03-07T09:04:33Z",
	"requestId": "req-42",
	"durationMs": 17
}`

func TestDecode_KnownFields(t *testing.T) {
	rec, err := Decode(sampleBody)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if rec.MessageType != "api_call" {
		t.Errorf("messageType = %q", rec.MessageType)
	}
	if rec.Project != "gateway" {
		t.Errorf("project = %q", rec.Project)
	}
	if rec.Component != "auth" {
		t.Errorf("component = %q", rec.Component)
	}
	if rec.Environment != "prod" {
		t.Errorf("environment = %q", rec.Environment)
	}

	want := time.Date(2026, 3, 7, 9, 4, 33, 0, time.UTC)
	if !rec.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp, want)
	}
}

func TestDecode_MalformedBody(t *testing.T) {
	for _, body := range []string{"not json", "", "[1,2,3]", `"just a string"`, "null"} {
		if _, err := Decode(body); err == nil {
			t.Errorf("expected decode error for %q", body)
		}
	}
}

func TestDecode_BadTimestamp(t *testing.T) {
	if _, err := Decode(`{"messageType":"x","timestamp":"yesterday"}`); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestDecode_MissingTimestampAllowed(t *testing.T) {
	rec, err := Decode(`{"messageType":"x","project":"p","component":"c"}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !rec.Timestamp.IsZero() {
		t.Errorf("expected zero timestamp, got %v", rec.Timestamp)
	}
}

func TestMarshalJSON_PreservesPayload(t *testing.T) {
	rec, err := Decode(sampleBody)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var got, want map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if err := json.Unmarshal([]byte(sampleBody), &want); err != nil {
		t.Fatalf("unmarshal input: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("payload not preserved:\n got %v\nwant %v", got, want)
	}
	if got["requestId"] != "req-42" {
		t.Error("free-form fields must survive round trip")
	}
}

func TestMissingFields(t *testing.T) {
	tests := []struct {
		name string
		rec  *AuditRecord
		want []string
	}{
		{
			name: "all present",
			rec:  &AuditRecord{MessageType: "x", Project: "p", Component: "c"},
			want: nil,
		},
		{
			name: "missing component",
			rec:  &AuditRecord{MessageType: "x", Project: "p"},
			want: []string{"component"},
		},
		{
			name: "missing all",
			rec:  &AuditRecord{},
			want: []string{"messageType", "project", "component"},
		},
		{
			name: "nil record",
			rec:  nil,
			want: []string{"messageType", "project", "component"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rec.MissingFields()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingFields() = %v, want %v", got, tt.want)
			}
		})
	}
}
