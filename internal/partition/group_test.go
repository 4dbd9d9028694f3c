package partition

import (
	"testing"
	"time"

	"github.com/auditlake/audit-archiver/internal/record"
)

func parsedRecord(messageID, customer string, ts time.Time) record.ParsedRecord {
	return record.ParsedRecord{
		Record: &record.AuditRecord{
			MessageType: "api_call",
			Project:     "gateway",
			Customer:    customer,
			Component:   "auth",
			Timestamp:   ts,
		},
		MessageID:     messageID,
		ReceiptHandle: "rh-" + messageID,
	}
}

func TestGroupRecords_SameHourSameGroup(t *testing.T) {
	d := NewDeriver()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	groups := GroupRecords(d, []record.ParsedRecord{
		parsedRecord("m1", "cust-1", base),
		parsedRecord("m2", "cust-1", base.Add(45*time.Minute)),
	})

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if len(groups[0].Records) != 2 {
		t.Errorf("expected 2 records in group, got %d", len(groups[0].Records))
	}
}

func TestGroupRecords_DifferingCustomerSplits(t *testing.T) {
	d := NewDeriver()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	groups := GroupRecords(d, []record.ParsedRecord{
		parsedRecord("m1", "cust-1", base),
		parsedRecord("m2", "cust-2", base),
	})

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}

func TestGroupRecords_HourBoundarySplits(t *testing.T) {
	d := NewDeriver()

	groups := GroupRecords(d, []record.ParsedRecord{
		parsedRecord("m1", "cust-1", time.Date(2026, 5, 1, 12, 59, 59, 0, time.UTC)),
		parsedRecord("m2", "cust-1", time.Date(2026, 5, 1, 13, 0, 0, 0, time.UTC)),
	})

	if len(groups) != 2 {
		t.Fatalf("records in different UTC hours must split, got %d groups", len(groups))
	}
}

func TestGroupRecords_OrderPreserved(t *testing.T) {
	d := NewDeriver()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// Interleaved customers: group order follows first sighting,
	// record order within a group follows input order.
	groups := GroupRecords(d, []record.ParsedRecord{
		parsedRecord("m1", "cust-b", base),
		parsedRecord("m2", "cust-a", base),
		parsedRecord("m3", "cust-b", base),
		parsedRecord("m4", "cust-a", base),
	})

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	first := groups[0]
	if first.Records[0].MessageID != "m1" || first.Records[1].MessageID != "m3" {
		t.Errorf("first group record order wrong: %s, %s",
			first.Records[0].MessageID, first.Records[1].MessageID)
	}

	second := groups[1]
	if second.Records[0].MessageID != "m2" || second.Records[1].MessageID != "m4" {
		t.Errorf("second group record order wrong: %s, %s",
			second.Records[0].MessageID, second.Records[1].MessageID)
	}
}

func TestGroupRecords_Empty(t *testing.T) {
	d := NewDeriver()
	if groups := GroupRecords(d, nil); len(groups) != 0 {
		t.Errorf("expected no groups for empty input, got %d", len(groups))
	}
}
