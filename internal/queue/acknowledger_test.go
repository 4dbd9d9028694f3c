package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/auditlake/audit-archiver/internal/record"
	"github.com/auditlake/audit-archiver/internal/retry"
)

// fakeDeleter fails a configurable number of times, then succeeds.
type fakeDeleter struct {
	failures int
	deleted  []string
}

func (d *fakeDeleter) Delete(ctx context.Context, queueURL, receiptHandle string) error {
	if d.failures > 0 {
		d.failures--
		return errors.New("transient queue error")
	}
	d.deleted = append(d.deleted, receiptHandle)
	return nil
}

func testParsed() record.ParsedRecord {
	return record.ParsedRecord{
		MessageID:     "msg-1",
		ReceiptHandle: "rh-1",
		QueueURL:      "https://sqs.eu-west-1.amazonaws.com/123456789012/audit",
	}
}

func TestAck_Success(t *testing.T) {
	d := &fakeDeleter{}
	a := NewAcknowledger(d, retry.Policy{MaxAttempts: 1}, "test")

	if err := a.Ack(context.Background(), testParsed()); err != nil {
		t.Fatalf("ack failed: %v", err)
	}
	if len(d.deleted) != 1 || d.deleted[0] != "rh-1" {
		t.Errorf("expected rh-1 deleted, got %v", d.deleted)
	}
}

func TestAck_RetriesThenSucceeds(t *testing.T) {
	d := &fakeDeleter{failures: 2}
	a := NewAcknowledger(d, retry.Policy{MaxAttempts: 3}, "test")

	if err := a.Ack(context.Background(), testParsed()); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
}

func TestAck_ExhaustedRetriesIsDeleteError(t *testing.T) {
	d := &fakeDeleter{failures: 10}
	a := NewAcknowledger(d, retry.Policy{MaxAttempts: 2}, "test")

	err := a.Ack(context.Background(), testParsed())
	if err == nil {
		t.Fatal("expected error")
	}

	var delErr *DeleteError
	if !errors.As(err, &delErr) {
		t.Fatalf("expected *DeleteError, got %T", err)
	}
	if delErr.MessageID != "msg-1" {
		t.Errorf("MessageID = %q", delErr.MessageID)
	}
	if delErr.ReceiptHandle != "rh-1" {
		t.Errorf("ReceiptHandle = %q", delErr.ReceiptHandle)
	}
	if delErr.QueueURL == "" {
		t.Error("QueueURL must identify the queue")
	}
	if delErr.Unwrap() == nil {
		t.Error("original cause must be carried")
	}
	// 2 attempts consumed
	if d.failures != 8 {
		t.Errorf("expected 2 attempts, %d failures left", d.failures)
	}
}
