package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/auditlake/audit-archiver/internal/metrics"
	"github.com/auditlake/audit-archiver/internal/record"
	"github.com/auditlake/audit-archiver/internal/retry"
)

// DeleteError reports that acknowledging one record exhausted its retries.
// The message stays on the queue and will be redelivered.
type DeleteError struct {
	QueueURL      string
	ReceiptHandle string
	MessageID     string
	Err           error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete message %s (receipt %s) from %s: %v",
		e.MessageID, e.ReceiptHandle, e.QueueURL, e.Err)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}

// Acknowledger deletes source messages under bounded retry. It must run
// strictly after the record's group has been durably written: deleting
// first risks silent data loss, and redelivery is the only recovery path
// when the write failed.
type Acknowledger struct {
	deleter Deleter
	policy  retry.Policy
	stage   string
	log     *slog.Logger
}

// NewAcknowledger creates an Acknowledger over the given deleter.
func NewAcknowledger(deleter Deleter, policy retry.Policy, stage string) *Acknowledger {
	return &Acknowledger{
		deleter: deleter,
		policy:  policy,
		stage:   stage,
		log:     slog.With("component", "acknowledger"),
	}
}

// Ack deletes the record's source message. Exhausted retries return a
// DeleteError carrying the queue address, receipt handle and message ID.
func (a *Acknowledger) Ack(ctx context.Context, rec record.ParsedRecord) error {
	start := time.Now()
	err := a.policy.Notify(ctx, func() error {
		return a.deleter.Delete(ctx, rec.QueueURL, rec.ReceiptHandle)
	}, func(err error, next time.Duration) {
		a.log.Warn("queue delete failed, retrying",
			"message_id", rec.MessageID,
			"queue_url", rec.QueueURL,
			"next_delay", next,
			"error", err,
		)
		if m := metrics.Get(); m != nil {
			m.IncRetryAttempts(a.stage, "queue.delete")
		}
	})
	if err != nil {
		if m := metrics.Get(); m != nil {
			m.IncQueueErrors(a.stage)
		}
		return &DeleteError{
			QueueURL:      rec.QueueURL,
			ReceiptHandle: rec.ReceiptHandle,
			MessageID:     rec.MessageID,
			Err:           err,
		}
	}

	if m := metrics.Get(); m != nil {
		m.ObserveDeleteDuration(a.stage, time.Since(start).Seconds())
	}
	return nil
}
