// Package archiver orchestrates one delivered batch through decode,
// validation, grouping, persistence and acknowledgment.
package archiver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/auditlake/audit-archiver/internal/logging"
	"github.com/auditlake/audit-archiver/internal/metrics"
	"github.com/auditlake/audit-archiver/internal/partition"
	"github.com/auditlake/audit-archiver/internal/record"
)

// GroupWriter persists one partition group and returns the key used.
type GroupWriter interface {
	WriteGroup(ctx context.Context, g *partition.Group) (string, error)
}

// Acknowledger deletes one record's source message.
type Acknowledger interface {
	Ack(ctx context.Context, rec record.ParsedRecord) error
}

// Archiver runs the ingest-group-persist-acknowledge pipeline over
// delivered batches. One instance serves the whole process; only the
// deriver's hash cache is shared between invocations.
type Archiver struct {
	deriver *partition.Deriver
	writer  GroupWriter
	acker   Acknowledger
	stage   string
	log     *slog.Logger
}

// New creates an Archiver.
func New(deriver *partition.Deriver, writer GroupWriter, acker Acknowledger, stage string) *Archiver {
	return &Archiver{
		deriver: deriver,
		writer:  writer,
		acker:   acker,
		stage:   stage,
		log:     slog.With("component", "archiver"),
	}
}

// ProcessBatch runs one delivered batch to completion. Failures are
// isolated at the narrowest scope: a bad record is dropped from further
// stages, a failed group write fails only that group's records; the rest
// of the batch always continues. Deletions for a group are issued only
// after its write succeeded.
func (a *Archiver) ProcessBatch(ctx context.Context, batch []record.RawMessage) Summary {
	correlationID := logging.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = logging.GenerateCorrelationID()
		ctx = logging.WithCorrelationID(ctx, correlationID)
	}
	log := logging.BatchLogger(correlationID, len(batch))

	summary := Summary{TotalRecords: len(batch)}

	parsed := a.decodeBatch(log, batch, &summary)

	groups := partition.GroupRecords(a.deriver, parsed)
	summary.GroupsProcessed = len(groups)

	for _, g := range groups {
		a.processGroup(ctx, log, g, &summary)
	}

	if m := metrics.Get(); m != nil {
		m.ObserveBatch(a.stage, len(batch))
	}

	log.Info("batch complete",
		"total", summary.TotalRecords,
		"succeeded", summary.SuccessfulRecords,
		"failed", summary.FailedRecords,
		"groups", summary.GroupsProcessed,
	)

	return summary
}

// decodeBatch decodes and validates each raw message, recording failures
// and returning the records that made it through.
func (a *Archiver) decodeBatch(log *slog.Logger, batch []record.RawMessage, summary *Summary) []record.ParsedRecord {
	parsed := make([]record.ParsedRecord, 0, len(batch))

	for _, raw := range batch {
		recLog := logging.RecordLogger(log, raw.MessageID)

		queueURL := raw.QueueURL
		if queueURL == "" {
			resolved, err := record.ResolveQueueURL(raw.EventSourceARN)
			if err != nil {
				recLog.Warn("queue address resolution failed", "error", err)
				summary.fail(a.stage, raw.MessageID, err.Error(), "decode")
				continue
			}
			queueURL = resolved
		}

		rec, err := record.Decode(raw.Body)
		if err != nil {
			recLog.Warn("decode failed", "error", err)
			summary.fail(a.stage, raw.MessageID, err.Error(), "decode")
			continue
		}

		if missing := rec.MissingFields(); len(missing) > 0 {
			reason := "Missing mandatory fields: " + strings.Join(missing, ", ")
			recLog.Warn("validation failed", "missing", missing)
			summary.fail(a.stage, raw.MessageID, reason, "validation")
			continue
		}

		parsed = append(parsed, record.ParsedRecord{
			Record:        rec,
			MessageID:     raw.MessageID,
			ReceiptHandle: raw.ReceiptHandle,
			QueueURL:      queueURL,
		})
	}

	return parsed
}

// processGroup writes one group, then acknowledges its members. A failed
// write marks every member failed and issues no deletions, leaving the
// messages to redeliver.
func (a *Archiver) processGroup(ctx context.Context, log *slog.Logger, g *partition.Group, summary *Summary) {
	groupLog := log.With("partition_key", g.Key, "records", len(g.Records))

	key, err := a.writer.WriteGroup(ctx, g)
	if err != nil {
		groupLog.Error("group write failed", "error", err)
		for _, r := range g.Records {
			summary.fail(a.stage, r.MessageID, err.Error(), "write")
		}
		if m := metrics.Get(); m != nil {
			m.IncGroupsFailed(a.stage)
		}
		return
	}

	groupLog.Info("group written", "key", key)
	if m := metrics.Get(); m != nil {
		m.IncGroupsProcessed(a.stage)
	}

	for _, r := range g.Records {
		if err := a.acker.Ack(ctx, r); err != nil {
			logging.RecordLogger(groupLog, r.MessageID).Error("acknowledge failed", "error", err)
			summary.fail(a.stage, r.MessageID, err.Error(), "acknowledge")
			continue
		}
		summary.succeed(a.stage)
	}
}
