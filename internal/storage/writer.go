package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/auditlake/audit-archiver/internal/metrics"
	"github.com/auditlake/audit-archiver/internal/partition"
	"github.com/auditlake/audit-archiver/internal/retry"
)

// ContentTypeNDJSON is the content type for newline-delimited JSON bodies.
const ContentTypeNDJSON = "application/x-ndjson"

// WriteError reports that a group write exhausted its retries. All records
// of the group are lost for this invocation and recover via redelivery.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write group object %s: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// GroupWriter serializes partition groups to NDJSON and writes them under
// bounded retry. One object per group per invocation; the random suffix
// keeps concurrent invocations writing to the same partition from
// colliding.
type GroupWriter struct {
	store    ObjectStore
	basePath string
	gzipped  bool
	policy   retry.Policy
	stage    string
	log      *slog.Logger
}

// NewGroupWriter creates a GroupWriter rooted at basePath.
func NewGroupWriter(store ObjectStore, basePath string, gzipped bool, policy retry.Policy, stage string) *GroupWriter {
	return &GroupWriter{
		store:    store,
		basePath: basePath,
		gzipped:  gzipped,
		policy:   policy,
		stage:    stage,
		log:      slog.With("component", "group_writer"),
	}
}

// WriteGroup persists one group and returns the storage key used. Member
// order is preserved, one JSON document per line. Exhausted retries return
// a WriteError; no partial-group persistence is attempted.
func (w *GroupWriter) WriteGroup(ctx context.Context, g *partition.Group) (string, error) {
	body, err := encodeNDJSON(g)
	if err != nil {
		return "", fmt.Errorf("encode group %s: %w", g.Key, err)
	}

	opts := PutOptions{ContentType: ContentTypeNDJSON}
	suffix := ".json"
	if w.gzipped {
		body, err = gzipBytes(body)
		if err != nil {
			return "", fmt.Errorf("compress group %s: %w", g.Key, err)
		}
		opts.ContentEncoding = "gzip"
		suffix = ".json.gz"
	}

	key := fmt.Sprintf("%s/%s/%s%s", w.basePath, g.Key, uuid.New().String(), suffix)

	start := time.Now()
	err = w.policy.Notify(ctx, func() error {
		return w.store.Put(ctx, key, body, opts)
	}, func(err error, next time.Duration) {
		w.log.Warn("storage write failed, retrying", "key", key, "next_delay", next, "error", err)
		if m := metrics.Get(); m != nil {
			m.IncRetryAttempts(w.stage, "storage.put")
		}
	})
	if err != nil {
		if m := metrics.Get(); m != nil {
			m.IncStorageErrors(w.stage, "blob")
		}
		return "", &WriteError{Key: key, Err: err}
	}

	if m := metrics.Get(); m != nil {
		m.ObserveWriteDuration(w.stage, time.Since(start).Seconds())
		m.ObserveObjectBytes(w.stage, float64(len(body)))
	}

	w.log.Debug("wrote group",
		"key", key,
		"records", len(g.Records),
		"bytes", len(body),
	)

	return key, nil
}

// encodeNDJSON renders each member record as one JSON line.
func encodeNDJSON(g *partition.Group) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range g.Records {
		line, err := json.Marshal(r.Record)
		if err != nil {
			return nil, fmt.Errorf("marshal record %s: %w", r.MessageID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
