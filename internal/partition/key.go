// Package partition derives hierarchical partition keys from audit records
// and buckets records by key.
package partition

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/auditlake/audit-archiver/internal/record"
)

// HashSentinel is the api_key segment value for records without an API-key
// identifier. Downstream partition pruning relies on this exact literal.
const HashSentinel = "undefined"

// Deriver computes partition keys. It memoizes API-key hashes for the life
// of the process; recomputing a hash is harmless, so the cache is only an
// optimization and never a source of truth.
type Deriver struct {
	mu     sync.RWMutex
	hashes map[string]string
}

// NewDeriver creates a Deriver with an empty hash cache.
func NewDeriver() *Deriver {
	return &Deriver{hashes: make(map[string]string)}
}

// Key derives the partition key for a record. Segments appear in fixed
// order, each name=value, joined with "/". Every segment is always
// rendered; an empty attribute keeps its segment with an empty value so
// key arity is constant. The environment segment is prepended only when
// the record carries one. The event timestamp is bucketed in UTC.
func (d *Deriver) Key(rec *record.AuditRecord) string {
	ts := rec.Timestamp.UTC()

	segments := []string{
		"message_type=" + rec.MessageType,
		"project=" + rec.Project,
		"partner=" + rec.Partner,
		"customer=" + rec.Customer,
		"client=" + rec.ClientID,
		"api_key=" + d.HashAPIKey(rec.APIKeyID),
		"region=" + rec.Region,
		"country=" + rec.Country,
		"component=" + rec.Component,
		fmt.Sprintf("year=%04d", ts.Year()),
		fmt.Sprintf("month=%02d", int(ts.Month())),
		fmt.Sprintf("day=%02d", ts.Day()),
		fmt.Sprintf("hour=%02d", ts.Hour()),
	}

	key := strings.Join(segments, "/")
	if rec.Environment != "" {
		key = "env=" + rec.Environment + "/" + key
	}
	return key
}

// HashAPIKey returns the hex-encoded SHA-256 of the API-key identifier,
// memoized. An empty identifier hashes to the sentinel rather than being
// omitted, so every key has a deterministic api_key segment.
func (d *Deriver) HashAPIKey(apiKeyID string) string {
	if apiKeyID == "" {
		return HashSentinel
	}

	d.mu.RLock()
	h, ok := d.hashes[apiKeyID]
	d.mu.RUnlock()
	if ok {
		return h
	}

	sum := sha256.Sum256([]byte(apiKeyID))
	h = hex.EncodeToString(sum[:])

	d.mu.Lock()
	d.hashes[apiKeyID] = h
	d.mu.Unlock()
	return h
}

// CacheSize returns the number of memoized hashes.
func (d *Deriver) CacheSize() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.hashes)
}
