package partition

import (
	"github.com/auditlake/audit-archiver/internal/record"
)

// Group is a partition key plus the records sharing it, in arrival order.
// Groups are append-only during bucketing and immutable afterwards.
type Group struct {
	Key     string
	Records []record.ParsedRecord
}

// GroupRecords buckets records by partition key in a single pass. Within a
// group, record order equals input order. Across groups, the returned
// order equals first-sighting order of each distinct key.
func GroupRecords(d *Deriver, records []record.ParsedRecord) []*Group {
	byKey := make(map[string]*Group, len(records))
	var ordered []*Group

	for _, r := range records {
		key := d.Key(r.Record)
		g, ok := byKey[key]
		if !ok {
			g = &Group{Key: key}
			byKey[key] = g
			ordered = append(ordered, g)
		}
		g.Records = append(g.Records, r)
	}

	return ordered
}
