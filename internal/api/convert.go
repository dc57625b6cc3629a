package api

import (
	"time"

	"distq/internal/queue"
)

// FromEntry converts a queue entry to its API representation.
func FromEntry(entry queue.Entry) QueueEntry {
	dto := QueueEntry{
		ID:        entry.ID,
		Queue:     entry.Status.Queue,
		State:     string(entry.Status.State),
		PackageID: entry.Item.PackageID(),
		Size:      entry.Item.Size(),
	}
	if rt, ok := entry.Item.RequestType(); ok {
		dto.RequestType = rt.String()
	}
	if fragment, ok := queue.DecodeID(entry.ID); ok {
		if p, ok := queue.ParseEntryPath(fragment); ok {
			dto.Bucket = p.Bucket
		}
	}
	if keys := entry.Item.Keys(); len(keys) > 0 {
		dto.Metadata = make(map[string]any, len(keys))
		for _, key := range keys {
			value, _ := entry.Item.Get(key)
			dto.Metadata[key] = wireValue(value)
		}
	}
	return dto
}

// FromEntries converts a slice of queue entries into API DTOs.
func FromEntries(entries []queue.Entry) []QueueEntry {
	out := make([]QueueEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromEntry(entry))
	}
	return out
}

// FromPruneResult converts the outcome of a single queue prune.
func FromPruneResult(name string, res queue.PruneResult, depth int, err error) QueueReport {
	report := QueueReport{
		Queue:   name,
		Buckets: append([]string(nil), res.Deleted...),
		Entries: res.Entries,
		Depth:   depth,
	}
	if err != nil {
		report.Error = err.Error()
	}
	return report
}

// FormatTime renders t the way API payloads carry timestamps.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses an API timestamp. It returns the zero time for empty or
// malformed input.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(dateTimeFormat, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func wireValue(v any) any {
	if rt, ok := v.(queue.RequestType); ok {
		return rt.String()
	}
	return v
}
