package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"distq/internal/queue"
	"distq/internal/tree"
	"distq/internal/tree/memtree"
)

const testBase = "/var/distq/queues"

func fixedGenerator() *queue.IDGenerator {
	at := time.Date(2024, 1, 3, 9, 5, 0, 0, time.UTC)
	return queue.NewIDGenerator(
		queue.WithClock(func() time.Time { return at }),
		queue.WithTokenSource(func() string { return "abc" }),
		queue.WithLocation(time.UTC),
	)
}

func openerFor(backend tree.Backend) QueueOpener {
	ids := fixedGenerator()
	return func(ctx context.Context, name string) (*queue.Queue, error) {
		return queue.Open(ctx, tree.NewSession(backend), testBase, name, queue.WithIDGenerator(ids))
	}
}

func TestFromEntry(t *testing.T) {
	ctx := context.Background()
	q, err := openerFor(memtree.New())(ctx, "agent1")
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	item, err := queue.NewItem("pkg-1", 512, map[string]any{
		queue.RequestTypeKey: queue.RequestAdd,
		"paths":              "/content/a",
		"retries":            3,
	})
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	entry, err := q.Add(ctx, item)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	dto := FromEntry(entry)
	if dto.ID != "distrq-2024--01--03--09--05--abc_0" {
		t.Fatalf("unexpected id %q", dto.ID)
	}
	if dto.Bucket != "2024/01/03/09/05" {
		t.Fatalf("unexpected bucket %q", dto.Bucket)
	}
	if dto.Queue != "agent1" || dto.State != "QUEUED" {
		t.Fatalf("unexpected status %q/%q", dto.Queue, dto.State)
	}
	if dto.PackageID != "pkg-1" || dto.Size != 512 || dto.RequestType != "ADD" {
		t.Fatalf("unexpected item fields %+v", dto)
	}

	raw, err := json.Marshal(dto)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	meta, ok := decoded["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("metadata missing from %s", raw)
	}
	if meta[queue.RequestTypeKey] != "ADD" || meta["paths"] != "/content/a" || meta["retries"] != float64(3) {
		t.Fatalf("unexpected metadata %v", meta)
	}
}

func TestFromPruneResult(t *testing.T) {
	res := queue.PruneResult{Deleted: []string{"2024/01/02"}, Entries: 0}
	report := FromPruneResult("agent1", res, 4, nil)
	if report.Queue != "agent1" || report.Depth != 4 || len(report.Buckets) != 1 || report.Error != "" {
		t.Fatalf("unexpected report %+v", report)
	}
	failed := PruneReport{Queues: []QueueReport{report, FromPruneResult("agent2", queue.PruneResult{}, -1, context.Canceled)}}
	if !failed.Failed() {
		t.Fatal("expected report with an error to be failed")
	}
}

func TestTimeRoundTrip(t *testing.T) {
	at := time.Date(2024, 1, 3, 9, 5, 7, 123_000_000, time.UTC)
	formatted := FormatTime(at)
	if formatted != "2024-01-03T09:05:07.123Z" {
		t.Fatalf("unexpected format %q", formatted)
	}
	if !ParseTime(formatted).Equal(at) {
		t.Fatalf("round trip mismatch")
	}
	if FormatTime(time.Time{}) != "" || !ParseTime("garbage").IsZero() {
		t.Fatal("expected zero handling")
	}
}
