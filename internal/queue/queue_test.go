package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"distq/internal/testsupport"
	"distq/internal/tree"
)

type recordingObserver struct {
	mu      sync.Mutex
	added   int
	removed int
	retries int
	failed  int
	pruned  int
	depth   int
}

func (o *recordingObserver) EntryAdded(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.added++
}

func (o *recordingObserver) EntryRemoved(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.removed++
}

func (o *recordingObserver) DeleteRetried(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries++
}

func (o *recordingObserver) CountFailed(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed++
}

func (o *recordingObserver) Pruned(_ string, buckets, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pruned += buckets
}

func (o *recordingObserver) Depth(_ string, depth int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.depth = depth
}

func TestQueueRoot(t *testing.T) {
	path, err := QueueRoot("/var/distq/queues", "agent1")
	require.NoError(t, err)
	require.Equal(t, "/var/distq/queues/agent1", path)

	for _, bad := range []string{"", " ", "a/b", ".", ".."} {
		_, err := QueueRoot("/var/distq/queues", bad)
		require.ErrorIs(t, err, ErrInvalidQueueName, bad)
	}
}

func TestQueueLifecycle(t *testing.T) {
	s := testsupport.NewMemorySession(t)
	obs := &recordingObserver{}
	q, err := Open(t.Context(), s, "/var/distq/queues", "agent1",
		WithIDGenerator(steppingGenerator(jan3, time.Minute)),
		WithObserver(obs),
	)
	require.NoError(t, err)
	require.Equal(t, "agent1", q.Name())
	require.Equal(t, RootType, q.Root().Type)

	empty, err := q.IsEmpty(t.Context())
	require.NoError(t, err)
	require.True(t, empty)
	require.Equal(t, 0, q.Size(t.Context()))

	var added []Entry
	for _, id := range []string{"a", "b", "c"} {
		e, err := q.Add(t.Context(), mustItem(t, id, 1, map[string]any{RequestTypeKey: RequestAdd}))
		require.NoError(t, err)
		require.Equal(t, "agent1", e.Status.Queue)
		added = append(added, e)
	}
	require.Equal(t, 3, q.Size(t.Context()))
	require.Equal(t, 3, obs.added)
	require.Equal(t, 3, obs.depth)

	head, ok, err := q.Head(t.Context())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, added[0].ID, head.ID)

	got, ok, err := q.Entry(t.Context(), added[1].ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b", got.Item.PackageID())

	removed, ok, err := q.Remove(t.Context(), added[0].ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", removed.Item.PackageID())
	require.Equal(t, 1, obs.removed)

	_, ok, err = q.Remove(t.Context(), added[0].ID)
	require.NoError(t, err)
	require.False(t, ok)

	entries, err := q.Entries(t.Context(), 0, 10)
	require.NoError(t, err)
	require.Equal(t, []string{added[1].ID, added[2].ID}, entryIDs(entries))
}

func TestQueueReopenSeesEntries(t *testing.T) {
	backend := testsupport.OpenBackend(t, "sqlite")
	q1, err := Open(t.Context(), tree.NewSession(backend), "/var/distq/queues", "agent1")
	require.NoError(t, err)
	e, err := q1.Add(t.Context(), mustItem(t, "pkg", 42, map[string]any{"paths": "/content"}))
	require.NoError(t, err)

	q2, err := Open(t.Context(), tree.NewSession(backend), "/var/distq/queues", "agent1")
	require.NoError(t, err)
	got, ok, err := q2.Entry(t.Context(), e.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, e.Item.Metadata(), got.Item.Metadata())
	require.Equal(t, int64(42), got.Item.Size())
}

func TestLookupNeverCreatesRoot(t *testing.T) {
	backend := testsupport.OpenBackend(t, "memory")
	base := "/var/distq/queues"

	_, err := Lookup(t.Context(), tree.NewSession(backend), base, "agent1")
	require.ErrorIs(t, err, ErrQueueNotFound)
	_, ok, err := backend.Lookup(t.Context(), base+"/agent1")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = Lookup(t.Context(), tree.NewSession(backend), base, "../x")
	require.ErrorIs(t, err, ErrInvalidQueueName)

	opened, err := Open(t.Context(), tree.NewSession(backend), base, "agent1")
	require.NoError(t, err)
	_, err = opened.Add(t.Context(), mustItem(t, "pkg", 1, nil))
	require.NoError(t, err)

	found, err := Lookup(t.Context(), tree.NewSession(backend), base, "agent1")
	require.NoError(t, err)
	require.Equal(t, 1, found.Size(t.Context()))

	// The shared parent is an ordered folder, not a queue root.
	_, err = Lookup(t.Context(), tree.NewSession(backend), "/var/distq", "queues")
	require.ErrorIs(t, err, ErrQueueNotFound)
}

func TestQueueReportsRetriesAndCountFailures(t *testing.T) {
	backend := testsupport.NewFaultyBackend()
	obs := &recordingObserver{}
	q, err := Open(t.Context(), tree.NewSession(backend), "/var/distq/queues", "agent1", WithObserver(obs))
	require.NoError(t, err)
	e, err := q.Add(t.Context(), mustItem(t, "pkg", 1, nil))
	require.NoError(t, err)

	backend.FailApply(tree.ErrConflict)
	_, ok, err := q.Remove(t.Context(), e.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, obs.retries)

	backend.CountErr = tree.ErrNotFound
	require.Equal(t, CountUnavailable, q.Size(t.Context()))
	require.Equal(t, 1, obs.failed)
}

func TestQueuePruneUsesGeneratorBucket(t *testing.T) {
	s := testsupport.NewMemorySession(t)
	obs := &recordingObserver{}
	now := at(2018, time.January, 3, 23, 54)
	g := NewIDGenerator(WithLocation(time.UTC), WithClock(func() time.Time { return now }))
	q, err := Open(t.Context(), s, "/var/distq/queues", "agent1", WithIDGenerator(g), WithObserver(obs))
	require.NoError(t, err)

	e, err := q.Add(t.Context(), mustItem(t, "pkg", 1, nil))
	require.NoError(t, err)
	_, _, err = q.Remove(t.Context(), e.ID)
	require.NoError(t, err)

	res, err := q.Prune(t.Context(), PruneOptions{})
	require.NoError(t, err)
	require.Empty(t, res.Deleted)

	now = at(2018, time.March, 1, 0, 0)
	res, err = q.Prune(t.Context(), PruneOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"2018/01"}, res.Deleted)
	require.Equal(t, 1, obs.pruned)
}
