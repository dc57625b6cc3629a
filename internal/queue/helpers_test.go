package queue

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"distq/internal/tree"
)

const testRootPath = "/var/distq/queues/q1"

func newRoot(t *testing.T, s *tree.Session) tree.Node {
	t.Helper()
	root, err := RootNode(t.Context(), s, testRootPath)
	require.NoError(t, err)
	return root
}

// steppingGenerator returns a generator whose clock advances step on every
// reading, starting at start.
func steppingGenerator(start time.Time, step time.Duration) *IDGenerator {
	now := start
	return NewIDGenerator(
		WithLocation(time.UTC),
		WithClock(func() time.Time {
			t := now
			now = now.Add(step)
			return t
		}),
	)
}

func addEntries(t *testing.T, s *tree.Session, root tree.Node, g *IDGenerator, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := range n {
		id := g.NewEntryID()
		_, err := CreateEntry(t.Context(), s, root, id, mustItem(t, fmt.Sprintf("pkg-%d", i), int64(i), nil))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func entryIDs(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

var jan3 = time.Date(2018, time.January, 3, 23, 54, 0, 0, time.UTC)
