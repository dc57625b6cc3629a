package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"distq/internal/testsupport"
	"distq/internal/tree"
	"distq/internal/tree/memtree"
)

func TestRootNodeCreatesFolders(t *testing.T) {
	s := testsupport.NewMemorySession(t)
	root := newRoot(t, s)
	require.Equal(t, RootType, root.Type)
	require.False(t, s.HasChanges())

	parent, ok, err := s.Backend().Lookup(t.Context(), "/var/distq/queues")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, FolderType, parent.Type)

	again, err := RootNode(t.Context(), s, testRootPath)
	require.NoError(t, err)
	require.Equal(t, root.Path, again.Path)
}

func TestRootNodeRetriesConcurrentCreation(t *testing.T) {
	backend := memtree.New()
	s1 := tree.NewSession(backend)
	s2 := tree.NewSession(backend)

	_, ok, err := s2.Get(t.Context(), testRootPath)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = RootNode(t.Context(), s1, testRootPath)
	require.NoError(t, err)

	root, err := RootNode(t.Context(), s2, testRootPath)
	require.NoError(t, err)
	require.Equal(t, RootType, root.Type)
}

func TestCreateEntryAndResolve(t *testing.T) {
	s := testsupport.NewMemorySession(t)
	root := newRoot(t, s)
	g := NewIDGenerator(WithClock(fixedClock(jan3)), WithLocation(time.UTC))
	id := g.NewEntryID()

	node, err := CreateEntry(t.Context(), s, root, id, mustItem(t, "pkg", 12, map[string]any{RequestTypeKey: RequestAdd}))
	require.NoError(t, err)
	require.Equal(t, ItemType, node.Type)
	require.Equal(t, ItemType, node.Props[ResourceTypeProperty])

	committed, ok, err := s.Backend().Lookup(t.Context(), node.Path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ADD", committed.Props["distribution.request.type"])

	bucket, ok, err := s.Backend().Lookup(t.Context(), testRootPath+"/2018/01/03/23/54")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, FolderType, bucket.Type)

	found, ok, err := EntryNode(t.Context(), s, root, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, node.Path, found.Path)
}

func TestCreateEntryKeepsExistingNode(t *testing.T) {
	s := testsupport.NewMemorySession(t)
	root := newRoot(t, s)
	id := "distrq-2018--01--03--23--54--fixed_0"

	_, err := CreateEntry(t.Context(), s, root, id, mustItem(t, "first", 1, nil))
	require.NoError(t, err)
	node, err := CreateEntry(t.Context(), s, root, id, mustItem(t, "second", 2, nil))
	require.NoError(t, err)
	require.Equal(t, "first", node.Props[PropertyPackageID])
}

func TestCreateEntryRejectsForeignID(t *testing.T) {
	s := testsupport.NewMemorySession(t)
	root := newRoot(t, s)

	for _, id := range []string{"", "job-123", "distrq-", "distrq-a----b"} {
		_, err := CreateEntry(t.Context(), s, root, id, mustItem(t, "pkg", 1, nil))
		require.ErrorIs(t, err, ErrInvalidEntryID, id)
	}
	require.False(t, s.HasChanges())
}

func TestEntryNodeAbsent(t *testing.T) {
	s := testsupport.NewMemorySession(t)
	root := newRoot(t, s)

	_, ok, err := EntryNode(t.Context(), s, root, "bogus")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = EntryNode(t.Context(), s, root, "distrq-2018--01--missing_0")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteNodeRemovesSubtree(t *testing.T) {
	s := testsupport.NewMemorySession(t)
	root := newRoot(t, s)
	addEntries(t, s, root, steppingGenerator(jan3, time.Minute), 3)

	bucket, ok, err := s.Get(t.Context(), testRootPath+"/2018")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, DeleteNode(t.Context(), s, bucket))
	require.Equal(t, 0, Count(t.Context(), s, root))
}

func TestDeleteNodeRetriesAfterStaleRead(t *testing.T) {
	backend := memtree.New()
	s1 := tree.NewSession(backend)
	s2 := tree.NewSession(backend)
	root := newRoot(t, s1)
	ids := addEntries(t, s1, root, steppingGenerator(jan3, time.Minute), 1)

	stale, ok, err := EntryNode(t.Context(), s2, root, ids[0])
	require.NoError(t, err)
	require.True(t, ok)

	fresh, _, err := EntryNode(t.Context(), s1, root, ids[0])
	require.NoError(t, err)
	require.NoError(t, DeleteNode(t.Context(), s1, fresh))

	// s2 still sees the node; its commit conflicts and the retry finds it gone.
	require.NoError(t, DeleteNode(t.Context(), s2, stale))
	require.False(t, s2.HasChanges())
}

func TestDeleteNodeRetriesExactlyOnce(t *testing.T) {
	cases := []struct {
		name      string
		failures  []error
		wantCalls int
		wantErr   error
		wantGone  bool
	}{
		{name: "recovers after one conflict", failures: []error{tree.ErrConflict}, wantCalls: 2, wantGone: true},
		{name: "second conflict propagates", failures: []error{tree.ErrConflict, tree.ErrConflict}, wantCalls: 2, wantErr: tree.ErrConflict},
		{name: "other errors are not retried", failures: []error{errDisk}, wantCalls: 1, wantErr: errDisk},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := testsupport.NewFaultyBackend()
			s := tree.NewSession(backend)
			root := newRoot(t, s)
			ids := addEntries(t, s, root, steppingGenerator(jan3, time.Minute), 1)
			node, _, err := EntryNode(t.Context(), s, root, ids[0])
			require.NoError(t, err)

			before := backend.ApplyCalls()
			backend.FailApply(tc.failures...)
			err = DeleteNode(t.Context(), s, node)
			require.Equal(t, tc.wantCalls, backend.ApplyCalls()-before)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}

			_, exists, err := backend.Lookup(t.Context(), node.Path)
			require.NoError(t, err)
			require.Equal(t, !tc.wantGone, exists)
			require.False(t, s.HasChanges())
		})
	}
}

var errDisk = errors.New("disk full")
