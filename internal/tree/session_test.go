package tree_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"distq/internal/tree"
	"distq/internal/tree/memtree"
)

var folderSpec = tree.CreateSpec{Type: "leaf", IntermediateType: "folder", CreateIntermediate: true}

func TestSessionStagesUntilCommit(t *testing.T) {
	backend := memtree.New()
	s := tree.NewSession(backend)
	ctx := t.Context()

	node, err := s.GetOrCreate(ctx, "/a/b/c", tree.CreateSpec{
		Type:               "leaf",
		IntermediateType:   "folder",
		Props:              tree.Properties{"n": 3},
		CreateIntermediate: true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), node.Props["n"])
	require.True(t, s.HasChanges())

	got, ok, err := s.Get(ctx, "/a/b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "folder", got.Type)

	_, ok, err = backend.Lookup(ctx, "/a/b/c")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Commit(ctx))
	require.False(t, s.HasChanges())
	_, ok, err = backend.Lookup(ctx, "/a/b/c")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSessionGetOrCreateKeepsExisting(t *testing.T) {
	s := tree.NewSession(memtree.New())
	ctx := t.Context()
	_, err := s.GetOrCreate(ctx, "/x", tree.CreateSpec{Type: "leaf", Props: tree.Properties{"v": "old"}})
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx))

	node, err := s.GetOrCreate(ctx, "/x", tree.CreateSpec{Type: "other", Props: tree.Properties{"v": "new"}})
	require.NoError(t, err)
	require.Equal(t, "leaf", node.Type)
	require.Equal(t, "old", node.Props["v"])
	require.False(t, s.HasChanges())
}

func TestSessionRequiresParentWithoutIntermediate(t *testing.T) {
	s := tree.NewSession(memtree.New())
	_, err := s.GetOrCreate(t.Context(), "/p/c", tree.CreateSpec{Type: "leaf"})
	require.ErrorIs(t, err, tree.ErrParentMissing)

	_, err = s.GetOrCreate(t.Context(), "relative", folderSpec)
	require.ErrorIs(t, err, tree.ErrInvalidPath)

	_, err = s.GetOrCreate(t.Context(), "/bad", tree.CreateSpec{Type: "leaf", Props: tree.Properties{"k": []int{1}}})
	require.Error(t, err)
}

func TestSessionChildrenMergesPending(t *testing.T) {
	s := tree.NewSession(memtree.New())
	ctx := t.Context()
	for _, p := range []string{"/q/1", "/q/2"} {
		_, err := s.GetOrCreate(ctx, p, folderSpec)
		require.NoError(t, err)
	}
	require.NoError(t, s.Commit(ctx))

	_, err := s.GetOrCreate(ctx, "/q/3", folderSpec)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "/q/1"))

	children, err := s.Children(ctx, "/q")
	require.NoError(t, err)
	var paths []string
	for _, c := range children {
		paths = append(paths, c.Path)
	}
	require.Equal(t, []string{"/q/2", "/q/3"}, paths)
}

func TestSessionDeleteHidesSubtree(t *testing.T) {
	s := tree.NewSession(memtree.New())
	ctx := t.Context()
	_, err := s.GetOrCreate(ctx, "/d/e/f", folderSpec)
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx))

	require.NoError(t, s.Delete(ctx, "/d/e"))
	_, ok, err := s.Get(ctx, "/d/e/f")
	require.NoError(t, err)
	require.False(t, ok)
	children, err := s.Children(ctx, "/d/e")
	require.NoError(t, err)
	require.Empty(t, children)

	require.NoError(t, s.Commit(ctx))
	n, err := s.Count(ctx, "/d", "leaf")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSessionDeletePendingDropsOps(t *testing.T) {
	s := tree.NewSession(memtree.New())
	ctx := t.Context()
	_, err := s.GetOrCreate(ctx, "/tmp/x", folderSpec)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "/tmp"))
	require.False(t, s.HasChanges())

	require.ErrorIs(t, s.Delete(ctx, "/tmp"), tree.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, tree.RootPath), tree.ErrInvalidPath)
}

func TestSessionCommitFailureKeepsOverlay(t *testing.T) {
	backend := memtree.New()
	s1 := tree.NewSession(backend)
	s2 := tree.NewSession(backend)
	ctx := t.Context()

	_, err := s1.GetOrCreate(ctx, "/same", tree.CreateSpec{Type: "leaf"})
	require.NoError(t, err)
	_, err = s2.GetOrCreate(ctx, "/same", tree.CreateSpec{Type: "leaf"})
	require.NoError(t, err)
	require.NoError(t, s1.Commit(ctx))

	err = s2.Commit(ctx)
	require.True(t, errors.Is(err, tree.ErrConflict), "got %v", err)
	require.True(t, s2.HasChanges())

	s2.Revert()
	s2.Refresh()
	require.False(t, s2.HasChanges())
	_, ok, err := s2.Get(ctx, "/same")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSessionRefreshDropsCachedReads(t *testing.T) {
	backend := memtree.New()
	reader := tree.NewSession(backend)
	writer := tree.NewSession(backend)
	ctx := t.Context()

	_, ok, err := reader.Get(ctx, "/late")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = writer.GetOrCreate(ctx, "/late", tree.CreateSpec{Type: "leaf"})
	require.NoError(t, err)
	require.NoError(t, writer.Commit(ctx))

	_, ok, _ = reader.Get(ctx, "/late")
	require.False(t, ok)
	reader.Refresh()
	_, ok, _ = reader.Get(ctx, "/late")
	require.True(t, ok)
}
