// Package treetest holds the behaviour every tree.Backend must share. Each
// backend package runs Run from its own tests.
package treetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"distq/internal/tree"
)

// Opener returns a fresh, empty backend for one subtest.
type Opener func(t *testing.T) tree.Backend

// Run exercises a backend implementation.
func Run(t *testing.T, open Opener) {
	t.Helper()
	cases := []struct {
		name string
		fn   func(*testing.T, tree.Backend)
	}{
		{"RootAlwaysExists", testRootAlwaysExists},
		{"CreateAndLookup", testCreateAndLookup},
		{"ChildrenInInsertionOrder", testChildrenInInsertionOrder},
		{"EnsureIsIdempotent", testEnsureIsIdempotent},
		{"CreateExistingConflictsAtomically", testCreateExistingConflicts},
		{"DeleteMissingConflicts", testDeleteMissingConflicts},
		{"ParentGoneConflicts", testParentGoneConflicts},
		{"DeleteRemovesSubtreeOnly", testDeleteRemovesSubtreeOnly},
		{"RecreateAppendsToChildren", testRecreateAppends},
		{"CountType", testCountType},
		{"ConcurrentApply", testConcurrentApply},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := open(t)
			tc.fn(t, backend)
		})
	}
}

func ensure(path, typ string) tree.Op {
	return tree.Op{Kind: tree.OpEnsure, Node: tree.Node{Path: path, Type: typ}}
}

func create(path, typ string, props tree.Properties) tree.Op {
	return tree.Op{Kind: tree.OpCreate, Node: tree.Node{Path: path, Type: typ, Props: props}}
}

func del(path string) tree.Op {
	return tree.Op{Kind: tree.OpDelete, Node: tree.Node{Path: path}}
}

func childNames(t *testing.T, b tree.Backend, path string) []string {
	t.Helper()
	children, err := b.Children(context.Background(), path)
	require.NoError(t, err)
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name())
	}
	return names
}

func exists(t *testing.T, b tree.Backend, path string) bool {
	t.Helper()
	_, ok, err := b.Lookup(context.Background(), path)
	require.NoError(t, err)
	return ok
}

func testRootAlwaysExists(t *testing.T, b tree.Backend) {
	node, ok, err := b.Lookup(t.Context(), tree.RootPath)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tree.RootPath, node.Path)
	require.Empty(t, childNames(t, b, tree.RootPath))
	require.Error(t, b.Apply(t.Context(), []tree.Op{del(tree.RootPath)}))
}

func testCreateAndLookup(t *testing.T, b tree.Backend) {
	props := tree.Properties{"s": "text", "n": int64(-7), "f": 2.5, "b": true}
	require.NoError(t, b.Apply(t.Context(), []tree.Op{
		ensure("/a", "folder"),
		create("/a/leaf", "leaf", props),
	}))

	node, ok, err := b.Lookup(t.Context(), "/a/leaf")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "leaf", node.Type)
	require.Equal(t, props, node.Props)

	_, ok, err = b.Lookup(t.Context(), "/a/missing")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, childNames(t, b, "/a/missing"))
}

func testChildrenInInsertionOrder(t *testing.T, b tree.Backend) {
	require.NoError(t, b.Apply(t.Context(), []tree.Op{
		ensure("/q", "folder"),
		create("/q/b", "leaf", nil),
		create("/q/a", "leaf", nil),
	}))
	require.NoError(t, b.Apply(t.Context(), []tree.Op{create("/q/c", "leaf", nil)}))
	require.Equal(t, []string{"b", "a", "c"}, childNames(t, b, "/q"))
}

func testEnsureIsIdempotent(t *testing.T, b tree.Backend) {
	require.NoError(t, b.Apply(t.Context(), []tree.Op{create("/e", "first", nil)}))
	require.NoError(t, b.Apply(t.Context(), []tree.Op{ensure("/e", "second")}))
	node, _, err := b.Lookup(t.Context(), "/e")
	require.NoError(t, err)
	require.Equal(t, "first", node.Type)
}

func testCreateExistingConflicts(t *testing.T, b tree.Backend) {
	require.NoError(t, b.Apply(t.Context(), []tree.Op{create("/x", "leaf", nil)}))
	err := b.Apply(t.Context(), []tree.Op{
		create("/y", "leaf", nil),
		create("/x", "leaf", nil),
	})
	require.ErrorIs(t, err, tree.ErrConflict)
	require.False(t, exists(t, b, "/y"))
	require.Equal(t, []string{"x"}, childNames(t, b, tree.RootPath))
}

func testDeleteMissingConflicts(t *testing.T, b tree.Backend) {
	require.ErrorIs(t, b.Apply(t.Context(), []tree.Op{del("/nothing")}), tree.ErrConflict)
}

func testParentGoneConflicts(t *testing.T, b tree.Backend) {
	require.ErrorIs(t, b.Apply(t.Context(), []tree.Op{create("/p/c", "leaf", nil)}), tree.ErrConflict)
}

func testDeleteRemovesSubtreeOnly(t *testing.T, b tree.Backend) {
	require.NoError(t, b.Apply(t.Context(), []tree.Op{
		ensure("/a", "folder"),
		ensure("/a/b", "folder"),
		create("/a/b/c", "leaf", nil),
		create("/a/b/c2", "leaf", nil),
		create("/a/bc", "leaf", nil),
	}))
	require.NoError(t, b.Apply(t.Context(), []tree.Op{del("/a/b")}))

	require.False(t, exists(t, b, "/a/b"))
	require.False(t, exists(t, b, "/a/b/c"))
	require.True(t, exists(t, b, "/a/bc"))
	require.Equal(t, []string{"bc"}, childNames(t, b, "/a"))
	require.Empty(t, childNames(t, b, "/a/b"))
}

func testRecreateAppends(t *testing.T, b tree.Backend) {
	require.NoError(t, b.Apply(t.Context(), []tree.Op{
		ensure("/r", "folder"),
		create("/r/1", "leaf", nil),
		create("/r/2", "leaf", nil),
	}))
	require.NoError(t, b.Apply(t.Context(), []tree.Op{del("/r/1")}))
	require.NoError(t, b.Apply(t.Context(), []tree.Op{create("/r/1", "leaf", tree.Properties{"v": int64(2)})}))
	require.Equal(t, []string{"2", "1"}, childNames(t, b, "/r"))

	node, _, err := b.Lookup(t.Context(), "/r/1")
	require.NoError(t, err)
	require.Equal(t, int64(2), node.Props["v"])
}

func testCountType(t *testing.T, b tree.Backend) {
	require.NoError(t, b.Apply(t.Context(), []tree.Op{
		ensure("/c", "folder"),
		ensure("/c/2018", "folder"),
		create("/c/2018/1", "item", nil),
		create("/c/2018/2", "item", nil),
		create("/c/3", "item", nil),
		create("/cx", "item", nil),
	}))
	ctx := t.Context()
	n, err := b.CountType(ctx, "/c", "item")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = b.CountType(ctx, "/c/2018", "item")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = b.CountType(ctx, tree.RootPath, "item")
	require.NoError(t, err)
	require.Equal(t, 4, n)

	n, err = b.CountType(ctx, "/c", "folder")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = b.CountType(ctx, "/missing", "item")
	require.NoError(t, err)
	require.Zero(t, n)
}

func testConcurrentApply(t *testing.T, b tree.Backend) {
	require.NoError(t, b.Apply(t.Context(), []tree.Op{ensure("/w", "folder")}))

	var eg errgroup.Group
	for i := range 8 {
		eg.Go(func() error {
			for j := range 10 {
				path := fmt.Sprintf("/w/%d-%d", i, j)
				if err := b.Apply(context.Background(), []tree.Op{create(path, "item", nil)}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	n, err := b.CountType(t.Context(), "/w", "item")
	require.NoError(t, err)
	require.Equal(t, 80, n)
	require.Len(t, childNames(t, b, "/w"), 80)
}
