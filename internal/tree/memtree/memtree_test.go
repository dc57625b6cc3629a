package memtree_test

import (
	"testing"

	"distq/internal/tree"
	"distq/internal/tree/memtree"
	"distq/internal/tree/treetest"
)

func TestBackend(t *testing.T) {
	treetest.Run(t, func(*testing.T) tree.Backend { return memtree.New() })
}
