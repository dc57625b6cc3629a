// Package memtree keeps a tree.Backend in process memory. It backs tests and
// the "memory" store setting.
package memtree

import (
	"context"
	"sync"

	"distq/internal/tree"
)

type entry struct {
	node     tree.Node
	children []string
}

// Backend is an in-memory tree.Backend.
type Backend struct {
	mu    sync.RWMutex
	nodes map[string]*entry
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{nodes: map[string]*entry{tree.RootPath: {node: tree.Node{Path: tree.RootPath}}}}
}

// Lookup implements tree.Backend.
func (b *Backend) Lookup(_ context.Context, path string) (tree.Node, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.nodes[path]
	if !ok {
		return tree.Node{}, false, nil
	}
	return copyNode(e.node), true, nil
}

// Children implements tree.Backend.
func (b *Backend) Children(_ context.Context, path string) ([]tree.Node, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.nodes[path]
	if !ok {
		return nil, nil
	}
	out := make([]tree.Node, 0, len(e.children))
	for _, child := range e.children {
		out = append(out, copyNode(b.nodes[child].node))
	}
	return out, nil
}

// CountType implements tree.Backend.
func (b *Backend) CountType(_ context.Context, root, nodeType string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	count := 0
	for path, e := range b.nodes {
		if e.node.Type == nodeType && tree.Within(root, path) {
			count++
		}
	}
	return count, nil
}

// Apply implements tree.Backend. Changes are made on a copy-on-write overlay
// and published only when every op succeeds.
func (b *Backend) Apply(_ context.Context, ops []tree.Op) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx := &txn{base: b.nodes, touched: map[string]*entry{}, removed: map[string]struct{}{}}
	if err := tree.ApplyOps(tx, ops); err != nil {
		return err
	}
	for path := range tx.removed {
		delete(b.nodes, path)
	}
	for path, e := range tx.touched {
		b.nodes[path] = e
	}
	return nil
}

// Close implements tree.Backend.
func (b *Backend) Close() error { return nil }

type txn struct {
	base    map[string]*entry
	touched map[string]*entry
	removed map[string]struct{}
}

func (t *txn) get(path string) (*entry, bool) {
	if _, gone := t.removed[path]; gone {
		return nil, false
	}
	if e, ok := t.touched[path]; ok {
		return e, true
	}
	e, ok := t.base[path]
	return e, ok
}

// mutable returns a private copy of the entry at path.
func (t *txn) mutable(path string) *entry {
	if e, ok := t.touched[path]; ok {
		return e
	}
	e, _ := t.get(path)
	cp := &entry{node: e.node, children: append([]string(nil), e.children...)}
	t.touched[path] = cp
	return cp
}

func (t *txn) Exists(path string) (bool, error) {
	_, ok := t.get(path)
	return ok, nil
}

func (t *txn) Put(node tree.Node) error {
	delete(t.removed, node.Path)
	t.touched[node.Path] = &entry{node: copyNode(node)}
	parent := t.mutable(tree.Parent(node.Path))
	parent.children = append(parent.children, node.Path)
	return nil
}

func (t *txn) DeleteTree(path string) error {
	e, _ := t.get(path)
	children := append([]string(nil), e.children...)
	for _, child := range children {
		if err := t.DeleteTree(child); err != nil {
			return err
		}
	}
	delete(t.touched, path)
	t.removed[path] = struct{}{}

	parent := t.mutable(tree.Parent(path))
	kept := parent.children[:0]
	for _, c := range parent.children {
		if c != path {
			kept = append(kept, c)
		}
	}
	parent.children = kept
	return nil
}

func copyNode(n tree.Node) tree.Node {
	n.Props = n.Props.Clone()
	return n
}
