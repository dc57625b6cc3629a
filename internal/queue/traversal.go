package queue

import (
	"context"
	"iter"
	"slices"
	"strings"

	"distq/internal/tree"
)

// CountUnavailable is returned by Count when the store cannot answer.
const CountUnavailable = -1

// ReadEntry converts node into an entry of the queue rooted at root. Nodes
// outside the root, nodes of another type and unreadable items are absent.
func ReadEntry(root, node tree.Node) (Entry, bool) {
	if root.Path == "" || !tree.Within(root.Path, node.Path) || root.Path == tree.RootPath {
		return Entry{}, false
	}
	if node.Type != ItemType {
		return Entry{}, false
	}
	item, err := Deserialize(node.Props)
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		ID:     idFromPath(root.Path, node.Path),
		Item:   item,
		Status: ItemStatus{State: StateQueued, Queue: root.Name()},
	}, true
}

// Walk yields the leaves below root depth first. Bucket folders are visited
// in name order, which is time order because bucket segments are zero
// padded, so a bucket created late by a writer with a lagging clock still
// sorts before newer ones. Items keep the store's insertion order. Iteration
// stops at the first store error, which is yielded.
func Walk(ctx context.Context, s *tree.Session, root tree.Node) iter.Seq2[tree.Node, error] {
	return func(yield func(tree.Node, error) bool) {
		walkFolder(ctx, s, root.Path, yield)
	}
}

func walkFolder(ctx context.Context, s *tree.Session, path string, yield func(tree.Node, error) bool) bool {
	if err := ctx.Err(); err != nil {
		yield(tree.Node{}, err)
		return false
	}
	children, err := s.Children(ctx, path)
	if err != nil {
		yield(tree.Node{}, err)
		return false
	}
	for _, child := range sortFolders(children) {
		if child.Type == FolderType {
			if !walkFolder(ctx, s, child.Path, yield) {
				return false
			}
			continue
		}
		if !yield(child, nil) {
			return false
		}
	}
	return true
}

// sortFolders orders the folder children by name in place, leaving every
// other child in its position.
func sortFolders(children []tree.Node) []tree.Node {
	var slots []int
	var folders []tree.Node
	for i, child := range children {
		if child.Type == FolderType {
			slots = append(slots, i)
			folders = append(folders, child)
		}
	}
	if len(folders) < 2 {
		return children
	}
	slices.SortStableFunc(folders, func(a, b tree.Node) int {
		return strings.Compare(a.Name(), b.Name())
	})
	for i, slot := range slots {
		children[slot] = folders[i]
	}
	return children
}

// Entries returns up to limit entries after skipping the first skip leaves.
// Leaves that are not readable entries still count toward skip but are not
// returned.
func Entries(ctx context.Context, s *tree.Session, root tree.Node, skip, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	entries := make([]Entry, 0, min(limit, 64))
	i := 0
	for node, err := range Walk(ctx, s, root) {
		if err != nil {
			return nil, err
		}
		if i >= skip {
			if entry, ok := ReadEntry(root, node); ok {
				entries = append(entries, entry)
			}
		}
		i++
		if len(entries) >= limit {
			break
		}
	}
	return entries, nil
}

// Head returns the oldest entry.
func Head(ctx context.Context, s *tree.Session, root tree.Node) (Entry, bool, error) {
	entries, err := Entries(ctx, s, root, 0, 1)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}

// Count returns the number of committed items below root, or
// CountUnavailable when the store fails.
func Count(ctx context.Context, s *tree.Session, root tree.Node) int {
	n, err := s.Count(ctx, root.Path, ItemType)
	if err != nil {
		return CountUnavailable
	}
	return n
}
