package queue

import (
	"context"
	"errors"
	"fmt"

	"distq/internal/tree"
)

// RootNode returns the queue root at rootPath, creating it and any missing
// ancestors as ordered folders. A conflicting concurrent creation is retried
// once against fresh state.
func RootNode(ctx context.Context, s *tree.Session, rootPath string) (tree.Node, error) {
	var root tree.Node
	spec := tree.CreateSpec{
		Type:               RootType,
		IntermediateType:   FolderType,
		CreateIntermediate: true,
	}
	err := singleRetryPolicy.Do(ctx, func(int) error {
		node, err := s.GetOrCreate(ctx, rootPath, spec)
		if err != nil {
			return err
		}
		if err := s.Commit(ctx); err != nil {
			return err
		}
		root = node
		return nil
	}, refreshSession(s))
	if err != nil {
		return tree.Node{}, fmt.Errorf("queue root %s: %w", rootPath, err)
	}
	return root, nil
}

// CreateEntry stores item under root at the path encoded in id and commits.
// An existing node at that path is returned unchanged.
func CreateEntry(ctx context.Context, s *tree.Session, root tree.Node, id string, item Item) (tree.Node, error) {
	path, ok := pathFromID(root.Path, id)
	if !ok {
		return tree.Node{}, fmt.Errorf("%w: %q", ErrInvalidEntryID, id)
	}
	if err := tree.ValidatePath(path); err != nil {
		return tree.Node{}, fmt.Errorf("%w: %q", ErrInvalidEntryID, id)
	}
	props := Serialize(item)
	props[ResourceTypeProperty] = ItemType

	node, err := s.GetOrCreate(ctx, path, tree.CreateSpec{
		Type:               ItemType,
		IntermediateType:   FolderType,
		Props:              props,
		CreateIntermediate: true,
	})
	if err != nil {
		return tree.Node{}, fmt.Errorf("create entry %s: %w", id, err)
	}
	if err := s.Commit(ctx); err != nil {
		s.Revert()
		return tree.Node{}, fmt.Errorf("create entry %s: %w", id, err)
	}
	return node, nil
}

// EntryNode resolves id below root. Foreign ids and missing nodes are absent.
func EntryNode(ctx context.Context, s *tree.Session, root tree.Node, id string) (tree.Node, bool, error) {
	path, ok := pathFromID(root.Path, id)
	if !ok || tree.ValidatePath(path) != nil {
		return tree.Node{}, false, nil
	}
	return s.Get(ctx, path)
}

// DeleteNode deletes node and its subtree and commits. After a conflict the
// session is reverted and refreshed, the node is resolved again and the
// delete is tried once more; a node that is gone by then counts as deleted.
func DeleteNode(ctx context.Context, s *tree.Session, node tree.Node) error {
	return deleteNode(ctx, s, node.Path, nil)
}

func deleteNode(ctx context.Context, s *tree.Session, path string, onRetry func()) error {
	recoverFn := refreshSession(s)
	if onRetry != nil {
		recoverFn = func() error {
			onRetry()
			return refreshSession(s)()
		}
	}
	err := singleRetryPolicy.Do(ctx, func(attempt int) error {
		if attempt > 0 {
			if _, ok, err := s.Get(ctx, path); err != nil {
				return err
			} else if !ok {
				return nil
			}
		}
		if err := s.Delete(ctx, path); err != nil {
			if errors.Is(err, tree.ErrNotFound) {
				return nil
			}
			return err
		}
		return s.Commit(ctx)
	}, recoverFn)
	if err != nil {
		s.Revert()
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func refreshSession(s *tree.Session) func() error {
	return func() error {
		s.Revert()
		s.Refresh()
		return nil
	}
}
