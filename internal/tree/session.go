package tree

import (
	"context"
	"fmt"
)

// CreateSpec describes a get-or-create request.
type CreateSpec struct {
	// Type is the node type of the requested node.
	Type string
	// IntermediateType is used for missing ancestors.
	IntermediateType string
	// Props are written only when the node is created.
	Props Properties
	// CreateIntermediate allows missing ancestors to be created.
	CreateIntermediate bool
}

type cachedNode struct {
	node   Node
	exists bool
}

// Session stages changes against a Backend.
type Session struct {
	backend Backend
	pending map[string]Node
	deleted map[string]struct{}
	ops     []Op
	cache   map[string]cachedNode
}

// NewSession creates an empty session over backend.
func NewSession(backend Backend) *Session {
	s := &Session{backend: backend}
	s.Revert()
	s.Refresh()
	return s
}

// Backend returns the committed store behind the session.
func (s *Session) Backend() Backend { return s.backend }

// HasChanges reports whether changes are staged.
func (s *Session) HasChanges() bool { return len(s.ops) > 0 }

// Get returns the node at path as seen through pending changes.
func (s *Session) Get(ctx context.Context, path string) (Node, bool, error) {
	if err := ValidatePath(path); err != nil {
		return Node{}, false, err
	}
	if path == RootPath {
		return Node{Path: RootPath}, true, nil
	}
	if n, ok := s.pending[path]; ok {
		return n, true, nil
	}
	if s.isDeleted(path) {
		return Node{}, false, nil
	}
	return s.lookup(ctx, path)
}

func (s *Session) lookup(ctx context.Context, path string) (Node, bool, error) {
	if c, ok := s.cache[path]; ok {
		return c.node, c.exists, nil
	}
	n, ok, err := s.backend.Lookup(ctx, path)
	if err != nil {
		return Node{}, false, fmt.Errorf("lookup %s: %w", path, err)
	}
	s.cache[path] = cachedNode{node: n, exists: ok}
	return n, ok, nil
}

// GetOrCreate returns the node at path, staging its creation when missing.
// Properties of an existing node are left untouched.
func (s *Session) GetOrCreate(ctx context.Context, path string, spec CreateSpec) (Node, error) {
	return s.getOrCreate(ctx, path, spec, OpCreate)
}

func (s *Session) getOrCreate(ctx context.Context, path string, spec CreateSpec, kind OpKind) (Node, error) {
	n, ok, err := s.Get(ctx, path)
	if err != nil {
		return Node{}, err
	}
	if ok {
		return n, nil
	}

	parent := Parent(path)
	if _, ok, err := s.Get(ctx, parent); err != nil {
		return Node{}, err
	} else if !ok {
		if !spec.CreateIntermediate {
			return Node{}, fmt.Errorf("%w: %s", ErrParentMissing, parent)
		}
		folder := CreateSpec{
			Type:               spec.IntermediateType,
			IntermediateType:   spec.IntermediateType,
			CreateIntermediate: true,
		}
		if _, err := s.getOrCreate(ctx, parent, folder, OpEnsure); err != nil {
			return Node{}, err
		}
	}

	props, err := NormalizeProperties(spec.Props)
	if err != nil {
		return Node{}, fmt.Errorf("create %s: %w", path, err)
	}
	node := Node{Path: path, Type: spec.Type, Props: props}
	s.pending[path] = node
	s.ops = append(s.ops, Op{Kind: kind, Node: node})
	return node, nil
}

// Children lists the children of path, committed ones first in store order
// followed by pending ones in staging order.
func (s *Session) Children(ctx context.Context, path string) ([]Node, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	var out []Node
	if path == RootPath || !s.isDeleted(path) {
		committed, err := s.backend.Children(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("children %s: %w", path, err)
		}
		for _, child := range committed {
			if s.isDeleted(child.Path) {
				continue
			}
			if _, ok := s.pending[child.Path]; ok {
				continue
			}
			s.cache[child.Path] = cachedNode{node: child, exists: true}
			out = append(out, child)
		}
	}
	for _, op := range s.ops {
		if op.Kind == OpDelete || Parent(op.Node.Path) != path {
			continue
		}
		if n, ok := s.pending[op.Node.Path]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// Delete stages removal of the node at path and its subtree.
func (s *Session) Delete(ctx context.Context, path string) error {
	if path == RootPath {
		return fmt.Errorf("%w: cannot delete root", ErrInvalidPath)
	}
	if _, ok, err := s.Get(ctx, path); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	for p := range s.pending {
		if p == path || Within(path, p) {
			delete(s.pending, p)
		}
	}
	kept := s.ops[:0]
	for _, op := range s.ops {
		if op.Kind != OpDelete && (op.Node.Path == path || Within(path, op.Node.Path)) {
			continue
		}
		kept = append(kept, op)
	}
	s.ops = kept

	if s.isDeleted(path) {
		return nil
	}
	_, committed, err := s.lookup(ctx, path)
	if err != nil {
		return err
	}
	if committed {
		s.deleted[path] = struct{}{}
		s.ops = append(s.ops, Op{Kind: OpDelete, Node: Node{Path: path}})
	}
	return nil
}

// Count counts committed nodes of nodeType below root.
func (s *Session) Count(ctx context.Context, root, nodeType string) (int, error) {
	return s.backend.CountType(ctx, root, nodeType)
}

// Commit applies staged changes. On failure the changes stay staged so the
// caller can Revert.
func (s *Session) Commit(ctx context.Context) error {
	if len(s.ops) == 0 {
		return nil
	}
	if err := s.backend.Apply(ctx, s.ops); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.Revert()
	s.Refresh()
	return nil
}

// Revert drops staged changes.
func (s *Session) Revert() {
	s.pending = make(map[string]Node)
	s.deleted = make(map[string]struct{})
	s.ops = nil
}

// Refresh discards cached reads.
func (s *Session) Refresh() {
	s.cache = make(map[string]cachedNode)
}

func (s *Session) isDeleted(path string) bool {
	if len(s.deleted) == 0 {
		return false
	}
	for p := path; p != RootPath; p = Parent(p) {
		if _, ok := s.deleted[p]; ok {
			return true
		}
	}
	return false
}
