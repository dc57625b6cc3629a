package tree

import (
	"context"
	"fmt"
)

// Backend stores committed nodes.
type Backend interface {
	// Lookup returns the committed node at path.
	Lookup(ctx context.Context, path string) (Node, bool, error)
	// Children returns the direct children of path in insertion order.
	Children(ctx context.Context, path string) ([]Node, error)
	// CountType counts nodes of nodeType strictly below root.
	CountType(ctx context.Context, root, nodeType string) (int, error)
	// Apply commits ops atomically.
	Apply(ctx context.Context, ops []Op) error
	Close() error
}

// OpKind enumerates staged change kinds.
type OpKind int

const (
	// OpEnsure creates the node unless it already exists.
	OpEnsure OpKind = iota + 1
	// OpCreate creates the node and conflicts when it exists.
	OpCreate
	// OpDelete removes the node and its subtree and conflicts when it is gone.
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpEnsure:
		return "ensure"
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Op is one staged change.
type Op struct {
	Kind OpKind
	Node Node
}

// Writer is the transactional surface a backend exposes to ApplyOps.
type Writer interface {
	Exists(path string) (bool, error)
	Put(node Node) error
	DeleteTree(path string) error
}

// ApplyOps validates and replays ops against w. Backends call it inside
// their own transaction and discard the transaction when it fails.
func ApplyOps(w Writer, ops []Op) error {
	for _, op := range ops {
		path := op.Node.Path
		if err := ValidatePath(path); err != nil {
			return err
		}
		if path == RootPath {
			return fmt.Errorf("%w: %s on root", ErrInvalidPath, op.Kind)
		}
		exists, err := w.Exists(path)
		if err != nil {
			return fmt.Errorf("%s %s: %w", op.Kind, path, err)
		}
		switch op.Kind {
		case OpEnsure, OpCreate:
			if exists {
				if op.Kind == OpEnsure {
					continue
				}
				return fmt.Errorf("%w: create %s: node exists", ErrConflict, path)
			}
			if parent := Parent(path); parent != RootPath {
				ok, err := w.Exists(parent)
				if err != nil {
					return fmt.Errorf("%s %s: %w", op.Kind, path, err)
				}
				if !ok {
					return fmt.Errorf("%w: %s %s: parent gone", ErrConflict, op.Kind, path)
				}
			}
			if err := w.Put(op.Node); err != nil {
				return fmt.Errorf("%s %s: %w", op.Kind, path, err)
			}
		case OpDelete:
			if !exists {
				return fmt.Errorf("%w: delete %s: node gone", ErrConflict, path)
			}
			if err := w.DeleteTree(path); err != nil {
				return fmt.Errorf("delete %s: %w", path, err)
			}
		default:
			return fmt.Errorf("tree: unknown op kind %d", int(op.Kind))
		}
	}
	return nil
}
