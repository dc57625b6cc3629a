package testsupport

import (
	"context"
	"sync"
	"testing"

	"distq/internal/storage"
	"distq/internal/tree"
	"distq/internal/tree/memtree"
)

// OpenBackend opens a backend of the given kind in a temp directory and
// closes it when the test ends.
func OpenBackend(t testing.TB, kind string) tree.Backend {
	t.Helper()

	cfg := NewConfig(t, WithBackend(kind))
	backend, err := storage.Open(cfg, nil)
	if err != nil {
		t.Fatalf("open %s backend: %v", kind, err)
	}
	t.Cleanup(func() {
		_ = backend.Close()
	})
	return backend
}

// NewMemorySession returns a session over a fresh in-memory backend.
func NewMemorySession(t testing.TB) *tree.Session {
	t.Helper()
	return tree.NewSession(memtree.New())
}

// FaultyBackend wraps a backend and injects failures.
type FaultyBackend struct {
	tree.Backend

	mu sync.Mutex
	// ApplyErrs are returned by successive Apply calls before delegating.
	ApplyErrs []error
	// CountErr, when set, is returned by every CountType call.
	CountErr error
	// ChildrenErr, when set, is returned by every Children call.
	ChildrenErr error

	applyCalls int
}

// NewFaultyBackend wraps a fresh in-memory backend.
func NewFaultyBackend() *FaultyBackend {
	return &FaultyBackend{Backend: memtree.New()}
}

// Apply fails with the next queued error, if any.
func (f *FaultyBackend) Apply(ctx context.Context, ops []tree.Op) error {
	f.mu.Lock()
	f.applyCalls++
	if len(f.ApplyErrs) > 0 {
		err := f.ApplyErrs[0]
		f.ApplyErrs = f.ApplyErrs[1:]
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()
	return f.Backend.Apply(ctx, ops)
}

// FailApply queues errors for the next Apply calls.
func (f *FaultyBackend) FailApply(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ApplyErrs = append(f.ApplyErrs, errs...)
}

// ApplyCalls returns the number of Apply calls so far.
func (f *FaultyBackend) ApplyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applyCalls
}

// CountType fails with CountErr when set.
func (f *FaultyBackend) CountType(ctx context.Context, root, nodeType string) (int, error) {
	if f.CountErr != nil {
		return 0, f.CountErr
	}
	return f.Backend.CountType(ctx, root, nodeType)
}

// Children fails with ChildrenErr when set.
func (f *FaultyBackend) Children(ctx context.Context, path string) ([]tree.Node, error) {
	if f.ChildrenErr != nil {
		return nil, f.ChildrenErr
	}
	return f.Backend.Children(ctx, path)
}
