package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"distq/internal/logging"
	"distq/internal/tree"
)

// Queue is a named queue rooted in a tree store. A Queue shares its session
// and must not be used from more than one goroutine at a time.
type Queue struct {
	session  *tree.Session
	root     tree.Node
	name     string
	ids      *IDGenerator
	observer Observer
	logger   *slog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithIDGenerator sets the generator for new entry ids.
func WithIDGenerator(g *IDGenerator) Option {
	return func(q *Queue) {
		if g != nil {
			q.ids = g
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(q *Queue) {
		if o != nil {
			q.observer = o
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// QueueRoot returns the root path of the queue called name below base.
func QueueRoot(base, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidQueueName, name)
	}
	path := tree.Join(base, name)
	if err := tree.ValidatePath(path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidQueueName, err)
	}
	return path, nil
}

// Open resolves, creating if needed, the queue called name below base.
func Open(ctx context.Context, s *tree.Session, base, name string, opts ...Option) (*Queue, error) {
	q, rootPath, err := newQueue(s, base, name, opts)
	if err != nil {
		return nil, err
	}
	root, err := RootNode(ctx, s, rootPath)
	if err != nil {
		return nil, err
	}
	q.root = root
	return q, nil
}

// Lookup resolves the existing queue called name below base without writing
// to the store. A queue that was never created reports ErrQueueNotFound.
func Lookup(ctx context.Context, s *tree.Session, base, name string, opts ...Option) (*Queue, error) {
	q, rootPath, err := newQueue(s, base, name, opts)
	if err != nil {
		return nil, err
	}
	root, ok, err := s.Get(ctx, rootPath)
	if err != nil {
		return nil, fmt.Errorf("queue root %s: %w", rootPath, err)
	}
	if !ok || root.Type != RootType {
		return nil, fmt.Errorf("%w: %q", ErrQueueNotFound, name)
	}
	q.root = root
	return q, nil
}

func newQueue(s *tree.Session, base, name string, opts []Option) (*Queue, string, error) {
	rootPath, err := QueueRoot(base, name)
	if err != nil {
		return nil, "", err
	}
	q := &Queue{
		session:  s,
		name:     name,
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.ids == nil {
		q.ids = NewIDGenerator()
	}
	q.logger = logging.NewComponentLogger(q.logger, "queue").With(logging.String(logging.FieldQueue, name))
	return q, rootPath, nil
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Root returns the queue root node.
func (q *Queue) Root() tree.Node { return q.root }

// Add stores item under a fresh entry id.
func (q *Queue) Add(ctx context.Context, item Item) (Entry, error) {
	id := q.ids.NewEntryID()
	node, err := CreateEntry(ctx, q.session, q.root, id, item)
	if err != nil {
		return Entry{}, err
	}
	entry, ok := ReadEntry(q.root, node)
	if !ok {
		return Entry{}, fmt.Errorf("read back entry %s: %w", id, ErrInvalidItem)
	}
	q.observer.EntryAdded(q.name)
	q.logger.Debug("entry added",
		logging.String(logging.FieldEntryID, id),
		logging.String("package_id", item.PackageID()),
	)
	return entry, nil
}

// Head returns the oldest entry.
func (q *Queue) Head(ctx context.Context) (Entry, bool, error) {
	return Head(ctx, q.session, q.root)
}

// Entries returns a window of entries in queue order.
func (q *Queue) Entries(ctx context.Context, skip, limit int) ([]Entry, error) {
	return Entries(ctx, q.session, q.root, skip, limit)
}

// Entry returns the entry with the given id.
func (q *Queue) Entry(ctx context.Context, id string) (Entry, bool, error) {
	node, ok, err := EntryNode(ctx, q.session, q.root, id)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	entry, ok := ReadEntry(q.root, node)
	return entry, ok, nil
}

// Remove deletes the entry with the given id and returns it. A missing entry
// is reported as absent.
func (q *Queue) Remove(ctx context.Context, id string) (Entry, bool, error) {
	node, ok, err := EntryNode(ctx, q.session, q.root, id)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	entry, ok := ReadEntry(q.root, node)
	if !ok {
		return Entry{}, false, nil
	}
	retried := func() {
		q.observer.DeleteRetried(q.name)
		q.logger.Warn("delete conflict, retrying", logging.String(logging.FieldEntryID, id))
	}
	if err := deleteNode(ctx, q.session, node.Path, retried); err != nil {
		return Entry{}, false, err
	}
	q.observer.EntryRemoved(q.name)
	q.logger.Debug("entry removed", logging.String(logging.FieldEntryID, id))
	return entry, true, nil
}

// Size returns the number of entries, or CountUnavailable.
func (q *Queue) Size(ctx context.Context) int {
	n := Count(ctx, q.session, q.root)
	if n == CountUnavailable {
		q.observer.CountFailed(q.name)
		q.logger.Warn("entry count unavailable")
		return n
	}
	q.observer.Depth(q.name, n)
	return n
}

// IsEmpty reports whether the queue has no readable entry.
func (q *Queue) IsEmpty(ctx context.Context) (bool, error) {
	_, ok, err := q.Head(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Prune deletes past buckets relative to the generator's current bucket.
func (q *Queue) Prune(ctx context.Context, opts PruneOptions) (PruneResult, error) {
	now := q.ids.NowBucket()
	var res PruneResult
	retried := func() { q.observer.DeleteRetried(q.name) }
	err := pruneFolder(ctx, q.session, q.root.Path, "", 1, now, opts, &res, retried)
	if len(res.Deleted) > 0 {
		q.observer.Pruned(q.name, len(res.Deleted), res.Entries)
		q.logger.Info("pruned buckets",
			logging.Int("buckets", len(res.Deleted)),
			logging.Int("entries", res.Entries),
			logging.String("now_bucket", now),
		)
	}
	if err != nil {
		return res, err
	}
	return res, nil
}
