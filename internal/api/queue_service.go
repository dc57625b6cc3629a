package api

import (
	"context"
	"errors"

	"distq/internal/queue"
)

// QueueOpener opens the queue called name on a fresh session.
type QueueOpener func(ctx context.Context, name string) (*queue.Queue, error)

// QueueService exposes read-only queue operations returning API DTOs.
type QueueService struct {
	open QueueOpener
}

// NewQueueService constructs a QueueService around the provided opener.
func NewQueueService(open QueueOpener) *QueueService {
	if open == nil {
		return nil
	}
	return &QueueService{open: open}
}

var errNoService = errors.New("queue service unavailable")

// List returns up to limit entries of a queue after skipping skip.
func (s *QueueService) List(ctx context.Context, name string, skip, limit int) (QueueListResponse, error) {
	if s == nil {
		return QueueListResponse{}, errNoService
	}
	q, err := s.open(ctx, name)
	if err != nil {
		return QueueListResponse{}, err
	}
	entries, err := q.Entries(ctx, skip, limit)
	if err != nil {
		return QueueListResponse{}, err
	}
	return QueueListResponse{
		Queue:   q.Name(),
		Size:    q.Size(ctx),
		Skip:    skip,
		Entries: FromEntries(entries),
	}, nil
}

// Describe fetches a single entry. It returns nil when the entry is absent.
func (s *QueueService) Describe(ctx context.Context, name, id string) (*QueueEntry, error) {
	if s == nil {
		return nil, errNoService
	}
	q, err := s.open(ctx, name)
	if err != nil {
		return nil, err
	}
	entry, ok, err := q.Entry(ctx, id)
	if err != nil || !ok {
		return nil, err
	}
	dto := FromEntry(entry)
	return &dto, nil
}

// Head returns the oldest readable entry, or nil for an empty queue.
func (s *QueueService) Head(ctx context.Context, name string) (*QueueEntry, error) {
	if s == nil {
		return nil, errNoService
	}
	q, err := s.open(ctx, name)
	if err != nil {
		return nil, err
	}
	entry, ok, err := q.Head(ctx)
	if err != nil || !ok {
		return nil, err
	}
	dto := FromEntry(entry)
	return &dto, nil
}
