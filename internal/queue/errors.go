package queue

import "errors"

var (
	// ErrInvalidEntryID reports an id that does not carry the entry prefix.
	ErrInvalidEntryID = errors.New("queue: invalid entry id")
	// ErrUnknownRequestType reports a request type name outside the known set.
	ErrUnknownRequestType = errors.New("queue: unknown request type")
	// ErrInvalidQueueName reports a queue name that cannot be a single path segment.
	ErrInvalidQueueName = errors.New("queue: invalid queue name")
	// ErrQueueNotFound reports a queue whose root has not been created yet.
	ErrQueueNotFound = errors.New("queue: queue not found")
	// ErrInvalidItem reports an item that cannot be stored.
	ErrInvalidItem = errors.New("queue: invalid item")
)
