// Package tree defines the hierarchical node store that queues are built on.
//
// A Backend holds committed nodes addressed by absolute slash-separated
// paths and returns children in insertion order, which gives every folder
// ordered-folder semantics. Backends are safe for concurrent use and apply a
// change set atomically, failing the whole set with ErrConflict when a
// create collides with an existing node or a delete targets a node that is
// already gone.
//
// A Session stages changes on top of a Backend the way a resource resolver
// does: reads see pending creates and deletes, Commit applies them in one
// change set, Revert drops them and Refresh discards cached reads so the
// next lookup observes the committed state. A Session belongs to a single
// goroutine.
//
// Implementations live in the memtree, sqlitetree and pebbletree
// subpackages; the storage package picks one from configuration.
package tree
