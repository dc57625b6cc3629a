// Command distq inspects and maintains distribution queues stored in a
// hierarchical tree store.
//
// Queue commands (enqueue, list, head, show, count, remove, prune) open the
// configured backend directly. "distq daemon run" runs the prune daemon in
// the foreground and "distq daemon status" asks a running daemon over its
// HTTP API. The id commands work offline and only format or parse entry ids
// and time buckets.
package main
