// Package api defines wire-format types and converters for the daemon status
// API and the CLI's JSON output. It translates queue entries and prune
// reports into transport-friendly DTOs so consumers do not couple to
// internal types.
//
// # Key Types
//
// QueueEntry: transport representation of an entry with its package id,
// size, request type, metadata and state.
//
// DaemonStatus: running state, store location, managed queues and the last
// prune pass.
//
// PruneReport/QueueReport: outcome of a prune pass per queue.
//
// # Converters
//
// FromEntry: queue.Entry -> QueueEntry with metadata values rendered as JSON
// scalars.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// An unknown package size is reported as -1, matching the store.
package api
