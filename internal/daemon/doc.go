// Package daemon coordinates the long-running distq process.
//
// It wires configuration, the tree backend, Prometheus metrics and the prune
// loop into a single lifecycle with flock-based locking to prevent multiple
// instances. Every tick the daemon prunes each configured queue on its own
// session, records the outcome and refreshes the depth gauges. When metrics
// are enabled the same listener serves /metrics, /health and a small
// read-only JSON API under /api.
//
// Keep orchestration logic here: queue semantics live in internal/queue and
// the daemon only decides when they run.
package daemon
