// Package metrics exports queue activity as Prometheus metrics and serves
// them over HTTP.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "distq"

// Metrics implements queue.Observer.
type Metrics struct {
	entriesAdded   *prometheus.CounterVec
	entriesRemoved *prometheus.CounterVec
	deleteRetries  *prometheus.CounterVec
	countFailures  *prometheus.CounterVec
	prunedBuckets  *prometheus.CounterVec
	prunedEntries  *prometheus.CounterVec
	depth          *prometheus.GaugeVec
	pruneRuns      *prometheus.CounterVec
	pruneDuration  prometheus.Histogram
}

// New creates a new Metrics instance and registers all metrics with the provided registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	queueLabel := []string{"queue"}
	m := &Metrics{
		entriesAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "entries_added_total",
			Help:      "Entries written to a queue",
		}, queueLabel),
		entriesRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "entries_removed_total",
			Help:      "Entries deleted from a queue",
		}, queueLabel),
		deleteRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "delete_retries_total",
			Help:      "Deletes retried after a write conflict",
		}, queueLabel),
		countFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "count_failures_total",
			Help:      "Entry counts the store could not answer",
		}, queueLabel),
		prunedBuckets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "prune",
			Name:      "buckets_total",
			Help:      "Time buckets deleted by pruning",
		}, queueLabel),
		prunedEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "prune",
			Name:      "entries_total",
			Help:      "Entries deleted together with pruned buckets",
		}, queueLabel),
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "depth",
			Help:      "Entries in a queue at the last count",
		}, queueLabel),
		pruneRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "prune",
			Name:      "runs_total",
			Help:      "Prune passes by outcome",
		}, []string{"status"}),
		pruneDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "prune",
			Name:      "duration_seconds",
			Help:      "Duration of a prune pass over all queues",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}

	err := errors.Join(
		reg.Register(m.entriesAdded),
		reg.Register(m.entriesRemoved),
		reg.Register(m.deleteRetries),
		reg.Register(m.countFailures),
		reg.Register(m.prunedBuckets),
		reg.Register(m.prunedEntries),
		reg.Register(m.depth),
		reg.Register(m.pruneRuns),
		reg.Register(m.pruneDuration),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) EntryAdded(queue string) { m.entriesAdded.WithLabelValues(queue).Inc() }

func (m *Metrics) EntryRemoved(queue string) { m.entriesRemoved.WithLabelValues(queue).Inc() }

func (m *Metrics) DeleteRetried(queue string) { m.deleteRetries.WithLabelValues(queue).Inc() }

func (m *Metrics) CountFailed(queue string) { m.countFailures.WithLabelValues(queue).Inc() }

// Pruned records one prune of queue.
func (m *Metrics) Pruned(queue string, buckets, entries int) {
	m.prunedBuckets.WithLabelValues(queue).Add(float64(buckets))
	m.prunedEntries.WithLabelValues(queue).Add(float64(entries))
}

func (m *Metrics) Depth(queue string, depth int) { m.depth.WithLabelValues(queue).Set(float64(depth)) }

// Prune run status labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ObservePruneRun records a full prune pass.
func (m *Metrics) ObservePruneRun(seconds float64, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.pruneRuns.WithLabelValues(status).Inc()
	m.pruneDuration.Observe(seconds)
}
