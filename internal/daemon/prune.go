package daemon

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"distq/internal/api"
	"distq/internal/logging"
	"distq/internal/queue"
)

func (d *Daemon) loop(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.cfg.PruneInterval())
	defer ticker.Stop()

	for {
		if _, err := d.PruneAll(ctx); err != nil && ctx.Err() == nil {
			d.logger.Warn("prune pass failed", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PruneAll prunes every configured queue in parallel. A failing queue does
// not stop the others; their errors are joined.
func (d *Daemon) PruneAll(ctx context.Context) (api.PruneReport, error) {
	started := time.Now()
	names := d.cfg.Queue.Names
	reports := make([]api.QueueReport, len(names))
	errs := make([]error, len(names))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		g.Go(func() error {
			reports[i], errs[i] = d.pruneQueue(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	elapsed := time.Since(started)
	d.metrics.ObservePruneRun(elapsed.Seconds(), err)

	report := api.PruneReport{
		StartedAt:  api.FormatTime(started),
		DurationMS: elapsed.Milliseconds(),
		Queues:     reports,
	}
	d.mu.Lock()
	d.lastPrune = &report
	d.mu.Unlock()

	d.logger.Debug("prune pass complete",
		logging.Int("queues", len(names)),
		logging.Duration("elapsed", elapsed),
	)
	return report, err
}

func (d *Daemon) pruneQueue(ctx context.Context, name string) (api.QueueReport, error) {
	q, err := d.LookupQueue(ctx, name)
	if errors.Is(err, queue.ErrQueueNotFound) {
		return api.FromPruneResult(name, queue.PruneResult{}, 0, nil), nil
	}
	if err != nil {
		err = fmt.Errorf("open queue %s: %w", name, err)
		return api.FromPruneResult(name, queue.PruneResult{}, queue.CountUnavailable, err), err
	}
	res, err := q.Prune(ctx, queue.PruneOptions{IncludeEntries: d.cfg.Prune.IncludeEntries})
	if err != nil {
		err = fmt.Errorf("prune queue %s: %w", name, err)
	}
	return api.FromPruneResult(name, res, q.Size(ctx), err), err
}
