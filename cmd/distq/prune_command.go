package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"distq/internal/api"
	"distq/internal/config"
	"distq/internal/queue"
	"distq/internal/tree"
)

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var (
		includeEntries bool
		at             string
		jsonOutput     bool
	)

	cmd := &cobra.Command{
		Use:   "prune [queue...]",
		Short: "Delete past time buckets",
		Long: "Delete time buckets that lie before the current minute. Without arguments\n" +
			"every queue listed in queue.names is pruned. Buckets that still hold\n" +
			"entries are kept unless --include-entries is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(func(cfg *config.Config, backend tree.Backend) error {
				names := args
				if len(names) == 0 {
					names = cfg.Queue.Names
				}
				if len(names) == 0 {
					return errors.New("no queues given and queue.names is empty")
				}
				opts := queue.PruneOptions{IncludeEntries: cfg.Prune.IncludeEntries}
				if cmd.Flags().Changed("include-entries") {
					opts.IncludeEntries = includeEntries
				}
				ids, err := generatorAt(cfg, at)
				if err != nil {
					return err
				}

				started := time.Now()
				report := api.PruneReport{StartedAt: api.FormatTime(started)}
				var errs []error
				for _, name := range names {
					q, err := lookupQueue(cmd.Context(), cfg, backend, name, ids)
					if errors.Is(err, queue.ErrQueueNotFound) {
						report.Queues = append(report.Queues, api.FromPruneResult(name, queue.PruneResult{}, 0, nil))
						continue
					}
					if err != nil {
						errs = append(errs, err)
						report.Queues = append(report.Queues, api.FromPruneResult(name, queue.PruneResult{}, queue.CountUnavailable, err))
						continue
					}
					res, err := q.Prune(cmd.Context(), opts)
					if err != nil {
						errs = append(errs, fmt.Errorf("prune %s: %w", name, err))
					}
					report.Queues = append(report.Queues, api.FromPruneResult(name, res, q.Size(cmd.Context()), err))
				}
				report.DurationMS = time.Since(started).Milliseconds()

				if err := emit(cmd, jsonOutput, report, func(out io.Writer) {
					fmt.Fprint(out, renderPruneReport(report))
				}); err != nil {
					return err
				}
				return errors.Join(errs...)
			})
		},
	}

	cmd.Flags().BoolVar(&includeEntries, "include-entries", false, "Also delete past buckets that still hold entries")
	cmd.Flags().StringVar(&at, "at", "", "Prune as of this RFC3339 time instead of now")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// generatorAt returns nil for an empty value so callers use the wall clock.
func generatorAt(cfg *config.Config, value string) (*queue.IDGenerator, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --at %q: %w", value, err)
	}
	return queue.NewIDGenerator(
		queue.WithClock(func() time.Time { return t }),
		queue.WithLocation(cfg.Location()),
	), nil
}

func renderPruneReport(report api.PruneReport) string {
	rows := make([][]string, 0, len(report.Queues))
	for _, q := range report.Queues {
		depth := strconv.Itoa(q.Depth)
		if q.Depth == queue.CountUnavailable {
			depth = "unavailable"
		}
		status := "ok"
		if q.Error != "" {
			status = q.Error
		}
		rows = append(rows, []string{q.Queue, strconv.Itoa(len(q.Buckets)), strconv.Itoa(q.Entries), depth, status})
	}
	var buckets, entries int
	for _, q := range report.Queues {
		buckets += len(q.Buckets)
		entries += q.Entries
	}
	return tableView{
		Columns: []column{
			{Header: "Queue"},
			{Header: "Buckets", Right: true},
			{Header: "Entries", Right: true},
			{Header: "Depth", Right: true},
			{Header: "Status", MaxWidth: valueColumnWidth},
		},
		Rows:   rows,
		Footer: fmt.Sprintf("%d bucket(s), %d entr(ies) pruned in %d ms", buckets, entries, report.DurationMS),
	}.render()
}
