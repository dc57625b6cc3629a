package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"distq/internal/api"
	"distq/internal/queue"
)

func newQueueCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newEnqueueCommand(ctx),
		newListCommand(ctx),
		newHeadCommand(ctx),
		newShowCommand(ctx),
		newCountCommand(ctx),
		newRemoveCommand(ctx),
	}
}

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var (
		size        int64
		requestType string
		sets        []string
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "enqueue <queue> <package-id>",
		Short: "Add a package reference to a queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := parseMetadata(sets)
			if err != nil {
				return err
			}
			if rt := strings.TrimSpace(requestType); rt != "" {
				parsed, err := queue.ParseRequestType(strings.ToUpper(rt))
				if err != nil {
					return err
				}
				metadata[queue.RequestTypeKey] = parsed
			}
			item, err := queue.NewItem(args[1], size, metadata)
			if err != nil {
				return err
			}
			return ctx.withQueue(cmd.Context(), args[0], func(q *queue.Queue) error {
				entry, err := q.Add(cmd.Context(), item)
				if err != nil {
					return err
				}
				return emit(cmd, jsonOutput, api.QueueEntryResponse{Entry: api.FromEntry(entry)}, func(out io.Writer) {
					fmt.Fprintln(out, entry.ID)
				})
			})
		},
	}

	cmd.Flags().Int64Var(&size, "size", queue.UnknownSize, "Package size in bytes (-1 when unknown)")
	cmd.Flags().StringVarP(&requestType, "type", "t", "", "Request type (ADD, DELETE, PULL, TEST, INVALIDATE)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Metadata entry as key=value (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		skip       int
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list <queue>",
		Short: "List queue entries oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if skip < 0 {
				return errors.New("--skip must not be negative")
			}
			return ctx.withExistingQueue(cmd.Context(), args[0], func(q *queue.Queue) error {
				entries, err := q.Entries(cmd.Context(), skip, limit)
				if err != nil {
					return err
				}
				resp := api.QueueListResponse{
					Queue:   q.Name(),
					Size:    q.Size(cmd.Context()),
					Skip:    skip,
					Entries: api.FromEntries(entries),
				}
				return emit(cmd, jsonOutput, resp, func(out io.Writer) {
					if len(resp.Entries) == 0 {
						fmt.Fprintln(out, "No entries")
						return
					}
					fmt.Fprint(out, renderEntryTable(resp))
				})
			})
		},
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "Number of entries to skip")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of entries to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHeadCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "head <queue>",
		Short: "Show the oldest entry of a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withExistingQueue(cmd.Context(), args[0], func(q *queue.Queue) error {
				entry, ok, err := q.Head(cmd.Context())
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("queue %s is empty", q.Name())
				}
				return printEntry(cmd, api.FromEntry(entry), jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <queue> <entry-id>",
		Short: "Show one entry with its metadata",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withExistingQueue(cmd.Context(), args[0], func(q *queue.Queue) error {
				entry, ok, err := q.Entry(cmd.Context(), args[1])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("entry %s not found in %s", args[1], q.Name())
				}
				return printEntry(cmd, api.FromEntry(entry), jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCountCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "count <queue>",
		Short: "Print the number of entries in a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withExistingQueue(cmd.Context(), args[0], func(q *queue.Queue) error {
				n := q.Size(cmd.Context())
				if n == queue.CountUnavailable {
					return fmt.Errorf("entry count for %s is unavailable", q.Name())
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <queue> <entry-id>...",
		Short: "Remove entries from a queue",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withExistingQueue(cmd.Context(), args[0], func(q *queue.Queue) error {
				out := cmd.OutOrStdout()
				var missing int
				for _, id := range args[1:] {
					_, ok, err := q.Remove(cmd.Context(), id)
					if err != nil {
						return fmt.Errorf("remove %s: %w", id, err)
					}
					if !ok {
						missing++
						fmt.Fprintf(out, "%s: not found\n", id)
						continue
					}
					fmt.Fprintf(out, "%s: removed\n", id)
				}
				if missing > 0 {
					return fmt.Errorf("%d of %d entries not found", missing, len(args)-1)
				}
				return nil
			})
		},
	}
}

func printEntry(cmd *cobra.Command, entry api.QueueEntry, jsonOutput bool) error {
	return emit(cmd, jsonOutput, api.QueueEntryResponse{Entry: entry}, func(out io.Writer) {
		renderEntry(out, entry)
	})
}

func renderEntry(out io.Writer, entry api.QueueEntry) {
	rows := [][]string{
		{"ID", entry.ID},
		{"Queue", entry.Queue},
		{"State", entry.State},
		{"Package", entry.PackageID},
		{"Size", formatSize(entry.Size)},
		{"Request type", dashIfEmpty(entry.RequestType)},
		{"Bucket", dashIfEmpty(entry.Bucket)},
	}
	fmt.Fprint(out, fieldTable("Field", rows))
	if len(entry.Metadata) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, fieldTable("Metadata", metadataRows(entry.Metadata)))
}

// renderEntryTable lists one page of entries with a "shown of total" footer.
func renderEntryTable(resp api.QueueListResponse) string {
	rows := make([][]string, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		rows = append(rows, []string{e.ID, e.PackageID, dashIfEmpty(e.RequestType), formatSize(e.Size), dashIfEmpty(e.Bucket)})
	}
	total := "?"
	if resp.Size != queue.CountUnavailable {
		total = strconv.Itoa(resp.Size)
	}
	return tableView{
		Columns: []column{
			{Header: "ID"},
			{Header: "Package", MaxWidth: valueColumnWidth},
			{Header: "Type"},
			{Header: "Size", Right: true},
			{Header: "Bucket"},
		},
		Rows:   rows,
		Footer: fmt.Sprintf("%s: %d-%d of %s", resp.Queue, resp.Skip+1, resp.Skip+len(resp.Entries), total),
	}.render()
}

// parseMetadata turns key=value pairs into metadata, typing integers,
// floats and booleans.
func parseMetadata(pairs []string) (map[string]any, error) {
	metadata := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", pair)
		}
		metadata[key] = parseScalar(raw)
	}
	return metadata, nil
}

func parseScalar(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

func metadataRows(metadata map[string]any) [][]string {
	keys := slices.Sorted(maps.Keys(metadata))
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, fmt.Sprint(metadata[key])})
	}
	return rows
}

func formatSize(size int64) string {
	if size == queue.UnknownSize {
		return "unknown"
	}
	return strconv.FormatInt(size, 10)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
