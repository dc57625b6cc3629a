package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"distq/internal/api"
	"distq/internal/config"
	"distq/internal/daemonctl"
	"distq/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run or query the prune daemon",
	}

	daemonCmd.AddCommand(newDaemonRunCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	daemonCmd.AddCommand(newDaemonPruneCommand(ctx))

	return daemonCmd
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:      logLevel,
				SkipPreflight: skipPreflight,
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start without readiness checks")
	return cmd
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	var addr string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := daemonClient(cfg, addr)
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return wrapDaemonError(err)
			}
			return emit(cmd, jsonOutput, status, func(out io.Writer) {
				renderDaemonStatus(out, status)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Daemon API address (defaults to metrics.bind)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newDaemonPruneCommand(ctx *commandContext) *cobra.Command {
	var addr string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Ask a running daemon to prune its queues now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := daemonClient(cfg, addr)
			if err != nil {
				return err
			}
			report, err := client.Prune(cmd.Context())
			if err != nil {
				return wrapDaemonError(err)
			}
			if err := emit(cmd, jsonOutput, report, func(out io.Writer) {
				fmt.Fprint(out, renderPruneReport(report))
			}); err != nil {
				return err
			}
			if report.Failed() {
				return errors.New("prune failed for at least one queue")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Daemon API address (defaults to metrics.bind)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func daemonClient(cfg *config.Config, addr string) (*daemonctl.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		if !cfg.Metrics.Enabled {
			return nil, errors.New("metrics.enabled is false; the daemon API is not served (pass --addr to override)")
		}
		addr = cfg.Metrics.Bind
	}
	return daemonctl.NewClient(addr, cfg.Metrics.Token)
}

func wrapDaemonError(err error) error {
	if daemonctl.IsAPIUnavailable(err) {
		return fmt.Errorf("connect to daemon: %w; verify the daemon is running", err)
	}
	return err
}

func renderDaemonStatus(out io.Writer, status api.DaemonStatus) {
	w := newStatusWriter(out)

	runKind, runText := statusOK, fmt.Sprintf("pid %d", status.PID)
	if !status.Running {
		runKind, runText = statusWarn, "stopped"
	}
	w.line("Daemon", runKind, runText)
	w.line("Store", statusInfo, fmt.Sprintf("%s (%s)", status.StoreLocation, status.Backend))
	w.line("Lock", statusInfo, status.LockFilePath)
	w.line("Queue root", statusInfo, status.QueueRoot)
	w.line("Queues", statusInfo, strings.Join(status.Queues, ", "))
	w.line("Prune interval", statusInfo, status.PruneInterval)

	if status.LastPrune == nil {
		w.line("Last prune", statusWarn, "not run yet")
		return
	}
	w.line("Last prune", passFail(!status.LastPrune.Failed()),
		fmt.Sprintf("%s (%d ms)", status.LastPrune.StartedAt, status.LastPrune.DurationMS))
	if len(status.LastPrune.Queues) > 0 {
		fmt.Fprintln(out)
		fmt.Fprint(out, renderPruneReport(*status.LastPrune))
	}
}
