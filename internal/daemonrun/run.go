// Package daemonrun runs the distq daemon in the foreground until it is
// signalled.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"distq/internal/config"
	"distq/internal/daemon"
	"distq/internal/logging"
	"distq/internal/preflight"
	"distq/internal/storage"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
	// SkipPreflight starts without running readiness checks.
	SkipPreflight bool
}

// Run starts the distq daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logConfigSnapshot(logger, cfg)

	if !opts.SkipPreflight {
		if err := runPreflight(signalCtx, logger, cfg); err != nil {
			return err
		}
	}

	if cfg.Store.Backend != config.BackendMemory {
		pidPath := filepath.Join(cfg.Store.DataDir, "distqd.pid")
		if err := writePIDFile(pidPath); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
		defer os.Remove(pidPath)
	}

	backend, err := storage.Open(cfg, logger)
	if err != nil {
		logger.Error("open tree store", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, backend, logger)
	if err != nil {
		_ = backend.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("distq daemon shutting down")
	return nil
}

func runPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	failed := preflight.Failed(preflight.RunAll(ctx, cfg))
	for _, result := range failed {
		logger.Error("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d preflight check(s) failed; run `distq doctor` for details", len(failed))
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String("backend", cfg.Store.Backend),
		logging.String("store", storage.Location(cfg)),
		logging.String("queue_root", cfg.Queue.RootPath),
		logging.String("time_zone", cfg.Location().String()),
		logging.String("queues", strings.Join(cfg.Queue.Names, ",")),
		logging.Duration("prune_interval", cfg.PruneInterval()),
		logging.Bool("prune_include_entries", cfg.Prune.IncludeEntries),
		logging.Bool("metrics_enabled", cfg.Metrics.Enabled),
		logging.Bool("api_token_present", cfg.Metrics.Token != ""),
	)
}
