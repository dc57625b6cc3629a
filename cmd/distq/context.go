package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"distq/internal/config"
	"distq/internal/logging"
	"distq/internal/queue"
	"distq/internal/storage"
	"distq/internal/tree"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.configPath = resolved
		c.configExists = exists
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withBackend opens the configured store for the duration of fn.
func (c *commandContext) withBackend(fn func(*config.Config, tree.Backend) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	backend, err := storage.Open(cfg, nil)
	if err != nil {
		return wrapOpenError(cfg, err)
	}
	defer backend.Close()
	return fn(cfg, backend)
}

// withQueue opens the named queue on a fresh session, creating its root.
func (c *commandContext) withQueue(ctx context.Context, name string, fn func(*queue.Queue) error) error {
	return c.withBackend(func(cfg *config.Config, backend tree.Backend) error {
		q, err := openQueue(ctx, cfg, backend, name, nil)
		if err != nil {
			return err
		}
		return fn(q)
	})
}

// withExistingQueue resolves the named queue for read and remove commands.
// It fails when nothing was ever enqueued there.
func (c *commandContext) withExistingQueue(ctx context.Context, name string, fn func(*queue.Queue) error) error {
	return c.withBackend(func(cfg *config.Config, backend tree.Backend) error {
		q, err := lookupQueue(ctx, cfg, backend, name, nil)
		if err != nil {
			return err
		}
		return fn(q)
	})
}

// openQueue opens name on a fresh session. A nil ids uses the wall clock in
// the configured time zone.
func openQueue(ctx context.Context, cfg *config.Config, backend tree.Backend, name string, ids *queue.IDGenerator) (*queue.Queue, error) {
	return queue.Open(ctx, tree.NewSession(backend), cfg.Queue.RootPath, name, queueOptions(cfg, ids)...)
}

func lookupQueue(ctx context.Context, cfg *config.Config, backend tree.Backend, name string, ids *queue.IDGenerator) (*queue.Queue, error) {
	return queue.Lookup(ctx, tree.NewSession(backend), cfg.Queue.RootPath, name, queueOptions(cfg, ids)...)
}

func queueOptions(cfg *config.Config, ids *queue.IDGenerator) []queue.Option {
	if ids == nil {
		ids = queue.NewIDGenerator(queue.WithLocation(cfg.Location()))
	}
	return []queue.Option{
		queue.WithIDGenerator(ids),
		queue.WithLogger(logging.NewNop()),
	}
}

// Pebble keeps an exclusive lock on its directory while the daemon runs.
func wrapOpenError(cfg *config.Config, err error) error {
	if cfg.Store.Backend == config.BackendPebble {
		return fmt.Errorf("%w (is the daemon holding the pebble store? use `distq daemon status` instead)", err)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
