package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validatePrune(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendPebble, BackendMemory:
	default:
		return fmt.Errorf("store.backend: unsupported value %q (want sqlite, pebble or memory)", c.Store.Backend)
	}
	switch c.Store.Fsync {
	case "always", "interval", "never":
	default:
		return fmt.Errorf("store.fsync: unsupported value %q (want always, interval or never)", c.Store.Fsync)
	}
	if c.Store.Backend != BackendMemory && c.Store.DataDir == "" {
		return errors.New("store.data_dir must be set")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.RootPath == "/" {
		return errors.New("queue.root_path must not be the tree root")
	}
	for _, name := range c.Queue.Names {
		if strings.Contains(name, "/") {
			return fmt.Errorf("queue.names: %q must not contain '/'", name)
		}
	}
	return nil
}

func (c *Config) validatePrune() error {
	if c.Prune.IntervalSeconds <= 0 {
		return errors.New("prune.interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if !c.Metrics.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Bind); err != nil {
		return fmt.Errorf("metrics.bind: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
