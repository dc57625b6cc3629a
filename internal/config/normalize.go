package config

import (
	"fmt"
	"path"
	"strings"
	"time"
)

func (c *Config) normalize() error {
	if err := c.normalizeStore(); err != nil {
		return err
	}
	if err := c.normalizeQueue(); err != nil {
		return err
	}
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	c.Metrics.Token = strings.TrimSpace(c.Metrics.Token)
	return c.normalizeLogging()
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultBackend
	}
	if strings.TrimSpace(c.Store.DataDir) == "" {
		c.Store.DataDir = defaultDataDir
	}
	var err error
	if c.Store.DataDir, err = expandPath(c.Store.DataDir); err != nil {
		return fmt.Errorf("store.data_dir: %w", err)
	}
	c.Store.Fsync = strings.ToLower(strings.TrimSpace(c.Store.Fsync))
	if c.Store.Fsync == "" {
		c.Store.Fsync = defaultFsync
	}
	if c.Store.BusyTimeoutMS <= 0 {
		c.Store.BusyTimeoutMS = defaultBusyTimeoutMS
	}
	return nil
}

func (c *Config) normalizeQueue() error {
	root := strings.TrimSpace(c.Queue.RootPath)
	if root == "" {
		root = defaultRootPath
	}
	if !strings.HasPrefix(root, "/") {
		return fmt.Errorf("queue.root_path: %q must be absolute", root)
	}
	c.Queue.RootPath = path.Clean(root)

	names := c.Queue.Names[:0]
	seen := make(map[string]struct{}, len(c.Queue.Names))
	for _, name := range c.Queue.Names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	c.Queue.Names = names

	zone := strings.TrimSpace(c.Queue.TimeZone)
	if zone == "" {
		zone = defaultTimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return fmt.Errorf("queue.time_zone: %w", err)
	}
	c.Queue.TimeZone = zone
	c.location = loc
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) == "" {
		c.Logging.File = ""
		return nil
	}
	var err error
	if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}
