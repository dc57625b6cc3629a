package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"distq/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique temp data directory per
// test. It defaults to the memory backend and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Store.Backend = config.BackendMemory
	cfgVal.Store.DataDir = filepath.Join(base, "data")
	cfgVal.Store.Fsync = "never"
	cfgVal.Queue.RootPath = "/var/distq/queues"
	cfgVal.Prune.IntervalSeconds = 1
	cfgVal.Metrics.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := os.MkdirAll(builder.cfg.Store.DataDir, 0o755); err != nil {
		t.Fatalf("mkdir data dir: %v", err)
	}
	return builder.cfg
}

// WithBackend selects the tree backend.
func WithBackend(kind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Backend = kind
	}
}

// WithQueues sets the queues managed by the daemon.
func WithQueues(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.Names = append([]string(nil), names...)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Store.DataDir)
}
