package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"distq/internal/api"
	"distq/internal/config"
	"distq/internal/logging"
	"distq/internal/metrics"
	"distq/internal/queue"
	"distq/internal/storage"
	"distq/internal/tree"
)

const shutdownTimeout = 5 * time.Second

// Daemon prunes the configured queues on a schedule and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	backend  tree.Backend
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	ids      *queue.IDGenerator

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	server  *metrics.Server

	mu        sync.Mutex
	lastPrune *api.PruneReport
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithIDGenerator replaces the clock source used to find the current bucket.
func WithIDGenerator(ids *queue.IDGenerator) Option {
	return func(d *Daemon) {
		if ids != nil {
			d.ids = ids
		}
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, backend tree.Backend, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || backend == nil {
		return nil, errors.New("daemon requires config and backend")
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		backend:  backend,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		registry: registry,
		metrics:  m,
		ids:      queue.NewIDGenerator(queue.WithLocation(cfg.Location())),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock, starts the metrics endpoint when enabled
// and launches the prune loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another distq daemon instance is already running")
	}

	if d.cfg.Metrics.Enabled {
		server := metrics.NewServer(d.cfg.Metrics.Bind, d.registry, d.routes()...)
		errCh, err := server.Start()
		if err != nil {
			_ = d.lock.Unlock()
			return err
		}
		d.server = server
		go d.watchServer(errCh)
		d.logger.Info("metrics endpoint listening", logging.String("address", server.Addr()))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)
	go d.loop(runCtx)

	d.logger.Info("distq daemon started",
		logging.String("lock", d.lockPath),
		logging.String("store", storage.Location(d.cfg)),
		logging.Int("queues", len(d.cfg.Queue.Names)),
		logging.Duration("prune_interval", d.cfg.PruneInterval()),
	)
	return nil
}

// Stop stops the prune loop and metrics endpoint and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := d.server.Shutdown(ctx); err != nil {
			d.logger.Warn("metrics endpoint shutdown failed", logging.Error(err))
		}
		cancel()
		d.server = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("distq daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.backend != nil {
		return d.backend.Close()
	}
	return nil
}

// Registry returns the registry backing the daemon's metrics.
func (d *Daemon) Registry() *prometheus.Registry { return d.registry }

// MetricsAddr returns the bound metrics address, or "" when not serving.
func (d *Daemon) MetricsAddr() string {
	if d.server == nil {
		return ""
	}
	return d.server.Addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() api.DaemonStatus {
	d.mu.Lock()
	last := d.lastPrune
	d.mu.Unlock()

	return api.DaemonStatus{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Backend:       d.cfg.Store.Backend,
		StoreLocation: storage.Location(d.cfg),
		LockFilePath:  d.lockPath,
		QueueRoot:     d.cfg.Queue.RootPath,
		Queues:        append([]string{}, d.cfg.Queue.Names...),
		PruneInterval: d.cfg.PruneInterval().String(),
		LastPrune:     last,
	}
}

// LookupQueue resolves an existing queue on a fresh session. It never
// creates the queue root.
func (d *Daemon) LookupQueue(ctx context.Context, name string) (*queue.Queue, error) {
	return queue.Lookup(ctx, tree.NewSession(d.backend), d.cfg.Queue.RootPath, name,
		queue.WithIDGenerator(d.ids),
		queue.WithObserver(d.metrics),
		queue.WithLogger(d.logger),
	)
}

func (d *Daemon) watchServer(errCh <-chan error) {
	for err := range errCh {
		d.logger.Error("metrics endpoint failed", logging.Error(err))
	}
}
