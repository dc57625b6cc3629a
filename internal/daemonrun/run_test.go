package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"distq/internal/config"
	"distq/internal/testsupport"
)

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(config.BackendSQLite), testsupport.WithQueues("agent1"))
	cfg.Logging.File = filepath.Join(testsupport.BaseDir(cfg), "logs", "distq.log")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, Options{LogLevel: "debug"})
	}()

	pidPath := filepath.Join(cfg.Store.DataDir, "distqd.pid")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if data, err := os.ReadFile(pidPath); err == nil {
			if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
				t.Fatalf("unexpected pid file contents %q", data)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("pid file was not written")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file to be removed, got %v", err)
	}
	if _, err := os.Stat(cfg.Logging.File); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func TestRunFailsPreflight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Metrics.Enabled = true
	cfg.Metrics.Bind = "256.0.0.1:1"

	err := Run(context.Background(), cfg, Options{})
	if err == nil || !strings.Contains(err.Error(), "preflight") {
		t.Fatalf("expected preflight failure, got %v", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
