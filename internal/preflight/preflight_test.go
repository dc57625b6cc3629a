package preflight

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"distq/internal/config"
	"distq/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckStore_SQLite(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(config.BackendSQLite))
	result := CheckStore(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "no queues yet") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckStore_MissingDataDir(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(config.BackendSQLite))
	cfg.Store.DataDir = filepath.Join(t.TempDir(), "missing", "deeper")
	result := CheckStore(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure when the data directory is missing")
	}
}

func TestCheckListenAddress(t *testing.T) {
	if result := CheckListenAddress("metrics", "127.0.0.1:0"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	if result := CheckListenAddress("metrics", ln.Addr().String()); result.Passed {
		t.Fatal("expected failure for an address in use")
	}
}

func TestRunAllGatesOnConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(context.Background(), cfg)
	if len(results) != 1 || results[0].Name != "Tree store" {
		t.Fatalf("memory backend should only check the store, got %+v", results)
	}

	cfg = testsupport.NewConfig(t, testsupport.WithBackend(config.BackendSQLite))
	cfg.Metrics.Enabled = true
	cfg.Logging.File = filepath.Join(t.TempDir(), "distq.log")
	results = RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil, got %+v", results)
	}
}
