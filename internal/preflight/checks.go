package preflight

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"distq/internal/config"
	"distq/internal/storage"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStore opens the configured backend and reads the queue root. It uses
// a 10-second timeout.
func CheckStore(ctx context.Context, cfg *config.Config) Result {
	const name = "Tree store"

	location := storage.Location(cfg)
	backend, err := storage.Open(cfg, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", location, err)}
	}
	defer backend.Close()

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, ok, err := backend.Lookup(checkCtx, cfg.Queue.RootPath)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: read %s: %v)", location, cfg.Queue.RootPath, err)}
	}
	if !ok {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s backend, no queues yet)", location, cfg.Store.Backend)}
	}
	children, err := backend.Children(checkCtx, cfg.Queue.RootPath)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: list queues: %v)", location, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s backend, %d queues)", location, cfg.Store.Backend, len(children))}
}

// CheckListenAddress verifies that addr can be bound.
func CheckListenAddress(name, addr string) Result {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", addr, err)}
	}
	_ = ln.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (available)", addr)}
}
