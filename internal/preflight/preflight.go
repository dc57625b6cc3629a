package preflight

import (
	"context"
	"path/filepath"

	"distq/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Data directory (persistent backends only)
	if cfg.Store.Backend != config.BackendMemory {
		results = append(results, CheckDirectoryAccess("Data directory", cfg.Store.DataDir))
	}

	results = append(results, CheckStore(ctx, cfg))

	if cfg.Logging.File != "" {
		results = append(results, CheckDirectoryAccess("Log directory", filepath.Dir(cfg.Logging.File)))
	}

	if cfg.Metrics.Enabled {
		results = append(results, CheckListenAddress("Metrics endpoint", cfg.Metrics.Bind))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
