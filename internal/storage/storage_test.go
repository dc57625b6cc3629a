package storage_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"distq/internal/config"
	"distq/internal/storage"
	"distq/internal/testsupport"
	"distq/internal/tree"
)

func TestOpenEachBackendRoundTrips(t *testing.T) {
	for _, kind := range []string{config.BackendSQLite, config.BackendPebble, config.BackendMemory} {
		t.Run(kind, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithBackend(kind))
			backend, err := storage.Open(cfg, nil)
			require.NoError(t, err)
			t.Cleanup(func() { _ = backend.Close() })

			s := tree.NewSession(backend)
			_, err = s.GetOrCreate(t.Context(), "/a/b", tree.CreateSpec{
				Type:               "leaf",
				IntermediateType:   "folder",
				CreateIntermediate: true,
			})
			require.NoError(t, err)
			require.NoError(t, s.Commit(t.Context()))

			node, ok, err := backend.Lookup(t.Context(), "/a/b")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "leaf", node.Type)

			if kind != config.BackendMemory {
				_, err := os.Stat(storage.Location(cfg))
				require.NoError(t, err)
			}
		})
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Store.Backend = "redis"
	_, err := storage.Open(cfg, nil)
	require.Error(t, err)
}

func TestOpenRejectsBadFsync(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(config.BackendPebble))
	cfg.Store.Fsync = "sometimes"
	_, err := storage.Open(cfg, nil)
	require.Error(t, err)
}
