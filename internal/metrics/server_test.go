package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func httpGet(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.EntryAdded("agent1")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := httpGet(t.Context(), srv.URL+"/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), `distq_entries_added_total{queue="agent1"} 1`), string(body))
}

func TestServerStartAndShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", prometheus.NewRegistry())
	errCh, err := server.Start()
	require.NoError(t, err)
	require.NotEqual(t, "127.0.0.1:0", server.Addr())

	resp, err := httpGet(t.Context(), "http://"+server.Addr()+"/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	for err := range errCh {
		require.NoError(t, err)
	}
}

func TestHandlerMountsRoutes(t *testing.T) {
	route := Route{
		Pattern: "GET /api/ping",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("pong"))
		}),
	}
	srv := httptest.NewServer(Handler(prometheus.NewRegistry(), route))
	defer srv.Close()

	resp, err := httpGet(t.Context(), srv.URL+"/api/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "pong", string(body))
}
