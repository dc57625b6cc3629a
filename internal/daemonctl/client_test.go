package daemonctl

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"distq/internal/api"
)

func TestClientStatusSendsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "unauthorized"})
			return
		}
		if r.URL.Path != "/api/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(api.DaemonStatus{Running: true, Backend: "sqlite"})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "s3cret")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.Backend != "sqlite" {
		t.Fatalf("unexpected status %+v", status)
	}

	bad, _ := NewClient(srv.URL, "wrong")
	if _, err := bad.Status(context.Background()); err == nil {
		t.Fatal("expected unauthorized error")
	}
}

func TestClientEntriesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/queues/agent1/entries" || r.URL.Query().Get("skip") != "2" || r.URL.Query().Get("limit") != "5" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_ = json.NewEncoder(w).Encode(api.QueueListResponse{Queue: "agent1", Size: 7, Skip: 2})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	resp, err := client.Entries(context.Background(), "agent1", 2, 5)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if resp.Size != 7 || resp.Skip != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestClientUnavailable(t *testing.T) {
	client, err := NewClient("", "")
	if err != nil || client != nil {
		t.Fatalf("expected nil client for empty bind, got %v, %v", client, err)
	}
	if _, err := client.Status(context.Background()); !IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client, err = NewClient(addr, "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Prune(context.Background()); !IsAPIUnavailable(err) {
		t.Fatalf("expected connection error to be unavailable, got %v", err)
	}
}
