// Package daemonctl talks to a running distq daemon over its HTTP API.
package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"distq/internal/api"
)

// ErrAPIUnavailable is returned by a nil client.
var ErrAPIUnavailable = errors.New("daemon API unavailable")

const defaultTimeout = 10 * time.Second

// Client calls the daemon's /api routes.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient returns a client for the daemon listening on bind. It returns
// nil for an empty bind.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Status returns the daemon status.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

// Prune asks the daemon to prune its queues now.
func (c *Client) Prune(ctx context.Context) (api.PruneReport, error) {
	var report api.PruneReport
	err := c.do(ctx, http.MethodPost, "/api/prune", nil, &report)
	return report, err
}

// Entries lists a window of a queue through the daemon.
func (c *Client) Entries(ctx context.Context, queueName string, skip, limit int) (api.QueueListResponse, error) {
	values := url.Values{}
	if skip > 0 {
		values.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var resp api.QueueListResponse
	err := c.do(ctx, http.MethodGet, "/api/queues/"+url.PathEscape(queueName)+"/entries", values, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, values url.Values, out any) error {
	if c == nil {
		return ErrAPIUnavailable
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon %s returned status %d: %s", path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
