package client

import (
	"context"
	"errors"
	"net/http"
)

// Liveness is the body of GET /healthz.
type Liveness struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// Health returns the liveness probe.
func (c *Client) Health(ctx context.Context) (*Liveness, error) {
	var out Liveness
	if err := c.get(ctx, "/healthz", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready reports the readiness probe.  A 503 is a normal "not ready" answer,
// not an error, and is never retried.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	err := c.request(ctx, http.MethodGet, "/readyz", nil, nil, 0)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		return false, nil
	}
	return false, err
}
