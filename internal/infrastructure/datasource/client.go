// Package datasource fetches the raw GeoJSON resources over HTTP.  Parsing is
// left to the feature package so a cached payload and a fresh one go through
// the same path.
package datasource

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// MaxPayloadBytes is the default cap on a response body.
const MaxPayloadBytes = 64 << 20

var (
	// ErrNotConfigured is returned for a resource without a URL.
	ErrNotConfigured = apperrors.New(apperrors.ErrCodeBoundaryNotFound, "resource not configured")
	// ErrTooLarge is returned when a body exceeds the size limit.
	ErrTooLarge = apperrors.New(apperrors.ErrCodeDataSourceParseError, "payload exceeds size limit")
)

// URLs locates the three resources.  Empty boundary URLs mean the overlay is
// not published.
type URLs struct {
	Features string
	Province string
	Communes string
}

// Client downloads resources with retry on network errors and 5xx answers.
type Client struct {
	urls         map[feature.Resource]string
	httpClient   *http.Client
	userAgent    string
	logger       logging.Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	maxBytes     int64
}

// NewClient validates urls and returns a Client.  The features URL is
// required.
func NewClient(urls URLs, logger logging.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Client{
		urls:         make(map[feature.Resource]string, len(feature.Resources)),
		httpClient:   &http.Client{Timeout: 20 * time.Second},
		userAgent:    "coopmap/1.0",
		logger:       logger.Named("datasource"),
		retryMax:     2,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
		maxBytes:     MaxPayloadBytes,
	}
	if urls.Features == "" {
		return nil, apperrors.InvalidParam("features URL is required")
	}
	for r, raw := range map[feature.Resource]string{
		feature.ResourceFeatures: urls.Features,
		feature.ResourceProvince: urls.Province,
		feature.ResourceCommunes: urls.Communes,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, apperrors.InvalidParam("invalid resource URL").WithDetail(fmt.Sprintf("%s=%q", r, raw))
		}
		c.urls[r] = raw
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Configured reports whether r has a URL.
func (c *Client) Configured(r feature.Resource) bool {
	_, ok := c.urls[r]
	return ok
}

// URL returns the location of r, "" when unconfigured.
func (c *Client) URL(r feature.Resource) string {
	return c.urls[r]
}

// Fetch downloads r and returns the raw body.
func (c *Client) Fetch(ctx context.Context, r feature.Resource) ([]byte, error) {
	target, ok := c.urls[r]
	if !ok {
		return nil, ErrNotConfigured.WithDetail("resource=" + string(r))
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt)
			c.logger.Debug("retrying fetch",
				logging.String("resource", string(r)),
				logging.Int("attempt", attempt),
				logging.Duration("wait", wait))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeDataSourceUnavailable, "fetch cancelled").
					WithDetail("resource=" + string(r))
			}
		}

		body, retry, err := c.once(ctx, r, target)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// once performs a single GET.  retry reports whether the failure is worth
// another attempt.
func (c *Client) once(ctx context.Context, r feature.Resource, target string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrCodeDataSourceUnavailable, "build request")
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/geo+json, application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("fetch failed",
			logging.String("resource", string(r)),
			logging.String("request_id", requestID),
			logging.Err(err))
		return nil, true, apperrors.Wrap(err, apperrors.ErrCodeDataSourceUnavailable, "data source unreachable").
			WithDetail("resource=" + string(r))
	}
	defer resp.Body.Close()

	c.logger.Debug("fetched",
		logging.String("resource", string(r)),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode >= 500, apperrors.New(apperrors.ErrCodeDataSourceStatus, "data source returned "+strconv.Itoa(resp.StatusCode)).
			WithDetail("resource=" + string(r))
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, true, apperrors.Wrap(err, apperrors.ErrCodeDataSourceUnavailable, "read body").
			WithDetail("resource=" + string(r))
	}
	if int64(len(body)) > c.maxBytes {
		return nil, false, ErrTooLarge.WithDetail("resource=" + string(r))
	}
	return body, false, nil
}

// backoff is exponential with up to 25% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	wait := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if wait > c.retryWaitMax {
		wait = c.retryWaitMax
	}
	if q := int64(wait / 4); q > 0 {
		wait += time.Duration(rand.Int63n(q))
	}
	return wait
}
