// Package leagueapi is a typed client for the league/chore HTTP service.
//
// Calls are at-most-once: no retries and no caching. Every endpoint lives at
// <base><name>.php. Failures come back as *Error values wrapping a coded error
// from internal/errors, so callers can branch with errors.Is and show
// errors.Message to users.
package leagueapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
	"github.com/trashtalkapp/trashtalk-client/internal/logger"
	"github.com/trashtalkapp/trashtalk-client/internal/ratelimit"
	"github.com/trashtalkapp/trashtalk-client/internal/validation"
)

const (
	// DefaultBaseURL is the production service.
	DefaultBaseURL = "https://mrowberry.com/trashtalk/"

	defaultTimeout = 30 * time.Second
	defaultRPS     = 5.0
	defaultBurst   = 10

	// maxResponseBytes caps bodies, proof images included.
	maxResponseBytes = 16 << 20
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	RPS        float64
	Burst      int
	Logger     *slog.Logger
}

// Client is a rate-limited league/chore API client, safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *ratelimit.KeyedRateLimiter
	validator *validation.Validator
	logger    *slog.Logger
	maxBody   int64
}

// New creates a client.
func New(opts Options) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", base)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	rps, burst := opts.RPS, opts.Burst
	if rps == 0 {
		rps = defaultRPS
	}
	if burst == 0 {
		burst = defaultBurst
	}

	return &Client{
		baseURL:   base,
		http:      httpClient,
		limiter:   ratelimit.New(rps, burst),
		validator: validation.New(),
		logger:    logger.OrDiscard(opts.Logger),
		maxBody:   maxResponseBytes,
	}, nil
}

// BaseURL returns the normalized base URL, always ending in "/".
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) endpointURL(endpoint string, query url.Values) string {
	u := c.baseURL + endpoint + ".php"
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// doRequest executes one request with rate limiting and returns the body of a
// 2xx response.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader, contentType string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return nil, clienterrors.Transport(fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpointURL(endpoint, query), body)
	if err != nil {
		return nil, clienterrors.Wrap(err, clienterrors.CodeInternal, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "TrashTalk/1.0")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, clienterrors.Transport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, clienterrors.Transport(fmt.Errorf("read response: %w", err))
	}
	if int64(len(data)) > c.maxBody {
		return nil, clienterrors.Serverf("response exceeds %d bytes", c.maxBody)
	}

	c.logger.Debug("league api request",
		slog.String("method", method),
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	data, err := c.doRequest(ctx, http.MethodGet, endpoint, query, nil, "")
	if err != nil {
		return err
	}
	return decode(data, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return clienterrors.Wrap(err, clienterrors.CodeInternal, "encode request")
	}
	data, err := c.doRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	return decode(data, out)
}

func decode(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return clienterrors.Wrap(err, clienterrors.CodeServer, "malformed response")
	}
	return nil
}

// orEmpty keeps nil lists out of snapshots.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
