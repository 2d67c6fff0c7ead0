// Package httpclient provides the authenticated HTTP client used for every
// backend call. It injects the session's bearer token into outgoing
// requests, transparently refreshes the token pair once on a 401 response,
// and retries rate-limited requests with linear backoff on 429.
//
// The two retry policies are independent and tracked per request, so a
// refreshed request can still be rate-limit retried and neither policy can
// loop forever.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/argiloff/archaeotools-cms/internal/errors"
	"github.com/argiloff/archaeotools-cms/internal/logging"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests if not specified.
	DefaultTimeout = 30 * time.Second

	// Default retry policy for 429 responses
	defaultMaxRateRetries   = 3
	defaultRateRetryBackoff = 1 * time.Second

	// Default connection pool settings
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second

	// Default timeouts for various HTTP operations
	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultDialTimeout           = 30 * time.Second
	defaultDialKeepAlive         = 30 * time.Second

	// Default User-Agent
	defaultUserAgent = "archaeotools-cms"
)

// TokenSource supplies and rotates the session tokens the client injects.
// Implemented by the session store.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(accessToken, refreshToken string)
	Clear()
}

// Config holds configuration for creating the HTTP client.
type Config struct {
	// DefaultTimeout is the timeout applied if request context has no deadline
	DefaultTimeout time.Duration

	// UserAgent is added to all requests
	UserAgent string

	// RefreshURL is the absolute URL of the token refresh endpoint.
	// Empty disables the 401 refresh policy.
	RefreshURL string

	// MaxRateRetries is how many times a 429 response is retried (default: 3)
	MaxRateRetries int

	// RateRetryBackoff is the backoff unit for 429 retries; the n-th retry
	// waits n times this value (default: 1s, so 1s/2s/3s)
	RateRetryBackoff time.Duration

	// MaxIdleConns controls connection pool size (default: 100)
	MaxIdleConns int

	// MaxIdleConnsPerHost controls per-host connection pool (default: 10)
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections stay in pool (default: 90s)
	IdleConnTimeout time.Duration
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:      DefaultTimeout,
		UserAgent:           defaultUserAgent,
		MaxRateRetries:      defaultMaxRateRetries,
		RateRetryBackoff:    defaultRateRetryBackoff,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}
}

// Metrics holds request counters for observability.
type Metrics struct {
	Requests        int64 `json:"requests"`
	RateRetries     int64 `json:"rate_retries"`
	Refreshes       int64 `json:"refreshes"`
	RefreshFailures int64 `json:"refresh_failures"`
	TransportErrors int64 `json:"transport_errors"`
}

// Client is the authenticated HTTP client. Thread-safe for concurrent use.
type Client struct {
	client         *http.Client
	defaultTimeout time.Duration
	userAgent      string
	refreshURL     string
	maxRateRetries int
	rateBackoff    time.Duration
	tokens         TokenSource
	logger         *slog.Logger

	// Hooks for observability (metrics, logging)
	// Protected by hookMu for concurrent access safety
	hookMu        sync.RWMutex
	beforeRequest func(*http.Request)
	afterResponse func(*http.Request, *http.Response, error)

	metrics struct {
		mu sync.Mutex
		Metrics
	}
}

// New creates a new HTTP client with the given configuration and token
// source. Accepts nil cfg (falls back to DefaultConfig) and does not mutate
// the caller's config. tokens may be nil for unauthenticated use.
func New(cfg *Config, tokens TokenSource) *Client {
	var c Config
	if cfg == nil {
		c = DefaultConfig()
	} else {
		c = *cfg
		// Apply defaults for zero values
		if c.DefaultTimeout == 0 {
			c.DefaultTimeout = DefaultTimeout
		}
		if c.UserAgent == "" {
			c.UserAgent = defaultUserAgent
		}
		if c.MaxRateRetries == 0 {
			c.MaxRateRetries = defaultMaxRateRetries
		}
		if c.RateRetryBackoff == 0 {
			c.RateRetryBackoff = defaultRateRetryBackoff
		}
		if c.MaxIdleConns == 0 {
			c.MaxIdleConns = defaultMaxIdleConns
		}
		if c.MaxIdleConnsPerHost == 0 {
			c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
		}
		if c.IdleConnTimeout == 0 {
			c.IdleConnTimeout = defaultIdleConnTimeout
		}
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: defaultDialKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          c.MaxIdleConns,
		MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
		IdleConnTimeout:       c.IdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			// No default timeout - handled per-request with context
		},
		defaultTimeout: c.DefaultTimeout,
		userAgent:      c.UserAgent,
		refreshURL:     c.RefreshURL,
		maxRateRetries: c.MaxRateRetries,
		rateBackoff:    c.RateRetryBackoff,
		tokens:         tokens,
		logger:         logging.ForService("httpclient"),
	}
}

// Do executes an HTTP request against url with the retry and refresh
// policies applied. body may be nil; it is buffered by the caller so every
// retry replays identical bytes. header may be nil.
//
// Non-2xx responses are returned to the caller once the policies are
// exhausted; only transport failures return an error. The response body
// must be closed by the caller if err is nil.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, header http.Header) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.metrics.mu.Lock()
	c.metrics.Requests++
	c.metrics.mu.Unlock()

	// Per-request retry state: the two counters are independent so a
	// refreshed request can still be rate-limit retried
	rateAttempts := 0
	refreshed := false

	for {
		resp, err := c.attempt(ctx, method, url, body, header)
		if err != nil {
			c.metrics.mu.Lock()
			c.metrics.TransportErrors++
			c.metrics.mu.Unlock()
			return nil, errors.New(err).
				Category(errors.CategoryNetwork).
				Context("method", method).
				Context("url", url).
				Component("httpclient").
				Build()
		}

		if resp.StatusCode == http.StatusTooManyRequests && rateAttempts < c.maxRateRetries {
			rateAttempts++
			drain(resp)

			wait := time.Duration(rateAttempts) * c.rateBackoff
			c.logger.Warn("Rate limited, retrying",
				"method", method,
				"url", url,
				"attempt", rateAttempts,
				"max_retries", c.maxRateRetries,
				"delay_ms", wait.Milliseconds())

			c.metrics.mu.Lock()
			c.metrics.RateRetries++
			c.metrics.mu.Unlock()

			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if resp.StatusCode == http.StatusUnauthorized && !refreshed && c.canRefresh(url) {
			refreshed = true
			if refreshErr := c.refresh(ctx); refreshErr != nil {
				// Refresh failed, the session is gone; the caller sees
				// the original 401
				c.logger.Warn("Token refresh failed, clearing session", "error", refreshErr)
				c.metrics.mu.Lock()
				c.metrics.RefreshFailures++
				c.metrics.mu.Unlock()
				c.tokens.Clear()
				return resp, nil
			}
			drain(resp)
			c.logger.Debug("Token refreshed, replaying request", "method", method, "url", url)
			c.metrics.mu.Lock()
			c.metrics.Refreshes++
			c.metrics.mu.Unlock()
			continue
		}

		return resp, nil
	}
}

// attempt performs a single HTTP exchange with bearer injection.
func (c *Client) attempt(ctx context.Context, method, url string, body []byte, header http.Header) (*http.Response, error) {
	// Apply default timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.hookMu.RLock()
	beforeHook := c.beforeRequest
	c.hookMu.RUnlock()
	if beforeHook != nil {
		beforeHook(req)
	}

	resp, err := c.client.Do(req)

	c.hookMu.RLock()
	afterHook := c.afterResponse
	c.hookMu.RUnlock()
	if afterHook != nil {
		afterHook(req, resp, err)
	}

	return resp, err
}

func (c *Client) canRefresh(requestURL string) bool {
	// The refresh call itself must never trigger another refresh
	return c.refreshURL != "" && requestURL != c.refreshURL &&
		c.tokens != nil && c.tokens.RefreshToken() != ""
}

// refresh exchanges the refresh token for a new token pair and rotates the
// session store. Exactly one refresh happens per original request.
func (c *Client) refresh(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{"refreshToken": c.tokens.RefreshToken()})
	if err != nil {
		return fmt.Errorf("failed to marshal refresh payload: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	resp, err := c.attempt(ctx, http.MethodPost, c.refreshURL, payload, header)
	if err != nil {
		return fmt.Errorf("refresh request failed: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("refresh rejected with status %d", resp.StatusCode).
			Category(errors.CategoryAuth).
			Context("status_code", resp.StatusCode).
			Component("httpclient").
			Build()
	}

	var tokens struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if tokens.AccessToken == "" {
		return errors.Newf("refresh response carried no access token").
			Category(errors.CategoryAuth).
			Component("httpclient").
			Build()
	}

	c.tokens.SetTokens(tokens.AccessToken, tokens.RefreshToken)
	return nil
}

// SetBeforeRequestHook sets a function to be called before each request.
// Safe to call concurrently with Do() and other hook setters.
func (c *Client) SetBeforeRequestHook(fn func(*http.Request)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.beforeRequest = fn
}

// SetAfterResponseHook sets a function to be called after each request.
// Safe to call concurrently with Do() and other hook setters.
func (c *Client) SetAfterResponseHook(fn func(*http.Request, *http.Response, error)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.afterResponse = fn
}

// StandardClient exposes the underlying *http.Client so callers can swap
// its transport, primarily for httpmock in tests.
func (c *Client) StandardClient() *http.Client {
	return c.client
}

// GetMetrics returns a copy of the current request counters.
func (c *Client) GetMetrics() Metrics {
	c.metrics.mu.Lock()
	defer c.metrics.mu.Unlock()
	return c.metrics.Metrics
}

// Close closes idle connections in the connection pool.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
