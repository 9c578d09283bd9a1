// Package client provides the HTTP client used to query the REE apidatos API.
//
// One Client holds one connection-pooled http.Transport; every request of a
// batch shares it. Responses are read fully so callers get the status and
// body without managing connection release.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/ree-datos/pkg/cache"
	"github.com/Sternrassler/ree-datos/pkg/logging"
	"github.com/Sternrassler/ree-datos/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ree_requests_total",
		Help: "Total REE API requests by host and status",
	}, []string{"host", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ree_request_duration_seconds",
		Help:    "REE API request duration in seconds by host",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"host"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ree_errors_total",
		Help: "Total REE API errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// Timeout per request; 0 leaves the http.Client default (none).
	Timeout time.Duration

	// MaxIdleConnsPerHost sizes the shared pool for the API host.
	MaxIdleConnsPerHost int

	// UserAgent is sent when the caller's headers carry none.
	UserAgent string

	// MaxRetries beyond the first attempt; 0 disables retries.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Cache is optional.
	Cache *cache.Manager

	// Limiter is optional; nil means unlimited.
	Limiter *ratelimit.Limiter
}

// DefaultConfig mirrors a plain pooled session: no timeout, no retry, no
// cache, no rate limit.
func DefaultConfig() Config {
	return Config{
		MaxIdleConnsPerHost: 32,
		UserAgent:           "ree-datos/1.0",
		InitialBackoff:      1 * time.Second,
		MaxBackoff:          30 * time.Second,
	}
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// FromCache is set when the body was served from the response cache.
	FromCache bool
}

// Client is the shared-session HTTP client.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = DefaultConfig().MaxIdleConnsPerHost
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		cache:   cfg.Cache,
		limiter: cfg.Limiter,
		config:  cfg,
		logger:  logging.NewLogger("ree-client"),
	}, nil
}

// Get issues a GET to rawURL with the given headers.
//
// Any HTTP status is returned as a Response; only transport failures,
// limiter/context cancellation and malformed URLs return an error. With
// retries enabled, retryable statuses that never recover yield the last
// response.
func (c *Client) Get(ctx context.Context, rawURL string, headers http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if headers != nil {
		req.Header = headers.Clone()
	}
	if req.Header.Get("User-Agent") == "" && c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	key := cache.Key{URL: rawURL, Headers: headers}
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("url", rawURL).Msg("Cache hit")
			requestsTotal.WithLabelValues(req.URL.Host, "cache").Inc()
			return &Response{
				StatusCode: entry.StatusCode,
				Header:     entry.Header,
				Body:       entry.Body,
				FromCache:  true,
			}, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("url", rawURL).Msg("Cache get error")
		}
	}

	retryCfg := DefaultRetryConfig()
	retryCfg.MaxAttempts = c.config.MaxRetries + 1
	if c.config.InitialBackoff > 0 {
		retryCfg.InitialBackoff = c.config.InitialBackoff
	}
	if c.config.MaxBackoff > 0 {
		retryCfg.MaxBackoff = c.config.MaxBackoff
	}

	var resp *Response
	err = c.retryWithBackoff(ctx, retryCfg, func() (ErrorClass, error) {
		resp = nil
		if err := c.limiter.Wait(ctx); err != nil {
			// Not retryable: the context is gone.
			return "", err
		}

		r, err := c.do(req.Clone(ctx))
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return ErrorClassNetwork, &RequestError{URL: rawURL, Class: ErrorClassNetwork, Err: err}
		}
		resp = r

		class := classifyStatus(r.StatusCode)
		if class == "" {
			return "", nil
		}
		errorsTotal.WithLabelValues(string(class)).Inc()
		return class, &RequestError{URL: rawURL, Class: class, StatusCode: r.StatusCode}
	})
	if err != nil {
		if errors.Is(err, ErrContextCancelled) || resp == nil {
			return nil, err
		}
		// HTTP status failure: the caller decides what a non-200 means.
		return resp, nil
	}

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry := cache.NewEntry(resp.StatusCode, resp.Header, resp.Body, c.cache.TTL())
		if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Str("url", rawURL).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

// do executes one request and reads the whole body.
func (c *Client) do(req *http.Request) (*Response, error) {
	host := req.URL.Host
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
	}()

	c.logger.Debug().Str("url", redact(req.URL)).Msg("Executing request")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(host, "network_error").Inc()
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(host, "network_error").Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	requestsTotal.WithLabelValues(host, strconv.Itoa(httpResp.StatusCode)).Inc()
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

// redact drops user info from URLs before logging.
func redact(u *url.URL) string {
	if u.User == nil {
		return u.String()
	}
	clone := *u
	clone.User = nil
	return clone.String()
}

// Close releases idle pooled connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
