// Package client provides the HTTP transport for the Semantic Scholar
// Graph API with request pacing, 429 cooldowns, retries, response
// caching and error classification, plus the generic Query routine that
// turns an Endpoint into a typed value.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/scholars-client/pkg/cache"
	"github.com/Sternrassler/scholars-client/pkg/ratelimit"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the Graph API v1 root. It must end with a slash.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1/"

	// APIKeyHeader carries the optional API key.
	APIKeyHeader = "x-api-key"

	// RequestIDHeader carries a per-request UUID.
	RequestIDHeader = "X-Request-ID"

	// MaxBodySize bounds response bodies read by Query.
	MaxBodySize = 10 << 20
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Requester builds and executes Graph API requests.
// *Client implements it; tests may substitute their own.
type Requester interface {
	Doer
	NewRequest(ctx context.Context, method, path string, query url.Values) (*http.Request, error)
}

// Client is the Graph API transport. It is safe for concurrent use.
type Client struct {
	httpClient Doer
	baseURL    *url.URL
	limiter    *ratelimit.Limiter
	cooldown   *ratelimit.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Compile-time check that Client implements Requester.
var _ Requester = (*Client)(nil)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root; defaults to DefaultBaseURL.
	BaseURL string `validate:"required,url"`

	// APIKey is sent as x-api-key when set.
	APIKey string

	// UserAgent header sent with every request.
	UserAgent string `validate:"required"`

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration `validate:"gt=0"`

	// Pacing. A RateLimit of 0 disables it.
	RateLimit float64 `validate:"gte=0"`
	Burst     int     `validate:"gte=1"`

	// Retry policy for network errors, 429 and 5xx.
	Retry RetryConfig

	// Redis enables the response cache and shares 429 cooldowns.
	// Optional.
	Redis *redis.Client `validate:"-"`

	// CacheTTL is used for responses without Cache-Control max-age.
	CacheTTL time.Duration `validate:"gte=0"`

	// HTTPClient overrides the underlying transport. Optional.
	HTTPClient Doer `validate:"-"`
}

// DefaultConfig returns a configuration suited to the public API.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		RateLimit: 1,
		Burst:     1,
		Retry:     DefaultRetryConfig(),
		CacheTTL:  cache.DefaultTTL,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// New creates a new Graph API client.
func New(cfg Config) (*Client, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}

	logger := log.With().Str("component", "scholars-client").Logger()

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		limiter:    ratelimit.NewLimiter(cfg.RateLimit, cfg.Burst),
		cooldown:   ratelimit.NewTracker(cfg.Redis, logger),
		config:     cfg,
		logger:     logger,
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis, cfg.CacheTTL)
	}
	return c, nil
}

// NewRequest builds a request for path relative to the base URL.
// path segments must already be escaped. A path that resolves outside
// the base URL, through ".." segments, fails with ErrInvalidURL.
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if !strings.HasPrefix(u.Path+"/", c.baseURL.Path) {
		return nil, fmt.Errorf("%w: path %q leaves the API root %s", ErrInvalidURL, path, c.baseURL.Path)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return req, nil
}

// Get performs a GET request for path.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, path, query)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// BaseURL returns the API root requests are resolved against.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Do performs an HTTP request with pacing, cooldowns, caching and retries.
//
// Retryable failures (network errors, 429, 5xx) are retried with backoff.
// When the final attempt still gets a 429 or 5xx, that response is
// returned rather than an error so the caller can decode the API's error
// body. Only a network failure on every attempt yields an error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := EndpointLabel(ctx)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check cache
	cacheKey := cache.KeyFromURL(req.URL)
	if c.cache != nil && req.Method == http.MethodGet {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().
				Str("endpoint", endpoint).
				Str("key", cacheKey.String()).
				Msg("Cache hit")
			requestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			return cache.EntryToResponse(entry, req), nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Step 2: Set headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set(APIKeyHeader, c.config.APIKey)
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	// Step 3: Execute with retries
	var resp *http.Response
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func(attempt int, last bool) *attemptOutcome {
		if err := c.cooldown.Wait(ctx); err != nil {
			return &attemptOutcome{class: ErrorClassClient, err: err}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return &attemptOutcome{class: ErrorClassClient, err: err}
		}

		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("method", req.Method).
			Str("url", req.URL.Redacted()).
			Int("attempt", attempt).
			Msg("Executing request")

		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			resp = nil
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")

			class := ErrorClassNetwork
			if ctx.Err() != nil {
				// never retry a cancelled request
				class = ErrorClassClient
			}
			return &attemptOutcome{class: class, err: reqErr}
		}

		status := strconv.Itoa(resp.StatusCode)
		requestsTotal.WithLabelValues(endpoint, status).Inc()

		class := classifyStatus(resp.StatusCode)
		if class == "" {
			return nil
		}
		errorsTotal.WithLabelValues(string(class)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("API request error")

		var retryAfter time.Duration
		if class == ErrorClassRateLimit {
			d, err := c.cooldown.RecordTooManyRequests(ctx, resp.Header)
			if err != nil {
				c.logger.Warn().Err(err).Msg("Failed to share cooldown")
			}
			retryAfter = d
		}

		if !shouldRetry(class) || last {
			// Hand the response to the caller for decoding.
			return &attemptOutcome{class: class, handBack: true}
		}

		code := resp.StatusCode
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		resp = nil

		return &attemptOutcome{
			class:      class,
			retryAfter: retryAfter,
			err:        fmt.Errorf("server returned status %d", code),
		}
	})
	if err != nil {
		return nil, err
	}

	// Step 4: Update cache on success
	if c.cache != nil && req.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
		c.store(ctx, cacheKey, resp, endpoint)
	}

	return resp, nil
}

func (c *Client) store(ctx context.Context, key cache.CacheKey, resp *http.Response, endpoint string) {
	entry, err := cache.ResponseToEntry(resp, c.cache.DefaultTTL())
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		return
	}
	if entry == nil {
		return
	}
	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache response")
		return
	}
	c.logger.Debug().
		Str("endpoint", endpoint).
		Dur("ttl", entry.TTL()).
		Msg("Cached response")
}

// Ping checks the cache backend when one is configured.
func (c *Client) Ping(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Ping(ctx)
}

// Close releases idle connections held by the default transport.
func (c *Client) Close() error {
	if hc, ok := c.httpClient.(*http.Client); ok {
		hc.CloseIdleConnections()
	}
	return nil
}

// GetCache returns the cache manager, or nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// Cooldown returns the 429 cooldown tracker.
func (c *Client) Cooldown() *ratelimit.Tracker {
	return c.cooldown
}
