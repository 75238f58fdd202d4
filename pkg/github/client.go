// Package github provides the resilient GitHub API client: rate limit
// pacing, circuit breaking, retry with exponential backoff, bounded
// pagination, and conditional-request caching around the four read
// operations this service aggregates.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/devfolio/github-aggregator/pkg/breaker"
	"github.com/devfolio/github-aggregator/pkg/cache"
	"github.com/devfolio/github-aggregator/pkg/ratelimit"
)

// Prometheus metrics for GitHub API operations.
var (
	githubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_requests_total",
		Help: "Total GitHub requests by endpoint and status",
	}, []string{"endpoint", "status"})

	githubRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "github_request_duration_seconds",
		Help:    "GitHub request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	githubErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_errors_total",
		Help: "Total GitHub errors by class",
	}, []string{"class"})

	githubRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_retries_total",
		Help: "Total number of retry attempts by endpoint",
	}, []string{"endpoint"})

	githubRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by endpoint",
	}, []string{"endpoint"})
)

// Default API parameters.
const (
	defaultBaseURL    = "https://api.github.com"
	defaultAPIVersion = "2022-11-28"

	// DefaultPerPage is the page size for collection endpoints.
	DefaultPerPage = 100

	// DefaultMaxPages caps repository pagination (DefaultMaxPages *
	// DefaultPerPage repositories at most).
	DefaultMaxPages = 10
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the GitHub REST API.
	BaseURL string

	// APIVersion is sent as the X-GitHub-Api-Version header.
	APIVersion string

	// UserAgent header for all requests (required by GitHub).
	UserAgent string

	// Per-operation timeouts. Repository listing traverses up to
	// MaxPages pages in one operation and gets a longer budget.
	UserTimeout   time.Duration
	ReposTimeout  time.Duration
	OrgsTimeout   time.Duration
	SearchTimeout time.Duration

	// Retry: MaxRetries additional attempts after the first, with
	// exponential backoff from InitialBackoff capped at MaxBackoff.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Pagination
	PerPage  int
	MaxPages int

	// Rate limiter pacing threshold and per-window ceiling.
	RateLimitThreshold int
	RateLimitCeiling   int

	// Circuit breaker trip threshold and cooldown.
	BreakerThreshold uint32
	BreakerCooldown  time.Duration

	// CacheMaxEntries bounds the conditional-request cache.
	CacheMaxEntries int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:            defaultBaseURL,
		APIVersion:         defaultAPIVersion,
		UserAgent:          "github-aggregator/1.0",
		UserTimeout:        30 * time.Second,
		ReposTimeout:       120 * time.Second,
		OrgsTimeout:        30 * time.Second,
		SearchTimeout:      30 * time.Second,
		MaxRetries:         2,
		InitialBackoff:     2 * time.Second,
		MaxBackoff:         10 * time.Second,
		PerPage:            DefaultPerPage,
		MaxPages:           DefaultMaxPages,
		RateLimitThreshold: ratelimit.DefaultThreshold,
		RateLimitCeiling:   ratelimit.DefaultCeiling,
		BreakerThreshold:   breaker.DefaultFailureThreshold,
		BreakerCooldown:    breaker.DefaultCooldown,
		CacheMaxEntries:    cache.DefaultMaxEntries,
	}
}

// Client is the resilient GitHub API client. One instance is shared by all
// concurrent requests; the limiter, breaker, and cache it owns are the
// process-wide resilience state.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	breaker    *breaker.Breaker
	cache      *cache.Store
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a new GitHub client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}

	clientLogger := logger.With().Str("component", "github-client").Logger()

	cb := breaker.New(breaker.Config{
		FailureThreshold:  cfg.BreakerThreshold,
		Cooldown:          cfg.BreakerCooldown,
		IsUpstreamFailure: IsUpstreamFailure,
	}, logger.With().Str("component", "circuit-breaker").Logger())

	limiter := ratelimit.NewLimiter(
		cfg.RateLimitThreshold,
		cfg.RateLimitCeiling,
		logger.With().Str("component", "rate-limiter").Logger(),
	)

	return &Client{
		// No client-level timeout: each operation carries its own
		// deadline via context.
		httpClient: &http.Client{},
		limiter:    limiter,
		breaker:    cb,
		cache:      cache.NewStore(cfg.CacheMaxEntries),
		config:     cfg,
		logger:     clientLogger,
	}, nil
}

// GetUser fetches the authenticated user. The response must be an object
// carrying a login; anything else is a structural error, because the
// login keys the pull-request search downstream.
func (c *Client) GetUser(ctx context.Context, token string) (*User, error) {
	var user User

	err := c.withRetry(ctx, "/user", func(ctx context.Context) error {
		return c.breaker.Execute(func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			resp, err := c.doGet(ctx, token, "/user", nil, c.config.UserTimeout, true)
			if err != nil {
				return err
			}

			if err := json.Unmarshal(resp.body, &user); err != nil {
				return &StructuralError{Resource: "user", Detail: "expected a JSON object"}
			}
			if user.Login == "" {
				c.logger.Error().Msg("Missing login field in user response")
				return &StructuralError{Resource: "user", Detail: "missing required login field"}
			}

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().Str("login", user.Login).Msg("Fetched user info")
	return &user, nil
}

// ListOrganizations fetches the organizations the authenticated user
// belongs to. Single page, page size PerPage. A mis-shaped body degrades
// to an empty list.
func (c *Client) ListOrganizations(ctx context.Context, token string) ([]Organization, error) {
	query := url.Values{
		"per_page": {fmt.Sprintf("%d", c.config.PerPage)},
	}

	var orgs []Organization

	err := c.withRetry(ctx, "/user/orgs", func(ctx context.Context) error {
		return c.breaker.Execute(func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			resp, err := c.doGet(ctx, token, "/user/orgs", query, c.config.OrgsTimeout, true)
			if err != nil {
				return err
			}

			orgs = nil
			if err := json.Unmarshal(resp.body, &orgs); err != nil {
				c.logger.Warn().Msg("Invalid organizations response shape, using empty list")
				orgs = []Organization{}
			}
			if orgs == nil {
				orgs = []Organization{}
			}

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().Int("count", len(orgs)).Msg("Fetched organizations")
	return orgs, nil
}

// SearchPullRequests fetches pull requests authored by username. Single
// page of the search endpoint; the response is an object with an items
// collection, which degrades to empty on shape mismatch.
func (c *Client) SearchPullRequests(ctx context.Context, token, username string) ([]PullRequest, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required to search pull requests")
	}

	query := url.Values{
		"q":        {fmt.Sprintf("is:pr author:%s", username)},
		"sort":     {"updated"},
		"per_page": {fmt.Sprintf("%d", c.config.PerPage)},
	}

	var prs []PullRequest

	err := c.withRetry(ctx, "/search/issues", func(ctx context.Context) error {
		return c.breaker.Execute(func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			resp, err := c.doGet(ctx, token, "/search/issues", query, c.config.SearchTimeout, true)
			if err != nil {
				return err
			}

			var result searchResult
			if err := json.Unmarshal(resp.body, &result); err != nil || result.Items == nil {
				c.logger.Warn().Msg("Invalid pull request search response shape, using empty list")
				prs = []PullRequest{}
				return nil
			}
			prs = result.Items

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().Str("author", username).Int("count", len(prs)).Msg("Fetched pull requests")
	return prs, nil
}

// withRetry runs an operation attempt with exponential backoff on
// transient failures. Permanent failures, structural errors, and
// circuit-open rejections surface immediately.
func (c *Client) withRetry(ctx context.Context, endpoint string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(
		uint64(c.config.MaxRetries),
		retry.WithCappedDuration(c.config.MaxBackoff, retry.NewExponential(c.config.InitialBackoff)),
	)

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				c.logger.Info().
					Str("endpoint", endpoint).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		if IsTransient(err) && !breaker.IsOpenError(err) {
			githubRetriesTotal.WithLabelValues(endpoint).Inc()
			c.logger.Warn().
				Err(err).
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Msg("Transient failure, will retry with backoff")
			return retry.RetryableError(err)
		}

		return err
	})
	if err == nil {
		return nil
	}

	if IsTransient(err) && attempt > c.config.MaxRetries {
		githubRetryExhaustedTotal.WithLabelValues(endpoint).Inc()
		c.logger.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("attempts", attempt).
			Msg("Retry attempts exhausted")
		return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, err)
	}

	return err
}

// response is the outcome of a single upstream GET.
type response struct {
	body   []byte
	header http.Header
	status int
	cached bool
}

// doGet performs one GET attempt against the API: bearer auth, accept and
// version headers, per-request timeout, conditional-request caching for
// cacheable single-resource calls, rate limit feedback, and status
// classification. Returns an *APIError for any non-2xx status.
func (c *Client) doGet(ctx context.Context, token, path string, query url.Values, timeout time.Duration, cacheable bool) (*response, error) {
	endpoint := path
	startTime := time.Now()
	defer func() {
		githubRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	reqURL := strings.TrimRight(c.config.BaseURL, "/") + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", c.config.APIVersion)
	req.Header.Set("User-Agent", c.config.UserAgent)

	var cacheKey cache.Key
	var cachedEntry *cache.Entry
	if cacheable {
		cacheKey = cache.Key{
			Path:             path,
			Query:            query,
			TokenFingerprint: cache.TokenFingerprint(token),
		}
		cachedEntry = c.cache.Get(cacheKey)
		cache.AddConditionalHeaders(req, cachedEntry)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		githubErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		githubRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, err
	}
	defer resp.Body.Close()

	c.limiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.cache.MarkRevalidated()
		githubRequestsTotal.WithLabelValues(endpoint, "304").Inc()
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified, using cached body")
		return &response{
			body:   cachedEntry.Data,
			header: resp.Header,
			status: cachedEntry.StatusCode,
			cached: true,
		}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		githubErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		class := classifyStatus(resp.StatusCode)
		githubErrorsTotal.WithLabelValues(string(class)).Inc()
		githubRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("GitHub request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    resp.Status,
		}
	}

	githubRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if cacheable {
		c.cache.Set(cacheKey, body, resp.Header.Get("ETag"), resp.StatusCode)
	}

	return &response{
		body:   body,
		header: resp.Header,
		status: resp.StatusCode,
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Limiter returns the shared rate limiter.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Breaker returns the shared circuit breaker.
func (c *Client) Breaker() *breaker.Breaker {
	return c.breaker
}
