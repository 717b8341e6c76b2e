// Package chembl is the HTTP client for the ChEMBL web services. It serves
// as the similarity source, bioactivity source, structure toolkit and
// resolver of the pipeline. Calls are rate limited, retried on transient
// failures, guarded by a circuit breaker and optionally cached.
package chembl

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/turtacn/compound-analysis/internal/config"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/compound-analysis/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

const (
	sourceName      = "chembl"
	userAgent       = "compound-analysis/1.0"
	maxRetryBackoff = 10 * time.Second
	maxBodyBytes    = 32 << 20
)

// Cache is the read-through cache used for API responses.
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
}

// errNotFound marks a 404 from the API. It never leaves the package.
var errNotFound = stderrors.New("chembl: not found")

// Client talks to the ChEMBL REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cfg        config.ChEMBLConfig
	maxSimilar int
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	cache      Cache
	metrics    *prometheus.AppMetrics
	logger     logging.Logger
}

type Option func(*Client)

// WithCache enables response caching for cfg.CacheTTL.
func WithCache(c Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.httpClient = h }
}

// WithMaxSimilar caps the number of similarity candidates returned.
func WithMaxSimilar(n int) Option {
	return func(cl *Client) { cl.maxSimilar = n }
}

// NewClient builds a client. Zero config values fall back to defaults.
func NewClient(cfg config.ChEMBLConfig, log logging.Logger, opts ...Option) (*Client, error) {
	applyDefaults(&cfg)
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.InvalidParam("chembl base url must be an http(s) url").WithDetail("base_url=" + cfg.BaseURL)
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		maxSimilar: config.DefaultAnalysisMaxSimilar,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		logger:     log.Named("chembl"),
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    sourceName,
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinReqs {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailRatio
		},
		IsSuccessful: func(err error) bool {
			// Misses, cancellations and auth failures do not count against the breaker.
			return err == nil || err == errNotFound ||
				stderrors.Is(err, context.Canceled) ||
				errors.IsCode(err, errors.ErrCodeDataSourceAuthFailed)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()))
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func applyDefaults(cfg *config.ChEMBLConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultChEMBLBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultChEMBLTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = config.DefaultChEMBLRateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = config.DefaultChEMBLBurst
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = config.DefaultChEMBLRetryWait
	}
	if cfg.BreakerFailRatio <= 0 {
		cfg.BreakerFailRatio = config.DefaultChEMBLBreakerFailRatio
	}
	if cfg.BreakerMinReqs == 0 {
		cfg.BreakerMinReqs = config.DefaultChEMBLBreakerMinReqs
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = config.DefaultChEMBLBreakerOpenFor
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = config.DefaultChEMBLPageLimit
	}
}

// getJSON fetches path with query and decodes the body into out. It returns
// errNotFound for a 404.
func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetchWithRetry(ctx, path, query)
	})
	if err == errNotFound {
		c.metrics.RecordCollaboratorCall(sourceName, op, time.Since(start), nil)
		return errNotFound
	}
	if err != nil {
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			err = errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "chembl circuit open")
		}
		c.metrics.RecordCollaboratorCall(sourceName, op, time.Since(start), err)
		return err
	}
	c.metrics.RecordCollaboratorCall(sourceName, op, time.Since(start), nil)

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, errors.ErrCodeDataSourceParseError, "failed to decode chembl response").
			WithDetail("path=" + path)
	}
	return nil
}

func (c *Client) fetchWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt, lastErr)
			c.logger.Debug("retrying chembl request",
				logging.String("path", path),
				logging.Int("attempt", attempt),
				logging.Duration("wait", wait),
				logging.Err(lastErr))
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.fetch(ctx, path, query)
		if err == nil || !retryable(err) {
			return body, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, lastErr
}

// retryAfterError carries the server-requested delay of a 429.
type retryAfterError struct {
	err   *errors.AppError
	after time.Duration
}

func (e *retryAfterError) Error() string { return e.err.Error() }
func (e *retryAfterError) Unwrap() error { return e.err }

func (c *Client) fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "failed to build chembl request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "chembl request failed").
			WithDetail("path=" + path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "failed to read chembl response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		e := &retryAfterError{err: errors.New(errors.ErrCodeDataSourceRateLimited, "chembl rate limit exceeded")}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			e.after = time.Duration(secs) * time.Second
		}
		return nil, e
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.New(errors.ErrCodeDataSourceAuthFailed, "chembl rejected credentials").
			WithDetail(fmt.Sprintf("status=%d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, errors.New(errors.ErrCodeDataSourceUnavailable, "chembl server error").
			WithDetail(fmt.Sprintf("status=%d path=%s", resp.StatusCode, path))
	default:
		return nil, errors.New(errors.ErrCodeDataSourceParseError, "unexpected chembl response").
			WithDetail(fmt.Sprintf("status=%d path=%s", resp.StatusCode, path))
	}
}

func retryable(err error) bool {
	var ra *retryAfterError
	if stderrors.As(err, &ra) {
		return true
	}
	return errors.IsCode(err, errors.ErrCodeDataSourceUnavailable)
}

// backoff is exponential from RetryWait with up to 25% jitter. A 429 with
// Retry-After waits at least that long.
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	d := c.cfg.RetryWait * time.Duration(1<<uint(attempt-1))
	if d > maxRetryBackoff {
		d = maxRetryBackoff
	}
	if q := int64(d / 4); q > 0 {
		d += time.Duration(rand.Int63n(q))
	}
	var ra *retryAfterError
	if stderrors.As(lastErr, &ra) && ra.after > d {
		d = ra.after
	}
	return d
}

// cached fills dest via the cache when one is configured. A loader returning
// nil records the absence; that case is reported as found=false.
func (c *Client) cached(ctx context.Context, key string, dest interface{}, loader func(ctx context.Context) (interface{}, error)) (bool, error) {
	if c.cache == nil {
		v, err := loader(ctx)
		if err != nil || v == nil {
			return false, err
		}
		return true, copyInto(v, dest)
	}

	loaded := false
	err := c.cache.GetOrSet(ctx, key, dest, c.cfg.CacheTTL, func(ctx context.Context) (interface{}, error) {
		loaded = true
		return loader(ctx)
	})
	c.metrics.RecordCacheAccess(sourceName, !loaded)
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func copyInto(v, dest interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode chembl value")
	}
	return json.Unmarshal(data, dest)
}

// Name identifies the dependency in health reports.
func (c *Client) Name() string { return sourceName }

// HealthCheck reports an open breaker as unavailable.
func (c *Client) HealthCheck(context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return errors.Unavailable("chembl circuit breaker is open")
	}
	return nil
}

//Personal.AI order the ending
