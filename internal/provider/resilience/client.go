package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without contacting the provider while its
// breaker is open or the half-open trial slots are taken.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies the provider in the breaker and the registry.
	Name string

	// Timeout bounds a single attempt. Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Default: 3
	MaxRetries uint64

	// InitialInterval and MaxInterval bound the exponential backoff.
	// Defaults: 100ms and 5s. MaxInterval also caps a server's Retry-After.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// UserAgent is set on requests that carry none.
	UserAgent string

	// CircuitBreaker defaults to DefaultCircuitBreakerConfig(Name).
	CircuitBreaker *CircuitBreakerConfig

	// Registry receives the client on creation and every request outcome
	// (optional).
	Registry *Registry
}

// DefaultClientConfig returns the defaults for a provider client.
func DefaultClientConfig(name string) ClientConfig {
	cbConfig := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		CircuitBreaker:  &cbConfig,
	}
}

// Client is an HTTP client with retries and a circuit breaker.
//
// 5xx and 429 responses are retried and count against the breaker. Other 4xx
// responses are returned at once and count as successes, since the provider
// answered. When retries run out on an HTTP error the last response is
// returned with a nil error so callers can map the status themselves.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
	config         ClientConfig
}

// NewClient creates a resilient client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	def := DefaultClientConfig(cfg.Name)
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.CircuitBreaker == nil {
		cfg.CircuitBreaker = def.CircuitBreaker
	}

	c := &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: NewCircuitBreaker[*http.Response](*cfg.CircuitBreaker),
		config:         cfg,
	}

	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.config.Name
}

// Do sends req under its own context.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext sends req, retrying transient failures with exponential
// backoff. A Retry-After header on a 429 or 5xx replaces the computed delay,
// capped at MaxInterval.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by MaxRetries
	delays := &retryAfterBackOff{BackOff: bo, max: c.config.MaxInterval}

	var last *http.Response
	operation := func() error {
		if last != nil {
			drain(last)
			last = nil
		}

		resp, err := c.circuitBreaker.Execute(func() (*http.Response, error) {
			return c.attempt(ctx, req)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		last = resp

		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			delays.pending = statusErr.RetryAfter
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(delays, c.config.MaxRetries), ctx)
	err := backoff.Retry(operation, policy)
	latency := time.Since(start)

	if err == nil {
		c.recordSuccess(latency)
		return last, nil
	}

	c.recordFailure(err, latency)
	if last == nil {
		return nil, err
	}
	if ctx.Err() != nil {
		drain(last)
		return nil, ctx.Err()
	}
	// Retries exhausted on an HTTP status; the caller maps it.
	return last, nil
}

func (c *Client) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	// Each attempt gets a fresh clone with a rewound body.
	clone := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		clone.Body = body
	}
	if c.config.UserAgent != "" && clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(clone)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return resp, &StatusError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return resp, nil
}

func (c *Client) recordSuccess(latency time.Duration) {
	if c.config.Registry != nil {
		c.config.Registry.RecordSuccess(c.config.Name, latency)
	}
}

func (c *Client) recordFailure(err error, latency time.Duration) {
	if c.config.Registry != nil {
		c.config.Registry.RecordFailure(c.config.Name, err, latency)
	}
}

// CircuitBreakerState returns the current breaker state.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts returns the breaker counters for the current interval.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.circuitBreaker.Counts()
}

// StatusError is a retryable HTTP status from a provider.
type StatusError struct {
	StatusCode int
	// RetryAfter is the server's requested delay, zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// parseRetryAfter reads either form of Retry-After: delay-seconds or an
// HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}

// retryAfterBackOff lets a server-provided delay override the next interval.
type retryAfterBackOff struct {
	backoff.BackOff
	max     time.Duration
	pending time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.pending > 0 {
		next = min(b.pending, b.max)
		b.pending = 0
	}
	return next
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
