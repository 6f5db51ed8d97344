package client

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultHTTPTimeoutSeconds     = 30
	defaultHTTPIdleTimeoutSeconds = 90
)

// HTTPOption configures HTTP client behavior.
type HTTPOption func(*httpConfig)

// httpConfig holds HTTP client configuration.
type httpConfig struct {
	timeout     time.Duration
	transport   http.RoundTripper
	idleTimeout time.Duration
	retryPolicy *RetryPolicy
}

func (c *httpConfig) process(opts ...HTTPOption) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithHTTPTimeout sets the request timeout.
func WithHTTPTimeout(timeout time.Duration) HTTPOption {
	return func(c *httpConfig) {
		c.timeout = timeout
	}
}

// WithHTTPTransport sets the HTTP transport.
func WithHTTPTransport(transport http.RoundTripper) HTTPOption {
	return func(c *httpConfig) {
		c.transport = transport
	}
}

// WithHTTPIdleTimeout sets the idle timeout.
func WithHTTPIdleTimeout(timeout time.Duration) HTTPOption {
	return func(c *httpConfig) {
		c.idleTimeout = timeout
	}
}

// WithRetryPolicy sets the retry policy for transient server errors.
func WithRetryPolicy(policy *RetryPolicy) HTTPOption {
	return func(c *httpConfig) {
		c.retryPolicy = policy
	}
}

// RetryPolicy controls retries on transient failures. The default policy is
// a single attempt.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// Backoff returns the delay before the given attempt, doubling each time.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	backoff := p.InitialBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}

func singleAttemptPolicy() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

// NewHTTPClient creates a new HTTP client with the provided options.
// If no transport is specified, it defaults to otelhttp.NewTransport(http.DefaultTransport).
func NewHTTPClient(opts ...HTTPOption) *http.Client {
	cfg := &httpConfig{
		timeout:     time.Duration(defaultHTTPTimeoutSeconds) * time.Second,
		idleTimeout: time.Duration(defaultHTTPIdleTimeoutSeconds) * time.Second,
		transport:   otelhttp.NewTransport(http.DefaultTransport),
	}
	cfg.process(opts...)

	httpClient := &http.Client{
		Transport: cfg.transport,
		Timeout:   cfg.timeout,
	}

	if cfg.idleTimeout > 0 {
		if t, ok := httpClient.Transport.(*http.Transport); ok {
			t.IdleConnTimeout = cfg.idleTimeout
		}
	}

	return httpClient
}
