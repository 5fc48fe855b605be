package constants

import (
	"time"
)

// HTTP transport timeouts
const (
	// HTTPDialTimeout - TCP connect timeout for portal requests
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive probe interval for pooled connections
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPIdleConnTimeout - idle pooled connections are closed after this
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - TLS handshake budget (slow office proxies)
	HTTPTLSHandshakeTimeout = 30 * time.Second

	// HTTPExpectContinueTimeout - wait for 100-continue
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPClientTimeout - overall per-request ceiling for JSON calls
	HTTPClientTimeout = 120 * time.Second

	// ProxyWarmupTimeout - budget for the optional proxy warmup request
	ProxyWarmupTimeout = 15 * time.Second
)

// Retry configuration
const (
	// MaxRetries - maximum attempts for the recursive library load
	MaxRetries = 5

	// RetryInitialDelay - initial delay before first retry (200ms)
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - maximum delay between retries (15s)
	// Exponential backoff with jitter caps at this value
	RetryMaxDelay = 15 * time.Second

	// HTTPRetryMax - retries performed by the retryablehttp transport itself
	HTTPRetryMax = 3

	// HTTPRetryWaitMin / HTTPRetryWaitMax - transport retry wait bounds
	HTTPRetryWaitMin = 500 * time.Millisecond
	HTTPRetryWaitMax = 10 * time.Second
)

// Browsing
const (
	// DefaultPageSize - entries shown per page of the documents list
	DefaultPageSize = 10

	// MaxPageSize - upper bound accepted from config/flags
	MaxPageSize = 200

	// RecursiveListPageSize - page size requested while walking the recursive listing
	RecursiveListPageSize = 500
)

// E-sign assignment polling
const (
	// ESignMaxAttempts - status queries before the outcome is reported as unknown
	ESignMaxAttempts = 30

	// ESignPollInterval - fixed wait before each status query
	ESignPollInterval = 2 * time.Second
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels
	EventBusDefaultBuffer = 256
)

// API metrics
const (
	// MetricsLogWindow - API usage is summarised in the log once per window
	MetricsLogWindow = 30 * time.Second
)
