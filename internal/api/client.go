package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/taxdesk/portal-client/internal/config"
	"github.com/taxdesk/portal-client/internal/constants"
	"github.com/taxdesk/portal-client/internal/http"
	"github.com/taxdesk/portal-client/internal/logging"
	"github.com/taxdesk/portal-client/internal/ratelimit"
)

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg("retry: " + msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("retry: " + msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg("retry: " + msg)
}

// apiMetrics tracks API usage statistics
type apiMetrics struct {
	sync.Mutex
	totalCalls    int64
	callsByPath   map[string]int64
	windowStart   time.Time
	callsInWindow int64
}

// Option customizes a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger       *logging.Logger
	limiter      *ratelimit.RateLimiter
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// WithLogger sets the logger used for request and retry diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithRateLimiter replaces the default portal limiter.
func WithRateLimiter(rl *ratelimit.RateLimiter) Option {
	return func(o *clientOptions) { o.limiter = rl }
}

// WithRetryPolicy overrides the transport-level retry budget.
func WithRetryPolicy(max int, waitMin, waitMax time.Duration) Option {
	return func(o *clientOptions) {
		o.retryMax = max
		o.retryWaitMin = waitMin
		o.retryWaitMax = waitMax
	}
}

// Client talks to the portal's document and e-sign endpoints.
type Client struct {
	httpClient *nethttp.Client
	config     *config.Config
	baseURL    string
	apiToken   string
	limiter    *ratelimit.RateLimiter
	logger     *logging.Logger
	metrics    *apiMetrics
}

// NewClient creates a new API client
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.PortalURL) == "" {
		return nil, ErrEmptyBaseURL
	}

	o := clientOptions{
		retryMax:     constants.HTTPRetryMax,
		retryWaitMin: constants.HTTPRetryWaitMin,
		retryWaitMax: constants.HTTPRetryWaitMax,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}
	if o.limiter == nil {
		o.limiter = ratelimit.NewPortalRateLimiter()
	}

	httpClient, err := http.ConfigureHTTPClient(cfg, o.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = o.retryMax
	retryClient.RetryWaitMin = o.retryWaitMin
	retryClient.RetryWaitMax = o.retryWaitMax
	retryClient.Logger = &retryLogger{logger: o.logger}
	retryClient.CheckRetry = checkRetry
	// Hand the final response back so status and body become typed errors
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		httpClient: retryClient.StandardClient(),
		config:     cfg,
		baseURL:    strings.TrimSuffix(cfg.PortalURL, "/"),
		apiToken:   cfg.APIToken,
		limiter:    o.limiter,
		logger:     o.logger,
		metrics: &apiMetrics{
			callsByPath: make(map[string]int64),
			windowStart: time.Now(),
		},
	}, nil
}

type (
	requestIDKey struct{}
	methodKey    struct{}
)

// checkRetry applies retryablehttp's default policy to idempotent
// requests. Other requests are retried only when the connection to the
// portal was never made, since a 5xx or a broken connection after the
// body was sent may hide a request the portal already applied.
func checkRetry(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	method, _ := ctx.Value(methodKey{}).(string)
	if resp != nil && resp.Request != nil {
		method = resp.Request.Method
	}
	if idempotent(method) {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil && isDialError(err), nil
}

func idempotent(method string) bool {
	switch method {
	case nethttp.MethodGet, nethttp.MethodHead, nethttp.MethodPut, nethttp.MethodDelete, nethttp.MethodOptions:
		return true
	}
	return false
}

// isDialError reports whether err happened while connecting, before any
// request bytes reached the portal.
func isDialError(err error) bool {
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	return opErr.Op == "dial" || opErr.Op == "proxyconnect"
}

// WithRequestID attaches a request id that doRequest sends as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id attached to ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// doRequest performs an HTTP request with authentication and rate limiting
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*nethttp.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}

	c.recordCall(path)

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := nethttp.NewRequestWithContext(context.WithValue(ctx, methodKey{}, method), method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	req.Header.Set("Authorization", "Token "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug().Str("method", method).Str("path", path).Str("request_id", requestID).Err(err).Msg("API call failed")
		return nil, err
	}

	if resp.StatusCode == nethttp.StatusTooManyRequests {
		cooldown := ratelimit.RetryAfter(resp.Header.Get("Retry-After"), time.Now())
		c.limiter.Throttle(cooldown)
		c.logger.Warn().Str("method", method).Str("path", path).Dur("cooldown", cooldown).Msg("throttled by portal")
	}

	return resp, nil
}

// recordCall tracks API call metrics and summarises them once per window.
func (c *Client) recordCall(path string) {
	c.metrics.Lock()
	defer c.metrics.Unlock()

	c.metrics.totalCalls++
	c.metrics.callsByPath[path]++
	c.metrics.callsInWindow++

	window := time.Since(c.metrics.windowStart)
	if window >= constants.MetricsLogWindow {
		reqPerSec := float64(c.metrics.callsInWindow) / window.Seconds()
		c.logger.Debug().
			Float64("req_per_sec", reqPerSec).
			Float64("target_per_sec", ratelimit.PortalRatePerSec).
			Int64("total_calls", c.metrics.totalCalls).
			Msg("API usage")
		c.metrics.callsInWindow = 0
		c.metrics.windowStart = time.Now()
	}
}

// TotalCalls returns the number of requests issued so far.
func (c *Client) TotalCalls() int64 {
	c.metrics.Lock()
	defer c.metrics.Unlock()
	return c.metrics.totalCalls
}

// envelope is the optional {success, data, message} wrapper some endpoints use.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// call issues a request and decodes the JSON result into out (which may be nil).
// Transport failures and 429/5xx become *NetworkError; 4xx and success=false
// envelopes become *RemoteRejection.
func (c *Client) call(ctx context.Context, op, method, path string, body, out interface{}) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	switch {
	case resp.StatusCode == nethttp.StatusTooManyRequests || resp.StatusCode >= 500:
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", snippet(raw))}
	case resp.StatusCode >= 400:
		return &RemoteRejection{Op: op, StatusCode: resp.StatusCode, Message: rejectionMessage(raw)}
	}

	payload := bytes.TrimSpace(raw)
	if len(payload) == 0 {
		return nil
	}

	if payload[0] == '{' {
		var env envelope
		if err := json.Unmarshal(payload, &env); err == nil && env.Success != nil {
			if !*env.Success {
				msg := env.Message
				if msg == "" {
					msg = rejectionMessage(payload)
				}
				return &RemoteRejection{Op: op, StatusCode: resp.StatusCode, Message: msg}
			}
			payload = env.Data
		}
	}

	if out == nil || len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// rejectionMessage pulls a human message out of an error body.
func rejectionMessage(raw []byte) string {
	var body struct {
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Message != "":
			return body.Message
		case body.Detail != "":
			return body.Detail
		case len(body.Error) > 0:
			var s string
			if json.Unmarshal(body.Error, &s) == nil && s != "" {
				return s
			}
			return string(body.Error)
		}
	}
	return snippet(raw)
}

const snippetMax = 200

// snippet shortens an unstructured error body on a rune boundary.
func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) <= snippetMax {
		return s
	}
	cut := snippetMax
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// page is the paginated list shape of the recursive endpoints.
type page[T any] struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []T    `json:"results"`
}

// listAll follows `next` links until the listing is exhausted.
func listAll[T any](ctx context.Context, c *Client, op, path string) ([]T, error) {
	var all []T
	for path != "" {
		var p page[T]
		if err := c.call(ctx, op, nethttp.MethodGet, path, nil, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Results...)

		next, err := c.relativePath(p.Next)
		if err != nil {
			return nil, fmt.Errorf("%s: bad next link: %w", op, err)
		}
		path = next
	}
	return all, nil
}

// relativePath turns an absolute `next` link into a path for doRequest.
func (c *Client) relativePath(next string) (string, error) {
	if next == "" {
		return "", nil
	}
	if strings.HasPrefix(next, c.baseURL) {
		return strings.TrimPrefix(next, c.baseURL), nil
	}
	u, err := url.Parse(next)
	if err != nil {
		return "", err
	}
	if u.RawQuery == "" {
		return u.Path, nil
	}
	return u.Path + "?" + u.RawQuery, nil
}
