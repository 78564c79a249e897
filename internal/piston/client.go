package piston

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Piston execute endpoint.
const DefaultBaseURL = "https://emkc.org/api/v2/piston/execute"

const (
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second
)

// Executor runs one program against one stdin.
type Executor interface {
	Execute(ctx context.Context, lang Language, code, stdin string) (*ExecuteResponse, error)
}

// Client talks to a Piston-compatible execution service.
type Client struct {
	endpoint   string
	http       *http.Client
	maxRetries int
	limiter    *rate.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMaxRetries sets how many times a rate-limited request is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithTimeout bounds a single HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit paces outgoing attempts to rps requests per second.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithLogger sets the logger used for retry and failure messages.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSleep replaces the backoff wait. Used by tests to observe waits.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// NewClient creates a client for the given execute endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultBaseURL
	}
	c := &Client{
		endpoint:   endpoint,
		http:       &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		sleep:      sleepContext,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute submits code with stdin and returns the decoded response.
// Rate-limited attempts are retried with backoff; every other failure is
// returned immediately as an *Error.
func (c *Client) Execute(ctx context.Context, lang Language, code, stdin string) (*ExecuteResponse, error) {
	if !lang.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, string(lang))
	}

	body, err := json.Marshal(ExecuteRequest{
		Language: string(lang),
		Version:  wildcardVersion,
		Files:    []File{{Content: code}},
		Stdin:    stdin,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	start := time.Now()
	resp, err := c.do(ctx, body)
	observeRequest(err, time.Since(start))
	return resp, err
}

func (c *Client) do(ctx context.Context, body []byte) (*ExecuteResponse, error) {
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &Error{Kind: KindTransport, Err: err}
			}
		}

		status, header, data, err := c.post(ctx, body)
		if err != nil {
			return nil, &Error{Kind: KindTransport, Err: err}
		}

		if status == http.StatusTooManyRequests {
			if attempt >= c.maxRetries {
				return nil, &Error{Kind: KindRateLimited, StatusCode: status, Retries: c.maxRetries}
			}
			wait := retryDelay(header.Get("Retry-After"), attempt)
			c.logger.Info("rate limited, retrying",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries),
				zap.Duration("wait", wait))
			retriesTotal.Inc()
			if err := c.sleep(ctx, wait); err != nil {
				return nil, &Error{Kind: KindTransport, Err: err}
			}
			continue
		}

		if status < 200 || status > 299 {
			c.logger.Warn("execute request failed", zap.Int("status", status))
			return nil, &Error{Kind: KindHTTPStatus, StatusCode: status}
		}

		var out ExecuteResponse
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, &Error{Kind: KindResponseParse, StatusCode: status, Err: err}
		}
		return &out, nil
	}
}

func (c *Client) post(ctx context.Context, body []byte) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, resp.Header, data, nil
}

// maxRetryAfter caps the wait a server can request.
const maxRetryAfter = 5 * time.Minute

// retryDelay honours a Retry-After value in seconds, up to maxRetryAfter,
// falling back to 2^attempt seconds.
func retryDelay(retryAfter string, attempt int) time.Duration {
	if v := strings.TrimSpace(retryAfter); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
			if secs >= maxRetryAfter.Seconds() {
				return maxRetryAfter
			}
			return time.Duration(secs*1000) * time.Millisecond
		}
	}
	return time.Duration(1<<attempt) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
