// JSON HTTP client shared by the provider implementations
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/shared"
	"golang.org/x/time/rate"
)

var errTransport = errors.New("request failed")

// HTTPError is a non-2xx provider response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: status %d from %s", shared.ErrAPIRequest, e.StatusCode, e.URL)
}

func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return shared.ErrRateLimited
	}
	return shared.ErrAPIRequest
}

// Retryable reports whether the request may succeed if repeated.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RetryPolicy configures exponential backoff for retryable failures.
type RetryPolicy struct {
	MaxAttempts int           // Total attempts including the first
	InitialWait time.Duration // Doubled after each retry
	MaxWait     time.Duration // Cap for a single wait
}

// DefaultRetryPolicy returns the default retry configuration
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialWait: 500 * time.Millisecond, MaxWait: 10 * time.Second}
}

// APIClientOpts contains configuration for an [APIClient].
type APIClientOpts struct {
	BaseURL           string
	HTTPClient        *http.Client
	RequestsPerSecond float64 // <= 0 disables limiting
	Burst             int
	UserAgent         string
	Retry             RetryPolicy
	Logger            *log.Logger

	// Inspect checks 2xx bodies for provider errors reported in-band. Errors wrapping
	// [shared.ErrRateLimited] are retried.
	Inspect func(body []byte) error
}

// APIClient performs rate-limited, retrying GET requests against a JSON API.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	retry      RetryPolicy
	inspect    func([]byte) error
	logger     *log.Logger
}

// NewAPIClient creates a new API client.
func NewAPIClient(opts APIClientOpts) *APIClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &APIClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    limiter,
		userAgent:  opts.UserAgent,
		retry:      opts.Retry,
		inspect:    opts.Inspect,
		logger:     opts.Logger,
	}
}

// Get requests path (relative to the base URL) with query and decodes the JSON body into out.
func (c *APIClient) Get(ctx context.Context, path string, query url.Values, out any) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	return c.GetURL(ctx, fullURL, out)
}

// GetURL requests an absolute URL, such as a pagination link, and decodes the JSON body into out.
func (c *APIClient) GetURL(ctx context.Context, fullURL string, out any) error {
	wait := c.retry.InitialWait
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		body, err := c.do(ctx, fullURL)
		if err == nil {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("%w: failed to decode response from %s: %v", shared.ErrAPIRequest, fullURL, err)
			}
			return nil
		}

		lastErr = err
		if !isRetryable(err) || attempt == c.retry.MaxAttempts {
			break
		}

		delay := wait
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
			delay = httpErr.RetryAfter
		}
		if c.retry.MaxWait > 0 && delay > c.retry.MaxWait {
			delay = c.retry.MaxWait
		}

		c.logger.Debug("retrying provider request", "url", fullURL, "attempt", attempt, "wait", delay, "error", err)

		if err := sleep(ctx, delay); err != nil {
			return err
		}
		wait *= 2
	}

	return lastErr
}

func (c *APIClient) do(ctx context.Context, fullURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", errTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        fullURL,
			Body:       truncate(string(body), 256),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if c.inspect != nil {
		if err := c.inspect(body); err != nil {
			return nil, err
		}
	}

	return body, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}

	if errors.Is(err, shared.ErrRateLimited) {
		return true
	}

	return errors.Is(err, errTransport)
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
