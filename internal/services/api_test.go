package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/crate/internal/shared"
	tu "github.com/desertthunder/crate/internal/testing"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
}

func TestAPIClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("Trims Trailing Slash", func(t *testing.T) {
			c := NewAPIClient(APIClientOpts{BaseURL: "http://example.com/"})
			if c.baseURL != "http://example.com" {
				t.Errorf("expected trimmed baseURL, got %s", c.baseURL)
			}
		})

		t.Run("Defaults", func(t *testing.T) {
			c := NewAPIClient(APIClientOpts{BaseURL: "http://example.com"})
			if c.httpClient == nil {
				t.Error("expected default http client")
			}
			if c.retry.MaxAttempts != DefaultRetryPolicy().MaxAttempts {
				t.Errorf("expected default retry policy, got %+v", c.retry)
			}
			if c.limiter != nil {
				t.Error("expected no limiter when rate is unset")
			}
		})

		t.Run("With Rate Limit", func(t *testing.T) {
			c := NewAPIClient(APIClientOpts{BaseURL: "http://example.com", RequestsPerSecond: 10})
			if c.limiter == nil {
				t.Fatal("expected limiter")
			}
			if c.limiter.Burst() != 1 {
				t.Errorf("expected burst 1, got %d", c.limiter.Burst())
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Decodes JSON With Query And Headers", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/search/artist" {
					t.Errorf("expected path '/search/artist', got %s", r.URL.Path)
				}
				if r.URL.Query().Get("q") != "Daft Punk" {
					t.Errorf("expected query q='Daft Punk', got %s", r.URL.Query().Get("q"))
				}
				if r.Header.Get("User-Agent") != "crate-test" {
					t.Errorf("expected user agent 'crate-test', got %s", r.Header.Get("User-Agent"))
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"status": "success"}`))
			}))
			defer server.Close()

			c := NewAPIClient(APIClientOpts{BaseURL: server.URL, UserAgent: "crate-test", Retry: fastRetry()})

			var out struct{ Status string }
			err := c.Get(context.Background(), "/search/artist", url.Values{"q": {"Daft Punk"}}, &out)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if out.Status != "success" {
				t.Errorf("expected status 'success', got %s", out.Status)
			}
		})

		t.Run("Invalid JSON", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			}))
			defer server.Close()

			c := NewAPIClient(APIClientOpts{BaseURL: server.URL, Retry: fastRetry()})
			var out map[string]any
			err := c.Get(context.Background(), "/x", nil, &out)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			c := NewAPIClient(APIClientOpts{BaseURL: "http://example.com", Retry: fastRetry()})
			err := c.Get(context.Background(), "/test\x00invalid", nil, nil)

			if err == nil {
				t.Fatal("expected error for invalid URL")
			}
			if !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request Is Retried", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed")),
			}

			c := NewAPIClient(APIClientOpts{BaseURL: "http://example.com", HTTPClient: client, Retry: fastRetry()})
			err := c.Get(context.Background(), "/test", nil, nil)

			if err == nil {
				t.Fatal("expected error for failed request")
			}
			if !strings.Contains(err.Error(), "request failed") {
				t.Errorf("expected 'request failed' error, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			c := NewAPIClient(APIClientOpts{BaseURL: "http://example.com", HTTPClient: client, Retry: fastRetry()})
			err := c.Get(context.Background(), "/test", nil, nil)

			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			c := NewAPIClient(APIClientOpts{BaseURL: server.URL, Retry: fastRetry()})
			err := c.Get(ctx, "/test", nil, nil)
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		})
	})

	t.Run("Retry", func(t *testing.T) {
		t.Run("Server Errors Then Success", func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) < 3 {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				w.Write([]byte(`{"ok": true}`))
			}))
			defer server.Close()

			c := NewAPIClient(APIClientOpts{BaseURL: server.URL, Retry: fastRetry()})
			var out struct{ OK bool }
			if err := c.Get(context.Background(), "/x", nil, &out); err != nil {
				t.Fatalf("expected success after retries, got %v", err)
			}
			if !out.OK || calls.Load() != 3 {
				t.Errorf("expected 3 calls and ok body, got %d calls, %+v", calls.Load(), out)
			}
		})

		t.Run("Rate Limited Exhausts Attempts", func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
			}))
			defer server.Close()

			c := NewAPIClient(APIClientOpts{BaseURL: server.URL, Retry: fastRetry()})
			err := c.Get(context.Background(), "/x", nil, nil)

			if !errors.Is(err, shared.ErrRateLimited) {
				t.Errorf("expected ErrRateLimited, got %v", err)
			}
			var httpErr *HTTPError
			if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests {
				t.Errorf("expected HTTPError 429, got %v", err)
			}
			if calls.Load() != 3 {
				t.Errorf("expected 3 attempts, got %d", calls.Load())
			}
		})

		t.Run("Client Errors Are Not Retried", func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			c := NewAPIClient(APIClientOpts{BaseURL: server.URL, Retry: fastRetry()})
			err := c.Get(context.Background(), "/x", nil, nil)

			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if calls.Load() != 1 {
				t.Errorf("expected 1 attempt, got %d", calls.Load())
			}
		})

		t.Run("Inspect Rate Limit Is Retried", func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.Write([]byte(`{"error": "quota"}`))
					return
				}
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			c := NewAPIClient(APIClientOpts{
				BaseURL: server.URL,
				Retry:   fastRetry(),
				Inspect: func(body []byte) error {
					if strings.Contains(string(body), "quota") {
						return shared.ErrRateLimited
					}
					return nil
				},
			})
			if err := c.Get(context.Background(), "/x", nil, nil); err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if calls.Load() != 2 {
				t.Errorf("expected 2 attempts, got %d", calls.Load())
			}
		})
	})

	t.Run("ParseRetryAfter", func(t *testing.T) {
		if d := parseRetryAfter("3"); d != 3*time.Second {
			t.Errorf("expected 3s, got %v", d)
		}
		if d := parseRetryAfter(""); d != 0 {
			t.Errorf("expected 0, got %v", d)
		}
		if d := parseRetryAfter("soon"); d != 0 {
			t.Errorf("expected 0 for garbage, got %v", d)
		}
	})
}
