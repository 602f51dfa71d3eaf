// Package http provides a chartz Fetcher that retrieves chart payloads over
// HTTP with github.com/go-resty/resty/v2.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Defaults applied by New.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultRetryCount   = 2
	DefaultRetryWait    = 500 * time.Millisecond
	DefaultRetryMaxWait = 5 * time.Second
	DefaultAccept       = "application/json"
	userAgent           = "chartz/1.0"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.URL, e.Status, e.Body)
}

// Fetcher performs GET requests against endpoints, which are either absolute
// URLs or paths relative to the base URL.
type Fetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
	mu      sync.RWMutex
}

// New creates a Fetcher with production defaults: a request timeout, retry
// with backoff on transport errors and 5xx responses, and a JSON Accept header.
func New() *Fetcher {
	client := resty.New()
	client.
		SetTimeout(DefaultTimeout).
		SetRetryCount(DefaultRetryCount).
		SetRetryWaitTime(DefaultRetryWait).
		SetRetryMaxWaitTime(DefaultRetryMaxWait).
		SetHeader("Accept", DefaultAccept).
		SetHeader("User-Agent", userAgent).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
}

// BaseURL resolves relative endpoints against url.
func (f *Fetcher) BaseURL(url string) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.client.SetBaseURL(url)
	return f
}

// Timeout sets the per-request timeout.
func (f *Fetcher) Timeout(d time.Duration) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.client.SetTimeout(d)
	return f
}

// Retry configures retry behavior. A count of 0 disables retries.
func (f *Fetcher) Retry(count int, wait, maxWait time.Duration) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.client.SetRetryCount(count).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(maxWait)
	return f
}

// Header adds a default header sent with every request.
func (f *Fetcher) Header(key, value string) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.client.SetHeader(key, value)
	return f
}

// BearerAuth sets a bearer token sent with every request.
func (f *Fetcher) BearerAuth(token string) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.client.SetAuthToken(token)
	return f
}

// RateLimit caps outgoing requests per second. Zero or less removes the cap.
func (f *Fetcher) RateLimit(rps float64) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rps <= 0 {
		f.limiter = rate.NewLimiter(rate.Inf, 0)
	} else {
		f.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
	return f
}

// Fetch performs a GET against endpoint and returns the response body.
// Non-2xx responses are returned as *StatusError.
func (f *Fetcher) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	f.mu.RLock()
	limiter := f.limiter
	req := f.client.R().SetContext(ctx)
	f.mu.RUnlock()

	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	resp, err := req.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	if resp.IsError() || resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, &StatusError{
			URL:    resp.Request.URL,
			Status: resp.StatusCode(),
			Body:   truncate(resp.String(), 200),
		}
	}
	return resp.Body(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
