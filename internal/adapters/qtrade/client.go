package qtrade

// client.go — qtrade HTTP client with HMAC auth, rate limiting and retries.
//
// Every response arrives wrapped in a {"data": ...} envelope; errors come
// back as {"errors": [{"code", "title"}]}. 429 and 5xx responses are
// retried with exponential backoff, 4xx responses are classified and
// surfaced to the caller.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.qtrade.io"

	// qtrade allows 60 authenticated requests per 10s window; stay at
	// roughly half of that so bursts during a full replace never trip it.
	privateRatePerSec = 3
	publicRatePerSec  = 10

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client is the qtrade HTTP client. Private endpoints are signed with
// the HMAC credentials, public endpoints go out unsigned.
type Client struct {
	http           *http.Client
	baseURL        string
	auth           *Auth
	publicLimiter  *rate.Limiter
	privateLimiter *rate.Limiter
}

// NewClient creates a Client for the given endpoint. An empty baseURL
// selects production. auth may be nil for public-only use.
func NewClient(baseURL string, auth *Auth) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:           &http.Client{Timeout: 10 * time.Second},
		baseURL:        baseURL,
		auth:           auth,
		publicLimiter:  rate.NewLimiter(publicRatePerSec, 5),
		privateLimiter: rate.NewLimiter(privateRatePerSec, 5),
	}
}

// apiErrorBody is the JSON error envelope.
type apiErrorBody struct {
	Errors []struct {
		Code  string `json:"code"`
		Title string `json:"title"`
	} `json:"errors"`
}

// get performs a GET against path and decodes the data envelope into out.
func (c *Client) get(ctx context.Context, path string, private bool, out any) error {
	limiter := c.publicLimiter
	if private {
		limiter = c.privateLimiter
	}
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if private {
			if err := c.sign(req, nil); err != nil {
				return nil, err
			}
		}
		return c.http.Do(req)
	}, out)
}

// post performs a signed POST with a JSON body and decodes the data
// envelope into out. All POST endpoints on qtrade are private.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.doWithRetry(ctx, c.privateLimiter, func() (*http.Response, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if err := c.sign(req, b); err != nil {
			return nil, err
		}
		return c.http.Do(req)
	}, out)
}

func (c *Client) sign(req *http.Request, body []byte) error {
	if c.auth == nil {
		return fmt.Errorf("qtrade: private endpoint %s requires credentials", req.URL.Path)
	}
	c.auth.Sign(req, body)
	return nil
}

// doWithRetry executes fn with exponential backoff and jitter. Client
// errors (4xx other than 429) are terminal and returned as *APIError.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by qtrade", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return parseAPIError(resp.StatusCode, raw)
		}

		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		err = json.NewDecoder(resp.Body).Decode(&envelope)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep waits with exponential backoff and respects the context.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

// APIError is a terminal 4xx response from qtrade.
type APIError struct {
	Status int
	Code   string
	Title  string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("qtrade: %d %s: %s", e.Status, e.Code, e.Title)
	}
	return fmt.Sprintf("qtrade: status %d", e.Status)
}

func parseAPIError(status int, raw []byte) error {
	var body apiErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Errors) > 0 {
		return &APIError{Status: status, Code: body.Errors[0].Code, Title: body.Errors[0].Title}
	}
	return &APIError{Status: status, Title: string(raw)}
}
